package relay

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/models"
	"github.com/odanieltavares/whatpro-manager/internal/privacy"
)

// AutoReplyScheduler runs delayed auto-reply scripts after a rejected
// call. Every pending script is cancellable, per chat or all at once, so
// a caller who starts typing does not also get the canned follow-ups.
type AutoReplyScheduler struct {
	provider ProviderFactory
	logger   *logrus.Logger

	// pending sequences run on baseCtx, never the webhook request
	// context; the timers must outlive the HTTP handler that armed them.
	baseCtx  context.Context
	baseStop context.CancelFunc

	mu      sync.Mutex
	pending map[string]context.CancelFunc // chat key -> cancel
	wg      sync.WaitGroup
}

func NewAutoReplyScheduler(provider ProviderFactory, logger *logrus.Logger) *AutoReplyScheduler {
	baseCtx, baseStop := context.WithCancel(context.Background())
	return &AutoReplyScheduler{
		provider: provider,
		logger:   logger,
		baseCtx:  baseCtx,
		baseStop: baseStop,
		pending:  make(map[string]context.CancelFunc),
	}
}

// Schedule queues the instance's auto-reply scripts for one chat,
// replacing any sequence already pending for it. Each script fires after
// its own delay, measured from now, and is dropped only by Cancel or
// Stop.
func (s *AutoReplyScheduler) Schedule(instance *models.Instance, chatKey string) {
	scripts := instance.Behavior.AutoReplyScripts
	if len(scripts) == 0 {
		return
	}

	s.mu.Lock()
	if cancel, ok := s.pending[chatKey]; ok {
		cancel()
	}
	runCtx, cancel := context.WithCancel(s.baseCtx)
	s.pending[chatKey] = cancel
	s.mu.Unlock()

	client := s.provider(instance.BaseURL, instance.APIToken)

	for _, script := range scripts {
		s.wg.Add(1)
		go func(script models.AutoReplyMessage) {
			defer s.wg.Done()
			select {
			case <-runCtx.Done():
				return
			case <-time.After(time.Duration(script.DelaySec) * time.Second):
			}

			_, err := client.SendMessage(runCtx, &models.OutboundMessage{
				Kind:   models.MessageKindText,
				Number: chatKey,
				Text:   script.Text,
			})
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"instanceId": instance.ID,
					"chatKey":    privacy.MaskChatKey(chatKey),
				}).Warn("Auto-reply send failed")
			}
		}(script)
	}

	s.logger.WithFields(logrus.Fields{
		"instanceId": instance.ID,
		"chatKey":    privacy.MaskChatKey(chatKey),
		"scripts":    len(scripts),
	}).Debug("Scheduled call auto-replies")
}

// Cancel drops any pending auto-replies for one chat.
func (s *AutoReplyScheduler) Cancel(chatKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.pending[chatKey]; ok {
		cancel()
		delete(s.pending, chatKey)
	}
}

// Stop cancels everything pending and waits for the timers to unwind.
func (s *AutoReplyScheduler) Stop() {
	s.baseStop()
	s.mu.Lock()
	for chatKey, cancel := range s.pending {
		cancel()
		delete(s.pending, chatKey)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
