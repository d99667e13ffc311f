package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odanieltavares/whatpro-manager/internal/models"
)

func autoReplyInstance(scripts ...models.AutoReplyMessage) *models.Instance {
	return &models.Instance{
		ID:       "inst-1",
		TenantID: "t1",
		APIToken: "tok-abc",
		BaseURL:  "https://wa.example.com",
		Behavior: models.InstanceBehavior{
			AutoReplyCalls:   true,
			AutoReplyScripts: scripts,
		},
	}
}

func TestAutoReplySendsScripts(t *testing.T) {
	provider := &fakeProvider{}
	s := NewAutoReplyScheduler(func(string, string) ProviderClient { return provider }, quietLogger())

	instance := autoReplyInstance(
		models.AutoReplyMessage{Text: "we do not take calls", DelaySec: 0},
		models.AutoReplyMessage{Text: "send a message instead", DelaySec: 0},
	)
	s.Schedule(instance, "5511777770000@s.whatsapp.net")
	require.Eventually(t, func() bool {
		return len(provider.sentMessages()) == 2
	}, time.Second, 10*time.Millisecond)
	s.Stop()

	sent := provider.sentMessages()
	require.Len(t, sent, 2)
	texts := []string{sent[0].Text, sent[1].Text}
	assert.ElementsMatch(t, []string{"we do not take calls", "send a message instead"}, texts)
	assert.Equal(t, "5511777770000@s.whatsapp.net", sent[0].Number)
}

func TestAutoReplyCancelStopsPendingScripts(t *testing.T) {
	provider := &fakeProvider{}
	s := NewAutoReplyScheduler(func(string, string) ProviderClient { return provider }, quietLogger())

	instance := autoReplyInstance(models.AutoReplyMessage{Text: "delayed", DelaySec: 3600})
	s.Schedule(instance, "chat-1")
	s.Cancel("chat-1")
	s.Stop()

	assert.Empty(t, provider.sentMessages())
}

func TestAutoReplyRescheduleReplacesPending(t *testing.T) {
	provider := &fakeProvider{}
	s := NewAutoReplyScheduler(func(string, string) ProviderClient { return provider }, quietLogger())

	slow := autoReplyInstance(models.AutoReplyMessage{Text: "first", DelaySec: 3600})
	fast := autoReplyInstance(models.AutoReplyMessage{Text: "second", DelaySec: 0})

	s.Schedule(slow, "chat-1")
	s.Schedule(fast, "chat-1")

	require.Eventually(t, func() bool {
		return len(provider.sentMessages()) == 1
	}, time.Second, 10*time.Millisecond)
	s.Stop()

	sent := provider.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "second", sent[0].Text)
}

func TestAutoReplyStopDropsPendingScripts(t *testing.T) {
	provider := &fakeProvider{}
	s := NewAutoReplyScheduler(func(string, string) ProviderClient { return provider }, quietLogger())

	s.Schedule(autoReplyInstance(models.AutoReplyMessage{Text: "late", DelaySec: 3600}), "chat-1")
	s.Stop()

	assert.Empty(t, provider.sentMessages())
}

func TestAutoReplyNoScriptsIsNoop(t *testing.T) {
	provider := &fakeProvider{}
	s := NewAutoReplyScheduler(func(string, string) ProviderClient { return provider }, quietLogger())

	s.Schedule(autoReplyInstance(), "chat-1")
	s.Stop()
	assert.Empty(t, provider.sentMessages())
}
