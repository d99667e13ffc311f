package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/constants"
	"github.com/odanieltavares/whatpro-manager/internal/models"
	"github.com/odanieltavares/whatpro-manager/internal/queue"
)

// Ingest actions reported back to the webhook layer.
const (
	ActionEnqueued     = "enqueued"
	ActionDiscarded    = "discarded"
	ActionCommand      = "command_executed"
	ActionDeleted      = "message_deleted"
	ActionCallHandled  = "call_handled"
	ActionStatusUpdate = "status_updated"
)

// Ingestor turns raw webhook payloads into queued jobs. Classification is
// delegated to the pure classifier; this layer owns routing resolution,
// job construction, and the enqueue-then-lock handshake with the workers.
type Ingestor struct {
	queues    *queue.Manager
	retry     *RetryManager
	resolver  ConfigResolver
	mappings  MappingStore
	platform  PlatformFactory
	provider  ProviderFactory
	autoReply *AutoReplyScheduler
	outbound  *Worker
	inbound   *Worker
	sink      ExecutionSink
	logger    *logrus.Logger

	lockTTL  time.Duration
	dlqBatch int
}

type IngestorOptions struct {
	Queues    *queue.Manager
	Retry     *RetryManager
	Resolver  ConfigResolver
	Mappings  MappingStore
	Platform  PlatformFactory
	Provider  ProviderFactory
	AutoReply *AutoReplyScheduler
	Outbound  *Worker
	Inbound   *Worker
	Sink      ExecutionSink
	Logger    *logrus.Logger
}

func NewIngestor(opts IngestorOptions) *Ingestor {
	return &Ingestor{
		queues:    opts.Queues,
		retry:     opts.Retry,
		resolver:  opts.Resolver,
		mappings:  opts.Mappings,
		platform:  opts.Platform,
		provider:  opts.Provider,
		autoReply: opts.AutoReply,
		outbound:  opts.Outbound,
		inbound:   opts.Inbound,
		sink:      opts.Sink,
		logger:    opts.Logger,
		lockTTL:   constants.DefaultLockTTLSec * time.Second,
		dlqBatch:  constants.DefaultDLQRetryBatch,
	}
}

// HandleChatwootEvent ingests one Chatwoot webhook. The returned action
// tells the HTTP layer what happened; errors are reserved for failures
// that should surface as a non-2xx response.
func (in *Ingestor) HandleChatwootEvent(ctx context.Context, hook *models.ChatwootWebhook) (string, error) {
	if hook == nil || hook.Data.Message == nil || hook.Data.Conversation == nil {
		return ActionDiscarded, nil
	}
	switch hook.Event {
	case models.ChatwootEventMessageCreated, models.ChatwootEventMessageUpdated:
	default:
		return ActionDiscarded, nil
	}

	msg := hook.Data.Message
	conversation := hook.Data.Conversation
	accountID := 0
	if hook.Data.Account != nil {
		accountID = hook.Data.Account.ID
	}

	outcome := ClassifyChatwootMessage(msg)
	if outcome == ChatwootOutcomeDiscard {
		return ActionDiscarded, nil
	}
	// an edit must not re-relay the message; updates only matter when
	// they mark a deletion
	if hook.Event == models.ChatwootEventMessageUpdated && outcome != ChatwootOutcomeDeleted {
		return ActionDiscarded, nil
	}

	phone := conversationPhone(conversation)
	if phone == "" {
		in.logger.WithField("conversationId", conversation.ID).Warn("Chatwoot event has no resolvable contact phone")
		return ActionDiscarded, nil
	}

	instance, err := in.resolver.InstanceByInbox(ctx, accountID, conversation.InboxID)
	if err != nil {
		return "", fmt.Errorf("no instance bound to inbox %d: %w", conversation.InboxID, err)
	}

	switch outcome {
	case ChatwootOutcomeCommand:
		return in.handleCommand(ctx, instance, msg, conversation, accountID, phone)
	case ChatwootOutcomeDeleted:
		return in.handleDeletedMessage(ctx, instance, msg)
	}

	replyTo := ""
	if msg.InReplyTo != 0 {
		if mapping, err := in.mappings.MappingByChatwootID(ctx, msg.InReplyTo); err == nil && mapping != nil {
			replyTo = mapping.WAMessageID
		}
	}

	job := &models.Job{
		JobID:             uuid.NewString(),
		Direction:         models.DirectionOutbound,
		CreatedAt:         time.Now().UTC(),
		TenantID:          instance.TenantID,
		ProjectID:         instance.ProjectID,
		InstanceID:        instance.ID,
		ChatwootAccountID: accountID,
		InboxID:           conversation.InboxID,
		ConversationID:    conversation.ID,
		ChatwootMessageID: msg.ID,
		ContactKey:        phone,
		Message:           BuildOutboundMessage(msg, phone, outcome, replyTo),
	}
	return in.enqueue(ctx, job, in.outbound)
}

// HandleProviderEvent ingests one provider webhook, addressed by the
// instance API token carried in the URL.
func (in *Ingestor) HandleProviderEvent(ctx context.Context, instanceToken string, ev *models.ProviderEvent) (string, error) {
	instance, err := in.resolver.InstanceByToken(ctx, instanceToken)
	if err != nil {
		return "", fmt.Errorf("unknown instance token: %w", err)
	}

	switch ClassifyProviderEvent(ev) {
	case ProviderOutcomeIncoming:
		return in.handleIncomingMessage(ctx, instance, ev.FirstMessage())
	case ProviderOutcomeStatusUpdate:
		return in.handleStatusUpdate(ctx, ev)
	case ProviderOutcomeCall:
		return in.handleCall(ctx, instance, ev.CallPayload())
	}
	return ActionDiscarded, nil
}

func (in *Ingestor) handleIncomingMessage(ctx context.Context, instance *models.Instance, msg *models.ProviderMessage) (string, error) {
	if msg.IsGroup && instance.Behavior.GroupsIgnore {
		return ActionDiscarded, nil
	}
	chatKey := msg.ChatKey()
	if chatKey == "" {
		return ActionDiscarded, nil
	}

	// a real message from the caller supersedes any pending call auto-reply
	if in.autoReply != nil {
		in.autoReply.Cancel(chatKey)
	}

	if msg.Type != "" {
		cacheKey := queue.MessageTypeCacheKey(msg.WAMessageID())
		if err := in.queues.CacheSet(ctx, cacheKey, msg.Type, constants.DefaultMessageTypeTTLHours*time.Hour); err != nil {
			in.logger.WithError(err).Debug("Message type cache write failed")
		}
	}

	payload := models.OutboundMessage{
		Kind:   models.MessageKindText,
		Number: phoneFromChatKey(chatKey),
		Text:   msg.TextContent(),
	}
	if msg.MediaURL != "" {
		payload.Kind = DetectMediaKind(msg.MimeType)
		payload.MediaURL = msg.MediaURL
		payload.Caption = msg.Caption
		payload.MimeType = msg.MimeType
		payload.Filename = msg.Filename
	}
	if payload.Text == "" && payload.MediaURL == "" {
		return ActionDiscarded, nil
	}

	job := &models.Job{
		JobID:             uuid.NewString(),
		Direction:         models.DirectionInbound,
		CreatedAt:         time.Now().UTC(),
		TenantID:          instance.TenantID,
		ProjectID:         instance.ProjectID,
		InstanceID:        instance.ID,
		ChatwootAccountID: instance.Chatwoot.AccountID,
		InboxID:           instance.Chatwoot.InboxID,
		ContactKey:        phoneFromChatKey(chatKey),
		ContactName:       msg.PushName,
		WAMessageID:       msg.WAMessageID(),
		Message:           payload,
	}
	return in.enqueue(ctx, job, in.inbound)
}

func (in *Ingestor) handleStatusUpdate(ctx context.Context, ev *models.ProviderEvent) (string, error) {
	status, ok := MapProviderState(ev.EffectiveState())
	if !ok {
		return ActionDiscarded, nil
	}

	waMessageID := ""
	if ev.Update != nil && ev.Update.Key.ID != "" {
		waMessageID = ev.Update.Key.ID
	} else if msg := ev.FirstMessage(); msg != nil {
		waMessageID = msg.WAMessageID()
	}
	if waMessageID == "" {
		return ActionDiscarded, nil
	}

	updated, err := in.mappings.UpdateMappingStatus(ctx, waMessageID, status)
	if err != nil {
		return "", fmt.Errorf("failed to update delivery status: %w", err)
	}
	if !updated {
		return ActionDiscarded, nil
	}

	in.logger.WithFields(logrus.Fields{
		"waMessageId": waMessageID,
		"status":      status,
	}).Debug("Delivery status updated")
	return ActionStatusUpdate, nil
}

func (in *Ingestor) handleCall(ctx context.Context, instance *models.Instance, call *models.ProviderCall) (string, error) {
	if call == nil {
		return ActionDiscarded, nil
	}

	if instance.Behavior.AutoRejectCalls && call.CallRef() != "" {
		client := in.provider(instance.BaseURL, instance.APIToken)
		if err := client.RejectCall(ctx, phoneFromChatKey(call.Origin()), call.CallRef()); err != nil {
			in.logger.WithError(err).WithFields(logrus.Fields{
				"instanceId": instance.ID,
				"callRef":    call.CallRef(),
			}).Warn("Call auto-reject failed")
		}
	}

	if instance.Behavior.AutoReplyCalls && in.autoReply != nil && call.Origin() != "" {
		in.autoReply.Schedule(instance, call.Origin())
	}
	return ActionCallHandled, nil
}

// handleCommand executes agent dot-commands on the conversation's queue
// and answers with a private note so the command never reaches WhatsApp.
func (in *Ingestor) handleCommand(ctx context.Context, instance *models.Instance, msg *models.ChatwootMessage, conversation *models.ChatwootConversation, accountID int, phone string) (string, error) {
	command := strings.Fields(strings.TrimPrefix(strings.TrimSpace(msg.Content), constants.CommandPrefix))
	name := ""
	if len(command) > 0 {
		name = strings.ToLower(command[0])
	}

	keys := queue.JobKeys{
		Queue: queue.OutboundQueueKey(accountID, conversation.InboxID, phone),
		Lock:  queue.OutboundLockKey(accountID, conversation.InboxID, phone),
		Retry: queue.OutboundRetryKey(accountID, conversation.InboxID, phone),
		DLQ:   queue.OutboundDLQKey(accountID, conversation.InboxID, phone),
	}
	client := in.platform(instance.Chatwoot)

	var note string
	switch name {
	case "retry":
		requeued, err := in.retry.RetryDLQ(ctx, keys.Queue, keys.DLQ, in.dlqBatch)
		if err != nil {
			return "", fmt.Errorf("dlq replay failed: %w", err)
		}
		if requeued > 0 {
			in.outbound.Watch(keys.Queue)
		}
		note = fmt.Sprintf("%s requeued %d message(s) from quarantine", constants.SystemNoteMarker, requeued)

	case "flushqueue":
		result, err := in.queues.ClearQueue(ctx, keys.Queue, keys.Retry, keys.DLQ, keys.Lock)
		if err != nil {
			return "", fmt.Errorf("queue flush failed: %w", err)
		}
		if in.sink != nil {
			in.sink.Record(ctx, &models.ExecutionRecord{
				Direction:    models.DirectionOutbound,
				TenantID:     instance.TenantID,
				ProjectID:    instance.ProjectID,
				InstanceID:   instance.ID,
				ContactKey:   phone,
				QueueKey:     keys.Queue,
				Status:       models.ExecutionStatusQueueCleared,
				ErrorSummary: fmt.Sprintf("queue=%d retry=%d dlq=%d", result.QueueCleared, result.RetryCleared, result.DLQCleared),
				CreatedAt:    time.Now().UTC(),
			})
		}
		note = fmt.Sprintf("%s flushed queue: %d pending, %d retries, %d quarantined",
			constants.SystemNoteMarker, result.QueueCleared, result.RetryCleared, result.DLQCleared)

	default:
		note = fmt.Sprintf("%s unknown command %q (available: .retry, .flushqueue)", constants.SystemNoteMarker, name)
	}

	if err := client.CreatePrivateNote(ctx, accountID, conversation.ID, note); err != nil {
		in.logger.WithError(err).WithField("conversationId", conversation.ID).Warn("Failed to post command result note")
	}
	return ActionCommand, nil
}

// handleDeletedMessage propagates a Chatwoot-side deletion to WhatsApp
// when the original relay left a mapping behind.
func (in *Ingestor) handleDeletedMessage(ctx context.Context, instance *models.Instance, msg *models.ChatwootMessage) (string, error) {
	mapping, err := in.mappings.MappingByChatwootID(ctx, msg.ID)
	if err != nil || mapping == nil {
		return ActionDiscarded, nil
	}

	client := in.provider(instance.BaseURL, instance.APIToken)
	if err := client.DeleteMessage(ctx, mapping.WAMessageID); err != nil {
		return "", fmt.Errorf("failed to delete provider message: %w", err)
	}
	in.logger.WithFields(logrus.Fields{
		"chatwootMessageId": msg.ID,
		"waMessageId":       mapping.WAMessageID,
	}).Info("Propagated message deletion")
	return ActionDeleted, nil
}

func (in *Ingestor) enqueue(ctx context.Context, job *models.Job, worker *Worker) (string, error) {
	keys := queue.KeysForJob(job)
	job.QueueKey = keys.Queue
	job.LockKey = keys.Lock

	lockWon, err := in.queues.EnqueueAndTryLock(ctx, keys.Queue, keys.Lock, job, in.lockTTL)
	if err != nil {
		return "", fmt.Errorf("enqueue failed: %w", err)
	}
	worker.Watch(keys.Queue)

	in.logger.WithFields(logrus.Fields{
		"jobId":     job.JobID,
		"direction": job.Direction,
		"queueKey":  keys.Queue,
		"lockWon":   lockWon,
	}).Info("Job enqueued")
	return ActionEnqueued, nil
}

// conversationPhone extracts the counterpart phone from the conversation
// metadata, preferring the explicit phone number over the inbox source id.
func conversationPhone(conversation *models.ChatwootConversation) string {
	sender := conversation.Meta.Sender
	if sender == nil {
		return ""
	}
	if sender.PhoneNumber != "" {
		return strings.TrimPrefix(sender.PhoneNumber, "+")
	}
	if ci := sender.AdditionalAttributes.ContactInbox; ci != nil {
		return phoneFromChatKey(ci.SourceID)
	}
	return ""
}

// groupChatSuffix marks a group conversation identifier.
const groupChatSuffix = "@g.us"

// phoneFromChatKey strips the provider suffix from an individual chat
// identifier, e.g. "5511999999999@s.whatsapp.net" -> "5511999999999".
// Group identifiers keep their full form; the bare number part is not a
// routable address for a group.
func phoneFromChatKey(chatKey string) string {
	if strings.HasSuffix(chatKey, groupChatSuffix) {
		return chatKey
	}
	if i := strings.IndexByte(chatKey, '@'); i >= 0 {
		return chatKey[:i]
	}
	return strings.TrimPrefix(chatKey, "+")
}
