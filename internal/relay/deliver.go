package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/models"
	"github.com/odanieltavares/whatpro-manager/internal/privacy"
)

// ChatPlatform is the slice of the Chatwoot API the relay needs.
type ChatPlatform interface {
	EnsureContact(ctx context.Context, accountID, inboxID int, phone, name string) (contactID int, sourceID string, err error)
	EnsureConversation(ctx context.Context, accountID, inboxID, contactID int, sourceID string) (conversationID int, status string, err error)
	CreateMessage(ctx context.Context, accountID, conversationID int, content string, incoming bool) (messageID int, err error)
	CreateAttachmentMessage(ctx context.Context, accountID, conversationID int, caption, mediaURL, mimeType string, incoming bool) (messageID int, err error)
	ReopenConversation(ctx context.Context, accountID, conversationID int) error
	CreatePrivateNote(ctx context.Context, accountID, conversationID int, content string) error
}

// ProviderClient is the slice of the WhatsApp provider API the relay needs.
type ProviderClient interface {
	SendMessage(ctx context.Context, msg *models.OutboundMessage) (waMessageID string, err error)
	RejectCall(ctx context.Context, number, callRef string) error
	DeleteMessage(ctx context.Context, waMessageID string) error
}

// ConfigResolver looks up instance routing configuration. Lookups are hot
// path; implementations cache.
type ConfigResolver interface {
	InstanceByID(ctx context.Context, instanceID string) (*models.Instance, error)
	InstanceByToken(ctx context.Context, apiToken string) (*models.Instance, error)
	InstanceByInbox(ctx context.Context, accountID, inboxID int) (*models.Instance, error)
}

// MappingStore persists the WhatsApp-to-Chatwoot message id cross reference.
type MappingStore interface {
	SaveMapping(ctx context.Context, m *models.MessageMapping) error
	MappingByChatwootID(ctx context.Context, chatwootMessageID int) (*models.MessageMapping, error)
	MappingByWAMessageID(ctx context.Context, waMessageID string) (*models.MessageMapping, error)
	UpdateMappingStatus(ctx context.Context, waMessageID string, status models.DeliveryStatus) (bool, error)
}

// PlatformFactory builds a Chatwoot client for one instance's binding.
type PlatformFactory func(binding models.ChatwootBinding) ChatPlatform

// ProviderFactory builds a provider client for one instance's credentials.
type ProviderFactory func(baseURL, apiToken string) ProviderClient

// Deliverer performs the terminal side effect of one job. An error return
// means the attempt failed and the retry policy applies.
type Deliverer interface {
	Deliver(ctx context.Context, job *models.Job) error
}

// OutboundDeliverer pushes a Chatwoot agent message to the WhatsApp
// provider and records the id mapping.
type OutboundDeliverer struct {
	resolver ConfigResolver
	provider ProviderFactory
	mappings MappingStore
	logger   *logrus.Logger
}

func NewOutboundDeliverer(resolver ConfigResolver, provider ProviderFactory, mappings MappingStore, logger *logrus.Logger) *OutboundDeliverer {
	return &OutboundDeliverer{resolver: resolver, provider: provider, mappings: mappings, logger: logger}
}

func (d *OutboundDeliverer) Deliver(ctx context.Context, job *models.Job) error {
	instance, err := d.resolver.InstanceByID(ctx, job.InstanceID)
	if err != nil {
		return fmt.Errorf("failed to resolve instance %s: %w", job.InstanceID, err)
	}

	client := d.provider(instance.BaseURL, instance.APIToken)
	waMessageID, err := client.SendMessage(ctx, &job.Message)
	if err != nil {
		return fmt.Errorf("provider send failed: %w", err)
	}

	now := time.Now().UTC()
	if err := d.mappings.SaveMapping(ctx, &models.MessageMapping{
		TenantID:          job.TenantID,
		ProjectID:         job.ProjectID,
		InstanceID:        job.InstanceID,
		Direction:         models.DirectionOutbound,
		ChatwootMessageID: job.ChatwootMessageID,
		WAMessageID:       waMessageID,
		MessageKind:       job.Message.Kind,
		QueueKey:          job.QueueKey,
		Status:            models.DeliveryStatusSent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"jobId":       job.JobID,
			"waMessageId": waMessageID,
		}).Warn("Message sent but mapping save failed")
	}

	d.logger.WithFields(logrus.Fields{
		"jobId":       job.JobID,
		"instanceId":  job.InstanceID,
		"contact":     privacy.MaskPhone(job.ContactKey),
		"waMessageId": waMessageID,
		"kind":        job.Message.Kind,
	}).Info("Relayed message to WhatsApp")
	return nil
}

// InboundDeliverer pushes a WhatsApp message into the bound Chatwoot
// inbox, creating the contact and conversation on first touch.
type InboundDeliverer struct {
	resolver ConfigResolver
	platform PlatformFactory
	mappings MappingStore
	logger   *logrus.Logger
}

func NewInboundDeliverer(resolver ConfigResolver, platform PlatformFactory, mappings MappingStore, logger *logrus.Logger) *InboundDeliverer {
	return &InboundDeliverer{resolver: resolver, platform: platform, mappings: mappings, logger: logger}
}

func (d *InboundDeliverer) Deliver(ctx context.Context, job *models.Job) error {
	instance, err := d.resolver.InstanceByID(ctx, job.InstanceID)
	if err != nil {
		return fmt.Errorf("failed to resolve instance %s: %w", job.InstanceID, err)
	}
	binding := instance.Chatwoot
	client := d.platform(binding)

	contactID, sourceID, err := client.EnsureContact(ctx, binding.AccountID, binding.InboxID, job.Message.Number, job.ContactName)
	if err != nil {
		return fmt.Errorf("failed to ensure contact: %w", err)
	}

	conversationID, status, err := client.EnsureConversation(ctx, binding.AccountID, binding.InboxID, contactID, sourceID)
	if err != nil {
		return fmt.Errorf("failed to ensure conversation: %w", err)
	}
	if status == "resolved" {
		if err := client.ReopenConversation(ctx, binding.AccountID, conversationID); err != nil {
			d.logger.WithError(err).WithField("conversationId", conversationID).Warn("Failed to reopen resolved conversation")
		}
	}

	var messageID int
	if job.Message.MediaURL != "" {
		messageID, err = client.CreateAttachmentMessage(ctx, binding.AccountID, conversationID, job.Message.Caption, job.Message.MediaURL, job.Message.MimeType, true)
	} else {
		messageID, err = client.CreateMessage(ctx, binding.AccountID, conversationID, job.Message.Text, true)
	}
	if err != nil {
		return fmt.Errorf("failed to create chatwoot message: %w", err)
	}

	now := time.Now().UTC()
	if err := d.mappings.SaveMapping(ctx, &models.MessageMapping{
		TenantID:          job.TenantID,
		ProjectID:         job.ProjectID,
		InstanceID:        job.InstanceID,
		Direction:         models.DirectionInbound,
		ChatwootMessageID: messageID,
		WAMessageID:       job.WAMessageID,
		MessageKind:       job.Message.Kind,
		QueueKey:          job.QueueKey,
		Status:            models.DeliveryStatusDelivered,
		CreatedAt:         now,
		UpdatedAt:         now,
	}); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"jobId":             job.JobID,
			"chatwootMessageId": messageID,
		}).Warn("Message posted but mapping save failed")
	}

	d.logger.WithFields(logrus.Fields{
		"jobId":             job.JobID,
		"instanceId":        job.InstanceID,
		"contact":           privacy.MaskPhone(job.ContactKey),
		"conversationId":    conversationID,
		"chatwootMessageId": messageID,
	}).Info("Relayed message to Chatwoot")
	return nil
}
