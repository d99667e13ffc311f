package models

import "time"

// Direction identifies which endpoint is the source of a relay job.
type Direction string

const (
	// DirectionOutbound relays Chatwoot agent messages to WhatsApp.
	DirectionOutbound Direction = "cw_to_wa"
	// DirectionInbound relays WhatsApp messages to Chatwoot.
	DirectionInbound Direction = "wa_to_cw"
)

// MessageKind is the active variant of an outbound message payload.
type MessageKind string

const (
	MessageKindText     MessageKind = "text"
	MessageKindImage    MessageKind = "image"
	MessageKindAudio    MessageKind = "audio"
	MessageKindVideo    MessageKind = "video"
	MessageKindDocument MessageKind = "document"
	MessageKindReaction MessageKind = "reaction"
)

// OutboundMessage is the payload DTO carried by a job. Exactly one variant
// is active, selected by Kind; the other fields are meaningful only for
// the kinds that use them.
type OutboundMessage struct {
	Kind   MessageKind `json:"type"`
	Number string      `json:"number"`

	Text string `json:"text,omitempty"`

	MediaURL string `json:"mediaUrl,omitempty"`
	Caption  string `json:"caption,omitempty"`
	MimeType string `json:"mimetype,omitempty"`
	Filename string `json:"filename,omitempty"`

	ReplyToWAMessageID string `json:"replyToWaMessageId,omitempty"`
	ReactionEmoji      string `json:"reactionEmoji,omitempty"`
}

// Job describes one relay attempt for one message. Attempts and LastError
// are mutated by the retry manager; everything else is fixed at creation.
type Job struct {
	JobID     string    `json:"jobId"`
	Direction Direction `json:"direction"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
	LastError string    `json:"lastError,omitempty"`

	TenantID   string `json:"tenantId"`
	ProjectID  string `json:"projectId,omitempty"`
	InstanceID string `json:"instanceId"`

	ChatwootAccountID int `json:"chatwootAccountId"`
	InboxID           int `json:"inboxId"`
	ConversationID    int `json:"conversationId"`
	ChatwootMessageID int `json:"chatwootMessageId,omitempty"`

	// ContactKey unites all messages with one counterpart on one channel,
	// e.g. "5511999999999@c.us". It is the unit of queue/lock serialization.
	ContactKey string `json:"contactKey"`

	// ContactName is the counterpart's display name, used when an inbound
	// job has to create the Chatwoot contact.
	ContactName string `json:"contactName,omitempty"`

	// WAMessageID is the provider-side id of the message that produced this
	// job, when it originated on the WhatsApp side.
	WAMessageID string `json:"waMessageId,omitempty"`

	Message OutboundMessage `json:"message"`

	// Resolved storage keys, cached for convenience. Always reproducible
	// from the routing identifiers above.
	QueueKey string `json:"queueKey,omitempty"`
	LockKey  string `json:"lockKey,omitempty"`
}
