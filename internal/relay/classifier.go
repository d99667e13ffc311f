package relay

import (
	"strings"

	"github.com/odanieltavares/whatpro-manager/internal/constants"
	"github.com/odanieltavares/whatpro-manager/internal/models"
)

// Event classification is pure and total: every raw payload maps to
// exactly one outcome, and no storage is touched here. Queueing side
// effects happen only for outcomes that produce a job, which keeps the
// loop-prevention rules independent of storage state.

// ChatwootOutcome is the classification of a Chatwoot webhook message.
type ChatwootOutcome string

const (
	ChatwootOutcomeText     ChatwootOutcome = "text"
	ChatwootOutcomeMedia    ChatwootOutcome = "media"
	ChatwootOutcomeReaction ChatwootOutcome = "reaction"
	ChatwootOutcomeCommand  ChatwootOutcome = "system_command"
	ChatwootOutcomeDeleted  ChatwootOutcome = "deleted_message"
	ChatwootOutcomeDiscard  ChatwootOutcome = "discard"
)

// ProviderOutcome is the classification of a provider webhook event.
type ProviderOutcome string

const (
	ProviderOutcomeIncoming     ProviderOutcome = "incoming_message"
	ProviderOutcomeStatusUpdate ProviderOutcome = "message_update"
	ProviderOutcomeCall         ProviderOutcome = "call_event"
	ProviderOutcomeDiscard      ProviderOutcome = "discard"
)

// ClassifyChatwootMessage decides what a Chatwoot message becomes. The
// echo-prevention rule runs first: messages synced back from the WhatsApp
// channel itself must never produce a job, or the relay would loop.
func ClassifyChatwootMessage(msg *models.ChatwootMessage) ChatwootOutcome {
	if msg == nil {
		return ChatwootOutcomeDiscard
	}
	if msg.MessageType == models.ChatwootMessageIncoming {
		return ChatwootOutcomeDiscard
	}
	if msg.SenderType != models.ChatwootSenderAgent {
		return ChatwootOutcomeDiscard
	}
	if msg.Private {
		return ChatwootOutcomeDiscard
	}

	content := msg.Content
	if strings.HasPrefix(content, constants.SystemNoteMarker) {
		return ChatwootOutcomeDiscard
	}
	if msg.ContentAttributes != nil && msg.ContentAttributes.Deleted {
		return ChatwootOutcomeDeleted
	}
	if strings.HasPrefix(content, constants.CommandPrefix) {
		return ChatwootOutcomeCommand
	}
	if msg.InReplyTo != 0 && IsEmojiOnly(content) {
		return ChatwootOutcomeReaction
	}
	if len(msg.Attachments) > 0 {
		return ChatwootOutcomeMedia
	}
	if strings.TrimSpace(content) != "" {
		return ChatwootOutcomeText
	}
	return ChatwootOutcomeDiscard
}

// ClassifyProviderEvent decides what a provider webhook event becomes.
// Messages sent through the relay's own API are suppressed so a send is
// never re-ingested as an incoming message.
func ClassifyProviderEvent(ev *models.ProviderEvent) ProviderOutcome {
	if ev == nil {
		return ProviderOutcomeDiscard
	}

	eventType := ev.EffectiveType()

	if eventType == models.ProviderEventMessages && ev.FirstMessage() != nil {
		if msg := ev.FirstMessage(); msg.WasSentByAPI || msg.FromMe {
			return ProviderOutcomeDiscard
		}
		return ProviderOutcomeIncoming
	}

	updateType := ""
	if ev.Update != nil {
		updateType = ev.Update.EventType
	}
	if eventType == models.ProviderEventMessagesUpdate || updateType == models.ProviderUpdateMessageStatus {
		if discardStates[ev.EffectiveState()] {
			return ProviderOutcomeDiscard
		}
		return ProviderOutcomeStatusUpdate
	}

	switch strings.ToLower(eventType) {
	case "call", "voip":
		return ProviderOutcomeCall
	}

	// Presence and every unrecognized type are irrelevant to the relay.
	return ProviderOutcomeDiscard
}

// discardStates are provider ack states that never affect a relayed
// message's delivery status.
var discardStates = map[string]bool{
	"played-self":    true,
	"inactive":       true,
	"sender":         true,
	"peer_msg":       true,
	"retry":          true,
	"FileDownloaded": true,
}

// MapProviderState translates a provider ack state into a delivery
// status. ok is false for states with no mapping.
func MapProviderState(state string) (models.DeliveryStatus, bool) {
	switch state {
	case "sent", "server_ack":
		return models.DeliveryStatusSent, true
	case "delivered":
		return models.DeliveryStatusDelivered, true
	case "read", "played":
		return models.DeliveryStatusRead, true
	case "error", "failed":
		return models.DeliveryStatusError, true
	}
	return "", false
}

// DetectMediaKind maps an attachment content type onto an outbound
// message kind. Anything unrecognized ships as a document.
func DetectMediaKind(contentType string) models.MessageKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MessageKindImage
	case strings.HasPrefix(contentType, "audio/"):
		return models.MessageKindAudio
	case strings.HasPrefix(contentType, "video/"):
		return models.MessageKindVideo
	}
	return models.MessageKindDocument
}

// IsEmojiOnly reports whether the trimmed text is a short emoji-only
// sequence, the shape Chatwoot agents use to react to a message.
func IsEmojiOnly(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	visible := 0
	for _, r := range trimmed {
		switch {
		case r == 0x200D || r == 0xFE0F: // joiner / variation selector
			continue
		case isEmojiRune(r):
			visible++
		default:
			return false
		}
	}
	return visible > 0 && visible <= constants.MaxReactionLength
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, transport, supplemental
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows, stars
		return true
	case r == 0x2764 || r == 0x20E3: // heavy heart, keycap
		return true
	}
	return false
}

// BuildOutboundMessage turns a classified Chatwoot message into the
// outbound payload DTO. replyToWAMessageID is "" when the message has no
// resolvable reply reference.
func BuildOutboundMessage(msg *models.ChatwootMessage, phone string, outcome ChatwootOutcome, replyToWAMessageID string) models.OutboundMessage {
	if outcome == ChatwootOutcomeReaction {
		return models.OutboundMessage{
			Kind:               models.MessageKindReaction,
			Number:             phone,
			ReactionEmoji:      strings.TrimSpace(msg.Content),
			ReplyToWAMessageID: replyToWAMessageID,
		}
	}

	if outcome == ChatwootOutcomeMedia && len(msg.Attachments) > 0 {
		attachment := msg.Attachments[0]
		mediaURL := attachment.DataURL
		if mediaURL == "" {
			mediaURL = attachment.DownloadURL
		}
		return models.OutboundMessage{
			Kind:               DetectMediaKind(attachment.ContentType),
			Number:             phone,
			MediaURL:           mediaURL,
			Caption:            msg.Content,
			MimeType:           attachment.ContentType,
			Filename:           attachment.Filename,
			ReplyToWAMessageID: replyToWAMessageID,
		}
	}

	return models.OutboundMessage{
		Kind:               models.MessageKindText,
		Number:             phone,
		Text:               msg.Content,
		ReplyToWAMessageID: replyToWAMessageID,
	}
}
