package models

// Chatwoot webhook event names
const (
	ChatwootEventMessageCreated = "message_created"
	ChatwootEventMessageUpdated = "message_updated"
)

// Chatwoot message_type values
const (
	ChatwootMessageIncoming = "incoming"
	ChatwootMessageOutgoing = "outgoing"
)

// ChatwootSenderAgent is the sender_type of a human agent.
const ChatwootSenderAgent = "User"

type ChatwootAttachment struct {
	ID          int    `json:"id"`
	ContentType string `json:"content_type"`
	DataURL     string `json:"data_url"`
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename,omitempty"`
}

type ChatwootContentAttributes struct {
	Deleted bool `json:"deleted"`
}

type ChatwootMessage struct {
	ID                int                        `json:"id"`
	Content           string                     `json:"content"`
	MessageType       string                     `json:"message_type"`
	SenderType        string                     `json:"sender_type"`
	Private           bool                       `json:"private"`
	InReplyTo         int                        `json:"in_reply_to,omitempty"`
	Attachments       []ChatwootAttachment       `json:"attachments,omitempty"`
	ContentAttributes *ChatwootContentAttributes `json:"content_attributes,omitempty"`
}

type ChatwootContactInbox struct {
	SourceID string `json:"source_id"`
}

type ChatwootSender struct {
	ID                   int    `json:"id"`
	Name                 string `json:"name,omitempty"`
	PhoneNumber          string `json:"phone_number,omitempty"`
	AdditionalAttributes struct {
		ContactInbox *ChatwootContactInbox `json:"contact_inbox,omitempty"`
	} `json:"additional_attributes"`
}

type ChatwootConversation struct {
	ID      int    `json:"id"`
	InboxID int    `json:"inbox_id"`
	Status  string `json:"status"`
	Meta    struct {
		Sender *ChatwootSender `json:"sender,omitempty"`
	} `json:"meta"`
}

// ChatwootWebhook is the raw payload posted by Chatwoot. All nested parts
// are optional; consumers must check presence before use.
type ChatwootWebhook struct {
	Event string `json:"event"`
	Data  struct {
		Message      *ChatwootMessage      `json:"message,omitempty"`
		Conversation *ChatwootConversation `json:"conversation,omitempty"`
		Account      *struct {
			ID int `json:"id"`
		} `json:"account,omitempty"`
	} `json:"data"`
}

// Provider webhook event type tokens
const (
	ProviderEventMessages       = "messages"
	ProviderEventMessagesUpdate = "messages.update"
	ProviderEventPresence       = "presence"
	ProviderUpdateMessageStatus = "messageStatus"
)

type ProviderMessage struct {
	ID           string `json:"id"`
	IDWithOwner  string `json:"id_with_owner,omitempty"`
	StanzaID     string `json:"stanza_id,omitempty"`
	ChatID       string `json:"chatId,omitempty"`
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
	FromMe       bool   `json:"fromMe"`
	PushName     string `json:"pushName,omitempty"`
	IsGroup      bool   `json:"isGroup"`
	WasSentByAPI bool   `json:"wasSentByApi"`
	Type         string `json:"type,omitempty"`
	Body         string `json:"body,omitempty"`
	Text         string `json:"text,omitempty"`
	Caption      string `json:"caption,omitempty"`
	MediaURL     string `json:"mediaUrl,omitempty"`
	MimeType     string `json:"mimetype,omitempty"`
	Filename     string `json:"filename,omitempty"`
}

type ProviderUpdate struct {
	EventType string `json:"eventType,omitempty"`
	Status    string `json:"status,omitempty"`
	Key       struct {
		ID string `json:"id,omitempty"`
	} `json:"key"`
	Message *ProviderMessage `json:"message,omitempty"`
}

// ProviderCall carries the fields the provider spreads over several call
// payload shapes. Accessors below pick the first populated variant.
type ProviderCall struct {
	ID             string `json:"id,omitempty"`
	CallID         string `json:"callId,omitempty"`
	CallIDAlt      string `json:"CallID,omitempty"`
	From           string `json:"from,omitempty"`
	FromAlt        string `json:"From,omitempty"`
	Caller         string `json:"caller,omitempty"`
	CallCreator    string `json:"CallCreator,omitempty"`
	CallCreatorAlt string `json:"CallCreatorAlt,omitempty"`
}

// Origin returns the first populated caller identifier, or "".
func (c *ProviderCall) Origin() string {
	for _, v := range []string{c.From, c.FromAlt, c.Caller, c.CallCreator, c.CallCreatorAlt} {
		if v != "" {
			return v
		}
	}
	return ""
}

// CallRef returns the first populated call identifier, or "".
func (c *ProviderCall) CallRef() string {
	for _, v := range []string{c.ID, c.CallID, c.CallIDAlt} {
		if v != "" {
			return v
		}
	}
	return ""
}

// ProviderEvent is the raw payload posted by the WhatsApp provider. The
// provider emits both "EventType" and "type" depending on event family,
// so both are modelled; EffectiveType merges them.
type ProviderEvent struct {
	EventType string            `json:"EventType,omitempty"`
	Type      string            `json:"type,omitempty"`
	State     string            `json:"state,omitempty"`
	Message   *ProviderMessage  `json:"message,omitempty"`
	Messages  []ProviderMessage `json:"messages,omitempty"`
	Update    *ProviderUpdate   `json:"update,omitempty"`
	Call      *ProviderCall     `json:"call,omitempty"`
	Data      *ProviderCall     `json:"data,omitempty"`
}

// EffectiveType returns EventType if set, otherwise the legacy "type" field.
func (e *ProviderEvent) EffectiveType() string {
	if e.EventType != "" {
		return e.EventType
	}
	return e.Type
}

// EffectiveState returns the ack state, falling back to the status field
// inside the update body when the top-level state is absent.
func (e *ProviderEvent) EffectiveState() string {
	if e.State != "" {
		return e.State
	}
	if e.Update != nil {
		return e.Update.Status
	}
	return ""
}

// FirstMessage returns the event's message from either payload shape.
func (e *ProviderEvent) FirstMessage() *ProviderMessage {
	if e.Message != nil {
		return e.Message
	}
	if len(e.Messages) > 0 {
		return &e.Messages[0]
	}
	if e.Update != nil && e.Update.Message != nil {
		return e.Update.Message
	}
	return nil
}

// CallPayload returns the call body from either payload shape.
func (e *ProviderEvent) CallPayload() *ProviderCall {
	if e.Call != nil {
		return e.Call
	}
	return e.Data
}

// WAMessageID returns the provider message id, preferring the owner-scoped
// form, falling back to the ack key id for status updates.
func (m *ProviderMessage) WAMessageID() string {
	if m.IDWithOwner != "" {
		return m.IDWithOwner
	}
	return m.ID
}

// ChatKey returns the conversation identifier of the message.
func (m *ProviderMessage) ChatKey() string {
	for _, v := range []string{m.ChatID, m.From, m.To} {
		if v != "" {
			return v
		}
	}
	return ""
}

// TextContent returns whichever text-bearing field is populated.
func (m *ProviderMessage) TextContent() string {
	for _, v := range []string{m.Body, m.Text, m.Caption} {
		if v != "" {
			return v
		}
	}
	return ""
}
