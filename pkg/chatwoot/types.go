package chatwoot

// Contact is the subset of a Chatwoot contact the relay touches.
type Contact struct {
	ID             int    `json:"id"`
	Name           string `json:"name,omitempty"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	ContactInboxes []struct {
		SourceID string `json:"source_id"`
		Inbox    struct {
			ID int `json:"id"`
		} `json:"inbox"`
	} `json:"contact_inboxes,omitempty"`
}

type contactSearchResponse struct {
	Payload []Contact `json:"payload"`
}

type contactCreateResponse struct {
	Payload struct {
		Contact      Contact `json:"contact"`
		ContactInbox struct {
			SourceID string `json:"source_id"`
		} `json:"contact_inbox"`
	} `json:"payload"`
}

// Conversation is the subset of a Chatwoot conversation the relay touches.
type Conversation struct {
	ID      int    `json:"id"`
	InboxID int    `json:"inbox_id"`
	Status  string `json:"status"`
}

type conversationListResponse struct {
	Payload []Conversation `json:"payload"`
}

type createContactRequest struct {
	InboxID     int    `json:"inbox_id"`
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phone_number"`
}

type createConversationRequest struct {
	SourceID  string `json:"source_id"`
	InboxID   int    `json:"inbox_id"`
	ContactID int    `json:"contact_id"`
}

type createMessageRequest struct {
	Content     string              `json:"content"`
	MessageType string              `json:"message_type"`
	Private     bool                `json:"private,omitempty"`
	Attachments []messageAttachment `json:"attachments,omitempty"`
}

type messageAttachment struct {
	ExternalURL string `json:"external_url"`
	FileType    string `json:"file_type,omitempty"`
}

// Message is the created-message response.
type Message struct {
	ID int `json:"id"`
}

type toggleStatusRequest struct {
	Status string `json:"status"`
}
