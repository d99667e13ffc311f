package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	messageTypeIncoming = "incoming"
	messageTypeOutgoing = "outgoing"

	defaultTimeout = 30 * time.Second
)

// Client talks to a single Chatwoot account through its application API.
type Client struct {
	baseURL    string
	userToken  string
	httpClient *http.Client
}

func NewClient(baseURL, userToken string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userToken: userToken,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// EnsureContact finds a contact by phone number or creates one on the given
// inbox. It returns the contact ID and the source ID tying the contact to the
// inbox.
func (c *Client) EnsureContact(ctx context.Context, accountID, inboxID int, phone, name string) (int, string, error) {
	normalized := phone
	if !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}

	searchPath := fmt.Sprintf("/api/v1/accounts/%d/contacts/search?q=%s", accountID, url.QueryEscape(normalized))
	var search contactSearchResponse
	if err := c.do(ctx, http.MethodGet, searchPath, nil, &search); err != nil {
		return 0, "", fmt.Errorf("failed to search contacts: %w", err)
	}

	for _, contact := range search.Payload {
		if contact.PhoneNumber != normalized {
			continue
		}
		for _, ci := range contact.ContactInboxes {
			if ci.Inbox.ID == inboxID {
				return contact.ID, ci.SourceID, nil
			}
		}
	}

	displayName := name
	if displayName == "" {
		displayName = normalized
	}
	req := createContactRequest{
		InboxID:     inboxID,
		Name:        displayName,
		PhoneNumber: normalized,
	}
	var created contactCreateResponse
	createPath := fmt.Sprintf("/api/v1/accounts/%d/contacts", accountID)
	if err := c.do(ctx, http.MethodPost, createPath, req, &created); err != nil {
		return 0, "", fmt.Errorf("failed to create contact: %w", err)
	}

	return created.Payload.Contact.ID, created.Payload.ContactInbox.SourceID, nil
}

// EnsureConversation reuses the contact's conversation on the inbox when one
// exists, otherwise it opens a new one. It returns the conversation ID and its
// current status so the caller can decide whether to reopen it.
func (c *Client) EnsureConversation(ctx context.Context, accountID, inboxID, contactID int, sourceID string) (int, string, error) {
	listPath := fmt.Sprintf("/api/v1/accounts/%d/contacts/%d/conversations", accountID, contactID)
	var list conversationListResponse
	if err := c.do(ctx, http.MethodGet, listPath, nil, &list); err != nil {
		return 0, "", fmt.Errorf("failed to list conversations: %w", err)
	}

	for _, conv := range list.Payload {
		if conv.InboxID == inboxID {
			return conv.ID, conv.Status, nil
		}
	}

	req := createConversationRequest{
		SourceID:  sourceID,
		InboxID:   inboxID,
		ContactID: contactID,
	}
	var created Conversation
	createPath := fmt.Sprintf("/api/v1/accounts/%d/conversations", accountID)
	if err := c.do(ctx, http.MethodPost, createPath, req, &created); err != nil {
		return 0, "", fmt.Errorf("failed to create conversation: %w", err)
	}

	return created.ID, created.Status, nil
}

// CreateMessage posts a text message on the conversation. Incoming messages
// render as sent by the contact, outgoing as sent by the agent.
func (c *Client) CreateMessage(ctx context.Context, accountID, conversationID int, content string, incoming bool) (int, error) {
	req := createMessageRequest{
		Content:     content,
		MessageType: messageType(incoming),
	}
	return c.postMessage(ctx, accountID, conversationID, req)
}

// CreateAttachmentMessage posts a message referencing externally hosted media.
func (c *Client) CreateAttachmentMessage(ctx context.Context, accountID, conversationID int, caption, mediaURL, mimeType string, incoming bool) (int, error) {
	req := createMessageRequest{
		Content:     caption,
		MessageType: messageType(incoming),
		Attachments: []messageAttachment{
			{
				ExternalURL: mediaURL,
				FileType:    attachmentFileType(mimeType),
			},
		},
	}
	return c.postMessage(ctx, accountID, conversationID, req)
}

// CreatePrivateNote posts an agent-only note on the conversation.
func (c *Client) CreatePrivateNote(ctx context.Context, accountID, conversationID int, content string) error {
	req := createMessageRequest{
		Content:     content,
		MessageType: messageTypeOutgoing,
		Private:     true,
	}
	_, err := c.postMessage(ctx, accountID, conversationID, req)
	return err
}

// ReopenConversation flips a resolved conversation back to open.
func (c *Client) ReopenConversation(ctx context.Context, accountID, conversationID int) error {
	path := fmt.Sprintf("/api/v1/accounts/%d/conversations/%d/toggle_status", accountID, conversationID)
	if err := c.do(ctx, http.MethodPost, path, toggleStatusRequest{Status: "open"}, nil); err != nil {
		return fmt.Errorf("failed to reopen conversation: %w", err)
	}
	return nil
}

func (c *Client) postMessage(ctx context.Context, accountID, conversationID int, req createMessageRequest) (int, error) {
	path := fmt.Sprintf("/api/v1/accounts/%d/conversations/%d/messages", accountID, conversationID)
	var created Message
	if err := c.do(ctx, http.MethodPost, path, req, &created); err != nil {
		return 0, fmt.Errorf("failed to create message: %w", err)
	}
	return created.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api_access_token", c.userToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("chatwoot returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func messageType(incoming bool) string {
	if incoming {
		return messageTypeIncoming
	}
	return messageTypeOutgoing
}

func attachmentFileType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	default:
		return "file"
	}
}
