// Package uazapi is a client for the UAZAPI WhatsApp provider. Every
// request is authenticated with the per-instance token header.
package uazapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/odanieltavares/whatpro-manager/internal/constants"
	"github.com/odanieltavares/whatpro-manager/internal/models"
)

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: constants.DefaultHTTPTimeoutSec * time.Second},
	}
}

// SendMessage dispatches an outbound payload to the endpoint matching
// its kind and returns the provider message id.
func (c *Client) SendMessage(ctx context.Context, msg *models.OutboundMessage) (string, error) {
	switch msg.Kind {
	case models.MessageKindText:
		return c.sendText(ctx, msg)
	case models.MessageKindReaction:
		return c.sendReaction(ctx, msg)
	case models.MessageKindImage, models.MessageKindAudio, models.MessageKindVideo, models.MessageKindDocument:
		return c.sendMedia(ctx, msg)
	}
	return "", fmt.Errorf("unsupported message kind: %s", msg.Kind)
}

func (c *Client) sendText(ctx context.Context, msg *models.OutboundMessage) (string, error) {
	var resp SendResponse
	err := c.post(ctx, "/send/text", SendTextRequest{
		Number:  msg.Number,
		Text:    msg.Text,
		ReplyID: msg.ReplyToWAMessageID,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.WAMessageID(), nil
}

func (c *Client) sendMedia(ctx context.Context, msg *models.OutboundMessage) (string, error) {
	req := SendMediaRequest{
		Number:  msg.Number,
		Type:    string(msg.Kind),
		File:    msg.MediaURL,
		Text:    msg.Caption,
		ReplyID: msg.ReplyToWAMessageID,
	}
	if msg.Kind == models.MessageKindDocument {
		req.DocName = msg.Filename
	}

	var resp SendResponse
	if err := c.post(ctx, "/send/media", req, &resp); err != nil {
		return "", err
	}
	return resp.WAMessageID(), nil
}

func (c *Client) sendReaction(ctx context.Context, msg *models.OutboundMessage) (string, error) {
	if msg.ReplyToWAMessageID == "" {
		return "", fmt.Errorf("reaction requires a target message id")
	}
	var resp SendResponse
	err := c.post(ctx, "/message/react", ReactRequest{
		Number: msg.Number,
		Text:   msg.ReactionEmoji,
		ID:     msg.ReplyToWAMessageID,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.WAMessageID(), nil
}

func (c *Client) DeleteMessage(ctx context.Context, waMessageID string) error {
	return c.post(ctx, "/message/delete", DeleteRequest{ID: waMessageID}, nil)
}

func (c *Client) RejectCall(ctx context.Context, number, callRef string) error {
	return c.post(ctx, "/call/reject", RejectCallRequest{Number: number, ID: callRef}, nil)
}

// Status reports the instance connection state.
func (c *Client) Status(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/instance/status", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("status request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var status InstanceStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("failed to decode status response: %w", err)
	}
	return status.State(), nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}, out *SendResponse) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request to %s failed with status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if out.Error != "" {
			return fmt.Errorf("provider error: %s", out.Error)
		}
	}
	return nil
}
