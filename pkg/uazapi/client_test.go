package uazapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odanieltavares/whatpro-manager/internal/models"
)

type recordedRequest struct {
	path  string
	token string
	body  map[string]interface{}
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		requests = append(requests, recordedRequest{
			path:  r.URL.Path,
			token: r.Header.Get("token"),
			body:  body,
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestSendText(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{"id": "wa-123"}`)
	client := NewClient(server.URL, "tok-abc")

	id, err := client.SendMessage(context.Background(), &models.OutboundMessage{
		Kind:   models.MessageKindText,
		Number: "5511999990000",
		Text:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "wa-123", id)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "/send/text", req.path)
	assert.Equal(t, "tok-abc", req.token)
	assert.Equal(t, "5511999990000", req.body["number"])
	assert.Equal(t, "hello", req.body["text"])
}

func TestSendTextWithReply(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{"id": "wa-124"}`)
	client := NewClient(server.URL, "tok-abc")

	_, err := client.SendMessage(context.Background(), &models.OutboundMessage{
		Kind:               models.MessageKindText,
		Number:             "5511999990000",
		Text:               "replying",
		ReplyToWAMessageID: "wa-orig",
	})
	require.NoError(t, err)
	assert.Equal(t, "wa-orig", (*requests)[0].body["replyid"])
}

func TestSendMediaDocument(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{"messageid": "wa-200"}`)
	client := NewClient(server.URL, "tok-abc")

	id, err := client.SendMessage(context.Background(), &models.OutboundMessage{
		Kind:     models.MessageKindDocument,
		Number:   "5511999990000",
		MediaURL: "https://cw/report.pdf",
		Caption:  "the report",
		Filename: "report.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "wa-200", id)

	req := (*requests)[0]
	assert.Equal(t, "/send/media", req.path)
	assert.Equal(t, "document", req.body["type"])
	assert.Equal(t, "https://cw/report.pdf", req.body["file"])
	assert.Equal(t, "report.pdf", req.body["docName"])
}

func TestSendReaction(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{"id": "wa-300"}`)
	client := NewClient(server.URL, "tok-abc")

	_, err := client.SendMessage(context.Background(), &models.OutboundMessage{
		Kind:               models.MessageKindReaction,
		Number:             "5511999990000",
		ReactionEmoji:      "\U0001F44D",
		ReplyToWAMessageID: "wa-target",
	})
	require.NoError(t, err)

	req := (*requests)[0]
	assert.Equal(t, "/message/react", req.path)
	assert.Equal(t, "wa-target", req.body["id"])
	assert.Equal(t, "\U0001F44D", req.body["text"])
}

func TestSendReactionWithoutTarget(t *testing.T) {
	client := NewClient("http://unused", "tok-abc")
	_, err := client.SendMessage(context.Background(), &models.OutboundMessage{
		Kind:          models.MessageKindReaction,
		Number:        "5511999990000",
		ReactionEmoji: "\U0001F44D",
	})
	assert.Error(t, err)
}

func TestSendUnsupportedKind(t *testing.T) {
	client := NewClient("http://unused", "tok-abc")
	_, err := client.SendMessage(context.Background(), &models.OutboundMessage{Kind: "sticker"})
	assert.Error(t, err)
}

func TestSendServerError(t *testing.T) {
	server, _ := newTestServer(t, http.StatusBadGateway, `gateway down`)
	client := NewClient(server.URL, "tok-abc")

	_, err := client.SendMessage(context.Background(), &models.OutboundMessage{
		Kind:   models.MessageKindText,
		Number: "5511999990000",
		Text:   "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSendProviderErrorField(t *testing.T) {
	server, _ := newTestServer(t, http.StatusOK, `{"error": "number not on whatsapp"}`)
	client := NewClient(server.URL, "tok-abc")

	_, err := client.SendMessage(context.Background(), &models.OutboundMessage{
		Kind:   models.MessageKindText,
		Number: "000",
		Text:   "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "number not on whatsapp")
}

func TestRejectCall(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{}`)
	client := NewClient(server.URL, "tok-abc")

	require.NoError(t, client.RejectCall(context.Background(), "5511999990000", "call-1"))
	req := (*requests)[0]
	assert.Equal(t, "/call/reject", req.path)
	assert.Equal(t, "call-1", req.body["id"])
	assert.Equal(t, "5511999990000", req.body["number"])
}

func TestDeleteMessage(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{}`)
	client := NewClient(server.URL, "tok-abc")

	require.NoError(t, client.DeleteMessage(context.Background(), "wa-55"))
	assert.Equal(t, "/message/delete", (*requests)[0].path)
	assert.Equal(t, "wa-55", (*requests)[0].body["id"])
}

func TestStatus(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{"instance": {"status": "connected"}}`)
	client := NewClient(server.URL, "tok-abc")

	state, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "connected", state)
	assert.Equal(t, "/instance/status", (*requests)[0].path)
	assert.Equal(t, "tok-abc", (*requests)[0].token)
}

func TestWAMessageIDPreference(t *testing.T) {
	resp := &SendResponse{ID: "plain", MessageID: "msgid", IDWithOwner: "owner:plain"}
	assert.Equal(t, "owner:plain", resp.WAMessageID())

	resp = &SendResponse{ID: "plain"}
	assert.Equal(t, "plain", resp.WAMessageID())

	assert.Empty(t, (&SendResponse{}).WAMessageID())
}
