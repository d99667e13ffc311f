package uazapi

// SendTextRequest is the payload for POST /send/text.
type SendTextRequest struct {
	Number  string `json:"number"`
	Text    string `json:"text"`
	ReplyID string `json:"replyid,omitempty"`
}

// SendMediaRequest is the payload for POST /send/media. File carries a
// URL; the provider fetches it.
type SendMediaRequest struct {
	Number  string `json:"number"`
	Type    string `json:"type"`
	File    string `json:"file"`
	Text    string `json:"text,omitempty"`
	DocName string `json:"docName,omitempty"`
	ReplyID string `json:"replyid,omitempty"`
}

// ReactRequest is the payload for POST /message/react. Text is the emoji.
type ReactRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
	ID     string `json:"id"`
}

// DeleteRequest is the payload for POST /message/delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// RejectCallRequest is the payload for POST /call/reject.
type RejectCallRequest struct {
	Number string `json:"number"`
	ID     string `json:"id"`
}

// SendResponse is the provider's reply to a send endpoint. The message
// id surfaces under different keys depending on provider version.
type SendResponse struct {
	ID          string `json:"id,omitempty"`
	MessageID   string `json:"messageid,omitempty"`
	IDWithOwner string `json:"id_with_owner,omitempty"`
	Error       string `json:"error,omitempty"`
}

// WAMessageID returns the first populated message id variant.
func (r *SendResponse) WAMessageID() string {
	for _, v := range []string{r.IDWithOwner, r.MessageID, r.ID} {
		if v != "" {
			return v
		}
	}
	return ""
}

// InstanceStatusResponse is the reply to GET /instance/status.
type InstanceStatusResponse struct {
	Instance struct {
		Status string `json:"status"`
	} `json:"instance"`
	Status string `json:"status,omitempty"`
}

// State returns the connection state from either payload shape.
func (r *InstanceStatusResponse) State() string {
	if r.Instance.Status != "" {
		return r.Instance.Status
	}
	return r.Status
}
