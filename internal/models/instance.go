package models

// InstanceStatus is the provider connection state of a device instance.
type InstanceStatus string

const (
	InstanceStatusDisconnected InstanceStatus = "disconnected"
	InstanceStatusConnecting   InstanceStatus = "connecting"
	InstanceStatusConnected    InstanceStatus = "connected"
)

// ChatwootBinding ties a device instance to one Chatwoot account/inbox and
// carries the credentials needed to post into it.
type ChatwootBinding struct {
	AccountID int    `json:"chatwootAccountId"`
	InboxID   int    `json:"inboxId"`
	BaseURL   string `json:"chatwootUrl"`
	UserToken string `json:"chatwootUserToken"`
}

// InstanceBehavior holds per-instance relay policy toggles.
type InstanceBehavior struct {
	GroupsIgnore     bool               `json:"groupsIgnore"`
	AutoRejectCalls  bool               `json:"autoRejectCalls"`
	AutoReplyCalls   bool               `json:"autoReplyCallsEnabled"`
	AutoReplyScripts []AutoReplyMessage `json:"autoReplyCallsMessages,omitempty"`
}

// AutoReplyMessage is one step of a delayed auto-reply sequence.
type AutoReplyMessage struct {
	Text     string `json:"text"`
	DelaySec int    `json:"delaySec"`
}

// Instance is the routing configuration for one WhatsApp device instance.
// The relay core reads it through the ConfigResolver capability; it never
// stores or decrypts provider credentials itself.
type Instance struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenantId"`
	ProjectID string         `json:"projectId,omitempty"`
	Name      string         `json:"name"`
	APIToken  string         `json:"apiToken"`
	BaseURL   string         `json:"baseUrl"`
	Status    InstanceStatus `json:"status"`

	Chatwoot ChatwootBinding  `json:"chatwoot"`
	Behavior InstanceBehavior `json:"behavior"`
}
