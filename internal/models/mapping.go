package models

import "time"

// DeliveryStatus tracks a relayed message through the provider's ack chain.
type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusRead      DeliveryStatus = "read"
	DeliveryStatusError     DeliveryStatus = "error"
)

// MessageMapping cross-references a WhatsApp message id with its Chatwoot
// counterpart. Written once on successful relay, read when resolving
// reply references, status-updated by provider ack events.
type MessageMapping struct {
	ID                int64          `json:"id"`
	TenantID          string         `json:"tenantId"`
	ProjectID         string         `json:"projectId,omitempty"`
	InstanceID        string         `json:"instanceId"`
	Direction         Direction      `json:"direction"`
	ChatwootMessageID int            `json:"chatwootMessageId"`
	WAMessageID       string         `json:"waMessageId"`
	StanzaID          string         `json:"stanzaId,omitempty"`
	MessageKind       MessageKind    `json:"messageType"`
	QueueKey          string         `json:"queueKey,omitempty"`
	Status            DeliveryStatus `json:"status"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}
