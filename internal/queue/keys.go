package queue

import (
	"fmt"

	"github.com/odanieltavares/whatpro-manager/internal/models"
)

// Storage key derivation. Every key kind is a pure function of the routing
// identifiers, so identical inputs always resolve to the identical key set.
// Direction tokens are cw_to_wa (Chatwoot -> WhatsApp) and wa_to_cw
// (WhatsApp -> Chatwoot); provider names never appear in keys.

// OutboundQueueKey returns q:cw_to_wa:acc<accountID>:i<inboxID>:c<contactKey>.
func OutboundQueueKey(accountID, inboxID int, contactKey string) string {
	return fmt.Sprintf("q:%s:acc%d:i%d:c%s", models.DirectionOutbound, accountID, inboxID, contactKey)
}

// InboundQueueKey returns q:wa_to_cw:t<tenantID>:inst<instanceID>:c<contactKey>.
func InboundQueueKey(tenantID, instanceID, contactKey string) string {
	return fmt.Sprintf("q:%s:t%s:inst%s:c%s", models.DirectionInbound, tenantID, instanceID, contactKey)
}

func OutboundLockKey(accountID, inboxID int, contactKey string) string {
	return fmt.Sprintf("lock:%s:acc%d:i%d:c%s", models.DirectionOutbound, accountID, inboxID, contactKey)
}

func InboundLockKey(tenantID, instanceID, contactKey string) string {
	return fmt.Sprintf("lock:%s:t%s:inst%s:c%s", models.DirectionInbound, tenantID, instanceID, contactKey)
}

func OutboundRetryKey(accountID, inboxID int, contactKey string) string {
	return fmt.Sprintf("retry:%s:acc%d:i%d:c%s", models.DirectionOutbound, accountID, inboxID, contactKey)
}

func InboundRetryKey(tenantID, instanceID, contactKey string) string {
	return fmt.Sprintf("retry:%s:t%s:inst%s:c%s", models.DirectionInbound, tenantID, instanceID, contactKey)
}

func OutboundDLQKey(accountID, inboxID int, contactKey string) string {
	return fmt.Sprintf("dlq:%s:acc%d:i%d:c%s", models.DirectionOutbound, accountID, inboxID, contactKey)
}

func InboundDLQKey(tenantID, instanceID, contactKey string) string {
	return fmt.Sprintf("dlq:%s:t%s:inst%s:c%s", models.DirectionInbound, tenantID, instanceID, contactKey)
}

// QueueScanPattern matches every live queue key for one direction. Workers
// use it to discover existing conversations at startup.
func QueueScanPattern(direction models.Direction) string {
	return fmt.Sprintf("q:%s:*", direction)
}

// JobKeys resolves the full key set for a job from its routing identifiers.
type JobKeys struct {
	Queue string
	Lock  string
	Retry string
	DLQ   string
}

// KeysForJob derives the queue/lock/retry/DLQ keys for a job's
// (direction, contactKey) pair.
func KeysForJob(job *models.Job) JobKeys {
	if job.Direction == models.DirectionOutbound {
		return JobKeys{
			Queue: OutboundQueueKey(job.ChatwootAccountID, job.InboxID, job.ContactKey),
			Lock:  OutboundLockKey(job.ChatwootAccountID, job.InboxID, job.ContactKey),
			Retry: OutboundRetryKey(job.ChatwootAccountID, job.InboxID, job.ContactKey),
			DLQ:   OutboundDLQKey(job.ChatwootAccountID, job.InboxID, job.ContactKey),
		}
	}
	return JobKeys{
		Queue: InboundQueueKey(job.TenantID, job.InstanceID, job.ContactKey),
		Lock:  InboundLockKey(job.TenantID, job.InstanceID, job.ContactKey),
		Retry: InboundRetryKey(job.TenantID, job.InstanceID, job.ContactKey),
		DLQ:   InboundDLQKey(job.TenantID, job.InstanceID, job.ContactKey),
	}
}

// InstanceTokenCacheKey caches instance lookups by webhook token.
func InstanceTokenCacheKey(token string) string {
	return "cache:instance:token:" + token
}

// MessageTypeCacheKey caches the message kind per provider message id.
func MessageTypeCacheKey(waMessageID string) string {
	return "mid:type:" + waMessageID
}
