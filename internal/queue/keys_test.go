package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odanieltavares/whatpro-manager/internal/models"
)

func TestKeyDerivation(t *testing.T) {
	assert.Equal(t, "q:cw_to_wa:acc7:i12:c5511999999999@c.us", OutboundQueueKey(7, 12, "5511999999999@c.us"))
	assert.Equal(t, "lock:cw_to_wa:acc7:i12:c5511999999999@c.us", OutboundLockKey(7, 12, "5511999999999@c.us"))
	assert.Equal(t, "retry:cw_to_wa:acc7:i12:c5511999999999@c.us", OutboundRetryKey(7, 12, "5511999999999@c.us"))
	assert.Equal(t, "dlq:cw_to_wa:acc7:i12:c5511999999999@c.us", OutboundDLQKey(7, 12, "5511999999999@c.us"))

	assert.Equal(t, "q:wa_to_cw:tten-1:instinst-1:c5511999999999@c.us", InboundQueueKey("ten-1", "inst-1", "5511999999999@c.us"))
	assert.Equal(t, "lock:wa_to_cw:tten-1:instinst-1:c5511999999999@c.us", InboundLockKey("ten-1", "inst-1", "5511999999999@c.us"))
}

func TestKeyDerivationDeterministic(t *testing.T) {
	// Identical routing identifiers must always resolve to identical keys;
	// the single-lock-per-conversation invariant depends on it.
	a := OutboundQueueKey(3, 9, "111@c.us")
	b := OutboundQueueKey(3, 9, "111@c.us")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, OutboundQueueKey(3, 9, "222@c.us"))
	assert.NotEqual(t, a, InboundQueueKey("3", "9", "111@c.us"))
}

func TestKeysForJob(t *testing.T) {
	outbound := &models.Job{
		Direction:         models.DirectionOutbound,
		ChatwootAccountID: 4,
		InboxID:           8,
		ContactKey:        "555@c.us",
		TenantID:          "ten-1",
		InstanceID:        "inst-1",
	}
	keys := KeysForJob(outbound)
	assert.Equal(t, OutboundQueueKey(4, 8, "555@c.us"), keys.Queue)
	assert.Equal(t, OutboundLockKey(4, 8, "555@c.us"), keys.Lock)
	assert.Equal(t, OutboundRetryKey(4, 8, "555@c.us"), keys.Retry)
	assert.Equal(t, OutboundDLQKey(4, 8, "555@c.us"), keys.DLQ)

	inbound := &models.Job{
		Direction:  models.DirectionInbound,
		TenantID:   "ten-1",
		InstanceID: "inst-1",
		ContactKey: "555@c.us",
	}
	keys = KeysForJob(inbound)
	assert.Equal(t, InboundQueueKey("ten-1", "inst-1", "555@c.us"), keys.Queue)
	assert.Equal(t, InboundDLQKey("ten-1", "inst-1", "555@c.us"), keys.DLQ)
}

func TestQueueScanPattern(t *testing.T) {
	assert.Equal(t, "q:wa_to_cw:*", QueueScanPattern(models.DirectionInbound))
	assert.Equal(t, "q:cw_to_wa:*", QueueScanPattern(models.DirectionOutbound))
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "cache:instance:token:tok-1", InstanceTokenCacheKey("tok-1"))
	assert.Equal(t, "mid:type:ABC123", MessageTypeCacheKey("ABC123"))
}
