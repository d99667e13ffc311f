package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odanieltavares/whatpro-manager/internal/models"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "whatpro-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func TestNewInvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("\x00bad")
	assert.Error(t, err)
}

func testMapping(waMessageID string, chatwootMessageID int) *models.MessageMapping {
	return &models.MessageMapping{
		TenantID:          "t1",
		InstanceID:        "inst-1",
		Direction:         models.DirectionOutbound,
		ChatwootMessageID: chatwootMessageID,
		WAMessageID:       waMessageID,
		MessageKind:       models.MessageKindText,
		QueueKey:          "q:cw_to_wa:acc7:i3:c5511999990000",
		Status:            models.DeliveryStatusSent,
	}
}

func TestSaveAndLookupMapping(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mapping := testMapping("wa-100", 500)
	require.NoError(t, db.SaveMapping(ctx, mapping))
	assert.NotZero(t, mapping.ID)

	byCW, err := db.MappingByChatwootID(ctx, 500)
	require.NoError(t, err)
	require.NotNil(t, byCW)
	assert.Equal(t, "wa-100", byCW.WAMessageID)
	assert.Equal(t, models.DirectionOutbound, byCW.Direction)
	assert.Equal(t, models.DeliveryStatusSent, byCW.Status)

	byWA, err := db.MappingByWAMessageID(ctx, "wa-100")
	require.NoError(t, err)
	require.NotNil(t, byWA)
	assert.Equal(t, 500, byWA.ChatwootMessageID)
}

func TestMappingLookupMiss(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mapping, err := db.MappingByChatwootID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, mapping)

	mapping, err = db.MappingByWAMessageID(ctx, "wa-missing")
	require.NoError(t, err)
	assert.Nil(t, mapping)
}

func TestUpdateMappingStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveMapping(ctx, testMapping("wa-200", 600)))

	updated, err := db.UpdateMappingStatus(ctx, "wa-200", models.DeliveryStatusRead)
	require.NoError(t, err)
	assert.True(t, updated)

	mapping, err := db.MappingByWAMessageID(ctx, "wa-200")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusRead, mapping.Status)

	updated, err = db.UpdateMappingStatus(ctx, "wa-nobody", models.DeliveryStatusRead)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestCleanupOldMappings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	old := testMapping("wa-old", 700)
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -40)
	old.UpdatedAt = old.CreatedAt
	require.NoError(t, db.SaveMapping(ctx, old))
	require.NoError(t, db.SaveMapping(ctx, testMapping("wa-new", 701)))

	deleted, err := db.CleanupOldMappings(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := db.MappingByWAMessageID(ctx, "wa-new")
	require.NoError(t, err)
	assert.NotNil(t, remaining)
}

func TestExecutionLogRecordAndList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	log := NewExecutionLog(db, logger)

	log.Record(ctx, &models.ExecutionRecord{
		Direction: models.DirectionOutbound,
		TenantID:  "t1",
		Status:    models.ExecutionStatusOK,
	})
	log.Record(ctx, &models.ExecutionRecord{
		Direction:    models.DirectionOutbound,
		TenantID:     "t1",
		Status:       models.ExecutionStatusRetry,
		ErrorSummary: "provider timeout",
	})
	log.Record(ctx, &models.ExecutionRecord{
		Direction: models.DirectionInbound,
		TenantID:  "t2",
		Status:    models.ExecutionStatusError,
	})

	all, err := log.RecentExecutions(ctx, models.ExecutionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// newest first
	assert.Equal(t, models.ExecutionStatusError, all[0].Status)

	byTenant, err := log.RecentExecutions(ctx, models.ExecutionFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Len(t, byTenant, 2)

	byStatus, err := log.RecentExecutions(ctx, models.ExecutionFilter{Status: models.ExecutionStatusRetry})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "provider timeout", byStatus[0].ErrorSummary)

	byDirection, err := log.RecentExecutions(ctx, models.ExecutionFilter{Direction: models.DirectionInbound})
	require.NoError(t, err)
	assert.Len(t, byDirection, 1)
}

func TestExecutionLogCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	log := NewExecutionLog(db, logger)

	for i := 0; i < 3; i++ {
		log.Record(ctx, &models.ExecutionRecord{Direction: models.DirectionOutbound, TenantID: "t1", Status: models.ExecutionStatusOK})
	}
	log.Record(ctx, &models.ExecutionRecord{Direction: models.DirectionOutbound, TenantID: "t1", Status: models.ExecutionStatusDLQ})

	counts, err := log.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.OK)
	assert.Equal(t, int64(1), counts.DLQ)
	assert.Zero(t, counts.Retry)
}

func testInstance() *models.Instance {
	return &models.Instance{
		ID:       "inst-1",
		TenantID: "t1",
		Name:     "support-line",
		APIToken: "tok-abc",
		BaseURL:  "https://wa.example.com",
		Status:   models.InstanceStatusConnected,
		Chatwoot: models.ChatwootBinding{
			AccountID: 7,
			InboxID:   3,
			BaseURL:   "https://cw.example.com",
			UserToken: "cw-tok",
		},
		Behavior: models.InstanceBehavior{
			GroupsIgnore:    true,
			AutoRejectCalls: true,
			AutoReplyCalls:  true,
			AutoReplyScripts: []models.AutoReplyMessage{
				{Text: "we do not take calls", DelaySec: 5},
			},
		},
	}
}

func TestSaveAndLookupInstance(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveInstance(ctx, testInstance()))

	byID, err := db.InstanceByID(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "support-line", byID.Name)
	assert.True(t, byID.Behavior.GroupsIgnore)
	require.Len(t, byID.Behavior.AutoReplyScripts, 1)
	assert.Equal(t, 5, byID.Behavior.AutoReplyScripts[0].DelaySec)

	byToken, err := db.InstanceByToken(ctx, "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, "inst-1", byToken.ID)

	byInbox, err := db.InstanceByInbox(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, "inst-1", byInbox.ID)
}

func TestInstanceNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.InstanceByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInstanceNotFound)

	_, err = db.InstanceByToken(context.Background(), "tok-nope")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestSaveInstanceUpsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	instance := testInstance()
	require.NoError(t, db.SaveInstance(ctx, instance))

	instance.Name = "renamed-line"
	instance.Status = models.InstanceStatusDisconnected
	require.NoError(t, db.SaveInstance(ctx, instance))

	saved, err := db.InstanceByID(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed-line", saved.Name)
	assert.Equal(t, models.InstanceStatusDisconnected, saved.Status)
}
