package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/odanieltavares/whatpro-manager/internal/models"
)

func (d *Database) SaveMapping(ctx context.Context, mapping *models.MessageMapping) error {
	now := time.Now().UTC()
	createdAt := mapping.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := mapping.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	result, err := d.db.ExecContext(ctx, insertMessageMappingQuery,
		mapping.TenantID,
		mapping.ProjectID,
		mapping.InstanceID,
		string(mapping.Direction),
		mapping.ChatwootMessageID,
		mapping.WAMessageID,
		mapping.StanzaID,
		string(mapping.MessageKind),
		mapping.QueueKey,
		string(mapping.Status),
		createdAt,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save message mapping: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		mapping.ID = id
	}
	return nil
}

func (d *Database) MappingByChatwootID(ctx context.Context, chatwootMessageID int) (*models.MessageMapping, error) {
	return d.scanMapping(d.db.QueryRowContext(ctx, selectMappingByChatwootIDQuery, chatwootMessageID))
}

func (d *Database) MappingByWAMessageID(ctx context.Context, waMessageID string) (*models.MessageMapping, error) {
	return d.scanMapping(d.db.QueryRowContext(ctx, selectMappingByWAMessageIDQuery, waMessageID))
}

// UpdateMappingStatus advances the delivery status of every mapping for
// one WhatsApp message id. Returns false when no mapping matched.
func (d *Database) UpdateMappingStatus(ctx context.Context, waMessageID string, status models.DeliveryStatus) (bool, error) {
	result, err := d.db.ExecContext(ctx, updateMappingStatusQuery,
		string(status), time.Now().UTC(), waMessageID)
	if err != nil {
		return false, fmt.Errorf("failed to update delivery status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// CleanupOldMappings deletes mappings older than the retention window.
func (d *Database) CleanupOldMappings(ctx context.Context, retentionDays int) (int64, error) {
	result, err := d.db.ExecContext(ctx, deleteOldMappingsQuery, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old mappings: %w", err)
	}
	return result.RowsAffected()
}

func (d *Database) scanMapping(row *sql.Row) (*models.MessageMapping, error) {
	var m models.MessageMapping
	var direction, kind, status string
	err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.ProjectID,
		&m.InstanceID,
		&direction,
		&m.ChatwootMessageID,
		&m.WAMessageID,
		&m.StanzaID,
		&kind,
		&m.QueueKey,
		&status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message mapping: %w", err)
	}
	m.Direction = models.Direction(direction)
	m.MessageKind = models.MessageKind(kind)
	m.Status = models.DeliveryStatus(status)
	return &m, nil
}
