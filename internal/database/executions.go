package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/constants"
	"github.com/odanieltavares/whatpro-manager/internal/models"
)

// ExecutionLog is the append-only job outcome audit. Record satisfies
// relay.ExecutionSink: writes are best-effort and never fail the relay
// path, they only log.
type ExecutionLog struct {
	db     *Database
	logger *logrus.Logger
}

func NewExecutionLog(db *Database, logger *logrus.Logger) *ExecutionLog {
	return &ExecutionLog{db: db, logger: logger}
}

func (l *ExecutionLog) Record(ctx context.Context, rec *models.ExecutionRecord) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := l.db.db.ExecContext(ctx, insertExecutionQuery,
		string(rec.Direction),
		rec.TenantID,
		rec.ProjectID,
		rec.InstanceID,
		rec.ContactKey,
		rec.QueueKey,
		string(rec.Status),
		rec.ErrorSummary,
		rec.PayloadSummary,
		createdAt,
	)
	if err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"status":   rec.Status,
			"queueKey": rec.QueueKey,
		}).Warn("Execution log write failed")
	}
}

// RecentExecutions lists execution records newest first, optionally
// filtered by tenant, direction, and status.
func (l *ExecutionLog) RecentExecutions(ctx context.Context, filter models.ExecutionFilter) ([]*models.ExecutionRecord, error) {
	query := selectRecentExecutionsQuery
	var conditions []string
	var args []interface{}

	if filter.TenantID != "" {
		conditions = append(conditions, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.Direction != "" {
		conditions = append(conditions, "direction = ?")
		args = append(args, string(filter.Direction))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	limit := filter.Limit
	if limit <= 0 || limit > constants.ExecutionListLimit {
		limit = constants.ExecutionListLimit
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var records []*models.ExecutionRecord
	for rows.Next() {
		var rec models.ExecutionRecord
		var direction, status string
		if err := rows.Scan(
			&rec.ID,
			&direction,
			&rec.TenantID,
			&rec.ProjectID,
			&rec.InstanceID,
			&rec.ContactKey,
			&rec.QueueKey,
			&status,
			&rec.ErrorSummary,
			&rec.PayloadSummary,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		rec.Direction = models.Direction(direction)
		rec.Status = models.ExecutionStatus(status)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// CountByStatus aggregates executions per outcome status.
func (l *ExecutionLog) CountByStatus(ctx context.Context) (*models.ExecutionCounts, error) {
	rows, err := l.db.db.QueryContext(ctx, countExecutionsByStatusQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}
	defer rows.Close()

	counts := &models.ExecutionCounts{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan execution count: %w", err)
		}
		switch models.ExecutionStatus(status) {
		case models.ExecutionStatusOK:
			counts.OK = count
		case models.ExecutionStatusError:
			counts.Error = count
		case models.ExecutionStatusRetry:
			counts.Retry = count
		case models.ExecutionStatusDLQ:
			counts.DLQ = count
		}
	}
	return counts, rows.Err()
}
