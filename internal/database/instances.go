package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/odanieltavares/whatpro-manager/internal/models"
)

func (d *Database) SaveInstance(ctx context.Context, instance *models.Instance) error {
	scripts, err := json.Marshal(instance.Behavior.AutoReplyScripts)
	if err != nil {
		return fmt.Errorf("failed to encode auto-reply scripts: %w", err)
	}

	_, err = d.db.ExecContext(ctx, upsertInstanceQuery,
		instance.ID,
		instance.TenantID,
		instance.ProjectID,
		instance.Name,
		instance.APIToken,
		instance.BaseURL,
		string(instance.Status),
		instance.Chatwoot.AccountID,
		instance.Chatwoot.InboxID,
		instance.Chatwoot.BaseURL,
		instance.Chatwoot.UserToken,
		boolToInt(instance.Behavior.GroupsIgnore),
		boolToInt(instance.Behavior.AutoRejectCalls),
		boolToInt(instance.Behavior.AutoReplyCalls),
		string(scripts),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save instance: %w", err)
	}
	return nil
}

func (d *Database) InstanceByID(ctx context.Context, id string) (*models.Instance, error) {
	return d.scanInstance(d.db.QueryRowContext(ctx, selectInstanceByIDQuery, id))
}

func (d *Database) InstanceByToken(ctx context.Context, apiToken string) (*models.Instance, error) {
	return d.scanInstance(d.db.QueryRowContext(ctx, selectInstanceByTokenQuery, apiToken))
}

func (d *Database) InstanceByInbox(ctx context.Context, accountID, inboxID int) (*models.Instance, error) {
	return d.scanInstance(d.db.QueryRowContext(ctx, selectInstanceByInboxQuery, accountID, inboxID))
}

var ErrInstanceNotFound = fmt.Errorf("instance not found")

func (d *Database) scanInstance(row *sql.Row) (*models.Instance, error) {
	var inst models.Instance
	var status, scripts string
	var groupsIgnore, autoReject, autoReply int
	err := row.Scan(
		&inst.ID,
		&inst.TenantID,
		&inst.ProjectID,
		&inst.Name,
		&inst.APIToken,
		&inst.BaseURL,
		&status,
		&inst.Chatwoot.AccountID,
		&inst.Chatwoot.InboxID,
		&inst.Chatwoot.BaseURL,
		&inst.Chatwoot.UserToken,
		&groupsIgnore,
		&autoReject,
		&autoReply,
		&scripts,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInstanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan instance: %w", err)
	}

	inst.Status = models.InstanceStatus(status)
	inst.Behavior.GroupsIgnore = groupsIgnore != 0
	inst.Behavior.AutoRejectCalls = autoReject != 0
	inst.Behavior.AutoReplyCalls = autoReply != 0
	if scripts != "" {
		if err := json.Unmarshal([]byte(scripts), &inst.Behavior.AutoReplyScripts); err != nil {
			return nil, fmt.Errorf("failed to decode auto-reply scripts: %w", err)
		}
	}
	return &inst, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
