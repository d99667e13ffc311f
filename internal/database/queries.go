package database

// Message mapping queries
const (
	insertMessageMappingQuery = `
		INSERT INTO message_mappings (
			tenant_id, project_id, instance_id, direction,
			chatwoot_message_id, wa_message_id, stanza_id, message_type,
			queue_key, delivery_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectMappingByChatwootIDQuery = `
		SELECT id, tenant_id, project_id, instance_id, direction,
		       chatwoot_message_id, wa_message_id, stanza_id, message_type,
		       queue_key, delivery_status, created_at, updated_at
		FROM message_mappings
		WHERE chatwoot_message_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	selectMappingByWAMessageIDQuery = `
		SELECT id, tenant_id, project_id, instance_id, direction,
		       chatwoot_message_id, wa_message_id, stanza_id, message_type,
		       queue_key, delivery_status, created_at, updated_at
		FROM message_mappings
		WHERE wa_message_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	updateMappingStatusQuery = `
		UPDATE message_mappings
		SET delivery_status = ?, updated_at = ?
		WHERE wa_message_id = ?
	`

	deleteOldMappingsQuery = `
		DELETE FROM message_mappings
		WHERE created_at < datetime('now', '-' || ? || ' days')
	`
)

// Execution log queries
const (
	insertExecutionQuery = `
		INSERT INTO event_executions (
			direction, tenant_id, project_id, instance_id,
			contact_key, queue_key, status, error_summary, payload_summary, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectRecentExecutionsQuery = `
		SELECT id, direction, tenant_id, project_id, instance_id,
		       contact_key, queue_key, status, error_summary, payload_summary, created_at
		FROM event_executions
	`

	countExecutionsByStatusQuery = `
		SELECT status, COUNT(*)
		FROM event_executions
		GROUP BY status
	`
)

// Instance queries
const (
	upsertInstanceQuery = `
		INSERT INTO instances (
			id, tenant_id, project_id, name, api_token, base_url, status,
			chatwoot_account_id, chatwoot_inbox_id, chatwoot_url, chatwoot_user_token,
			groups_ignore, auto_reject_calls, auto_reply_calls, auto_reply_scripts,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			project_id = excluded.project_id,
			name = excluded.name,
			api_token = excluded.api_token,
			base_url = excluded.base_url,
			status = excluded.status,
			chatwoot_account_id = excluded.chatwoot_account_id,
			chatwoot_inbox_id = excluded.chatwoot_inbox_id,
			chatwoot_url = excluded.chatwoot_url,
			chatwoot_user_token = excluded.chatwoot_user_token,
			groups_ignore = excluded.groups_ignore,
			auto_reject_calls = excluded.auto_reject_calls,
			auto_reply_calls = excluded.auto_reply_calls,
			auto_reply_scripts = excluded.auto_reply_scripts,
			updated_at = excluded.updated_at
	`

	selectInstanceColumns = `
		SELECT id, tenant_id, project_id, name, api_token, base_url, status,
		       chatwoot_account_id, chatwoot_inbox_id, chatwoot_url, chatwoot_user_token,
		       groups_ignore, auto_reject_calls, auto_reply_calls, auto_reply_scripts
		FROM instances
	`

	selectInstanceByIDQuery    = selectInstanceColumns + ` WHERE id = ?`
	selectInstanceByTokenQuery = selectInstanceColumns + ` WHERE api_token = ?`
	selectInstanceByInboxQuery = selectInstanceColumns + ` WHERE chatwoot_account_id = ? AND chatwoot_inbox_id = ?`
)
