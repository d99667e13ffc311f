package models

import "time"

// ExecutionStatus is the terminal or transitional outcome of processing
// one relay job.
type ExecutionStatus string

const (
	ExecutionStatusOK           ExecutionStatus = "ok"
	ExecutionStatusError        ExecutionStatus = "error"
	ExecutionStatusRetry        ExecutionStatus = "retry"
	ExecutionStatusDLQ          ExecutionStatus = "dlq"
	ExecutionStatusQueueCleared ExecutionStatus = "queue_cleared"
)

// ExecutionRecord is one append-only audit row describing a job outcome.
type ExecutionRecord struct {
	ID             int64           `json:"id"`
	Direction      Direction       `json:"direction"`
	TenantID       string          `json:"tenantId"`
	ProjectID      string          `json:"projectId,omitempty"`
	InstanceID     string          `json:"instanceId,omitempty"`
	ContactKey     string          `json:"contactKey,omitempty"`
	QueueKey       string          `json:"queueKey,omitempty"`
	Status         ExecutionStatus `json:"status"`
	ErrorSummary   string          `json:"errorSummary,omitempty"`
	PayloadSummary string          `json:"payloadSummary,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ExecutionFilter narrows an execution-log listing.
type ExecutionFilter struct {
	TenantID  string
	Direction Direction
	Status    ExecutionStatus
	Limit     int
}

// ExecutionCounts aggregates executions per final status.
type ExecutionCounts struct {
	OK    int64 `json:"ok"`
	Error int64 `json:"error"`
	Retry int64 `json:"retry"`
	DLQ   int64 `json:"dlq"`
}
