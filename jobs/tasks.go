// Package jobs runs the asynchronous side of the commerce core: outbox
// events fan out to notifications and automatic invoice generation, emails
// are delivered in the background, and housekeeping crons keep the
// idempotency table bounded.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail delivers one transactional email.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeOutboxEvent processes one claimed outbox record.
	TaskTypeOutboxEvent = "outbox:event"
	// TaskTypeIdempotencyCleanup prunes expired idempotency keys.
	TaskTypeIdempotencyCleanup = "idempotency:cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an asynq task for one email.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// OutboxEventPayload wraps a drained outbox record for the worker.
type OutboxEventPayload struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// NewOutboxEventTask constructs an asynq task for one outbox record.
func NewOutboxEventTask(kind string, payload []byte) (*asynq.Task, error) {
	data, err := json.Marshal(OutboxEventPayload{Kind: kind, Payload: payload})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOutboxEvent, data), nil
}

// NewIdempotencyCleanupTask constructs the housekeeping cron task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}
