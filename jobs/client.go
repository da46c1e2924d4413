package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

// Client submits jobs to the queue. It satisfies notify.Mailer and
// outbox.Enqueuer so the HTTP process and the dispatcher share one path into
// the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an asynq-backed Client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueEmail enqueues a send-email task.
func (c *Client) EnqueueEmail(ctx context.Context, to, subject, body string) error {
	task, err := NewSendEmailTask(SendEmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// EnqueueOutboxRecord enqueues a drained outbox record for processing.
func (c *Client) EnqueueOutboxRecord(ctx context.Context, kind string, payload []byte) error {
	task, err := NewOutboxEventTask(kind, payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
