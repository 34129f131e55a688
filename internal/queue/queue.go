package queue

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const TaskTypeDispatchPost = "dispatch:post"

type DispatchPostPayload struct {
	PostID string `json:"post_id"`
}

// Client enqueues delayed dispatch tasks. Retry attempts are scheduled as
// new units of work with a future eligibility time instead of sleeping
// inside a dispatcher invocation.
type Client struct {
	asynqClient *asynq.Client
}

func NewClient(asynqClient *asynq.Client) *Client {
	return &Client{asynqClient: asynqClient}
}

func (c *Client) EnqueueDispatch(postID string, delay time.Duration) error {
	payload, err := json.Marshal(DispatchPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDispatchPost, payload)

	// asynq carries no retry budget of its own here; attempt accounting
	// lives on the post row.
	_, err = c.asynqClient.Enqueue(task, asynq.ProcessIn(delay), asynq.MaxRetry(0))
	if err != nil {
		return err
	}

	slog.Info("dispatch task scheduled", "post_id", postID, "delay", delay.String())
	return nil
}
