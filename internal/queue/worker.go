package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"postpipe/internal/dispatch"
)

// Worker consumes delayed dispatch tasks and hands them back to the
// dispatcher for a fresh attempt.
type Worker struct {
	dispatcher *dispatch.Dispatcher
}

func NewWorker(dispatcher *dispatch.Dispatcher) *Worker {
	return &Worker{dispatcher: dispatcher}
}

func (w *Worker) HandleDispatchPostTask(ctx context.Context, task *asynq.Task) error {
	var payload DispatchPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	_, err := w.dispatcher.DispatchOne(ctx, payload.PostID)
	return err
}
