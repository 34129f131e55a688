package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"postpipe/internal/repository"
)

// ErrWorkerStopped is returned when a command is issued after the worker
// loop has exited.
var ErrWorkerStopped = errors.New("scheduler worker stopped")

type cmdKind int

const (
	cmdStart cmdKind = iota
	cmdStop
	cmdStatus
	cmdRunOnce
	cmdTick
)

type cmdResult struct {
	enabled bool
	summary *Summary
	err     error
}

type command struct {
	kind  cmdKind
	reply chan cmdResult
}

// Worker owns the scheduler lifecycle. Control arrives as start/stop/
// run-once messages over a command channel; the enabled flag itself lives
// in the store, so toggling survives restarts and is shared across
// instances. Periodic ticks only dispatch when the persisted flag is on.
type Worker struct {
	dispatcher *Dispatcher
	settings   repository.SchedulerRepository
	commands   chan command
	done       chan struct{}
}

func NewWorker(dispatcher *Dispatcher, settings repository.SchedulerRepository) *Worker {
	return &Worker{
		dispatcher: dispatcher,
		settings:   settings,
		commands:   make(chan command),
		done:       make(chan struct{}),
	}
}

// Loop processes commands until ctx is cancelled. Run it in its own
// goroutine.
func (w *Worker) Loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-w.commands:
			w.handle(ctx, cmd)
		}
	}
}

func (w *Worker) handle(ctx context.Context, cmd command) {
	var res cmdResult
	switch cmd.kind {
	case cmdStart:
		res.err = w.settings.SetEnabled(ctx, true)
		res.enabled = res.err == nil
	case cmdStop:
		res.err = w.settings.SetEnabled(ctx, false)
	case cmdStatus:
		res.enabled, res.err = w.settings.IsEnabled(ctx)
	case cmdRunOnce:
		res.summary = w.dispatcher.Run(ctx)
		res.enabled, _ = w.settings.IsEnabled(ctx)
	case cmdTick:
		enabled, err := w.settings.IsEnabled(ctx)
		if err != nil {
			slog.Warn("scheduler flag unreadable, skipping tick", "error", err.Error())
			break
		}
		if enabled {
			summary := w.dispatcher.Run(ctx)
			if summary.Processed > 0 {
				slog.Info("scheduled dispatch tick",
					"processed", summary.Processed, "posted", summary.Posted,
					"failed", summary.Failed, "retried", summary.Retried)
			}
		}
	}
	if cmd.reply != nil {
		cmd.reply <- res
	}
}

func (w *Worker) send(ctx context.Context, kind cmdKind) (cmdResult, error) {
	reply := make(chan cmdResult, 1)
	select {
	case w.commands <- command{kind: kind, reply: reply}:
	case <-w.done:
		return cmdResult{}, ErrWorkerStopped
	case <-ctx.Done():
		return cmdResult{}, ctx.Err()
	}
	select {
	case res := <-reply:
		return res, res.err
	case <-ctx.Done():
		return cmdResult{}, ctx.Err()
	}
}

// Start persists the enabled flag on.
func (w *Worker) Start(ctx context.Context) error {
	_, err := w.send(ctx, cmdStart)
	return err
}

// Stop persists the enabled flag off. In-flight adapter calls are not
// cancelled; only future ticks are suppressed.
func (w *Worker) Stop(ctx context.Context) error {
	_, err := w.send(ctx, cmdStop)
	return err
}

// Status reports the persisted enabled flag.
func (w *Worker) Status(ctx context.Context) (bool, error) {
	res, err := w.send(ctx, cmdStatus)
	return res.enabled, err
}

// RunOnce triggers an immediate batch regardless of the enabled flag.
func (w *Worker) RunOnce(ctx context.Context) (*Summary, error) {
	res, err := w.send(ctx, cmdRunOnce)
	return res.summary, err
}

// Tick is the cron entry point; it never blocks the cron goroutine on a
// busy worker longer than a channel handoff.
func (w *Worker) Tick() {
	select {
	case w.commands <- command{kind: cmdTick}:
	case <-w.done:
	}
}
