package workers

import (
	"context"
	"fmt"
	"time"

	"gomosbridge/config"
	"gomosbridge/types"

	"github.com/sirupsen/logrus"
)

// Outbox is where committed dispatches wait for execution.
type Outbox interface {
	PendingDispatches(ctx context.Context, limit int) ([]*types.Dispatch, error)
	UpdateDispatch(ctx context.Context, d *types.Dispatch) error
}

// Dispatcher drains the outbox through an Executor. A dispatch is marked
// executing before the call so a crash never repeats a call silently; a
// failed call goes back to pending until MaxAttempts is reached.
type Dispatcher struct {
	Outbox      Outbox
	Executor    Executor
	Logger      *logrus.Logger
	MaxAttempts int
	BatchSize   int
	Interval    time.Duration
	now         func() time.Time
}

func appendMessage(d *types.Dispatch, msg string) {
	if d.Message == "" {
		d.Message = msg
	} else {
		d.Message += "; " + msg
	}
}

func (w *Dispatcher) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

// backedOff reports whether a retried dispatch still has to wait.
func (w *Dispatcher) backedOff(d *types.Dispatch, lastTry map[string]time.Time) bool {
	t, ok := lastTry[d.ID]
	if !ok || d.Attempts == 0 {
		return false
	}
	wait := time.Duration(d.Attempts*config.EXECUTOR_BACKOFF_SECONDS) * time.Second
	return w.clock().Sub(t) < wait
}

// RunOnce executes one batch of pending dispatches. It returns how many
// dispatches it tried.
func (w *Dispatcher) RunOnce(ctx context.Context, lastTry map[string]time.Time) (int, error) {
	pending, err := w.Outbox.PendingDispatches(ctx, w.BatchSize)
	if err != nil {
		return 0, err
	}

	tried := 0
	for _, d := range pending {
		if ctx.Err() != nil {
			break
		}
		if w.backedOff(d, lastTry) {
			continue
		}
		logger := w.Logger.WithFields(logrus.Fields{"dispatch": d.ID, "kind": d.Kind, "attempt": d.Attempts + 1})

		d.Status = types.DispatchExecuting
		d.Attempts++
		if err := w.Outbox.UpdateDispatch(ctx, d); err != nil {
			return tried, err
		}
		tried++
		lastTry[d.ID] = w.clock()

		ref, err := w.Executor.Execute(ctx, d)
		if err == nil {
			d.Status = types.DispatchSuccess
			appendMessage(d, "executed: "+ref)
			logger.WithField("ref", ref).Info("dispatch executed")
			delete(lastTry, d.ID)
		} else {
			appendMessage(d, fmt.Sprintf("attempt %d: %s", d.Attempts, err.Error()))
			if w.MaxAttempts > 0 && d.Attempts >= w.MaxAttempts {
				d.Status = types.DispatchFailed
				logger.WithField("error", err.Error()).Error("dispatch failed, giving up")
				delete(lastTry, d.ID)
			} else {
				d.Status = types.DispatchPending
				logger.WithField("error", err.Error()).Warn("dispatch failed, will retry")
			}
		}
		if err := w.Outbox.UpdateDispatch(ctx, d); err != nil {
			return tried, err
		}
	}
	return tried, nil
}

// Run drains the outbox until ctx is done. A dispatch stuck in executing
// after a crash is left for an operator: the call may or may not have
// happened.
func (w *Dispatcher) Run(ctx context.Context) {
	w.Logger.Info("starting dispatch executor")
	lastTry := make(map[string]time.Time)
	for sleep(ctx, w.Interval) {
		if _, err := w.RunOnce(ctx, lastTry); err != nil {
			// status updates failing means we can't tell what was executed
			w.Logger.WithField("error", err.Error()).Error("error saving dispatch status, stopping executor")
			return
		}
	}
	w.Logger.Info("dispatch executor stopped")
}
