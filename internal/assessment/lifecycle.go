package assessment

import (
	"context"
	"time"

	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/gmp"
	"github.com/anstrom/assessor/internal/logging"
)

const defaultPollInterval = 15 * time.Second

// PollObserver is notified of every task status query.
type PollObserver interface {
	ObservePoll(status string, progress int)
}

// Lifecycle creates, starts and waits for scan tasks.
type Lifecycle struct {
	client   gmp.Client
	interval time.Duration
	timeout  time.Duration
	observer PollObserver
	logger   *logging.Logger
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithPollTimeout bounds AwaitCompletion. Zero waits until a terminal status.
func WithPollTimeout(d time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		l.timeout = d
	}
}

// WithPollObserver registers an observer for task polls.
func WithPollObserver(o PollObserver) LifecycleOption {
	return func(l *Lifecycle) {
		l.observer = o
	}
}

// NewLifecycle creates a lifecycle controller polling every interval.
func NewLifecycle(client gmp.Client, interval time.Duration, logger *logging.Logger, opts ...LifecycleOption) *Lifecycle {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	l := &Lifecycle{
		client:   client,
		interval: interval,
		logger:   componentLogger(logger, "task"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateTask creates a task and returns its ID.
func (l *Lifecycle) CreateTask(ctx context.Context, req gmp.CreateTaskRequest) (string, error) {
	resp, err := l.client.CreateTask(ctx, req)
	if err != nil {
		return "", Staged(err, StageTask)
	}
	if !resp.OK() {
		return "", errors.ErrRemoteRejection("create_task", resp.Status, resp.StatusText).WithStage(StageTask)
	}
	if resp.ID == "" {
		return "", errors.NewAssessmentError(errors.CodeProtocol, "create_task returned no id").WithStage(StageTask)
	}

	l.logger.Info("Task created", "task_id", resp.ID, "name", req.Name)
	return resp.ID, nil
}

// StartTask starts a task and returns the report ID of the run. Only the
// "202 accepted" acknowledgment with a report ID counts as started.
func (l *Lifecycle) StartTask(ctx context.Context, taskID string) (string, error) {
	resp, err := l.client.StartTask(ctx, taskID)
	if err != nil {
		return "", Staged(err, StageTask)
	}
	if resp.Status != gmp.StatusCodeAccepted {
		return "", errors.ErrRemoteRejection("start_task", resp.Status, resp.StatusText).
			WithStage(StageTask).
			WithContext("task_id", taskID)
	}
	if resp.ReportID == "" {
		return "", errors.NewAssessmentError(errors.CodeRemoteRejection, "start_task acknowledged without a report id").
			WithStage(StageTask).
			WithContext("task_id", taskID)
	}

	l.logger.Info("Task started", "task_id", taskID, "report_id", resp.ReportID)
	return resp.ReportID, nil
}

// AwaitCompletion polls the task until it reaches a terminal status. It
// returns nil on Done, TASK_STOPPED on Stopped or Interrupted,
// POLLING_COMMUNICATION when a status query fails and POLLING_TIMEOUT when
// the poll timeout expires first.
func (l *Lifecycle) AwaitCompletion(ctx context.Context, taskID string) error {
	logger := l.logger.WithFields("task_id", taskID)
	logger.Info("Waiting for task to complete", "interval", l.interval, "timeout", l.timeout)

	pollCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	lastStatus, lastProgress := "", -1
	for polls := 1; ; polls++ {
		select {
		case <-pollCtx.Done():
			return l.pollAborted(ctx, taskID, polls-1)
		case <-timer.C:
		}

		task, err := l.client.Task(pollCtx, taskID)
		if err != nil {
			if pollCtx.Err() != nil {
				return l.pollAborted(ctx, taskID, polls)
			}
			logger.Error("Task status query failed", "error", err)
			return errors.WrapAssessmentError(errors.CodePollingCommunication, "task status query failed", err).
				WithStage(StagePoll).
				WithContext("task_id", taskID)
		}

		status, progress := task.Status(), task.Progress()
		if l.observer != nil {
			l.observer.ObservePoll(status, progress)
		}
		if status != lastStatus || progress != lastProgress {
			logger.Info("Task progress", "status", status, "progress", progress)
			lastStatus, lastProgress = status, progress
		}

		switch status {
		case gmp.StatusDone:
			logger.Info("Task completed", "polls", polls)
			return nil
		case gmp.StatusStopped, gmp.StatusInterrupted:
			logger.Error("Task did not complete", "status", status, "progress", progress)
			return errors.NewAssessmentError(errors.CodeTaskStopped, "task "+status).
				WithStage(StagePoll).
				WithContext("task_id", taskID).
				WithContext("progress", progress)
		}

		timer.Reset(l.interval)
	}
}

func (l *Lifecycle) pollAborted(ctx context.Context, taskID string, polls int) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapAssessmentError(errors.CodeCanceled, "waiting for task canceled", err).
			WithStage(StagePoll).
			WithContext("task_id", taskID)
	}
	l.logger.Error("Task did not reach a terminal status in time",
		"task_id", taskID, "timeout", l.timeout, "polls", polls)
	return errors.WrapAssessmentError(errors.CodePollingTimeout, "task did not complete in time",
		context.DeadlineExceeded).
		WithStage(StagePoll).
		WithContext("task_id", taskID).
		WithContext("timeout", l.timeout.String())
}
