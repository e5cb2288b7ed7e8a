package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const listPageSize = 100

// TaskEnqueuer is the part of asynq.Client the Scheduler needs.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is the part of asynq.Inspector the Scheduler needs.
type TaskInspector interface {
	DeleteTask(queue, id string) error
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	ListRetryTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	ListPendingTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

type Scheduler struct {
	client      TaskEnqueuer
	inspector   TaskInspector
	queue       string
	maxAttempts int
	now         func() time.Time
}

func NewScheduler(client TaskEnqueuer, inspector TaskInspector, queue string, maxAttempts int) *Scheduler {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Scheduler{
		client:      client,
		inspector:   inspector,
		queue:       queue,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Schedule enqueues the publish task for postID to run at the given time.
// A time in the past runs as soon as a worker is free.
func (s *Scheduler) Schedule(ctx context.Context, postID int64, at time.Time) error {
	task, err := NewPublishPostTask(postID)
	if err != nil {
		return err
	}

	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	id := TaskID(postID, at)
	opts := []asynq.Option{
		asynq.TaskID(id),
		asynq.Queue(s.queue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(s.maxAttempts - 1),
	}

	_, err = s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// A leftover (archived or completed) task holds the id.
		if derr := s.inspector.DeleteTask(s.queue, id); derr != nil && !errors.Is(derr, asynq.ErrTaskNotFound) {
			return fmt.Errorf("replace task %s: %w", id, derr)
		}
		_, err = s.client.EnqueueContext(ctx, task, opts...)
	}
	if err != nil {
		return fmt.Errorf("enqueue task %s: %w", id, err)
	}

	slog.Info("publish task scheduled", "post_id", postID, "task_id", id, "delay", delay)
	return nil
}

// Reschedule drops the task placed for oldAt and schedules newAt. A task that
// is already running is left alone; the worker's status check settles it.
func (s *Scheduler) Reschedule(ctx context.Context, postID int64, oldAt, newAt time.Time) error {
	oldID := TaskID(postID, oldAt)
	if err := s.inspector.DeleteTask(s.queue, oldID); err != nil && !ignorableDeleteErr(err) {
		return fmt.Errorf("delete task %s: %w", oldID, err)
	}
	return s.Schedule(ctx, postID, newAt)
}

// Cancel deletes every waiting task that names postID.
func (s *Scheduler) Cancel(ctx context.Context, postID int64) error {
	listers := []func(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error){
		s.inspector.ListScheduledTasks,
		s.inspector.ListRetryTasks,
		s.inspector.ListPendingTasks,
	}

	removed := 0
	for _, list := range listers {
		ids, err := s.collect(ctx, list, postID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.inspector.DeleteTask(s.queue, id); err != nil && !ignorableDeleteErr(err) {
				return fmt.Errorf("delete task %s: %w", id, err)
			}
			removed++
		}
	}

	slog.Info("publish tasks cancelled", "post_id", postID, "removed", removed)
	return nil
}

func (s *Scheduler) collect(ctx context.Context, list func(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error), postID int64) ([]string, error) {
	var ids []string
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tasks, err := list(s.queue, asynq.PageSize(listPageSize), asynq.Page(page))
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}

		for _, t := range tasks {
			if t.Type != TaskTypePublishPost {
				continue
			}
			payload, err := parsePayload(t.Payload)
			if err != nil {
				continue
			}
			if payload.PostID == postID {
				ids = append(ids, t.ID)
			}
		}

		if len(tasks) < listPageSize {
			return ids, nil
		}
	}
}

// Deleting a task that is gone or already running is not an error for us.
func ignorableDeleteErr(err error) bool {
	return errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) || isActiveTaskErr(err)
}

// asynq refuses to delete a running task with a failed-precondition error
// that has no exported sentinel.
func isActiveTaskErr(err error) bool {
	return strings.Contains(err.Error(), "active state")
}
