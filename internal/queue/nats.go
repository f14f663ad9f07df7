package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"text-pipeline/internal/retry"
)

const (
	subjectPrefix = "tasks."
	groupPrefix   = "workers-"

	enqueueAttempts = 3
	enqueueBackoff  = 200 * time.Millisecond
	retryBase       = time.Second
)

// conn is the part of *nats.Conn the queue uses.
type conn interface {
	Publish(subj string, data []byte) error
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	SubscribeSync(subj string) (*nats.Subscription, error)
	NewRespInbox() string
}

// NewNATS constructs a thin NATS-based queue.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return newNATS(log, nc)
}

func newNATS(log *slog.Logger, nc conn) *natsQueue {
	return &natsQueue{log: log, nc: nc}
}

type natsQueue struct {
	log *slog.Logger
	nc  conn
}

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Type == "" {
		return errors.New("task type required")
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.nc.Publish(subjectPrefix+string(task.Type), body)
}

func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	subject := subjectPrefix + string(taskType)
	group := groupPrefix + string(taskType)
	sub, err := q.nc.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		q.handleMessage(ctx, msg.Data, handler)
	})
	if err != nil {
		return err
	}
	q.log.Info("worker subscribed", "subject", subject, "group", group)
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (q *natsQueue) Request(ctx context.Context, task Task) (Result, error) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.ReplyTo = q.nc.NewRespInbox()
	sub, err := q.nc.SubscribeSync(task.ReplyTo)
	if err != nil {
		return Result{}, fmt.Errorf("subscribe to reply: %w", err)
	}
	defer sub.Unsubscribe()

	if err := EnqueueWithRetry(ctx, q, task, enqueueAttempts, enqueueBackoff); err != nil {
		return Result{}, fmt.Errorf("enqueue %s task: %w", task.Type, err)
	}
	msg, err := sub.NextMsgWithContext(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("wait for %s result: %w", task.Type, err)
	}
	var res Result
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		return Result{}, fmt.Errorf("decode %s result: %w", task.Type, err)
	}
	return res, nil
}

func (q *natsQueue) handleMessage(ctx context.Context, data []byte, handler Handler) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}

	if task.NotBefore.After(time.Now()) {
		if err := retry.Sleep(ctx, time.Until(task.NotBefore)); err != nil {
			q.log.Warn("worker stopping before task was due", "id", task.ID, "type", task.Type)
			return
		}
	}

	res, err := handler(ctx, task)
	if err != nil && temporary(err) && q.retryTask(ctx, task, err) {
		return
	}
	if err != nil {
		q.log.Error("task failed", "id", task.ID, "type", task.Type, "attempts", task.Attempts+1, "err", err)
	}
	q.reply(task, res)
}

// retryTask re-enqueues task with a delay. It reports false when the task
// has used all its attempts or could not be published.
func (q *natsQueue) retryTask(ctx context.Context, task Task, handlerErr error) bool {
	task.Attempts++
	if task.MaxAttempts == 0 {
		task.MaxAttempts = DefaultMaxAttempts
	}

	if task.Attempts >= task.MaxAttempts {
		q.log.Error("task permanently failed", "id", task.ID, "type", task.Type, "original_err", handlerErr)
		return false
	}
	task.NotBefore = time.Now().Add(retry.ExponentialBackoff(task.Attempts, retryBase))
	if err := q.Enqueue(ctx, task); err != nil {
		q.log.Error("failed to re-enqueue task after failure", "id", task.ID, "type", task.Type, "original_err", handlerErr, "enqueue_err", err)
		return false
	}
	q.log.Warn("task re-enqueued", "id", task.ID, "type", task.Type, "attempt", task.Attempts, "not_before", task.NotBefore)
	return true
}

func (q *natsQueue) reply(task Task, res Result) {
	if task.ReplyTo == "" {
		return
	}
	res.TaskID = task.ID
	body, err := json.Marshal(res)
	if err != nil {
		q.log.Error("failed to encode result", "id", task.ID, "err", err)
		return
	}
	if err := q.nc.Publish(task.ReplyTo, body); err != nil {
		q.log.Error("failed to publish result", "id", task.ID, "reply_to", task.ReplyTo, "err", err)
	}
}
