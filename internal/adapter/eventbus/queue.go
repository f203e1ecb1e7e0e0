package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"nfc-wallet/config"
	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskAuthorizationEvent is the asynq task type carrying one event.
const TaskAuthorizationEvent = "authorization:event"

const ledgerQueue = "ledger"

// Queue delivers authorization events through Redis with asynq. Unlike
// Bus, events survive a restart between publish and delivery. Handlers
// must be idempotent because a failed task is redelivered to all of them.
type Queue struct {
	redis    asynq.RedisConnOpt
	client   *asynq.Client
	opts     Options
	log      zerolog.Logger
	mu       sync.RWMutex
	handlers []ports.AuthorizationEventHandler
	server   *asynq.Server
}

// RedisOpt converts the shared Redis settings for asynq.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB}
}

// NewQueue creates a Queue. Buffer is unused; Redis is the buffer.
func NewQueue(redis asynq.RedisConnOpt, opts Options, log zerolog.Logger) *Queue {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Queue{
		redis:  redis,
		client: asynq.NewClient(redis),
		opts:   opts,
		log:    log,
	}
}

// Subscribe attaches a handler. Call it before Start.
func (q *Queue) Subscribe(h ports.AuthorizationEventHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, h)
}

// Publish enqueues the event. The event ID is the task ID, so a repeated
// publish of the same event is dropped by Redis.
func (q *Queue) Publish(ctx context.Context, event domain.AuthorizationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode authorization event: %w", err)
	}

	task := asynq.NewTask(TaskAuthorizationEvent, payload)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(ledgerQueue),
		asynq.MaxRetry(q.opts.MaxRetries),
		asynq.TaskID(event.ID.String()),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue authorization event: %w", err)
	}
	return nil
}

// Start runs the asynq server with the given concurrency.
func (q *Queue) Start(workers int) error {
	if workers < 1 {
		workers = 1
	}
	base := q.opts.RetryDelay
	if base <= 0 {
		base = time.Second
	}

	q.server = asynq.NewServer(q.redis, asynq.Config{
		Concurrency: workers,
		Queues:      map[string]int{ledgerQueue: 1},
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return base << min(n, 10)
		},
		Logger: asynqLogger{log: q.log},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAuthorizationEvent, q.ProcessTask)
	if err := q.server.Start(mux); err != nil {
		return fmt.Errorf("start event queue: %w", err)
	}
	return nil
}

// ProcessTask decodes one task and hands the event to every subscriber.
// A payload that cannot be decoded is never retried.
func (q *Queue) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var event domain.AuthorizationEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		q.log.Error().Err(err).Str("task", t.Type()).Msg("dropping undecodable event")
		return fmt.Errorf("decode authorization event: %v: %w", err, asynq.SkipRetry)
	}

	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			q.log.Warn().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("transaction_id", event.Result.TransactionID).
				Msg("event handler failed, task will be retried")
			return err
		}
	}
	return nil
}

// Close stops the server, waiting for in-flight tasks, then the client.
// Undelivered tasks stay in Redis.
func (q *Queue) Close(_ context.Context) error {
	if q.server != nil {
		q.server.Shutdown()
	}
	return q.client.Close()
}

// asynqLogger routes asynq's own logging into zerolog.
type asynqLogger struct {
	log zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
