package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"blendcaja/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAuditoriaCaja = "jobs:auditoria_caja"

	JobAuditoriaCaja = "auditoria_caja"

	// MaxAttempts is how many times a job runs before it is moved to the DLQ.
	MaxAttempts = 3

	popTimeout = 5 * time.Second
)

var queues = []string{QueueAuditoriaCaja}

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Handlers maps Job.Type to its handler.
type Handlers map[string]Handler

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueAuditoriaCaja publishes the outcome of a committed close.
func (d *Dispatcher) EnqueueAuditoriaCaja(ctx context.Context, evt dto.CierreCajaEvent) error {
	return d.enqueue(ctx, QueueAuditoriaCaja, JobAuditoriaCaja, evt)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", jobType, err)
	}
	return push(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming every queue.
// Each goroutine blocks on BRPOP, so idle workers cost nothing. The returned
// WaitGroup is done once all workers have observed ctx cancellation.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers Handlers) *sync.WaitGroup {
	if numWorkers < 1 {
		numWorkers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, rdb, id, handlers)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers Handlers) {
	for {
		if ctx.Err() != nil {
			log.Info().Msgf("worker %d shutting down", id)
			return
		}
		result, err := rdb.BRPop(ctx, popTimeout, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("worker: pop failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		processJob(ctx, rdb, handlers, result[0], result[1])
	}
}

// processJob runs one job. Failures are pushed back with Attempts+1 until
// MaxAttempts, then parked in the DLQ.
func processJob(ctx context.Context, rdb *redis.Client, handlers Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("worker: undecodable job")
		if dlqErr := SendUndecodableToDLQ(ctx, rdb, queue, raw, "decode: "+err.Error()); dlqErr != nil {
			log.Error().Str("queue", queue).Err(dlqErr).Str("raw_payload", raw).Msg("worker: undecodable job lost")
		}
		return
	}

	handler, ok := handlers[job.Type]
	if !ok {
		if err := SendToDLQ(ctx, rdb, queue, job, "no handler for job type"); err != nil {
			log.Error().Err(err).Str("type", job.Type).Msg("worker: dlq failed")
		}
		return
	}

	job.Attempts++
	err := handler(ctx, job.Payload)
	if err == nil {
		log.Debug().Str("type", job.Type).Str("queue", queue).Int("attempt", job.Attempts).Msg("worker: job done")
		return
	}

	if job.Attempts >= MaxAttempts {
		if dlqErr := SendToDLQ(ctx, rdb, queue, job, err.Error()); dlqErr != nil {
			log.Error().Err(dlqErr).Str("type", job.Type).Msg("worker: dlq failed")
		}
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("worker: job failed, requeueing")
	if err := push(context.WithoutCancel(ctx), rdb, queue, job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("worker: requeue failed, job lost")
	}
}
