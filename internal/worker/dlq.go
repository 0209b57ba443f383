package worker

// dlq.go: Dead Letter Queue
// Jobs that exhaust MaxAttempts are parked in dlq:{original_queue} for
// manual inspection.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging. RawPayload holds
// the queue message verbatim when it could not be decoded as a Job.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	RawPayload    string          `json:"raw_payload,omitempty"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

// SendToDLQ parks a failed job. The push ignores cancellation of ctx so a
// shutdown in the middle of a job does not lose it.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, reason string) error {
	return pushDLQ(ctx, rdb, DLQEntry{
		OriginalQueue: queue,
		JobType:       job.Type,
		Payload:       job.Payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
		Attempts:      job.Attempts,
	})
}

// SendUndecodableToDLQ parks a queue message that is not a valid Job.
func SendUndecodableToDLQ(ctx context.Context, rdb *redis.Client, queue, raw, reason string) error {
	return pushDLQ(ctx, rdb, undecodableEntry(queue, raw, reason))
}

func undecodableEntry(queue, raw, reason string) DLQEntry {
	return DLQEntry{
		OriginalQueue: queue,
		JobType:       "unknown",
		RawPayload:    raw,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
	}
}

func pushDLQ(ctx context.Context, rdb *redis.Client, entry DLQEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("dlq marshal entry: %w", err)
	}

	dlqKey := DLQPrefix + entry.OriginalQueue
	if err := rdb.LPush(context.WithoutCancel(ctx), dlqKey, data).Err(); err != nil {
		return fmt.Errorf("dlq push %s: %w", dlqKey, err)
	}

	log.Warn().
		Str("queue", entry.OriginalQueue).
		Str("job_type", entry.JobType).
		Str("reason", entry.Reason).
		Int("attempts", entry.Attempts).
		Msg("dlq: job moved to dead letter queue")
	return nil
}

// DLQLength returns the number of entries in a DLQ for monitoring.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// PeekDLQ returns up to n of the most recent entries without removing them.
func PeekDLQ(ctx context.Context, rdb *redis.Client, queue string, n int64) ([]DLQEntry, error) {
	raw, err := rdb.LRange(ctx, DLQPrefix+queue, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]DLQEntry, 0, len(raw))
	for _, r := range raw {
		var e DLQEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("decode dlq entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
