// Package jobqueue implements the durable, deduplicated job queue the
// worker pipeline consumes from, grounded on the Redis list/zset queue in
// the retrieved knock-fm repository (waiting list -> active list via
// BRPopLPush, a zset for delayed retries, capped completed/failed lists)
// and on the teacher's ExponentialBackoff idiom for retry timing.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyWaiting          = "tagging:queue:waiting"
	keyActive           = "tagging:queue:active"
	keyDelayed          = "tagging:queue:delayed"
	keyCompleted        = "tagging:queue:completed"
	keyFailed           = "tagging:queue:failed"
	keyJobPrefix        = "tagging:queue:job:"
	keyClaimedAtPrefix  = "tagging:queue:claimed_at:"
	transitionsChannel  = "tagging:queue:transitions"
	maxCompletedRetain  = 1000
	maxFailedRetain     = 2000
	jobHashTTL          = 7 * 24 * time.Hour
)

var ErrNotFound = errors.New("jobqueue: job not found")

type Queue struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

func jobKey(id string) string { return keyJobPrefix + id }

// Enqueue inserts a job for payload.RepositoryID if none is currently
// waiting, active, or delayed for that repository; otherwise it is a
// no-op and returns the existing job with enqueued=false. This is the
// queue's half of the dedup guarantee in §4.2 — the other half is that
// only one worker ever claims a given job id concurrently.
func (q *Queue) Enqueue(ctx context.Context, payload JobPayload) (QueuedJob, bool, error) {
	id := ID(payload.RepositoryID)
	key := jobKey(id)

	existingRaw, err := q.rdb.HGet(ctx, key, "data").Result()
	if err == nil {
		var existing QueuedJob
		if jsonErr := json.Unmarshal([]byte(existingRaw), &existing); jsonErr == nil {
			switch existing.Status {
			case StatusWaiting, StatusActive, StatusDelayed:
				return existing, false, nil
			}
		}
	} else if err != redis.Nil {
		return QueuedJob{}, false, fmt.Errorf("jobqueue: enqueue lookup: %w", err)
	}

	now := time.Now().UTC().UnixMilli()
	job := QueuedJob{
		ID:          id,
		Payload:     payload,
		Status:      StatusWaiting,
		Attempts:    0,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return QueuedJob{}, false, fmt.Errorf("jobqueue: marshal job: %w", err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", string(data))
	pipe.Expire(ctx, key, jobHashTTL)
	pipe.LPush(ctx, keyWaiting, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return QueuedJob{}, false, fmt.Errorf("jobqueue: enqueue: %w", err)
	}

	q.publish(ctx, Transition{JobID: id, RepositoryID: payload.RepositoryID, Transition: StatusWaiting})
	return job, true, nil
}

// Claim blocks up to blockFor waiting for a job, atomically moving it from
// the waiting list into the active list so a crash mid-processing leaves
// the job recoverable by RequeueStale rather than lost.
func (q *Queue) Claim(ctx context.Context, blockFor time.Duration) (*QueuedJob, error) {
	id, err := q.rdb.BRPopLPush(ctx, keyWaiting, keyActive, blockFor).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("jobqueue: claim: %w", err)
	}

	job, err := q.load(ctx, id)
	if err != nil {
		q.rdb.LRem(ctx, keyActive, 1, id)
		return nil, err
	}

	job.Status = StatusActive
	job.UpdatedAt = time.Now().UTC().UnixMilli()
	if err := q.store(ctx, job); err != nil {
		return nil, err
	}
	q.rdb.Set(ctx, keyClaimedAtPrefix+id, time.Now().UTC().UnixMilli(), jobHashTTL)

	q.publish(ctx, Transition{JobID: job.ID, RepositoryID: job.Payload.RepositoryID, Transition: StatusActive})
	return &job, nil
}

// Complete removes a successfully-processed job from the active list and
// appends it to the capped completed list for operator visibility.
func (q *Queue) Complete(ctx context.Context, id string) error {
	job, err := q.load(ctx, id)
	if err != nil {
		return err
	}

	job.Status = StatusCompleted
	job.UpdatedAt = time.Now().UTC().UnixMilli()

	pipe := q.rdb.TxPipeline()
	data, _ := json.Marshal(job)
	pipe.HSet(ctx, jobKey(id), "data", string(data))
	pipe.LRem(ctx, keyActive, 1, id)
	pipe.Del(ctx, keyClaimedAtPrefix+id)
	pipe.LPush(ctx, keyCompleted, id)
	pipe.LTrim(ctx, keyCompleted, 0, maxCompletedRetain-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("jobqueue: complete: %w", err)
	}

	q.publish(ctx, Transition{JobID: id, RepositoryID: job.Payload.RepositoryID, Transition: StatusCompleted})
	return nil
}

// Fail records a failed attempt. Transient failures are rescheduled with
// exponential backoff until maxAttempts is exhausted; permanent failures
// (transient=false) and exhausted transient ones are discarded into the
// capped failed list with no further retry, matching §7's taxonomy.
func (q *Queue) Fail(ctx context.Context, id string, reason string, transient bool) error {
	job, err := q.load(ctx, id)
	if err != nil {
		return err
	}

	job.Attempts++
	job.LastError = reason
	job.UpdatedAt = time.Now().UTC().UnixMilli()

	if transient && job.Attempts < job.MaxAttempts {
		delay := Backoff(job.Attempts)
		runAt := time.Now().UTC().Add(delay)
		job.Status = StatusDelayed

		pipe := q.rdb.TxPipeline()
		data, _ := json.Marshal(job)
		pipe.HSet(ctx, jobKey(id), "data", string(data))
		pipe.LRem(ctx, keyActive, 1, id)
		pipe.Del(ctx, keyClaimedAtPrefix+id)
		pipe.ZAdd(ctx, keyDelayed, redis.Z{Score: float64(runAt.UnixMilli()), Member: id})
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("jobqueue: fail (retry): %w", err)
		}

		q.publish(ctx, Transition{JobID: id, RepositoryID: job.Payload.RepositoryID, Transition: StatusDelayed, Reason: reason})
		return nil
	}

	job.Status = StatusFailed

	pipe := q.rdb.TxPipeline()
	data, _ := json.Marshal(job)
	pipe.HSet(ctx, jobKey(id), "data", string(data))
	pipe.LRem(ctx, keyActive, 1, id)
	pipe.Del(ctx, keyClaimedAtPrefix+id)
	pipe.LPush(ctx, keyFailed, id)
	pipe.LTrim(ctx, keyFailed, 0, maxFailedRetain-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("jobqueue: fail (discard): %w", err)
	}

	q.publish(ctx, Transition{JobID: id, RepositoryID: job.Payload.RepositoryID, Transition: StatusFailed, Reason: reason})
	return nil
}

// PromoteDelayed moves delayed jobs whose backoff has elapsed back onto
// the waiting list. Intended to run on a short ticker alongside the
// worker's claim loop, mirroring the teacher's requeueLoop housekeeping.
func (q *Queue) PromoteDelayed(ctx context.Context) (int, error) {
	now := time.Now().UTC().UnixMilli()

	ids, err := q.rdb.ZRangeByScore(ctx, keyDelayed, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("jobqueue: promote delayed: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := q.rdb.TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, keyDelayed, id)
		pipe.LPush(ctx, keyWaiting, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("jobqueue: promote delayed exec: %w", err)
	}

	for _, id := range ids {
		job, loadErr := q.load(ctx, id)
		if loadErr != nil {
			continue
		}
		job.Status = StatusWaiting
		_ = q.store(ctx, job)
		q.publish(ctx, Transition{JobID: id, RepositoryID: job.Payload.RepositoryID, Transition: StatusWaiting})
	}

	return len(ids), nil
}

// RequeueStale moves jobs that have sat in the active list longer than
// lockTTL back onto the waiting list, recovering work orphaned by a
// worker crash between Claim and Complete/Fail.
func (q *Queue) RequeueStale(ctx context.Context, lockTTL time.Duration) (int, error) {
	ids, err := q.rdb.LRange(ctx, keyActive, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("jobqueue: requeue stale list: %w", err)
	}

	cutoff := time.Now().UTC().Add(-lockTTL).UnixMilli()
	requeued := 0

	for _, id := range ids {
		claimedAtStr, err := q.rdb.Get(ctx, keyClaimedAtPrefix+id).Result()
		if err != nil {
			continue
		}
		var claimedAt int64
		if _, err := fmt.Sscanf(claimedAtStr, "%d", &claimedAt); err != nil {
			continue
		}
		if claimedAt > cutoff {
			continue
		}

		pipe := q.rdb.TxPipeline()
		pipe.LRem(ctx, keyActive, 1, id)
		pipe.Del(ctx, keyClaimedAtPrefix+id)
		pipe.LPush(ctx, keyWaiting, id)
		if _, err := pipe.Exec(ctx); err != nil {
			continue
		}
		requeued++
	}

	return requeued, nil
}

func (q *Queue) load(ctx context.Context, id string) (QueuedJob, error) {
	raw, err := q.rdb.HGet(ctx, jobKey(id), "data").Result()
	if err != nil {
		if err == redis.Nil {
			return QueuedJob{}, ErrNotFound
		}
		return QueuedJob{}, fmt.Errorf("jobqueue: load %s: %w", id, err)
	}
	var job QueuedJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return QueuedJob{}, fmt.Errorf("jobqueue: unmarshal %s: %w", id, err)
	}
	return job, nil
}

func (q *Queue) store(ctx context.Context, job QueuedJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobqueue: marshal %s: %w", job.ID, err)
	}
	if err := q.rdb.HSet(ctx, jobKey(job.ID), "data", string(data)).Err(); err != nil {
		return fmt.Errorf("jobqueue: store %s: %w", job.ID, err)
	}
	return nil
}

func (q *Queue) publish(ctx context.Context, t Transition) {
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	// Fire-and-forget: a dropped transition notification never affects
	// queue correctness, only operator/observer visibility.
	_ = q.rdb.Publish(ctx, transitionsChannel, string(data)).Err()
}

// Stats returns current list/zset lengths for the operator dashboard.
type Stats struct {
	Waiting   int64
	Active    int64
	Delayed   int64
	Completed int64
	Failed    int64
}

func (q *Queue) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error
	if s.Waiting, err = q.rdb.LLen(ctx, keyWaiting).Result(); err != nil {
		return s, err
	}
	if s.Active, err = q.rdb.LLen(ctx, keyActive).Result(); err != nil {
		return s, err
	}
	if s.Delayed, err = q.rdb.ZCard(ctx, keyDelayed).Result(); err != nil {
		return s, err
	}
	if s.Completed, err = q.rdb.LLen(ctx, keyCompleted).Result(); err != nil {
		return s, err
	}
	if s.Failed, err = q.rdb.LLen(ctx, keyFailed).Result(); err != nil {
		return s, err
	}
	return s, nil
}
