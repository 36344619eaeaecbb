package admission

import (
	"context"
	"log"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
	"github.com/benediktbwimmer/tagging-service/internal/queue/jobqueue"
	"github.com/redis/go-redis/v9"
)

// RecencyChecker is the audit store's recency predicate, narrowed to what
// admission needs.
type RecencyChecker interface {
	HasRecentSuccessfulRun(ctx context.Context, repositoryID string, maxAgeMs int64) (bool, error)
}

// Enqueuer is the job queue's producer-facing surface.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload jobqueue.JobPayload) (jobqueue.QueuedJob, bool, error)
}

// Listener receives every admitted repository.* event, whether or not it
// triggered an enqueue — the forwarding path spec §4.3 describes for
// events outside the ingest-ready set.
type Listener func(NormalizedEvent)

type Config struct {
	Channel       string
	RecencyWindow time.Duration
}

type Admission struct {
	rdb      *redis.Client
	store    RecencyChecker
	queue    Enqueuer
	cfg      Config
	listener Listener
}

func New(rdb *redis.Client, store RecencyChecker, queue Enqueuer, cfg Config) *Admission {
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = 12 * time.Hour
	}
	return &Admission{rdb: rdb, store: store, queue: queue, cfg: cfg}
}

// OnEvent registers the forward listener. It is called for every
// repository.* event that carries a repository id, before the ingest-ready
// and recency checks decide whether that event enqueues a job.
func (a *Admission) OnEvent(l Listener) {
	a.listener = l
}

// Run subscribes to the configured channel and processes messages until
// ctx is cancelled. Subscriber errors are logged and the subscription is
// re-established rather than propagated, per §4.3's resilience
// requirement that the subscriber "must attempt to remain connected."
func (a *Admission) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := a.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Printf("admission: subscription error, reconnecting: %v", err)
		} else {
			log.Printf("admission: subscription channel closed, reconnecting")
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *Admission) runOnce(ctx context.Context) error {
	sub := a.rdb.Subscribe(ctx, a.cfg.Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			a.handle(ctx, []byte(msg.Payload))
		}
	}
}

func (a *Admission) handle(ctx context.Context, raw []byte) {
	event, ok, err := Normalize(raw)
	if err != nil {
		log.Printf("admission: dropping malformed event: %v", err)
		return
	}
	if !ok {
		log.Printf("admission: debug: event %q missing repository id, dropping", event.Name)
		return
	}
	if !event.IsRepositoryEvent() {
		return
	}

	if a.listener != nil {
		a.listener(event)
	}

	if !requiresIngestReady(event.Name) {
		return
	}
	if event.IngestStatus != "ready" {
		return
	}

	windowMs := a.cfg.RecencyWindow.Milliseconds()
	recent, err := a.store.HasRecentSuccessfulRun(ctx, event.RepositoryID, windowMs)
	if err != nil {
		log.Printf("admission: recency check failed repo=%s: %v", event.RepositoryID, err)
		return
	}
	if recent {
		log.Printf("admission: debug: repo=%s has recent successful run, suppressing enqueue", event.RepositoryID)
		return
	}

	if _, enqueued, err := a.queue.Enqueue(ctx, jobqueue.JobPayload{
		RepositoryID: event.RepositoryID,
		Trigger:      tagging.TriggerEvent,
		Reason:       event.Name,
	}); err != nil {
		log.Printf("admission: enqueue failed repo=%s: %v", event.RepositoryID, err)
	} else if enqueued {
		log.Printf("admission: enqueued repo=%s reason=%s", event.RepositoryID, event.Name)
	}
}
