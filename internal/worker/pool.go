package worker

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/observability"
	"github.com/benediktbwimmer/tagging-service/internal/queue/jobqueue"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("tagging-service-worker")

type PoolConfig struct {
	Concurrency   int
	PollInterval  time.Duration
	LockTTL       time.Duration
	ShutdownGrace time.Duration
}

// Pool is the bounded-concurrency driver around Pipeline, structured
// after the teacher's queue/worker.Worker: a producer loop that claims
// jobs and hands them to a fixed set of runWorker goroutines over a
// channel, plus housekeeping loops for stale-lock recovery and delayed-
// retry promotion.
type Pool struct {
	cfg      PoolConfig
	queue    *jobqueue.Queue
	pipeline *Pipeline
	metrics  *observability.JobMetrics
	prom     *observability.Prom
}

func NewPool(cfg PoolConfig, queue *jobqueue.Queue, pipeline *Pipeline) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	return &Pool{cfg: cfg, queue: queue, pipeline: pipeline, metrics: observability.NewJobMetrics()}
}

func (p *Pool) Metrics() *observability.JobMetrics { return p.metrics }

// WithProm attaches the Prometheus registry's job metrics so /metrics on
// the worker process reflects the same outcomes the periodic slog summary
// logs. Optional: a nil prom leaves the pool logging-only.
func (p *Pool) WithProm(prom *observability.Prom) *Pool {
	p.prom = prom
	return p
}

const jobType = "tagging"

// Run claims jobs and executes them until ctx is cancelled, then waits up
// to cfg.ShutdownGrace for in-flight jobs before returning. Claimed jobs
// that do not finish within the grace window remain in the active list
// and are recovered by RequeueStale on a future process start, per §5's
// at-least-once cancellation semantics.
func (p *Pool) Run(ctx context.Context) error {
	jobsCh := make(chan jobqueue.QueuedJob)

	go p.housekeepingLoop(ctx)
	go p.metricsLoop(ctx, 30*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			p.runWorker(ctx, workerNum, jobsCh)
		}(i + 1)
	}

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

producerLoop:
	for {
		select {
		case <-ctx.Done():
			log.Println("worker: shutdown signal received; stopping claims")
			break producerLoop
		case <-ticker.C:
			for i := 0; i < p.cfg.Concurrency; i++ {
				claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				job, err := p.queue.Claim(claimCtx, 500*time.Millisecond)
				cancel()

				if err != nil {
					log.Printf("worker: claim error: %v", err)
					break
				}
				if job == nil {
					break
				}

				select {
				case jobsCh <- *job:
					p.metrics.IncClaimed()
				case <-ctx.Done():
					break producerLoop
				}
			}
		}
	}

	close(jobsCh)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("worker: all in-flight jobs completed")
	case <-time.After(p.cfg.ShutdownGrace):
		log.Printf("worker: shutdown grace (%s) exceeded; exiting", p.cfg.ShutdownGrace)
	}
	return nil
}

func (p *Pool) runWorker(ctx context.Context, workerNum int, jobsCh <-chan jobqueue.QueuedJob) {
	for job := range jobsCh {
		start := time.Now()

		execCtx, span := tracer.Start(ctx, "tagging.run",
			trace.WithAttributes(
				attribute.String("job.id", job.ID),
				attribute.String("repository.id", job.Payload.RepositoryID),
				attribute.String("job.trigger", string(job.Payload.Trigger)),
				attribute.Int("worker.num", workerNum),
			),
		)

		if p.prom != nil {
			p.prom.JobsInFlight.Inc()
		}

		func() {
			defer span.End()
			if p.prom != nil {
				defer p.prom.JobsInFlight.Dec()
			}

			slog.Default().InfoContext(execCtx, "job.start",
				"worker_num", workerNum,
				"job_id", job.ID,
				"repository_id", job.Payload.RepositoryID,
				"trigger", job.Payload.Trigger,
			)

			err := p.pipeline.Run(execCtx, job)
			d := time.Since(start)
			p.metrics.ObserveDuration(d)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())

				transient := IsTransient(err)
				if failErr := p.queue.Fail(ctx, job.ID, err.Error(), transient); failErr != nil {
					log.Printf("worker: fail bookkeeping error job=%s: %v", job.ID, failErr)
				}
				result := "failed"
				if transient {
					p.metrics.IncRetried()
					result = "retry"
				} else {
					p.metrics.IncDeadLettered()
				}
				p.metrics.IncFailed()
				if p.prom != nil {
					p.prom.JobDuration.WithLabelValues(jobType, result).Observe(d.Seconds())
					p.prom.JobResults.WithLabelValues(jobType, result).Inc()
				}

				slog.Default().ErrorContext(execCtx, "job.error",
					"worker_num", workerNum,
					"job_id", job.ID,
					"repository_id", job.Payload.RepositoryID,
					"duration_ms", d.Milliseconds(),
					"transient", transient,
					"err", err,
				)
				return
			}

			if err := p.queue.Complete(ctx, job.ID); err != nil {
				log.Printf("worker: complete bookkeeping error job=%s: %v", job.ID, err)
			}
			p.metrics.IncDone()
			if p.prom != nil {
				p.prom.JobDuration.WithLabelValues(jobType, "done").Observe(d.Seconds())
				p.prom.JobResults.WithLabelValues(jobType, "done").Inc()
			}

			span.SetStatus(codes.Ok, "done")
			slog.Default().InfoContext(execCtx, "job.done",
				"worker_num", workerNum,
				"job_id", job.ID,
				"repository_id", job.Payload.RepositoryID,
				"duration_ms", d.Milliseconds(),
			)
		}()
	}
}

func (p *Pool) housekeepingLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			n, err := p.queue.RequeueStale(hctx, p.cfg.LockTTL)
			if err == nil {
				m, promoteErr := p.queue.PromoteDelayed(hctx)
				if promoteErr != nil {
					log.Printf("worker.promote_delayed error=%v", promoteErr)
				} else if m > 0 {
					log.Printf("worker.promote_delayed count=%d", m)
				}
			}
			cancel()

			if err != nil {
				log.Printf("worker.requeue_stale error=%v", err)
				continue
			}
			if n > 0 {
				log.Printf("worker.requeue_stale count=%d", n)
			}
		}
	}
}

func (p *Pool) metricsLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := p.metrics.Snapshot()
			log.Printf(
				"job metrics claimed=%d done=%d failed=%d retried=%d dlq=%d duration_count=%d dur_avg=%s duration_max=%s",
				s.Claimed, s.Done, s.Failed, s.Retried, s.DeadLettered, s.DurationCount, s.AverageDuration, s.MaxDuration,
			)
		}
	}
}
