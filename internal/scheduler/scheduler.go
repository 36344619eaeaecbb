// Package scheduler implements the periodic backstop of §4.4: page
// through the catalog, enqueue repositories that have gone too long
// without a successful tagging run. Built on robfig/cron/v3, the
// scheduling library used throughout the retrieved corpus for exactly
// this kind of fixed-interval backstop job, rather than a hand-rolled
// ticker loop.
package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/admission"
	"github.com/benediktbwimmer/tagging-service/internal/catalogclient"
	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
	"github.com/benediktbwimmer/tagging-service/internal/queue/jobqueue"
	"github.com/robfig/cron/v3"
)

const pageSize = 50

type CatalogLister interface {
	ListRepositories(ctx context.Context, page, perPage int) ([]catalogclient.Summary, error)
}

type Config struct {
	Interval      time.Duration
	RecencyWindow time.Duration
}

type Scheduler struct {
	catalog CatalogLister
	store   admission.RecencyChecker
	queue   admission.Enqueuer
	cfg     Config
	cron    *cron.Cron

	running atomic.Bool
}

func New(catalog CatalogLister, store admission.RecencyChecker, queue admission.Enqueuer, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = 24 * time.Hour
	}
	return &Scheduler{
		catalog: catalog,
		store:   store,
		queue:   queue,
		cfg:     cfg,
		cron:    cron.New(),
	}
}

// Start runs one cycle immediately, then schedules further cycles every
// cfg.Interval. A cycle still in progress when the timer fires is
// skipped rather than overlapped, per §4.4 and §5's running guard.
func (s *Scheduler) Start(ctx context.Context) error {
	go s.runCycle(ctx)

	spec := "@every " + s.cfg.Interval.String()
	_, err := s.cron.AddFunc(spec, func() { s.runCycle(ctx) })
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		log.Printf("scheduler: cycle already in progress, skipping tick")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	enqueued := 0
	scanned := 0

	for page := 1; ; page++ {
		summaries, err := s.catalog.ListRepositories(ctx, page, pageSize)
		if err != nil {
			log.Printf("scheduler: list repositories page=%d: %v", page, err)
			return
		}
		if len(summaries) == 0 {
			break
		}

		for _, repo := range summaries {
			scanned++
			if repo.ID == "" {
				continue
			}
			if repo.IngestStatus != nil && *repo.IngestStatus != "ready" {
				continue
			}

			windowMs := s.cfg.RecencyWindow.Milliseconds()
			recent, err := s.store.HasRecentSuccessfulRun(ctx, repo.ID, windowMs)
			if err != nil {
				log.Printf("scheduler: recency check repo=%s: %v", repo.ID, err)
				continue
			}
			if recent {
				continue
			}

			if _, ok, err := s.queue.Enqueue(ctx, jobqueue.JobPayload{
				RepositoryID: repo.ID,
				Trigger:      tagging.TriggerScheduler,
				Reason:       "scheduler backstop",
			}); err != nil {
				log.Printf("scheduler: enqueue repo=%s: %v", repo.ID, err)
			} else if ok {
				enqueued++
			}
		}

		if len(summaries) < pageSize {
			break
		}
	}

	log.Printf("scheduler: cycle complete scanned=%d enqueued=%d duration=%s", scanned, enqueued, time.Since(start))
}
