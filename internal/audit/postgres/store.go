// Package postgres implements the audit.Store contract on top of pgx,
// grounded on the teacher's internal/repo/postgres/jobs_repo.go: every
// statement runs through an observe(op, fn) wrapper so Prometheus DB
// metrics stay populated, and each multi-step write (run start, run seal,
// assignment batch) is wrapped in its own pgx.Tx.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
	"github.com/benediktbwimmer/tagging-service/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func New(pool *pgxpool.Pool, prom *observability.Prom) *Store {
	return &Store{pool: pool, prom: prom}
}

func (s *Store) observe(op string, fn func() error) error {
	if s.prom != nil {
		return s.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (s *Store) UpsertJob(ctx context.Context, repositoryID string) (tagging.Job, error) {
	var j tagging.Job
	var status string
	op := "audit.upsert_job"

	err := s.observe(op, func() error {
		return s.pool.QueryRow(ctx, `
			INSERT INTO jobs (repository_id, status, runs, created_at, updated_at)
			VALUES ($1, $2, 0, NOW(), NOW())
			ON CONFLICT (repository_id) DO UPDATE SET updated_at = NOW()
			RETURNING id, repository_id, status, last_run_at, runs, created_at, updated_at
		`, repositoryID, string(tagging.JobQueued)).Scan(
			&j.ID, &j.RepositoryID, &status, &j.LastRunAt, &j.Runs, &j.CreatedAt, &j.UpdatedAt,
		)
	})
	if err != nil {
		return tagging.Job{}, err
	}
	j.Status = tagging.JobStatus(status)
	return j, nil
}

// StartRun creates a running JobRun and, in the same transaction, bumps
// the owning job's run counter, last_run_at and status — the audit-store
// invariant that "a job's runs counter equals the number of runs started
// for that job" depends on these three writes being atomic.
func (s *Store) StartRun(ctx context.Context, jobID int64) (tagging.JobRun, error) {
	var run tagging.JobRun
	var status string
	op := "audit.start_run"

	err := s.observe(op, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		started := time.Now().UTC()

		err = tx.QueryRow(ctx, `
			INSERT INTO job_runs (job_id, status, started_at)
			VALUES ($1, $2, $3)
			RETURNING id, job_id, status, started_at
		`, jobID, string(tagging.RunRunning), started).Scan(&run.ID, &run.JobID, &status, &run.StartedAt)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE jobs
			SET runs = runs + 1, last_run_at = $2, status = $3, updated_at = NOW()
			WHERE id = $1
		`, jobID, started, string(tagging.JobRunning))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return tagging.ErrJobNotFound
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return tagging.JobRun{}, err
	}
	run.Status = tagging.RunStatus(status)
	return run, nil
}

// CompleteRun seals a run and moves the owning job to the run's terminal
// status. Invoked after RecordAssignments for successful runs, per the
// worker pipeline's ordering guarantee (§5: assignments recorded strictly
// before completeRun is observable).
func (s *Store) CompleteRun(ctx context.Context, runID int64, in tagging.CompleteRunInput) (tagging.JobRun, error) {
	var run tagging.JobRun
	var status string
	op := "audit.complete_run"

	err := s.observe(op, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		completed := time.Now().UTC()

		var jobID int64
		err = tx.QueryRow(ctx, `
			UPDATE job_runs
			SET status = $2, completed_at = $3, error_message = $4, prompt = $5,
			    prompt_tokens = $6, completion_tokens = $7, latency_ms = $8, raw_response = $9
			WHERE id = $1
			RETURNING id, job_id, status, started_at, completed_at
		`, runID, string(in.Status), completed, in.ErrorMessage, in.Prompt,
			in.PromptTokens, in.CompletionTokens, in.LatencyMs, in.RawResponse,
		).Scan(&run.ID, &jobID, &status, &run.StartedAt, &run.CompletedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return tagging.ErrRunNotFound
			}
			return err
		}
		run.JobID = jobID

		jobStatus := tagging.JobFailed
		if in.Status == tagging.RunSucceeded {
			jobStatus = tagging.JobSucceeded
		}

		tag, err := tx.Exec(ctx, `UPDATE jobs SET status = $2, updated_at = NOW() WHERE id = $1`,
			jobID, string(jobStatus))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return tagging.ErrJobNotFound
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return tagging.JobRun{}, err
	}
	run.Status = tagging.RunStatus(status)
	run.ErrorMessage = in.ErrorMessage
	run.Prompt = in.Prompt
	run.PromptTokens = in.PromptTokens
	run.CompletionTokens = in.CompletionTokens
	run.LatencyMs = in.LatencyMs
	run.RawResponse = in.RawResponse
	return run, nil
}

func (s *Store) RecordAssignments(ctx context.Context, runID int64, assignments []tagging.NewAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	op := "audit.record_assignments"

	return s.observe(op, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		batch := &pgx.Batch{}
		appliedAt := time.Now().UTC()
		for _, a := range assignments {
			batch.Queue(`
				INSERT INTO tag_assignments (job_run_id, scope, target, key, value, confidence, applied_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, runID, string(a.Scope), a.Target, a.Key, a.Value, a.Confidence, appliedAt)
		}

		br := tx.SendBatch(ctx, batch)
		for range assignments {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		if err := br.Close(); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

func (s *Store) LatestSuccessfulRun(ctx context.Context, repositoryID string) (tagging.JobRun, bool, error) {
	var run tagging.JobRun
	var status string
	op := "audit.latest_successful_run"

	err := s.observe(op, func() error {
		return s.pool.QueryRow(ctx, `
			SELECT r.id, r.job_id, r.status, r.started_at, r.completed_at
			FROM job_runs r
			JOIN jobs j ON j.id = r.job_id
			WHERE j.repository_id = $1 AND r.status = $2
			ORDER BY r.completed_at DESC
			LIMIT 1
		`, repositoryID, string(tagging.RunSucceeded)).Scan(
			&run.ID, &run.JobID, &status, &run.StartedAt, &run.CompletedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tagging.JobRun{}, false, nil
		}
		return tagging.JobRun{}, false, err
	}
	run.Status = tagging.RunStatus(status)
	return run, true, nil
}

// HasRecentSuccessfulRun implements the recency predicate every admission
// path and the scheduler gate on: true iff a successful run's
// completed_at lies in [now-maxAgeMs, now]. A future completed_at (clock
// skew) returns false rather than true, per spec §4.1 and the Open
// Question in §9 about wall-clock comparisons.
func (s *Store) HasRecentSuccessfulRun(ctx context.Context, repositoryID string, maxAgeMs int64) (bool, error) {
	run, ok, err := s.LatestSuccessfulRun(ctx, repositoryID)
	if err != nil || !ok || run.CompletedAt == nil {
		return false, err
	}

	age := time.Since(*run.CompletedAt)
	if age < 0 {
		return false, nil
	}
	return age <= time.Duration(maxAgeMs)*time.Millisecond, nil
}

func (s *Store) ListRecentJobs(ctx context.Context, limit int, beforeUpdatedAt int64, beforeID int64) ([]tagging.Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	op := "audit.list_recent_jobs"
	var out []tagging.Job

	err := s.observe(op, func() error {
		rows, err := s.pool.Query(ctx, `
			SELECT id, repository_id, status, last_run_at, runs, created_at, updated_at
			FROM jobs
			WHERE $2::bigint = 0
			   OR (date_trunc('milliseconds', updated_at), id) < (to_timestamp($2::bigint / 1000.0), $3::bigint)
			ORDER BY date_trunc('milliseconds', updated_at) DESC, id DESC
			LIMIT $1
		`, limit, beforeUpdatedAt, beforeID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var j tagging.Job
			var status string
			if err := rows.Scan(&j.ID, &j.RepositoryID, &status, &j.LastRunAt, &j.Runs, &j.CreatedAt, &j.UpdatedAt); err != nil {
				return err
			}
			j.Status = tagging.JobStatus(status)
			out = append(out, j)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) CountJobs(ctx context.Context) (int64, error) {
	var n int64
	op := "audit.count_jobs"
	err := s.observe(op, func() error {
		return s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n)
	})
	return n, err
}

func (s *Store) GetJobByID(ctx context.Context, id int64) (tagging.Job, error) {
	var j tagging.Job
	var status string
	op := "audit.get_job_by_id"

	err := s.observe(op, func() error {
		return s.pool.QueryRow(ctx, `
			SELECT id, repository_id, status, last_run_at, runs, created_at, updated_at
			FROM jobs WHERE id = $1
		`, id).Scan(&j.ID, &j.RepositoryID, &status, &j.LastRunAt, &j.Runs, &j.CreatedAt, &j.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tagging.Job{}, tagging.ErrJobNotFound
		}
		return tagging.Job{}, err
	}
	j.Status = tagging.JobStatus(status)
	return j, nil
}

func (s *Store) GetRunByID(ctx context.Context, id int64) (tagging.JobRun, error) {
	var run tagging.JobRun
	var status string
	op := "audit.get_run_by_id"

	err := s.observe(op, func() error {
		return s.pool.QueryRow(ctx, `
			SELECT id, job_id, status, started_at, completed_at, error_message, prompt,
			       prompt_tokens, completion_tokens, latency_ms, raw_response
			FROM job_runs WHERE id = $1
		`, id).Scan(
			&run.ID, &run.JobID, &status, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
			&run.Prompt, &run.PromptTokens, &run.CompletionTokens, &run.LatencyMs, &run.RawResponse,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tagging.JobRun{}, tagging.ErrRunNotFound
		}
		return tagging.JobRun{}, err
	}
	run.Status = tagging.RunStatus(status)
	return run, nil
}

func (s *Store) ListRunsForJob(ctx context.Context, jobID int64, limit int) ([]tagging.JobRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	op := "audit.list_runs_for_job"
	var out []tagging.JobRun

	err := s.observe(op, func() error {
		rows, err := s.pool.Query(ctx, `
			SELECT id, job_id, status, started_at, completed_at, error_message, prompt,
			       prompt_tokens, completion_tokens, latency_ms, raw_response
			FROM job_runs WHERE job_id = $1
			ORDER BY started_at DESC
			LIMIT $2
		`, jobID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var run tagging.JobRun
			var status string
			if err := rows.Scan(
				&run.ID, &run.JobID, &status, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
				&run.Prompt, &run.PromptTokens, &run.CompletionTokens, &run.LatencyMs, &run.RawResponse,
			); err != nil {
				return err
			}
			run.Status = tagging.RunStatus(status)
			out = append(out, run)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) GetAssignmentsForRun(ctx context.Context, runID int64) ([]tagging.TagAssignment, error) {
	op := "audit.get_assignments_for_run"
	var out []tagging.TagAssignment

	err := s.observe(op, func() error {
		rows, err := s.pool.Query(ctx, `
			SELECT id, job_run_id, scope, target, key, value, confidence, applied_at
			FROM tag_assignments WHERE job_run_id = $1
			ORDER BY id ASC
		`, runID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var a tagging.TagAssignment
			var scope string
			if err := rows.Scan(&a.ID, &a.JobRunID, &scope, &a.Target, &a.Key, &a.Value, &a.Confidence, &a.AppliedAt); err != nil {
				return err
			}
			a.Scope = tagging.Scope(scope)
			out = append(out, a)
		}
		return rows.Err()
	})
	return out, err
}
