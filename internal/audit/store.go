// Package audit defines the durable record of jobs, runs and tag
// assignments, and the recency predicate the admission path and
// scheduler both gate on.
package audit

import (
	"context"

	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
)

// Store is the contract the worker pipeline, admission path and HTTP read
// API all depend on. internal/audit/postgres implements it against
// Postgres; tests use an in-memory fake satisfying the same interface.
type Store interface {
	UpsertJob(ctx context.Context, repositoryID string) (tagging.Job, error)
	StartRun(ctx context.Context, jobID int64) (tagging.JobRun, error)
	CompleteRun(ctx context.Context, runID int64, in tagging.CompleteRunInput) (tagging.JobRun, error)
	RecordAssignments(ctx context.Context, runID int64, assignments []tagging.NewAssignment) error

	LatestSuccessfulRun(ctx context.Context, repositoryID string) (tagging.JobRun, bool, error)
	HasRecentSuccessfulRun(ctx context.Context, repositoryID string, maxAge int64) (bool, error)

	ListRecentJobs(ctx context.Context, limit int, beforeUpdatedAt int64, beforeID int64) ([]tagging.Job, error)
	CountJobs(ctx context.Context) (int64, error)
	GetJobByID(ctx context.Context, id int64) (tagging.Job, error)
	GetRunByID(ctx context.Context, id int64) (tagging.JobRun, error)
	ListRunsForJob(ctx context.Context, jobID int64, limit int) ([]tagging.JobRun, error)
	GetAssignmentsForRun(ctx context.Context, runID int64) ([]tagging.TagAssignment, error)
}
