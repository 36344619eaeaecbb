package handlers

import (
	"context"
	"errors"

	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
)

// fakeStore is a minimal in-memory audit.Store stand-in for handler tests —
// only the methods the read/admin handlers actually call are exercised.
type fakeStore struct {
	jobs        map[int64]tagging.Job
	runs        map[int64]tagging.JobRun
	assignments map[int64][]tagging.TagAssignment
	recentJobs  []tagging.Job

	listRecentJobsErr error
	getJobErr         error
	getRunErr         error
	listRunsErr       error
	assignmentsErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:        map[int64]tagging.Job{},
		runs:        map[int64]tagging.JobRun{},
		assignments: map[int64][]tagging.TagAssignment{},
	}
}

func (f *fakeStore) UpsertJob(ctx context.Context, repositoryID string) (tagging.Job, error) {
	return tagging.Job{}, errors.New("not implemented")
}

func (f *fakeStore) StartRun(ctx context.Context, jobID int64) (tagging.JobRun, error) {
	return tagging.JobRun{}, errors.New("not implemented")
}

func (f *fakeStore) CompleteRun(ctx context.Context, runID int64, in tagging.CompleteRunInput) (tagging.JobRun, error) {
	return tagging.JobRun{}, errors.New("not implemented")
}

func (f *fakeStore) RecordAssignments(ctx context.Context, runID int64, assignments []tagging.NewAssignment) error {
	return errors.New("not implemented")
}

func (f *fakeStore) LatestSuccessfulRun(ctx context.Context, repositoryID string) (tagging.JobRun, bool, error) {
	return tagging.JobRun{}, false, nil
}

func (f *fakeStore) HasRecentSuccessfulRun(ctx context.Context, repositoryID string, maxAge int64) (bool, error) {
	return false, nil
}

func (f *fakeStore) ListRecentJobs(ctx context.Context, limit int, beforeUpdatedAt int64, beforeID int64) ([]tagging.Job, error) {
	if f.listRecentJobsErr != nil {
		return nil, f.listRecentJobsErr
	}
	if limit >= len(f.recentJobs) {
		return f.recentJobs, nil
	}
	return f.recentJobs[:limit], nil
}

func (f *fakeStore) CountJobs(ctx context.Context) (int64, error) {
	return int64(len(f.jobs)), nil
}

func (f *fakeStore) GetJobByID(ctx context.Context, id int64) (tagging.Job, error) {
	if f.getJobErr != nil {
		return tagging.Job{}, f.getJobErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return tagging.Job{}, tagging.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeStore) GetRunByID(ctx context.Context, id int64) (tagging.JobRun, error) {
	if f.getRunErr != nil {
		return tagging.JobRun{}, f.getRunErr
	}
	run, ok := f.runs[id]
	if !ok {
		return tagging.JobRun{}, tagging.ErrRunNotFound
	}
	return run, nil
}

func (f *fakeStore) ListRunsForJob(ctx context.Context, jobID int64, limit int) ([]tagging.JobRun, error) {
	if f.listRunsErr != nil {
		return nil, f.listRunsErr
	}
	var out []tagging.JobRun
	for _, r := range f.runs {
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAssignmentsForRun(ctx context.Context, runID int64) ([]tagging.TagAssignment, error) {
	if f.assignmentsErr != nil {
		return nil, f.assignmentsErr
	}
	return f.assignments[runID], nil
}
