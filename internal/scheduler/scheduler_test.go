package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/catalogclient"
	"github.com/benediktbwimmer/tagging-service/internal/queue/jobqueue"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

type fakeCatalog struct {
	pages map[int][]catalogclient.Summary
}

func (f *fakeCatalog) ListRepositories(ctx context.Context, page, perPage int) ([]catalogclient.Summary, error) {
	return f.pages[page], nil
}

type fakeRecency struct {
	mu     sync.Mutex
	recent map[string]bool
}

func (f *fakeRecency) HasRecentSuccessfulRun(ctx context.Context, repositoryID string, maxAgeMs int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recent[repositoryID], nil
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []jobqueue.JobPayload
}

func (f *fakeQueue) Enqueue(ctx context.Context, payload jobqueue.JobPayload) (jobqueue.QueuedJob, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, payload)
	return jobqueue.QueuedJob{ID: jobqueue.ID(payload.RepositoryID), Payload: payload}, true, nil
}

func TestRunCycleEnqueuesIngestReadyReposWithoutRecentRun(t *testing.T) {
	catalog := &fakeCatalog{pages: map[int][]catalogclient.Summary{
		1: {
			{ID: "repo-1", IngestStatus: strp("ready")},
			{ID: "repo-2", IngestStatus: strp("pending")}, // not ready: skipped
			{ID: "", IngestStatus: strp("ready")},         // missing id: skipped
		},
	}}
	recency := &fakeRecency{recent: map[string]bool{}}
	queue := &fakeQueue{}

	s := New(catalog, recency, queue, Config{Interval: time.Hour, RecencyWindow: time.Hour})
	s.runCycle(context.Background())

	require.Len(t, queue.enqueued, 1)
	require.Equal(t, "repo-1", queue.enqueued[0].RepositoryID)
	require.Equal(t, "scheduler backstop", queue.enqueued[0].Reason)
}

func TestRunCycleSkipsRepositoriesWithRecentSuccessfulRun(t *testing.T) {
	catalog := &fakeCatalog{pages: map[int][]catalogclient.Summary{
		1: {{ID: "repo-1", IngestStatus: strp("ready")}},
	}}
	recency := &fakeRecency{recent: map[string]bool{"repo-1": true}}
	queue := &fakeQueue{}

	s := New(catalog, recency, queue, Config{})
	s.runCycle(context.Background())

	require.Empty(t, queue.enqueued)
}

func TestRunCyclePaginatesUntilShortPage(t *testing.T) {
	full := make([]catalogclient.Summary, pageSize)
	for i := range full {
		full[i] = catalogclient.Summary{ID: "repo-page1-" + string(rune('a'+i%26)), IngestStatus: strp("ready")}
	}
	catalog := &fakeCatalog{pages: map[int][]catalogclient.Summary{
		1: full,
		2: {{ID: "repo-page2", IngestStatus: strp("ready")}},
	}}
	recency := &fakeRecency{recent: map[string]bool{}}
	queue := &fakeQueue{}

	s := New(catalog, recency, queue, Config{})
	s.runCycle(context.Background())

	require.Len(t, queue.enqueued, pageSize+1)
}

type erroringCatalog struct{}

func (erroringCatalog) ListRepositories(ctx context.Context, page, perPage int) ([]catalogclient.Summary, error) {
	return nil, errors.New("catalog unreachable")
}

func TestRunCycleStopsOnCatalogError(t *testing.T) {
	recency := &fakeRecency{recent: map[string]bool{}}
	queue := &fakeQueue{}

	s := New(erroringCatalog{}, recency, queue, Config{})
	require.NotPanics(t, func() { s.runCycle(context.Background()) })
	require.Empty(t, queue.enqueued)
}

func TestRunCycleSkipsOverlappingTick(t *testing.T) {
	catalog := &fakeCatalog{pages: map[int][]catalogclient.Summary{1: {}}}
	recency := &fakeRecency{recent: map[string]bool{}}
	queue := &fakeQueue{}

	s := New(catalog, recency, queue, Config{})
	s.running.Store(true)
	require.NotPanics(t, func() { s.runCycle(context.Background()) })
	require.Empty(t, queue.enqueued)
}
