package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestDashboardIndexRendersRepositoryRowsEscaped(t *testing.T) {
	store := newFakeStore()
	store.recentJobs = []tagging.Job{
		{RepositoryID: "<script>alert(1)</script>", Status: tagging.JobSucceeded, Runs: 3, UpdatedAt: time.Now()},
	}
	h := NewDashboardHandler(store)

	r := gin.New()
	r.GET("/", h.Index)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	require.NotContains(t, body, "<script>alert(1)</script>")
	require.Contains(t, body, "&lt;script&gt;")
}

func TestDashboardIndexShowsNeverForMissingLastRun(t *testing.T) {
	store := newFakeStore()
	store.recentJobs = []tagging.Job{
		{RepositoryID: "repo-1", Status: tagging.JobQueued, UpdatedAt: time.Now()},
	}
	h := NewDashboardHandler(store)

	r := gin.New()
	r.GET("/", h.Index)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Contains(t, rec.Body.String(), "never")
}

func TestStatusBadgeMapsKnownStatuses(t *testing.T) {
	require.Contains(t, statusBadge(tagging.JobSucceeded), "status-ok")
	require.Contains(t, statusBadge(tagging.JobFailed), "status-failed")
	require.Contains(t, statusBadge(tagging.JobRunning), "status-running")
	require.Contains(t, statusBadge(tagging.JobQueued), "status-queued")
}

func TestDashboardIndexRespondsInternalErrorOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.listRecentJobsErr = assertError{"boom"}
	h := NewDashboardHandler(store)

	r := gin.New()
	r.GET("/", h.Index)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
