package handlers

import (
	"net/http"
	"strconv"

	"github.com/benediktbwimmer/tagging-service/internal/audit"
	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
	"github.com/benediktbwimmer/tagging-service/internal/queue/jobqueue"
	"github.com/gin-gonic/gin"
)

// AdminHandler implements the manual-trigger/retry admin endpoints (§9),
// adapted from the teacher's admin_jobs.go Retry/ReprocessDead pair to the
// tagging job's identity: there is no dead-letter store to "reprocess
// from" here, only the queue's own failed list, so both routes ultimately
// do the same thing — enqueue a job for a repository id — with different
// provenance (an explicit repository id, or the repository id recovered
// from a prior run).
type AdminHandler struct {
	store audit.Store
	queue *jobqueue.Queue
}

func NewAdminHandler(store audit.Store, queue *jobqueue.Queue) *AdminHandler {
	return &AdminHandler{store: store, queue: queue}
}

type triggerTagRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TriggerTag handles POST /admin/repositories/{id}/tag.
func (h *AdminHandler) TriggerTag(ctx *gin.Context) {
	repositoryID := ctx.Param("repositoryId")
	if repositoryID == "" {
		RespondBadRequest(ctx, "repositoryId is required", nil)
		return
	}

	var body triggerTagRequest
	if ctx.Request.ContentLength != 0 {
		if !BindJSON(ctx, &body) {
			return
		}
	}
	if body.Reason == "" {
		body.Reason = "manual trigger"
	}

	job, created, err := h.queue.Enqueue(ctx.Request.Context(), jobqueue.JobPayload{
		RepositoryID: repositoryID,
		Trigger:      tagging.TriggerManual,
		Reason:       body.Reason,
	})
	if err != nil {
		RespondInternal(ctx, "failed to enqueue job")
		return
	}

	status := http.StatusAccepted
	if !created {
		status = http.StatusOK
	}
	ctx.JSON(status, gin.H{"job": job, "enqueued": created})
}

// RetryRun handles POST /admin/runs/{id}/retry: looks up the run's job to
// recover the repository id, then enqueues exactly as TriggerTag does.
func (h *AdminHandler) RetryRun(ctx *gin.Context) {
	runID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		RespondBadRequest(ctx, "invalid run id", nil)
		return
	}

	run, err := h.store.GetRunByID(ctx.Request.Context(), runID)
	if err != nil {
		RespondNotFound(ctx, "run not found")
		return
	}
	job, err := h.store.GetJobByID(ctx.Request.Context(), run.JobID)
	if err != nil {
		RespondNotFound(ctx, "job not found for run")
		return
	}

	queued, created, err := h.queue.Enqueue(ctx.Request.Context(), jobqueue.JobPayload{
		RepositoryID: job.RepositoryID,
		Trigger:      tagging.TriggerManual,
		Reason:       "retry of run " + strconv.FormatInt(runID, 10),
	})
	if err != nil {
		RespondInternal(ctx, "failed to enqueue retry")
		return
	}

	status := http.StatusAccepted
	if !created {
		status = http.StatusOK
	}
	ctx.JSON(status, gin.H{"job": queued, "enqueued": created})
}
