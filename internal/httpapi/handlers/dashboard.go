package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/benediktbwimmer/tagging-service/internal/audit"
	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the operator dashboard at GET /: a server-
// rendered HTML page listing recent jobs with their repository, status,
// run count, last run time and last update time (no run latency), grounded on swagger.go's inline-HTML-string technique applied
// to new content (§9).
type DashboardHandler struct {
	store audit.Store
}

func NewDashboardHandler(store audit.Store) *DashboardHandler {
	return &DashboardHandler{store: store}
}

const dashboardPageSize = 50

func (h *DashboardHandler) Index(ctx *gin.Context) {
	jobs, err := h.store.ListRecentJobs(ctx.Request.Context(), dashboardPageSize, 0, 0)
	if err != nil {
		RespondInternal(ctx, "failed to load dashboard")
		return
	}

	var rows strings.Builder
	for _, j := range jobs {
		lastRun := "never"
		if j.LastRunAt != nil {
			lastRun = j.LastRunAt.Format("2006-01-02 15:04:05")
		}
		rows.WriteString(fmt.Sprintf(
			"<tr><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(j.RepositoryID),
			statusBadge(j.Status),
			j.Runs,
			html.EscapeString(lastRun),
			j.UpdatedAt.Format("2006-01-02 15:04:05"),
		))
	}

	page := fmt.Sprintf(dashboardHTML, rows.String())
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func statusBadge(s tagging.JobStatus) string {
	class := "status-queued"
	switch s {
	case tagging.JobSucceeded:
		class = "status-ok"
	case tagging.JobFailed:
		class = "status-failed"
	case tagging.JobRunning:
		class = "status-running"
	}
	return fmt.Sprintf(`<span class="%s">%s</span>`, class, html.EscapeString(string(s)))
}

const dashboardHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    <title>Tagging Service Dashboard</title>
    <style>
      body { margin: 0; padding: 2rem; background: #f8fafc; font-family: system-ui, sans-serif; color: #0f172a; }
      h1 { font-size: 1.25rem; margin-bottom: 1rem; }
      table { border-collapse: collapse; width: 100%%; max-width: 960px; background: #fff; }
      th, td { text-align: left; padding: 0.5rem 0.75rem; border-bottom: 1px solid #e2e8f0; font-size: 0.875rem; }
      th { background: #f1f5f9; }
      .status-ok { color: #15803d; font-weight: 600; }
      .status-failed { color: #b91c1c; font-weight: 600; }
      .status-running { color: #b45309; font-weight: 600; }
      .status-queued { color: #475569; font-weight: 600; }
    </style>
  </head>
  <body>
    <h1>Tagging Service — Recent Jobs</h1>
    <table>
      <thead>
        <tr><th>Repository</th><th>Status</th><th>Runs</th><th>Last Run</th><th>Updated</th></tr>
      </thead>
      <tbody>
        %s
      </tbody>
    </table>
  </body>
</html>`
