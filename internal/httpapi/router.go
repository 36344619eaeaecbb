// Package httpapi wires the gin router: health/readiness, Prometheus
// metrics, the jobs/runs/assignments read API (GET /jobs is
// cursor-paginated; the other listings are not), the
// manual-trigger/retry admin endpoints, the operator dashboard, and the
// swagger UI shell. Structured after the teacher's internal/http.NewRouter.
package httpapi

import (
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/adminauth"
	"github.com/benediktbwimmer/tagging-service/internal/audit"
	"github.com/benediktbwimmer/tagging-service/internal/config"
	"github.com/benediktbwimmer/tagging-service/internal/httpapi/handlers"
	"github.com/benediktbwimmer/tagging-service/internal/httpapi/middlewares"
	"github.com/benediktbwimmer/tagging-service/internal/observability"
	"github.com/benediktbwimmer/tagging-service/internal/queue/jobqueue"
	"github.com/gin-gonic/gin"
	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(pool *pgxpool.Pool, reg *prometheus.Registry, prom *observability.Prom, store audit.Store, queue *jobqueue.Queue, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(prom.GinHandleMiddleware())
	r.Use(otelgin.Middleware("tagging-service-api"))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	}

	health := handlers.NewHealthHandler(pool)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	dashboard := handlers.NewDashboardHandler(store)
	r.GET("/", dashboard.Index)

	r.GET("/docs", handlers.SwaggerUI)

	jobs := handlers.NewJobsHandler(store)
	runs := handlers.NewRunsHandler(store)
	assignments := handlers.NewAssignmentsHandler(store)

	r.GET("/jobs", jobs.List)
	r.GET("/jobs/:id", jobs.Get)
	r.GET("/jobs/:id/runs", jobs.Runs)
	r.GET("/runs/:id", runs.Get)
	r.GET("/runs/:id/assignments", assignments.List)

	adminLimiter := middlewares.NewRateLimiter(30, time.Minute)
	var jwtManager *adminauth.Manager
	if cfg.AdminJWTSecret != "" {
		jwtManager = adminauth.NewManager(cfg.AdminJWTSecret, time.Hour)
	}

	admin := handlers.NewAdminHandler(store, queue)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middlewares.RequireAdminToken(cfg.AdminToken, jwtManager))
	adminGroup.Use(adminLimiter.RateLimiterMiddleware(middlewares.KeyByRepositoryOrIP))
	adminGroup.POST("/repositories/:repositoryId/tag", middlewares.RequireJSON(), admin.TriggerTag)
	adminGroup.POST("/runs/:id/retry", admin.RetryRun)

	return r
}
