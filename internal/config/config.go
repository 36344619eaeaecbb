package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port int
	DBURL string

	RedisURL            string
	RedisEventsChannel   string

	CatalogBaseURL string
	CatalogToken   string

	FileExplorerBaseURL string
	FileExplorerToken   string

	AIConnectorBaseURL string
	AIConnectorModel   string

	WorkspaceRoot            string
	TaggingConcurrency       int
	TaggingPromptTemplatePath string

	WebhookURL string

	AdminToken      string
	AdminJWTSecret  string

	AllowedOrigins []string

	SchedulerInterval      time.Duration
	EventRecencyWindow     time.Duration
	SchedulerRecencyWindow time.Duration
	WorkerLockTTL          time.Duration
	ShutdownGrace          time.Duration
}

func Load() Config {
	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)
	dbURL := buildDBURL()

	return Config{
		Env:    env,
		Port:   port,
		DBURL:  dbURL,

		RedisURL:          getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		RedisEventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "apphub:events"),

		CatalogBaseURL: getEnv("CATALOG_BASE_URL", "http://127.0.0.1:4100"),
		CatalogToken:   getEnv("CATALOG_TOKEN", ""),

		FileExplorerBaseURL: getEnv("FILE_EXPLORER_BASE_URL", "http://127.0.0.1:4200"),
		FileExplorerToken:   getEnv("FILE_EXPLORER_TOKEN", ""),

		AIConnectorBaseURL: getEnv("AI_CONNECTOR_BASE_URL", "http://127.0.0.1:4300"),
		AIConnectorModel:   getEnv("AI_CONNECTOR_MODEL", "gpt-4o-mini"),

		WorkspaceRoot:             getEnv("WORKSPACE_ROOT", "/tmp/tagging-service/workspace"),
		TaggingConcurrency:        getEnvInt("TAGGING_CONCURRENCY", 2),
		TaggingPromptTemplatePath: getEnv("TAGGING_PROMPT_TEMPLATE_PATH", "./prompts/tagging.tmpl"),

		WebhookURL: getEnv("WEBHOOK_URL", ""),

		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		SchedulerInterval:      getEnvDuration("SCHEDULER_INTERVAL", 6*time.Hour),
		EventRecencyWindow:     getEnvDuration("EVENT_RECENCY_WINDOW", 12*time.Hour),
		SchedulerRecencyWindow: getEnvDuration("SCHEDULER_RECENCY_WINDOW", 24*time.Hour),
		WorkerLockTTL:          getEnvDuration("WORKER_LOCK_TTL", 5*time.Minute),
		ShutdownGrace:          getEnvDuration("SHUTDOWN_GRACE", 10*time.Second),
	}
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "tagging")
	pass := getEnv("DB_PASSWORD", "tagging")
	name := getEnv("DB_NAME", "tagging")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return d
	}
	return fallback
}

// getEnvList splits a comma-separated env var into a trimmed, non-empty
// slice of values, e.g. CORS_ALLOWED_ORIGINS="https://ops.example.com,
// https://console.example.com". An unset or empty var returns fallback.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return b
	}
	return fallback
}
