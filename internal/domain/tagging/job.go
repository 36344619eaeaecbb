// Package tagging holds the core entities the audit store and worker
// pipeline operate on: Jobs, JobRuns and TagAssignments, plus the
// in-flight TagPayload/FileTagPayload value objects that flow through
// normalization, diffing and apply.
package tagging

import (
	"errors"
	"time"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

type Scope string

const (
	ScopeRepository Scope = "repository"
	ScopeFile       Scope = "file"
)

type Trigger string

const (
	TriggerEvent     Trigger = "event"
	TriggerManual    Trigger = "manual"
	TriggerScheduler Trigger = "scheduler"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrRunNotFound = errors.New("job run not found")
)

// Job is one repository's tagging lifecycle record. There is exactly one
// Job per repository id; the audit store upserts on that identity.
type Job struct {
	ID           int64     `json:"id"`
	RepositoryID string    `json:"repositoryId"`
	Status       JobStatus `json:"status"`
	LastRunAt    *time.Time `json:"lastRunAt,omitempty"`
	Runs         int       `json:"runs"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// JobRun is a single attempt of the pipeline against a Job's repository.
type JobRun struct {
	ID               int64      `json:"id"`
	JobID            int64      `json:"jobId"`
	Status           RunStatus  `json:"status"`
	StartedAt        time.Time  `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	ErrorMessage     *string    `json:"errorMessage,omitempty"`
	Prompt           *string    `json:"prompt,omitempty"`
	PromptTokens     *int       `json:"promptTokens,omitempty"`
	CompletionTokens *int       `json:"completionTokens,omitempty"`
	LatencyMs        *int64     `json:"latencyMs,omitempty"`
	RawResponse      *string    `json:"rawResponse,omitempty"`
}

// TagAssignment is an immutable record of one applied tag, scoped either
// to the whole repository or to a single file path within it.
type TagAssignment struct {
	ID         int64     `json:"id"`
	JobRunID   int64     `json:"jobRunId"`
	Scope      Scope     `json:"scope"`
	Target     string    `json:"target"`
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	Confidence *float64  `json:"confidence,omitempty"`
	AppliedAt  time.Time `json:"appliedAt"`
}

// TagPayload is the transient (key, value, confidence) triple carried
// through normalization, diffing and apply. It is never persisted as-is;
// only the TagAssignments it produces survive a run.
type TagPayload struct {
	Key        string   `json:"key"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// FileTagPayload groups the tags proposed for a single file path.
type FileTagPayload struct {
	Path string       `json:"path"`
	Tags []TagPayload `json:"tags"`
}

// CompleteRunInput is the set of fields that may be supplied when sealing
// a run. Only ErrorMessage is meaningful for failed runs; the rest are
// best-effort depending on how far the pipeline progressed before failing.
type CompleteRunInput struct {
	Status           RunStatus
	ErrorMessage     *string
	Prompt           *string
	PromptTokens     *int
	CompletionTokens *int
	LatencyMs        *int64
	RawResponse      *string
}

// NewAssignment is the input shape for AuditStore.RecordAssignments. It
// carries no applied-at time: the store stamps one time for the whole
// batch so that every assignment from one run shares a consistent clock.
type NewAssignment struct {
	Scope      Scope
	Target     string
	Key        string
	Value      string
	Confidence *float64
}
