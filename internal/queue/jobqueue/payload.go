package jobqueue

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
)

// Status is the lifecycle of one queued job, distinct from tagging.JobStatus
// which tracks the audit record. A queue entry moves
// waiting -> active -> (completed | delayed -> waiting | failed).
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusDelayed   Status = "delayed"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// JobPayload is what a producer (admission, scheduler, or a manual-trigger
// admin endpoint) hands to Enqueue.
type JobPayload struct {
	RepositoryID string          `json:"repositoryId"`
	Trigger      tagging.Trigger `json:"trigger"`
	Reason       string          `json:"reason,omitempty"`
}

// QueuedJob is the durable record stored in the job:<id> hash.
type QueuedJob struct {
	ID          string          `json:"id"`
	Payload     JobPayload      `json:"payload"`
	Status      Status          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	LastError   string          `json:"lastError,omitempty"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

// ID derives the deterministic, collision-resistant job id for a repository:
// a fixed "job_" prefix over the hex-encoded sha256 of the repository id.
// Same repository id always yields the same job id, which is how Enqueue
// implements its dedup guarantee.
func ID(repositoryID string) string {
	sum := sha256.Sum256([]byte(repositoryID))
	return "job_" + hex.EncodeToString(sum[:])
}

// Transition is published on the transitions channel whenever a job moves
// between queue states, per §4.2's "three subscribable transitions".
type Transition struct {
	JobID        string `json:"jobId"`
	RepositoryID string `json:"repositoryId"`
	Transition   Status `json:"transition"`
	Reason       string `json:"reason,omitempty"`
}
