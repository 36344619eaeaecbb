// Package worker implements the tagging pipeline: checkout, file sampling,
// prompt assembly, model call, normalization, diff, apply, audit and
// notify, plus the bounded-concurrency pool that drives it. Structured
// after the teacher's internal/queue/worker package (Run/runWorker/execute/
// handleFailure), generalized from a generic job-type dispatcher to one
// fixed tagging pipeline per §4.5, and from the teacher's own
// enqueue/reschedule repository to internal/queue/jobqueue.
package worker

import "fmt"

// Kind classifies a pipeline failure per §7's taxonomy. Advisory failures
// never reach this type — they are logged and swallowed at their call
// site and the pipeline proceeds.
type Kind int

const (
	// KindTransient failures have a plausible chance of succeeding on
	// retry: network errors, non-2xx collaborator responses, subprocess
	// failures, momentary file-explorer unavailability.
	KindTransient Kind = iota
	// KindPermanent failures will not change given the same repository
	// state: missing repoUrl, unparseable or schema-incomplete model
	// output.
	KindPermanent
	// KindFatal failures are audit-store I/O errors: the run cannot be
	// sealed, so the job must be retried even though the underlying work
	// may already be complete.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// PipelineError wraps a stage failure with its classification. The worker
// pool maps Kind into queue.Fail's transient bool (KindFatal also retries,
// since the audit store — not the repository work — is what failed).
type PipelineError struct {
	Kind  Kind
	Stage string
	Cause error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Cause)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

func Transient(stage string, cause error) error {
	return &PipelineError{Kind: KindTransient, Stage: stage, Cause: cause}
}

func Permanent(stage string, cause error) error {
	return &PipelineError{Kind: KindPermanent, Stage: stage, Cause: cause}
}

func Fatal(stage string, cause error) error {
	return &PipelineError{Kind: KindFatal, Stage: stage, Cause: cause}
}

// IsTransient reports whether err (or anything it wraps) should be
// retried by the queue rather than discarded.
func IsTransient(err error) bool {
	var pe *PipelineError
	if ok := asPipelineError(err, &pe); ok {
		return pe.Kind == KindTransient || pe.Kind == KindFatal
	}
	// Unclassified errors default to transient: an unexpected panic
	// recovery or bug is more safely retried than silently discarded.
	return true
}

func asPipelineError(err error, target **PipelineError) bool {
	for err != nil {
		if pe, ok := err.(*PipelineError); ok {
			*target = pe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
