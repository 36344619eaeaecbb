package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/audit"
	"github.com/benediktbwimmer/tagging-service/internal/catalogclient"
	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
	"github.com/benediktbwimmer/tagging-service/internal/fileexplorerclient"
	"github.com/benediktbwimmer/tagging-service/internal/modelclient"
	"github.com/benediktbwimmer/tagging-service/internal/normalize"
	"github.com/benediktbwimmer/tagging-service/internal/notify"
	"github.com/benediktbwimmer/tagging-service/internal/queue/jobqueue"
)

type Config struct {
	WorkspaceRoot      string
	PromptTemplatePath string
}

// Pipeline runs the eleven-step tagging pipeline of §4.5 against a single
// job. A fresh Pipeline is cheap to construct; all shared state
// (template cache, HTTP clients) lives in its collaborators.
type Pipeline struct {
	cfg     Config
	audit   audit.Store
	catalog *catalogclient.Client
	fe      *fileexplorerclient.Client
	model   *modelclient.Client
	notify  notify.Notifier
}

func NewPipeline(cfg Config, auditStore audit.Store, catalog *catalogclient.Client, fe *fileexplorerclient.Client, model *modelclient.Client, notifier notify.Notifier) *Pipeline {
	return &Pipeline{cfg: cfg, audit: auditStore, catalog: catalog, fe: fe, model: model, notify: notifier}
}

// Run executes the full pipeline for one queued job. Returned errors are
// always *PipelineError so the caller (the worker pool) can map Kind into
// the queue's retry-vs-discard decision.
func (p *Pipeline) Run(ctx context.Context, qj jobqueue.QueuedJob) error {
	wallStart := time.Now()
	repoID := qj.Payload.RepositoryID

	job, err := p.audit.UpsertJob(ctx, repoID)
	if err != nil {
		return Fatal("bookkeeping.upsert_job", err)
	}
	run, err := p.audit.StartRun(ctx, job.ID)
	if err != nil {
		return Fatal("bookkeeping.start_run", err)
	}

	result, runErr := p.execute(ctx, run, repoID, qj.Payload.Trigger)
	latencyMs := time.Since(wallStart).Milliseconds()

	if runErr != nil {
		p.seal(ctx, run.ID, result, runErr, latencyMs)
		p.notify.NotifyFailed(ctx, notify.FailedEvent{
			RepositoryID: repoID,
			RunID:        run.ID,
			Trigger:      qj.Payload.Trigger,
			Transient:    IsTransient(runErr),
			ErrorMessage: runErr.Error(),
		})
		return runErr
	}

	if err := p.audit.RecordAssignments(ctx, run.ID, result.assignments); err != nil {
		return Fatal("audit.record_assignments", err)
	}

	completeIn := tagging.CompleteRunInput{
		Status:           tagging.RunSucceeded,
		Prompt:           strPtr(result.prompt),
		PromptTokens:     result.promptTokens,
		CompletionTokens: result.completionTokens,
		LatencyMs:        int64Ptr(latencyMs),
		RawResponse:      strPtr(result.rawResponse),
	}
	if _, err := p.audit.CompleteRun(ctx, run.ID, completeIn); err != nil {
		return Fatal("audit.complete_run", err)
	}

	p.notify.NotifyCompleted(ctx, notify.CompletedEvent{
		RepositoryID:       repoID,
		RunID:              run.ID,
		RepositoryTagCount: result.repoTagCount,
		FileTagCount:       result.fileTagCount,
		Trigger:            qj.Payload.Trigger,
	})
	return nil
}

type runResult struct {
	prompt           string
	promptTokens     *int
	completionTokens *int
	rawResponse      string
	assignments      []tagging.NewAssignment
	repoTagCount     int
	fileTagCount     int
}

func (p *Pipeline) execute(ctx context.Context, run tagging.JobRun, repoID string, trigger tagging.Trigger) (runResult, error) {
	var result runResult

	repo, err := p.catalog.GetRepository(ctx, repoID)
	if err != nil {
		return result, Transient("metadata_fetch", err)
	}
	if repo.URL() == "" {
		return result, Permanent("metadata_fetch", fmt.Errorf("metadata missing repoUrl"))
	}

	checkoutDir, err := checkout(ctx, p.cfg.WorkspaceRoot, repoID, repo.URL(), repo.DefaultBranch)
	if err != nil {
		return result, err
	}

	files := sampleFiles(ctx, p.fe, repoID, checkoutDir)

	prompt, err := buildPrompt(p.cfg.PromptTemplatePath, repo, files)
	if err != nil {
		return result, Permanent("prompt_assembly", err)
	}
	result.prompt = prompt

	completion, err := p.model.Complete(ctx, prompt)
	if err != nil {
		return result, classifyModelErr(err)
	}
	result.rawResponse = completion.RawResponse
	if completion.Usage != nil {
		result.promptTokens = intPtr(completion.Usage.PromptTokens)
		result.completionTokens = intPtr(completion.Usage.CompletionTokens)
	}

	normalizedRepoTags := normalize.Tags(completion.Tags.RepositoryTags)
	normalizedFileTags := normalize.FileTags(completion.Tags.FileTags)

	existing := make([]normalize.ExistingTag, 0, len(repo.Tags))
	for _, t := range repo.Tags {
		existing = append(existing, normalize.ExistingTag{Key: t.Key, Value: t.Value, Source: t.Source})
	}
	repoDiff := normalize.DiffRepository(normalizedRepoTags, existing)
	fileDiffs := normalize.DiffFiles(normalizedFileTags)

	if err := p.applyRepoTags(ctx, repoID, repoDiff); err != nil {
		return result, err
	}
	if err := p.applyFileTags(ctx, repoID, fileDiffs); err != nil {
		return result, err
	}

	result.assignments = buildAssignments(repoID, run.ID, repoDiff, fileDiffs)
	result.repoTagCount = len(repoDiff.Apply)
	for _, f := range fileDiffs {
		result.fileTagCount += len(f.Tags)
	}

	return result, nil
}

func (p *Pipeline) applyRepoTags(ctx context.Context, repoID string, diff normalize.RepoDiff) error {
	source := serviceSourceName
	batch := catalogclient.TagBatch{
		Tags:   make([]catalogclient.Tag, 0, len(diff.Apply)),
		Remove: make([]catalogclient.RemoveTagKey, 0, len(diff.Remove)),
	}
	for _, t := range diff.Apply {
		batch.Tags = append(batch.Tags, catalogclient.Tag{Key: t.Key, Value: t.Value, Source: &source, Confidence: t.Confidence})
	}
	for _, t := range diff.Remove {
		batch.Remove = append(batch.Remove, catalogclient.RemoveTagKey{Key: t.Key, Value: t.Value})
	}

	if err := p.catalog.ApplyTags(ctx, repoID, batch); err != nil {
		return Transient("apply.repository_tags", err)
	}
	return nil
}

func (p *Pipeline) applyFileTags(ctx context.Context, repoID string, files []tagging.FileTagPayload) error {
	for _, f := range files {
		inputs := make([]fileexplorerclient.TagInput, 0, len(f.Tags))
		for _, t := range f.Tags {
			inputs = append(inputs, fileexplorerclient.TagInput{Key: t.Key, Value: t.Value, Confidence: t.Confidence})
		}
		if err := p.fe.ApplyTags(ctx, repoID, f.Path, inputs); err != nil {
			return Transient("apply.file_tags", err)
		}
	}
	return nil
}

const serviceSourceName = "tagging-service"

func buildAssignments(repoID string, runID int64, repoDiff normalize.RepoDiff, fileDiffs []tagging.FileTagPayload) []tagging.NewAssignment {
	out := make([]tagging.NewAssignment, 0, len(repoDiff.Apply))
	for _, t := range repoDiff.Apply {
		out = append(out, tagging.NewAssignment{
			Scope:      tagging.ScopeRepository,
			Target:     repoID,
			Key:        t.Key,
			Value:      t.Value,
			Confidence: t.Confidence,
		})
	}
	for _, f := range fileDiffs {
		for _, t := range f.Tags {
			out = append(out, tagging.NewAssignment{
				Scope:      tagging.ScopeFile,
				Target:     f.Path,
				Key:        t.Key,
				Value:      t.Value,
				Confidence: t.Confidence,
			})
		}
	}
	return out
}

func classifyModelErr(err error) error {
	if modelclient.IsTransient(err) {
		return Transient("model_call", err)
	}
	return Permanent("model_call", err)
}

func (p *Pipeline) seal(ctx context.Context, runID int64, result runResult, runErr error, latencyMs int64) {
	errMsg := runErr.Error()
	in := tagging.CompleteRunInput{
		Status:       tagging.RunFailed,
		ErrorMessage: &errMsg,
		LatencyMs:    int64Ptr(latencyMs),
	}
	if result.prompt != "" {
		in.Prompt = strPtr(result.prompt)
	}
	if result.rawResponse != "" {
		in.RawResponse = strPtr(result.rawResponse)
	}
	if _, err := p.audit.CompleteRun(ctx, runID, in); err != nil {
		// The audit store itself is failing; there is nothing further
		// this pipeline run can do beyond surfacing the original error.
		_ = err
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
func intPtr(v int) *int          { return &v }
func int64Ptr(v int64) *int64    { return &v }
