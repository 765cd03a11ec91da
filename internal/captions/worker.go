package captions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/markbang/cyop/pkg/errors"
	"github.com/markbang/cyop/pkg/logger"
	"github.com/markbang/cyop/pkg/vision"
)

const (
	defaultModel       = "gpt-4o"
	defaultMaxTokens   = 500
	defaultTemperature = 70

	defaultSystemPrompt = "You are an expert image captioning assistant. Describe the image accurately and concisely for a content catalog."
	defaultUserPrompt   = "Write a single descriptive caption for this image."

	fallbackRejectionReason = "caption generation failed"
)

type jobRepository interface {
	ProcessingBatch(ctx context.Context, limit int) ([]Job, error)
	MarkCompleted(ctx context.Context, id int64, text, model string, confidence, tokensUsed int, generatedAt time.Time) error
	MarkRejected(ctx context.Context, id int64, reason string) error
}

type visionClient interface {
	GenerateCaption(ctx context.Context, req vision.CaptionRequest) (*vision.CaptionResult, error)
}

// BatchResult aggregates one ProcessPending run.
type BatchResult struct {
	Processed int        `json:"processed"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Errors    []JobError `json:"errors,omitempty"`
}

// JobError identifies one failed caption job.
type JobError struct {
	CaptionID int64  `json:"caption_id"`
	Error     string `json:"error"`
}

// Err combines the per-job errors into a single value for callers that want
// one; the structured Errors slice remains the primary report.
func (r *BatchResult) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	var combined error
	for _, item := range r.Errors {
		combined = multierr.Append(combined, fmt.Errorf("caption %d: %s", item.CaptionID, item.Error))
	}
	return combined
}

// Worker drains processing captions through the vision client under a
// bounded-concurrency pool.
type Worker struct {
	repo   jobRepository
	vision visionClient
	logg   *logger.Logger
	now    func() time.Time
}

// NewWorker constructs a batch caption worker.
func NewWorker(repo jobRepository, visionClient visionClient, logg *logger.Logger) (*Worker, error) {
	if repo == nil {
		return nil, fmt.Errorf("caption repository required")
	}
	if visionClient == nil {
		return nil, fmt.Errorf("vision client required")
	}
	return &Worker{repo: repo, vision: visionClient, logg: logg, now: time.Now}, nil
}

// ProcessPending loads up to limit processing captions and resolves each to
// completed or rejected. Jobs are dequeued FIFO by concurrency goroutines;
// completion order is unordered and one job's failure never touches another's
// in-flight work. Every dequeued job runs to completion before this returns.
func (w *Worker) ProcessPending(ctx context.Context, limit, concurrency int) (*BatchResult, error) {
	if limit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be positive")
	}
	if concurrency <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "concurrency must be positive")
	}

	jobs, err := w.repo.ProcessingBatch(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load processing captions")
	}

	result := &BatchResult{Processed: len(jobs)}
	if len(jobs) == 0 {
		return result, nil
	}

	queue := make(chan Job, len(jobs))
	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				jobErr := w.runJob(ctx, job)
				mu.Lock()
				if jobErr != nil {
					result.Failed++
					result.Errors = append(result.Errors, JobError{CaptionID: job.Caption.ID, Error: jobErr.Error()})
				} else {
					result.Succeeded++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return result, nil
}

// runJob executes one caption job. A vision failure marks the row rejected
// with the message preserved; the returned error reports it to the batch.
func (w *Worker) runJob(ctx context.Context, job Job) error {
	req := w.buildRequest(job)

	res, err := w.vision.GenerateCaption(ctx, req)
	if err != nil {
		reason := err.Error()
		if reason == "" {
			reason = fallbackRejectionReason
		}
		if markErr := w.repo.MarkRejected(ctx, job.Caption.ID, reason); markErr != nil {
			w.warn(ctx, job.Caption.ID, "mark caption rejected", markErr)
		}
		return err
	}

	if err := w.repo.MarkCompleted(ctx, job.Caption.ID, res.Caption, res.Model, res.Confidence, res.TokensUsed, w.now().UTC()); err != nil {
		w.warn(ctx, job.Caption.ID, "mark caption completed", err)
		return err
	}
	return nil
}

func (w *Worker) buildRequest(job Job) vision.CaptionRequest {
	req := vision.CaptionRequest{
		ImageURL:     derefString(job.Asset.PublicURL),
		SystemPrompt: defaultSystemPrompt,
		UserPrompt:   defaultUserPrompt,
		Model:        defaultModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  float64(defaultTemperature) / 100,
	}
	if tpl := job.Template; tpl != nil {
		req.SystemPrompt = tpl.SystemPrompt
		req.UserPrompt = tpl.UserPrompt
		req.Model = tpl.Model
		req.MaxTokens = tpl.MaxTokens
		req.Temperature = float64(tpl.Temperature) / 100
	}
	return req
}

func (w *Worker) warn(ctx context.Context, captionID int64, msg string, err error) {
	if w.logg == nil {
		return
	}
	logCtx := w.logg.WithCaptionID(ctx, captionID)
	logCtx = w.logg.WithFields(logCtx, map[string]any{"error": err.Error()})
	w.logg.Warn(logCtx, msg)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
