// Package enrich drives the per-URL pipeline: dispatching a job's URLs as
// queue tasks and executing rate-limit -> fetch -> extract -> persist ->
// progress recompute for each one.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"enricher/internal/core/extract"
	"enricher/internal/core/fetch"
	"enricher/internal/core/job"
	"enricher/internal/logger"
	tasks "enricher/internal/platform/tasks"
)

// TaskPayload identifies one URL's unit of work on the queue.
type TaskPayload struct {
	JobID  string `json:"job_id"`
	ItemID string `json:"item_id"`
	URL    string `json:"url"`
}

// Enqueuer is the queue collaborator. Delivery is at-least-once, so the
// task body must stay safe to re-run.
type Enqueuer interface {
	Enqueue(task *asynq.Task, queue string, maxRetries int) error
}

// Fetcher retrieves one page. fetch.Client satisfies this; tests stub it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

type Config struct {
	// RequestDelay is the fixed per-task pause before each fetch. It is
	// not a cross-task throttle.
	RequestDelay time.Duration
	// MaxRetries is passed to the queue per task (redeliveries after the
	// first attempt).
	MaxRetries int
}

type Service struct {
	store   job.Store
	jobs    *job.Service
	tasks   Enqueuer
	fetch   Fetcher
	extract *extract.Service
	cfg     Config
	log     *logger.Logger
}

func NewService(st job.Store, jobs *job.Service, tasks Enqueuer, fetcher Fetcher, extractor *extract.Service, cfg Config) *Service {
	return &Service{
		store:   st,
		jobs:    jobs,
		tasks:   tasks,
		fetch:   fetcher,
		extract: extractor,
		cfg:     cfg,
		log:     logger.New("EnrichService"),
	}
}

// CreateJob creates a job covering urls and dispatches one task per URL.
func (s *Service) CreateJob(ctx context.Context, urls []string) (string, error) {
	if len(urls) == 0 {
		return "", fmt.Errorf("at least one url is required")
	}
	j, err := s.store.CreateJob(ctx, len(urls))
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	if err := s.Dispatch(ctx, j.ID, urls); err != nil {
		return "", err
	}
	s.log.LogInfof("enqueued job %s with %d urls", j.ID, len(urls))
	return j.ID, nil
}

// Dispatch creates one pending item per URL, then submits one task per
// item. A submission failure aborts and surfaces to the caller; items
// created so far remain (job-level cleanup is the caller's concern).
func (s *Service) Dispatch(ctx context.Context, jobID string, urls []string) error {
	items, err := s.store.CreateItems(ctx, jobID, urls)
	if err != nil {
		return fmt.Errorf("create items: %w", err)
	}
	for _, it := range items {
		payload, err := json.Marshal(TaskPayload{JobID: jobID, ItemID: it.ID, URL: it.URL})
		if err != nil {
			return fmt.Errorf("encode task for item %s: %w", it.ID, err)
		}
		task := asynq.NewTask(tasks.TaskTypeEnrich, payload)
		if err := s.tasks.Enqueue(task, "default", s.cfg.MaxRetries); err != nil {
			return fmt.Errorf("enqueue item %s: %w", it.ID, err)
		}
		if err := s.store.MarkItemQueued(ctx, it.ID); err != nil {
			// The task is already on the queue; the worker will move the
			// item to processing regardless.
			s.log.LogWarnf("mark item %s queued: %v", it.ID, err)
		}
	}
	return nil
}

// HandleEnrichTask is the asynq handler. Returning an error hands the task
// back to the queue's retry/backoff policy; terminal item failures return
// nil so the queue does not retry them.
func (s *Service) HandleEnrichTask(ctx context.Context, t *asynq.Task) error {
	var p TaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return s.processItem(ctx, p)
}

// processItem runs one URL to a terminal item state. Safe to re-run for
// the same item: it re-fetches and overwrites the extracted fields.
func (s *Service) processItem(ctx context.Context, p TaskPayload) error {
	// Guaranteed trailer: the recompute runs on every exit path, so the
	// job aggregate converges no matter how this attempt ends. A detached
	// context keeps it alive when the task's own context is already gone.
	defer func() {
		rctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.jobs.RecomputeProgress(rctx, p.JobID); err != nil {
			s.log.LogWarnf("progress recompute for job %s: %v", p.JobID, err)
		}
	}()

	if err := s.store.MarkItemProcessing(ctx, p.ItemID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	if s.cfg.RequestDelay > 0 {
		select {
		case <-time.After(s.cfg.RequestDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	page, err := s.fetch.Fetch(ctx, p.URL)
	if err != nil {
		msg := fetch.Classify(err).Error()
		s.log.LogInfof("item %s fetch failed: %s", p.ItemID, msg)
		if serr := s.store.FailItem(ctx, p.ItemID, msg, time.Now().UTC()); serr != nil {
			// Persistence failure is the one class that retries the
			// whole task rather than failing the item.
			return fmt.Errorf("mark failed: %w", serr)
		}
		return nil
	}

	// Extraction is total: it degrades to nil fields, never fails the item.
	res := s.extract.Extract(page.Body)

	meta := job.FetchMeta{Bytes: page.Bytes, FetchedAt: &page.FetchedAt}
	if err := s.store.CompleteItem(ctx, p.ItemID, res.Company, res.Contacts, meta, time.Now().UTC()); err != nil {
		return fmt.Errorf("persist extraction: %w", err)
	}
	s.log.LogInfof("item %s completed (%d bytes)", p.ItemID, page.Bytes)
	return nil
}
