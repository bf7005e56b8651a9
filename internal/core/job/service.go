package job

import (
	"context"
	"fmt"

	"enricher/internal/logger"
)

// Service owns job-level reads and the progress recompute. It never
// increments counters: every recompute is an independent read of the item
// snapshot followed by a write of the derived triple, so concurrent calls
// for the same job are safe in any interleaving.
type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(st Store) *Service {
	return &Service{store: st, log: logger.New("JobService")}
}

func (s *Service) Job(ctx context.Context, jobID string) (*Job, error) {
	return s.store.Job(ctx, jobID)
}

func (s *Service) Items(ctx context.Context, jobID string) ([]Item, error) {
	return s.store.Items(ctx, jobID)
}

// RecomputeProgress re-derives processed/failed/status from the current
// items and persists the result. Idempotent: the same snapshot always
// produces the same job row.
func (s *Service) RecomputeProgress(ctx context.Context, jobID string) error {
	j, err := s.store.Job(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	items, err := s.store.Items(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	p := DeriveProgress(j.TotalURLs, items)
	if err := s.store.UpdateJobProgress(ctx, jobID, p); err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}
	s.log.LogDebugf("job %s progress: %d/%d processed, %d failed, status=%s",
		jobID, p.Processed, j.TotalURLs, p.Failed, p.Status)
	return nil
}
