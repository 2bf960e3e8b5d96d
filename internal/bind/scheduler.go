package bind

import (
	"context"
	"sync"

	"github.com/mbelgin/ngm-binder/internal/domain"
	"github.com/mbelgin/ngm-binder/internal/observability"
)

// Scheduler fans issue folders out to a bounded worker pool and collects
// the outcomes. Collection happens on a single goroutine, so OnOutcome
// never runs concurrently with itself.
type Scheduler struct {
	binder  IssueBinder
	workers int
	logger  *observability.Logger

	// OnOutcome, when set, is called once per finished issue with the
	// running completion count. Ordering follows completion, not input,
	// when more than one worker runs.
	OnOutcome func(completed, total int, outcome domain.ConversionOutcome)
}

// NewScheduler creates a scheduler running at most workers conversions at
// once. Workers below one are clamped to sequential processing.
func NewScheduler(binder IssueBinder, workers int, logger *observability.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Scheduler{binder: binder, workers: workers, logger: logger}
}

// Run converts every folder and returns the outcomes in input order. A
// failing issue never stops the others; cancellation of ctx drains the
// remaining work as failed outcomes.
func (s *Scheduler) Run(ctx context.Context, folders []domain.IssueFolder) []domain.ConversionOutcome {
	total := len(folders)
	if total == 0 {
		return nil
	}

	s.logger.Info().
		Int("issues", total).
		Int("workers", s.workers).
		Msg("starting conversion run")

	outcomes := make([]domain.ConversionOutcome, total)

	if s.workers == 1 || total == 1 {
		for i, folder := range folders {
			outcomes[i] = s.binder.Bind(ctx, folder)
			s.notify(i+1, total, outcomes[i])
		}
		return outcomes
	}

	type job struct {
		idx    int
		folder domain.IssueFolder
	}
	type result struct {
		idx     int
		outcome domain.ConversionOutcome
	}

	jobs := make(chan job, total)
	results := make(chan result, total)
	for i, folder := range folders {
		jobs <- job{idx: i, folder: folder}
	}
	close(jobs)

	workers := s.workers
	if workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- result{idx: j.idx, outcome: s.binder.Bind(ctx, j.folder)}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for r := range results {
		outcomes[r.idx] = r.outcome
		completed++
		s.notify(completed, total, r.outcome)
	}
	return outcomes
}

func (s *Scheduler) notify(completed, total int, outcome domain.ConversionOutcome) {
	if s.OnOutcome != nil {
		s.OnOutcome(completed, total, outcome)
	}
}

// Summarize tallies outcomes by status.
func Summarize(outcomes []domain.ConversionOutcome) map[domain.Status]int {
	counts := make(map[domain.Status]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}
