package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
)

// Hooks carries the caller-provided callbacks. Implementations must be
// non-blocking; panics inside a hook are recovered and logged, never aborting
// the run.
type Hooks struct {
	OnProgress func(dto.ProgressEvent)
	OnComplete func(*dto.GenerationResult)
	OnError    func(error)
}

func (h Hooks) EmitProgress(logger *zap.Logger, event dto.ProgressEvent) {
	if h.OnProgress == nil {
		return
	}
	defer recoverHook(logger, "progress")
	h.OnProgress(event)
}

func (h Hooks) EmitComplete(logger *zap.Logger, result *dto.GenerationResult) {
	if h.OnComplete == nil {
		return
	}
	defer recoverHook(logger, "complete")
	h.OnComplete(result)
}

func (h Hooks) EmitError(logger *zap.Logger, err error) {
	if h.OnError == nil {
		return
	}
	defer recoverHook(logger, "error")
	h.OnError(err)
}

func recoverHook(logger *zap.Logger, hook string) {
	if r := recover(); r != nil && logger != nil {
		logger.Warn("generation hook panicked", zap.String("hook", hook), zap.Any("panic", r))
	}
}

// Control is the shared cooperative cancellation flag. Engines check it at
// the top of each outer iteration.
type Control struct {
	cancelled atomic.Bool
}

// NewControl builds a cancellation handle.
func NewControl() *Control { return &Control{} }

// Cancel requests cooperative termination.
func (c *Control) Cancel() { c.cancelled.Store(true) }

// Cancelled reports whether termination was requested.
func (c *Control) Cancelled() bool { return c.cancelled.Load() }

// Outcome is the raw product of an engine run, before formatting.
type Outcome struct {
	Best        *Candidate
	Algorithm   string
	Generations int
	Iterations  int
	Cancelled   bool
}

// Engine is the common search capability shared by the genetic and hybrid
// variants.
type Engine interface {
	Run(ctx context.Context) (*Outcome, error)
}

// evalPopulation scores every unevaluated candidate, fanning out across a
// bounded worker pool. Evaluation is pure, so concurrent scoring preserves
// determinism.
func evalPopulation(p *Problem, pop []*Candidate, workers int) {
	if workers <= 1 || len(pop) < 2 {
		for _, c := range pop {
			p.Score(c)
		}
		return
	}
	if workers > len(pop) {
		workers = len(pop)
	}
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				p.Score(pop[i])
			}
		}()
	}
	for i := range pop {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
}

func cancelled(ctx context.Context, control *Control) bool {
	if control != nil && control.Cancelled() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
