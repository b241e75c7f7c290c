package experiment

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/traitfield/internal/config"
)

// Ensemble runs the same config with consecutive seeds in parallel. Each run
// owns its engine, so no state is shared between goroutines.
type Ensemble struct {
	cfg       *config.Config
	registry  *Registry
	numRuns   int
	seedStart int64
	logger    *zap.Logger
}

func NewEnsemble(cfg *config.Config, registry *Registry, numRuns int, seedStart int64, logger *zap.Logger) *Ensemble {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ensemble{cfg: cfg, registry: registry, numRuns: numRuns, seedStart: seedStart, logger: logger}
}

func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := e.cfg.Clone()
			cfgCopy.Seed = e.seedStart + int64(idx)

			exp := New(cfgCopy, WithLogger(e.logger.With(zap.Int64("seed", cfgCopy.Seed))), WithRecordEvery(cfgCopy.Steps+1))
			if err := exp.Setup(e.registry.DefaultMetrics()); err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = exp.Run(ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
