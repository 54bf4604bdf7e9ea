package sim

import (
	"context"
	"sync"
)

// Sweep runs a set of scenarios concurrently, one independent
// controller/plant pair per scenario.
type Sweep struct {
	build func() *Simulator
}

// NewSweep takes a factory because simulators hold per-run rolling state
// and must never be shared between goroutines.
func NewSweep(build func() *Simulator) *Sweep {
	return &Sweep{build: build}
}

func (e *Sweep) Run(ctx context.Context, scenarios []Scenario) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	errs := make([]error, len(scenarios))

	var wg sync.WaitGroup
	for i := range scenarios {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = e.build().Run(ctx, scenarios[idx])
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
