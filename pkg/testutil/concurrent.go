package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "relaygate/pkg/domain-errors"
	"relaygate/pkg/platform/sentinel"
)

// ConcurrentResult counts how the callers of RunConcurrent finished.
type ConcurrentResult struct {
	Successes   int32
	Limited     int32
	Unavailable int32
	NotFounds   int32
	Errors      int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Limited + r.Unavailable + r.NotFounds + r.Errors
}

// RunConcurrent starts n goroutines, releases them together so they contend
// on the same keys, and classifies each returned error.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		counts [5]atomic.Int32
		start  = make(chan struct{})
		wg     sync.WaitGroup
	)
	for i := range n {
		wg.Go(func() {
			<-start
			counts[classify(fn(i))].Add(1)
		})
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes:   counts[0].Load(),
		Limited:     counts[1].Load(),
		Unavailable: counts[2].Load(),
		NotFounds:   counts[3].Load(),
		Errors:      counts[4].Load(),
	}
}

func classify(err error) int {
	switch {
	case err == nil:
		return 0
	case dErrors.HasCode(err, dErrors.CodeRateLimited):
		return 1
	case errors.Is(err, sentinel.ErrUnavailable), dErrors.HasCode(err, dErrors.CodeUnavailable):
		return 2
	case errors.Is(err, sentinel.ErrNotFound), dErrors.HasCode(err, dErrors.CodeNotFound):
		return 3
	default:
		return 4
	}
}
