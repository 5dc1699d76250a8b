package query

import (
	"sync"

	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/evalerr"
)

// batchFunc filters candidates [lo, hi) into out using arena a, appending
// candidate positions (or row numbers for path filters).
type batchFunc func(lo, hi int, a *arena.Arena, out []int) ([]int, error)

// runStats describes one filter run.
type runStats struct {
	workers   int
	arenaPeak int64
}

// runParallel filters n candidates with fn, splitting them across workers
// when the batch is large enough. Results are merged in candidate order.
// Falls back to one worker if parallelism is disabled or the batch is small.
func (q *Query) runParallel(n int, fn batchFunc) ([]int, runStats, error) {
	cfg := q.engine.cfg.Parallel
	if !cfg.Enabled || n < cfg.MinBatchSize || cfg.MaxWorkers <= 1 {
		out, peak, err := q.work(0, n, fn)
		return out, runStats{workers: 1, arenaPeak: peak}, err
	}

	numWorkers := cfg.MaxWorkers
	if numWorkers > n {
		numWorkers = n
	}
	chunkSize := (n + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	results := make([][]int, numWorkers)
	peaks := make([]int64, numWorkers)
	errs := make([]error, numWorkers)

	launched := 0
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if start >= n {
			break
		}
		if end > n {
			end = n
		}

		launched++
		wg.Add(1)
		go func(workerID, start, end int) {
			defer wg.Done()
			results[workerID], peaks[workerID], errs[workerID] = q.work(start, end, fn)
		}(i, start, end)
	}

	wg.Wait()

	// rounding up the chunk size can leave trailing workers without a chunk
	stats := runStats{workers: launched}
	for i, err := range errs {
		if err != nil {
			return nil, stats, err
		}
		if peaks[i] > stats.arenaPeak {
			stats.arenaPeak = peaks[i]
		}
	}

	// Merge results
	totalSize := 0
	for _, r := range results {
		totalSize += len(r)
	}
	merged := make([]int, 0, totalSize)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, stats, nil
}

// work filters [lo, hi) on one goroutine with an arena from the pool, reset
// every ResetEvery candidates. An arena that runs out of budget panics; the
// panic becomes the worker's error.
func (q *Query) work(lo, hi int, fn batchFunc) (out []int, peak int64, err error) {
	a := q.engine.pool.Get()
	defer q.engine.pool.Put(a)
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*evalerr.Error)
			if !ok || e.Kind != evalerr.KindAllocationExhausted {
				panic(r)
			}
			out, err = nil, e
		}
	}()

	step := q.engine.cfg.Arena.ResetEvery
	if step <= 0 {
		step = hi - lo
	}
	out = make([]int, 0, (hi-lo)/4) // Estimate 25% pass rate
	for s := lo; s < hi; s += step {
		end := s + step
		if end > hi {
			end = hi
		}
		if out, err = fn(s, end, a, out); err != nil {
			return nil, peak, err
		}
		if used := a.Stats().Used; used > peak {
			peak = used
		}
		a.Reset()
	}
	return out, peak, nil
}
