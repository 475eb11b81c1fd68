// Package parallel provides the bounded fan-out/join used during training.
//
// Work over an index range [0, n) is split into contiguous, nearly equal chunks
// by Partition; Run executes one task per chunk and blocks until all of them
// finish. Tasks must only write to disjoint parts of shared slices.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// Range is a half-open index interval [Start, End).
type Range struct {
	Start, End int
}

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.End - r.Start }

// DefaultWorkers returns the worker budget used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// Partition splits [0, n) into at most workers contiguous chunks whose sizes
// differ by at most one; the first n%chunks chunks receive the extra element.
// It returns nil when n <= 0.
func Partition(n, workers int) []Range {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	size := n / workers
	remainder := n % workers
	chunks := make([]Range, workers)
	start := 0
	for i := range chunks {
		end := start + size
		if i < remainder {
			end++
		}
		chunks[i] = Range{Start: start, End: end}
		start = end
	}
	return chunks
}

// Run partitions [0, n) for the given worker budget and calls fn once per
// chunk. With a budget of one the single chunk runs on the calling goroutine.
// The first error (or recovered panic) from any chunk is returned after every
// chunk has completed.
func Run(workers, n int, op string, fn func(start, end int) error) error {
	chunks := Partition(n, workers)
	switch len(chunks) {
	case 0:
		return nil
	case 1:
		return errors.SafeExecute(op, func() error { return fn(chunks[0].Start, chunks[0].End) })
	}

	var g errgroup.Group
	for _, c := range chunks {
		g.Go(func() error {
			return errors.SafeExecute(op, func() error { return fn(c.Start, c.End) })
		})
	}
	return g.Wait()
}

// ForEach runs fn for every index in [0, n) using Run. It is a convenience for
// loops whose body is independent per index.
func ForEach(workers, n int, op string, fn func(i int) error) error {
	return Run(workers, n, op, func(start, end int) error {
		for i := start; i < end; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	})
}
