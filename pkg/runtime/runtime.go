// Package runtime implements the parallelism model named in spec.md
// §5: a worker-pool scheduler that fans pointwise protocol primitives
// out across threads, the direct generalization of the teacher's
// pkg/pool.Pool (used throughout its keygen/sign/reshare rounds).
package runtime

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Runtime batches pointwise work across a bounded number of worker
// goroutines. A nil *Runtime is valid and runs everything on the
// calling goroutine (useful for small batches and for deterministic
// tests).
type Runtime struct {
	workers int
	batch   int
}

// New returns a Runtime with the given worker count and batch
// threshold: a call over n <= batch elements runs on the calling
// goroutine, a larger one is split across up to workers goroutines
// (whose slices may each be smaller than batch).
func New(workers, batch int) *Runtime {
	if workers < 1 {
		workers = 1
	}
	if batch < 1 {
		batch = 1
	}
	return &Runtime{workers: workers, batch: batch}
}

func (r *Runtime) workerCount(n int) int {
	if r == nil || r.workers <= 1 || n <= r.batch {
		return 1
	}
	w := r.workers
	if w > n {
		w = n
	}
	return w
}

// ExecuteParallelUnsafe runs body(lo, hi) over disjoint [lo,hi) slices
// that partition [0,n), across up to r.workers goroutines. body must
// be safe to call concurrently on disjoint ranges — it is CPU-bound
// local work (e.g. local_apply_perm) that never re-enters the
// protocol layer, per spec.md §5.
func (r *Runtime) ExecuteParallelUnsafe(n int, body func(lo, hi int)) error {
	workers := r.workerCount(n)
	if workers == 1 {
		body(0, n)
		return nil
	}
	chunk := (n + workers - 1) / workers
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			body(lo, hi)
			return nil
		})
	}
	return g.Wait()
}

// ExecuteParallel dispatches a pointwise protocol primitive `fn` over
// equal-length batches of a single input, writing into out. fn must be
// associative-with-batch-split: independent per index.
func ExecuteParallel[In, Out any](r *Runtime, in []In, out []Out, fn func(lo, hi int, in []In, out []Out) error) error {
	n := len(in)
	if len(out) != n {
		panic("runtime: execute_parallel requires equal-length in/out")
	}
	workers := r.workerCount(n)
	if workers == 1 {
		return fn(0, n, in, out)
	}
	chunk := (n + workers - 1) / workers
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			return fn(lo, hi, in, out)
		})
	}
	return g.Wait()
}

// ExecuteParallel2 is the two-input form (lhs, rhs, out) used by
// binary protocol primitives (multiplication, AND, ...).
func ExecuteParallel2[A, B, Out any](r *Runtime, a []A, b []B, out []Out, fn func(lo, hi int, a []A, b []B, out []Out) error) error {
	n := len(a)
	if len(b) != n || len(out) != n {
		panic("runtime: execute_parallel2 requires equal-length a/b/out")
	}
	workers := r.workerCount(n)
	if workers == 1 {
		return fn(0, n, a, b, out)
	}
	chunk := (n + workers - 1) / workers
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			return fn(lo, hi, a, b, out)
		})
	}
	return g.Wait()
}

// ModifyParallel applies method in place over batches of v.
func ModifyParallel[T any](r *Runtime, v []T, method func(lo, hi int, v []T) error) error {
	n := len(v)
	workers := r.workerCount(n)
	if workers == 1 {
		return method(0, n, v)
	}
	chunk := (n + workers - 1) / workers
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			return method(lo, hi, v)
		})
	}
	return g.Wait()
}
