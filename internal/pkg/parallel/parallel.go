package parallel

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result holds the outcome for a single input. Exactly one of Value/Err is
// meaningful; Index always points back at the originating input.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Map fans fn out over inputs with at most limit calls in flight and returns
// one Result per input, in input order. A failing input is captured in its
// Result and never aborts the rest of the batch; only context cancellation
// stops the fan-out early, and even then every input gets a Result.
func Map[I, O any](ctx context.Context, inputs []I, limit int, fn func(ctx context.Context, in I) (O, error)) []Result[O] {
	out := make([]Result[O], len(inputs))
	if len(inputs) == 0 {
		return out
	}
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range inputs {
		i := i
		out[i].Index = i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					out[i].Err = fmt.Errorf("panic: %v", r)
				}
			}()
			v, err := fn(gctx, inputs[i])
			out[i].Value = v
			out[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Failed returns the indices of inputs whose call failed.
func Failed[T any](results []Result[T]) []int {
	var idx []int
	for i := range results {
		if results[i].Err != nil {
			idx = append(idx, i)
		}
	}
	return idx
}
