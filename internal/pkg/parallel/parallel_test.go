package parallel

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
)

func TestMapPreservesInputOrder(t *testing.T) {
	inputs := []int{0, 1, 2, 3, 4, 5, 6, 7}
	results := Map(context.Background(), inputs, 4, func(_ context.Context, n int) (string, error) {
		return strconv.Itoa(n * 10), nil
	})
	if len(results) != len(inputs) {
		t.Fatalf("got %d results, want %d", len(results), len(inputs))
	}
	for i, r := range results {
		if r.Index != i || r.Err != nil || r.Value != strconv.Itoa(i*10) {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
	}
}

func TestMapCapturesErrorsWithoutAborting(t *testing.T) {
	boom := errors.New("boom")
	inputs := []int{0, 1, 2, 3}
	var calls atomic.Int32
	results := Map(context.Background(), inputs, 2, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		if n == 1 {
			return 0, boom
		}
		return n, nil
	})
	if got := calls.Load(); got != 4 {
		t.Fatalf("one failure must not stop the rest, ran %d of 4", got)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0] != 1 {
		t.Fatalf("failed indices = %v", failed)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Fatalf("error not captured: %v", results[1].Err)
	}
	if results[3].Err != nil || results[3].Value != 3 {
		t.Fatalf("later input corrupted: %+v", results[3])
	}
}

func TestMapRecoversPanics(t *testing.T) {
	results := Map(context.Background(), []int{0, 1}, 1, func(_ context.Context, n int) (int, error) {
		if n == 0 {
			panic("worker exploded")
		}
		return n, nil
	})
	if results[0].Err == nil {
		t.Fatalf("panic not converted into an error")
	}
	if results[1].Err != nil {
		t.Fatalf("healthy input affected by sibling panic: %v", results[1].Err)
	}
}

func TestMapHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inputs := make([]int, 16)
	results := Map(ctx, inputs, 2, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	if len(results) != len(inputs) {
		t.Fatalf("every input must still get a result, got %d", len(results))
	}
}

func TestMapEmptyAndLimitClamp(t *testing.T) {
	if got := Map(context.Background(), nil, 3, func(_ context.Context, n int) (int, error) { return n, nil }); len(got) != 0 {
		t.Fatalf("empty input should yield empty results")
	}
	// limit <= 0 clamps to 1 instead of panicking.
	results := Map(context.Background(), []int{1, 2}, 0, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
	}
}
