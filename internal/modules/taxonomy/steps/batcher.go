package steps

// AdaptiveBatcher sizes oracle batches as a pure function of failure
// history: a truncated or malformed response steps the size down two (5 ->
// 3 -> 1), a success steps it back up one toward the starting size. It
// carries no transport state, so it is reusable across any batched call.
type AdaptiveBatcher struct {
	start int
	size  int

	// MaxAttempts bounds retries for a single logical batch.
	MaxAttempts int
}

func NewAdaptiveBatcher(start int) *AdaptiveBatcher {
	if start < 1 {
		start = 1
	}
	return &AdaptiveBatcher{start: start, size: start, MaxAttempts: 3}
}

func (b *AdaptiveBatcher) Size() int { return b.size }

// Shrink records a failure and returns the next batch size.
func (b *AdaptiveBatcher) Shrink() int {
	b.size -= 2
	if b.size < 1 {
		b.size = 1
	}
	return b.size
}

// Restore records a success and returns the next batch size.
func (b *AdaptiveBatcher) Restore() int {
	if b.size < b.start {
		b.size++
	}
	return b.size
}
