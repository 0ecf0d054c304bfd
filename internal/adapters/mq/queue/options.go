package queue

// Option tunes an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds how many notifications wait for a worker before
// Enqueue reports ErrFull. Non-positive values keep the default of 256.
func WithCapacity(n int) Option {
	return func(q *InMemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}
