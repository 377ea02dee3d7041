package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithCapacity bounds the number of teams kept. When full, the lowest
// ranked team is evicted. Zero or negative means unbounded.
func WithCapacity(n int) Option {
	return func(s *TreapStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}
