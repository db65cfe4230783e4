package signaling

// WithCodeSource replaces the random code generator.
func WithCodeSource(next func() string) Option {
	return func(h *Hub) { h.newCode = next }
}
