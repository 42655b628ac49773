package storage

// VisitedStore is the per-run set of URLs the frontier has already dequeued.
// A key enters at most once; nothing survives past Close.
type VisitedStore interface {
	// MarkVisited records key. Returns true if it was newly added,
	// false if it was already present.
	MarkVisited(key string) (added bool, err error)

	// IsVisited reports whether key has been recorded
	IsVisited(key string) (bool, error)

	// Count returns the number of recorded keys
	Count() int

	// Close releases the store's resources
	Close() error
}
