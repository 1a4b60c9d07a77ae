package metrics

import "time"

// FSMetrics collects measurements from the filesystem core: tree mutations,
// attribute buffer traffic, and change notifications.
//
// Implementations must be safe for concurrent use. The filesystem calls
// these methods on hot paths, so implementations should be cheap.
type FSMetrics interface {
	// RecordLookup records a name resolution attempt and whether it hit.
	RecordLookup(found bool)

	// RecordOpen records an attribute file open (one buffer allocated).
	RecordOpen()

	// RecordRelease records an attribute file close (buffer freed).
	RecordRelease()

	// RecordRead records bytes drained from an attribute buffer.
	RecordRead(bytes int)

	// RecordWrite records bytes committed through a store operation.
	RecordWrite(bytes int)

	// RecordFill records one show-operation invocation, its duration, and
	// whether it failed.
	RecordFill(duration time.Duration, failed bool)

	// RecordNotify records a delivered change notification.
	RecordNotify()

	// RecordEntryCreated records a DirEntry added to the tree.
	RecordEntryCreated(kind string)

	// RecordEntryRemoved records a DirEntry unlinked from the tree.
	RecordEntryRemoved(kind string)
}

// noopFSMetrics discards all measurements.
type noopFSMetrics struct{}

// NewNoopFSMetrics returns an FSMetrics implementation that does nothing.
// Used when metrics collection is disabled.
func NewNoopFSMetrics() FSMetrics {
	return noopFSMetrics{}
}

func (noopFSMetrics) RecordLookup(bool)                  {}
func (noopFSMetrics) RecordOpen()                        {}
func (noopFSMetrics) RecordRelease()                     {}
func (noopFSMetrics) RecordRead(int)                     {}
func (noopFSMetrics) RecordWrite(int)                    {}
func (noopFSMetrics) RecordFill(time.Duration, bool)     {}
func (noopFSMetrics) RecordNotify()                      {}
func (noopFSMetrics) RecordEntryCreated(string)          {}
func (noopFSMetrics) RecordEntryRemoved(string)          {}
