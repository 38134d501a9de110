// Package metrics holds the small set of atomic counters the engine and
// table parsers update as they work. It intentionally stops short of a
// push-based metrics system (out of scope per spec's "does not persist
// state" non-goal): callers poll Snapshot() instead.
package metrics

import "sync/atomic"

// Counters tracks ingestion-pipeline activity. All fields are safe for
// concurrent use; a single process-wide instance is normally shared by an
// Engine and every table parser it drives.
type Counters struct {
	PacketsSeen          atomic.Int64
	PacketsDroppedError  atomic.Int64
	SectionsAccepted     atomic.Int64
	SectionsRejectedCRC  atomic.Int64
	SectionsRejectedLen  atomic.Int64
	SectionsDuplicate    atomic.Int64
	TablesSuperseded     atomic.Int64
	ContinuityDiscards   atomic.Int64
}

// Snapshot is a point-in-time copy of Counters' values, safe to log or
// serialize.
type Snapshot struct {
	PacketsSeen         int64
	PacketsDroppedError int64
	SectionsAccepted    int64
	SectionsRejectedCRC int64
	SectionsRejectedLen int64
	SectionsDuplicate   int64
	TablesSuperseded    int64
	ContinuityDiscards  int64
}

// Snapshot returns a consistent-enough point-in-time copy for logging or
// a status endpoint; individual fields may interleave with concurrent
// increments, which is acceptable for a diagnostics counter.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		PacketsSeen:         c.PacketsSeen.Load(),
		PacketsDroppedError: c.PacketsDroppedError.Load(),
		SectionsAccepted:    c.SectionsAccepted.Load(),
		SectionsRejectedCRC: c.SectionsRejectedCRC.Load(),
		SectionsRejectedLen: c.SectionsRejectedLen.Load(),
		SectionsDuplicate:   c.SectionsDuplicate.Load(),
		TablesSuperseded:    c.TablesSuperseded.Load(),
		ContinuityDiscards:  c.ContinuityDiscards.Load(),
	}
}
