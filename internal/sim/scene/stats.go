package scene

// Stats counts notable sync events. It is mutated only on the scene loop
// goroutine; callers take a value copy via Scene.StatsSnapshot.
type Stats struct {
	Frames        uint64
	ReportsSent   uint64
	Anomalies     uint64
	RejectedMoves uint64
	Lookups       uint64
	Placeholders  uint64
	DedupReleased uint64
	ZoneChanges   uint64
}
