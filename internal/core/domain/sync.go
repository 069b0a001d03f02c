package domain

import "time"

// SyncPhase represents where a sync invocation is in its lifecycle
type SyncPhase string

const (
	SyncPhaseNeedsRefresh SyncPhase = "needs_refresh"
	SyncPhaseFetching     SyncPhase = "fetching"
	SyncPhaseUpserting    SyncPhase = "upserting"
	SyncPhaseDone         SyncPhase = "done"
	SyncPhaseFailed       SyncPhase = "failed"
)

// SyncResult is the outcome of one sync invocation. It is ephemeral - the
// durable artifact is the HealthRecord row the sync upserted, and each
// trigger adapter shapes its own response from it.
type SyncResult struct {
	Steps     int
	Calories  int
	NoData    bool
	Succeeded bool
	Timestamp time.Time
}
