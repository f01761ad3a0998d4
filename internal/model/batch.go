package model

import "time"

// BatchStatus represents the current state of a batch job.
type BatchStatus string

const (
	BatchQueued     BatchStatus = "queued"
	BatchProcessing BatchStatus = "processing"
	BatchPaused     BatchStatus = "paused"
	BatchCancelled  BatchStatus = "cancelled"
	BatchCompleted  BatchStatus = "completed"
)

// Terminal reports whether no further transitions are possible.
func (s BatchStatus) Terminal() bool {
	return s == BatchCancelled || s == BatchCompleted
}

// CanTransition reports whether the state machine permits moving from s
// to next. Completed and Cancelled are terminal; Paused can resume or be
// cancelled; a queued batch must start processing before anything else.
func (s BatchStatus) CanTransition(next BatchStatus) bool {
	switch s {
	case BatchQueued:
		return next == BatchProcessing || next == BatchCancelled
	case BatchProcessing:
		return next == BatchPaused || next == BatchCancelled || next == BatchCompleted
	case BatchPaused:
		return next == BatchProcessing || next == BatchCancelled
	default:
		return false
	}
}

// MemberStatus represents the per-artist state inside a batch.
type MemberStatus string

const (
	MemberPending MemberStatus = "pending"
	MemberDone    MemberStatus = "done"
	MemberFailed  MemberStatus = "failed"
	MemberSkipped MemberStatus = "skipped"
)

// BatchJob is one queued enrichment job over a fixed set of artists.
// Members are assigned once at creation and are immutable thereafter.
// Invariant: Completed+Failed+Skipped never exceeds TotalArtists, and the
// status is BatchCompleted iff the sum equals TotalArtists.
type BatchJob struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	TotalArtists int         `json:"total_artists"`
	Completed    int         `json:"completed"`
	Failed       int         `json:"failed"`
	Skipped      int         `json:"skipped"`
	EmailsFound  int         `json:"emails_found"`
	Status       BatchStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

// Processed returns how many members have reached a terminal status.
func (b *BatchJob) Processed() int {
	return b.Completed + b.Failed + b.Skipped
}

// BatchMember is the unit the orchestrator advances. Position is the
// claim order, fixed at batch creation. Status is persisted before the
// next member is claimed so progress survives crashes.
type BatchMember struct {
	BatchID      string       `json:"batch_id"`
	ArtistID     string       `json:"artist_id"`
	Position     int          `json:"position"`
	Status       MemberStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	FailureClass string       `json:"failure_class,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// BatchSnapshot is the per-tick telemetry payload describing a batch.
type BatchSnapshot struct {
	Batch     BatchJob  `json:"batch"`
	Pending   int       `json:"pending"`
	Timestamp time.Time `json:"timestamp"`
}
