package domain

// UpdateState is the lifecycle state of a holder refresh cycle.
type UpdateState string

// UpdateState constants
const (
	UpdateInProgress UpdateState = "in_progress"
	UpdateCompleted  UpdateState = "completed"
	UpdateFailed     UpdateState = "failed"
)

// IsTerminal reports whether the state is final.
func (s UpdateState) IsTerminal() bool {
	return s == UpdateCompleted || s == UpdateFailed
}

// UpdateStatus records one holder refresh cycle.
// Corresponds to holder_updates table in PostgreSQL.
type UpdateStatus struct {
	ID           string         // uuid
	TotalHolders int            // holders written by the cycle
	Status       UpdateState    // in_progress | completed | failed
	Source       SnapshotSource // ledger | fallback, empty until the snapshot is built
	Error        string         // failure message (failed only)
	StartedAt    int64          // cycle start (ms)
	LastUpdated  int64          // last transition (ms)
}
