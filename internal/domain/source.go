package domain

// SnapshotSource identifies where a holder snapshot came from.
type SnapshotSource string

const (
	// SourceLedger marks a snapshot built from ledger data.
	SourceLedger SnapshotSource = "ledger"
	// SourceFallback marks a synthetic snapshot generated while the ledger was unusable.
	SourceFallback SnapshotSource = "fallback"
)

// String returns the string representation of SnapshotSource.
func (s SnapshotSource) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s SnapshotSource) IsValid() bool {
	return s == SourceLedger || s == SourceFallback
}
