package types

// RecordKind classifies an attendance record as an arrival or a departure.
type RecordKind string

const (
	KindEntry RecordKind = "ENTRY"
	KindExit  RecordKind = "EXIT"
)

// Valid reports whether k is one of the two known kinds.
func (k RecordKind) Valid() bool {
	return k == KindEntry || k == KindExit
}

// Opposite returns the alternating kind (ENTRY -> EXIT, EXIT -> ENTRY).
func (k RecordKind) Opposite() RecordKind {
	if k == KindEntry {
		return KindExit
	}
	return KindEntry
}
