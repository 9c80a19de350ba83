package ir

// Version constants for the persisted format and the library.
const (
	// FormatVersion is the persisted change/snapshot format version.
	FormatVersion = "1"

	// LibraryVersion is the diffable library version.
	LibraryVersion = "0.1.0"
)
