package statestore

// Persister is the optional pluggable persistence interface the core may
// use to opaquely snapshot zone/client state. The core never requires a
// Persister to function — it exists purely so a collaborator can survive a
// restart with warm state if it chooses to wire one in.
type Persister interface {
	// Load returns the last persisted snapshot, or nil if none exists.
	Load() (map[int][]byte, error)

	// Save schedules (or performs) a persist of the given snapshot.
	// Implementations may debounce rapid calls.
	Save(snapshot map[int][]byte) error

	// Flush forces any pending debounced write to complete.
	Flush() error
}
