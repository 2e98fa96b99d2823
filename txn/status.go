package txn

import "github.com/mit-pdos/flashjournal/store"

// Status is the in-memory transaction state, spec §4.3. It has one more
// value than the on-disk store.Status: Init and Ready are interchangeable
// on disk (both serialize to store.StatusReady) but are distinguished in
// memory because Init enables the unjournaled passthrough write path used
// while the file system is being formatted or mounted.
type Status int

const (
	StatusInit Status = iota
	StatusReady
	StatusOpen
	StatusCommit
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "INIT"
	case StatusReady:
		return "READY"
	case StatusOpen:
		return "OPEN"
	case StatusCommit:
		return "COMMIT"
	default:
		return "UNKNOWN"
	}
}

// toWire maps the in-memory status to the on-disk representation.
func toWire(s Status) store.Status {
	switch s {
	case StatusOpen:
		return store.StatusOpen
	case StatusCommit:
		return store.StatusCommit
	default:
		return store.StatusReady
	}
}

// fromWire maps a persisted status back to memory. A persisted
// store.StatusReady always becomes StatusReady, never StatusInit: Init is
// only ever entered explicitly, by Mount or SetDirectIO(true), not
// inferred from what was on disk.
func fromWire(s store.Status) (Status, bool) {
	switch s {
	case store.StatusReady:
		return StatusReady, true
	case store.StatusOpen:
		return StatusOpen, true
	case store.StatusCommit:
		return StatusCommit, true
	default:
		return 0, false
	}
}
