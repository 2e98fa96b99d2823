// Package registry implements the fixed-size instance table of spec §4.4,
// modeled on the teacher's cache.Cache: a small fixed-capacity map guarded
// by one mutex, handing back an opaque small-integer handle instead of an
// owning value so other components (a CLI, an FFI boundary) can identify a
// mounted instance by a plain integer.
package registry

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mit-pdos/flashjournal/txn"
)

// MaxHandles bounds the registry at compile time, spec §4.4 ("at least 8").
const MaxHandles = 16

// Handle is a small, wire-compatible instance identifier. -1 is reserved
// for "invalid", spec §9.
type Handle int32

// InvalidHandle is never a valid registry slot.
const InvalidHandle Handle = -1

var (
	ErrInvalidArgument = errors.New("registry: invalid argument")
	ErrNotFound        = errors.New("registry: not found")
	ErrNoMemory        = errors.New("registry: table full")
)

// Registry is process-wide state: the table and its mutex initialize
// lazily via New and persist for as long as the caller holds the value,
// mirroring spec §9's "process-wide state ... initialises lazily on first
// mount and persists for process lifetime" -- here expressed as ordinary
// Go state rather than a package-level global, so tests can run several
// registries in parallel.
type Registry struct {
	mu    sync.Mutex
	slots [MaxHandles]*txn.Engine
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Insert finds the lowest free slot, stores e in it, and returns its
// handle. Returns ErrNoMemory if the table is full.
func (r *Registry) Insert(e *txn.Engine) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if r.slots[i] == nil {
			r.slots[i] = e
			return Handle(i), nil
		}
	}
	return InvalidHandle, ErrNoMemory
}

// Remove clears handle's slot. Returns ErrNotFound if it was already
// empty.
func (r *Registry) Remove(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h < 0 || int(h) >= MaxHandles {
		return ErrInvalidArgument
	}
	if r.slots[h] == nil {
		return ErrNotFound
	}
	r.slots[h] = nil
	return nil
}

// Get validates and returns the engine registered under handle. Every
// non-mount/unmount API call goes through this, spec §4.4.
func (r *Registry) Get(h Handle) (*txn.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h < 0 || int(h) >= MaxHandles {
		return nil, ErrInvalidArgument
	}
	e := r.slots[h]
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}
