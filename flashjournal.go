// Package flashjournal exposes the engine API surface of spec §6: the
// small set of functions a file-system adapter calls to mount a journal
// instance and route its writes through it. It is the glue file, the
// analog of the teacher's nfs.go, that wires blockdev, store, txn, and
// registry together behind one process-wide table of handles.
package flashjournal

import (
	"github.com/mit-pdos/flashjournal/blockdev"
	"github.com/mit-pdos/flashjournal/registry"
	"github.com/mit-pdos/flashjournal/txn"
)

// Handle identifies one mounted journal instance.
type Handle = registry.Handle

// Config is the journal configuration supplied at Mount, spec §3.
type Config = txn.Config

// global is the process-wide instance table (spec §9's process-wide
// state). It is created empty when the package is initialized, not on the
// first Mount, and persists for the process lifetime. Package-level state
// is unavoidable here because Mount/Unmount
// are free functions taking and returning plain integers, matching the
// wire-compatible handle form spec §9 calls out as the alternative to an
// owning-value design.
var global = registry.New()

// Mount registers dev as a new journal instance and returns its handle.
func Mount(dev blockdev.BlockDevice, cfg Config) (Handle, error) {
	e, err := txn.Mount(dev, cfg)
	if err != nil {
		return registry.InvalidHandle, err
	}
	h, err := global.Insert(e)
	if err != nil {
		return registry.InvalidHandle, err
	}
	return h, nil
}

// Unmount removes h from the registry. It does not flush or validate
// engine state; a caller must have already ended any open transaction.
func Unmount(h Handle) error {
	return global.Remove(h)
}

// TransactionBegin starts a new transaction on h, spec §4.3(a).
func TransactionBegin(h Handle) error {
	e, err := global.Get(h)
	if err != nil {
		return err
	}
	return e.Begin()
}

// TransactionEnd retires the open transaction on h, spec §4.3(c)/(d).
func TransactionEnd(h Handle, commit bool) error {
	e, err := global.Get(h)
	if err != nil {
		return err
	}
	return e.End(commit)
}

// Write buffers or passes through count sectors of buf to targetSector on
// h, spec §4.3(b).
func Write(h Handle, targetSector uint64, buf []byte, count uint64) error {
	e, err := global.Get(h)
	if err != nil {
		return err
	}
	return e.Write(buf, targetSector, count)
}

// Read passes through a read from the file-system area of h, spec §4.3(f).
func Read(h Handle, targetSector uint64, buf []byte, count uint64) error {
	e, err := global.Get(h)
	if err != nil {
		return err
	}
	return e.Read(targetSector, count, buf)
}

// SetDirectIO brackets format operations on h, spec §4.3(e).
func SetDirectIO(h Handle, on bool) error {
	e, err := global.Get(h)
	if err != nil {
		return err
	}
	return e.SetDirectIO(on)
}

// QuerySectorCount returns the file-system-visible sector count of h: the
// underlying device's sectors minus the journal store's reservation.
func QuerySectorCount(h Handle) (uint64, error) {
	e, err := global.Get(h)
	if err != nil {
		return 0, err
	}
	return e.QuerySectorCount(), nil
}

// QuerySectorSize returns h's sector size in bytes.
func QuerySectorSize(h Handle) (uint64, error) {
	e, err := global.Get(h)
	if err != nil {
		return 0, err
	}
	return e.QuerySectorSize(), nil
}
