// Package fsadapter is the thin wiring spec §2 describes as the file
// system's collaborator: it translates the underlying device's sector
// count by subtracting the journal store's reservation, and routes each
// write either directly (while formatting/mounting) or through the
// transaction engine (steady state). It has no algorithm of its own; it
// exists so the engine's public contract is exercised from something that
// resembles the real caller, the way the teacher's simple package drives
// its NFS server as an NFS client would.
package fsadapter

import (
	"github.com/mit-pdos/flashjournal"
	"github.com/mit-pdos/flashjournal/blockdev"
)

// Volume is a mounted file-system-facing view of a journaled device.
type Volume struct {
	handle flashjournal.Handle
}

// Mount opens dev as a journaled volume with cfg, the moment a real FAT
// driver would call transaction-engine mount before beginning its own
// on-disk format/mount dance.
func Mount(dev blockdev.BlockDevice, cfg flashjournal.Config) (*Volume, error) {
	h, err := flashjournal.Mount(dev, cfg)
	if err != nil {
		return nil, err
	}
	return &Volume{handle: h}, nil
}

// Unmount releases the volume's handle.
func (v *Volume) Unmount() error {
	return flashjournal.Unmount(v.handle)
}

// SectorCount is what the file system should report as its own disk size:
// the underlying device's sectors minus the store's reservation.
func (v *Volume) SectorCount() (uint64, error) {
	return flashjournal.QuerySectorCount(v.handle)
}

// SectorSize is the file system's block size.
func (v *Volume) SectorSize() (uint64, error) {
	return flashjournal.QuerySectorSize(v.handle)
}

// Format brackets a run of direct, unjournaled writes with SetDirectIO,
// for the file system's own format/mkfs pass.
func (v *Volume) Format(do func() error) error {
	if err := flashjournal.SetDirectIO(v.handle, true); err != nil {
		return err
	}
	if err := do(); err != nil {
		return err
	}
	return flashjournal.SetDirectIO(v.handle, false)
}

// Call brackets one file-system API call (create, write, rename, unlink,
// truncate, mkdir, utime, ...) in a journal transaction: every write
// issued from within do is buffered by the engine and only lands at its
// final address once do returns successfully and the transaction commits.
// If do returns an error, the transaction is cancelled and none of its
// writes take effect.
func (v *Volume) Call(do func(write func(targetSector uint64, buf []byte, count uint64) error) error) error {
	if err := flashjournal.TransactionBegin(v.handle); err != nil {
		return err
	}

	write := func(targetSector uint64, buf []byte, count uint64) error {
		return flashjournal.Write(v.handle, targetSector, buf, count)
	}

	err := do(write)
	if err != nil {
		if endErr := flashjournal.TransactionEnd(v.handle, false); endErr != nil {
			return endErr
		}
		return err
	}
	return flashjournal.TransactionEnd(v.handle, true)
}

// Read passes a read straight through to the underlying device.
func (v *Volume) Read(targetSector uint64, buf []byte, count uint64) error {
	return flashjournal.Read(v.handle, targetSector, buf, count)
}
