// Package txn implements the transaction engine: the state machine that
// buffers a file-system call's worth of block writes into the journal
// store and, on commit, replays them to their final addresses. This is
// spec §4.3, the core of the repository.
package txn

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/mit-pdos/flashjournal/blockdev"
	"github.com/mit-pdos/flashjournal/store"
)

// Engine is one mounted journal instance. Every transactional operation
// (Begin, Write, End, SetDirectIO) is serialized by mu, the per-instance
// mutex of spec §5; the recovery run at Mount does not take mu, but runs
// before the Engine is returned to any caller. A commit is held to
// be atomic from the caller's perspective, so the mutex is held across the
// full replay rather than released between steps.
type Engine struct {
	mu sync.Mutex

	dev   blockdev.BlockDevice
	store *store.Store

	sectorSize        int64
	storeSizeSectors  uint64
	storeOffsetSector uint64

	status         Status
	nextFreeSector uint64
}

// Mount implements spec §4.3's mount sequence.
func Mount(dev blockdev.BlockDevice, cfg Config) (*Engine, error) {
	sectorSize := dev.SectorSize()
	if sectorSize < 512 {
		return nil, ErrInvalidArgument
	}
	totalSectors := uint64(dev.TotalSize() / sectorSize)
	if cfg.StoreSizeSectors < 3 || cfg.StoreSizeSectors >= totalSectors {
		return nil, ErrInvalidArgument
	}
	storeOffsetSector := totalSectors - cfg.StoreSizeSectors

	e := &Engine{
		dev:               dev,
		store:             store.New(dev, storeOffsetSector, cfg.StoreSizeSectors),
		sectorSize:        sectorSize,
		storeSizeSectors:  cfg.StoreSizeSectors,
		storeOffsetSector: storeOffsetSector,
	}

	if cfg.fresh() {
		log.WithFields(log.Fields{"storeOffsetSector": storeOffsetSector}).
			Info("txn: formatting fresh journal master (overwrite/force)")
		return e, e.formatFresh()
	}

	m, err := e.loadMaster()
	if err != nil {
		return nil, err
	}
	if m.Magic != store.Magic {
		log.Info("txn: no valid master found, formatting fresh journal master")
		return e, e.formatFresh()
	}
	if m.StoreSizeSectors != cfg.StoreSizeSectors ||
		m.VolumeTotalSize != uint64(dev.TotalSize()) ||
		m.VolumeSectorSize != uint64(sectorSize) {
		log.WithFields(log.Fields{
			"onDiskStoreSizeSectors": m.StoreSizeSectors,
			"wantStoreSizeSectors":   cfg.StoreSizeSectors,
		}).Warn("txn: on-disk master disagrees with mount configuration")
		return nil, ErrInconsistentState
	}

	status, ok := fromWire(m.Status)
	if !ok {
		return nil, ErrInvalidState
	}
	e.status = status
	e.nextFreeSector = m.NextFreeSector

	if cfg.ReplayAfterMount {
		if err := e.recover(); err != nil {
			return nil, err
		}
	}

	// Step 7 of the mount sequence: reset to INIT for the subsequent
	// format/mount phase, regardless of whether recovery ran.
	e.status = StatusInit
	e.nextFreeSector = 0
	if err := e.persistMaster(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) formatFresh() error {
	e.status = StatusInit
	e.nextFreeSector = 0
	return e.persistMaster()
}

func (e *Engine) masterSector() uint64 {
	return store.MasterSector(e.storeSizeSectors)
}

func (e *Engine) loadMaster() (*store.MasterRecord, error) {
	buf := make([]byte, e.sectorSize)
	if err := e.readStoreSector(e.masterSector(), 1, buf); err != nil {
		return nil, err
	}
	return store.DecodeMasterRecord(buf)
}

func (e *Engine) persistMaster() error {
	m := &store.MasterRecord{
		Magic:             store.Magic,
		StoreSizeSectors:  e.storeSizeSectors,
		StoreOffsetSector: e.storeOffsetSector,
		NextFreeSector:    e.nextFreeSector,
		Status:            toWire(e.status),
		VolumeTotalSize:   uint64(e.dev.TotalSize()),
		VolumeSectorSize:  uint64(e.sectorSize),
	}
	buf := m.Encode(e.sectorSize)
	if err := e.store.WriteSector(e.masterSector(), 1, buf); err != nil {
		return deviceErr(err)
	}
	return nil
}

// readStoreSector and friends translate store.ErrInvalidArgument into the
// engine's own InvalidArgument class and wrap device failures.
func (e *Engine) readStoreSector(storeSector, count uint64, buf []byte) error {
	err := e.store.ReadSector(storeSector, count, buf)
	return translateStoreErr(err)
}

func translateStoreErr(err error) error {
	switch err {
	case nil:
		return nil
	case store.ErrInvalidArgument:
		return ErrInvalidArgument
	default:
		return deviceErr(err)
	}
}

// Begin transitions READY -> OPEN, spec §4.3(a).
func (e *Engine) Begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady {
		return ErrInvalidState
	}
	e.status = StatusOpen
	e.nextFreeSector = 0
	if err := e.persistMaster(); err != nil {
		return err
	}
	return nil
}

// Write buffers one operation entry while OPEN, or passes it through
// directly while INIT, spec §4.3(b).
func (e *Engine) Write(buf []byte, targetSector, count uint64) error {
	if buf == nil || count < 1 {
		return ErrInvalidArgument
	}
	if uint64(len(buf)) != count*uint64(e.sectorSize) {
		return ErrInvalidArgument
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case StatusInit:
		return e.writeDirect(targetSector, count, buf)
	case StatusOpen:
		return e.appendEntry(targetSector, count, buf)
	default:
		return ErrInvalidState
	}
}

func (e *Engine) writeDirect(targetSector, count uint64, buf []byte) error {
	offset := int64(targetSector) * e.sectorSize
	length := int64(count) * e.sectorSize
	if err := e.dev.EraseRange(offset, length); err != nil {
		return deviceErr(err)
	}
	if err := e.dev.WriteAt(offset, buf); err != nil {
		return deviceErr(err)
	}
	return nil
}

func (e *Engine) appendEntry(targetSector, count uint64, buf []byte) error {
	// Strict '<' against storeSizeSectors-1: besides the master's own last
	// sector, the sector just before it is never allocated to an entry
	// either; see spec §9's note on this gap.
	if e.nextFreeSector+1+count >= e.storeSizeSectors-1 {
		return ErrNoMemory
	}

	hdr := store.NewEntryHeader(targetSector, count, buf)
	hdrBuf := hdr.Encode(e.sectorSize)

	if err := translateStoreErr(e.store.EraseSectors(e.nextFreeSector, 1+count)); err != nil {
		return err
	}
	if err := translateStoreErr(e.store.WriteSectorNoErase(e.nextFreeSector, 1, hdrBuf)); err != nil {
		return err
	}
	if err := translateStoreErr(e.store.WriteSectorNoErase(e.nextFreeSector+1, count, buf)); err != nil {
		return err
	}

	e.nextFreeSector += 1 + count
	return e.persistMaster()
}

// End retires the current transaction: commit (replay to final addresses)
// or cancel (discard), spec §4.3(c)/(d).
func (e *Engine) End(commit bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !commit {
		if e.status == StatusReady {
			return nil
		}
		if e.status != StatusOpen {
			return ErrInvalidState
		}
		e.nextFreeSector = 0
		e.status = StatusReady
		return e.persistMaster()
	}

	if e.status != StatusOpen {
		return ErrInvalidState
	}
	e.status = StatusCommit
	if err := e.persistMaster(); err != nil {
		return err
	}
	return e.replay()
}

// replay re-executes every buffered operation entry to its target
// location, then resets the master. Spec §4.3's replay algorithm; also
// used by recover() for the COMMIT case. replay never takes mu itself: End
// already holds it, and Mount's recover() runs before the Engine is
// visible to anyone else.
func (e *Engine) replay() error {
	cursor := uint64(0)
	limit := e.nextFreeSector

	for cursor < limit {
		hdrBuf := make([]byte, e.sectorSize)
		if err := e.readStoreSector(cursor, 1, hdrBuf); err != nil {
			return err
		}
		hdr, err := store.DecodeEntryHeader(hdrBuf)
		if err != nil {
			return err
		}
		if err := hdr.VerifyHeader(); err != nil {
			log.WithField("cursor", cursor).Error("txn: replay found corrupt entry header")
			return ErrInvalidChecksum
		}

		data := make([]byte, hdr.SectorCount*uint64(e.sectorSize))
		if err := e.readStoreSector(cursor+1, hdr.SectorCount, data); err != nil {
			return err
		}
		if err := hdr.VerifyData(data); err != nil {
			log.WithField("cursor", cursor).Error("txn: replay found corrupt entry data")
			return ErrInvalidChecksum
		}

		targetOffset := int64(hdr.TargetSector) * e.sectorSize
		targetLen := int64(hdr.SectorCount) * e.sectorSize
		if err := e.dev.EraseRange(targetOffset, targetLen); err != nil {
			return deviceErr(err)
		}
		if err := e.dev.WriteAt(targetOffset, data); err != nil {
			return deviceErr(err)
		}

		cursor += 1 + hdr.SectorCount
	}

	e.status = StatusReady
	e.nextFreeSector = 0
	return e.persistMaster()
}

// recover runs at Mount when ReplayAfterMount is set, spec §4.3(g).
func (e *Engine) recover() error {
	switch e.status {
	case StatusReady:
		return nil
	case StatusOpen:
		log.WithField("bufferedSectors", e.nextFreeSector).
			Warn("txn: discarding incomplete transaction found at mount")
		e.status = StatusReady
		e.nextFreeSector = 0
		return e.persistMaster()
	case StatusCommit:
		log.WithField("bufferedSectors", e.nextFreeSector).
			Warn("txn: re-running replay for interrupted commit found at mount")
		return e.replay()
	default:
		return ErrInvalidState
	}
}

// SetDirectIO brackets format operations, spec §4.3(e).
func (e *Engine) SetDirectIO(on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusInit && e.status != StatusReady {
		return ErrInvalidState
	}
	if on {
		e.status = StatusInit
	} else {
		e.status = StatusReady
	}
	return e.persistMaster()
}

// Read is a bounds-checked passthrough of the underlying device, spec
// §4.3(f). It never consults the store: readers only ever see the
// file-system area.
func (e *Engine) Read(targetSector, count uint64, buf []byte) error {
	if buf == nil || count < 1 {
		return ErrInvalidArgument
	}
	if targetSector+count > e.storeOffsetSector {
		return ErrInvalidArgument
	}
	if uint64(len(buf)) != count*uint64(e.sectorSize) {
		return ErrInvalidArgument
	}
	offset := int64(targetSector) * e.sectorSize
	if err := e.dev.ReadAt(offset, buf); err != nil {
		return deviceErr(err)
	}
	return nil
}

// QuerySectorCount returns the sector count the file system should use as
// its own notion of disk size: total sectors minus the store's reservation.
func (e *Engine) QuerySectorCount() uint64 {
	return e.storeOffsetSector
}

// QuerySectorSize returns the device's sector size in bytes.
func (e *Engine) QuerySectorSize() uint64 {
	return uint64(e.sectorSize)
}

// Status reports the current in-memory state, for diagnostics (e.g. the
// journalctl recover subcommand).
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// NextFreeSector reports the current store cursor, for diagnostics.
func (e *Engine) NextFreeSector() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextFreeSector
}
