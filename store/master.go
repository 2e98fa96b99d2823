// Package store implements the on-disk journal store: the master record
// and the packed log of operation entries occupying the last N sectors of
// the volume. It is the spec's §4.2/§3 layer, sitting directly on top of
// blockdev.BlockDevice the way the teacher's walog sits directly on top of
// disk.Disk.
package store

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Magic identifies a sector as holding a journal master record.
const Magic uint32 = 0x6A6B6C6D

// Status is the persisted transaction-engine state, spec §4.3. Init and
// Ready are aliases on disk (both serialize to StatusReady); Init is only
// ever held in memory during the mount/format window.
type Status uint32

const (
	StatusReady  Status = 0
	StatusOpen   Status = 1
	StatusCommit Status = 2
)

func (s Status) String() string {
	switch s {
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

// MasterRecord is spec §3's master record, persisted in the last sector of
// the volume (store-relative sector store_size_sectors-1).
type MasterRecord struct {
	Magic             uint32
	StoreSizeSectors  uint64
	StoreOffsetSector uint64
	NextFreeSector    uint64
	Status            Status
	VolumeTotalSize   uint64 // bytes, cached for mount-time consistency checks
	VolumeSectorSize  uint64 // bytes
}

// masterWireSize is the number of bytes the fixed fields occupy; the
// remainder of the sector is zero padding, per spec §6.
const masterWireSize = 4 + 8 + 8 + 8 + 4 + 8 + 8

// Encode writes the master record into a sector-sized buffer, little-endian,
// zero-padded to the end, mirroring the teacher's enc/dec helpers in
// enc_dec.go but using encoding/binary directly since there is exactly one
// fixed-layout record to encode.
func (m *MasterRecord) Encode(sectorSize int64) []byte {
	buf := make([]byte, sectorSize)
	off := 0
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], v)
		off += 4
	}
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[off:off+8], v)
		off += 8
	}
	putU32(m.Magic)
	putU64(m.StoreSizeSectors)
	putU64(m.StoreOffsetSector)
	putU64(m.NextFreeSector)
	putU32(uint32(m.Status))
	putU64(m.VolumeTotalSize)
	putU64(m.VolumeSectorSize)
	return buf
}

// DecodeMasterRecord reads a master record out of a sector-sized buffer.
func DecodeMasterRecord(buf []byte) (*MasterRecord, error) {
	if len(buf) < masterWireSize {
		return nil, errors.New("store: master record buffer too small")
	}
	off := 0
	getU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
		return v
	}
	getU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		return v
	}
	m := &MasterRecord{}
	m.Magic = getU32()
	m.StoreSizeSectors = getU64()
	m.StoreOffsetSector = getU64()
	m.NextFreeSector = getU64()
	m.Status = Status(getU32())
	m.VolumeTotalSize = getU64()
	m.VolumeSectorSize = getU64()
	return m, nil
}

// Fresh builds a new master record for a store of the given geometry, with
// status and next-free-sector set for a just-formatted store.
func Fresh(storeSizeSectors, storeOffsetSector, volumeTotalSize, volumeSectorSize uint64, status Status) *MasterRecord {
	return &MasterRecord{
		Magic:             Magic,
		StoreSizeSectors:  storeSizeSectors,
		StoreOffsetSector: storeOffsetSector,
		NextFreeSector:    0,
		Status:            status,
		VolumeTotalSize:   volumeTotalSize,
		VolumeSectorSize:  volumeSectorSize,
	}
}

// MasterSector returns the store-relative sector the master always lives
// in: the last sector of the store.
func MasterSector(storeSizeSectors uint64) uint64 {
	return storeSizeSectors - 1
}
