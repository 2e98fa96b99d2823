package store

import (
	"github.com/pkg/errors"

	"github.com/mit-pdos/flashjournal/blockdev"
)

// ErrInvalidArgument is returned for a store-relative sector out of range.
var ErrInvalidArgument = errors.New("store: invalid argument")

// Store offers sector-addressed I/O relative to the reserved region at the
// tail of the volume, spec §4.2. It does no locking of its own: the
// transaction engine above it is responsible for serializing access.
type Store struct {
	dev         blockdev.BlockDevice
	offsetSect  uint64
	sizeSectors uint64
}

// New wraps dev's reserved region [offsetSector, offsetSector+sizeSectors)
// as a Store.
func New(dev blockdev.BlockDevice, offsetSector, sizeSectors uint64) *Store {
	return &Store{dev: dev, offsetSect: offsetSector, sizeSectors: sizeSectors}
}

func (s *Store) sectorSize() int64 { return s.dev.SectorSize() }

func (s *Store) checkRange(storeSector, count uint64) error {
	if count == 0 || storeSector+count > s.sizeSectors {
		return ErrInvalidArgument
	}
	return nil
}

// ReadSector reads count sectors starting at storeSector (store-relative)
// into buf, which must be exactly count*SectorSize() bytes.
func (s *Store) ReadSector(storeSector, count uint64, buf []byte) error {
	if err := s.checkRange(storeSector, count); err != nil {
		return err
	}
	offset := int64(s.offsetSect+storeSector) * s.sectorSize()
	return s.dev.ReadAt(offset, buf)
}

// WriteSector erases then writes count sectors starting at storeSector
// (store-relative), the flash-write discipline of spec §4.1. Used for
// single, self-contained writes such as the master sector.
func (s *Store) WriteSector(storeSector, count uint64, buf []byte) error {
	if err := s.EraseSectors(storeSector, count); err != nil {
		return err
	}
	return s.WriteSectorNoErase(storeSector, count, buf)
}

// EraseSectors erases count sectors starting at storeSector without
// writing anything, so a caller can erase a header+data range once and
// then issue the header and data writes separately -- spec §4.3(b) steps
// 3-5, which erase the whole entry range up front but write the header
// and payload as two distinct writes.
func (s *Store) EraseSectors(storeSector, count uint64) error {
	if err := s.checkRange(storeSector, count); err != nil {
		return err
	}
	offset := int64(s.offsetSect+storeSector) * s.sectorSize()
	length := int64(count) * s.sectorSize()
	return s.dev.EraseRange(offset, length)
}

// WriteSectorNoErase writes count sectors starting at storeSector without
// erasing first; the caller is responsible for having erased the range.
func (s *Store) WriteSectorNoErase(storeSector, count uint64, buf []byte) error {
	if err := s.checkRange(storeSector, count); err != nil {
		return err
	}
	offset := int64(s.offsetSect+storeSector) * s.sectorSize()
	return s.dev.WriteAt(offset, buf)
}

// SizeSectors returns the store's reserved length in sectors.
func (s *Store) SizeSectors() uint64 { return s.sizeSectors }

// OffsetSector returns the absolute sector the store begins at.
func (s *Store) OffsetSector() uint64 { return s.offsetSect }
