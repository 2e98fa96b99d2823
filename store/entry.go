package store

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/pkg/errors"
)

// ErrInvalidChecksum is returned by VerifyHeader/VerifyData when a header or its data
// payload does not match its stored CRC-32, spec §7.
var ErrInvalidChecksum = errors.New("store: invalid checksum")

// crc32IEEE matches spec §6 exactly: IEEE 802.3 polynomial, seed
// 0xFFFFFFFF, no final XOR. hash/crc32.ChecksumIEEE uses the right
// polynomial and seed but, like every standard CRC-32 implementation,
// complements its output on the way out (crc32_generic.go's simpleUpdate
// flips the register at entry and exit), so that trailing complement has
// to be undone by hand to match the spec's bare running register.
func crc32IEEE(b []byte) uint32 {
	return crc32.ChecksumIEEE(b) ^ 0xFFFFFFFF
}

// EntryHeader is one operation entry's header sector, spec §3.
type EntryHeader struct {
	TargetSector uint64
	SectorCount  uint64
	CRC32Data    uint32
	CRC32Header  uint32
}

const entryHeaderFieldsSize = 8 + 8 + 4 // TargetSector, SectorCount, CRC32Data

// headerChecksum computes CRC32 over TargetSector || SectorCount ||
// CRC32Data, i.e. every header field except CRC32Header itself.
func headerChecksum(targetSector, sectorCount uint64, crc32Data uint32) uint32 {
	buf := make([]byte, entryHeaderFieldsSize)
	binary.LittleEndian.PutUint64(buf[0:8], targetSector)
	binary.LittleEndian.PutUint64(buf[8:16], sectorCount)
	binary.LittleEndian.PutUint32(buf[16:20], crc32Data)
	return crc32IEEE(buf)
}

// NewEntryHeader builds a header for an operation writing data to
// targetSector, computing both CRCs.
func NewEntryHeader(targetSector, sectorCount uint64, data []byte) *EntryHeader {
	crcData := crc32IEEE(data)
	return &EntryHeader{
		TargetSector: targetSector,
		SectorCount:  sectorCount,
		CRC32Data:    crcData,
		CRC32Header:  headerChecksum(targetSector, sectorCount, crcData),
	}
}

// Encode serializes the header as four little-endian 32-bit words followed
// by zero padding to sectorSize, spec §6.
func (h *EntryHeader) Encode(sectorSize int64) []byte {
	buf := make([]byte, sectorSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.TargetSector))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.SectorCount))
	binary.LittleEndian.PutUint32(buf[8:12], h.CRC32Data)
	binary.LittleEndian.PutUint32(buf[12:16], h.CRC32Header)
	return buf
}

// DecodeEntryHeader reads back a header written by Encode.
//
// target_sector and sector_count are each stored as a single 32-bit word
// per spec §6 ("four 32-bit little-endian words"); EntryHeader keeps them
// as uint64 in memory for arithmetic convenience against sector counts
// elsewhere in the engine.
func DecodeEntryHeader(buf []byte) (*EntryHeader, error) {
	if len(buf) < 16 {
		return nil, errors.New("store: entry header buffer too small")
	}
	h := &EntryHeader{
		TargetSector: uint64(binary.LittleEndian.Uint32(buf[0:4])),
		SectorCount:  uint64(binary.LittleEndian.Uint32(buf[4:8])),
		CRC32Data:    binary.LittleEndian.Uint32(buf[8:12]),
		CRC32Header:  binary.LittleEndian.Uint32(buf[12:16]),
	}
	return h, nil
}

// VerifyHeader checks the header's self-checksum, spec §4.3 step 2 of
// replay.
func (h *EntryHeader) VerifyHeader() error {
	want := headerChecksum(h.TargetSector, h.SectorCount, h.CRC32Data)
	if want != h.CRC32Header {
		return ErrInvalidChecksum
	}
	return nil
}

// VerifyData checks the payload checksum, spec §4.3 step 4 of replay.
func (h *EntryHeader) VerifyData(data []byte) error {
	if crc32IEEE(data) != h.CRC32Data {
		return ErrInvalidChecksum
	}
	return nil
}
