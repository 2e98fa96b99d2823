// Package blockdev provides the thin sector-addressed indirection over an
// underlying storage device that the journal engine is built on. It plays
// the role the teacher's disk.Disk interface plays for the NFS server: the
// rest of the engine never touches a file descriptor or a byte slice that
// isn't sector-sized.
package blockdev

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrInvalidArgument is returned when an offset or length is not a multiple
// of the device's sector size. MemDevice also returns it for a range that
// falls outside the device; FileDevice does not check the range.
var ErrInvalidArgument = errors.New("blockdev: invalid argument")

// BlockDevice is the contract the journal engine requires of whatever sits
// underneath it. All offsets and lengths are in bytes and must be multiples
// of SectorSize(). Every implementation must make EraseRange precede a
// Write of the same region meaningful: flash devices require an erase
// before a write can flip bits from 0 to 1 again.
type BlockDevice interface {
	ReadAt(offsetBytes int64, dst []byte) error
	WriteAt(offsetBytes int64, src []byte) error
	EraseRange(offsetBytes int64, length int64) error
	SectorSize() int64
	TotalSize() int64
}

func checkAligned(sectorSize, offset, length int64) error {
	if sectorSize <= 0 || offset < 0 || length < 0 {
		return ErrInvalidArgument
	}
	if offset%sectorSize != 0 || length%sectorSize != 0 {
		return ErrInvalidArgument
	}
	return nil
}

// MemDevice backs a BlockDevice with a plain byte slice. It is the analog
// of the teacher's disk.NewMemDisk, used by tests and by the journalctl
// bench subcommand.
type MemDevice struct {
	mu         sync.Mutex
	sectorSize int64
	data       []byte
}

// NewMemDevice allocates a zeroed in-memory device of totalSize bytes.
func NewMemDevice(sectorSize, totalSize int64) *MemDevice {
	if sectorSize < 512 || totalSize%sectorSize != 0 {
		panic("blockdev: invalid geometry")
	}
	return &MemDevice{
		sectorSize: sectorSize,
		data:       make([]byte, totalSize),
	}
}

func (m *MemDevice) SectorSize() int64 { return m.sectorSize }
func (m *MemDevice) TotalSize() int64  { return int64(len(m.data)) }

func (m *MemDevice) ReadAt(offset int64, dst []byte) error {
	if err := checkAligned(m.sectorSize, offset, int64(len(dst))); err != nil {
		return err
	}
	if offset+int64(len(dst)) > int64(len(m.data)) {
		return ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(dst, m.data[offset:offset+int64(len(dst))])
	return nil
}

func (m *MemDevice) WriteAt(offset int64, src []byte) error {
	if err := checkAligned(m.sectorSize, offset, int64(len(src))); err != nil {
		return err
	}
	if offset+int64(len(src)) > int64(len(m.data)) {
		return ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data[offset:offset+int64(len(src))], src)
	return nil
}

func (m *MemDevice) EraseRange(offset, length int64) error {
	if err := checkAligned(m.sectorSize, offset, length); err != nil {
		return err
	}
	if offset+length > int64(len(m.data)) {
		return ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := offset; i < offset+length; i++ {
		m.data[i] = 0xFF
	}
	return nil
}

// FileDevice backs a BlockDevice with a regular file, the way the teacher's
// disk.NewFileDisk does for its on-disk image tests. Every WriteAt is
// followed by an Fdatasync so that "committed" actually means "on
// persistent storage" rather than "in the page cache" -- without this a
// crash-consistency spec cannot be tested meaningfully against a file.
type FileDevice struct {
	mu         sync.Mutex
	f          *os.File
	sectorSize int64
	totalSize  int64
}

// OpenFileDevice opens (creating if absent) a file-backed device of the
// given geometry.
func OpenFileDevice(path string, sectorSize, totalSize int64) (*FileDevice, error) {
	if sectorSize < 512 || totalSize%sectorSize != 0 {
		return nil, ErrInvalidArgument
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "blockdev: open file device")
	}
	if err := f.Truncate(totalSize); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "blockdev: truncate file device")
	}
	return &FileDevice{f: f, sectorSize: sectorSize, totalSize: totalSize}, nil
}

func (d *FileDevice) SectorSize() int64 { return d.sectorSize }
func (d *FileDevice) TotalSize() int64  { return d.totalSize }

func (d *FileDevice) ReadAt(offset int64, dst []byte) error {
	if err := checkAligned(d.sectorSize, offset, int64(len(dst))); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.f.ReadAt(dst, offset)
	if err != nil {
		return errors.Wrap(err, "blockdev: read")
	}
	return nil
}

func (d *FileDevice) WriteAt(offset int64, src []byte) error {
	if err := checkAligned(d.sectorSize, offset, int64(len(src))); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.f.WriteAt(src, offset); err != nil {
		return errors.Wrap(err, "blockdev: write")
	}
	if err := unix.Fdatasync(int(d.f.Fd())); err != nil {
		return errors.Wrap(err, "blockdev: fdatasync")
	}
	return nil
}

// EraseRange zero-fills the region. Real flash erase sets bits to 1 and is
// block-granular; a regular file has no such primitive, so the discipline
// being preserved here is ordering (erase strictly precedes write), not the
// bit pattern.
func (d *FileDevice) EraseRange(offset, length int64) error {
	if err := checkAligned(d.sectorSize, offset, length); err != nil {
		return err
	}
	zeros := make([]byte, length)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.f.WriteAt(zeros, offset); err != nil {
		return errors.Wrap(err, "blockdev: erase")
	}
	return nil
}

func (d *FileDevice) Close() error {
	return d.f.Close()
}
