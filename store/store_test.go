package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/flashjournal/blockdev"
)

func TestMasterRecordRoundTrip(t *testing.T) {
	m := Fresh(16, 1008, 1024*4096, 4096, StatusOpen)
	buf := m.Encode(4096)
	require.Len(t, buf, 4096)

	got, err := DecodeMasterRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestEntryHeaderRoundTrip(t *testing.T) {
	data := []byte("hello journal world, this is one sector of data!!")
	h := NewEntryHeader(42, 1, data)
	buf := h.Encode(512)

	got, err := DecodeEntryHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.NoError(t, got.VerifyHeader())
	assert.NoError(t, got.VerifyData(data))
}

func TestEntryHeaderDetectsTornHeader(t *testing.T) {
	h := NewEntryHeader(1, 1, []byte("data"))
	h.TargetSector = 2 // corrupt after the fact, without recomputing CRCs
	assert.ErrorIs(t, h.VerifyHeader(), ErrInvalidChecksum)
}

func TestEntryHeaderDetectsTornData(t *testing.T) {
	h := NewEntryHeader(1, 1, []byte("original-data"))
	assert.ErrorIs(t, h.VerifyData([]byte("corrupted---!")), ErrInvalidChecksum)
}

func TestStoreSectorBounds(t *testing.T) {
	dev := blockdev.NewMemDevice(512, 512*32)
	s := New(dev, 16, 16)

	buf := make([]byte, 512)
	assert.NoError(t, s.WriteSector(0, 1, buf))
	assert.NoError(t, s.ReadSector(15, 1, buf))
	assert.ErrorIs(t, s.ReadSector(16, 1, buf), ErrInvalidArgument)
	assert.ErrorIs(t, s.WriteSector(0, 0, buf), ErrInvalidArgument)
}

func TestStoreEraseThenWriteNoErase(t *testing.T) {
	dev := blockdev.NewMemDevice(512, 512*8)
	s := New(dev, 0, 8)

	require.NoError(t, s.EraseSectors(2, 2))
	payload := make([]byte, 512*2)
	for i := range payload {
		payload[i] = 0x5A
	}
	require.NoError(t, s.WriteSectorNoErase(2, 2, payload))

	got := make([]byte, 512*2)
	require.NoError(t, s.ReadSector(2, 2, got))
	assert.Equal(t, payload, got)
}
