package fsadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/flashjournal"
	"github.com/mit-pdos/flashjournal/blockdev"
)

func newVolume(t *testing.T) *Volume {
	t.Helper()
	dev := blockdev.NewMemDevice(512, 512*32)
	v, err := Mount(dev, flashjournal.Config{StoreSizeSectors: 8, OverwriteExisting: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Unmount() })

	// Mount always leaves the engine INIT; a real file system would pair
	// this with its own mount sequence before ever calling Call.
	require.NoError(t, flashjournal.SetDirectIO(v.handle, false))
	return v
}

func TestSectorCountExcludesStoreReservation(t *testing.T) {
	v := newVolume(t)

	count, err := v.SectorCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(32-8), count)

	size, err := v.SectorSize()
	require.NoError(t, err)
	assert.Equal(t, uint64(512), size)
}

func TestCallCommitsWritesOnSuccess(t *testing.T) {
	v := newVolume(t)

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = 0x7E
	}

	err := v.Call(func(write func(uint64, []byte, uint64) error) error {
		return write(3, payload, 1)
	})
	require.NoError(t, err)

	got := make([]byte, 512)
	require.NoError(t, v.Read(3, got, 1))
	assert.Equal(t, payload, got)
}

func TestCallCancelsWritesOnFailure(t *testing.T) {
	v := newVolume(t)

	before := make([]byte, 512)
	require.NoError(t, v.Read(3, before, 1))

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = 0x99
	}

	errBoom := assert.AnError
	err := v.Call(func(write func(uint64, []byte, uint64) error) error {
		if writeErr := write(3, payload, 1); writeErr != nil {
			return writeErr
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	after := make([]byte, 512)
	require.NoError(t, v.Read(3, after, 1))
	assert.Equal(t, before, after, "a failed Call must leave its buffered writes unapplied")
}

func TestFormatWritesDirectly(t *testing.T) {
	v := newVolume(t)

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = 0x2A
	}

	err := v.Format(func() error {
		return flashjournal.Write(v.handle, 0, payload, 1)
	})
	require.NoError(t, err)

	got := make([]byte, 512)
	require.NoError(t, v.Read(0, got, 1))
	assert.Equal(t, payload, got)
}
