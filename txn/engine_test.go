package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/flashjournal/blockdev"
)

const (
	testSectorSize = 512
	testTotalSect  = 32
	testStoreSect  = 8
)

func fillPattern(b byte, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func readTarget(t *testing.T, dev blockdev.BlockDevice, sector uint64) []byte {
	t.Helper()
	buf := make([]byte, testSectorSize)
	require.NoError(t, dev.ReadAt(int64(sector)*testSectorSize, buf))
	return buf
}

// mustMount formats a fresh journal and leaves the engine READY to Begin.
func mustMount(t *testing.T, dev blockdev.BlockDevice) *Engine {
	t.Helper()
	e, err := Mount(dev, Config{StoreSizeSectors: testStoreSect, OverwriteExisting: true})
	require.NoError(t, err)
	require.NoError(t, e.SetDirectIO(false))
	return e
}

func TestCommitAppliesWriteToTarget(t *testing.T) {
	dev := blockdev.NewMemDevice(testSectorSize, testSectorSize*testTotalSect)
	e := mustMount(t, dev)

	payload := fillPattern(0xAB, testSectorSize)
	const target = 5

	require.NoError(t, e.Begin())
	require.NoError(t, e.Write(payload, target, 1))
	require.NoError(t, e.End(true))

	assert.Equal(t, payload, readTarget(t, dev, target))
	assert.Equal(t, StatusReady, e.Status())
	assert.Equal(t, uint64(0), e.NextFreeSector())
}

func TestCancelDiscardsBufferedWrite(t *testing.T) {
	dev := blockdev.NewMemDevice(testSectorSize, testSectorSize*testTotalSect)
	e := mustMount(t, dev)

	payload := fillPattern(0xCD, testSectorSize)
	const target = 5
	original := readTarget(t, dev, target)

	require.NoError(t, e.Begin())
	require.NoError(t, e.Write(payload, target, 1))
	require.NoError(t, e.End(false))

	assert.Equal(t, original, readTarget(t, dev, target))
	assert.Equal(t, StatusReady, e.Status())
}

// beginWrite drives the engine through Begin+Write for one target sector and
// returns the Faulty call count reached immediately afterward, the baseline
// every scenario below arms its abort point relative to.
func beginWrite(t *testing.T, e *Engine, f *blockdev.Faulty, target uint64, payload []byte) int64 {
	t.Helper()
	require.NoError(t, e.Begin())
	require.NoError(t, e.Write(payload, target, 1))
	return f.Calls()
}

// remount simulates power returning: a fresh Engine is mounted over the same
// underlying device with replay enabled, after disarming the fault so
// recovery itself can run to completion.
func remount(t *testing.T, f *blockdev.Faulty) *Engine {
	t.Helper()
	f.Disarm()
	e, err := Mount(f, Config{StoreSizeSectors: testStoreSect, ReplayAfterMount: true})
	require.NoError(t, err)
	return e
}

func TestCrashBeforeCommitFlipDiscardsOnRemount(t *testing.T) {
	f := blockdev.NewFaulty(blockdev.NewMemDevice(testSectorSize, testSectorSize*testTotalSect))
	e := mustMount(t, f)

	payload := fillPattern(0x11, testSectorSize)
	const target = 5
	original := readTarget(t, f, target)

	n := beginWrite(t, e, f, target, payload)
	f.AbortAtCall(n + 1)

	err := e.End(true)
	assert.ErrorIs(t, err, ErrDeviceError)

	e2 := remount(t, f)
	assert.Equal(t, StatusInit, e2.Status(), "Mount always resets to INIT as its last step, independent of recovery")
	assert.Equal(t, original, readTarget(t, f, target), "an OPEN transaction found at mount must be discarded, not replayed")
}

func TestCrashAfterCommitFlipBeforeReplayErase(t *testing.T) {
	f := blockdev.NewFaulty(blockdev.NewMemDevice(testSectorSize, testSectorSize*testTotalSect))
	e := mustMount(t, f)

	payload := fillPattern(0x22, testSectorSize)
	const target = 5

	n := beginWrite(t, e, f, target, payload)
	f.AbortAtCall(n + 3)

	err := e.End(true)
	assert.ErrorIs(t, err, ErrDeviceError)

	e2 := remount(t, f)
	assert.Equal(t, StatusInit, e2.Status(), "Mount always resets to INIT as its last step, independent of recovery")
	assert.Equal(t, payload, readTarget(t, f, target), "a COMMIT found at mount must finish replaying")
}

func TestCrashMidReplayAfterFirstErase(t *testing.T) {
	f := blockdev.NewFaulty(blockdev.NewMemDevice(testSectorSize, testSectorSize*testTotalSect))
	e := mustMount(t, f)

	payload := fillPattern(0x33, testSectorSize)
	const target = 5

	n := beginWrite(t, e, f, target, payload)
	f.AbortAtCall(n + 4)

	err := e.End(true)
	assert.ErrorIs(t, err, ErrDeviceError)

	e2 := remount(t, f)
	assert.Equal(t, StatusInit, e2.Status(), "Mount always resets to INIT as its last step, independent of recovery")
	assert.Equal(t, payload, readTarget(t, f, target), "replay must be safely re-runnable after a fault mid-erase/write")
}

func TestCrashAfterDataWrittenBeforeMasterReset(t *testing.T) {
	f := blockdev.NewFaulty(blockdev.NewMemDevice(testSectorSize, testSectorSize*testTotalSect))
	e := mustMount(t, f)

	payload := fillPattern(0x44, testSectorSize)
	const target = 5

	n := beginWrite(t, e, f, target, payload)
	f.AbortAtCall(n + 5)

	err := e.End(true)
	assert.ErrorIs(t, err, ErrDeviceError)

	e2 := remount(t, f)
	assert.Equal(t, StatusInit, e2.Status(), "Mount always resets to INIT as its last step, independent of recovery")
	assert.Equal(t, payload, readTarget(t, f, target))
	assert.Equal(t, uint64(0), e2.NextFreeSector())
}

func TestMountRejectsGeometryMismatch(t *testing.T) {
	dev := blockdev.NewMemDevice(testSectorSize, testSectorSize*testTotalSect)
	_, err := Mount(dev, Config{StoreSizeSectors: testStoreSect, OverwriteExisting: true})
	require.NoError(t, err)

	_, err = Mount(dev, Config{StoreSizeSectors: testStoreSect + 1})
	assert.ErrorIs(t, err, ErrInconsistentState)
}

func TestAppendEntryReturnsNoMemoryWhenStoreFull(t *testing.T) {
	dev := blockdev.NewMemDevice(testSectorSize, testSectorSize*testTotalSect)
	e := mustMount(t, dev)

	require.NoError(t, e.Begin())
	big := fillPattern(0x55, testSectorSize*6)
	err := e.Write(big, 0, 6)
	assert.ErrorIs(t, err, ErrNoMemory)
}

func TestBeginRequiresReadyState(t *testing.T) {
	dev := blockdev.NewMemDevice(testSectorSize, testSectorSize*testTotalSect)
	e := mustMount(t, dev)

	require.NoError(t, e.Begin())
	assert.ErrorIs(t, e.Begin(), ErrInvalidState)
}

func TestWriteDirectWhileInit(t *testing.T) {
	dev := blockdev.NewMemDevice(testSectorSize, testSectorSize*testTotalSect)
	e, err := Mount(dev, Config{StoreSizeSectors: testStoreSect, OverwriteExisting: true})
	require.NoError(t, err)
	require.Equal(t, StatusInit, e.Status())

	payload := fillPattern(0x66, testSectorSize)
	const target = 5
	require.NoError(t, e.Write(payload, target, 1))
	assert.Equal(t, payload, readTarget(t, dev, target))
}
