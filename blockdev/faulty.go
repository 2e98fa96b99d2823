package blockdev

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrInjectedAbort is returned by a Faulty device once its abort point has
// been reached, simulating a power loss or reset mid-operation. It is
// modeled on the teacher's util/timed_disk.Disk, which decorates a
// disk.Disk to record latencies; here the decoration instead counts calls
// and aborts once a configured call is reached, which is what spec §8's
// "test harness is expected to drive these via explicit abort-point flags"
// asks for.
var ErrInjectedAbort = errors.New("blockdev: injected abort")

// Faulty wraps a BlockDevice and can be configured to fail from a given
// call number onward (counting all WriteAt/EraseRange calls made through
// this Faulty since construction), simulating the device going away
// mid-transaction. Call counting is atomic so Faulty may be shared across
// the one mutex-protected instance the journal engine permits without
// additional locking.
type Faulty struct {
	BlockDevice
	abortAt int64 // absolute call number to start failing at; 0 disables
	calls   int64
}

// NewFaulty wraps dev with no abort point configured.
func NewFaulty(dev BlockDevice) *Faulty {
	return &Faulty{BlockDevice: dev}
}

// Calls returns the number of WriteAt/EraseRange calls made so far. Tests
// use this to compute an abort point relative to "one more write-ish call
// from here", per spec §8's abort-point injection scenarios.
func (f *Faulty) Calls() int64 {
	return atomic.LoadInt64(&f.calls)
}

// AbortAtCall arms the device to fail every WriteAt/EraseRange call from
// the nth one onward (1-indexed, counting from construction), modeling the
// device having gone away partway through a commit or replay.
func (f *Faulty) AbortAtCall(n int64) {
	atomic.StoreInt64(&f.abortAt, n)
}

// Disarm clears any configured abort point.
func (f *Faulty) Disarm() {
	atomic.StoreInt64(&f.abortAt, 0)
}

func (f *Faulty) shouldAbort() bool {
	n := atomic.AddInt64(&f.calls, 1)
	at := atomic.LoadInt64(&f.abortAt)
	return at != 0 && n >= at
}

func (f *Faulty) WriteAt(offset int64, src []byte) error {
	if f.shouldAbort() {
		return ErrInjectedAbort
	}
	return f.BlockDevice.WriteAt(offset, src)
}

func (f *Faulty) EraseRange(offset, length int64) error {
	if f.shouldAbort() {
		return ErrInjectedAbort
	}
	return f.BlockDevice.EraseRange(offset, length)
}
