package txn

import "github.com/pkg/errors"

// The seven error classes of spec §7. Every exported Engine method returns
// one of these, or wraps one with github.com/pkg/errors, the same pattern
// gazette-core's broker package uses for its resolver errors. A device
// failure comes back as ErrDeviceError wrapped with the device error's
// text: errors.Cause and errors.Is find the ErrDeviceError sentinel, and
// the original device error value itself is not kept.
var (
	ErrInvalidArgument   = errors.New("txn: invalid argument")
	ErrInvalidState      = errors.New("txn: invalid state")
	ErrNotFound          = errors.New("txn: not found")
	ErrNoMemory          = errors.New("txn: no space")
	ErrInvalidChecksum   = errors.New("txn: invalid checksum")
	ErrInconsistentState = errors.New("txn: inconsistent on-disk state")
	ErrDeviceError       = errors.New("txn: device error")
)

func deviceErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(ErrDeviceError, err.Error())
}
