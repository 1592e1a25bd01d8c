package hostproc

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// MaxPID is the largest pid accepted before any OS query is attempted.
const MaxPID = math.MaxInt32

var (
	// ErrNotFound means the pid vanished or never existed.
	ErrNotFound = errors.New("process not found")
	// ErrAccessDenied means the OS refused access to the process.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidPID is returned for pids outside [0, MaxPID].
	ErrInvalidPID = errors.New("invalid pid")
)

// ValidatePID range-checks a caller-supplied pid.
func ValidatePID(pid int64) (int32, error) {
	if pid < 0 || pid > MaxPID {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	return int32(pid), nil
}

// classify maps raw OS/gopsutil failures onto ErrNotFound and ErrAccessDenied,
// keeping the original error in the chain. Other errors pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied) {
		return err
	}
	switch {
	case errors.Is(err, process.ErrorProcessNotRunning), errors.Is(err, os.ErrProcessDone),
		errors.Is(err, fs.ErrNotExist), isNotFoundErrno(err):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission), isAccessErrno(err):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	return err
}

// skippable reports whether an enumeration failure is the expected kind
// (process gone or behind a permission boundary).
func skippable(err error) bool {
	err = classify(err)
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied)
}
