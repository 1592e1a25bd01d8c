//go:build windows

package hostproc

import (
	"errors"

	"golang.org/x/sys/windows"
)

// OpenProcess reports ERROR_INVALID_PARAMETER for pids that do not exist.
func isNotFoundErrno(err error) bool {
	return errors.Is(err, windows.ERROR_INVALID_PARAMETER) || errors.Is(err, windows.ERROR_NOT_FOUND)
}

func isAccessErrno(err error) bool {
	return errors.Is(err, windows.ERROR_ACCESS_DENIED)
}
