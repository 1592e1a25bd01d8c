//go:build !windows

package hostproc

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isNotFoundErrno(err error) bool {
	return errors.Is(err, unix.ESRCH) || errors.Is(err, unix.ENOENT)
}

func isAccessErrno(err error) bool {
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}
