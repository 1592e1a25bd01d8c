package hostproc

import (
	"context"
	"time"
)

// Source is the narrow view of the host process table the inspector and
// controller depend on. GopsutilSource is the production implementation.
type Source interface {
	Pids(ctx context.Context) ([]int32, error)
	// Process returns a handle for pid, or an error classified as ErrNotFound /
	// ErrAccessDenied. Handles may be reused across calls so per-process CPU
	// deltas accumulate between samples.
	Process(ctx context.Context, pid int32) (Proc, error)
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
	CPUCount(ctx context.Context) int
}

// Proc is one process handle.
type Proc interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	Username(ctx context.Context) (string, error)
	Status(ctx context.Context) (string, error)
	NumThreads(ctx context.Context) (int32, error)
	CreateTime(ctx context.Context) (time.Time, error)
	// CPUPercent is the raw utilisation since the previous call on this handle
	// (may exceed 100 on multi-core hosts). The first call returns 0.
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
	Cmdline(ctx context.Context) (string, error)
	OpenFiles(ctx context.Context) ([]string, error)
	Connections(ctx context.Context) (int, error)
	PPID(ctx context.Context) (int32, error)
	Exe(ctx context.Context) (string, error)
	Cwd(ctx context.Context) (string, error)
	Terminate(ctx context.Context) error
	Kill(ctx context.Context) error
	// Running reports false once the process has exited or become a zombie.
	Running(ctx context.Context) (bool, error)
}
