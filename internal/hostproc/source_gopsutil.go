package hostproc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// GopsutilSource reads the live host process table through gopsutil.
//
// gopsutil computes interval-free CPU percentages against the previous sample
// stored on the *process.Process value, so handles are kept between listings
// and dropped once their pid disappears or is reused.
type GopsutilSource struct {
	mu      sync.Mutex
	handles map[int32]*gopsutilProc
}

// NewGopsutilSource returns a source with an empty handle table.
func NewGopsutilSource() *GopsutilSource {
	return &GopsutilSource{handles: make(map[int32]*gopsutilProc)}
}

func (s *GopsutilSource) Pids(ctx context.Context) ([]int32, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, err
	}
	live := make(map[int32]struct{}, len(pids))
	for _, pid := range pids {
		live[pid] = struct{}{}
	}
	s.mu.Lock()
	for pid := range s.handles {
		if _, ok := live[pid]; !ok {
			delete(s.handles, pid)
		}
	}
	s.mu.Unlock()
	return pids, nil
}

func (s *GopsutilSource) Process(ctx context.Context, pid int32) (Proc, error) {
	fresh, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, classify(err)
	}

	s.mu.Lock()
	cached := s.handles[pid]
	s.mu.Unlock()

	if cached != nil {
		// Same pid, same start time: same process. Keep the handle with CPU history.
		freshStart, ferr := fresh.CreateTimeWithContext(ctx)
		cachedStart, cerr := cached.CreateTime(ctx)
		if ferr == nil && cerr == nil && time.UnixMilli(freshStart).UTC().Equal(cachedStart) {
			return cached, nil
		}
	}

	h := &gopsutilProc{p: fresh}
	s.mu.Lock()
	s.handles[pid] = h
	s.mu.Unlock()
	return h, nil
}

func (s *GopsutilSource) CPUPercent(ctx context.Context) (float64, error) {
	vals, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, nil
	}
	return clampPercent(vals[0]), nil
}

func (s *GopsutilSource) MemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return clampPercent(vm.UsedPercent), nil
}

func (s *GopsutilSource) CPUCount(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// gopsutilProc serialises access to one *process.Process; gopsutil mutates the
// handle while computing CPU percent.
type gopsutilProc struct {
	mu sync.Mutex
	p  *process.Process
}

func (g *gopsutilProc) PID() int32 { return g.p.Pid }

func (g *gopsutilProc) Name(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name, err := g.p.NameWithContext(ctx)
	return name, classify(err)
}

func (g *gopsutilProc) Username(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, err := g.p.UsernameWithContext(ctx)
	return u, classify(err)
}

func (g *gopsutilProc) Status(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, err := g.p.StatusWithContext(ctx)
	if err != nil {
		return "", classify(err)
	}
	return strings.Join(st, ","), nil
}

func (g *gopsutilProc) NumThreads(ctx context.Context) (int32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.p.NumThreadsWithContext(ctx)
	return n, classify(err)
}

func (g *gopsutilProc) CreateTime(ctx context.Context) (time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms, err := g.p.CreateTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, classify(err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (g *gopsutilProc) CPUPercent(ctx context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pct, err := g.p.PercentWithContext(ctx, 0)
	return pct, classify(err)
}

func (g *gopsutilProc) MemoryPercent(ctx context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pct, err := g.p.MemoryPercentWithContext(ctx)
	return float64(pct), classify(err)
}

func (g *gopsutilProc) Cmdline(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cmd, err := g.p.CmdlineWithContext(ctx)
	return cmd, classify(err)
}

func (g *gopsutilProc) OpenFiles(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	files, err := g.p.OpenFilesWithContext(ctx)
	if err != nil {
		return nil, classify(err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return paths, nil
}

func (g *gopsutilProc) Connections(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	conns, err := g.p.ConnectionsWithContext(ctx)
	if err != nil {
		return 0, classify(err)
	}
	return len(conns), nil
}

func (g *gopsutilProc) PPID(ctx context.Context) (int32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ppid, err := g.p.PpidWithContext(ctx)
	return ppid, classify(err)
}

func (g *gopsutilProc) Exe(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	exe, err := g.p.ExeWithContext(ctx)
	return exe, classify(err)
}

func (g *gopsutilProc) Cwd(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cwd, err := g.p.CwdWithContext(ctx)
	return cwd, classify(err)
}

func (g *gopsutilProc) Terminate(ctx context.Context) error {
	return classify(g.p.TerminateWithContext(ctx))
}

func (g *gopsutilProc) Kill(ctx context.Context) error {
	return classify(g.p.KillWithContext(ctx))
}

func (g *gopsutilProc) Running(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	running, err := g.p.IsRunningWithContext(ctx)
	if err != nil {
		if skippable(err) {
			return false, nil
		}
		return false, err
	}
	if !running {
		return false, nil
	}
	// An exited child that has not been reaped still has a pid entry.
	st, err := g.p.StatusWithContext(ctx)
	if err == nil {
		for _, s := range st {
			if s == process.Zombie {
				return false, nil
			}
		}
	}
	return true, nil
}

func clampPercent(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
