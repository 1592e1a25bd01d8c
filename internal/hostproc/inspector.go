// Package hostproc samples the host process table and terminates processes
// under a fixed safety policy. Blocking OS work is funnelled through a small
// worker pool by Service.
package hostproc

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"hostwatch/internal/cache"
	"hostwatch/internal/models"
)

const (
	processCacheTTL = 2 * time.Second
	metricsCacheTTL = 1 * time.Second
	topProcessCount = 5
	// detailCPUInterval is the sampling window for the single-process CPU reading.
	detailCPUInterval = 100 * time.Millisecond
)

// Logger is the leveled logging surface used by this package; *utils.Logger implements it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Inspector produces process and system snapshots from a Source, memoizing the
// two expensive queries in short-TTL slots.
type Inspector struct {
	source       Source
	logger       Logger
	processes    *cache.Slot[[]models.ProcessSnapshot]
	metrics      *cache.Slot[models.SystemSnapshot]
	group        singleflight.Group
	detailWindow time.Duration
}

// NewInspector builds an inspector with the default 2s process and 1s metrics TTLs.
func NewInspector(source Source, logger Logger) *Inspector {
	return &Inspector{
		source:       source,
		logger:       logger,
		processes:    cache.NewSlot[[]models.ProcessSnapshot](processCacheTTL),
		metrics:      cache.NewSlot[models.SystemSnapshot](metricsCacheTTL),
		detailWindow: detailCPUInterval,
	}
}

// ListProcesses returns every visible process without command lines. A fresh
// cached list is returned as-is; otherwise the table is re-enumerated, skipping
// processes that exit or deny access mid-scan.
func (i *Inspector) ListProcesses(ctx context.Context) []models.ProcessSnapshot {
	if procs, ok := i.processes.Get(); ok {
		return procs
	}
	v, _, _ := i.group.Do("processes", func() (interface{}, error) {
		if procs, ok := i.processes.Get(); ok {
			return procs, nil
		}
		procs, err := i.scan(ctx)
		if err != nil {
			i.logger.Errorf("Host process scan failed: %v", err)
			return []models.ProcessSnapshot{}, nil
		}
		i.processes.Put(procs)
		return procs, nil
	})
	return v.([]models.ProcessSnapshot)
}

func (i *Inspector) scan(ctx context.Context) ([]models.ProcessSnapshot, error) {
	pids, err := i.source.Pids(ctx)
	if err != nil {
		return nil, err
	}
	cores := i.source.CPUCount(ctx)
	if cores < 1 {
		cores = 1
	}

	procs := make([]models.ProcessSnapshot, 0, len(pids))
	for _, pid := range pids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snap, err := i.snapshot(ctx, pid, cores)
		if err != nil {
			if skippable(err) {
				i.logger.Debugf("Host process skipped: pid=%d reason=%v", pid, err)
				continue
			}
			i.logger.Warnf("Host process skipped: pid=%d error=%v", pid, err)
			continue
		}
		procs = append(procs, snap)
	}
	return procs, nil
}

// snapshot reads the bulk-listing fields for one pid. Name is required; the other
// fields are best effort and fall back to zero values.
func (i *Inspector) snapshot(ctx context.Context, pid int32, cores int) (models.ProcessSnapshot, error) {
	p, err := i.source.Process(ctx, pid)
	if err != nil {
		return models.ProcessSnapshot{}, err
	}
	name, err := p.Name(ctx)
	if err != nil {
		return models.ProcessSnapshot{}, err
	}

	snap := models.ProcessSnapshot{PID: pid, Name: name, Status: "running"}
	if u, err := p.Username(ctx); err == nil && u != "" {
		snap.Username = &u
	}
	if st, err := p.Status(ctx); err == nil && st != "" {
		snap.Status = st
	}
	if n, err := p.NumThreads(ctx); err == nil {
		snap.NumThreads = n
	}
	if ct, err := p.CreateTime(ctx); err == nil && !ct.IsZero() {
		snap.CreateTime = &ct
	}
	if raw, err := p.CPUPercent(ctx); err == nil {
		snap.CPUPercent = normalizeCPU(raw, cores)
	}
	if m, err := p.MemoryPercent(ctx); err == nil {
		snap.MemoryPercent = m
	}
	return snap, nil
}

// GetProcessDetails performs the costlier single-process query. The bool is
// false when the pid is gone or not accessible.
func (i *Inspector) GetProcessDetails(ctx context.Context, pid int32) (*models.ProcessDetails, bool) {
	cores := i.source.CPUCount(ctx)
	if cores < 1 {
		cores = 1
	}
	p, err := i.source.Process(ctx, pid)
	if err != nil {
		return nil, false
	}
	snap, err := i.snapshot(ctx, pid, cores)
	if err != nil {
		return nil, false
	}

	// Prime then re-read so the detail view gets a real sampling window.
	if i.detailWindow > 0 {
		_, _ = p.CPUPercent(ctx)
		select {
		case <-time.After(i.detailWindow):
		case <-ctx.Done():
			return nil, false
		}
		if raw, err := p.CPUPercent(ctx); err == nil {
			snap.CPUPercent = normalizeCPU(raw, cores)
		} else if errors.Is(err, ErrNotFound) {
			return nil, false
		}
	}

	if cmd, err := p.Cmdline(ctx); err == nil && cmd != "" {
		snap.Cmdline = &cmd
	}
	details := &models.ProcessDetails{ProcessSnapshot: snap, OpenFiles: []string{}}
	if ppid, err := p.PPID(ctx); err == nil {
		details.PPID = ppid
	}
	if exe, err := p.Exe(ctx); err == nil {
		details.Exe = exe
	}
	if cwd, err := p.Cwd(ctx); err == nil {
		details.Cwd = cwd
	}
	if files, err := p.OpenFiles(ctx); err == nil && files != nil {
		details.OpenFiles = files
	}
	if n, err := p.Connections(ctx); err == nil {
		details.Connections = n
	}

	i.logger.Infof("Host process observed: pid=%d name=%s cpu=%.1f%% mem=%.1f%%", pid, snap.Name, snap.CPUPercent, snap.MemoryPercent)
	return details, true
}

// GetSystemMetrics returns aggregate CPU/memory plus the top processes by CPU,
// drawn from the (possibly cached) process list.
func (i *Inspector) GetSystemMetrics(ctx context.Context) models.SystemSnapshot {
	if snap, ok := i.metrics.Get(); ok {
		return snap
	}
	v, _, _ := i.group.Do("metrics", func() (interface{}, error) {
		if snap, ok := i.metrics.Get(); ok {
			return snap, nil
		}
		cpuPct, err := i.source.CPUPercent(ctx)
		if err != nil {
			i.logger.Warnf("Host cpu sample failed: %v", err)
		}
		memPct, err := i.source.MemoryPercent(ctx)
		if err != nil {
			i.logger.Warnf("Host memory sample failed: %v", err)
		}
		procs := i.ListProcesses(ctx)
		snap := models.SystemSnapshot{
			CPUPercent:    cpuPct,
			MemoryPercent: memPct,
			TopProcesses:  topByCPU(procs, topProcessCount),
			ProcessCount:  len(procs),
			SampledAt:     time.Now().UTC(),
		}
		i.metrics.Put(snap)
		return snap, nil
	})
	return v.(models.SystemSnapshot)
}

// Prime takes a throwaway CPU sample of the host and every process, waits
// window, then drops the caches so the next read measures over that window.
func (i *Inspector) Prime(ctx context.Context, window time.Duration) error {
	i.Invalidate()
	if _, err := i.source.CPUPercent(ctx); err != nil {
		i.logger.Warnf("Host cpu sample failed: %v", err)
	}
	i.ListProcesses(ctx)
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	i.Invalidate()
	return nil
}

// Invalidate drops both cached snapshots.
func (i *Inspector) Invalidate() {
	i.processes.Invalidate()
	i.metrics.Invalidate()
}

// topByCPU returns up to n processes ordered by CPU descending. Ties keep
// enumeration order. The input slice is not reordered.
func topByCPU(procs []models.ProcessSnapshot, n int) []models.ProcessSnapshot {
	sorted := make([]models.ProcessSnapshot, len(procs))
	copy(sorted, procs)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].CPUPercent > sorted[b].CPUPercent
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func normalizeCPU(raw float64, cores int) float64 {
	if raw <= 0 || raw != raw {
		return 0
	}
	pct := raw / float64(cores)
	if pct > 100 {
		return 100
	}
	return pct
}
