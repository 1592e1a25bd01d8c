package hostproc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"hostwatch/internal/utils"
)

func newTestInspector(src Source) (*Inspector, *testClock) {
	clock := &testClock{now: time.Unix(1000, 0)}
	insp := NewInspector(src, utils.NewLogger(""))
	insp.processes.WithClock(clock.Now)
	insp.metrics.WithClock(clock.Now)
	insp.detailWindow = 0
	return insp, clock
}

func TestListProcessesSkipsVanishedAndDenied(t *testing.T) {
	src := newFakeSource(
		newFakeProc(100, "alpha", 1),
		newFakeProc(101, "gone", 1),
		newFakeProc(102, "locked", 1),
		newFakeProc(103, "beta", 1),
	)
	src.processErr[101] = ErrNotFound
	src.procs[102].nameErr = fmt.Errorf("%w: read name", ErrAccessDenied)

	insp, _ := newTestInspector(src)
	procs := insp.ListProcesses(context.Background())

	if len(procs) != 2 {
		t.Fatalf("expected 2 processes after skipping, got %d: %+v", len(procs), procs)
	}
	if procs[0].PID != 100 || procs[1].PID != 103 {
		t.Fatalf("unexpected pids %d, %d", procs[0].PID, procs[1].PID)
	}
	for _, p := range procs {
		if p.Cmdline != nil {
			t.Fatalf("bulk listing must not carry cmdline, pid %d has %q", p.PID, *p.Cmdline)
		}
		if p.Username == nil || *p.Username != "tester" {
			t.Fatalf("expected username to be populated for pid %d", p.PID)
		}
		if p.CreateTime == nil {
			t.Fatalf("expected create time for pid %d", p.PID)
		}
	}
}

func TestListProcessesNormalizesCPU(t *testing.T) {
	src := newFakeSource(
		newFakeProc(1, "half", 200),
		newFakeProc(2, "hog", 900),
		newFakeProc(3, "idle", 0),
	)
	src.cores = 4

	insp, _ := newTestInspector(src)
	procs := insp.ListProcesses(context.Background())

	want := map[int32]float64{1: 50, 2: 100, 3: 0}
	for _, p := range procs {
		if p.CPUPercent != want[p.PID] {
			t.Fatalf("pid %d: expected cpu %.1f, got %.1f", p.PID, want[p.PID], p.CPUPercent)
		}
	}
}

func TestListProcessesServedFromCacheWithinTTL(t *testing.T) {
	src := newFakeSource(newFakeProc(10, "svc", 5))
	insp, clock := newTestInspector(src)
	ctx := context.Background()

	first := insp.ListProcesses(ctx)
	clock.Advance(1500 * time.Millisecond)
	second := insp.ListProcesses(ctx)

	if pids, _ := src.counts(); pids != 1 {
		t.Fatalf("expected one OS enumeration within TTL, got %d", pids)
	}
	if !reflect.DeepEqual(first, second) || &first[0] != &second[0] {
		t.Fatalf("expected the identical cached snapshot")
	}

	src.add(newFakeProc(11, "late", 1))
	clock.Advance(500 * time.Millisecond)
	third := insp.ListProcesses(ctx)
	if pids, _ := src.counts(); pids != 2 {
		t.Fatalf("expected refresh at TTL, got %d enumerations", pids)
	}
	if len(third) != 2 {
		t.Fatalf("expected refreshed list to include the new process, got %d", len(third))
	}
}

func TestGetSystemMetricsTopFive(t *testing.T) {
	src := newFakeSource(
		newFakeProc(1, "a", 3),
		newFakeProc(2, "b", 9),
		newFakeProc(3, "c", 3),
		newFakeProc(4, "d", 7),
		newFakeProc(5, "e", 1),
		newFakeProc(6, "f", 3),
		newFakeProc(7, "g", 8),
	)
	insp, _ := newTestInspector(src)
	ctx := context.Background()

	snap := insp.GetSystemMetrics(ctx)
	if snap.CPUPercent != 25 || snap.MemoryPercent != 50 {
		t.Fatalf("unexpected aggregate values: %+v", snap)
	}
	if snap.ProcessCount != 7 {
		t.Fatalf("expected process count 7, got %d", snap.ProcessCount)
	}
	gotPIDs := make([]int32, 0, len(snap.TopProcesses))
	for _, p := range snap.TopProcesses {
		gotPIDs = append(gotPIDs, p.PID)
	}
	// 9, 8, 7, then the 3s in enumeration order (1 before 3 before 6).
	wantPIDs := []int32{2, 7, 4, 1, 3}
	if !reflect.DeepEqual(gotPIDs, wantPIDs) {
		t.Fatalf("expected top pids %v, got %v", wantPIDs, gotPIDs)
	}

	listed := insp.ListProcesses(ctx)
	byPID := make(map[int32]bool, len(listed))
	for _, p := range listed {
		byPID[p.PID] = true
	}
	for _, p := range snap.TopProcesses {
		if !byPID[p.PID] {
			t.Fatalf("top process %d is not in the cached listing", p.PID)
		}
	}
	if listed[0].PID != 1 {
		t.Fatalf("ranking must not reorder the cached listing")
	}
	if pids, _ := src.counts(); pids != 1 {
		t.Fatalf("metrics should reuse the process list, got %d enumerations", pids)
	}
}

func TestGetSystemMetricsCached(t *testing.T) {
	src := newFakeSource(newFakeProc(1, "a", 1))
	insp, clock := newTestInspector(src)
	ctx := context.Background()

	first := insp.GetSystemMetrics(ctx)
	src.cpu = 99
	clock.Advance(999 * time.Millisecond)
	if got := insp.GetSystemMetrics(ctx); got.CPUPercent != first.CPUPercent {
		t.Fatalf("expected cached metrics within TTL")
	}
	clock.Advance(time.Millisecond)
	if got := insp.GetSystemMetrics(ctx); got.CPUPercent != 99 {
		t.Fatalf("expected refreshed metrics after TTL, got %.1f", got.CPUPercent)
	}
}

func TestGetSystemMetricsFewerThanFive(t *testing.T) {
	src := newFakeSource(newFakeProc(1, "a", 1), newFakeProc(2, "b", 2))
	insp, _ := newTestInspector(src)
	snap := insp.GetSystemMetrics(context.Background())
	if len(snap.TopProcesses) != 2 || snap.TopProcesses[0].PID != 2 {
		t.Fatalf("unexpected top processes: %+v", snap.TopProcesses)
	}
}

func TestGetProcessDetails(t *testing.T) {
	p := newFakeProc(42, "worker", 10)
	p.openFiles = []string{"/var/log/worker.log"}
	p.conns = 3
	src := newFakeSource(p)
	insp, _ := newTestInspector(src)

	details, ok := insp.GetProcessDetails(context.Background(), 42)
	if !ok {
		t.Fatalf("expected details for pid 42")
	}
	if details.Cmdline == nil || *details.Cmdline != "/usr/bin/worker --serve" {
		t.Fatalf("expected cmdline in details, got %v", details.Cmdline)
	}
	if len(details.OpenFiles) != 1 || details.Connections != 3 {
		t.Fatalf("unexpected extras: files=%v conns=%d", details.OpenFiles, details.Connections)
	}
	if details.PPID != 1 || details.Exe != "/usr/bin/worker" {
		t.Fatalf("unexpected ppid/exe: %d %q", details.PPID, details.Exe)
	}
}

func TestGetProcessDetailsNotFound(t *testing.T) {
	src := newFakeSource()
	src.processErr[77] = fmt.Errorf("%w: denied", ErrAccessDenied)
	insp, _ := newTestInspector(src)

	if _, ok := insp.GetProcessDetails(context.Background(), 9999); ok {
		t.Fatalf("expected missing pid to report not found")
	}
	if _, ok := insp.GetProcessDetails(context.Background(), 77); ok {
		t.Fatalf("expected inaccessible pid to report not found")
	}
}

func TestGetProcessDetailsEmptyExtras(t *testing.T) {
	src := newFakeSource(newFakeProc(5, "quiet", 0))
	insp, _ := newTestInspector(src)
	details, ok := insp.GetProcessDetails(context.Background(), 5)
	if !ok {
		t.Fatalf("expected details")
	}
	if details.OpenFiles == nil {
		t.Fatalf("open files should be an empty list, not nil")
	}
}

func TestInvalidateForcesRescan(t *testing.T) {
	src := newFakeSource(newFakeProc(1, "a", 1))
	insp, _ := newTestInspector(src)
	ctx := context.Background()
	insp.ListProcesses(ctx)
	insp.Invalidate()
	insp.ListProcesses(ctx)
	if pids, _ := src.counts(); pids != 2 {
		t.Fatalf("expected rescan after invalidate, got %d enumerations", pids)
	}
}

func TestPrimeReportsSecondSample(t *testing.T) {
	p := newFakeProc(20, "busy", 0)
	p.cpuSeq = []float64{0, 80}
	src := newFakeSource(p)
	src.cpuSeq = []float64{0, 35}
	insp, _ := newTestInspector(src)
	ctx := context.Background()

	if err := insp.Prime(ctx, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	procs := insp.ListProcesses(ctx)
	if len(procs) != 1 || procs[0].CPUPercent != 80 {
		t.Fatalf("expected the post-window cpu sample, got %+v", procs)
	}
	if pids, _ := src.counts(); pids != 2 {
		t.Fatalf("expected a priming scan and a measuring scan, got %d", pids)
	}
	if snap := insp.GetSystemMetrics(ctx); snap.CPUPercent != 35 {
		t.Fatalf("expected the post-window host cpu sample, got %.1f", snap.CPUPercent)
	}
}

func TestPrimeHonoursCancellation(t *testing.T) {
	insp, _ := newTestInspector(newFakeSource(newFakeProc(1, "a", 1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := insp.Prime(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
