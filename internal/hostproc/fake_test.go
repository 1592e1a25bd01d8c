package hostproc

import (
	"context"
	"sync"
	"time"

	"hostwatch/internal/models"
)

type fakeProc struct {
	mu sync.Mutex

	pid       int32
	name      string
	user      string
	status    string
	threads   int32
	created   time.Time
	cpu       float64
	cpuSeq    []float64
	mem       float64
	cmdline   string
	openFiles []string
	conns     int

	nameErr      error
	terminateErr error
	killErr      error
	runningErr   error

	exitOnTerminate bool
	exitOnKill      bool
	running         bool
	terminated      int
	killed          int
}

func newFakeProc(pid int32, name string, cpu float64) *fakeProc {
	return &fakeProc{
		pid:     pid,
		name:    name,
		user:    "tester",
		status:  "running",
		threads: 2,
		created: time.Unix(1700000000, 0).UTC(),
		cpu:     cpu,
		mem:     1.5,
		cmdline: "/usr/bin/" + name + " --serve",
		running: true,
	}
}

func (p *fakeProc) PID() int32 { return p.pid }

func (p *fakeProc) Name(context.Context) (string, error) {
	if p.nameErr != nil {
		return "", p.nameErr
	}
	return p.name, nil
}

func (p *fakeProc) Username(context.Context) (string, error)      { return p.user, nil }
func (p *fakeProc) Status(context.Context) (string, error)        { return p.status, nil }
func (p *fakeProc) NumThreads(context.Context) (int32, error)     { return p.threads, nil }
func (p *fakeProc) CreateTime(context.Context) (time.Time, error) { return p.created, nil }
func (p *fakeProc) CPUPercent(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.cpuSeq) > 0 {
		v := p.cpuSeq[0]
		p.cpuSeq = p.cpuSeq[1:]
		return v, nil
	}
	return p.cpu, nil
}
func (p *fakeProc) MemoryPercent(context.Context) (float64, error) {
	return p.mem, nil
}
func (p *fakeProc) Cmdline(context.Context) (string, error)     { return p.cmdline, nil }
func (p *fakeProc) OpenFiles(context.Context) ([]string, error) { return p.openFiles, nil }
func (p *fakeProc) Connections(context.Context) (int, error)    { return p.conns, nil }
func (p *fakeProc) PPID(context.Context) (int32, error)         { return 1, nil }
func (p *fakeProc) Exe(context.Context) (string, error)         { return "/usr/bin/" + p.name, nil }
func (p *fakeProc) Cwd(context.Context) (string, error)         { return "/", nil }

func (p *fakeProc) Terminate(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminated++
	if p.terminateErr != nil {
		return p.terminateErr
	}
	if p.exitOnTerminate {
		p.running = false
	}
	return nil
}

func (p *fakeProc) Kill(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killed++
	if p.killErr != nil {
		return p.killErr
	}
	if p.exitOnKill {
		p.running = false
	}
	return nil
}

func (p *fakeProc) Running(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runningErr != nil {
		return false, p.runningErr
	}
	return p.running, nil
}

// fakeSource is an in-memory process table with call counters.
type fakeSource struct {
	mu           sync.Mutex
	order        []int32
	procs        map[int32]*fakeProc
	processErr   map[int32]error
	cpu          float64
	cpuSeq       []float64
	mem          float64
	cores        int
	pidsCalls    int
	processCalls int
}

func newFakeSource(procs ...*fakeProc) *fakeSource {
	s := &fakeSource{
		procs:      make(map[int32]*fakeProc),
		processErr: make(map[int32]error),
		cpu:        25,
		mem:        50,
		cores:      1,
	}
	for _, p := range procs {
		s.add(p)
	}
	return s
}

func (s *fakeSource) add(p *fakeProc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, p.pid)
	s.procs[p.pid] = p
}

func (s *fakeSource) Pids(context.Context) ([]int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pidsCalls++
	out := make([]int32, len(s.order))
	copy(out, s.order)
	return out, nil
}

func (s *fakeSource) Process(_ context.Context, pid int32) (Proc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processCalls++
	if err := s.processErr[pid]; err != nil {
		return nil, err
	}
	p, ok := s.procs[pid]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *fakeSource) CPUPercent(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cpuSeq) > 0 {
		v := s.cpuSeq[0]
		s.cpuSeq = s.cpuSeq[1:]
		return v, nil
	}
	return s.cpu, nil
}

func (s *fakeSource) MemoryPercent(context.Context) (float64, error) { return s.mem, nil }
func (s *fakeSource) CPUCount(context.Context) int                   { return s.cores }

func (s *fakeSource) counts() (pids, process int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pidsCalls, s.processCalls
}

// recordingSink captures audit events in memory.
type recordingSink struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (r *recordingSink) Record(_ context.Context, e models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) all() []models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
