package models

import "time"

// ProcessSnapshot is a point-in-time read of one host process. Optional fields are
// nil when the OS did not expose them. Cmdline is only populated on detail queries.
type ProcessSnapshot struct {
	PID           int32      `json:"pid"`
	Name          string     `json:"name"`
	Username      *string    `json:"username"`
	CPUPercent    float64    `json:"cpu_percent"`
	MemoryPercent float64    `json:"memory_percent"`
	Status        string     `json:"status"`
	CreateTime    *time.Time `json:"create_time"`
	NumThreads    int32      `json:"num_threads"`
	Cmdline       *string    `json:"cmdline,omitempty"`
}

// ProcessDetails extends a snapshot with the costlier per-process fields.
type ProcessDetails struct {
	ProcessSnapshot
	PPID        int32    `json:"ppid"`
	Exe         string   `json:"exe,omitempty"`
	Cwd         string   `json:"cwd,omitempty"`
	OpenFiles   []string `json:"open_files"`
	Connections int      `json:"connections"`
}

// SystemSnapshot captures host-wide utilisation and the busiest processes.
type SystemSnapshot struct {
	CPUPercent    float64           `json:"cpu_percent"`
	MemoryPercent float64           `json:"memory_percent"`
	TopProcesses  []ProcessSnapshot `json:"top_processes"`
	ProcessCount  int               `json:"process_count"`
	SampledAt     time.Time         `json:"sampled_at"`
}

// ProcessLite is the per-process projection pushed to metrics subscribers.
type ProcessLite struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// SystemSnapshotLite is the wire-sized form of SystemSnapshot.
type SystemSnapshotLite struct {
	CPUPercent    float64       `json:"cpu_percent"`
	MemoryPercent float64       `json:"memory_percent"`
	TopProcesses  []ProcessLite `json:"top_processes"`
}

// Lite projects the snapshot for streaming: no command lines, four fields per process.
func (s SystemSnapshot) Lite() SystemSnapshotLite {
	top := make([]ProcessLite, 0, len(s.TopProcesses))
	for _, p := range s.TopProcesses {
		top = append(top, ProcessLite{
			PID:           p.PID,
			Name:          p.Name,
			CPUPercent:    p.CPUPercent,
			MemoryPercent: p.MemoryPercent,
		})
	}
	return SystemSnapshotLite{
		CPUPercent:    s.CPUPercent,
		MemoryPercent: s.MemoryPercent,
		TopProcesses:  top,
	}
}

// TerminateResult is returned to callers of the terminate command.
type TerminateResult struct {
	PID     int32  `json:"pid"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}
