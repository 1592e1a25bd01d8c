package hostproc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"hostwatch/internal/models"
)

const (
	gracefulWait = 3 * time.Second
	forcedWait   = 2 * time.Second
	exitPoll     = 50 * time.Millisecond
)

// criticalPIDs are the idle/init processes on the supported platforms.
var criticalPIDs = map[int32]struct{}{0: {}, 1: {}}

// criticalNames are compared case-insensitively against the target's name.
var criticalNames = map[string]struct{}{
	"init":     {},
	"systemd":  {},
	"launchd":  {},
	"kernel":   {},
	"kthreadd": {},
	"system":   {},
	"csrss":    {},
	"wininit":  {},
	"services": {},
	"lsass":    {},
	"smss":     {},
	"svchost":  {},
}

// DenialKind classifies why a termination was refused.
type DenialKind string

const (
	DenialPolicy       DenialKind = "policy"
	DenialNotFound     DenialKind = "not_found"
	DenialAccessDenied DenialKind = "access_denied"
	DenialFailed       DenialKind = "failed"
)

// TerminationDenied is the only error Terminate returns.
type TerminationDenied struct {
	PID    int32
	Kind   DenialKind
	Reason string
	Err    error
}

func (e *TerminationDenied) Error() string { return e.Reason }

func (e *TerminationDenied) Unwrap() error { return e.Err }

// AuditSink receives one event per termination outcome.
type AuditSink interface {
	Record(ctx context.Context, event models.AuditEvent) error
}

// Controller applies the termination safety policy and performs graceful then
// forced termination.
type Controller struct {
	source       Source
	logger       Logger
	audit        AuditSink
	selfPID      int32
	parentPID    int32
	gracefulWait time.Duration
	forcedWait   time.Duration
	poll         time.Duration
	onTerminated func()
}

// ControllerOption customises a Controller.
type ControllerOption func(*Controller)

// WithAudit sets the sink that receives termination outcomes.
func WithAudit(sink AuditSink) ControllerOption {
	return func(c *Controller) { c.audit = sink }
}

// WithIdentity overrides the pids treated as "self" and "parent".
func WithIdentity(self, parent int32) ControllerOption {
	return func(c *Controller) {
		c.selfPID = self
		c.parentPID = parent
	}
}

// WithWaits overrides the graceful and forced exit waits and the poll interval.
func WithWaits(graceful, forced, poll time.Duration) ControllerOption {
	return func(c *Controller) {
		c.gracefulWait = graceful
		c.forcedWait = forced
		if poll > 0 {
			c.poll = poll
		}
	}
}

// WithTerminatedHook registers a callback run after every successful termination.
func WithTerminatedHook(fn func()) ControllerOption {
	return func(c *Controller) { c.onTerminated = fn }
}

// NewController returns a controller protecting the current process and its parent.
func NewController(source Source, logger Logger, opts ...ControllerOption) *Controller {
	c := &Controller{
		source:       source,
		logger:       logger,
		selfPID:      int32(os.Getpid()),
		parentPID:    int32(os.Getppid()),
		gracefulWait: gracefulWait,
		forcedWait:   forcedWait,
		poll:         exitPoll,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Terminate stops pid on behalf of actor. A nil error means the process exited
// or the forced kill was delivered; any refusal is a *TerminationDenied.
func (c *Controller) Terminate(ctx context.Context, pid int32, actor string) (models.TerminateResult, error) {
	if _, ok := criticalPIDs[pid]; ok {
		return c.deny(ctx, pid, actor, DenialPolicy, "critical system process",
			fmt.Sprintf("Cannot terminate critical system process: PID %d", pid), nil)
	}
	if pid == c.selfPID {
		return c.deny(ctx, pid, actor, DenialPolicy, "self process", "Cannot terminate self process", nil)
	}
	if pid == c.parentPID {
		return c.deny(ctx, pid, actor, DenialPolicy, "parent process", "Cannot terminate parent process", nil)
	}

	proc, err := c.source.Process(ctx, pid)
	if err != nil {
		return c.denyOS(ctx, pid, actor, err)
	}
	name, err := proc.Name(ctx)
	if err != nil {
		return c.denyOS(ctx, pid, actor, err)
	}
	if _, ok := criticalNames[strings.ToLower(name)]; ok {
		return c.deny(ctx, pid, actor, DenialPolicy, "critical process name",
			fmt.Sprintf("Cannot terminate critical system process: %s", name), nil)
	}

	if err := classify(proc.Terminate(ctx)); err != nil {
		return c.denyOS(ctx, pid, actor, err)
	}
	exited, err := c.waitExit(ctx, proc, c.gracefulWait)
	if err != nil {
		return c.denyOS(ctx, pid, actor, err)
	}
	if exited {
		c.logger.Infof("Host process terminated: pid=%d name=%s by=%s result=success", pid, name, actor)
		return c.succeed(ctx, pid, actor, "graceful", "Process terminated successfully")
	}

	if err := classify(proc.Kill(ctx)); err != nil && !errors.Is(err, ErrNotFound) {
		return c.denyOS(ctx, pid, actor, err)
	}
	confirmed, err := c.waitExit(ctx, proc, c.forcedWait)
	if err != nil {
		return c.denyOS(ctx, pid, actor, err)
	}
	// A kill that was delivered but not yet reaped still counts as success.
	c.logger.Infof("Host process killed (forced): pid=%d name=%s by=%s result=success confirmed=%t", pid, name, actor, confirmed)
	return c.succeed(ctx, pid, actor, "forced", "Process killed (forced)")
}

// waitExit polls until the process is gone, the timeout expires, or ctx ends.
func (c *Controller) waitExit(ctx context.Context, proc Proc, timeout time.Duration) (bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		running, err := proc.Running(ctx)
		if err = classify(err); err != nil {
			if errors.Is(err, ErrNotFound) {
				return true, nil
			}
			return false, err
		}
		if !running {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}

func (c *Controller) denyOS(ctx context.Context, pid int32, actor string, err error) (models.TerminateResult, error) {
	err = classify(err)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.deny(ctx, pid, actor, DenialNotFound, "process not found", fmt.Sprintf("Process %d not found", pid), err)
	case errors.Is(err, ErrAccessDenied):
		return c.deny(ctx, pid, actor, DenialAccessDenied, "access denied", fmt.Sprintf("Access denied to terminate process %d", pid), err)
	default:
		return c.deny(ctx, pid, actor, DenialFailed, err.Error(), fmt.Sprintf("Failed to terminate process: %v", err), err)
	}
}

func (c *Controller) deny(ctx context.Context, pid int32, actor string, kind DenialKind, logReason, message string, cause error) (models.TerminateResult, error) {
	switch kind {
	case DenialNotFound:
		c.logger.Infof("Host process termination failed: pid=%d by=%s reason=%s", pid, actor, logReason)
	case DenialFailed:
		c.logger.Errorf("Host process termination failed: pid=%d by=%s reason=%s", pid, actor, logReason)
	default:
		c.logger.Warnf("Host process termination denied: pid=%d by=%s reason=%s", pid, actor, logReason)
	}
	c.record(ctx, pid, actor, models.AuditOutcomeDenied, message)
	return models.TerminateResult{PID: pid, Success: false, Message: message},
		&TerminationDenied{PID: pid, Kind: kind, Reason: message, Err: cause}
}

func (c *Controller) succeed(ctx context.Context, pid int32, actor, mode, message string) (models.TerminateResult, error) {
	c.record(ctx, pid, actor, models.AuditOutcomeSuccess, mode)
	if c.onTerminated != nil {
		c.onTerminated()
	}
	return models.TerminateResult{PID: pid, Success: true, Message: message}, nil
}

func (c *Controller) record(ctx context.Context, pid int32, actor, outcome, reason string) {
	if c.audit == nil {
		return
	}
	event := models.AuditEvent{
		Action:    models.AuditActionTerminate,
		PID:       pid,
		Actor:     actor,
		Outcome:   outcome,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	// Recorded even when the caller has already gone away.
	if err := c.audit.Record(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Errorf("Audit record failed: pid=%d outcome=%s error=%v", pid, outcome, err)
	}
}
