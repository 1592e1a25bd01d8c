package hostproc

import (
	"context"
	"fmt"
	"time"

	"hostwatch/internal/models"
)

// Service is the entry point for request handlers and the broadcast loop. Every
// call is dispatched to the worker pool and awaited.
type Service struct {
	inspector  *Inspector
	controller *Controller
	pool       *Pool
}

// NewService wires an inspector and controller to a shared pool.
func NewService(inspector *Inspector, controller *Controller, pool *Pool) *Service {
	return &Service{inspector: inspector, controller: controller, pool: pool}
}

// ListProcesses returns the (possibly cached) process list.
func (s *Service) ListProcesses(ctx context.Context) ([]models.ProcessSnapshot, error) {
	return Submit(ctx, s.pool, func(ctx context.Context) ([]models.ProcessSnapshot, error) {
		return s.inspector.ListProcesses(ctx), nil
	}).Await(ctx)
}

// SystemMetrics returns the (possibly cached) aggregate snapshot.
func (s *Service) SystemMetrics(ctx context.Context) (models.SystemSnapshot, error) {
	return Submit(ctx, s.pool, func(ctx context.Context) (models.SystemSnapshot, error) {
		return s.inspector.GetSystemMetrics(ctx), nil
	}).Await(ctx)
}

// ProcessDetails returns the detail view for pid; nil with a nil error means not found.
func (s *Service) ProcessDetails(ctx context.Context, pid int32) (*models.ProcessDetails, error) {
	if pid < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	return Submit(ctx, s.pool, func(ctx context.Context) (*models.ProcessDetails, error) {
		details, ok := s.inspector.GetProcessDetails(ctx, pid)
		if !ok {
			return nil, nil
		}
		return details, nil
	}).Await(ctx)
}

// Terminate runs the controller on the pool. Refusals are *TerminationDenied.
func (s *Service) Terminate(ctx context.Context, pid int32, actor string) (models.TerminateResult, error) {
	if pid < 0 {
		return models.TerminateResult{PID: pid}, fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	return Submit(ctx, s.pool, func(ctx context.Context) (models.TerminateResult, error) {
		return s.controller.Terminate(ctx, pid, actor)
	}).Await(ctx)
}

// Prime runs the inspector's warm-up sample on the pool.
func (s *Service) Prime(ctx context.Context, window time.Duration) error {
	_, err := Submit(ctx, s.pool, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.inspector.Prime(ctx, window)
	}).Await(ctx)
	return err
}

// Close waits for in-flight calls to finish.
func (s *Service) Close() {
	s.pool.Wait()
}
