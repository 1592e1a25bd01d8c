package ws

import (
	"context"
	"sync"
	"time"

	"hostwatch/internal/models"
)

// DefaultBroadcastInterval is the period between host metrics pushes.
const DefaultBroadcastInterval = 2 * time.Second

// MetricsSource supplies the aggregate host snapshot.
type MetricsSource interface {
	SystemMetrics(ctx context.Context) (models.SystemSnapshot, error)
}

// MetricsLoop periodically pushes host metrics to subscribers of
// TopicMetricsHost.
type MetricsLoop struct {
	registry *Registry
	source   MetricsSource
	logger   Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMetricsLoop(registry *Registry, source MetricsSource, logger Logger, interval time.Duration) *MetricsLoop {
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	return &MetricsLoop{registry: registry, source: source, logger: logger, interval: interval}
}

// Start launches the loop. Calling Start on a running loop is a no-op.
func (l *MetricsLoop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(1)
	go l.run(ctx)
	l.logger.Infof("Host metrics broadcast started (interval %s)", l.interval)
}

// Stop cancels the loop and waits for it to exit.
func (l *MetricsLoop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	l.wg.Wait()
	l.logger.Infof("Host metrics broadcast stopped")
}

func (l *MetricsLoop) run(ctx context.Context) {
	defer l.wg.Done()
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *MetricsLoop) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("Host metrics broadcast panicked: %v", r)
		}
	}()
	if !l.registry.HasSubscribers(TopicMetricsHost) {
		return
	}
	snap, err := l.source.SystemMetrics(ctx)
	if err != nil {
		if ctx.Err() == nil {
			l.logger.Errorf("Host metrics sampling failed: %v", err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	sent := l.registry.BroadcastToTopic(TopicMetricsHost, Message{Topic: TopicMetricsHost, Data: snap.Lite()})
	l.logger.Debugf("Host metrics pushed to %d subscriber(s)", sent)
}
