package healthcheck

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirychukyurii/mission-control/internal/config"
	"github.com/kirychukyurii/mission-control/internal/model"
	"github.com/kirychukyurii/mission-control/internal/repository"
)

// Checker performs periodic health checks on the job source
type Checker struct {
	cfg        *config.HealthCheckConfig
	source     repository.Source
	sourceName string
	logger     *slog.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	mu     sync.RWMutex
	status model.ServiceStatus
}

// NewChecker creates a new health checker
func NewChecker(
	cfg *config.HealthCheckConfig,
	source repository.Source,
	sourceName string,
	logger *slog.Logger,
) *Checker {
	return &Checker{
		cfg:        cfg,
		source:     source,
		sourceName: sourceName,
		logger:     logger,
		stopCh:     make(chan struct{}),
		status: model.ServiceStatus{
			Source:        sourceName,
			CheckInterval: cfg.Interval.Milliseconds(),
		},
	}
}

// Start begins the health check loop in a background goroutine
func (c *Checker) Start(ctx context.Context) {
	if !c.cfg.Enabled {
		c.logger.Info("health check is disabled")
		return
	}

	c.logger.Info("starting health checker",
		slog.String("source", c.sourceName),
		slog.Duration("interval", c.cfg.Interval),
		slog.Int("failed_threshold", c.cfg.FailedThreshold),
	)

	c.wg.Add(1)
	go c.run(ctx)
}

// Stop gracefully stops the health checker
func (c *Checker) Stop() {
	if !c.cfg.Enabled {
		return
	}

	c.stopOnce.Do(func() {
		c.logger.Info("stopping health checker")
		close(c.stopCh)
		c.wg.Wait()
		c.logger.Info("health checker stopped")
	})
}

// Status returns the outcome of the most recent checks
func (c *Checker) Status() model.ServiceStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// run is the main health check loop
func (c *Checker) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.logger.Debug("performing initial health check")
	c.Check(ctx)

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check executes a single health check cycle.
// The source is reported unavailable once failed_threshold consecutive checks fail.
func (c *Checker) Check(ctx context.Context) {
	checkCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	jobs, err := c.source.AllJobs(checkCtx)
	if err != nil {
		c.handleFailure(fmt.Errorf("failed to list jobs: %w", err))
		return
	}

	c.mu.Lock()
	previousFailures := c.status.ConsecutiveFailures
	c.status.Available = true
	c.status.JobsSeen = len(jobs)
	c.status.LastCheck = time.Now()
	c.status.LastError = ""
	c.status.ConsecutiveFailures = 0
	c.mu.Unlock()

	if previousFailures > 0 {
		c.logger.Info("job source health check passed - health restored",
			slog.String("source", c.sourceName),
			slog.Int("previous_failures", previousFailures),
		)
	} else {
		c.logger.Debug("job source health check passed",
			slog.String("source", c.sourceName),
			slog.Int("jobs", len(jobs)),
			slog.Duration("took", time.Since(start)),
		)
	}
}

// handleFailure increments the failure counter and marks the source unavailable at the threshold
func (c *Checker) handleFailure(err error) {
	c.mu.Lock()
	c.status.ConsecutiveFailures++
	c.status.LastCheck = time.Now()
	c.status.LastError = err.Error()
	failures := c.status.ConsecutiveFailures
	reached := failures >= c.cfg.FailedThreshold
	wasAvailable := c.status.Available
	if reached {
		c.status.Available = false
	}
	c.mu.Unlock()

	c.logger.Warn("job source health check failure",
		slog.String("source", c.sourceName),
		slog.Int("consecutive_failures", failures),
		slog.Int("threshold", c.cfg.FailedThreshold),
		slog.String("error", err.Error()),
	)

	if reached && wasAvailable {
		c.logger.Error("job source health check threshold reached, dashboards will be empty",
			slog.String("source", c.sourceName),
			slog.Int("failures", failures),
		)
	}
}
