package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirychukyurii/mission-control/internal/model"
	"github.com/kirychukyurii/mission-control/internal/repository"
	"github.com/kirychukyurii/mission-control/internal/view"
)

// ErrViewNotFound is returned for a view that is neither configured nor stored
var ErrViewNotFound = errors.New("view not found")

// HealthChecker defines interface for reading the job source health
type HealthChecker interface {
	Status() model.ServiceStatus
}

// DashboardService defines the interface for dashboard operations
type DashboardService interface {
	ListViews(ctx context.Context) []model.ViewInfo
	GetView(ctx context.Context, name string) (*model.ViewInfo, error)
	GetBuildHistory(ctx context.Context, name string) ([]model.BuildSummary, error)
	GetJobStatuses(ctx context.Context, name string) ([]model.JobStatus, error)
	GetDashboard(ctx context.Context, name string) (*model.Dashboard, error)
	GetBuildQueue(ctx context.Context, name string) ([]model.QueueEntry, error)
	GetNodes(ctx context.Context, name string) ([]model.Node, error)
	GetStatus(ctx context.Context) model.ServiceStatus
	SetHealthChecker(hc HealthChecker)
}

// dashboardService implements DashboardService interface
type dashboardService struct {
	source     repository.Backend
	views      *view.Store
	sourceName string
	logger     *slog.Logger
	now        func() time.Time

	mu            sync.RWMutex
	healthChecker HealthChecker
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	source repository.Backend,
	views *view.Store,
	sourceName string,
	logger *slog.Logger,
) DashboardService {
	return &dashboardService{
		source:     source,
		views:      views,
		sourceName: sourceName,
		logger:     logger,
		now:        time.Now,
	}
}

// SetHealthChecker sets the health checker whose state GetStatus reports
func (s *dashboardService) SetHealthChecker(hc HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthChecker = hc
}

// ListViews returns every known view
func (s *dashboardService) ListViews(ctx context.Context) []model.ViewInfo {
	views := s.views.List(ctx)

	infos := make([]model.ViewInfo, 0, len(views))
	for _, v := range views {
		infos = append(infos, v.Info())
	}
	return infos
}

// GetView returns the description of a single view
func (s *dashboardService) GetView(ctx context.Context, name string) (*model.ViewInfo, error) {
	v, err := s.view(ctx, name)
	if err != nil {
		return nil, err
	}

	info := v.Info()
	return &info, nil
}

// GetBuildHistory returns the build history panel of a view
func (s *dashboardService) GetBuildHistory(ctx context.Context, name string) ([]model.BuildSummary, error) {
	v, err := s.view(ctx, name)
	if err != nil {
		return nil, err
	}

	return s.buildHistory(ctx, v), nil
}

// GetJobStatuses returns the job status panel of a view
func (s *dashboardService) GetJobStatuses(ctx context.Context, name string) ([]model.JobStatus, error) {
	v, err := s.view(ctx, name)
	if err != nil {
		return nil, err
	}

	return s.jobStatuses(ctx, v), nil
}

// GetDashboard returns both panels of a view, read concurrently
func (s *dashboardService) GetDashboard(ctx context.Context, name string) (*model.Dashboard, error) {
	v, err := s.view(ctx, name)
	if err != nil {
		return nil, err
	}

	dashboard := &model.Dashboard{}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dashboard.Builds = s.buildHistory(ctx, v)
	}()
	go func() {
		defer wg.Done()
		dashboard.AllJobsStatuses = s.jobStatuses(ctx, v)
	}()
	wg.Wait()

	return dashboard, nil
}

// GetBuildQueue returns the build queue panel of a view, capped by its build queue size
func (s *dashboardService) GetBuildQueue(ctx context.Context, name string) ([]model.QueueEntry, error) {
	v, err := s.view(ctx, name)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(slog.String("view", v.Name()))
	return BuildQueue(ctx, s.source, QueueOptions{
		Limit: v.BuildQueueSize(),
		Now:   s.now(),
	}, logger), nil
}

// GetNodes returns the nodes panel of a view
func (s *dashboardService) GetNodes(ctx context.Context, name string) ([]model.Node, error) {
	v, err := s.view(ctx, name)
	if err != nil {
		return nil, err
	}

	return NodeStatuses(ctx, s.source, s.logger.With(slog.String("view", v.Name()))), nil
}

// GetStatus reports the job source health.
// Without a health checker the source is probed on demand.
func (s *dashboardService) GetStatus(ctx context.Context) model.ServiceStatus {
	s.mu.RLock()
	hc := s.healthChecker
	s.mu.RUnlock()

	if hc != nil {
		return hc.Status()
	}

	status := model.ServiceStatus{
		Source:    s.sourceName,
		LastCheck: time.Now(),
	}

	jobs, err := s.source.AllJobs(ctx)
	if err != nil {
		status.LastError = err.Error()
		status.ConsecutiveFailures = 1
		return status
	}

	status.Available = true
	status.JobsSeen = len(jobs)
	return status
}

func (s *dashboardService) view(ctx context.Context, name string) (view.View, error) {
	v, ok := s.views.Get(ctx, name)
	if !ok {
		return view.View{}, fmt.Errorf("%w: %s", ErrViewNotFound, name)
	}
	return v, nil
}

func (s *dashboardService) buildHistory(ctx context.Context, v view.View) []model.BuildSummary {
	logger := s.logger.With(slog.String("view", v.Name()))

	return BuildHistory(ctx, s.source, HistoryOptions{
		Limit:  v.HistoryLimit(),
		Filter: v.BuildHistoryFilter(),
	}, logger)
}

func (s *dashboardService) jobStatuses(ctx context.Context, v view.View) []model.JobStatus {
	logger := s.logger.With(slog.String("view", v.Name()))

	return JobStatuses(ctx, s.source, StatusOptions{
		Filter:             v.JobStatusFilter(),
		PrioritizeFailures: v.FilterByFailures(),
		HonorBuildableFlag: v.HonorBuildableFlag(),
		QualifyFolderNames: v.QualifyFolderNames(),
	}, logger)
}
