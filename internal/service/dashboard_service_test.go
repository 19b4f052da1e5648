package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/mission-control/internal/config"
	"github.com/kirychukyurii/mission-control/internal/logger"
	"github.com/kirychukyurii/mission-control/internal/model"
	"github.com/kirychukyurii/mission-control/internal/repository"
	"github.com/kirychukyurii/mission-control/internal/view"
)

type staticHealth struct{ status model.ServiceStatus }

func (s staticHealth) Status() model.ServiceStatus { return s.status }

func newTestService(t *testing.T, src repository.Backend) DashboardService {
	t.Helper()

	store := view.NewStore([]config.ViewConfig{
		{Name: "all"},
		{Name: "release", HistoryLimit: 2, FilterByFailures: true, FilterBuildHistory: "^release-", FilterJobStatuses: "^release-"},
		{Name: "wall", BuildQueueSize: 2},
	}, nil, logger.Discard())

	return NewDashboardService(src, store, "static", logger.Discard())
}

func seededSource() *repository.MemorySource {
	src := repository.NewMemorySource()
	src.PutJob(model.Job{Name: "release-a", Buildable: true},
		finished(1, 100, model.ResultSuccess),
		finished(2, 400, model.ResultSuccess),
	)
	src.PutJob(model.Job{Name: "release-b", Buildable: true},
		finished(1, 200, model.ResultFailure),
	)
	src.PutJob(model.Job{Name: "dev-x", Buildable: true},
		finished(1, 300, model.ResultFailure),
	)
	return src
}

func TestDashboardService_GetDashboard(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, seededSource())

	dashboard, err := svc.GetDashboard(context.Background(), "release")
	require.NoError(t, err)

	require.Len(t, dashboard.Builds, 1, "dev-x takes one of the two history slots")
	assert.Equal(t, "release-a", dashboard.Builds[0].JobName)
	assert.Equal(t, []model.JobStatus{
		{JobName: "release-b", Status: "FAILURE"},
		{JobName: "release-a", Status: "SUCCESS"},
	}, dashboard.AllJobsStatuses)

	builds, err := svc.GetBuildHistory(context.Background(), "all")
	require.NoError(t, err)
	assert.Len(t, builds, 4)

	statuses, err := svc.GetJobStatuses(context.Background(), "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"release-a", "release-b", "dev-x"}, jobNames(statuses))
}

func TestDashboardService_ReturnsNotFound_When_ViewUnknown(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, seededSource())

	_, err := svc.GetView(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrViewNotFound)
	_, err = svc.GetBuildHistory(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrViewNotFound)
	_, err = svc.GetJobStatuses(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrViewNotFound)
	_, err = svc.GetDashboard(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrViewNotFound)
}

func TestDashboardService_ListViews(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, seededSource())

	views := svc.ListViews(context.Background())
	require.Len(t, views, 3)
	assert.Equal(t, "all", views[0].Name)
	assert.Equal(t, 250, views[0].HistoryLimit)
	assert.Equal(t, "release", views[1].Name)

	info, err := svc.GetView(context.Background(), "release")
	require.NoError(t, err)
	assert.Equal(t, "^release-", info.FilterJobStatuses)
}

func TestDashboardService_GetDashboard_DegradesToEmpty_When_SourceUnavailable(t *testing.T) {
	t.Parallel()

	src := seededSource()
	src.SetAvailable(false)
	svc := newTestService(t, src)

	dashboard, err := svc.GetDashboard(context.Background(), "all")
	require.NoError(t, err)
	assert.Empty(t, dashboard.Builds)
	assert.Empty(t, dashboard.AllJobsStatuses)
}

func TestDashboardService_GetStatus(t *testing.T) {
	t.Parallel()

	src := seededSource()
	svc := newTestService(t, src)

	status := svc.GetStatus(context.Background())
	assert.True(t, status.Available)
	assert.Equal(t, 3, status.JobsSeen)
	assert.Equal(t, "static", status.Source)

	src.SetAvailable(false)
	status = svc.GetStatus(context.Background())
	assert.False(t, status.Available)
	assert.NotEmpty(t, status.LastError)

	svc.SetHealthChecker(staticHealth{status: model.ServiceStatus{Source: "checker", Available: true}})
	assert.Equal(t, "checker", svc.GetStatus(context.Background()).Source)
}

func TestDashboardService_GetBuildQueue_CapsByQueueSize(t *testing.T) {
	t.Parallel()

	src := seededSource()
	src.SetQueue(
		model.QueueItem{ID: 3, TaskName: "deploy", InQueueSince: 30_000},
		model.QueueItem{ID: 1, TaskName: "label=linux,jdk=17", InQueueSince: 10_000, Why: "Waiting for next available executor"},
		model.QueueItem{ID: 2, TaskName: "release-a", InQueueSince: 20_000},
	)
	svc := newTestService(t, src)
	svc.(*dashboardService).now = func() time.Time { return time.UnixMilli(70_000) }

	queue, err := svc.GetBuildQueue(context.Background(), "wall")
	require.NoError(t, err)
	assert.Equal(t, []model.QueueEntry{
		{TaskName: "linux,17", InQueueSince: 10_000, Waiting: 60_000, Why: "Waiting for next available executor"},
		{TaskName: "release-a", InQueueSince: 20_000, Waiting: 50_000},
	}, queue)

	queue, err = svc.GetBuildQueue(context.Background(), "all")
	require.NoError(t, err)
	assert.Len(t, queue, 3)

	_, err = svc.GetBuildQueue(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrViewNotFound)
}

func TestDashboardService_GetNodes(t *testing.T) {
	t.Parallel()

	src := seededSource()
	src.SetNodes(
		model.Node{Name: "built-in", Online: true, Executors: 2},
		model.Node{Name: "agent-mac", Executors: 1, OfflineReason: "Disconnected"},
	)
	svc := newTestService(t, src)

	nodes, err := svc.GetNodes(context.Background(), "all")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	assert.False(t, nodes[1].Online)

	src.SetAvailable(false)
	nodes, err = svc.GetNodes(context.Background(), "all")
	require.NoError(t, err)
	assert.Empty(t, nodes)

	_, err = svc.GetNodes(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrViewNotFound)
}
