package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/mission-control/internal/config"
	"github.com/kirychukyurii/mission-control/internal/logger"
	"github.com/kirychukyurii/mission-control/internal/model"
	"github.com/kirychukyurii/mission-control/internal/repository"
	"github.com/kirychukyurii/mission-control/internal/service"
	"github.com/kirychukyurii/mission-control/internal/view"
)

func newTestRouter(t *testing.T, basePath string) (http.Handler, *repository.MemorySource) {
	t.Helper()

	src := repository.NewMemorySource()
	src.PutJob(model.Job{Name: "app", Buildable: true},
		model.Run{Number: 1, StartTime: 100, Duration: 10, Result: model.ResultSuccess},
		model.Run{Number: 2, StartTime: 200, Duration: 10, Result: model.ResultFailure},
	)
	src.PutJob(model.Job{Name: "lib", Buildable: true},
		model.Run{Number: 1, StartTime: 150, Duration: 10, Result: model.ResultSuccess},
	)

	store := view.NewStore([]config.ViewConfig{{Name: "main", FilterByFailures: true}}, nil, logger.Discard())
	svc := service.NewDashboardService(src, store, "static", logger.Discard())

	return NewHandler(svc, basePath, logger.Discard()).Router(), src
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Dashboard(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, "")

	rec := get(t, router, "/api/views/main/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "builds")
	assert.Contains(t, body, "allJobsStatuses")

	var dashboard model.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dashboard))
	require.Len(t, dashboard.Builds, 3)
	assert.Equal(t, "app", dashboard.Builds[0].JobName)
	assert.Equal(t, "FAILURE", dashboard.Builds[0].Result)
	assert.Equal(t, []model.JobStatus{
		{JobName: "app", Status: "FAILURE"},
		{JobName: "lib", Status: "SUCCESS"},
	}, dashboard.AllJobsStatuses)
}

func TestRouter_Panels(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, "")

	rec := get(t, router, "/api/views/main/builds")
	require.Equal(t, http.StatusOK, rec.Code)
	var builds []model.BuildSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &builds))
	assert.Len(t, builds, 3)

	rec = get(t, router, "/api/views/main/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	var statuses []model.JobStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	assert.Len(t, statuses, 2)

	rec = get(t, router, "/api/views")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []model.ViewInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "main", views[0].Name)

	rec = get(t, router, "/api/views/main")
	require.Equal(t, http.StatusOK, rec.Code)
	var info model.ViewInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "60", info.Layout.BuildHistoryHeight)
}

func TestRouter_ReturnsNotFound_When_ViewUnknown(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, "")

	for _, path := range []string{"/api/views/nope", "/api/views/nope/builds", "/api/views/nope/jobs", "/api/views/nope/json"} {
		rec := get(t, router, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body.Error, "view not found")
	}
}

func TestRouter_DegradesToEmpty_When_SourceUnavailable(t *testing.T) {
	t.Parallel()

	router, src := newTestRouter(t, "")
	src.SetAvailable(false)

	rec := get(t, router, "/api/views/main/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"builds":[],"allJobsStatuses":[]}`, rec.Body.String())

	rec = get(t, router, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status model.ServiceStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Available)
}

func TestRouter_MountsOnBasePath(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, "/mission-control")

	assert.Equal(t, http.StatusOK, get(t, router, "/mission-control/api/status").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/status").Code)
}

func TestRouter_QueueAndNodes(t *testing.T) {
	t.Parallel()

	router, src := newTestRouter(t, "")
	src.SetQueue(
		model.QueueItem{ID: 1, TaskName: "label=linux", InQueueSince: 100},
		model.QueueItem{ID: 2, TaskName: "lib", InQueueSince: 200},
	)
	src.SetNodes(model.Node{Name: "built-in", Online: true, Executors: 2})

	rec := get(t, router, "/api/views/main/queue")
	require.Equal(t, http.StatusOK, rec.Code)
	var queue []model.QueueEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Len(t, queue, 2)
	assert.Equal(t, "linux", queue[0].TaskName)
	assert.Positive(t, queue[0].Waiting)

	rec = get(t, router, "/api/views/main/nodes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"built-in","online":true,"executors":2}]`, rec.Body.String())

	rec = get(t, router, "/api/views/missing/queue")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
