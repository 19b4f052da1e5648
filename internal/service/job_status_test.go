package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/mission-control/internal/logger"
	"github.com/kirychukyurii/mission-control/internal/model"
	"github.com/kirychukyurii/mission-control/internal/repository"
	"github.com/kirychukyurii/mission-control/internal/status"
)

func defaultStatusOptions() StatusOptions {
	return StatusOptions{HonorBuildableFlag: true, QualifyFolderNames: true}
}

func TestJobStatuses_ReportsMostRecentRun(t *testing.T) {
	t.Parallel()

	src := repository.NewMemorySource()
	src.PutJob(model.Job{Name: "app", Buildable: true},
		finished(1, 100, model.ResultSuccess),
		finished(2, 200, model.ResultFailure),
		finished(3, 300, model.ResultUnstable),
	)

	statuses := JobStatuses(context.Background(), src, defaultStatusOptions(), logger.Discard())
	assert.Equal(t, []model.JobStatus{{JobName: "app", Status: "UNSTABLE"}}, statuses)
}

func TestJobStatuses_ReportsBuilding_When_JobIsBuilding(t *testing.T) {
	t.Parallel()

	src := repository.NewMemorySource()
	src.PutJob(model.Job{Name: "app", Buildable: true}, finished(1, 100, model.ResultFailure))
	_, err := src.StartRun("app", 200)
	require.NoError(t, err)

	statuses := JobStatuses(context.Background(), src, defaultStatusOptions(), logger.Discard())
	assert.Equal(t, []model.JobStatus{{JobName: "app", Status: "BUILDING"}}, statuses)
}

func TestJobStatuses_PrioritizesFailures(t *testing.T) {
	t.Parallel()

	src := repository.NewMemorySource()
	src.PutJob(model.Job{Name: "app", Buildable: true}, finished(1, 100, model.ResultSuccess))
	src.PutJob(model.Job{Name: "lib", Buildable: true}, finished(1, 100, model.ResultFailure))
	src.PutJob(model.Job{Name: "tool", Buildable: true})

	opts := defaultStatusOptions()
	statuses := JobStatuses(context.Background(), src, opts, logger.Discard())
	assert.Equal(t, []string{"app", "lib", "tool"}, jobNames(statuses), "source order without prioritization")

	opts.PrioritizeFailures = true
	statuses = JobStatuses(context.Background(), src, opts, logger.Discard())
	assert.Equal(t, []model.JobStatus{
		{JobName: "lib", Status: "FAILURE"},
		{JobName: "app", Status: "SUCCESS"},
		{JobName: "tool", Status: "NOTBUILT"},
	}, statuses)
}

func TestJobStatuses_FiltersByName(t *testing.T) {
	t.Parallel()

	src := repository.NewMemorySource()
	for _, name := range []string{"release-a", "dev-x", "release-b"} {
		src.PutJob(model.Job{Name: name, Buildable: true}, finished(1, 100, model.ResultSuccess))
	}

	opts := defaultStatusOptions()
	opts.Filter = regexp.MustCompile(`^release-`)

	statuses := JobStatuses(context.Background(), src, opts, logger.Discard())
	assert.Equal(t, []string{"release-a", "release-b"}, jobNames(statuses))
}

func TestJobStatuses_ExcludesSubItemsAndModules(t *testing.T) {
	t.Parallel()

	src := repository.NewMemorySource()
	src.PutJob(model.Job{Name: "matrix", Buildable: true})
	src.PutJob(model.Job{Name: "axis=linux", FullName: "matrix/axis=linux", Kind: model.JobKindSubItem, Buildable: true,
		Parent: &model.Container{FullName: "matrix"}})
	src.PutJob(model.Job{Name: "core", FullName: "maven/core", Kind: model.JobKindModule, Buildable: true,
		Parent: &model.Container{FullName: "maven"}})

	for _, filter := range []*regexp.Regexp{nil, regexp.MustCompile(`.`), regexp.MustCompile(`linux|core`)} {
		opts := defaultStatusOptions()
		opts.Filter = filter
		for _, s := range JobStatuses(context.Background(), src, opts, logger.Discard()) {
			assert.Equal(t, "matrix", s.JobName)
		}
	}
}

func TestJobStatuses_QualifiesFolderNames(t *testing.T) {
	t.Parallel()

	src := repository.NewMemorySource()
	src.PutJob(model.Job{
		Name:      "feature%2Flogin",
		FullName:  "team/web/feature%2Flogin",
		Parent:    &model.Container{FullName: "team/web", Folder: true},
		Buildable: true,
	}, finished(1, 100, model.ResultSuccess))
	src.PutJob(model.Job{
		Name:      "broken%zz",
		FullName:  "broken%zz",
		Buildable: true,
	})

	statuses := JobStatuses(context.Background(), src, defaultStatusOptions(), logger.Discard())
	assert.Equal(t, []string{"team/web / feature/login", "broken%zz"}, jobNames(statuses))

	opts := defaultStatusOptions()
	opts.QualifyFolderNames = false
	statuses = JobStatuses(context.Background(), src, opts, logger.Discard())
	assert.Equal(t, []string{"feature/login", "broken%zz"}, jobNames(statuses))

	opts.Filter = regexp.MustCompile(`^team/web/feature/`)
	statuses = JobStatuses(context.Background(), src, opts, logger.Discard())
	assert.Equal(t, []string{"feature/login"}, jobNames(statuses))
}

func TestJobStatuses_KeepsPlusSigns_When_Decoding(t *testing.T) {
	t.Parallel()

	src := repository.NewMemorySource()
	src.PutJob(model.Job{Name: "c++-lib", Buildable: true}, finished(1, 100, model.ResultSuccess))
	src.PutJob(model.Job{
		Name:      "fix%2Fa+b",
		FullName:  "web/fix%2Fa+b",
		Parent:    &model.Container{FullName: "web", Folder: true},
		Buildable: true,
	}, finished(1, 200, model.ResultSuccess))

	statuses := JobStatuses(context.Background(), src, defaultStatusOptions(), logger.Discard())
	assert.Equal(t, []string{"c++-lib", "web / fix/a+b"}, jobNames(statuses))

	opts := defaultStatusOptions()
	opts.Filter = regexp.MustCompile(`^c\+\+`)
	statuses = JobStatuses(context.Background(), src, opts, logger.Discard())
	assert.Equal(t, []model.JobStatus{{JobName: "c++-lib", Status: "SUCCESS"}}, statuses)

	opts.Filter = regexp.MustCompile(`^web/fix/a\+b$`)
	statuses = JobStatuses(context.Background(), src, opts, logger.Discard())
	assert.Equal(t, []string{"web / fix/a+b"}, jobNames(statuses))
}

func TestDecodeName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "c++-lib", want: "c++-lib"},
		{name: "feature%2Flogin", want: "feature/login"},
		{name: "a%20b+c", want: "a b+c"},
		{name: "broken%zz", want: "broken%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeName(tt.name))
		})
	}
}

func TestJobStatuses_HonorBuildableFlag(t *testing.T) {
	t.Parallel()

	src := repository.NewMemorySource()
	src.PutJob(model.Job{Name: "old", Buildable: false}, finished(1, 100, model.ResultFailure))

	opts := defaultStatusOptions()
	assert.Equal(t, "DISABLED", JobStatuses(context.Background(), src, opts, logger.Discard())[0].Status)

	opts.HonorBuildableFlag = false
	assert.Equal(t, "FAILURE", JobStatuses(context.Background(), src, opts, logger.Discard())[0].Status)
}

func TestJobStatuses_SortedOutputRespectsPriority(t *testing.T) {
	t.Parallel()

	src := repository.NewMemorySource()
	results := []model.Result{model.ResultSuccess, model.ResultAborted, model.ResultFailure, model.ResultUnstable, model.ResultNone}
	for i, r := range results {
		name := string(rune('a' + i))
		if r == model.ResultNone {
			src.PutJob(model.Job{Name: name, Buildable: true})
			continue
		}
		src.PutJob(model.Job{Name: name, Buildable: true}, finished(1, 100, r))
	}
	src.PutJob(model.Job{Name: "off", Buildable: false})
	src.PutJob(model.Job{Name: "busy", Buildable: true, Building: true})

	opts := defaultStatusOptions()
	opts.PrioritizeFailures = true
	statuses := JobStatuses(context.Background(), src, opts, logger.Discard())

	require.Len(t, statuses, 7)
	assert.Equal(t, "BUILDING", statuses[0].Status)
	assert.Equal(t, "DISABLED", statuses[6].Status)
	for i := 1; i < len(statuses); i++ {
		assert.LessOrEqual(t, status.Priority(statuses[i-1].Status), status.Priority(statuses[i].Status))
	}
}

func TestJobStatuses_ReturnsEmpty_When_SourceUnavailable(t *testing.T) {
	t.Parallel()

	statuses := JobStatuses(context.Background(), failingSource{}, defaultStatusOptions(), logger.Discard())
	assert.NotNil(t, statuses)
	assert.Empty(t, statuses)
}

func jobNames(statuses []model.JobStatus) []string {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.JobName)
	}
	return names
}
