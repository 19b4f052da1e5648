package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirychukyurii/mission-control/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	finished := func(r model.Result) *model.Run { return &model.Run{Number: 3, Result: r} }

	tests := []struct {
		name           string
		job            model.Job
		honorBuildable bool
		want           model.StatusLabel
	}{
		{"building wins over last result", model.Job{Building: true, Buildable: true, LastRun: finished(model.ResultFailure)}, true, model.StatusBuilding},
		{"building wins over disabled", model.Job{Building: true}, true, model.StatusBuilding},
		{"disabled", model.Job{LastRun: finished(model.ResultSuccess)}, true, model.StatusDisabled},
		{"disabled ignored when flag off", model.Job{LastRun: finished(model.ResultSuccess)}, false, model.StatusSuccess},
		{"never built", model.Job{Buildable: true}, true, model.StatusNotBuilt},
		{"last run without result", model.Job{Buildable: true, LastRun: &model.Run{Number: 1}}, true, model.StatusUnknown},
		{"success", model.Job{Buildable: true, LastRun: finished(model.ResultSuccess)}, true, model.StatusSuccess},
		{"unstable", model.Job{Buildable: true, LastRun: finished(model.ResultUnstable)}, true, model.StatusUnstable},
		{"failure", model.Job{Buildable: true, LastRun: finished(model.ResultFailure)}, true, model.StatusFailure},
		{"aborted", model.Job{Buildable: true, LastRun: finished(model.ResultAborted)}, true, model.StatusAborted},
		{"lower case result", model.Job{Buildable: true, LastRun: finished("failure")}, true, model.StatusFailure},
		{"unexpected result", model.Job{Buildable: true, LastRun: finished("NOT_BUILT")}, true, model.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.job, tt.honorBuildable))
		})
	}
}

func TestClassify_When_AnyStateCombination(t *testing.T) {
	t.Parallel()

	valid := map[model.StatusLabel]bool{
		model.StatusBuilding: true, model.StatusDisabled: true, model.StatusNotBuilt: true,
		model.StatusUnknown: true, model.StatusSuccess: true, model.StatusUnstable: true,
		model.StatusFailure: true, model.StatusAborted: true,
	}

	for _, building := range []bool{false, true} {
		for _, buildable := range []bool{false, true} {
			for _, hasLast := range []bool{false, true} {
				for _, hasResult := range []bool{false, true} {
					for _, honor := range []bool{false, true} {
						job := model.Job{Building: building, Buildable: buildable}
						if hasLast {
							job.LastRun = &model.Run{Number: 1}
							if hasResult {
								job.LastRun.Result = model.ResultSuccess
							}
						}
						label := Classify(job, honor)
						assert.True(t, valid[label], "unexpected label %q for %+v", label, job)
					}
				}
			}
		}
	}
}

func TestRunLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BUILDING", RunLabel(model.Run{}))
	assert.Equal(t, "SUCCESS", RunLabel(model.Run{Result: model.ResultSuccess}))
	assert.Equal(t, "ABORTED", RunLabel(model.Run{Result: "aborted"}))
	assert.Equal(t, "UNKNOWN", RunLabel(model.Run{Result: "garbage"}))
}
