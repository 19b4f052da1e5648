// Package status classifies jobs into display labels and orders those labels by failure priority.
package status

import (
	"strings"

	"github.com/kirychukyurii/mission-control/internal/model"
)

// Classify returns the display label for a job.
// When honorBuildable is false a non-buildable job is classified by its last run like any other.
func Classify(job model.Job, honorBuildable bool) model.StatusLabel {
	if job.Building {
		return model.StatusBuilding
	}

	if honorBuildable && !job.Buildable {
		return model.StatusDisabled
	}

	if job.LastRun == nil {
		return model.StatusNotBuilt
	}

	if !job.LastRun.HasResult() {
		return model.StatusUnknown
	}

	return FromResult(job.LastRun.Result)
}

// FromResult maps a finished run result to its label, anything unexpected becomes UNKNOWN
func FromResult(r model.Result) model.StatusLabel {
	switch model.Result(strings.ToUpper(string(r))) {
	case model.ResultSuccess:
		return model.StatusSuccess
	case model.ResultUnstable:
		return model.StatusUnstable
	case model.ResultFailure:
		return model.StatusFailure
	case model.ResultAborted:
		return model.StatusAborted
	default:
		return model.StatusUnknown
	}
}

// RunLabel is the build history label of a run: BUILDING until a result is known
func RunLabel(r model.Run) string {
	if !r.HasResult() {
		return string(model.StatusBuilding)
	}
	return string(FromResult(r.Result))
}
