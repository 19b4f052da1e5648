package service

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/kirychukyurii/mission-control/internal/model"
	"github.com/kirychukyurii/mission-control/internal/repository"
	"github.com/kirychukyurii/mission-control/internal/status"
)

// StatusOptions controls the job status panel of a view
type StatusOptions struct {
	Filter             *regexp.Regexp // optional, matched against the decoded full job name
	PrioritizeFailures bool           // order by failure priority instead of source order
	HonorBuildableFlag bool           // report non-buildable jobs as DISABLED
	QualifyFolderNames bool           // prefix jobs in folders with the folder path
}

// JobStatuses returns the current status of every standalone job.
// Sub-items and modules are skipped. A failing source yields an empty list.
func JobStatuses(ctx context.Context, src repository.Source, opts StatusOptions, logger *slog.Logger) []model.JobStatus {
	jobs, err := src.AllJobs(ctx)
	if err != nil {
		logger.Warn("failed to read jobs, returning empty job statuses",
			slog.String("error", err.Error()),
		)
		return []model.JobStatus{}
	}

	statuses := make([]model.JobStatus, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]

		if job.Kind == model.JobKindSubItem || job.Kind == model.JobKindModule {
			continue
		}
		if opts.Filter != nil && !opts.Filter.MatchString(qualifyingName(job)) {
			continue
		}

		statuses = append(statuses, model.JobStatus{
			JobName: displayName(job, opts.QualifyFolderNames),
			Status:  string(status.Classify(*job, opts.HonorBuildableFlag)),
		})
	}

	if opts.PrioritizeFailures {
		status.SortByPriority(statuses)
	}

	return statuses
}
