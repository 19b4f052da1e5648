package service

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/kirychukyurii/mission-control/internal/model"
	"github.com/kirychukyurii/mission-control/internal/repository"
	"github.com/kirychukyurii/mission-control/internal/status"
)

// HistoryOptions controls the build history of a view
type HistoryOptions struct {
	Limit  int            // maximum number of runs read from the source
	Filter *regexp.Regexp // optional, matched against the decoded full job name
}

// BuildHistory returns the most recent runs across all jobs, newest first.
// Module runs are folded into their parent run and skipped. A failing source yields an empty history.
func BuildHistory(ctx context.Context, src repository.Source, opts HistoryOptions, logger *slog.Logger) []model.BuildSummary {
	if opts.Limit <= 0 {
		return []model.BuildSummary{}
	}

	runs, err := src.RecentRuns(ctx, opts.Limit)
	if err != nil {
		logger.Warn("failed to read recent runs, returning empty build history",
			slog.Int("limit", opts.Limit),
			slog.String("error", err.Error()),
		)
		return []model.BuildSummary{}
	}

	builds := make([]model.BuildSummary, 0, min(len(runs), opts.Limit))
	for _, run := range runs {
		if len(builds) == opts.Limit {
			break
		}

		job := run.Job
		if job == nil {
			logger.Debug("skipping run without job",
				slog.String("build", run.DisplayName),
				slog.Int("number", run.Number),
			)
			continue
		}
		if job.Kind == model.JobKindModule {
			continue
		}
		if opts.Filter != nil && !opts.Filter.MatchString(qualifyingName(job)) {
			continue
		}

		builds = append(builds, model.BuildSummary{
			JobName:   decodeName(job.FullName),
			BuildName: run.DisplayName,
			Number:    run.Number,
			StartTime: run.StartTime,
			Duration:  run.Duration,
			Result:    status.RunLabel(run),
		})
	}

	return builds
}
