package service

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/kirychukyurii/mission-control/internal/model"
	"github.com/kirychukyurii/mission-control/internal/repository"
)

// axisNames matches the axis names of a matrix configuration, e.g. "label=" in "label=linux,jdk=17"
var axisNames = regexp.MustCompile(`(,?)\w*=`)

// QueueOptions controls the build queue panel
type QueueOptions struct {
	Limit int
	Now   time.Time
}

// BuildQueue returns up to opts.Limit waiting items, oldest first, with how long each has waited.
// An unavailable source yields an empty panel.
func BuildQueue(ctx context.Context, infra repository.Infrastructure, opts QueueOptions, logger *slog.Logger) []model.QueueEntry {
	entries := []model.QueueEntry{}
	if opts.Limit <= 0 {
		return entries
	}

	items, err := infra.QueueItems(ctx)
	if err != nil {
		logger.Warn("failed to read build queue",
			slog.String("error", err.Error()),
		)
		return entries
	}

	now := opts.Now.UnixMilli()
	for _, item := range items {
		if len(entries) == opts.Limit {
			break
		}
		entries = append(entries, model.QueueEntry{
			TaskName:     queueTaskName(item.TaskName),
			InQueueSince: item.InQueueSince,
			Waiting:      max(0, now-item.InQueueSince),
			Why:          item.Why,
		})
	}

	return entries
}

// NodeStatuses returns the build nodes; an unavailable source yields an empty panel
func NodeStatuses(ctx context.Context, infra repository.Infrastructure, logger *slog.Logger) []model.Node {
	nodes, err := infra.Nodes(ctx)
	if err != nil {
		logger.Warn("failed to read nodes",
			slog.String("error", err.Error()),
		)
		return []model.Node{}
	}
	return nodes
}

// queueTaskName shortens matrix configurations to their axis values
func queueTaskName(name string) string {
	return axisNames.ReplaceAllString(name, "$1")
}
