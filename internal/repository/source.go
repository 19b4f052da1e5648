package repository

import (
	"container/heap"
	"context"
	"errors"
	"slices"

	"github.com/kirychukyurii/mission-control/internal/model"
)

// ErrSourceUnavailable is returned when the host build system cannot be read yet
var ErrSourceUnavailable = errors.New("job source unavailable")

// Source defines the read-only view of the host build system.
// Every returned slice is a coherent snapshot and must not be modified by callers.
type Source interface {
	// AllJobs returns every job known to the host, folders excluded
	AllJobs(ctx context.Context) ([]model.Job, error)

	// RecentRuns returns at most limit runs across all jobs, most recent start time first
	RecentRuns(ctx context.Context, limit int) ([]model.Run, error)
}

// Infrastructure is the executor side of the host
type Infrastructure interface {
	// QueueItems returns the work waiting to start, oldest first
	QueueItems(ctx context.Context) ([]model.QueueItem, error)

	// Nodes returns the machines that run builds
	Nodes(ctx context.Context) ([]model.Node, error)
}

// Backend is a host exposing both its jobs and its infrastructure
type Backend interface {
	Source
	Infrastructure
}

// sortQueue orders queue items oldest first, then by id
func sortQueue(items []model.QueueItem) {
	slices.SortStableFunc(items, func(a, b model.QueueItem) int {
		if a.InQueueSince != b.InQueueSince {
			if a.InQueueSince < b.InQueueSince {
				return -1
			}
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

// jobRuns pairs a job with its runs ordered oldest first
type jobRuns struct {
	job  model.Job
	runs []model.Run
}

// sortRuns orders runs oldest first by start time, then by number
func sortRuns(runs []model.Run) {
	slices.SortStableFunc(runs, func(a, b model.Run) int {
		if a.StartTime != b.StartTime {
			if a.StartTime < b.StartTime {
				return -1
			}
			return 1
		}
		return a.Number - b.Number
	})
}

// materializeJobs copies entries into detached jobs with LastRun set to the newest run
func materializeJobs(entries []jobRuns) []model.Job {
	jobs := make([]model.Job, len(entries))
	for i, e := range entries {
		jobs[i] = e.job
		jobs[i].LastRun = nil
		if n := len(e.runs); n > 0 {
			last := e.runs[n-1]
			last.Job = &jobs[i]
			jobs[i].LastRun = &last
		}
	}
	return jobs
}

// mergeRecentRuns returns up to limit runs across all entries, newest first.
// It walks each job's run list from the tail, so the cost is O(jobs + limit*log(jobs)).
func mergeRecentRuns(entries []jobRuns, limit int) []model.Run {
	if limit <= 0 {
		return []model.Run{}
	}

	jobs := materializeJobs(entries)

	h := make(runHeap, 0, len(entries))
	for i, e := range entries {
		if len(e.runs) > 0 {
			h = append(h, runCursor{entry: i, pos: len(e.runs) - 1, run: &entries[i].runs[len(e.runs)-1], jobName: e.job.FullName})
		}
	}
	heap.Init(&h)

	runs := make([]model.Run, 0, min(limit, 64))
	for h.Len() > 0 && len(runs) < limit {
		top := h[0]

		run := *top.run
		run.Job = &jobs[top.entry]
		runs = append(runs, run)

		if top.pos == 0 {
			heap.Pop(&h)
			continue
		}
		h[0].pos--
		h[0].run = &entries[top.entry].runs[h[0].pos]
		heap.Fix(&h, 0)
	}

	return runs
}

type runCursor struct {
	entry   int
	pos     int
	run     *model.Run
	jobName string
}

// runHeap is a max-heap on start time; ties break on job name then run number for a stable order
type runHeap []runCursor

func (h runHeap) Len() int { return len(h) }

func (h runHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.run.StartTime != b.run.StartTime {
		return a.run.StartTime > b.run.StartTime
	}
	if a.jobName != b.jobName {
		return a.jobName < b.jobName
	}
	return a.run.Number > b.run.Number
}

func (h runHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *runHeap) Push(x any) { *h = append(*h, x.(runCursor)) }

func (h *runHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
