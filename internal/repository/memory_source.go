package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kirychukyurii/mission-control/internal/model"
)

// MemorySource is an in-process job registry.
// The host engine is the single writer; any number of aggregations may read concurrently.
type MemorySource struct {
	mu        sync.RWMutex
	jobs      map[string]*jobRuns
	order     []string // enumeration order, by first insertion
	queue     []model.QueueItem
	nodes     []model.Node
	available bool
}

// NewMemorySource creates an empty, available registry
func NewMemorySource() *MemorySource {
	return &MemorySource{
		jobs:      make(map[string]*jobRuns),
		available: true,
	}
}

// SetAvailable toggles whether reads succeed, to model a host that is not initialized yet
func (m *MemorySource) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// PutJob registers or replaces a job together with its run history.
// An empty FullName defaults to Name; LastRun is derived from runs and ignored on input.
func (m *MemorySource) PutJob(job model.Job, runs ...model.Run) {
	if job.FullName == "" {
		job.FullName = job.Name
	}
	job.LastRun = nil
	if job.Parent != nil {
		parent := *job.Parent
		job.Parent = &parent
	}

	stored := make([]model.Run, len(runs))
	for i, r := range runs {
		r.Job = nil
		if r.DisplayName == "" {
			r.DisplayName = defaultRunName(job.FullName, r.Number)
		}
		stored[i] = r
	}
	sortRuns(stored)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[job.FullName]; !ok {
		m.order = append(m.order, job.FullName)
	}
	m.jobs[job.FullName] = &jobRuns{job: job, runs: stored}
}

// RemoveJob deletes a job and its runs
func (m *MemorySource) RemoveJob(fullName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[fullName]; !ok {
		return
	}
	delete(m.jobs, fullName)
	for i, name := range m.order {
		if name == fullName {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// SetBuildable enables or disables a job
func (m *MemorySource) SetBuildable(fullName string, buildable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.jobs[fullName]
	if !ok {
		return fmt.Errorf("job %s not found", fullName)
	}
	entry.job.Buildable = buildable
	return nil
}

// StartRun appends a new in-progress run and marks the job as building.
// It returns the number assigned to the run.
func (m *MemorySource) StartRun(fullName string, startTime int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.jobs[fullName]
	if !ok {
		return 0, fmt.Errorf("job %s not found", fullName)
	}

	number := 1
	for _, r := range entry.runs {
		if r.Number >= number {
			number = r.Number + 1
		}
	}

	entry.runs = append(entry.runs, model.Run{
		Number:      number,
		DisplayName: defaultRunName(fullName, number),
		StartTime:   startTime,
	})
	sortRuns(entry.runs)
	entry.job.Building = true

	return number, nil
}

// FinishRun records the result of a run; the job stops building once no run is in progress
func (m *MemorySource) FinishRun(fullName string, number int, result model.Result, duration int64) error {
	if result == model.ResultNone {
		return fmt.Errorf("run %s #%d: result is required", fullName, number)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.jobs[fullName]
	if !ok {
		return fmt.Errorf("job %s not found", fullName)
	}

	found := false
	building := false
	for i := range entry.runs {
		r := &entry.runs[i]
		if r.Number == number {
			r.Result = result
			r.Duration = duration
			found = true
		}
		if !r.HasResult() {
			building = true
		}
	}
	if !found {
		return fmt.Errorf("run %s #%d not found", fullName, number)
	}

	entry.job.Building = building
	return nil
}

// AllJobs returns a detached copy of every job in registration order
func (m *MemorySource) AllJobs(ctx context.Context) ([]model.Job, error) {
	var jobs []model.Job
	err := m.read(ctx, func(entries []jobRuns) {
		jobs = materializeJobs(entries)
	})
	return jobs, err
}

// RecentRuns returns up to limit runs across all jobs, newest first
func (m *MemorySource) RecentRuns(ctx context.Context, limit int) ([]model.Run, error) {
	var runs []model.Run
	err := m.read(ctx, func(entries []jobRuns) {
		runs = mergeRecentRuns(entries, limit)
	})
	return runs, err
}

// read runs fn under the read lock so it never observes a half-applied update.
// fn must copy whatever it keeps; the entries alias the registry.
func (m *MemorySource) read(ctx context.Context, fn func(entries []jobRuns)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.available {
		return ErrSourceUnavailable
	}

	entries := make([]jobRuns, 0, len(m.order))
	for _, name := range m.order {
		entry := m.jobs[name]
		entries = append(entries, jobRuns{job: entry.job, runs: entry.runs})
	}

	fn(entries)
	return nil
}

// SetQueue replaces the waiting work
func (m *MemorySource) SetQueue(items ...model.QueueItem) {
	queue := slices.Clone(items)
	sortQueue(queue)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = queue
}

// SetNodes replaces the build nodes
func (m *MemorySource) SetNodes(nodes ...model.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = slices.Clone(nodes)
}

// QueueItems returns a copy of the waiting work, oldest first
func (m *MemorySource) QueueItems(ctx context.Context) ([]model.QueueItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.available {
		return nil, ErrSourceUnavailable
	}
	return append([]model.QueueItem{}, m.queue...), nil
}

// Nodes returns a copy of the build nodes
func (m *MemorySource) Nodes(ctx context.Context) ([]model.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.available {
		return nil, ErrSourceUnavailable
	}
	return append([]model.Node{}, m.nodes...), nil
}

func defaultRunName(fullName string, number int) string {
	return fmt.Sprintf("%s #%d", fullName, number)
}
