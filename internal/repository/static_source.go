package repository

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kirychukyurii/mission-control/internal/model"
)

// fixtureFile is the layout of a static source file
type fixtureFile struct {
	Jobs  []fixtureJob       `koanf:"jobs"`
	Queue []fixtureQueueItem `koanf:"queue"`
	Nodes []fixtureNode      `koanf:"nodes"`
}

type fixtureQueueItem struct {
	ID           int64  `koanf:"id"`
	Task         string `koanf:"task"`
	Why          string `koanf:"why"`
	InQueueSince int64  `koanf:"in_queue_since"`
	Blocked      bool   `koanf:"blocked"`
	Stuck        bool   `koanf:"stuck"`
}

type fixtureNode struct {
	Name          string `koanf:"name"`
	Offline       bool   `koanf:"offline"`
	Executors     int    `koanf:"executors"`
	OfflineReason string `koanf:"offline_reason"`
}

type fixtureJob struct {
	Name     string       `koanf:"name"`
	Folder   string       `koanf:"folder"` // folder-like parent, e.g. "team/backend"
	Parent   string       `koanf:"parent"` // non-folder container, e.g. the matrix project of a configuration
	Kind     string       `koanf:"kind"`   // regular | subitem | module
	Disabled bool         `koanf:"disabled"`
	Building bool         `koanf:"building"`
	Runs     []fixtureRun `koanf:"runs"`
}

type fixtureRun struct {
	Number      int    `koanf:"number"`
	DisplayName string `koanf:"display_name"`
	StartTime   int64  `koanf:"start_time"`
	Duration    int64  `koanf:"duration"`
	Result      string `koanf:"result"` // empty while running
}

// NewStaticSource loads jobs and runs from a YAML fixture into a MemorySource
func NewStaticSource(path string, logger *slog.Logger) (*MemorySource, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load static source %s: %w", path, err)
	}

	var fixture fixtureFile
	if err := k.Unmarshal("", &fixture); err != nil {
		return nil, fmt.Errorf("failed to unmarshal static source: %w", err)
	}

	src := NewMemorySource()
	runCount := 0
	for i, fj := range fixture.Jobs {
		if fj.Name == "" {
			return nil, fmt.Errorf("jobs[%d].name is required", i)
		}

		job := fixtureToJob(fj)
		runs := make([]model.Run, 0, len(fj.Runs))
		for _, fr := range fj.Runs {
			runs = append(runs, model.Run{
				Number:      fr.Number,
				DisplayName: fr.DisplayName,
				StartTime:   fr.StartTime,
				Duration:    fr.Duration,
				Result:      model.Result(strings.ToUpper(fr.Result)),
			})
		}
		src.PutJob(job, runs...)
		runCount += len(runs)
	}

	queue := make([]model.QueueItem, 0, len(fixture.Queue))
	for i, fq := range fixture.Queue {
		if fq.Task == "" {
			return nil, fmt.Errorf("queue[%d].task is required", i)
		}
		queue = append(queue, model.QueueItem{
			ID:           fq.ID,
			TaskName:     fq.Task,
			Why:          fq.Why,
			InQueueSince: fq.InQueueSince,
			Blocked:      fq.Blocked,
			Stuck:        fq.Stuck,
		})
	}
	src.SetQueue(queue...)

	nodes := make([]model.Node, 0, len(fixture.Nodes))
	for i, fn := range fixture.Nodes {
		if fn.Name == "" {
			return nil, fmt.Errorf("nodes[%d].name is required", i)
		}
		nodes = append(nodes, model.Node{
			Name:          fn.Name,
			Online:        !fn.Offline,
			Executors:     fn.Executors,
			OfflineReason: fn.OfflineReason,
		})
	}
	src.SetNodes(nodes...)

	logger.Info("static source loaded",
		slog.String("path", path),
		slog.Int("jobs", len(fixture.Jobs)),
		slog.Int("runs", runCount),
		slog.Int("queued", len(queue)),
		slog.Int("nodes", len(nodes)),
	)

	return src, nil
}

func fixtureToJob(fj fixtureJob) model.Job {
	job := model.Job{
		Name:      fj.Name,
		FullName:  fj.Name,
		Kind:      model.ParseJobKind(fj.Kind),
		Buildable: !fj.Disabled,
		Building:  fj.Building,
	}

	switch {
	case fj.Folder != "":
		job.FullName = fj.Folder + "/" + fj.Name
		job.Parent = &model.Container{FullName: fj.Folder, Folder: true}
	case fj.Parent != "":
		job.FullName = fj.Parent + "/" + fj.Name
		job.Parent = &model.Container{FullName: fj.Parent}
	}

	return job
}
