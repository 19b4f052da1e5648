package repository

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	nomad "github.com/hashicorp/nomad/api"

	"github.com/kirychukyurii/mission-control/internal/concurrent"
	"github.com/kirychukyurii/mission-control/internal/config"
	"github.com/kirychukyurii/mission-control/internal/model"
	"github.com/kirychukyurii/mission-control/internal/util"
)

const defaultNamespace = "default"

// clusterMetadata stores metadata about a cluster
type clusterMetadata struct {
	name   string
	region string
	client *nomad.Client
}

// NomadSource reads Nomad jobs as build jobs and their allocations as runs
type NomadSource struct {
	clusters      []*clusterMetadata // sorted by name
	maxConcurrent int
	logger        *slog.Logger
	now           func() time.Time
}

// NewNomadSource creates a Nomad source with clients for each cluster.
// Unhealthy clusters are kept and only logged: reads degrade instead of failing startup.
func NewNomadSource(cfg config.NomadConfig, logger *slog.Logger) (*NomadSource, error) {
	clusters := make(map[string]*clusterMetadata)

	for i, cluster := range cfg.Clusters {
		client, err := createNomadClient(cluster)
		if err != nil {
			return nil, fmt.Errorf("failed to create client for cluster at index %d: %w", i, err)
		}

		if healthy, healthErr := checkClusterHealth(client); !healthy {
			logger.Warn("nomad cluster is not healthy yet",
				slog.String("address", cluster.Address),
				slog.String("error", healthErr.Error()),
			)
		}

		// Auto-detect name and region from Nomad API if not specified
		name := cluster.Name
		region := cluster.Region

		if name == "" || region == "" {
			detectedName, detectedRegion, err := detectClusterInfo(client)
			if err != nil {
				logger.Warn("failed to auto-detect cluster info, using fallback values",
					slog.String("address", cluster.Address),
					slog.String("error", err.Error()),
				)
				detectedName = fmt.Sprintf("cluster-%d", i)
				detectedRegion = "global"
			}
			if name == "" {
				name = detectedName
			}
			if region == "" {
				region = detectedRegion
			}
		}

		// Use name-region format to keep cluster names unique
		clusterKey := name
		if _, exists := clusters[name]; exists {
			clusterKey = fmt.Sprintf("%s-%s", name, region)
		}

		logger.Info("initialized cluster",
			slog.String("name", clusterKey),
			slog.String("region", region),
			slog.String("address", cluster.Address),
		)

		clusters[clusterKey] = &clusterMetadata{
			name:   clusterKey,
			region: region,
			client: client,
		}
	}

	if len(clusters) == 0 {
		return nil, fmt.Errorf("no nomad clusters configured")
	}

	ordered := make([]*clusterMetadata, 0, len(clusters))
	for _, meta := range clusters {
		ordered = append(ordered, meta)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].name < ordered[j].name })

	return &NomadSource{
		clusters:      ordered,
		maxConcurrent: cfg.MaxConcurrent,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// createNomadClient creates a Nomad API client for a cluster
func createNomadClient(cluster config.ClusterConfig) (*nomad.Client, error) {
	nomadConfig := nomad.DefaultConfig()
	nomadConfig.Address = cluster.Address

	// Set region if specified (used for API calls)
	if cluster.Region != "" {
		nomadConfig.Region = cluster.Region
	}

	if cluster.TLS != nil {
		httpClient, err := util.NewHTTPClient(cluster.TLS)
		if err != nil {
			return nil, err
		}
		nomadConfig.HttpClient = httpClient
	}

	client, err := nomad.NewClient(nomadConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Nomad client: %w", err)
	}

	return client, nil
}

// checkClusterHealth checks if Nomad cluster is healthy and reachable
func checkClusterHealth(client *nomad.Client) (bool, error) {
	leader, err := client.Status().Leader()
	if err != nil {
		return false, fmt.Errorf("failed to get leader: %w", err)
	}

	if leader == "" {
		return false, fmt.Errorf("no leader elected")
	}

	return true, nil
}

// detectClusterInfo queries Nomad API to detect cluster name (datacenter) and region
func detectClusterInfo(client *nomad.Client) (string, string, error) {
	self, err := client.Agent().Self()
	if err != nil {
		return "", "", fmt.Errorf("failed to query agent self: %w", err)
	}

	if self.Config == nil {
		return "", "", fmt.Errorf("config section not found in agent self response")
	}

	datacenter, ok := self.Config["Datacenter"].(string)
	if !ok || datacenter == "" {
		return "", "", fmt.Errorf("datacenter is not a valid string")
	}

	region := "global" // Default Nomad region
	if regionStr, ok := self.Config["Region"].(string); ok && regionStr != "" {
		region = regionStr
	}

	return datacenter, region, nil
}

// AllJobs returns every Nomad job with its newest allocation as last run
func (s *NomadSource) AllJobs(ctx context.Context) ([]model.Job, error) {
	entries, err := s.snapshot(ctx, 1)
	if err != nil {
		return nil, err
	}
	return materializeJobs(entries), nil
}

// RecentRuns returns the newest allocations across all clusters
func (s *NomadSource) RecentRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		return []model.Run{}, nil
	}

	entries, err := s.snapshot(ctx, limit)
	if err != nil {
		return nil, err
	}
	return mergeRecentRuns(entries, limit), nil
}

// snapshot reads every cluster; it fails only when no cluster answered
func (s *NomadSource) snapshot(ctx context.Context, perJob int) ([]jobRuns, error) {
	results := concurrent.ParallelMap(ctx, s.clusters, func(ctx context.Context, meta *clusterMetadata) ([]jobRuns, error) {
		return s.listCluster(ctx, meta, perJob)
	})

	return gatherClusters(s, results)
}

func (s *NomadSource) listCluster(ctx context.Context, meta *clusterMetadata, perJob int) ([]jobRuns, error) {
	q := (&nomad.QueryOptions{Namespace: "*"}).WithContext(ctx)
	stubs, _, err := meta.client.Jobs().List(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	var prefix []string
	if len(s.clusters) > 1 {
		prefix = []string{meta.name}
	}
	now := s.now()

	results := concurrent.ParallelMapWithLimit(ctx, stubs, func(ctx context.Context, stub *nomad.JobListStub) (jobRuns, error) {
		aq := (&nomad.QueryOptions{Namespace: stub.Namespace}).WithContext(ctx)
		allocs, _, err := meta.client.Jobs().Allocations(stub.ID, false, aq)
		if err != nil {
			s.logger.Warn("failed to list allocations, job shown without runs",
				slog.String("cluster", meta.name),
				slog.String("job_id", stub.ID),
				slog.String("error", err.Error()),
			)
			allocs = nil
		}
		return convertNomadJob(stub, allocs, prefix, perJob, now), nil
	}, s.maxConcurrent)

	entries, errs := concurrent.CollectResults(results)
	if len(errs) > 0 {
		return nil, errs[0]
	}

	s.logger.Debug("listed nomad jobs",
		slog.String("cluster", meta.name),
		slog.String("region", meta.region),
		slog.Int("count", len(entries)),
	)

	return entries, nil
}

// convertNomadJob maps a job stub and its allocations to a job with its newest perJob runs.
// Non-default namespaces (and the cluster name, with several clusters) act as folders.
func convertNomadJob(stub *nomad.JobListStub, allocs []*nomad.AllocationListStub, prefix []string, perJob int, now time.Time) jobRuns {
	path := slices.Clone(prefix)
	if stub.Namespace != "" && stub.Namespace != defaultNamespace {
		path = append(path, stub.Namespace)
	}

	job := model.Job{
		Name:      stub.ID,
		FullName:  strings.Join(append(slices.Clone(path), stub.ID), "/"),
		Kind:      model.JobKindRegular,
		Buildable: !stub.Stop,
		Building:  stub.Status == "pending",
	}

	switch {
	case stub.ParentID != "":
		// Periodic launches and dispatched instances belong to their parent job
		job.Kind = model.JobKindSubItem
		job.Parent = &model.Container{FullName: strings.Join(append(slices.Clone(path), stub.ParentID), "/")}
	case len(path) > 0:
		job.Parent = &model.Container{FullName: strings.Join(path, "/"), Folder: true}
	}

	sorted := slices.Clone(allocs)
	slices.SortStableFunc(sorted, func(a, b *nomad.AllocationListStub) int {
		switch {
		case a.CreateTime < b.CreateTime:
			return -1
		case a.CreateTime > b.CreateTime:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})

	runs := make([]model.Run, 0, len(sorted))
	for i, alloc := range sorted {
		result := allocResult(stub.Type, alloc.ClientStatus)
		if result == model.ResultNone && isBatchType(stub.Type) {
			job.Building = true
		}

		runs = append(runs, model.Run{
			Number:      i + 1,
			DisplayName: alloc.Name,
			StartTime:   alloc.CreateTime / int64(time.Millisecond),
			Duration:    allocDuration(alloc, result, now),
			Result:      result,
		})
	}

	if perJob > 0 && len(runs) > perJob {
		runs = runs[len(runs)-perJob:]
	}
	sortRuns(runs)

	return jobRuns{job: job, runs: runs}
}

// QueueItems returns evaluations still waiting for placement across all clusters, oldest first
func (s *NomadSource) QueueItems(ctx context.Context) ([]model.QueueItem, error) {
	results := concurrent.ParallelMap(ctx, s.clusters, func(ctx context.Context, meta *clusterMetadata) ([]model.QueueItem, error) {
		q := (&nomad.QueryOptions{Namespace: "*"}).WithContext(ctx)
		evals, _, err := meta.client.Evaluations().List(q)
		if err != nil {
			return nil, fmt.Errorf("failed to list evaluations: %w", err)
		}

		var items []model.QueueItem
		for _, eval := range evals {
			if eval.Status != nomad.EvalStatusBlocked && eval.Status != nomad.EvalStatusPending {
				continue
			}
			items = append(items, model.QueueItem{
				TaskName:     s.qualify(meta, eval.Namespace, eval.JobID),
				Why:          cmp.Or(eval.StatusDescription, eval.TriggeredBy),
				InQueueSince: eval.CreateTime / int64(time.Millisecond),
				Blocked:      eval.Status == nomad.EvalStatusBlocked,
			})
		}
		return items, nil
	})

	items, err := gatherClusters(s, results)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].ID = int64(i + 1)
	}
	sortQueue(items)

	return items, nil
}

// Nodes returns the client nodes of every cluster; only ready, eligible, non-draining nodes are online
func (s *NomadSource) Nodes(ctx context.Context) ([]model.Node, error) {
	results := concurrent.ParallelMap(ctx, s.clusters, func(ctx context.Context, meta *clusterMetadata) ([]model.Node, error) {
		stubs, _, err := meta.client.Nodes().List((&nomad.QueryOptions{}).WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list nodes: %w", err)
		}

		nodes := make([]model.Node, 0, len(stubs))
		for _, n := range stubs {
			nodes = append(nodes, convertNomadNode(n, s.qualify(meta, "", n.Name)))
		}
		return nodes, nil
	})

	return gatherClusters(s, results)
}

// qualify prefixes a name with its non-default namespace and, with several clusters, the cluster
func (s *NomadSource) qualify(meta *clusterMetadata, namespace, name string) string {
	var path []string
	if len(s.clusters) > 1 {
		path = append(path, meta.name)
	}
	if namespace != "" && namespace != defaultNamespace {
		path = append(path, namespace)
	}
	return strings.Join(append(path, name), "/")
}

// gatherClusters concatenates per-cluster results; it fails only when no cluster answered
func gatherClusters[T any](s *NomadSource, results []concurrent.Result[[]T]) ([]T, error) {
	out := []T{}
	failed := 0
	for i, r := range results {
		if r.Error != nil {
			failed++
			s.logger.Warn("failed to read nomad cluster",
				slog.String("cluster", s.clusters[i].name),
				slog.String("error", r.Error.Error()),
			)
			continue
		}
		out = append(out, r.Value...)
	}

	if failed == len(s.clusters) {
		return nil, fmt.Errorf("%w: no nomad cluster reachable", ErrSourceUnavailable)
	}

	return out, nil
}

func convertNomadNode(n *nomad.NodeListStub, name string) model.Node {
	node := model.Node{
		Name:   name,
		Online: n.Status == nomad.NodeStatusReady && !n.Drain && n.SchedulingEligibility == nomad.NodeSchedulingEligible,
	}

	switch {
	case n.Status != nomad.NodeStatusReady:
		node.OfflineReason = cmp.Or(n.StatusDescription, n.Status)
	case n.Drain:
		node.OfflineReason = "draining"
	case n.SchedulingEligibility != nomad.NodeSchedulingEligible:
		node.OfflineReason = "ineligible for scheduling"
	}

	return node
}

// allocResult maps an allocation client status to a run result
func allocResult(jobType, clientStatus string) model.Result {
	switch clientStatus {
	case nomad.AllocClientStatusComplete:
		return model.ResultSuccess
	case nomad.AllocClientStatusFailed:
		return model.ResultFailure
	case nomad.AllocClientStatusLost:
		return model.ResultAborted
	case nomad.AllocClientStatusUnknown:
		return model.ResultUnstable
	case nomad.AllocClientStatusRunning:
		// A running service allocation is the steady state, a running batch allocation is in progress
		if isBatchType(jobType) {
			return model.ResultNone
		}
		return model.ResultSuccess
	case nomad.AllocClientStatusPending:
		return model.ResultNone
	default:
		return model.Result(strings.ToUpper(clientStatus))
	}
}

func allocDuration(alloc *nomad.AllocationListStub, result model.Result, now time.Time) int64 {
	end := alloc.ModifyTime
	if result == model.ResultNone {
		end = now.UnixNano()
	}
	if end < alloc.CreateTime {
		return 0
	}
	return (end - alloc.CreateTime) / int64(time.Millisecond)
}

func isBatchType(jobType string) bool {
	return jobType == nomad.JobTypeBatch || jobType == nomad.JobTypeSysbatch
}
