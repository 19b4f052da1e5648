package repository

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/bndr/gojenkins"

	"github.com/kirychukyurii/mission-control/internal/concurrent"
	"github.com/kirychukyurii/mission-control/internal/config"
	"github.com/kirychukyurii/mission-control/internal/model"
	"github.com/kirychukyurii/mission-control/internal/util"
)

// Jenkins item classes the source treats specially
const (
	classFolder             = "com.cloudbees.hudson.plugins.folder.Folder"
	classOrganizationFolder = "jenkins.branch.OrganizationFolder"
	classMultiBranchProject = "org.jenkinsci.plugins.workflow.multibranch.WorkflowMultiBranchProject"
	classMatrixConfig       = "hudson.matrix.MatrixConfiguration"
	classMavenModule        = "hudson.maven.MavenModule"
)

const (
	// buildTreeFields are the build attributes requested with the Jenkins tree parameter
	buildTreeFields = "number,displayName,fullDisplayName,timestamp,duration,result,building"

	// jobTreeFields are the attributes requested for every item of the job tree
	jobTreeFields = "_class,name,color,buildable,lastBuild[" + buildTreeFields + "]"

	defaultFolderDepth = 3
)

// JenkinsSource reads jobs and builds from a Jenkins controller
type JenkinsSource struct {
	url           string
	username      string
	token         string
	httpClient    *http.Client
	maxConcurrent int
	folderDepth   int
	logger        *slog.Logger

	mu      sync.Mutex
	jenkins *gojenkins.Jenkins
}

// jenkinsItem is one node of the job tree
type jenkinsItem struct {
	Class                string        `json:"_class"`
	Name                 string        `json:"name"`
	Color                string        `json:"color"`
	Buildable            bool          `json:"buildable"`
	LastBuild            *jenkinsBuild `json:"lastBuild"`
	Jobs                 []jenkinsItem `json:"jobs"`
	Modules              []jenkinsItem `json:"modules"`
	ActiveConfigurations []jenkinsItem `json:"activeConfigurations"`
}

type jenkinsJobTree struct {
	Jobs []jenkinsItem `json:"jobs"`
}

// jenkinsJob is a job found in the tree, with the API path it is read from
type jenkinsJob struct {
	job       model.Job
	path      string
	lastBuild *jenkinsBuild
}

type jenkinsBuild struct {
	Number          int    `json:"number"`
	DisplayName     string `json:"displayName"`
	FullDisplayName string `json:"fullDisplayName"`
	Timestamp       int64  `json:"timestamp"`
	Duration        int64  `json:"duration"`
	Result          string `json:"result"`
	Building        bool   `json:"building"`
}

type jenkinsBuildTree struct {
	Builds []jenkinsBuild `json:"builds"`
}

// buildCursor tracks the builds read so far for one job, newest first
type buildCursor struct {
	job    jenkinsJob
	builds []jenkinsBuild
	offset int // index of the next unread build on the controller
	bound  int // most builds of this job that can rank within the limit
	done   bool
}

// NewJenkinsSource creates a Jenkins source. The controller is contacted lazily on first read,
// so a controller that is still starting only yields empty dashboards.
func NewJenkinsSource(cfg config.JenkinsConfig, logger *slog.Logger) (*JenkinsSource, error) {
	httpClient, err := util.NewHTTPClient(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to create jenkins http client: %w", err)
	}

	depth := cfg.FolderDepth
	if depth < 1 {
		depth = defaultFolderDepth
	}

	return &JenkinsSource{
		url:           cfg.URL,
		username:      cfg.Username,
		token:         cfg.Token,
		httpClient:    httpClient,
		maxConcurrent: cfg.MaxConcurrent,
		folderDepth:   depth,
		logger:        logger,
	}, nil
}

// AllJobs returns every job with its last build, read from a single job tree request
func (s *JenkinsSource) AllJobs(ctx context.Context) ([]model.Job, error) {
	_, found, err := s.listJobs(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]jobRuns, len(found))
	for i, f := range found {
		entries[i] = jobRuns{job: f.job, runs: f.lastRuns()}
	}
	return materializeJobs(entries), nil
}

// RecentRuns merges the newest builds across jobs. Older builds are paged in only for jobs whose
// fetched builds all still rank within the limit.
func (s *JenkinsSource) RecentRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		return []model.Run{}, nil
	}

	jenkins, found, err := s.listJobs(ctx)
	if err != nil {
		return nil, err
	}

	cursors := newBuildCursors(found, limit)
	if len(cursors) == 0 {
		return []model.Run{}, nil
	}
	firstPage := max(2, limit/len(cursors)+1)

	for {
		runs := mergeRecentRuns(cursorEntries(cursors), limit)

		pending := pendingCursors(cursors, runs)
		if len(pending) == 0 {
			return runs, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.fetchPages(ctx, jenkins, pending, firstPage)
	}
}

// QueueItems returns the build queue, oldest first
func (s *JenkinsSource) QueueItems(ctx context.Context) ([]model.QueueItem, error) {
	jenkins, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	queue, err := jenkins.GetQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get build queue: %w", err)
	}

	items := make([]model.QueueItem, 0, len(queue.Raw.Items))
	for _, task := range queue.Raw.Items {
		items = append(items, model.QueueItem{
			ID:           task.ID,
			TaskName:     task.Task.Name,
			Why:          task.Why,
			InQueueSince: task.InQueueSince,
			Blocked:      task.Blocked,
			Stuck:        task.Stuck,
		})
	}
	sortQueue(items)

	return items, nil
}

// Nodes returns the controller and its agents
func (s *JenkinsSource) Nodes(ctx context.Context) ([]model.Node, error) {
	jenkins, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	computers, err := jenkins.GetAllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get nodes: %w", err)
	}

	nodes := make([]model.Node, 0, len(computers))
	for _, c := range computers {
		node := model.Node{
			Name:          c.Raw.DisplayName,
			Online:        !c.Raw.Offline,
			Executors:     int(c.Raw.NumExecutors),
			OfflineReason: c.Raw.OfflineCauseReason,
		}
		if c.Raw.TemporarilyOffline && node.OfflineReason == "" {
			node.OfflineReason = "temporarily offline"
		}
		nodes = append(nodes, node)
	}

	return nodes, nil
}

// connect initializes the client once; failures are reported as an unavailable source
func (s *JenkinsSource) connect(ctx context.Context) (*gojenkins.Jenkins, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jenkins != nil {
		return s.jenkins, nil
	}

	var auth []interface{}
	if s.username != "" {
		auth = []interface{}{s.username, s.token}
	}

	jenkins := gojenkins.CreateJenkins(s.httpClient, s.url, auth...)
	if _, err := jenkins.Init(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to connect to Jenkins: %v", ErrSourceUnavailable, err)
	}

	s.logger.Info("connected to jenkins",
		slog.String("url", s.url),
	)

	s.jenkins = jenkins
	return jenkins, nil
}

// listJobs reads the job tree from the root and flattens it into jobs
func (s *JenkinsSource) listJobs(ctx context.Context) (*gojenkins.Jenkins, []jenkinsJob, error) {
	jenkins, err := s.connect(ctx)
	if err != nil {
		return nil, nil, err
	}

	tree, err := s.fetchTree(ctx, jenkins, "/")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to get job tree: %v", ErrSourceUnavailable, err)
	}

	var found []jenkinsJob
	s.walk(ctx, jenkins, tree.Jobs, 1, nil, nil, &found)

	s.logger.Debug("listed jenkins jobs",
		slog.Int("top_level", len(tree.Jobs)),
		slog.Int("count", len(found)),
	)

	return jenkins, found, nil
}

// walk flattens items at the given tree level. Folders are descended but never emitted;
// folders at the depth limit only list child names, so their subtree is read separately.
func (s *JenkinsSource) walk(ctx context.Context, jenkins *gojenkins.Jenkins, items []jenkinsItem, level int, parents []string, parent *model.Container, found *[]jenkinsJob) {
	for _, item := range items {
		path := append(slices.Clone(parents), item.Name)

		if isFolderClass(item.Class) || item.Jobs != nil {
			children, childLevel := item.Jobs, level
			if level >= s.folderDepth && len(children) > 0 {
				sub, err := s.fetchTree(ctx, jenkins, jenkinsPath(path))
				if err != nil {
					s.logger.Warn("failed to read folder, skipping its jobs",
						slog.String("folder", strings.Join(path, "/")),
						slog.String("error", err.Error()),
					)
					continue
				}
				children, childLevel = sub.Jobs, 0
			}

			container := &model.Container{FullName: strings.Join(path, "/"), Folder: true}
			s.walk(ctx, jenkins, children, childLevel+1, path, container, found)
			continue
		}

		job := convertJenkinsJob(item, parents, parent)
		*found = append(*found, jenkinsJob{job: job, path: jenkinsPath(path), lastBuild: item.LastBuild})

		// Maven modules and matrix configurations are jobs nested in a buildable project
		project := &model.Container{FullName: job.FullName}
		for _, m := range item.Modules {
			*found = append(*found, nestedJob(m, path, project, model.JobKindModule))
		}
		for _, c := range item.ActiveConfigurations {
			*found = append(*found, nestedJob(c, path, project, model.JobKindSubItem))
		}
	}
}

// fetchTree reads the job tree below path, folderDepth levels deep
func (s *JenkinsSource) fetchTree(ctx context.Context, jenkins *gojenkins.Jenkins, path string) (*jenkinsJobTree, error) {
	var tree jenkinsJobTree
	query := map[string]string{
		"tree": jobTreeQuery(s.folderDepth),
	}

	resp, err := jenkins.Requester.GetJSON(ctx, path, &tree, query)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}

	return &tree, nil
}

// fetchBuilds reads builds [from, to) of a job, newest first
func (s *JenkinsSource) fetchBuilds(ctx context.Context, jenkins *gojenkins.Jenkins, path string, from, to int) ([]jenkinsBuild, error) {
	var tree jenkinsBuildTree
	query := map[string]string{
		"tree": fmt.Sprintf("builds[%s]{%d,%d}", buildTreeFields, from, to),
	}

	resp, err := jenkins.Requester.GetJSON(ctx, path, &tree, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get builds: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get builds: unexpected status %d", resp.StatusCode)
	}

	return tree.Builds, nil
}

// fetchPages reads the next page of builds for every pending cursor.
// A job whose builds cannot be read keeps what was already read.
func (s *JenkinsSource) fetchPages(ctx context.Context, jenkins *gojenkins.Jenkins, pending []*buildCursor, firstPage int) {
	concurrent.ParallelMapWithLimit(ctx, pending, func(ctx context.Context, c *buildCursor) (int, error) {
		want := min(c.bound, max(2*len(c.builds), firstPage))
		count := want - len(c.builds)

		builds, err := s.fetchBuilds(ctx, jenkins, c.job.path, c.offset, c.offset+count)
		if err != nil {
			s.logger.Warn("failed to get builds for job, keeping its last build",
				slog.String("job", c.job.job.FullName),
				slog.String("error", err.Error()),
			)
			c.done = true
			return 0, nil
		}

		c.offset += len(builds)
		if len(builds) < count {
			c.done = true
		}

		// Builds started since the tree was read shift the page; keep only older ones
		last := c.builds[len(c.builds)-1].Number
		for _, b := range builds {
			if b.Number < last {
				c.builds = append(c.builds, b)
				last = b.Number
			}
		}

		return len(builds), nil
	}, s.maxConcurrent)
}

func (j jenkinsJob) lastRuns() []model.Run {
	if j.lastBuild == nil {
		return nil
	}
	return convertJenkinsBuilds([]jenkinsBuild{*j.lastBuild})
}

// newBuildCursors ranks jobs by their last build like the merge does and keeps at most limit.
// The job ranked i has i newer last builds ahead of it, so at most limit-i of its builds can rank.
func newBuildCursors(found []jenkinsJob, limit int) []*buildCursor {
	ranked := make([]jenkinsJob, 0, len(found))
	for _, f := range found {
		if f.lastBuild != nil {
			ranked = append(ranked, f)
		}
	}

	slices.SortStableFunc(ranked, func(a, b jenkinsJob) int {
		if c := cmp.Compare(b.lastBuild.Timestamp, a.lastBuild.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.job.FullName, b.job.FullName)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	cursors := make([]*buildCursor, len(ranked))
	for i, f := range ranked {
		cursors[i] = &buildCursor{
			job:    f,
			builds: []jenkinsBuild{*f.lastBuild},
			offset: 1,
			bound:  limit - i,
		}
	}
	return cursors
}

func cursorEntries(cursors []*buildCursor) []jobRuns {
	entries := make([]jobRuns, len(cursors))
	for i, c := range cursors {
		entries[i] = jobRuns{job: c.job.job, runs: convertJenkinsBuilds(c.builds)}
	}
	return entries
}

// pendingCursors returns the jobs that may still have older builds within the limit:
// every build read so far made it into runs and more may exist.
func pendingCursors(cursors []*buildCursor, runs []model.Run) []*buildCursor {
	taken := make(map[string]int, len(cursors))
	for _, r := range runs {
		taken[r.Job.FullName]++
	}

	var pending []*buildCursor
	for _, c := range cursors {
		if c.done || len(c.builds) >= c.bound {
			continue
		}
		if taken[c.job.job.FullName] == len(c.builds) {
			pending = append(pending, c)
		}
	}
	return pending
}

// jobTreeQuery builds a tree parameter reading depth levels of folders.
// Items on the last level list their children by name only.
func jobTreeQuery(depth int) string {
	item := jobTreeFields +
		",modules[" + jobTreeFields + "]" +
		",activeConfigurations[" + jobTreeFields + "]"

	level := item + ",jobs[_class,name]"
	for i := 1; i < depth; i++ {
		level = item + ",jobs[" + level + "]"
	}
	return "jobs[" + level + "]"
}

// jenkinsPath returns the API path of an item from its name segments
func jenkinsPath(segments []string) string {
	var b strings.Builder
	for _, segment := range segments {
		b.WriteString("/job/")
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}

func nestedJob(item jenkinsItem, projectPath []string, project *model.Container, kind model.JobKind) jenkinsJob {
	job := convertJenkinsJob(item, projectPath, project)
	if job.Kind == model.JobKindRegular {
		job.Kind = kind
	}

	// Nested items live directly below the project URL, Maven modules use '$' for ':'
	segment := strings.ReplaceAll(item.Name, ":", "$")
	return jenkinsJob{
		job:       job,
		path:      jenkinsPath(projectPath) + "/" + url.PathEscape(segment),
		lastBuild: item.LastBuild,
	}
}

// convertJenkinsJob maps a job tree item to the job model
func convertJenkinsJob(item jenkinsItem, parents []string, parent *model.Container) model.Job {
	path := append(slices.Clone(parents), item.Name)

	building := strings.HasSuffix(item.Color, "_anime")
	if item.LastBuild != nil && item.LastBuild.Building {
		building = true
	}

	return model.Job{
		Name:      item.Name,
		FullName:  strings.Join(path, "/"),
		Kind:      jenkinsJobKind(item.Class),
		Parent:    parent,
		Buildable: item.Buildable,
		Building:  building,
	}
}

// convertJenkinsBuilds maps newest-first Jenkins builds to oldest-first runs
func convertJenkinsBuilds(builds []jenkinsBuild) []model.Run {
	runs := make([]model.Run, 0, len(builds))
	for i := len(builds) - 1; i >= 0; i-- {
		b := builds[i]

		name := b.FullDisplayName
		if name == "" {
			name = b.DisplayName
		}

		result := model.Result(strings.ToUpper(b.Result))
		if b.Building {
			result = model.ResultNone
		}

		runs = append(runs, model.Run{
			Number:      b.Number,
			DisplayName: name,
			StartTime:   b.Timestamp,
			Duration:    b.Duration,
			Result:      result,
		})
	}
	sortRuns(runs)
	return runs
}

func jenkinsJobKind(class string) model.JobKind {
	switch class {
	case classMavenModule:
		return model.JobKindModule
	case classMatrixConfig:
		return model.JobKindSubItem
	default:
		return model.JobKindRegular
	}
}

func isFolderClass(class string) bool {
	switch class {
	case classFolder, classOrganizationFolder, classMultiBranchProject:
		return true
	default:
		return false
	}
}
