package model

// JobKind tells the aggregators whether a job is shown on its own
type JobKind int

const (
	// JobKindRegular is an independently buildable job
	JobKindRegular JobKind = iota
	// JobKindSubItem is a container-derived job (matrix axis configuration, dispatched child)
	JobKindSubItem
	// JobKindModule is a module of a multi-module project; its runs are folded into the parent run
	JobKindModule
)

// String returns the kind name used in logs and fixtures
func (k JobKind) String() string {
	switch k {
	case JobKindSubItem:
		return "subitem"
	case JobKindModule:
		return "module"
	default:
		return "regular"
	}
}

// ParseJobKind maps a fixture kind name to a JobKind, unknown names are regular jobs
func ParseJobKind(s string) JobKind {
	switch s {
	case "subitem", "sub-item", "configuration":
		return JobKindSubItem
	case "module":
		return JobKindModule
	default:
		return JobKindRegular
	}
}

// Container describes the direct parent of a nested job
type Container struct {
	FullName string `json:"full_name"`
	Folder   bool   `json:"folder"` // folder-like containers qualify the display name of their children
}

// Job represents a job tracked by the host build system
type Job struct {
	Name      string     `json:"name"`
	FullName  string     `json:"full_name"` // hierarchical path, e.g. "folder/job"
	Kind      JobKind    `json:"kind"`
	Parent    *Container `json:"parent,omitempty"`
	Buildable bool       `json:"buildable"`
	Building  bool       `json:"building"`
	LastRun   *Run       `json:"last_run,omitempty"` // nil if the job was never built
}

// Result is the outcome of a finished run
type Result string

// Run results. ResultNone means the run is still in progress.
const (
	ResultNone     Result = ""
	ResultSuccess  Result = "SUCCESS"
	ResultUnstable Result = "UNSTABLE"
	ResultFailure  Result = "FAILURE"
	ResultAborted  Result = "ABORTED"
)

// Run represents one execution of a job
type Run struct {
	Job         *Job   `json:"-"` // back-reference to the parent job
	Number      int    `json:"number"`
	DisplayName string `json:"display_name"`
	StartTime   int64  `json:"start_time"` // epoch milliseconds
	Duration    int64  `json:"duration"`   // milliseconds
	Result      Result `json:"result"`
}

// HasResult returns true once the run has finished
func (r *Run) HasResult() bool {
	return r.Result != ResultNone
}
