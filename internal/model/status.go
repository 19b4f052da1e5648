package model

import "time"

// StatusLabel is the displayable state of a job or build
type StatusLabel string

// Status labels. The set is closed: nothing else is ever emitted.
const (
	StatusBuilding StatusLabel = "BUILDING"
	StatusDisabled StatusLabel = "DISABLED"
	StatusNotBuilt StatusLabel = "NOTBUILT"
	StatusUnknown  StatusLabel = "UNKNOWN"
	StatusSuccess  StatusLabel = "SUCCESS"
	StatusUnstable StatusLabel = "UNSTABLE"
	StatusFailure  StatusLabel = "FAILURE"
	StatusAborted  StatusLabel = "ABORTED"
)

// BuildSummary is one entry of the build history
type BuildSummary struct {
	JobName   string `json:"jobName"`
	BuildName string `json:"buildName"`
	Number    int    `json:"number"`
	StartTime int64  `json:"startTime"` // epoch milliseconds
	Duration  int64  `json:"duration"`  // milliseconds
	Result    string `json:"result"`
}

// JobStatus is the current status of one job
type JobStatus struct {
	JobName string `json:"jobName"`
	Status  string `json:"status"`
}

// Dashboard is the combined payload of a view
type Dashboard struct {
	Builds          []BuildSummary `json:"builds"`
	AllJobsStatuses []JobStatus    `json:"allJobsStatuses"`
}

// ServiceStatus represents the health of the job source as seen by the service
type ServiceStatus struct {
	Source              string    `json:"source"`
	Available           bool      `json:"available"`
	JobsSeen            int       `json:"jobs_seen"`
	LastCheck           time.Time `json:"last_check"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CheckInterval       int64     `json:"check_interval"` // milliseconds
}
