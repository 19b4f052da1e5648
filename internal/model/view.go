package model

// ViewInfo describes a dashboard view and its layout
type ViewInfo struct {
	Name               string `json:"name"`
	HistoryLimit       int    `json:"history_limit"`
	BuildHistorySize   int    `json:"build_history_size"`
	BuildQueueSize     int    `json:"build_queue_size"`
	FontSize           int    `json:"font_size"`
	TableStyle         string `json:"table_style"`
	StatusButtonSize   string `json:"status_button_size"`
	FilterByFailures   bool   `json:"filter_by_failures"`
	FilterBuildHistory string `json:"filter_build_history,omitempty"`
	FilterJobStatuses  string `json:"filter_job_statuses,omitempty"`
	Layout             Layout `json:"layout"`
}

// Layout holds panel heights in percent, "0" for hidden panels
type Layout struct {
	BuildHistoryHeight string `json:"build_history_height"`
	JobsHeight         string `json:"jobs_height"`
	BuildQueueHeight   string `json:"build_queue_height"`
	NodesHeight        string `json:"nodes_height"`
}
