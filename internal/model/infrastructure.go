package model

// QueueItem is a unit of work waiting for an executor
type QueueItem struct {
	ID           int64  `json:"id"`
	TaskName     string `json:"taskName"`
	Why          string `json:"why,omitempty"`
	InQueueSince int64  `json:"inQueueSince"` // epoch milliseconds
	Blocked      bool   `json:"blocked"`
	Stuck        bool   `json:"stuck"`
}

// Node is a machine that runs builds
type Node struct {
	Name          string `json:"name"`
	Online        bool   `json:"online"`
	Executors     int    `json:"executors"`
	OfflineReason string `json:"offlineReason,omitempty"`
}

// QueueEntry is one row of the build queue panel
type QueueEntry struct {
	TaskName     string `json:"taskName"`
	InQueueSince int64  `json:"inQueueSince"` // epoch milliseconds
	Waiting      int64  `json:"waiting"`      // milliseconds
	Why          string `json:"why,omitempty"`
}
