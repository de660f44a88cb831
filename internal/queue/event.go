// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// ImportCompletedEvent is published when an import job finishes staging.
// It carries enough for downstream consumers to log or notify without
// querying the primary database.
type ImportCompletedEvent struct {
	JobID         uint64 `json:"job_id"`
	Reference     string `json:"reference"`
	UserID        uint64 `json:"user_id"`
	CinemaID      uint64 `json:"cinema_id"`
	CinemaGroupID uint64 `json:"cinema_group_id"`
	Status        string `json:"status"`
	TotalRecords  int    `json:"total_records"`
	SuccessCount  int    `json:"success_records"`
	ErrorCount    int    `json:"error_records"`
	AutoMatched   int    `json:"auto_matched"`
	CompletedAt   string `json:"completed_at"`
}
