package domain

import "time"

// Session is a contiguous run of events from one identity. Sessions are
// derived on every report and never persisted.
type Session struct {
	Identity     string        `json:"identity"`
	StartTime    time.Time     `json:"start_time"`
	LastActivity time.Time     `json:"last_activity"`
	EndTime      time.Time     `json:"end_time"`
	EventCount   int           `json:"event_count"`
	Duration     time.Duration `json:"duration"`
}
