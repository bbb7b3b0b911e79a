package model

import "time"

type SessionSnapshot struct {
	Source      string           `json:"source"`
	Dest        string           `json:"dest"`
	Policy      DeletionPolicy   `json:"policy"`
	State       DestinationState `json:"state"`
	StartedAt   time.Time        `json:"started_at"`
	Batches     int              `json:"batches"`
	Dropped     int              `json:"dropped"`
	Copied      int              `json:"copied"`
	Deleted     int              `json:"deleted"`
	Skipped     int              `json:"skipped"`
	Failed      int              `json:"failed"`
	LastSync    *time.Time       `json:"last_sync"`
	LastChanged *time.Time       `json:"last_state_change"`
}
