package realtime

import "time"

type JobEventKind string

const (
	JobEventStarted   JobEventKind = "started"
	JobEventProgress  JobEventKind = "progress"
	JobEventSucceeded JobEventKind = "succeeded"
	JobEventFailed    JobEventKind = "failed"
)

// JobEvent is published whenever a background job changes state.
type JobEvent struct {
	Kind       JobEventKind `json:"kind"`
	JobID      string       `json:"job_id"`
	JobType    string       `json:"job_type"`
	EntityType string       `json:"entity_type,omitempty"`
	EntityID   string       `json:"entity_id,omitempty"`
	DeviceID   string       `json:"device_id,omitempty"`
	Stage      string       `json:"stage,omitempty"`
	Progress   int          `json:"progress,omitempty"`
	Error      string       `json:"error,omitempty"`
	At         time.Time    `json:"at"`
}
