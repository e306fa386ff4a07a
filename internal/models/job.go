package models

// JobSchedule describes when a monitor job fires. Kind "every" repeats
// at a fixed interval; the interval is a lower bound, not a guarantee.
type JobSchedule struct {
	Kind       string `json:"kind"`
	IntervalMs int64  `json:"interval_ms,omitempty"`
}

// JobPayload is the instruction delivered when a monitor job fires.
// The runner parses Message to decide what to do; Deliver routes the
// result.
type JobPayload struct {
	Message string `json:"message"`
	Deliver string `json:"deliver,omitempty"`
	Channel string `json:"channel,omitempty"`
	To      string `json:"to,omitempty"`
}

// MonitorJob is a named recurring instruction registered with the
// external scheduler. The engine creates one per tracked thread and
// the check verb interprets its payload.
type MonitorJob struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Schedule JobSchedule `json:"schedule"`
	Payload  JobPayload  `json:"payload"`
	Enabled  bool        `json:"enabled"`
}
