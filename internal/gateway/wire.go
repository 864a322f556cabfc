package gateway

import (
	"encoding/json"

	"medsched/internal/model"
)

// ScheduleBody is the payload of template reads and writes.
type ScheduleBody struct {
	Schedule []model.DaySchedule `json:"schedule"`
}

// OverridesBody is the payload of override range reads.
type OverridesBody struct {
	Overrides []model.DayOverride `json:"overrides"`
}

// MessageBody is the answer to a template save.
type MessageBody struct {
	Message string `json:"message"`
}

// ErrorBody is the failure shape: {error} or {error, details}.
type ErrorBody struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Query parameter names of the override range read.
const (
	ParamStartDate          = "start_date"
	ParamEndDate            = "end_date"
	ParamIncludeUnavailable = "include_unavailable"
)
