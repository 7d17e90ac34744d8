package model

import "time"

// Occurrence is a single concrete instance of a calendar event after
// recurrence expansion and timezone normalization.
type Occurrence struct {
	CalendarID string `json:"calendar_id"`
	UID        string `json:"uid"`

	// InstanceKey uniquely identifies one occurrence of a recurring event,
	// derived from the local start time.
	InstanceKey string `json:"instance_key"`

	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	AllDay bool `json:"all_day"`

	// Start / End are in the display timezone.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
