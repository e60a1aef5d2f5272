package audit

import (
	"fmt"
	"time"
)

// Action identifies what kind of moderation event an entry records. Internal
// code matches on Action values; the string form exists only at the
// persistence boundary.
type Action int

const (
	ActionEdit Action = iota
	ActionMarkedDuplicate
	ActionHidden
	ActionUnhidden
	ActionReportStatusChange
	ActionDelete
)

var actionNames = map[Action]string{
	ActionEdit:               "edit",
	ActionMarkedDuplicate:    "markedDuplicate",
	ActionHidden:             "hidden",
	ActionUnhidden:           "unhidden",
	ActionReportStatusChange: "reportStatusChange",
	ActionDelete:             "delete",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(a))
}

// ParseAction decodes the stored string form of an action.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown audit action %q", s)
}

// Actor is who performed a logged action. Zero value means a system action.
type Actor struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// Entry is one append-only audit record. Entries are never mutated or
// deleted by the application.
type Entry struct {
	ID        string            `json:"id"`
	SpotID    string            `json:"spot_id"`
	Action    Action            `json:"action"`
	UserID    string            `json:"user_id"`
	UserName  string            `json:"user_name"`
	Changes   map[string]Change `json:"changes,omitempty"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
