package report

import "time"

// Report statuses form a tiny lifecycle: every report starts open and is
// moved to reviewed or dismissed by a moderator.
const (
	StatusOpen      = "open"
	StatusReviewed  = "reviewed"
	StatusDismissed = "dismissed"
)

func ValidStatus(s string) bool {
	return s == StatusOpen || s == StatusReviewed || s == StatusDismissed
}

type Report struct {
	ID           string    `json:"id"`
	SpotID       string    `json:"spot_id"`
	ReporterID   string    `json:"reporter_id"`
	ReporterName string    `json:"reporter_name,omitempty"`
	Reason       string    `json:"reason"`
	Message      string    `json:"message,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
