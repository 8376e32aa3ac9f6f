package zones

import "time"

// Zone is a delivery zone inside a division.
type Zone struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Division  string    `json:"division"`
	Area      string    `json:"area"`
	Priority  int       `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordID implements liststate.Record.
func (z Zone) RecordID() string { return z.ID }

const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
)

// Divisions offered by the division filter.
var Divisions = []string{"Dhaka", "Chattogram", "Rajshahi", "Khulna", "Barishal", "Sylhet", "Rangpur", "Mymensingh"}
