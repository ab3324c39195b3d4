package domain

import "time"

// ActivityKind enumerates the kinds of logged interactions.
type ActivityKind string

const (
	ActivityCall    ActivityKind = "Call"
	ActivityEmail   ActivityKind = "Email"
	ActivityMeeting ActivityKind = "Meeting"
	ActivityNote    ActivityKind = "Note"
	ActivityTask    ActivityKind = "Task"
)

// ActivityKinds lists every activity kind.
var ActivityKinds = []ActivityKind{
	ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityTask,
}

// Valid reports whether k is a known kind.
func (k ActivityKind) Valid() bool {
	for _, v := range ActivityKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Activity is one entry in the interaction log. Exactly one of LeadID and
// CustomerID is set.
type Activity struct {
	ID         int64        `json:"id"`
	LeadID     *int64       `json:"lead_id,omitempty"`
	CustomerID *int64       `json:"customer_id,omitempty"`
	Kind       ActivityKind `json:"kind"`
	Subject    string       `json:"subject"`
	Details    string       `json:"details"`
	OccurredAt time.Time    `json:"occurred_at"`
	CreatedAt  time.Time    `json:"created_at"`
}

// HasSingleSubject reports whether the activity points at exactly one of a
// lead or a customer.
func (a *Activity) HasSingleSubject() bool {
	return (a.LeadID == nil) != (a.CustomerID == nil)
}
