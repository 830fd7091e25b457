package models

import "time"

// SessionStatus is the lifecycle state of a booked session.
type SessionStatus string

const (
	StatusUpcoming   SessionStatus = "upcoming"
	StatusInProgress SessionStatus = "in-progress"
	StatusReschedule SessionStatus = "reschedule"
	StatusCompleted  SessionStatus = "completed"
	StatusCanceled   SessionStatus = "canceled"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Session is a scheduled mentor-client meeting. StartTime < EndTime always
// holds, including after a reschedule.
type Session struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	SessionLink string        `json:"sessionLink"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	MentorID    int64         `json:"mentorId"`
	ClientID    int64         `json:"clientId"`
	Status      SessionStatus `json:"status"`
	Category    string        `json:"category,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// DurationHours is the booked length of the session in hours.
func (s Session) DurationHours() float64 {
	return s.EndTime.Sub(s.StartTime).Hours()
}

// OverlapsInterval applies the half-open interval test used for booking
// conflicts: [start, end) intersects [s.StartTime, s.EndTime).
func (s Session) OverlapsInterval(start, end time.Time) bool {
	return s.StartTime.Before(end) && s.EndTime.After(start)
}
