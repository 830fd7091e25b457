package models

import "time"

// User captures application-facing fields for an authenticated identity.
// WalletBalance never goes negative; the storage layer rejects any write
// that would take it below zero.
type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	Bio           string    `json:"bio,omitempty"`
	Expertise     []string  `json:"expertise,omitempty"`
	Rate          float64   `json:"rate"`
	WalletBalance float64   `json:"walletBalance"`
	CreatedAt     time.Time `json:"created_at"`
}

// AvailabilityWindow is a mentor-declared open time slot, stored in UTC.
// Windows belonging to one mentor never overlap each other.
type AvailabilityWindow struct {
	ID       int64     `json:"id"`
	MentorID int64     `json:"mentorId"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Overlaps reports whether two windows share any instant, half-open.
func (w AvailabilityWindow) Overlaps(other AvailabilityWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Rating is a client review left on a mentor profile.
type Rating struct {
	ID        int64     `json:"id"`
	MentorID  int64     `json:"mentorId"`
	RatedBy   int64     `json:"ratedBy"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"created_at"`
}
