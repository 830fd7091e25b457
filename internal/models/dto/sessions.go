package dto

import "github.com/mentorway/mentorway-be/internal/models"

type BookingRequest struct {
	MentorID    int64   `json:"mentorId"`
	StartTime   string  `json:"startTime"`
	Hours       float64 `json:"hours"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

type RescheduleRequest struct {
	StartTime string  `json:"StartTime"`
	Hours     float64 `json:"hours"`
}

type CancelResponse struct {
	Session models.Session `json:"data"`
	Refund  RefundResult   `json:"refundResult"`
}

type RefundResult struct {
	SessionID int64   `json:"sessionId"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

type SessionStats struct {
	TotalSessions       int     `json:"totalSessions"`
	ScheduledSessions   int     `json:"scheduledSessions"`
	CompletedSessions   int     `json:"completedSessions"`
	CanceledSessions    int     `json:"canceledSessions"`
	ScheduledPercentage float64 `json:"scheduledPercentage"`
	CompletedPercentage float64 `json:"completedPercentage"`
	CanceledPercentage  float64 `json:"canceledPercentage"`
}
