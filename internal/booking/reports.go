package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mentorway/mentorway-be/internal/app"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/models/dto"
	"github.com/mentorway/mentorway-be/internal/storage"
)

// SessionsByMentor lists every session where the user is the mentor.
func (s *Service) SessionsByMentor(ctx context.Context, mentorID int64) ([]models.Session, error) {
	return s.sessions.ListByMentor(ctx, mentorID)
}

// SessionsByClient lists every session where the user is the client.
func (s *Service) SessionsByClient(ctx context.Context, clientID int64) ([]models.Session, error) {
	return s.sessions.ListByClient(ctx, clientID)
}

// NextSession returns the earliest future session for the party.
func (s *Service) NextSession(ctx context.Context, userID int64, asMentor bool) (models.Session, error) {
	sess, err := s.sessions.NextSession(ctx, userID, asMentor, s.now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Session{}, fmt.Errorf("%w: no upcoming sessions", app.ErrNotFound)
		}
		return models.Session{}, err
	}
	return sess, nil
}

// PreviousWeek lists the party's sessions from the previous ISO week,
// newest first, along with the covered range.
func (s *Service) PreviousWeek(ctx context.Context, userID int64, asMentor bool) ([]models.Session, time.Time, time.Time, error) {
	now := s.now().UTC()
	weekStart := startOfISOWeek(now)
	from := weekStart.AddDate(0, 0, -7)
	to := weekStart.Add(-time.Nanosecond)
	sessions, err := s.sessions.ListBetween(ctx, userID, asMentor, from, to)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	return sessions, from, to, nil
}

// Stats tallies sessions by status across the platform.
func (s *Service) Stats(ctx context.Context) (dto.SessionStats, error) {
	counts, err := s.sessions.CountByStatus(ctx)
	if err != nil {
		return dto.SessionStats{}, err
	}
	stats := dto.SessionStats{
		ScheduledSessions: counts[models.StatusUpcoming] + counts[models.StatusInProgress] + counts[models.StatusReschedule],
		CompletedSessions: counts[models.StatusCompleted],
		CanceledSessions:  counts[models.StatusCanceled],
	}
	for _, c := range counts {
		stats.TotalSessions += c
	}
	if stats.TotalSessions > 0 {
		total := float64(stats.TotalSessions)
		stats.ScheduledPercentage = float64(stats.ScheduledSessions) / total * 100
		stats.CompletedPercentage = float64(stats.CompletedSessions) / total * 100
		stats.CanceledPercentage = float64(stats.CanceledSessions) / total * 100
	}
	return stats, nil
}

// startOfISOWeek truncates t to the Monday 00:00 UTC of its week.
func startOfISOWeek(t time.Time) time.Time {
	t = t.Truncate(24 * time.Hour)
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, 1-weekday)
}
