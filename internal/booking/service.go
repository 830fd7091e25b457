// Package booking owns the session lifecycle: booking, rescheduling,
// cancellation, and the reporting reads over the same records.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mentorway/mentorway-be/internal/app"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/notify"
	"github.com/mentorway/mentorway-be/internal/payments"
	"github.com/mentorway/mentorway-be/internal/storage"
)

const defaultSessionLink = "https://meet.mentorway.app"

// minLeadTime is how far in the future a booking must start.
const minLeadTime = time.Hour

// Service coordinates stores and collaborators for session operations.
type Service struct {
	users    storage.UserStore
	sessions storage.SessionStore
	notifier notify.Notifier
	refunder payments.Refunder
	now      func() time.Time
}

// NewService wires the booking service.
func NewService(users storage.UserStore, sessions storage.SessionStore, notifier notify.Notifier, refunder payments.Refunder) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		notifier: notifier,
		refunder: refunder,
		now:      time.Now,
	}
}

// BookRequest carries the client's booking input.
type BookRequest struct {
	MentorID    int64
	StartTime   string
	Hours       float64
	Title       string
	Description string
	Category    string
}

// Book validates the request and performs the booking as one atomic write:
// session insert, wallet transfer, and availability-window consumption
// commit together or not at all. Emails go out after the commit and never
// fail the booking.
func (s *Service) Book(ctx context.Context, clientID int64, req BookRequest) (models.Session, error) {
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: invalid start time format, use RFC 3339", app.ErrValidation)
	}
	start = start.UTC()
	if req.Hours <= 0 {
		return models.Session{}, fmt.Errorf("%w: hours must be positive", app.ErrValidation)
	}
	if start.Before(s.now().UTC().Add(minLeadTime)) {
		return models.Session{}, fmt.Errorf("%w: session must start at least one hour from now", app.ErrValidation)
	}
	end := start.Add(time.Duration(req.Hours * float64(time.Hour)))

	client, err := s.users.GetUser(ctx, clientID)
	if err != nil {
		return models.Session{}, lookupErr("client", err)
	}
	mentor, err := s.users.GetUser(ctx, req.MentorID)
	if err != nil {
		return models.Session{}, lookupErr("mentor", err)
	}
	if !client.Role.CanBook() {
		return models.Session{}, fmt.Errorf("%w: only clients may book sessions", app.ErrPermission)
	}

	cost := mentor.Rate * req.Hours
	if client.WalletBalance < cost {
		return models.Session{}, fmt.Errorf("%w: booking costs %.2f", app.ErrInsufficientFunds, cost)
	}

	created, err := s.sessions.CreateBooking(ctx, storage.Booking{
		Session: models.Session{
			Title:       req.Title,
			Description: req.Description,
			SessionLink: defaultSessionLink,
			StartTime:   start,
			EndTime:     end,
			MentorID:    mentor.ID,
			ClientID:    client.ID,
			Category:    req.Category,
		},
		Cost: cost,
	})
	if err != nil {
		return models.Session{}, err
	}

	if err := s.notifier.SessionBooked(ctx, client, mentor, created); err != nil {
		log.Printf("booking: confirmation email for session %d: %v", created.ID, err)
	}
	if err := s.notifier.SessionReminder(ctx, client, mentor, created); err != nil {
		log.Printf("booking: reminder email for session %d: %v", created.ID, err)
	}
	return created, nil
}

// Reschedule moves a session to a new start time. Mentor-only; the session
// enters (or stays in) the reschedule status and may be moved again.
func (s *Service) Reschedule(ctx context.Context, requesterID, sessionID int64, startTime string, hours float64) (models.Session, error) {
	requester, err := s.users.GetUser(ctx, requesterID)
	if err != nil {
		return models.Session{}, lookupErr("requester", err)
	}
	if !requester.Role.CanManageSessions() {
		return models.Session{}, fmt.Errorf("%w: only mentors may reschedule sessions", app.ErrPermission)
	}

	start, err := time.Parse(time.RFC3339, startTime)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: invalid start time format, use RFC 3339", app.ErrValidation)
	}
	start = start.UTC()
	if !start.After(s.now().UTC()) {
		return models.Session{}, fmt.Errorf("%w: start time must be in the future", app.ErrValidation)
	}
	if hours <= 0 {
		hours = 1
	}
	end := start.Add(time.Duration(hours * float64(time.Hour)))

	updated, err := s.sessions.UpdateTimes(ctx, sessionID, start, end, models.StatusReschedule)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Session{}, fmt.Errorf("%w: session", app.ErrNotFound)
		}
		return models.Session{}, err
	}

	s.notifyReschedule(ctx, updated)
	return updated, nil
}

// Cancel marks the session canceled and refunds the client at the mentor's
// current rate for the session's recorded duration. The refund runs first;
// if the status transition then fails, the refund is compensated back, so
// the two writes never end up half applied.
func (s *Service) Cancel(ctx context.Context, requesterID, sessionID int64) (models.Session, payments.Result, error) {
	requester, err := s.users.GetUser(ctx, requesterID)
	if err != nil {
		return models.Session{}, payments.Result{}, lookupErr("requester", err)
	}
	if !requester.Role.CanManageSessions() {
		return models.Session{}, payments.Result{}, fmt.Errorf("%w: only mentors may cancel sessions", app.ErrPermission)
	}

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Session{}, payments.Result{}, fmt.Errorf("%w: session", app.ErrNotFound)
		}
		return models.Session{}, payments.Result{}, err
	}
	if sess.Status == models.StatusCanceled {
		return models.Session{}, payments.Result{}, fmt.Errorf("%w: session is already canceled", app.ErrConflict)
	}

	mentor, err := s.users.GetUser(ctx, sess.MentorID)
	if err != nil {
		return models.Session{}, payments.Result{}, lookupErr("mentor", err)
	}
	// Refund uses the mentor's current rate, not the rate at booking time.
	amount := refundAmount(mentor, sess)

	result, err := s.refunder.Refund(ctx, sess.ClientID, sess.MentorID, amount, sess.ID)
	if err != nil {
		log.Printf("booking: refund for session %d: %v", sess.ID, err)
		return models.Session{}, payments.Result{}, app.ErrInternal
	}

	canceled, err := s.sessions.SetStatus(ctx, sessionID, models.StatusCanceled)
	if err != nil {
		// A concurrent cancel won; hand the money back to the mentor.
		if _, compErr := s.refunder.Refund(ctx, sess.MentorID, sess.ClientID, amount, sess.ID); compErr != nil {
			log.Printf("booking: compensating refund for session %d failed: %v", sess.ID, compErr)
		}
		if errors.Is(err, app.ErrConflict) {
			return models.Session{}, payments.Result{}, fmt.Errorf("%w: session is already canceled", app.ErrConflict)
		}
		return models.Session{}, payments.Result{}, err
	}

	client, err := s.users.GetUser(ctx, sess.ClientID)
	if err == nil {
		if notifyErr := s.notifier.SessionCanceled(ctx, client, mentor, canceled); notifyErr != nil {
			log.Printf("booking: cancellation email for session %d: %v", canceled.ID, notifyErr)
		}
	}
	return canceled, result, nil
}

func refundAmount(mentor models.User, sess models.Session) float64 {
	return mentor.Rate * sess.DurationHours()
}

func (s *Service) notifyReschedule(ctx context.Context, sess models.Session) {
	client, errC := s.users.GetUser(ctx, sess.ClientID)
	mentor, errM := s.users.GetUser(ctx, sess.MentorID)
	if errC != nil || errM != nil {
		return
	}
	if err := s.notifier.SessionRescheduled(ctx, client, mentor, sess); err != nil {
		log.Printf("booking: reschedule email for session %d: %v", sess.ID, err)
	}
}

func lookupErr(what string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", app.ErrNotFound, what)
	}
	return err
}
