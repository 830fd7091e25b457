// Package notify holds the email collaborator. Sends are best effort: the
// booking flow logs failures and never rolls back because of one.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"sync"

	"github.com/mentorway/mentorway-be/internal/models"
)

// Notifier delivers booking lifecycle emails.
type Notifier interface {
	SessionBooked(ctx context.Context, client, mentor models.User, session models.Session) error
	SessionReminder(ctx context.Context, client, mentor models.User, session models.Session) error
	SessionRescheduled(ctx context.Context, client, mentor models.User, session models.Session) error
	SessionCanceled(ctx context.Context, client, mentor models.User, session models.Session) error
}

// Mailer sends notifications over SMTP.
type Mailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewMailer configures an SMTP-backed notifier.
func NewMailer(host, port, user, pass, from string) *Mailer {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &Mailer{addr: host + ":" + port, auth: auth, from: from}
}

func (m *Mailer) SessionBooked(ctx context.Context, client, mentor models.User, session models.Session) error {
	subject := "Session confirmed: " + session.Title
	body := fmt.Sprintf("Hi %s,\n\nYour session with %s is booked for %s.\nJoin link: %s\n",
		client.Name, mentor.Name, session.StartTime.Format("Mon, 02 Jan 2006 15:04 MST"), session.SessionLink)
	return m.send(client.Email, subject, body)
}

func (m *Mailer) SessionReminder(ctx context.Context, client, mentor models.User, session models.Session) error {
	subject := "Upcoming session: " + session.Title
	body := fmt.Sprintf("Hi %s,\n\nReminder: your session with %s starts at %s.\n",
		client.Name, mentor.Name, session.StartTime.Format("Mon, 02 Jan 2006 15:04 MST"))
	return m.send(client.Email, subject, body)
}

func (m *Mailer) SessionRescheduled(ctx context.Context, client, mentor models.User, session models.Session) error {
	subject := "Session rescheduled: " + session.Title
	body := fmt.Sprintf("Hi %s,\n\n%s moved your session to %s.\n",
		client.Name, mentor.Name, session.StartTime.Format("Mon, 02 Jan 2006 15:04 MST"))
	return m.send(client.Email, subject, body)
}

func (m *Mailer) SessionCanceled(ctx context.Context, client, mentor models.User, session models.Session) error {
	subject := "Session canceled: " + session.Title
	body := fmt.Sprintf("Hi %s,\n\nYour session with %s on %s was canceled. The session fee has been refunded to your wallet.\n",
		client.Name, mentor.Name, session.StartTime.Format("Mon, 02 Jan 2006 15:04 MST"))
	return m.send(client.Email, subject, body)
}

func (m *Mailer) send(to, subject, body string) error {
	msg := []byte("From: " + m.from + "\r\nTo: " + to + "\r\nSubject: " + subject + "\r\n\r\n" + body)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogNotifier writes would-be emails to the process log. Used when SMTP is
// not configured.
type LogNotifier struct{}

func (LogNotifier) SessionBooked(ctx context.Context, client, mentor models.User, session models.Session) error {
	log.Printf("notify: booked session %d (%s -> %s)", session.ID, client.Email, mentor.Email)
	return nil
}

func (LogNotifier) SessionReminder(ctx context.Context, client, mentor models.User, session models.Session) error {
	log.Printf("notify: reminder for session %d (%s)", session.ID, client.Email)
	return nil
}

func (LogNotifier) SessionRescheduled(ctx context.Context, client, mentor models.User, session models.Session) error {
	log.Printf("notify: rescheduled session %d (%s)", session.ID, client.Email)
	return nil
}

func (LogNotifier) SessionCanceled(ctx context.Context, client, mentor models.User, session models.Session) error {
	log.Printf("notify: canceled session %d (%s)", session.ID, client.Email)
	return nil
}

// Recorder captures notifications for tests.
type Recorder struct {
	mu     sync.Mutex
	Events []string
}

// Snapshot returns a copy of the recorded events.
func (r *Recorder) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Events...)
}

func (r *Recorder) record(kind string, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, fmt.Sprintf("%s:%d", kind, session.ID))
	return nil
}

func (r *Recorder) SessionBooked(ctx context.Context, client, mentor models.User, session models.Session) error {
	return r.record("booked", session)
}

func (r *Recorder) SessionReminder(ctx context.Context, client, mentor models.User, session models.Session) error {
	return r.record("reminder", session)
}

func (r *Recorder) SessionRescheduled(ctx context.Context, client, mentor models.User, session models.Session) error {
	return r.record("rescheduled", session)
}

func (r *Recorder) SessionCanceled(ctx context.Context, client, mentor models.User, session models.Session) error {
	return r.record("canceled", session)
}
