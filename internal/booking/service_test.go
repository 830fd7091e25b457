package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mentorway/mentorway-be/internal/app"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/notify"
	"github.com/mentorway/mentorway-be/internal/payments"
	"github.com/mentorway/mentorway-be/internal/storage/memory"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	notifier *notify.Recorder
	svc      *Service
	mentor   models.User
	client   models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	recorder := &notify.Recorder{}
	svc := NewService(store, store, recorder, payments.NewWalletRefunder(store))
	svc.now = func() time.Time { return baseTime }

	ctx := context.Background()
	mentor, err := store.CreateUser(ctx, models.User{
		Name:  "Maya",
		Email: "maya@example.com",
		Role:  models.RoleMentor,
		Rate:  100,
	})
	if err != nil {
		t.Fatalf("create mentor: %v", err)
	}
	client, err := store.CreateUser(ctx, models.User{
		Name:          "Chris",
		Email:         "chris@example.com",
		Role:          models.RoleClient,
		WalletBalance: 500,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return &fixture{store: store, notifier: recorder, svc: svc, mentor: mentor, client: client}
}

func (f *fixture) addWindow(t *testing.T, start, end time.Time) models.AvailabilityWindow {
	t.Helper()
	created, err := f.store.AddWindows(context.Background(), f.mentor.ID, []models.AvailabilityWindow{
		{MentorID: f.mentor.ID, Start: start, End: end},
	})
	if err != nil {
		t.Fatalf("add window: %v", err)
	}
	return created[0]
}

func (f *fixture) balance(t *testing.T, id int64) float64 {
	t.Helper()
	user, err := f.store.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %d: %v", id, err)
	}
	return user.WalletBalance
}

func TestBookHappyPath(t *testing.T) {
	f := newFixture(t)
	start := baseTime.Add(24 * time.Hour)
	f.addWindow(t, start, start.Add(2*time.Hour))

	sess, err := f.svc.Book(context.Background(), f.client.ID, BookRequest{
		MentorID:  f.mentor.ID,
		StartTime: start.Format(time.RFC3339),
		Hours:     2,
		Title:     "Systems design review",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if sess.Status != models.StatusUpcoming {
		t.Fatalf("status = %q, want upcoming", sess.Status)
	}
	if !sess.EndTime.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("end time = %v, want %v", sess.EndTime, start.Add(2*time.Hour))
	}
	if got := f.balance(t, f.client.ID); got != 300 {
		t.Fatalf("client balance = %v, want 300", got)
	}
	if got := f.balance(t, f.mentor.ID); got != 200 {
		t.Fatalf("mentor balance = %v, want 200", got)
	}

	windows, err := f.store.WindowsFor(context.Background(), f.mentor.ID)
	if err != nil {
		t.Fatalf("windows: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("availability window not consumed: %v", windows)
	}

	events := f.notifier.Snapshot()
	if len(events) != 2 {
		t.Fatalf("notifications = %v, want booked+reminder", events)
	}
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		req  BookRequest
	}{
		{"bad timestamp", BookRequest{MentorID: f.mentor.ID, StartTime: "next tuesday", Hours: 1}},
		{"zero hours", BookRequest{MentorID: f.mentor.ID, StartTime: baseTime.Add(2 * time.Hour).Format(time.RFC3339), Hours: 0}},
		{"too soon", BookRequest{MentorID: f.mentor.ID, StartTime: baseTime.Add(30 * time.Minute).Format(time.RFC3339), Hours: 1}},
	}
	for _, tc := range cases {
		if _, err := f.svc.Book(context.Background(), f.client.ID, tc.req); !errors.Is(err, app.ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestBookPermissionAndLookups(t *testing.T) {
	f := newFixture(t)
	start := baseTime.Add(24 * time.Hour).Format(time.RFC3339)

	// A mentor cannot book on behalf of anyone.
	if _, err := f.svc.Book(context.Background(), f.mentor.ID, BookRequest{
		MentorID: f.mentor.ID, StartTime: start, Hours: 1,
	}); !errors.Is(err, app.ErrPermission) {
		t.Fatalf("mentor booking: err = %v, want ErrPermission", err)
	}
	if _, err := f.svc.Book(context.Background(), f.client.ID, BookRequest{
		MentorID: 9999, StartTime: start, Hours: 1,
	}); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("missing mentor: err = %v, want ErrNotFound", err)
	}
}

func TestBookInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	start := baseTime.Add(24 * time.Hour).Format(time.RFC3339)

	if _, err := f.svc.Book(context.Background(), f.client.ID, BookRequest{
		MentorID: f.mentor.ID, StartTime: start, Hours: 6,
	}); !errors.Is(err, app.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if got := f.balance(t, f.client.ID); got != 500 {
		t.Fatalf("client balance changed on failed booking: %v", got)
	}
}

func TestBookOverlapConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := baseTime.Add(24 * time.Hour)
	f.addWindow(t, start, start.Add(1*time.Hour))

	if _, err := f.svc.Book(ctx, f.client.ID, BookRequest{
		MentorID: f.mentor.ID, StartTime: start.Format(time.RFC3339), Hours: 1,
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	other, err := f.store.CreateUser(ctx, models.User{
		Name: "Dana", Email: "dana@example.com", Role: models.RoleClient, WalletBalance: 500,
	})
	if err != nil {
		t.Fatalf("create second client: %v", err)
	}

	// Half-open overlap: starts 30 minutes into the existing session.
	if _, err := f.svc.Book(ctx, other.ID, BookRequest{
		MentorID: f.mentor.ID, StartTime: start.Add(30 * time.Minute).Format(time.RFC3339), Hours: 1,
	}); !errors.Is(err, app.ErrConflict) {
		t.Fatalf("overlap: err = %v, want ErrConflict", err)
	}
	if got := f.balance(t, other.ID); got != 500 {
		t.Fatalf("second client charged on conflict: %v", got)
	}

	// Back-to-back is allowed: the intervals share only the boundary instant.
	if _, err := f.svc.Book(ctx, other.ID, BookRequest{
		MentorID: f.mentor.ID, StartTime: start.Add(1 * time.Hour).Format(time.RFC3339), Hours: 1,
	}); err != nil {
		t.Fatalf("adjacent booking: %v", err)
	}
}

func TestBookConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := baseTime.Add(24 * time.Hour)

	clients := make([]models.User, 4)
	for i := range clients {
		c, err := f.store.CreateUser(ctx, models.User{
			Name:          "racer",
			Email:         fmt.Sprintf("racer%d@example.com", i),
			Role:          models.RoleClient,
			WalletBalance: 500,
		})
		if err != nil {
			t.Fatalf("create client %d: %v", i, err)
		}
		clients[i] = c
	}

	var wg sync.WaitGroup
	errs := make([]error, len(clients))
	for i, c := range clients {
		wg.Add(1)
		go func(i int, clientID int64) {
			defer wg.Done()
			_, errs[i] = f.svc.Book(ctx, clientID, BookRequest{
				MentorID: f.mentor.ID, StartTime: start.Format(time.RFC3339), Hours: 1,
			})
		}(i, c.ID)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, app.ErrConflict):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != len(clients)-1 {
		t.Fatalf("won=%d lost=%d, want exactly one winner", won, lost)
	}
	if got := f.balance(t, f.mentor.ID); got != 100 {
		t.Fatalf("mentor balance = %v, want a single session's fee", got)
	}
}

func TestCancelRefundsAndRepeatConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := baseTime.Add(24 * time.Hour)

	sess, err := f.svc.Book(ctx, f.client.ID, BookRequest{
		MentorID: f.mentor.ID, StartTime: start.Format(time.RFC3339), Hours: 2,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	canceled, refund, err := f.svc.Cancel(ctx, f.mentor.ID, sess.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != models.StatusCanceled {
		t.Fatalf("status = %q, want canceled", canceled.Status)
	}
	if refund.Amount != 200 {
		t.Fatalf("refund = %v, want 200", refund.Amount)
	}
	if got := f.balance(t, f.client.ID); got != 500 {
		t.Fatalf("client balance after refund = %v, want 500", got)
	}
	if got := f.balance(t, f.mentor.ID); got != 0 {
		t.Fatalf("mentor balance after refund = %v, want 0", got)
	}

	if _, _, err := f.svc.Cancel(ctx, f.mentor.ID, sess.ID); !errors.Is(err, app.ErrConflict) {
		t.Fatalf("second cancel: err = %v, want ErrConflict", err)
	}
	if got := f.balance(t, f.client.ID); got != 500 {
		t.Fatalf("client refunded twice: %v", got)
	}
}

func TestCancelUsesCurrentRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := baseTime.Add(24 * time.Hour)

	sess, err := f.svc.Book(ctx, f.client.ID, BookRequest{
		MentorID: f.mentor.ID, StartTime: start.Format(time.RFC3339), Hours: 1,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	mentor, err := f.store.GetUser(ctx, f.mentor.ID)
	if err != nil {
		t.Fatalf("get mentor: %v", err)
	}
	mentor.Rate = 50
	if _, err := f.store.UpdateProfile(ctx, mentor); err != nil {
		t.Fatalf("update rate: %v", err)
	}

	_, refund, err := f.svc.Cancel(ctx, f.mentor.ID, sess.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if refund.Amount != 50 {
		t.Fatalf("refund = %v, want the current rate", refund.Amount)
	}
}

func TestCanceledSlotRebookable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := baseTime.Add(24 * time.Hour)
	req := BookRequest{MentorID: f.mentor.ID, StartTime: start.Format(time.RFC3339), Hours: 1}

	first, err := f.svc.Book(ctx, f.client.ID, req)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, _, err := f.svc.Cancel(ctx, f.mentor.ID, first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// The canceled session no longer blocks the interval.
	second, err := f.svc.Book(ctx, f.client.ID, req)
	if err != nil {
		t.Fatalf("rebook canceled slot: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("rebook reused session %d", first.ID)
	}
	if second.Status != models.StatusUpcoming {
		t.Fatalf("status = %q, want upcoming", second.Status)
	}
}

func TestCancelPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := baseTime.Add(24 * time.Hour)

	sess, err := f.svc.Book(ctx, f.client.ID, BookRequest{
		MentorID: f.mentor.ID, StartTime: start.Format(time.RFC3339), Hours: 1,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, _, err := f.svc.Cancel(ctx, f.client.ID, sess.ID); !errors.Is(err, app.ErrPermission) {
		t.Fatalf("client cancel: err = %v, want ErrPermission", err)
	}
}

func TestRescheduleMovesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := baseTime.Add(24 * time.Hour)

	sess, err := f.svc.Book(ctx, f.client.ID, BookRequest{
		MentorID: f.mentor.ID, StartTime: start.Format(time.RFC3339), Hours: 2,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	newStart := start.Add(48 * time.Hour)
	// Hours omitted: the moved session defaults to one hour.
	moved, err := f.svc.Reschedule(ctx, f.mentor.ID, sess.ID, newStart.Format(time.RFC3339), 0)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.Status != models.StatusReschedule {
		t.Fatalf("status = %q, want reschedule", moved.Status)
	}
	if !moved.StartTime.Equal(newStart) || !moved.EndTime.Equal(newStart.Add(time.Hour)) {
		t.Fatalf("times = [%v, %v], want [%v, %v]", moved.StartTime, moved.EndTime, newStart, newStart.Add(time.Hour))
	}

	if _, err := f.svc.Reschedule(ctx, f.client.ID, sess.ID, newStart.Format(time.RFC3339), 1); !errors.Is(err, app.ErrPermission) {
		t.Fatalf("client reschedule: err = %v, want ErrPermission", err)
	}
	if _, err := f.svc.Reschedule(ctx, f.mentor.ID, sess.ID, baseTime.Add(-time.Hour).Format(time.RFC3339), 1); !errors.Is(err, app.ErrValidation) {
		t.Fatalf("past reschedule: err = %v, want ErrValidation", err)
	}
	if _, err := f.svc.Reschedule(ctx, f.mentor.ID, 9999, newStart.Format(time.RFC3339), 1); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("missing session: err = %v, want ErrNotFound", err)
	}
}

func TestBalanceConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := baseTime.Add(24 * time.Hour)

	total := func() float64 { return f.balance(t, f.client.ID) + f.balance(t, f.mentor.ID) }
	before := total()

	sess, err := f.svc.Book(ctx, f.client.ID, BookRequest{
		MentorID: f.mentor.ID, StartTime: start.Format(time.RFC3339), Hours: 3,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if got := total(); got != before {
		t.Fatalf("total after booking = %v, want %v", got, before)
	}

	if _, _, err := f.svc.Cancel(ctx, f.mentor.ID, sess.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := total(); got != before {
		t.Fatalf("total after cancel = %v, want %v", got, before)
	}
}
