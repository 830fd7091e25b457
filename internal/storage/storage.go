package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mentorway/mentorway-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures persistence operations for accounts, wallets,
// availability windows, and ratings.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, user models.User) (models.User, error)
	ListMentors(ctx context.Context) ([]models.User, error)

	// AdjustBalance applies delta to the user's wallet. A result below zero
	// fails with app.ErrInsufficientFunds and leaves the balance untouched.
	AdjustBalance(ctx context.Context, id int64, delta float64) (models.User, error)

	// Transfer atomically moves amount from one wallet to another. Both
	// writes commit or neither does.
	Transfer(ctx context.Context, fromID, toID int64, amount float64) error

	AddRating(ctx context.Context, rating models.Rating) (models.Rating, error)
	RatingsFor(ctx context.Context, mentorID int64) ([]models.Rating, error)

	// AddWindows appends availability windows for a mentor. Windows are
	// validated by the caller; the store only persists them.
	AddWindows(ctx context.Context, mentorID int64, windows []models.AvailabilityWindow) ([]models.AvailabilityWindow, error)
	WindowsFor(ctx context.Context, mentorID int64) ([]models.AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, mentorID, windowID int64) error
}

// Booking bundles the parameters of the atomic booking write.
type Booking struct {
	Session models.Session
	Cost    float64
}

// SessionStore captures persistence for sessions. CreateBooking and Cancel
// are transactional: every write inside them commits or none does.
type SessionStore interface {
	// CreateBooking atomically verifies the client balance, checks the
	// mentor calendar for a half-open interval overlap, inserts the session,
	// moves Cost from client to mentor, and removes the availability window
	// exactly matching the session times. Fails with app.ErrConflict on
	// overlap and app.ErrInsufficientFunds on a short balance.
	CreateBooking(ctx context.Context, b Booking) (models.Session, error)

	GetSession(ctx context.Context, id int64) (models.Session, error)

	// UpdateTimes mutates start/end and sets the given status.
	UpdateTimes(ctx context.Context, id int64, start, end time.Time, status models.SessionStatus) (models.Session, error)

	// SetStatus transitions the session status. Transitions out of a
	// terminal status fail with app.ErrConflict.
	SetStatus(ctx context.Context, id int64, status models.SessionStatus) (models.Session, error)

	ListByMentor(ctx context.Context, mentorID int64) ([]models.Session, error)
	ListByClient(ctx context.Context, clientID int64) ([]models.Session, error)

	// NextSession returns the earliest session starting after now for the
	// given party. asMentor selects which side of the session to match.
	NextSession(ctx context.Context, userID int64, asMentor bool, now time.Time) (models.Session, error)

	// ListBetween returns the party's sessions with StartTime in [from, to],
	// newest first.
	ListBetween(ctx context.Context, userID int64, asMentor bool, from, to time.Time) ([]models.Session, error)

	CountByStatus(ctx context.Context) (map[models.SessionStatus]int, error)
}

// MessageStore captures persistence for chat messages. History reads are
// ordered by creation time ascending and paginated by skip/limit.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
	GetMessage(ctx context.Context, id int64) (models.ChatMessage, error)

	// DirectHistory returns messages between a and b in either direction.
	DirectHistory(ctx context.Context, a, b int64, page, limit int) ([]models.ChatMessage, error)
	GroupHistory(ctx context.Context, groupID int64, page, limit int) ([]models.ChatMessage, error)

	// LatestGroupMessages returns the newest page first, descending; the
	// caller reverses it to chronological order before delivery.
	LatestGroupMessages(ctx context.Context, groupID int64, page, limit int) ([]models.ChatMessage, error)

	UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) (models.ChatMessage, error)

	// MarkRead appends {reader, at} to the read set unless the reader is
	// already present; repeat calls are no-ops for the set's contents.
	MarkRead(ctx context.Context, id, readerID int64, at time.Time) (models.ChatMessage, error)

	DeleteMessage(ctx context.Context, id int64) error
}

// GroupStore captures persistence for chat rooms and their rosters.
type GroupStore interface {
	CreateGroup(ctx context.Context, group models.Group) (models.Group, error)
	GetGroup(ctx context.Context, id int64) (models.Group, error)
	AddMember(ctx context.Context, groupID, userID int64) error
}

// ArticleStore captures persistence for published articles.
type ArticleStore interface {
	CreateArticle(ctx context.Context, article models.Article) (models.Article, error)
	GetArticle(ctx context.Context, id int64) (models.Article, error)
	ListArticles(ctx context.Context) ([]models.Article, error)
	UpdateArticle(ctx context.Context, article models.Article) (models.Article, error)
	DeleteArticle(ctx context.Context, id int64) error
}

// Store is the full persistence surface the server wires together.
type Store interface {
	UserStore
	SessionStore
	MessageStore
	GroupStore
	ArticleStore
}
