package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mentorway/mentorway-be/internal/app"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/storage"
)

const sessionColumns = `id, title, description, session_link, start_time, end_time, mentor_id, client_id, status, category, created_at, updated_at`

// CreateBooking performs the whole booking write in one transaction. The
// mentor and client rows are locked up front, which serializes concurrent
// bookings against the same mentor and closes the overlap check-then-act
// race.
func (s *Store) CreateBooking(ctx context.Context, b storage.Booking) (models.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Session{}, err
	}
	defer tx.Rollback(ctx)

	sess := b.Session

	first, second := sess.MentorID, sess.ClientID
	if second < first {
		first, second = second, first
	}
	for _, id := range []int64{first, second} {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE;`, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.Session{}, storage.ErrNotFound
			}
			return models.Session{}, err
		}
	}

	var overlaps bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM sessions
			WHERE mentor_id = $1 AND status <> $2 AND start_time < $3 AND end_time > $4
		);`,
		sess.MentorID, string(models.StatusCanceled), sess.EndTime, sess.StartTime).Scan(&overlaps)
	if err != nil {
		return models.Session{}, err
	}
	if overlaps {
		return models.Session{}, fmt.Errorf("mentor calendar overlap: %w", app.ErrConflict)
	}

	if err := transferTx(ctx, tx, sess.ClientID, sess.MentorID, b.Cost); err != nil {
		return models.Session{}, err
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM availability_windows WHERE mentor_id = $1 AND start_time = $2 AND end_time = $3;`,
		sess.MentorID, sess.StartTime, sess.EndTime); err != nil {
		return models.Session{}, err
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO sessions (title, description, session_link, start_time, end_time, mentor_id, client_id, status, category)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+sessionColumns+`;`,
		sess.Title, sess.Description, sess.SessionLink, sess.StartTime, sess.EndTime,
		sess.MentorID, sess.ClientID, string(models.StatusUpcoming), sess.Category)
	created, err := scanSession(row)
	if err != nil {
		return models.Session{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Session{}, err
	}
	return created, nil
}

// GetSession fetches a session by id.
func (s *Store) GetSession(ctx context.Context, id int64) (models.Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1;`, id)
	return scanSession(row)
}

// UpdateTimes mutates start/end and sets the given status. Terminal sessions
// are never touched.
func (s *Store) UpdateTimes(ctx context.Context, id int64, start, end time.Time, status models.SessionStatus) (models.Session, error) {
	const query = `
	UPDATE sessions SET start_time = $2, end_time = $3, status = $4, updated_at = NOW()
	WHERE id = $1 AND status NOT IN ($5, $6)
	RETURNING ` + sessionColumns + `;`
	row := s.pool.QueryRow(ctx, query, id, start, end, string(status),
		string(models.StatusCompleted), string(models.StatusCanceled))
	updated, err := scanSession(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s.conflictOrMissing(ctx, id)
		}
		return models.Session{}, err
	}
	return updated, nil
}

// SetStatus transitions the session status, refusing to leave a terminal state.
func (s *Store) SetStatus(ctx context.Context, id int64, status models.SessionStatus) (models.Session, error) {
	const query = `
	UPDATE sessions SET status = $2, updated_at = NOW()
	WHERE id = $1 AND status NOT IN ($3, $4)
	RETURNING ` + sessionColumns + `;`
	row := s.pool.QueryRow(ctx, query, id, string(status),
		string(models.StatusCompleted), string(models.StatusCanceled))
	updated, err := scanSession(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s.conflictOrMissing(ctx, id)
		}
		return models.Session{}, err
	}
	return updated, nil
}

// conflictOrMissing distinguishes "session is terminal" from "session absent"
// after a guarded update matched no rows.
func (s *Store) conflictOrMissing(ctx context.Context, id int64) (models.Session, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return models.Session{}, err
	}
	return models.Session{}, app.ErrConflict
}

// ListByMentor lists a mentor's sessions ordered by start time.
func (s *Store) ListByMentor(ctx context.Context, mentorID int64) ([]models.Session, error) {
	return s.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE mentor_id = $1 ORDER BY start_time;`, mentorID)
}

// ListByClient lists a client's sessions ordered by start time.
func (s *Store) ListByClient(ctx context.Context, clientID int64) ([]models.Session, error) {
	return s.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE client_id = $1 ORDER BY start_time;`, clientID)
}

// NextSession returns the earliest future session for the given party.
func (s *Store) NextSession(ctx context.Context, userID int64, asMentor bool, now time.Time) (models.Session, error) {
	column := "client_id"
	if asMentor {
		column = "mentor_id"
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` + column + ` = $1 AND start_time > $2 ORDER BY start_time LIMIT 1;`
	row := s.pool.QueryRow(ctx, query, userID, now)
	return scanSession(row)
}

// ListBetween returns the party's sessions starting in [from, to], newest first.
func (s *Store) ListBetween(ctx context.Context, userID int64, asMentor bool, from, to time.Time) ([]models.Session, error) {
	column := "client_id"
	if asMentor {
		column = "mentor_id"
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` + column + ` = $1 AND start_time BETWEEN $2 AND $3 ORDER BY start_time DESC;`
	return s.listSessions(ctx, query, userID, from, to)
}

// CountByStatus tallies sessions per status across the whole table.
func (s *Store) CountByStatus(ctx context.Context) (map[models.SessionStatus]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM sessions GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[models.SessionStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[models.SessionStatus(status)] = count
	}
	return out, rows.Err()
}

func (s *Store) listSessions(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (models.Session, error) {
	var sess models.Session
	var status string
	if err := row.Scan(&sess.ID, &sess.Title, &sess.Description, &sess.SessionLink,
		&sess.StartTime, &sess.EndTime, &sess.MentorID, &sess.ClientID,
		&status, &sess.Category, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, storage.ErrNotFound
		}
		return models.Session{}, err
	}
	sess.Status = models.SessionStatus(status)
	return sess, nil
}
