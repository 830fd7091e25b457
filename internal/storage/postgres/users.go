package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mentorway/mentorway-be/internal/app"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/storage"
)

const userColumns = `id, name, email, password_hash, role, bio, expertise, rate, wallet_balance, created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
	INSERT INTO users (name, email, password_hash, role, bio, expertise, rate, wallet_balance)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + userColumns + `;`
	row := s.pool.QueryRow(ctx, query, user.Name, user.Email, user.PasswordHash,
		string(user.Role), user.Bio, user.Expertise, user.Rate, user.WalletBalance)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1;`, id)
	return scanUser(row)
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1;`, email)
	return scanUser(row)
}

// UpdateProfile overwrites the mutable profile fields.
func (s *Store) UpdateProfile(ctx context.Context, user models.User) (models.User, error) {
	const query = `
	UPDATE users SET name = $2, bio = $3, expertise = $4, rate = $5
	WHERE id = $1
	RETURNING ` + userColumns + `;`
	row := s.pool.QueryRow(ctx, query, user.ID, user.Name, user.Bio, user.Expertise, user.Rate)
	return scanUser(row)
}

// ListMentors returns every mentor account.
func (s *Store) ListMentors(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id;`, string(models.RoleMentor))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AdjustBalance applies delta to the wallet; the column CHECK keeps it non-negative.
func (s *Store) AdjustBalance(ctx context.Context, id int64, delta float64) (models.User, error) {
	const query = `
	UPDATE users SET wallet_balance = wallet_balance + $2
	WHERE id = $1
	RETURNING ` + userColumns + `;`
	row := s.pool.QueryRow(ctx, query, id, delta)
	u, err := scanUser(row)
	if err != nil {
		if isBalanceCheck(err) {
			return models.User{}, app.ErrInsufficientFunds
		}
		return models.User{}, err
	}
	return u, nil
}

// Transfer moves amount between two wallets in one transaction. Rows are
// locked in id order so concurrent transfers cannot deadlock.
func (s *Store) Transfer(ctx context.Context, fromID, toID int64, amount float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := transferTx(ctx, tx, fromID, toID, amount); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func transferTx(ctx context.Context, tx pgx.Tx, fromID, toID int64, amount float64) error {
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	for _, id := range []int64{first, second} {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE;`, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return storage.ErrNotFound
			}
			return err
		}
	}
	tag, err := tx.Exec(ctx,
		`UPDATE users SET wallet_balance = wallet_balance - $2 WHERE id = $1 AND wallet_balance >= $2;`,
		fromID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app.ErrInsufficientFunds
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET wallet_balance = wallet_balance + $2 WHERE id = $1;`, toID, amount); err != nil {
		return err
	}
	return nil
}

// AddRating inserts a mentor review.
func (s *Store) AddRating(ctx context.Context, rating models.Rating) (models.Rating, error) {
	const query = `
	INSERT INTO ratings (mentor_id, rated_by, rating, review)
	VALUES ($1, $2, $3, $4)
	RETURNING id, mentor_id, rated_by, rating, review, created_at;`
	row := s.pool.QueryRow(ctx, query, rating.MentorID, rating.RatedBy, rating.Rating, rating.Review)
	var out models.Rating
	if err := row.Scan(&out.ID, &out.MentorID, &out.RatedBy, &out.Rating, &out.Review, &out.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Rating{}, storage.ErrNotFound
		}
		return models.Rating{}, err
	}
	return out, nil
}

// RatingsFor lists reviews for a mentor, oldest first.
func (s *Store) RatingsFor(ctx context.Context, mentorID int64) ([]models.Rating, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, mentor_id, rated_by, rating, review, created_at FROM ratings WHERE mentor_id = $1 ORDER BY id;`,
		mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Rating
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.ID, &r.MentorID, &r.RatedBy, &r.Rating, &r.Review, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddWindows appends availability windows for a mentor.
func (s *Store) AddWindows(ctx context.Context, mentorID int64, windows []models.AvailabilityWindow) ([]models.AvailabilityWindow, error) {
	out := make([]models.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		row := s.pool.QueryRow(ctx,
			`INSERT INTO availability_windows (mentor_id, start_time, end_time)
			 VALUES ($1, $2, $3)
			 RETURNING id, mentor_id, start_time, end_time;`,
			mentorID, w.Start, w.End)
		var created models.AvailabilityWindow
		if err := row.Scan(&created.ID, &created.MentorID, &created.Start, &created.End); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return nil, storage.ErrNotFound
			}
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

// WindowsFor lists a mentor's windows ordered by start time.
func (s *Store) WindowsFor(ctx context.Context, mentorID int64) ([]models.AvailabilityWindow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, mentor_id, start_time, end_time FROM availability_windows
		 WHERE mentor_id = $1 ORDER BY start_time;`, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AvailabilityWindow
	for rows.Next() {
		var w models.AvailabilityWindow
		if err := rows.Scan(&w.ID, &w.MentorID, &w.Start, &w.End); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWindow removes one window owned by the mentor.
func (s *Store) DeleteWindow(ctx context.Context, mentorID, windowID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM availability_windows WHERE id = $1 AND mentor_id = $2;`, windowID, mentorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var role string
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role,
		&user.Bio, &user.Expertise, &user.Rate, &user.WalletBalance, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	user.Role = models.Role(role)
	return user, nil
}

func isBalanceCheck(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

func isForeignKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
