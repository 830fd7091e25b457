package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentorway/mentorway-be/internal/storage"
)

// Ensure Store satisfies the full persistence surface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for the marketplace.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			bio TEXT NOT NULL DEFAULT '',
			expertise TEXT[] NOT NULL DEFAULT '{}',
			rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			wallet_balance DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS availability_windows (
			id BIGSERIAL PRIMARY KEY,
			mentor_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			CHECK (start_time < end_time)
		);`,
		`CREATE INDEX IF NOT EXISTS availability_mentor_idx ON availability_windows (mentor_id, start_time);`,
		`CREATE TABLE IF NOT EXISTS ratings (
			id BIGSERIAL PRIMARY KEY,
			mentor_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			rated_by BIGINT NOT NULL REFERENCES users(id),
			rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
			review TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			session_link TEXT NOT NULL DEFAULT '',
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			mentor_id BIGINT NOT NULL REFERENCES users(id),
			client_id BIGINT NOT NULL REFERENCES users(id),
			status TEXT NOT NULL DEFAULT 'upcoming',
			category TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (start_time < end_time)
		);`,
		`CREATE INDEX IF NOT EXISTS sessions_mentor_time_idx ON sessions (mentor_id, start_time);`,
		`CREATE INDEX IF NOT EXISTS sessions_client_time_idx ON sessions (client_id, start_time);`,
		`CREATE TABLE IF NOT EXISTS groups (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (group_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			sender_id BIGINT NOT NULL REFERENCES users(id),
			receiver_id BIGINT REFERENCES users(id),
			group_id BIGINT REFERENCES groups(id),
			is_edited BOOLEAN NOT NULL DEFAULT FALSE,
			edited_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK ((receiver_id IS NULL) <> (group_id IS NULL))
		);`,
		`CREATE INDEX IF NOT EXISTS chat_direct_idx ON chat_messages (sender_id, receiver_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS chat_group_idx ON chat_messages (group_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS message_reads (
			message_id BIGINT NOT NULL REFERENCES chat_messages(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id),
			read_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (message_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS articles (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			banner_url TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}
