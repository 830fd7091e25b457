package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/storage"
)

// CreateGroup inserts a room and its initial roster.
func (s *Store) CreateGroup(ctx context.Context, group models.Group) (models.Group, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Group{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`INSERT INTO groups (name) VALUES ($1) RETURNING id, name, created_at;`, group.Name)
	var created models.Group
	if err := row.Scan(&created.ID, &created.Name, &created.CreatedAt); err != nil {
		return models.Group{}, err
	}
	for _, member := range group.Members {
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`,
			created.ID, member); err != nil {
			if isForeignKey(err) {
				return models.Group{}, storage.ErrNotFound
			}
			return models.Group{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Group{}, err
	}
	created.Members = append([]int64(nil), group.Members...)
	return created, nil
}

// GetGroup fetches a room with its member roster.
func (s *Store) GetGroup(ctx context.Context, id int64) (models.Group, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, name, created_at FROM groups WHERE id = $1;`, id)
	var group models.Group
	if err := row.Scan(&group.ID, &group.Name, &group.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Group{}, storage.ErrNotFound
		}
		return models.Group{}, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY user_id;`, id)
	if err != nil {
		return models.Group{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var member int64
		if err := rows.Scan(&member); err != nil {
			return models.Group{}, err
		}
		group.Members = append(group.Members, member)
	}
	return group, rows.Err()
}

// AddMember adds a user to the roster; repeats are no-ops.
func (s *Store) AddMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`,
		groupID, userID)
	if err != nil && isForeignKey(err) {
		return storage.ErrNotFound
	}
	return err
}
