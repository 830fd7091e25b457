package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/storage"
)

const messageColumns = `id, content, sender_id, receiver_id, group_id, is_edited, edited_at, created_at, updated_at`

// CreateMessage inserts a new chat message.
func (s *Store) CreateMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO chat_messages (content, sender_id, receiver_id, group_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+messageColumns+`;`,
		msg.Content, msg.SenderID, msg.ReceiverID, msg.GroupID)
	return scanMessage(row)
}

// GetMessage fetches a message with its read set.
func (s *Store) GetMessage(ctx context.Context, id int64) (models.ChatMessage, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM chat_messages WHERE id = $1;`, id)
	msg, err := scanMessage(row)
	if err != nil {
		return models.ChatMessage{}, err
	}
	return s.attachReads(ctx, msg)
}

// DirectHistory returns messages between a and b in either direction,
// chronological, paginated by skip/limit.
func (s *Store) DirectHistory(ctx context.Context, a, b int64, page, limit int) ([]models.ChatMessage, error) {
	page, limit = normalizePage(page, limit)
	return s.listMessages(ctx,
		`SELECT `+messageColumns+` FROM chat_messages
		 WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		 ORDER BY created_at, id
		 OFFSET $3 LIMIT $4;`,
		a, b, (page-1)*limit, limit)
}

// GroupHistory returns a group's messages in chronological order.
func (s *Store) GroupHistory(ctx context.Context, groupID int64, page, limit int) ([]models.ChatMessage, error) {
	page, limit = normalizePage(page, limit)
	return s.listMessages(ctx,
		`SELECT `+messageColumns+` FROM chat_messages
		 WHERE group_id = $1
		 ORDER BY created_at, id
		 OFFSET $2 LIMIT $3;`,
		groupID, (page-1)*limit, limit)
}

// LatestGroupMessages returns the newest page first; the caller reverses it.
func (s *Store) LatestGroupMessages(ctx context.Context, groupID int64, page, limit int) ([]models.ChatMessage, error) {
	page, limit = normalizePage(page, limit)
	return s.listMessages(ctx,
		`SELECT `+messageColumns+` FROM chat_messages
		 WHERE group_id = $1
		 ORDER BY created_at DESC, id DESC
		 OFFSET $2 LIMIT $3;`,
		groupID, (page-1)*limit, limit)
}

// UpdateContent mutates content and marks the message edited.
func (s *Store) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) (models.ChatMessage, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE chat_messages SET content = $2, is_edited = TRUE, edited_at = $3, updated_at = $3
		 WHERE id = $1
		 RETURNING `+messageColumns+`;`,
		id, content, editedAt)
	msg, err := scanMessage(row)
	if err != nil {
		return models.ChatMessage{}, err
	}
	return s.attachReads(ctx, msg)
}

// MarkRead appends a read receipt; ON CONFLICT keeps the set semantics.
func (s *Store) MarkRead(ctx context.Context, id, readerID int64, at time.Time) (models.ChatMessage, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO message_reads (message_id, user_id, read_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (message_id, user_id) DO NOTHING;`,
		id, readerID, at)
	if err != nil {
		// A missing message surfaces as a foreign key violation.
		if isForeignKey(err) {
			return models.ChatMessage{}, storage.ErrNotFound
		}
		return models.ChatMessage{}, err
	}
	if tag.RowsAffected() > 0 {
		if _, err := s.pool.Exec(ctx,
			`UPDATE chat_messages SET updated_at = $2 WHERE id = $1;`, id, at); err != nil {
			return models.ChatMessage{}, err
		}
	}
	return s.GetMessage(ctx, id)
}

// DeleteMessage hard-removes the record; read receipts cascade.
func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) listMessages(ctx context.Context, query string, args ...any) ([]models.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.attachReadsBulk(ctx, out)
}

func (s *Store) attachReads(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	msgs, err := s.attachReadsBulk(ctx, []models.ChatMessage{msg})
	if err != nil {
		return models.ChatMessage{}, err
	}
	return msgs[0], nil
}

func (s *Store) attachReadsBulk(ctx context.Context, msgs []models.ChatMessage) ([]models.ChatMessage, error) {
	if len(msgs) == 0 {
		return msgs, nil
	}
	ids := make([]int64, len(msgs))
	index := make(map[int64]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
		index[m.ID] = i
	}
	rows, err := s.pool.Query(ctx,
		`SELECT message_id, user_id, read_at FROM message_reads WHERE message_id = ANY($1) ORDER BY read_at;`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var messageID int64
		var receipt models.ReadReceipt
		if err := rows.Scan(&messageID, &receipt.UserID, &receipt.ReadAt); err != nil {
			return nil, err
		}
		i := index[messageID]
		msgs[i].ReadBy = append(msgs[i].ReadBy, receipt)
	}
	return msgs, rows.Err()
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	return page, limit
}

func scanMessage(row pgx.Row) (models.ChatMessage, error) {
	var msg models.ChatMessage
	if err := row.Scan(&msg.ID, &msg.Content, &msg.SenderID, &msg.ReceiverID, &msg.GroupID,
		&msg.Edited, &msg.EditedAt, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChatMessage{}, storage.ErrNotFound
		}
		return models.ChatMessage{}, err
	}
	return msg, nil
}
