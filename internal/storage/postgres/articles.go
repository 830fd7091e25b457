package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/storage"
)

const articleColumns = `id, title, description, banner_url, author, created_at, updated_at`

// CreateArticle inserts a new article.
func (s *Store) CreateArticle(ctx context.Context, article models.Article) (models.Article, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO articles (title, description, banner_url, author)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+articleColumns+`;`,
		article.Title, article.Description, article.BannerURL, article.Author)
	return scanArticle(row)
}

// GetArticle fetches an article by id.
func (s *Store) GetArticle(ctx context.Context, id int64) (models.Article, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1;`, id)
	return scanArticle(row)
}

// ListArticles returns all articles, oldest first.
func (s *Store) ListArticles(ctx context.Context) ([]models.Article, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+articleColumns+` FROM articles ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateArticle overwrites title and description; an empty banner keeps the old one.
func (s *Store) UpdateArticle(ctx context.Context, article models.Article) (models.Article, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE articles
		 SET title = $2, description = $3,
		     banner_url = CASE WHEN $4 = '' THEN banner_url ELSE $4 END,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+articleColumns+`;`,
		article.ID, article.Title, article.Description, article.BannerURL)
	return scanArticle(row)
}

// DeleteArticle removes the article.
func (s *Store) DeleteArticle(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanArticle(row pgx.Row) (models.Article, error) {
	var a models.Article
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.BannerURL, &a.Author, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Article{}, storage.ErrNotFound
		}
		return models.Article{}, err
	}
	return a, nil
}
