package store

import (
	"context"
	"time"
)

type URL struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// URLSummary is a url row joined with its most recent check, if any.
type URLSummary struct {
	URL
	LastStatusCode *int       `db:"last_status_code" json:"last_status_code"`
	LastCheckedAt  *time.Time `db:"last_checked_at" json:"last_checked_at"`
}

type URLCheck struct {
	ID          int64     `db:"id" json:"id"`
	URLID       int64     `db:"url_id" json:"url_id"`
	StatusCode  int       `db:"status_code" json:"status_code"`
	H1          *string   `db:"h1" json:"h1"`
	Description *string   `db:"description" json:"description"`
	Keywords    *string   `db:"keywords" json:"keywords"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreateURL inserts a url. A name that already exists yields ErrDuplicate
// from the unique constraint; nothing is written in that case.
func (s *Store) CreateURL(ctx context.Context, name string) (URL, error) {
	var u URL
	err := s.db.GetContext(ctx, &u, `
INSERT INTO urls (name, created_at)
VALUES ($1, NOW())
RETURNING id, name, created_at
`, name)
	return u, mapError(err)
}

func (s *Store) GetURL(ctx context.Context, id int64) (URL, error) {
	var u URL
	err := s.db.GetContext(ctx, &u, `SELECT id, name, created_at FROM urls WHERE id = $1`, id)
	return u, mapError(err)
}

// FindURLByName matches name exactly, case included.
func (s *Store) FindURLByName(ctx context.Context, name string) (URL, error) {
	var u URL
	err := s.db.GetContext(ctx, &u, `SELECT id, name, created_at FROM urls WHERE name = $1`, name)
	return u, mapError(err)
}

// ListURLs returns urls newest first, each with its latest check status.
func (s *Store) ListURLs(ctx context.Context, limit, offset int) ([]URLSummary, error) {
	limit = clampLimit(limit, 15, MaxPageSize)
	if offset < 0 {
		offset = 0
	}

	urls := []URLSummary{}
	err := s.db.SelectContext(ctx, &urls, `
SELECT
    u.id,
    u.name,
    u.created_at,
    c.status_code AS last_status_code,
    c.created_at AS last_checked_at
FROM urls u
LEFT JOIN LATERAL (
    SELECT status_code, created_at
    FROM url_checks
    WHERE url_id = u.id
    ORDER BY created_at DESC, id DESC
    LIMIT 1
) c ON TRUE
ORDER BY u.created_at DESC, u.id DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	return urls, nil
}

func (s *Store) CountURLs(ctx context.Context) (int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM urls`); err != nil {
		return 0, mapError(err)
	}
	return total, nil
}
