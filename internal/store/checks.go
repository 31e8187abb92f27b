package store

import "context"

// CreateCheck appends a check for check.URLID. ID and CreatedAt are set by
// the database and returned.
func (s *Store) CreateCheck(ctx context.Context, check URLCheck) (URLCheck, error) {
	row := s.db.QueryRowxContext(ctx, `
INSERT INTO url_checks (url_id, status_code, h1, description, keywords, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING id, created_at
`, check.URLID, check.StatusCode, check.H1, check.Description, check.Keywords)

	if err := row.Scan(&check.ID, &check.CreatedAt); err != nil {
		return URLCheck{}, mapError(err)
	}
	return check, nil
}

// ListChecks returns every check of a url, newest first.
func (s *Store) ListChecks(ctx context.Context, urlID int64) ([]URLCheck, error) {
	checks := []URLCheck{}
	err := s.db.SelectContext(ctx, &checks, `
SELECT id, url_id, status_code, h1, description, keywords, created_at
FROM url_checks
WHERE url_id = $1
ORDER BY created_at DESC, id DESC
`, urlID)
	if err != nil {
		return nil, mapError(err)
	}
	return checks, nil
}
