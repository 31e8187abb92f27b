package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baxromumarov/page-analyzer/internal/content"
	"github.com/baxromumarov/page-analyzer/internal/httpx"
	"github.com/baxromumarov/page-analyzer/internal/observability"
	"github.com/baxromumarov/page-analyzer/internal/store"
	"github.com/baxromumarov/page-analyzer/internal/urlutil"
)

const DefaultPageSize = 15

// Repository is the persistence the service needs. *store.Store implements it.
type Repository interface {
	CreateURL(ctx context.Context, name string) (store.URL, error)
	GetURL(ctx context.Context, id int64) (store.URL, error)
	FindURLByName(ctx context.Context, name string) (store.URL, error)
	ListURLs(ctx context.Context, limit, offset int) ([]store.URLSummary, error)
	CountURLs(ctx context.Context) (int, error)
	CreateCheck(ctx context.Context, check store.URLCheck) (store.URLCheck, error)
	ListChecks(ctx context.Context, urlID int64) ([]store.URLCheck, error)
}

// Fetcher performs the single GET of a page check. *httpx.CollyFetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (httpx.Response, error)
}

// Resolver looks up host names. *net.Resolver implements it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type URLPage struct {
	Items    []store.URLSummary `json:"items"`
	Page     int                `json:"page"`
	PerPage  int                `json:"per_page"`
	Total    int                `json:"total"`
	LastPage int                `json:"last_page"`
}

type URLDetail struct {
	URL    store.URL        `json:"url"`
	Checks []store.URLCheck `json:"checks"`
}

type Service struct {
	repo     Repository
	fetcher  Fetcher
	resolver Resolver
	pageSize int
	logger   *slog.Logger
}

type Option func(*Service)

// WithResolver enables the DNS check at registration. Without it any
// syntactically valid host is accepted.
func WithResolver(r Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithPageSize sets the listing page size, capped at store.MaxPageSize.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = min(n, store.MaxPageSize)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(repo Repository, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		fetcher:  fetcher,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterURL normalizes raw and stores it. Duplicates are detected by the
// storage unique constraint, not by a prior lookup.
func (s *Service) RegisterURL(ctx context.Context, raw string) (store.URL, error) {
	name, err := urlutil.Normalize(raw)
	if err != nil {
		observability.IncError(observability.Classify(err), "registration")
		return store.URL{}, err
	}

	if s.resolver != nil {
		host := urlutil.Hostname(name)
		if _, err := s.resolver.LookupHost(ctx, host); err != nil {
			observability.IncError(observability.ErrorValidation, "registration")
			return store.URL{}, urlutil.Malformed(raw, fmt.Errorf("resolve %s: %w", host, err))
		}
	}

	u, err := s.repo.CreateURL(ctx, name)
	if errors.Is(err, store.ErrDuplicate) {
		observability.IncError(observability.ErrorDuplicate, "registration")
		dup := &DuplicateError{Name: name}
		if existing, findErr := s.repo.FindURLByName(ctx, name); findErr == nil {
			dup.Existing = &existing
		}
		s.logger.Info("url already registered", "name", name)
		return store.URL{}, dup
	}
	if err != nil {
		observability.IncError(observability.ErrorStore, "registration")
		return store.URL{}, fmt.Errorf("create url: %w", err)
	}

	observability.IncURLsRegistered()
	s.logger.Info("url registered", "id", u.ID, "name", u.Name)
	return u, nil
}

// RunCheck fetches the stored url once and records the result. Any HTTP
// status is recorded; only transport or parse failure yields ErrUnavailable,
// in which case nothing is written.
func (s *Service) RunCheck(ctx context.Context, urlID int64) (store.URLCheck, error) {
	u, err := s.getURL(ctx, urlID)
	if err != nil {
		return store.URLCheck{}, err
	}

	start := time.Now()
	resp, err := s.fetcher.Fetch(ctx, u.Name)
	if err != nil {
		return store.URLCheck{}, s.unavailable(u, err)
	}

	fields, err := content.Analyze(resp.Body, resp.ContentType)
	if err != nil {
		return store.URLCheck{}, s.unavailable(u, err)
	}

	check, err := s.repo.CreateCheck(ctx, store.URLCheck{
		URLID:       u.ID,
		StatusCode:  resp.StatusCode,
		H1:          fields.H1,
		Description: fields.Description,
		Keywords:    fields.Keywords,
	})
	if errors.Is(err, store.ErrNotFound) {
		return store.URLCheck{}, fmt.Errorf("%w: %d", ErrURLNotFound, urlID)
	}
	if err != nil {
		observability.IncError(observability.ErrorStore, "checker")
		return store.URLCheck{}, fmt.Errorf("create check: %w", err)
	}

	elapsed := time.Since(start)
	observability.IncCheckStored(check.StatusCode)
	observability.ObserveCheckDuration(elapsed.Seconds())
	s.logger.Info("check stored",
		"url_id", u.ID,
		"url", u.Name,
		"status_code", check.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)
	return check, nil
}

// ListURLs returns page (1-based) of urls, newest first, each paired with
// its latest check status. page is clamped to [1, LastPage].
func (s *Service) ListURLs(ctx context.Context, page int) (URLPage, error) {
	total, err := s.repo.CountURLs(ctx)
	if err != nil {
		return URLPage{}, fmt.Errorf("count urls: %w", err)
	}

	last := lastPage(total, s.pageSize)
	page = max(1, min(page, last))

	items, err := s.repo.ListURLs(ctx, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return URLPage{}, fmt.Errorf("list urls: %w", err)
	}
	if items == nil {
		items = []store.URLSummary{}
	}

	return URLPage{
		Items:    items,
		Page:     page,
		PerPage:  s.pageSize,
		Total:    total,
		LastPage: last,
	}, nil
}

// ShowURL returns a url and all its checks, newest first.
func (s *Service) ShowURL(ctx context.Context, id int64) (URLDetail, error) {
	u, err := s.getURL(ctx, id)
	if err != nil {
		return URLDetail{}, err
	}

	checks, err := s.repo.ListChecks(ctx, id)
	if err != nil {
		return URLDetail{}, fmt.Errorf("list checks: %w", err)
	}
	if checks == nil {
		checks = []store.URLCheck{}
	}
	return URLDetail{URL: u, Checks: checks}, nil
}

func (s *Service) getURL(ctx context.Context, id int64) (store.URL, error) {
	u, err := s.repo.GetURL(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.URL{}, fmt.Errorf("%w: %d", ErrURLNotFound, id)
	}
	if err != nil {
		return store.URL{}, fmt.Errorf("get url %d: %w", id, err)
	}
	return u, nil
}

func (s *Service) unavailable(u store.URL, err error) error {
	kind := observability.Classify(err)
	observability.IncCheckUnavailable()
	observability.IncError(kind, "checker")
	s.logger.Warn("site not available", "url_id", u.ID, "url", u.Name, "kind", kind, "error", err)
	return &CheckError{URL: u.Name, Err: err}
}

func lastPage(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
