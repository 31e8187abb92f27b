package httpx

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	DefaultUserAgent = "page-analyzer-bot/1.0"
	DefaultTimeout   = 15 * time.Second
)

// Response is what a page check needs from a fetch.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// FetchError is returned when no HTTP response was received at all.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s failed (status %d)", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s failed (status %d): %v", e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CollyFetcher issues single GET requests through a fresh Colly collector.
// It never retries, and every HTTP status is reported as a response.
type CollyFetcher struct {
	userAgent string
	timeout   time.Duration
	transport http.RoundTripper
}

type Option func(*CollyFetcher)

func WithTimeout(d time.Duration) Option {
	return func(f *CollyFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithTransport replaces the HTTP transport, mostly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *CollyFetcher) {
		f.transport = rt
	}
}

func NewCollyFetcher(userAgent string, opts ...Option) *CollyFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	f := &CollyFetcher{
		userAgent: userAgent,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs target once and returns its status, content type and body.
func (f *CollyFetcher) Fetch(ctx context.Context, target string) (Response, error) {
	if target == "" {
		return Response{}, &FetchError{URL: target, Err: errors.New("empty url")}
	}
	if err := ctx.Err(); err != nil {
		return Response{}, &FetchError{URL: target, Err: err}
	}

	c := f.newCollector(ctx)

	var (
		resp     Response
		received bool
	)
	c.OnResponse(func(r *colly.Response) {
		received = true
		resp = Response{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: transcodedContentType(r.Headers.Get("Content-Type")),
			Body:        append([]byte(nil), r.Body...),
		}
	})

	if err := c.Request(http.MethodGet, target, nil, nil, nil); err != nil {
		return Response{}, &FetchError{URL: target, Err: err}
	}
	if !received {
		if err := ctx.Err(); err != nil {
			return Response{}, &FetchError{URL: target, Err: err}
		}
		return Response{}, &FetchError{URL: target, Err: errors.New("no response received")}
	}
	return resp, nil
}

// newCollector binds every request it makes to ctx.
func (f *CollyFetcher) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
	)
	c.ParseHTTPErrorResponse = true
	c.SetRequestTimeout(f.timeout)
	if f.transport != nil {
		c.WithTransport(f.transport)
	}
	return c
}

// transcodedContentType rewrites a declared charset to utf-8: Colly has
// already converted the body when the header names a charset.
func transcodedContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	if _, ok := params["charset"]; !ok {
		return contentType
	}
	params["charset"] = "utf-8"
	return mime.FormatMediaType(mediaType, params)
}
