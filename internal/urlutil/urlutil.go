package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL     = errors.New("url is empty")
	ErrMalformedURL = errors.New("url is malformed")
)

var allowedSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
}

// ValidationError reports why a raw URL was rejected. Kind is ErrEmptyURL or
// ErrMalformedURL; Err is the underlying parse or lookup failure, if any.
type ValidationError struct {
	Input string
	Kind  error
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %q", e.Kind, e.Input)
	}
	return fmt.Sprintf("%v: %q: %v", e.Kind, e.Input, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Malformed wraps cause as a malformed-URL validation error for raw.
func Malformed(raw string, cause error) error {
	return &ValidationError{Input: raw, Kind: ErrMalformedURL, Err: cause}
}

// Normalize reduces raw to "scheme://host". Path, query, fragment and
// userinfo are dropped; host case and port are kept as given.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &ValidationError{Input: raw, Kind: ErrEmptyURL}
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", Malformed(raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", Malformed(raw, errors.New("missing scheme or host"))
	}
	if _, ok := allowedSchemes[u.Scheme]; !ok {
		return "", Malformed(raw, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
	if u.Hostname() == "" {
		return "", Malformed(raw, errors.New("empty host name"))
	}

	return u.Scheme + "://" + u.Host, nil
}

// Hostname returns the host of a normalized URL without its port.
func Hostname(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
