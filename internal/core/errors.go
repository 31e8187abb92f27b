package core

import (
	"errors"
	"fmt"

	"github.com/baxromumarov/page-analyzer/internal/store"
	"github.com/baxromumarov/page-analyzer/internal/urlutil"
)

var (
	ErrEmptyURL     = urlutil.ErrEmptyURL
	ErrMalformedURL = urlutil.ErrMalformedURL
	ErrDuplicateURL = errors.New("url already exists")
	ErrUnavailable  = errors.New("site not available")
	ErrURLNotFound  = errors.New("url not found")
)

// DuplicateError is returned by RegisterURL when the normalized name is
// already stored. Existing is the stored row when it could be loaded.
type DuplicateError struct {
	Name     string
	Existing *store.URL
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDuplicateURL, e.Name)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateURL
}

// CheckError wraps the reason a page check produced no record.
type CheckError struct {
	URL string
	Err error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrUnavailable, e.URL, e.Err)
}

func (e *CheckError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}
