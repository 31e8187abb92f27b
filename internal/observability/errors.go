package observability

import (
	"context"
	"errors"

	"github.com/baxromumarov/page-analyzer/internal/content"
	"github.com/baxromumarov/page-analyzer/internal/httpx"
	"github.com/baxromumarov/page-analyzer/internal/store"
	"github.com/baxromumarov/page-analyzer/internal/urlutil"
)

const (
	ErrorNetwork    = "network"
	ErrorParsing    = "parsing"
	ErrorStore      = "store"
	ErrorValidation = "validation"
	ErrorDuplicate  = "duplicate"
	ErrorNotFound   = "not_found"
	ErrorUnknown    = "unknown"
)

func ClassifyFetchError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		return ErrorNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorNetwork
	}
	return ErrorUnknown
}

// Classify maps any error from the url or check flow to a stats kind.
func Classify(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	if kind := ClassifyFetchError(err); kind != ErrorUnknown {
		return kind
	}
	switch {
	case errors.Is(err, content.ErrUnparseable):
		return ErrorParsing
	case errors.Is(err, urlutil.ErrEmptyURL), errors.Is(err, urlutil.ErrMalformedURL):
		return ErrorValidation
	case errors.Is(err, store.ErrDuplicate):
		return ErrorDuplicate
	case errors.Is(err, store.ErrNotFound):
		return ErrorNotFound
	}
	var ve *urlutil.ValidationError
	if errors.As(err, &ve) {
		return ErrorValidation
	}
	return ErrorStore
}
