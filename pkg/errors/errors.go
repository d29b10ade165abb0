package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDocumentUnreadable = errors.New("document unreadable")
	ErrEmptyQuery         = errors.New("empty query")
	ErrZeroNormDivision   = errors.New("zero norm in cosine denominator")
	ErrSourceUnavailable  = errors.New("document source unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCorpusNotReady     = errors.New("corpus not built")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

// AppError carries the status and the client-facing message for an error
// that reaches the HTTP layer. It matches its sentinel under errors.Is.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// DocumentError reports a single document the source could not deliver.
// It matches ErrDocumentUnreadable under errors.Is.
type DocumentError struct {
	Name string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrDocumentUnreadable.Error(), e.Name, e.Err)
}

func (e *DocumentError) Unwrap() []error {
	return []error{ErrDocumentUnreadable, e.Err}
}

func Unreadable(name string, err error) *DocumentError {
	return &DocumentError{Name: name, Err: err}
}

// HTTPStatusCode maps err to a response status. An AppError's own status
// wins over its sentinel.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrCorpusNotReady), errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
