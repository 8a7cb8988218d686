package mcpserver

import (
	"context"
	"errors"
	"fmt"

	cerrors "github.com/codanna-go/codanna/internal/errors"
)

// ProtocolError is the {code, message, hint} error shape every response
// carries on failure. Code is a short namespaced string rather than a
// JSON-RPC integer code, because this protocol's operations (Search,
// FindSymbol, Calls, Callers, Dependencies, IndexFile, Reindex) are not
// JSON-RPC methods.
type ProtocolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

var (
	// ErrEmptyQuery indicates a required query/name parameter was blank.
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrSymbolNotFound indicates a symbol lookup produced no candidates
	// to resolve against for Calls/Callers/Dependencies.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// ErrUnsupportedTransport reports a Serve call naming a transport other
// than stdio.
func ErrUnsupportedTransport(transport string) error {
	return fmt.Errorf("unsupported transport: %s (supported: stdio)", transport)
}

// MapError converts an engine-surfaced error into the wire ProtocolError
// shape, following the same error-mapping approach as
// internal/mcp/errors.go but against a {code, message, hint} triple
// instead of JSON-RPC codes.
func MapError(err error) *ProtocolError {
	if err == nil {
		return nil
	}

	var codannaErr *cerrors.CodannaError
	if errors.As(err, &codannaErr) {
		return &ProtocolError{
			Code:    codannaErr.Code,
			Message: codannaErr.Message,
			Hint:    codannaErr.Suggestion,
		}
	}

	switch {
	case errors.Is(err, ErrEmptyQuery):
		return &ProtocolError{
			Code:    cerrors.ErrCodeQueryEmpty,
			Message: err.Error(),
			Hint:    "provide a non-empty query or symbol name",
		}
	case errors.Is(err, ErrSymbolNotFound):
		return &ProtocolError{
			Code:    cerrors.ErrCodeInvalidInput,
			Message: err.Error(),
			Hint:    "check the symbol name with FindSymbol first",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &ProtocolError{
			Code:    cerrors.ErrCodeNetworkTimeout,
			Message: "request exceeded its deadline",
			Hint:    "retry with a larger query.deadline_ms or a narrower query",
		}
	case errors.Is(err, context.Canceled):
		return &ProtocolError{
			Code:    cerrors.ErrCodeNetworkTimeout,
			Message: "request was canceled",
		}
	default:
		return &ProtocolError{
			Code:    cerrors.ErrCodeInternal,
			Message: err.Error(),
		}
	}
}
