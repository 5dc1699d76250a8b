package query

import (
	"errors"
	"fmt"
)

// ErrNoGraph is returned by NewQuery without a graph.
var ErrNoGraph = errors.New("query: no graph")

// Error is a failed query. Evaluation errors are fatal for the whole query:
// no partial results are returned alongside an Error.
type Error struct {
	QueryID string
	// Expr is the predicate or expression being compiled or evaluated.
	Expr string
	Err  error
}

func (e *Error) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("query %s: %v", e.QueryID, e.Err)
	}
	return fmt.Sprintf("query %s: %s: %v", e.QueryID, e.Expr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
