// ABOUTME: Ledger types: one Event per dispatched cookie operation
// ABOUTME: The ledger is write-mostly history and never feeds back into jar state

package store

import (
	"context"
	"errors"
	"time"

	"github.com/2389/cookie-jar/internal/dispatch"
)

// ErrClosed is returned by ledger operations after Close.
var ErrClosed = errors.New("ledger closed")

// Event records the outcome of one operation.
type Event struct {
	ID        string    // UUID v4
	Operation string    // tool name
	Accepted  bool      // whether the operation did what was asked
	Quality   string    // self-assessed quality, reflection only
	ErrorKind string    // empty_jar, invalid_amount, unauthorized, or ""
	Collected int       // collected count after the operation
	Available int       // jar supply after the operation
	Timestamp time.Time // when it happened
}

// Filter specifies filtering options for listing events.
type Filter struct {
	Operation string     // exact tool name, "" for all
	Since     *time.Time // events at or after this time
	Limit     int        // max results (default 100, max 1000)
}

// Stats summarizes the ledger.
type Stats struct {
	Events  int
	Awarded int // accepted award operations
	Denied  int // events carrying an error kind
}

// Ledger persists operation events.
type Ledger interface {
	Append(ctx context.Context, e *Event) error
	List(ctx context.Context, f Filter) ([]Event, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// RecordingLedger is a Ledger that can also be registered as a dispatcher
// observer. SQLiteStore and MockStore both qualify.
type RecordingLedger interface {
	Ledger
	dispatch.Observer
}

// EventFromOutcome converts a dispatcher outcome into a ledger event.
func EventFromOutcome(o *dispatch.Outcome) *Event {
	return &Event{
		Operation: o.Operation,
		Accepted:  o.Accepted,
		Quality:   string(o.Quality),
		ErrorKind: o.ErrorKind(),
		Collected: o.Snapshot.Collected,
		Available: o.Snapshot.Available,
	}
}

// isAward reports whether an operation draws from the jar.
func isAward(operation string) bool {
	return operation == dispatch.ToolReflectAndReward || operation == dispatch.ToolGiveCookie
}

// normalizeLimit applies default (100) and cap (1000) to a list limit.
func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}
