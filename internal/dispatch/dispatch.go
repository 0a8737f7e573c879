// ABOUTME: Dispatcher routing named cookie operations to jar transitions
// ABOUTME: Produces an Outcome per call and notifies observers such as metrics and the ledger

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/cookie-jar/internal/jar"
)

// Tool names as exposed on the wire.
const (
	ToolReflectAndReward = "self_reflect_and_reward"
	ToolGiveCookie       = "give_cookie"
	ToolCheckCookies     = "check_cookies"
	ToolResetCookies     = "reset_cookies"
	ToolAddCookiesToJar  = "add_cookies_to_jar"
	ToolJarStatus        = "cookie_jar_status"
)

// RefillPhrase is the exact authorization string add_cookies_to_jar requires.
// It is a shared phrase kept out of the model's hands, not a credential.
const RefillPhrase = "USER_AUTHORIZED_JAR_REFILL"

var (
	// ErrUnknownOperation is returned for a name missing from the dispatch table.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidArguments is returned when arguments cannot be decoded or a
	// required argument is missing.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrUnauthorized is carried by a restock outcome whose phrase did not match.
	ErrUnauthorized = errors.New("unauthorized")
)

// Error kinds used by observers and structured results.
const (
	KindEmptyJar      = "empty_jar"
	KindInvalidAmount = "invalid_amount"
	KindUnauthorized  = "unauthorized"
)

// Outcome is the result of one dispatched operation.
type Outcome struct {
	Operation string
	Accepted  bool
	Quality   Quality
	Narrative string
	Snapshot  jar.Status
	Err       error
}

// ErrorKind names the jar-level failure carried by the outcome, or "".
func (o *Outcome) ErrorKind() string {
	switch {
	case o.Err == nil:
		return ""
	case errors.Is(o.Err, jar.ErrEmptyJar):
		return KindEmptyJar
	case errors.Is(o.Err, jar.ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(o.Err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return "error"
	}
}

// Observer is notified after every successfully dispatched operation.
type Observer interface {
	Observe(ctx context.Context, o *Outcome) error
}

// Config holds the dependencies of a Dispatcher.
type Config struct {
	Jar       *jar.Jar
	Logger    *slog.Logger
	Observers []Observer
}

// Dispatcher owns the jar and maps operation names onto its transitions.
type Dispatcher struct {
	jar       *jar.Jar
	ops       *table
	observers []Observer
	logger    *slog.Logger
}

// New creates a Dispatcher with the fixed cookie operation table.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Jar == nil {
		return nil, errors.New("jar is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		jar:       cfg.Jar,
		observers: append([]Observer(nil), cfg.Observers...),
		logger:    logger,
	}

	ops, err := newTable(d.operations()...)
	if err != nil {
		return nil, err
	}
	d.ops = ops

	return d, nil
}

// Definitions lists every operation in registration order.
func (d *Dispatcher) Definitions() []Definition {
	return d.ops.definitions()
}

// Status returns the current jar snapshot.
func (d *Dispatcher) Status() jar.Status {
	return d.jar.Status()
}

// Call runs the named operation. Unknown names and undecodable arguments are
// returned as errors; everything else produces an Outcome.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage) (*Outcome, error) {
	op, ok := d.ops.lookup(name)
	if !ok {
		d.logger.Warn("unknown operation", "operation", name)
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}

	out, err := op.Handler(ctx, args)
	if err != nil {
		d.logger.Debug("operation rejected", "operation", name, "error", err)
		return nil, err
	}
	out.Operation = name

	d.logger.Debug("operation complete",
		"operation", name,
		"accepted", out.Accepted,
		"error_kind", out.ErrorKind(),
		"collected", out.Snapshot.Collected,
		"available", out.Snapshot.Available,
	)

	d.notify(ctx, out)
	return out, nil
}

func (d *Dispatcher) notify(ctx context.Context, out *Outcome) {
	for _, obs := range d.observers {
		if err := obs.Observe(ctx, out); err != nil {
			d.logger.Warn("observer failed", "operation", out.Operation, "error", err)
		}
	}
}

// decodeArgs unmarshals args into dst after checking that every required
// key is present. Empty and null arguments decode as an empty object.
func decodeArgs(args json.RawMessage, dst any, required ...string) error {
	present, err := decodeFields(args)
	if err != nil {
		return err
	}
	for _, key := range required {
		if _, ok := present[key]; !ok {
			return fmt.Errorf("%w: %s is required", ErrInvalidArguments, key)
		}
	}

	if len(present) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

// decodeFields splits an arguments object into its raw fields. Empty and
// null arguments decode as an empty object.
func decodeFields(args json.RawMessage) (map[string]json.RawMessage, error) {
	if len(args) == 0 || string(args) == "null" {
		return map[string]json.RawMessage{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(args, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}
