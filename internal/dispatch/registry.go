// ABOUTME: Fixed dispatch table mapping tool names to definitions and handlers.
// ABOUTME: Rejects duplicate names at construction time.

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrToolCollision indicates two operations share a tool name.
var ErrToolCollision = errors.New("tool name collision")

// Handler executes one operation against the decoded arguments.
// It returns an error only for request-level failures such as bad arguments;
// jar-level failures travel in Outcome.Err.
type Handler func(ctx context.Context, args json.RawMessage) (*Outcome, error)

// Definition describes an operation to protocol adapters.
type Definition struct {
	Name        string
	Title       string
	Description string
	InputSchema *jsonschema.Schema
	ReadOnly    bool
	Destructive bool
}

// Operation pairs a definition with its handler.
type Operation struct {
	Definition Definition
	Handler    Handler
}

// table keeps operations in registration order for stable listings.
type table struct {
	byName map[string]*Operation
	order  []*Operation
}

func newTable(ops ...*Operation) (*table, error) {
	t := &table{byName: make(map[string]*Operation, len(ops))}
	for _, op := range ops {
		name := op.Definition.Name
		if _, exists := t.byName[name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrToolCollision, name)
		}
		t.byName[name] = op
		t.order = append(t.order, op)
	}
	return t, nil
}

func (t *table) lookup(name string) (*Operation, bool) {
	op, ok := t.byName[name]
	return op, ok
}

func (t *table) definitions() []Definition {
	defs := make([]Definition, len(t.order))
	for i, op := range t.order {
		defs[i] = op.Definition
	}
	return defs
}

// schemaFor infers an object schema from T. The argument types are fixed at
// compile time, so a failure here is a programming error.
func schemaFor[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("dispatch: inferring schema: %v", err))
	}
	return s
}
