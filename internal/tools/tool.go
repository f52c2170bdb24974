package tools

import (
	"context"
	"encoding/json"

	"salesdesk/pkg/errors"
)

// Tool represents a callable capability exposed to the orchestration layer.
type Tool interface {
	// Name returns the unique tool identifier.
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// Execute performs the tool's action using the provided arguments.
	Execute(ctx context.Context, args interface{}) (interface{}, error)
}

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args interface{}) (interface{}, error)

// FunctionTool is a simple Tool implementation backed by a handler function.
type FunctionTool struct {
	name        string
	description string
	handler     HandlerFunc
}

// New creates a new function-backed Tool.
func New(name, description string, handler HandlerFunc) Tool {
	return &FunctionTool{
		name:        name,
		description: description,
		handler:     handler,
	}
}

// NewTyped creates a Tool whose arguments are decoded into A before fn runs.
func NewTyped[A any](name, description string, fn func(ctx context.Context, args A) (interface{}, error)) Tool {
	return New(name, description, func(ctx context.Context, raw interface{}) (interface{}, error) {
		args, err := Decode[A](raw)
		if err != nil {
			return nil, errors.Wrapf(err, "tool %s", name)
		}
		return fn(ctx, args)
	})
}

// Name returns the tool identifier.
func (t *FunctionTool) Name() string { return t.name }

// Description returns a human description of the tool.
func (t *FunctionTool) Description() string { return t.description }

// Execute runs the underlying handler.
func (t *FunctionTool) Execute(ctx context.Context, args interface{}) (interface{}, error) {
	if t.handler == nil {
		return nil, errors.Wrapf(errors.ErrInternal, "tool %s has no handler", t.name)
	}

	return t.handler(ctx, args)
}

// Decode converts tool arguments into A. Accepts A itself, *A, raw JSON, or
// anything that round-trips through JSON (e.g. map[string]interface{}).
func Decode[A any](args interface{}) (A, error) {
	var out A

	var data []byte
	switch v := args.(type) {
	case nil:
		return out, nil
	case A:
		return v, nil
	case *A:
		if v != nil {
			out = *v
		}
		return out, nil
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return out, errors.NewValidationError("args", "not JSON encodable", err.Error())
		}
		data = b
	}

	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, errors.NewValidationError("args", "malformed arguments", err.Error())
	}
	return out, nil
}
