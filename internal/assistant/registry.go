package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gitlab.com/dirk.krummacker/relationship-service/internal/llm"
)

var (
	// ErrUnknownTool is returned if the model requests a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrTooManyIterations is returned if the model keeps requesting tools beyond the limit.
	ErrTooManyIterations = errors.New("assistant exceeded the maximum number of tool iterations")
)

// ArgumentError reports tool arguments that could not be decoded or failed validation.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Tool is an operation the model may request. Create tools with NewTool.
type Tool interface {
	Spec() llm.Tool
	prepare(id string, arguments string) (Call, error)
}

// Call is a tool call whose arguments have been decoded and validated. It is ready to run.
type Call struct {
	ID        string
	Name      string
	Arguments interface{}
	run       func(ctx context.Context, userID string) (interface{}, error)
}

// Execute runs the call on behalf of the user.
func (c Call) Execute(ctx context.Context, userID string) (interface{}, error) {
	return c.run(ctx, userID)
}

type typedTool[A any, R any] struct {
	spec llm.Tool
	run  func(ctx context.Context, userID string, args A) (R, error)
}

// NewTool binds a tool name to a handler with typed arguments. The arguments are decoded from
// the model's JSON with unknown fields rejected, then validated with the `validate` struct tags
// of A. The parameters schema is what the model gets to see.
func NewTool[A any, R any](name string, description string, parameters map[string]interface{},
	run func(ctx context.Context, userID string, args A) (R, error)) Tool {
	return &typedTool[A, R]{
		spec: llm.Tool{Name: name, Description: description, Parameters: parameters},
		run:  run,
	}
}

func (t *typedTool[A, R]) Spec() llm.Tool {
	return t.spec
}

func (t *typedTool[A, R]) prepare(id string, arguments string) (Call, error) {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}

	var args A
	decoder := json.NewDecoder(strings.NewReader(arguments))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&args); err != nil {
		return Call{}, &ArgumentError{Tool: t.spec.Name, Err: err}
	}
	if err := validate.Struct(args); err != nil {
		return Call{}, &ArgumentError{Tool: t.spec.Name, Err: err}
	}

	return Call{
		ID:        id,
		Name:      t.spec.Name,
		Arguments: args,
		run: func(ctx context.Context, userID string) (interface{}, error) {
			return t.run(ctx, userID, args)
		},
	}, nil
}

// Registry is the fixed set of tools offered to the model.
type Registry struct {
	tools map[string]Tool
	specs []llm.Tool
}

// NewRegistry registers the tools in the given order. Names must be unique.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		spec := tool.Spec()
		if _, exists := r.tools[spec.Name]; exists {
			return nil, fmt.Errorf("tool %s registered twice", spec.Name)
		}
		r.tools[spec.Name] = tool
		r.specs = append(r.specs, spec)
	}
	return r, nil
}

// Specs returns the declarations of all tools.
func (r *Registry) Specs() []llm.Tool {
	return r.specs
}

// Prepare decodes and validates all requested calls. It fails on the first bad call, in which
// case nothing has been executed yet.
func (r *Registry) Prepare(requested []llm.ToolCall) ([]Call, error) {
	calls := make([]Call, 0, len(requested))
	for _, tc := range requested {
		tool, ok := r.tools[tc.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, tc.Name)
		}
		call, err := tool.prepare(tc.ID, tc.Arguments)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}
