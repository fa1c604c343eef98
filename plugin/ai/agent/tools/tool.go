// Package tools defines the invocation protocol the agent loop uses to
// execute external capabilities, and the shipped tool implementations.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/lamberr/ragline/plugin/ai"
)

// Tool is the interface for agent tools.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description tells the model when the tool applies.
	Description() string

	// Parameters describes the expected argument payload.
	Parameters() jsonschema.Definition

	// Call executes the tool with the given JSON arguments. Tools are
	// read-only with respect to shared session state; their only side
	// effect is the declared external call.
	Call(ctx context.Context, args json.RawMessage) (string, error)
}

// ExecutionError reports a failed tool invocation. It never escapes the
// dispatch layer as a raised error; it travels inside a Result so the
// loop can surface it to the model and continue.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s execution failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a single tool invocation.
type Result struct {
	ToolName string
	Output   string
	Err      *ExecutionError
}

// Content renders the result as the tool-role message content fed back
// to the model. Failures become a readable error string, never partial
// output.
func (r Result) Content() string {
	if r.Err != nil {
		return "tool error: " + r.Err.Error()
	}
	return r.Output
}

// Registry manages the set of tools available to one agent call.
// Descriptors are immutable once registered.
type Registry struct {
	tools       map[string]Tool
	order       []string
	callTimeout time.Duration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCallTimeout bounds each tool invocation.
func WithCallTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.callTimeout = d
	}
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:       make(map[string]Tool),
		callTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. Names must be unique within the registry.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}

// Specs returns the tool descriptors in registration order, for the
// model's tool-selection call.
func (r *Registry) Specs() []ai.ToolSpec {
	specs := make([]ai.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		specs = append(specs, ai.ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return specs
}

// Dispatch executes one proposed tool call under the registry timeout.
// It never returns a raised error: unknown tools, timeouts and tool
// failures all come back as a Result carrying an ExecutionError.
func (r *Registry) Dispatch(ctx context.Context, call ai.ToolCall) Result {
	tool, ok := r.tools[call.Name]
	if !ok {
		return Result{
			ToolName: call.Name,
			Err:      &ExecutionError{Tool: call.Name, Err: fmt.Errorf("unknown tool")},
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	start := time.Now()
	output, err := tool.Call(callCtx, json.RawMessage(call.Arguments))
	if err != nil {
		slog.Warn("tool execution failed",
			"tool", call.Name,
			"duration", time.Since(start),
			"error", err)
		return Result{
			ToolName: call.Name,
			Err:      &ExecutionError{Tool: call.Name, Err: err},
		}
	}

	slog.Debug("tool execution succeeded",
		"tool", call.Name,
		"duration", time.Since(start))

	return Result{ToolName: call.Name, Output: output}
}
