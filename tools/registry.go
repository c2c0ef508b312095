// Package tools holds the callable tools the gateway offers to models.
//
// Definitions use the MCP tool schema so the same registry can be handed to
// any provider converter or served over MCP stdio.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chatgate/config"
)

// Handler runs a tool with decoded arguments and returns a JSON-encodable
// result.
type Handler func(ctx context.Context, args map[string]any) (any, error)

type Tool struct {
	Definition mcptypes.Tool
	Handler    Handler
	// RequiresApproval parks calls until the user confirms them.
	RequiresApproval bool
}

func (t Tool) Name() string {
	return t.Definition.Name
}

// Registry is a set of tools keyed by name, kept in registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// NewDefaultRegistry registers the built-in tools with their configured
// latency and approval settings.
func NewDefaultRegistry(cfg *config.Config) *Registry {
	weather := cfg.Tool(WeatherToolName)

	r := NewRegistry()
	_ = r.Register(NewWeatherTool(weather.Latency.Duration, weather.RequireApproval))
	return r
}

func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions returns the MCP definitions of all tools, for providers.
func (r *Registry) Definitions() []mcptypes.Tool {
	list := r.List()
	defs := make([]mcptypes.Tool, len(list))
	for i, t := range list {
		defs[i] = t.Definition
	}
	return defs
}

func (r *Registry) RequiresApproval(name string) bool {
	t, ok := r.Get(name)
	return ok && t.RequiresApproval
}

// Execute runs a tool with raw JSON arguments as produced by a model and
// returns the JSON-encoded result. Empty arguments mean no arguments.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (json.RawMessage, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}

	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Tools] executing %s with %s", name, argsJSON)
	}

	result, err := t.Handler(ctx, args)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Tools] %s failed: %v", name, err)
		}
		return nil, err
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result: %w", name, err)
	}
	return out, nil
}
