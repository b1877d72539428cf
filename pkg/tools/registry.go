// Package tools defines the capability surface the agent can act through.
// Capabilities are typed and resolved once at startup; the agent consults the
// registry to learn what a desire can do and to invoke it.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/llm"
)

// Modality classifies what a capability produces.
type Modality string

const (
	// ModalityText capabilities return textual content.
	ModalityText Modality = "text"
	// ModalityVision capabilities produce or require an image.
	ModalityVision Modality = "vision"
)

// Descriptor advertises one capability.
type Descriptor struct {
	ID          string
	Description string
	Modality    Modality
	InputSchema map[string]any
}

// Result is a capability invocation outcome.
type Result struct {
	Content string
	Image   *llm.Image
}

// Invoker exposes a set of capabilities.
type Invoker interface {
	// ListCapabilities describes the capabilities this invoker serves.
	ListCapabilities(ctx context.Context) ([]Descriptor, error)

	// Invoke runs the named capability.
	Invoke(ctx context.Context, id string, args map[string]any) (*Result, error)
}

// Registry maps capability ids to their invokers. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	descriptors map[string]Descriptor
	invokers    map[string]Invoker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]Descriptor),
		invokers:    make(map[string]Invoker),
	}
}

// Register resolves an invoker's capabilities into the registry. A capability
// id registered twice keeps the first registration.
func (r *Registry) Register(ctx context.Context, inv Invoker) error {
	descriptors, err := inv.ListCapabilities(ctx)
	if err != nil {
		return core.NewAgentError("Register", fmt.Errorf("list capabilities: %w", err))
	}
	for _, d := range descriptors {
		if _, exists := r.descriptors[d.ID]; exists {
			continue
		}
		r.descriptors[d.ID] = d
		r.invokers[d.ID] = inv
	}
	return nil
}

// Has reports whether the capability is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.descriptors[id]
	return ok
}

// Describe returns the descriptor for a capability id.
func (r *Registry) Describe(id string) (Descriptor, bool) {
	d, ok := r.descriptors[id]
	return d, ok
}

// Descriptors returns every registered descriptor in id order.
func (r *Registry) Descriptors() []Descriptor {
	ids := make([]string, 0, len(r.descriptors))
	for id := range r.descriptors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Descriptor, len(ids))
	for i, id := range ids {
		out[i] = r.descriptors[id]
	}
	return out
}

// Invoke runs a registered capability. Unknown ids return ErrNotFound.
func (r *Registry) Invoke(ctx context.Context, id string, args map[string]any) (*Result, error) {
	inv, ok := r.invokers[id]
	if !ok {
		return nil, core.NewAgentError("Invoke",
			fmt.Errorf("capability %q: %w", id, core.ErrNotFound))
	}
	res, err := inv.Invoke(ctx, id, args)
	if err != nil {
		return nil, core.NewAgentError("Invoke",
			fmt.Errorf("capability %q: %v: %w", id, err, core.ErrCollaborator))
	}
	return res, nil
}
