package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/confshare/confshare-go/types"
)

// Request carries per-item knobs passed through to estimators and collectors.
// Items that do not carry a count ignore it.
type Request struct {
	MessageCount int // number of trailing conversation messages to include
}

// EstimateFunc returns the expected raw byte contribution of an item,
// including its structural JSON overhead. It must be side-effect-free.
type EstimateFunc func(ctx context.Context, req Request) (int, error)

// CollectFunc returns the actual value to embed in the payload.
// ok=false means the item currently has nothing to contribute; the field is
// omitted from the payload entirely, not set to null.
type CollectFunc func(ctx context.Context, req Request) (value any, ok bool, err error)

// Descriptor describes one shareable item type. Descriptors are registered
// once at startup and are read-only afterwards.
type Descriptor struct {
	ID             string
	Label          string
	DefaultChecked bool
	Sensitive      bool
	EstimateSize   EstimateFunc
	CollectData    CollectFunc

	// AvailableCount, when set, reports how much data is actually available
	// for count-carrying items so the composer can clamp the request.
	AvailableCount func() int
}

// DuplicateItemError reports a second registration of the same item id.
// Registration happens at startup, so this is a programmer error and callers
// should fail fast on it.
type DuplicateItemError struct {
	ID string
}

func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("share item %q is already registered", e.ID)
}

// Registry is the catalogue of shareable item types. Iteration order is
// registration order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	items map[string]*Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		items: make(map[string]*Descriptor),
	}
}

// Register adds a descriptor. It returns DuplicateItemError if the id is
// already present.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("descriptor must have a non-empty id")
	}
	if d.EstimateSize == nil || d.CollectData == nil {
		return fmt.Errorf("share item %q must provide EstimateSize and CollectData", d.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[d.ID]; exists {
		return &DuplicateItemError{ID: d.ID}
	}
	r.items[d.ID] = d
	r.order = append(r.order, d.ID)
	return nil
}

// Get returns the descriptor for id, if registered.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.items[id]
	return d, ok
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

// Defaults returns the first-run selection state built from each descriptor's
// DefaultChecked flag.
func (r *Registry) Defaults() types.SelectionState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sel := make(types.SelectionState, len(r.order))
	for _, id := range r.order {
		sel[id] = r.items[id].DefaultChecked
	}
	return sel
}
