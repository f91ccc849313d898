package entities

import (
	"fmt"
	"sort"

	"github.com/farmdeck/farmsync/internal/common"
)

// Registry maps an entity tag (e.g. "paddocks") to its Handler.
// It is filled at start-up and read-only afterwards.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// NewDefaultRegistry registers a handler for every Builtin schema.
func NewDefaultRegistry(repos Repositories) *Registry {
	r := NewRegistry()
	for _, s := range Builtin {
		r.Register(NewHandler(s, repos))
	}
	return r
}

// Register adds h under its schema's entity tag, replacing any previous one.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Schema().Entity] = h
}

// Lookup returns the handler for entity or an error wrapping
// common.ErrUnknownEntity.
func (r *Registry) Lookup(entity string) (Handler, error) {
	h, ok := r.handlers[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownEntity, entity)
	}
	return h, nil
}

// Entities returns the registered tags in sorted order.
func (r *Registry) Entities() []string {
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
