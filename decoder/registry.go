package decoder

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("decoder already registered")
	// ErrUnknown is returned when a requested name is not registered.
	ErrUnknown = errors.New("unknown decoder")
)

// Registry maps decoder names to implementations. It is built once at
// startup and treated as read-only while a run is in progress.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register adds d under d.Name().
func (r *Registry) Register(d Decoder) error {
	if d == nil {
		return fmt.Errorf("register: nil decoder")
	}

	name := d.Name()
	if name == "" {
		return fmt.Errorf("register: decoder has empty name")
	}

	if _, ok := r.decoders[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrDuplicate)
	}

	r.decoders[name] = d

	return nil
}

// Get returns the decoder registered under name.
func (r *Registry) Get(name string) (Decoder, bool) {
	d, ok := r.decoders[name]

	return d, ok
}

// Len returns the number of registered decoders.
func (r *Registry) Len() int {
	return len(r.decoders)
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.decoders))
	for name := range r.decoders {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Select resolves names to decoders, preserving the requested order and
// dropping repeats. An empty selection means every registered decoder in
// name order.
func (r *Registry) Select(names []string) ([]Decoder, error) {
	if len(names) == 0 {
		names = r.Names()
	}

	selected := make([]Decoder, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		if seen[name] {
			continue
		}

		d, ok := r.decoders[name]
		if !ok {
			return nil, fmt.Errorf("%w %q (available: %v)",
				ErrUnknown, name, r.Names())
		}

		seen[name] = true
		selected = append(selected, d)
	}

	return selected, nil
}
