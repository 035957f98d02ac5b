package authprov

import (
	"fmt"
	"sync"
)

// Registry is the catalog of known authentication providers. It is built at
// startup and passed explicitly to the components that consume it.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Descriptor
	order     []string
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*Descriptor),
	}
}

// Register adds a provider descriptor to the catalog
func (r *Registry) Register(d *Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("provider id is required")
	}
	if len(d.Profiles) == 0 {
		return fmt.Errorf("provider %q declares no credential profiles", d.ID)
	}
	for _, profile := range d.Profiles {
		for _, prop := range profile.Parameters {
			if prop.Identifying && prop.Encryption == EncryptionHash {
				return fmt.Errorf("provider %q: hash encryption can't be used in identifying credentials (%s)", d.ID, prop.ID)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[d.ID]; exists {
		return fmt.Errorf("provider %q is already registered", d.ID)
	}
	r.providers[d.ID] = d
	r.order = append(r.order, d.ID)
	return nil
}

// Provider returns the descriptor with the given id
func (r *Registry) Provider(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.providers[id]
	return d, ok
}

// Providers returns all descriptors in registration order
func (r *Registry) Providers() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.providers[id])
	}
	return result
}
