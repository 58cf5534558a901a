package reservation

import (
	"sync"

	"github.com/google/uuid"
)

// Registry keeps the open booking dialogs by id. Each dialog gets its own
// Coordinator built from the shared options.
type Registry struct {
	api         BookingAPI
	credentials Credentials
	opts        []CoordinatorOption

	mu           sync.RWMutex
	coordinators map[string]*Coordinator
}

func NewRegistry(api BookingAPI, credentials Credentials, opts ...CoordinatorOption) *Registry {
	return &Registry{
		api:          api,
		credentials:  credentials,
		opts:         opts,
		coordinators: make(map[string]*Coordinator),
	}
}

// Open starts a booking dialog for a service at a shop.
func (r *Registry) Open(shopID, serviceID string) (string, *Coordinator) {
	id := uuid.NewString()
	c := NewCoordinator(r.api, r.credentials, shopID, serviceID, r.opts...)

	r.mu.Lock()
	r.coordinators[id] = c
	r.mu.Unlock()
	return id, c
}

func (r *Registry) Get(id string) (*Coordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.coordinators[id]
	return c, ok
}

// Close dismisses the dialog and forgets it. It reports whether id was open.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	c, ok := r.coordinators[id]
	delete(r.coordinators, id)
	r.mu.Unlock()

	if ok {
		c.Close()
	}
	return ok
}

// CloseAll dismisses every open dialog, used on logout and shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	open := r.coordinators
	r.coordinators = make(map[string]*Coordinator)
	r.mu.Unlock()

	for _, c := range open {
		c.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.coordinators)
}
