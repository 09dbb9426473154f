package service

import (
	"sort"
	"strings"
)

// Registry maps service names to client constructors and their waiters
type Registry struct {
	services map[string]Service
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]Service),
	}
}

// Register adds or replaces a service entry
func (r *Registry) Register(svc Service) {
	waiters := make(map[string]WaiterFactory, len(svc.Waiters))
	for name, factory := range svc.Waiters {
		waiters[CanonicalName(name)] = factory
	}
	svc.Waiters = waiters
	r.services[normalizeServiceName(svc.Name)] = svc
}

// Lookup returns the entry for a service name
func (r *Registry) Lookup(name string) (Service, bool) {
	svc, ok := r.services[normalizeServiceName(name)]
	return svc, ok
}

// Names returns all registered service names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupWaiter finds a waiter by canonical name, falling back to a
// case-insensitive match for acronyms
func (s Service) lookupWaiter(name string) (WaiterFactory, bool) {
	if factory, ok := s.Waiters[CanonicalName(name)]; ok {
		return factory, true
	}
	for candidate, factory := range s.Waiters {
		if MatchName(name, candidate) {
			return factory, true
		}
	}
	return nil, false
}

func normalizeServiceName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
