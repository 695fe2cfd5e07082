// Package registry holds the static table of capability providers built from
// configuration at startup.
package registry

import (
	"fmt"
	"net/url"
	"sort"
	"time"

	"mcp-agent/internal/config"
)

// Provider is a validated, immutable provider entry with a parsed endpoint.
type Provider struct {
	Name       string
	Endpoint   *url.URL
	Enabled    bool
	Timeout    time.Duration
	MaxRetries int
}

// Registry maps provider names to their validated entries. Immutable after
// construction.
type Registry struct {
	providers map[string]Provider
}

// New builds a Registry from configuration. Duplicate names and endpoints
// that do not parse into an absolute URL are fatal.
func New(providers []config.Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, ok := r.providers[p.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate provider %q", config.ErrConfig, p.Name)
		}
		u, err := url.Parse(p.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: provider %q has malformed endpoint %q", config.ErrConfig, p.Name, p.Endpoint)
		}
		r.providers[p.Name] = Provider{
			Name:       p.Name,
			Endpoint:   u,
			Enabled:    p.Enabled,
			Timeout:    p.Timeout,
			MaxRetries: p.MaxRetries,
		}
	}
	return r, nil
}

// Get returns the provider entry for name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// IsEnabled reports whether a provider exists and is enabled.
func (r *Registry) IsEnabled(name string) bool {
	p, ok := r.providers[name]
	return ok && p.Enabled
}

// Enabled returns the sorted names of all enabled providers.
func (r *Registry) Enabled() []string {
	names := make([]string, 0, len(r.providers))
	for name, p := range r.providers {
		if p.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered providers, enabled or not.
func (r *Registry) Len() int {
	return len(r.providers)
}
