// Package registry keeps the set of configured remote sites.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

// Registry holds every configured site, real or virtual. The site id
// is the normalized origin URL and is the durable join key.
type Registry struct {
	factory ports.ClientFactory
	logger  *slog.Logger

	mu    sync.Mutex
	sites []domain.Site
}

// New builds an empty registry.
func New(factory ports.ClientFactory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{factory: factory, logger: logger}
}

// Seed loads a previously persisted site list without probing.
func (r *Registry) Seed(sites []domain.Site) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites = append([]domain.Site(nil), sites...)
}

// Add registers a site. A real site must answer the identity probe
// before it is accepted; its stats are captured from the remote totals
// on the way in. A virtual site is accepted as-is.
func (r *Registry) Add(ctx context.Context, rawURL string, creds *domain.Credentials, virtual bool) (domain.Site, error) {
	origin, err := domain.NormalizeOrigin(rawURL)
	if err != nil {
		return domain.Site{}, err
	}

	r.mu.Lock()
	for _, existing := range r.sites {
		if existing.ID == origin {
			r.mu.Unlock()
			return domain.Site{}, &domain.ValidationError{Reason: fmt.Sprintf("site %s is already registered", origin)}
		}
	}
	r.mu.Unlock()

	site := domain.Site{
		ID:        origin,
		URL:       rawURL,
		IsVirtual: virtual,
	}

	if virtual {
		site.Name = origin
	} else {
		if creds == nil {
			return domain.Site{}, &domain.ValidationError{Reason: "a real site requires credentials"}
		}
		site.Credentials = creds

		client, err := r.factory.ClientFor(site)
		if err != nil {
			return domain.Site{}, err
		}

		name, err := client.Probe(ctx)
		if err != nil {
			return domain.Site{}, fmt.Errorf("probe %s: %w", origin, err)
		}
		site.Name = name

		stats, err := client.FetchStats(ctx)
		if err != nil {
			// Stats are cosmetic; a probe-clean site is still accepted.
			r.logger.Warn("could not read site stats", "site", origin, "error", err)
		} else {
			site.Stats = stats
		}
	}

	r.mu.Lock()
	r.sites = append(r.sites, site)
	r.mu.Unlock()

	r.logger.Info("site registered", "site", origin, "virtual", virtual)
	return site, nil
}

// Remove deletes a site by id and returns it. The caller is expected
// to re-run reconciliation afterwards.
func (r *Registry) Remove(id string) (domain.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, site := range r.sites {
		if site.ID == id {
			r.sites = append(r.sites[:i], r.sites[i+1:]...)
			return site, nil
		}
	}
	return domain.Site{}, &domain.ValidationError{Reason: fmt.Sprintf("site %s is not registered", id)}
}

// Get returns a site by id.
func (r *Registry) Get(id string) (domain.Site, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, site := range r.sites {
		if site.ID == id {
			return site, true
		}
	}
	return domain.Site{}, false
}

// List returns a copy of the registered sites.
func (r *Registry) List() []domain.Site {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Site(nil), r.sites...)
}

// UpdateStats overwrites the cached stats for one site.
func (r *Registry) UpdateStats(id string, stats domain.SiteStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.sites {
		if r.sites[i].ID == id {
			r.sites[i].Stats = stats
			return
		}
	}
}
