package scanner

import (
	"fmt"

	"github.com/alekseyt9/pubcrawler/internal/domain"
)

// Portal captures a single portal-parsing strategy (Pure Portal, etc.).
// All methods operate on already-rendered HTML; fetching is the page
// source's job.
type Portal interface {
	Name() string

	// Extract returns every publication entry found on a listing page.
	// Malformed entries are skipped, never failing the whole page.
	Extract(html string, pageNumber int) ([]domain.Publication, error)

	// NextPageURL returns the absolute URL of the next listing page, or
	// "" when the pagination is exhausted.
	NextPageURL(html, currentURL string) string

	// Validate reports whether the HTML looks like a listing page at all.
	Validate(html string) bool

	// ParseDetail enriches a record with data from its detail page. On
	// any failure the base record is returned unchanged.
	ParseDetail(html string, base domain.Publication) domain.Publication
}

// Registry keeps a mapping from portal names to their implementations.
type Registry struct {
	portals map[string]Portal
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{portals: map[string]Portal{}}
}

// Register adds or replaces a portal implementation.
func (r *Registry) Register(portal Portal) {
	if r.portals == nil {
		r.portals = map[string]Portal{}
	}
	r.portals[portal.Name()] = portal
}

// Resolve returns a portal by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Portal, error) {
	if portal, ok := r.portals[name]; ok {
		return portal, nil
	}
	return nil, fmt.Errorf("portal %s is not registered", name)
}
