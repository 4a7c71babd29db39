// Package registry implements the site-scoped subscription registries and
// the scope-walk lookup that dispatches an event up a site's ownership
// chain, replacing the original's "utilities up the object tree"
// (zope.component next-utility resolution) with an explicit parent-site map.
//
// Grounded on original_source/src/nti/webhooks/subscribers.py
// (_find_subscription_managers / _utilities_up_tree): the original walks
// `component.getSiteManager(obj)` outward from the event's object to the
// root site, collecting one GlobalWebhookSubscriptionManager per site along
// the way. SPEC_FULL §9 calls for the same walk, re-architected without
// interface adaptation: here a Registry holds one SubscriptionManager per
// site id plus an explicit parent-site map, and ManagersUpTree walks that map.
package registry

import (
	"context"
	"sync"

	"github.com/nti-labs/webhooks/internal/domain"
)

// Registry owns one SubscriptionManager per site and the site tree used to
// walk from a leaf site up to the root, collecting every manager whose
// subscriptions might apply to an event raised anywhere below it.
type Registry struct {
	repo   domain.SubscriptionRepository
	events domain.EventBus

	mu       sync.RWMutex
	managers map[string]*SubscriptionManager
	parent   map[string]string // siteID -> parent siteID; root sites are absent
}

// NewRegistry constructs an empty Registry. repo and events are shared by
// every SubscriptionManager the registry creates.
func NewRegistry(repo domain.SubscriptionRepository, events domain.EventBus) *Registry {
	return &Registry{
		repo:     repo,
		events:   events,
		managers: make(map[string]*SubscriptionManager),
		parent:   make(map[string]string),
	}
}

// AddSite registers siteID in the tree with the given parent ("" for a
// root site with no parent) and returns its SubscriptionManager, creating
// one if this is the first time siteID has been seen.
func (r *Registry) AddSite(siteID, parentSiteID string) *SubscriptionManager {
	r.mu.Lock()
	defer r.mu.Unlock()

	if parentSiteID != "" {
		r.parent[siteID] = parentSiteID
	}
	if m, ok := r.managers[siteID]; ok {
		return m
	}
	m := NewSubscriptionManager(siteID, r.repo, r.events)
	r.managers[siteID] = m
	return m
}

// ManagerFor returns the SubscriptionManager for siteID, or nil if siteID
// has not been registered via AddSite.
func (r *Registry) ManagerFor(siteID string) *SubscriptionManager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.managers[siteID]
}

// ManagersUpTree returns the chain of SubscriptionManagers starting at
// siteID and walking outward through each registered parent, in leaf-to-
// root order — the Go equivalent of _utilities_up_tree's generator walk.
func (r *Registry) ManagersUpTree(siteID string) []*SubscriptionManager {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []*SubscriptionManager
	seen := make(map[string]bool)
	for siteID != "" && !seen[siteID] {
		seen[siteID] = true
		if m, ok := r.managers[siteID]; ok {
			chain = append(chain, m)
		}
		siteID = r.parent[siteID]
	}
	return chain
}

// SubscriptionsToDeliver walks the site tree from siteID to the root,
// collecting every applicable active subscription for (forType, when)
// across the whole chain — an event raised deep in a site tree is visible
// to subscriptions registered at any ancestor site (spec §4.6).
func (r *Registry) SubscriptionsToDeliver(ctx context.Context, auth domain.Authentication, siteID, forType, when string, data any) []*domain.Subscription {
	var all []*domain.Subscription
	for _, m := range r.ManagersUpTree(siteID) {
		all = append(all, m.SubscriptionsToDeliver(ctx, auth, forType, when, data)...)
	}
	return all
}
