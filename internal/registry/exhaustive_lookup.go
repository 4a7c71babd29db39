package registry

// ExhaustiveLookup walks the entire site tree rooted at rootSiteID, visiting
// every registered descendant (not just ancestors, as ManagersUpTree does)
// and returning each site's SubscriptionManager. It rebuilds a child index
// from the registry's parent map on every call rather than maintaining one
// incrementally, so it is O(n) in the number of registered sites — deliberately
// expensive, for the rare case where the fast lineage walk up from a single
// site isn't enough and every manager under a subtree must be inspected (for
// example, auditing every subscription manager under a tenant root before
// tearing it down). It is not wired into SubscriptionsToDeliver or any other
// default lookup path; callers opt in explicitly.
//
// Grounded on original_source/src/nti/webhooks/subscribers.py's
// ExhaustiveWebhookSubscriptionManagers, which the original documents as "not
// registered by default" and reserved for callers that need to adapt the
// object root to ISublocations and recurse through every sublocation looking
// for a subscription manager. This reimplements that fallback over the
// registry's explicit parent-site map instead of sublocation adaptation.
func (r *Registry) ExhaustiveLookup(rootSiteID string) []*SubscriptionManager {
	r.mu.RLock()
	defer r.mu.RUnlock()

	children := make(map[string][]string, len(r.parent))
	for siteID, parentID := range r.parent {
		children[parentID] = append(children[parentID], siteID)
	}

	var found []*SubscriptionManager
	seen := make(map[string]bool)
	var visit func(siteID string)
	visit = func(siteID string) {
		if seen[siteID] {
			return
		}
		seen[siteID] = true
		if m, ok := r.managers[siteID]; ok {
			found = append(found, m)
		}
		for _, childID := range children[siteID] {
			visit(childID)
		}
	}
	visit(rootSiteID)

	return found
}
