// Package authadapter provides a reference, in-memory implementation of
// domain.Authentication for tests and single-process deployments. A real
// deployment is expected to bridge this boundary to its own identity and
// authorization system instead.
//
// Grounded on the teacher's internal/domain/workspace.go UserWorkspace /
// Role model (a flat user-to-workspace row carrying a role string),
// generalized here to an arbitrary (principal, object) -> permission-set
// grant table, since subscriptions are not scoped to a single workspace
// concept the way the teacher's emails are.
package authadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/nti-labs/webhooks/internal/domain"
)

const (
	PermissionView   = "view"
	PermissionDelete = "delete"
)

type grantKey struct {
	principalID string
	objectID    string
}

// MemoryAuthentication is a sync.RWMutex-guarded in-memory Authentication.
type MemoryAuthentication struct {
	mu          sync.RWMutex
	principals  map[string]domain.Principal
	permissions map[string]domain.Permission
	grants      map[grantKey]map[string]bool
}

// NewMemoryAuthentication constructs an empty MemoryAuthentication, with
// the well-known "view" and "delete" permissions pre-registered.
func NewMemoryAuthentication() *MemoryAuthentication {
	a := &MemoryAuthentication{
		principals:  make(map[string]domain.Principal),
		permissions: make(map[string]domain.Permission),
		grants:      make(map[grantKey]map[string]bool),
	}
	a.permissions[PermissionView] = domain.Permission{ID: PermissionView}
	a.permissions[PermissionDelete] = domain.Permission{ID: PermissionDelete}
	return a
}

// RegisterPrincipal makes id/name resolvable via GetPrincipal.
func (a *MemoryAuthentication) RegisterPrincipal(id, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.principals[id] = domain.Principal{ID: id, Name: name}
}

// RegisterPermission makes id resolvable via GetPermission.
func (a *MemoryAuthentication) RegisterPermission(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.permissions[id] = domain.Permission{ID: id}
}

// Grant records that principalID holds permissionID on objectID.
func (a *MemoryAuthentication) Grant(principalID, objectID, permissionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := grantKey{principalID: principalID, objectID: objectID}
	if a.grants[key] == nil {
		a.grants[key] = make(map[string]bool)
	}
	a.grants[key][permissionID] = true
}

// Revoke removes a previously recorded grant, if any.
func (a *MemoryAuthentication) Revoke(principalID, objectID, permissionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := grantKey{principalID: principalID, objectID: objectID}
	delete(a.grants[key], permissionID)
}

func (a *MemoryAuthentication) GetPrincipal(ctx context.Context, id string) (domain.Principal, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.principals[id]
	return p, ok
}

func (a *MemoryAuthentication) UnauthenticatedPrincipal() domain.Principal {
	return domain.Principal{ID: "", Name: "unauthenticated"}
}

func (a *MemoryAuthentication) GetPermission(ctx context.Context, id string) (domain.Permission, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.permissions[id]
	return p, ok
}

// CheckPermission reports whether principal holds permission on the object
// identified by data, resolved via objectKey.
func (a *MemoryAuthentication) CheckPermission(ctx context.Context, principal domain.Principal, permission domain.Permission, data any) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	key := grantKey{principalID: principal.ID, objectID: objectKey(data)}
	return a.grants[key][permission.ID]
}

// GrantDefaultSubscriptionAccess grants ownerID view and delete permissions
// on subscriptionID, mirroring the original's apply_security_to_subscription
// behavior applied whenever a subscription is created with an explicit
// owner (SPEC_FULL §10).
func (a *MemoryAuthentication) GrantDefaultSubscriptionAccess(ctx context.Context, ownerID, subscriptionID string) error {
	a.Grant(ownerID, subscriptionID, PermissionView)
	a.Grant(ownerID, subscriptionID, PermissionDelete)
	return nil
}

// objectKey extracts a stable identifier for data so it can be used as a
// grant-table key. *domain.Subscription is recognized directly; any other
// value falls back to its fmt.Sprintf("%v") representation.
func objectKey(data any) string {
	switch v := data.(type) {
	case nil:
		return ""
	case *domain.Subscription:
		if v == nil {
			return ""
		}
		return v.ID
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
