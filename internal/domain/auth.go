package domain

//go:generate mockgen -destination mocks/mock_authentication.go -package mocks github.com/nti-labs/webhooks/internal/domain Authentication

import "context"

// contextKey namespaces values stored on a request context so they don't
// collide with keys set by other packages.
type contextKey string

// PrincipalIDKey is where http/middleware stores the authenticated
// principal's id after verifying a request's bearer token.
const PrincipalIDKey contextKey = "principal_id"

// Principal identifies an authenticated actor: a user, service account, or
// the distinguished unauthenticated principal.
type Principal struct {
	ID   string
	Name string
}

// Permission identifies a named capability checked against a principal and
// a piece of data, e.g. "view", "delete".
type Permission struct {
	ID string
}

// Authentication is the authentication/permission boundary (spec §6): the
// core never assumes how principals or permissions are stored, only that
// they can be looked up by id and checked against a (principal, data) pair.
type Authentication interface {
	GetPrincipal(ctx context.Context, id string) (Principal, bool)
	UnauthenticatedPrincipal() Principal
	GetPermission(ctx context.Context, id string) (Permission, bool)
	CheckPermission(ctx context.Context, principal Principal, permission Permission, data any) bool

	// GrantDefaultSubscriptionAccess grants the subscription's owner
	// view/delete permissions on the subscription itself when it's created,
	// mirroring the original's apply_security_to_subscription extension
	// point (see SPEC_FULL §10).
	GrantDefaultSubscriptionAccess(ctx context.Context, ownerID, subscriptionID string) error
}
