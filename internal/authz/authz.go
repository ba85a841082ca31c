// Package authz is the single tenant-isolation gate. Every data-access path
// that touches per-user records composes one Authorize call instead of
// scattering ownership predicates through queries.
package authz

import "github.com/clearpath-coaching/hugoctx/internal/domain"

// Authorizer answers "may this caller read records owned by ownerID".
type Authorizer interface {
	Authorize(caller domain.Caller, ownerID string) error
}

// OwnerAuthorizer grants access only to the caller's own records.
type OwnerAuthorizer struct{}

func NewOwnerAuthorizer() OwnerAuthorizer {
	return OwnerAuthorizer{}
}

// Authorize fails closed: anonymous callers are unauthorized, authenticated
// callers may only touch their own rows.
func (OwnerAuthorizer) Authorize(caller domain.Caller, ownerID string) error {
	if caller.IsAnonymous() {
		return domain.ErrUnauthorized
	}
	if ownerID == "" || caller.UserID != ownerID {
		return domain.ErrCrossTenantRead
	}
	return nil
}
