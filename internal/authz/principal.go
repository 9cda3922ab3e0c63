package authz

import (
	"errors"

	"github.com/wardenhq/warden/internal/tenancy"
)

// Principal is the authenticated actor an authorization decision is made for.
// Any type exposing an identity key and tenant accessors satisfies it;
// models.User does, and so does the request principal built by the auth
// middleware. A nil Principal means "no authenticated caller" and every
// boolean check treats it as a plain denial.
type Principal = tenancy.Principal

// ErrInvalidPrincipal signals an integration fault: the caller passed a
// principal without an identity key. This is deliberately an error rather
// than a denial so wiring bugs never masquerade as permission denials.
var ErrInvalidPrincipal = errors.New("authz: principal has no identity key")

// checkPrincipal classifies the principal for boolean check APIs:
// absent (unauthenticated, deny), invalid (error), or usable.
func checkPrincipal(p Principal) (ok bool, err error) {
	if p == nil {
		return false, nil
	}
	if p.PrincipalID() == "" {
		return false, ErrInvalidPrincipal
	}
	return true, nil
}
