package auth

import (
	"slices"
	"time"
)

// Roles understood by the checkout service.
const (
	RoleCustomer = "customer"
	RoleSupport  = "support"
	RoleAdmin    = "admin"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Roles  []string
}

// HasRole reports whether the principal holds any of the roles.
func (p Principal) HasRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(p.Roles, r) {
			return true
		}
	}
	return false
}

type Strategy interface {
	IssueToken(p Principal) (string, error)
	ParseToken(token string) (Principal, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
