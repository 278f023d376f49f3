package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles. A session carries the role the
// user had at login; it does not change for the life of the session.
type Role string

const (
	RoleRoot           Role = "ROOT"
	RoleGeneralManager Role = "GENERAL_MANAGER"
	RoleManager        Role = "MANAGER"
	RoleCustomer       Role = "CUSTOMER"
	RoleWaiter         Role = "WAITER"
	RoleCook           Role = "COOK"
	RoleBarman         Role = "BARMAN"
	RoleCashRegister   Role = "CASH_REGISTER"
)

var allRoles = []Role{
	RoleRoot,
	RoleGeneralManager,
	RoleManager,
	RoleCustomer,
	RoleWaiter,
	RoleCook,
	RoleBarman,
	RoleCashRegister,
}

// Roles returns every known role in declaration order.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole accepts role names case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", Invalid("parse role", fmt.Sprintf("unknown role %q", s))
	}
	return r, nil
}

// RoleSet is the set of roles allowed through a route. An empty set admits
// any authenticated identity.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Allows reports whether r may pass.
func (s RoleSet) Allows(r Role) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[r]
	return ok
}
