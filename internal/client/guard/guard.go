// Package guard gates protected views on the presence, freshness and
// privileges of the current session. It performs no network calls.
package guard

import (
	"time"

	"eraiiz/internal/shared/models"
)

// Decision is the outcome of a guard check.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectUnauthorized
)

// Redirect returns the navigation target for a non-Allow decision.
func (d Decision) Redirect() string {
	switch d {
	case RedirectLogin:
		return "/login"
	case RedirectUnauthorized:
		return "/unauthorized"
	}
	return ""
}

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect:/login"
	case RedirectUnauthorized:
		return "redirect:/unauthorized"
	}
	return "unknown"
}

// SessionSource is the session store surface the guard reads.
type SessionSource interface {
	User() (models.User, bool)
	ExpiresAt() (time.Time, bool)
}

// rolePermissions is the client-side capability table. The server enforces
// the real rules; this only decides what to render.
var rolePermissions = map[models.Role]map[string]bool{
	models.RoleBuyer: {
		"orders.read":     true,
		"cart.write":      true,
		"favorites.write": true,
	},
	models.RoleSeller: {
		"orders.read":    true,
		"orders.update":  true,
		"products.write": true,
	},
	models.RoleAdmin: {
		"*": true,
	},
	// pending users may only reach the role-selection flow
	models.RolePending: {},
}

// HasPermission reports whether role grants perm.
func HasPermission(role models.Role, perm string) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms["*"] || perms[perm]
}

type Guard struct {
	sessions SessionSource
}

func New(sessions SessionSource) *Guard {
	return &Guard{sessions: sessions}
}

// Check evaluates the session against an optional required role and a set
// of required permissions. Any panic during evaluation fails closed to
// RedirectLogin.
func (g *Guard) Check(requiredRole models.Role, requiredPerms ...string) (d Decision) {
	defer func() {
		if recover() != nil {
			d = RedirectLogin
		}
	}()

	user, ok := g.sessions.User()
	if !ok {
		return RedirectLogin
	}
	if exp, ok := g.sessions.ExpiresAt(); ok && time.Now().After(exp) {
		return RedirectLogin
	}
	if requiredRole != "" && user.Role != requiredRole {
		return RedirectUnauthorized
	}
	for _, perm := range requiredPerms {
		if !HasPermission(user.Role, perm) {
			return RedirectUnauthorized
		}
	}
	return Allow
}
