package auth

import (
	"github.com/akulinin/mediascore/internal/models"
	"github.com/gofiber/fiber/v2"
)

// Deny is a rejected authorization decision: 401 for anonymous callers,
// 403 for authenticated callers without the required role or ownership.
type Deny struct {
	Status int
	Detail string
}

const (
	detailNotAuthenticated = "Authentication credentials were not provided."
	detailForbidden        = "You do not have permission to perform this action."
)

func denyFor(user *models.User) *Deny {
	if user == nil {
		return &Deny{Status: fiber.StatusUnauthorized, Detail: detailNotAuthenticated}
	}
	return &Deny{Status: fiber.StatusForbidden, Detail: detailForbidden}
}

// ReadOnlyOrAdmin permits safe (read-only) requests for everyone and
// unsafe requests for admins only.
func ReadOnlyOrAdmin(user *models.User, safe bool) *Deny {
	if safe {
		return nil
	}
	if user != nil && user.IsAdmin() {
		return nil
	}
	return denyFor(user)
}

// AdminOnly permits any request method, but only for admins.
func AdminOnly(user *models.User) *Deny {
	if user != nil && user.IsAdmin() {
		return nil
	}
	return denyFor(user)
}

// ReadOnlyOrAuthenticated permits safe requests for everyone and unsafe
// requests for any authenticated caller. Object-level ownership is checked
// separately with CanModifyObject.
func ReadOnlyOrAuthenticated(user *models.User, safe bool) *Deny {
	if safe {
		return nil
	}
	if user != nil {
		return nil
	}
	return denyFor(user)
}

// CanModifyObject is the object-level rule for reviews and comments:
// the author, a moderator, or an admin may mutate.
func CanModifyObject(user *models.User, authorID uint) *Deny {
	if user == nil {
		return denyFor(user)
	}
	if user.ID == authorID || user.IsModerator() || user.IsAdmin() {
		return nil
	}
	return denyFor(user)
}

// Authenticated permits any signed-in caller, regardless of role.
func Authenticated(user *models.User) *Deny {
	if user != nil {
		return nil
	}
	return denyFor(user)
}
