// Package authz implements the per-request permission predicates that gate
// every resource operation. Predicates are pure functions over the caller,
// the action, and the target's owner; they return a tagged Decision so that
// "no credentials" (401) and "authenticated but lacking rights" (403) stay
// distinguishable all the way to the response.
package authz

import (
	"chronicle/internal/models"

	"github.com/google/uuid"
)

// Decision is the outcome of evaluating a predicate.
type Decision int

const (
	// Allowed lets the operation proceed.
	Allowed Decision = iota
	// Forbidden denies an authenticated caller.
	Forbidden
	// Unauthenticated denies an anonymous (or invalid-credential) caller.
	Unauthenticated
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Forbidden:
		return "forbidden"
	case Unauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Action identifies the controller operation being authorized.
type Action int

const (
	ActionList Action = iota
	ActionCreate
	ActionRetrieve
	ActionUpdate
	ActionDestroy
)

// Safe reports whether the action is read-only.
func (a Action) Safe() bool {
	return a == ActionList || a == ActionRetrieve
}

// Caller is the identity making the current request. A nil User means the
// request carried no valid credentials.
type Caller struct {
	User *models.User
}

// Anonymous reports whether the caller carried no valid credentials.
func (c Caller) Anonymous() bool {
	return c.User == nil
}

// Staff reports whether the caller is an admin (is_staff).
func (c Caller) Staff() bool {
	return c.User != nil && c.User.IsStaff
}

// ID returns the caller's user id, or uuid.Nil for anonymous callers.
func (c Caller) ID() uuid.UUID {
	if c.User == nil {
		return uuid.Nil
	}
	return c.User.ID
}

// deny maps a predicate failure to the correct denial variant for the caller.
func deny(c Caller) Decision {
	if c.Anonymous() {
		return Unauthenticated
	}
	return Forbidden
}

// Predicate decides whether an (action, caller, owner) triple may proceed.
// owner is the target object's owning user id; predicates that ignore the
// target accept uuid.Nil.
type Predicate func(c Caller, action Action, owner uuid.UUID) Decision

// AllowAny always passes.
func AllowAny(Caller, Action, uuid.UUID) Decision {
	return Allowed
}

// IsAuthenticated passes iff the caller is a recognized identity.
func IsAuthenticated(c Caller, _ Action, _ uuid.UUID) Decision {
	if c.Anonymous() {
		return Unauthenticated
	}
	return Allowed
}

// IsAdminUser passes iff the caller is staff.
func IsAdminUser(c Caller, _ Action, _ uuid.UUID) Decision {
	if c.Staff() {
		return Allowed
	}
	return deny(c)
}

// IsAdminOrReadOnly always passes safe methods; unsafe methods require staff.
func IsAdminOrReadOnly(c Caller, action Action, _ uuid.UUID) Decision {
	if action.Safe() {
		return Allowed
	}
	if c.Staff() {
		return Allowed
	}
	return deny(c)
}

// IsOwnerOrReadOnly always passes safe methods; unsafe methods require the
// caller to be the target's owner.
func IsOwnerOrReadOnly(c Caller, action Action, owner uuid.UUID) Decision {
	if action.Safe() {
		return Allowed
	}
	if !c.Anonymous() && c.ID() == owner {
		return Allowed
	}
	return deny(c)
}

// IsUserSelf always passes safe methods; unsafe methods require the caller
// to be the target user itself.
func IsUserSelf(c Caller, action Action, owner uuid.UUID) Decision {
	if action.Safe() {
		return Allowed
	}
	if !c.Anonymous() && c.ID() == owner {
		return Allowed
	}
	return deny(c)
}

// IsUserSelfOrAdmin passes iff the caller is the target's owner or staff,
// for safe and unsafe methods alike.
func IsUserSelfOrAdmin(c Caller, _ Action, owner uuid.UUID) Decision {
	if c.Staff() {
		return Allowed
	}
	if !c.Anonymous() && c.ID() == owner {
		return Allowed
	}
	return deny(c)
}

// All composes predicates; every one must allow. The first non-allow decision
// wins, so Unauthenticated from an anonymous caller is never weakened to
// Forbidden by a later predicate.
func All(preds ...Predicate) Predicate {
	return func(c Caller, action Action, owner uuid.UUID) Decision {
		for _, p := range preds {
			if d := p(c, action, owner); d != Allowed {
				return d
			}
		}
		return Allowed
	}
}

// Err converts a denial to the matching AppError. Calling Err on Allowed is
// a programming error and returns nil.
func Err(d Decision) *models.AppError {
	switch d {
	case Forbidden:
		return models.NewForbiddenError("You do not have permission to perform this action")
	case Unauthenticated:
		return models.NewUnauthorizedError("Authentication credentials were not provided")
	}
	return nil
}
