// Package ticket contains the pure business logic for the ticket lifecycle.
// Guards are pure functions that evaluate preconditions without side effects.
package ticket

import (
	"fmt"
	"time"
)

// Validity windows for interactive controls. Component custom IDs carry
// their issue time, so these survive process restarts.
const (
	// MenuValidity is how long a category-selection menu stays usable.
	MenuValidity = 5 * time.Minute
	// RatingValidity is how long a close-time rating control stays usable.
	RatingValidity = 24 * time.Hour
)

// Rating bounds for the close-time rating control.
const (
	MinRating = 1
	MaxRating = 5
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // Human-readable reason (populated when not allowed)
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// ClaimContext provides the context for claim guards.
type ClaimContext struct {
	ActorRoles    []string
	StaffRoles    []string
	CategoryRoles []string // claim allow-list for the ticket's category; empty means any staff
	Closed        bool
}

// CanClaim evaluates whether the actor may claim the ticket.
// Rules: actor must hold a staff role; when the category carries an
// allow-list, the actor must hold one of those roles; closed tickets
// cannot be claimed. Re-claiming an already-claimed open ticket is allowed.
func CanClaim(ctx ClaimContext) GuardResult {
	if ctx.Closed {
		return GuardResult{Allowed: false, Reason: "this ticket is already closed"}
	}
	if !hasAny(ctx.ActorRoles, ctx.StaffRoles) {
		return GuardResult{Allowed: false, Reason: "you are not staff"}
	}
	if len(ctx.CategoryRoles) > 0 && !hasAny(ctx.ActorRoles, ctx.CategoryRoles) {
		return GuardResult{Allowed: false, Reason: "your role cannot claim this category"}
	}
	return GuardResult{Allowed: true}
}

// OwnerContext provides the context for owner-only transition guards
// (transfer and close).
type OwnerContext struct {
	ActorID    string
	ActorRoles []string
	StaffRoles []string
	ClaimedBy  string // empty when the ticket is unclaimed
	Closed     bool
}

// CanTransfer evaluates whether the actor may transfer the ticket.
// Rules: ticket must be open and claimed; only the current owner may
// transfer it.
func CanTransfer(ctx OwnerContext) GuardResult {
	return ownerOnly(ctx, "transfer")
}

// CanClose evaluates whether the actor may close the ticket.
// Rules: ticket must be open and claimed; only the current owner may
// close it. Closing an already-closed ticket is rejected, which keeps the
// owner's closed counter from double-incrementing.
func CanClose(ctx OwnerContext) GuardResult {
	return ownerOnly(ctx, "close")
}

func ownerOnly(ctx OwnerContext, action string) GuardResult {
	if !hasAny(ctx.ActorRoles, ctx.StaffRoles) {
		return GuardResult{Allowed: false, Reason: "you are not staff"}
	}
	if ctx.Closed {
		return GuardResult{Allowed: false, Reason: "this ticket is already closed"}
	}
	if ctx.ClaimedBy == "" {
		return GuardResult{Allowed: false, Reason: "the ticket must be claimed first"}
	}
	if ctx.ActorID != ctx.ClaimedBy {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("only the current owner can %s this ticket", action)}
	}
	return GuardResult{Allowed: true}
}

// RatingContext provides the context for rating submission guards.
type RatingContext struct {
	ActorID     string
	RequesterID string
	ClaimedBy   string
	Rating      int
	IssuedAt    time.Time // when the rating control was delivered
	Now         time.Time
}

// CanSubmitRating evaluates whether the actor may submit a rating.
// Rules: only the original requester may rate; the ticket must have had an
// owner; the score must be within bounds; the control expires after
// RatingValidity.
func CanSubmitRating(ctx RatingContext) GuardResult {
	if ctx.ActorID != ctx.RequesterID {
		return GuardResult{Allowed: false, Reason: "only the ticket requester can rate"}
	}
	if ctx.ClaimedBy == "" {
		return GuardResult{Allowed: false, Reason: "this ticket was never claimed"}
	}
	if ctx.Rating < MinRating || ctx.Rating > MaxRating {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating)}
	}
	if ctx.Now.Sub(ctx.IssuedAt) > RatingValidity {
		return GuardResult{Allowed: false, Reason: "this rating control has expired"}
	}
	return GuardResult{Allowed: true}
}

// MenuSelectContext provides the context for category-selection guards.
type MenuSelectContext struct {
	ActorID    string
	MenuUserID string // the user the menu was issued to
	IssuedAt   time.Time
	Now        time.Time
}

// CanSelectCategory evaluates whether the actor may use a category menu.
// Rules: the menu is bound to the user it was sent to and expires after
// MenuValidity.
func CanSelectCategory(ctx MenuSelectContext) GuardResult {
	if ctx.ActorID != ctx.MenuUserID {
		return GuardResult{Allowed: false, Reason: "this menu is not yours"}
	}
	if ctx.Now.Sub(ctx.IssuedAt) > MenuValidity {
		return GuardResult{Allowed: false, Reason: "this menu has expired, send a new message"}
	}
	return GuardResult{Allowed: true}
}

func hasAny(roles, allowed []string) bool {
	for _, r := range roles {
		for _, a := range allowed {
			if r == a {
				return true
			}
		}
	}
	return false
}
