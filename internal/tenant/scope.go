// Package tenant derives the data-access scope for an authenticated
// principal. Every storage method touching tenant-owned collections takes a
// Scope; handlers never build ad-hoc filters themselves.
package tenant

import (
	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
)

// Principal is the minimal identity the resolver needs. Both JWT claims and
// full user records satisfy it.
type Principal struct {
	ID            uuid.UUID
	Role          models.Role
	MainAccountID *uuid.UUID
	BranchID      *uuid.UUID
}

// Scope identifies the effective billing owner and optional branch
// restriction for a request.
type Scope struct {
	// TenantID is the subscriber account owning the data.
	TenantID uuid.UUID
	// BranchID restricts queries to one branch. Nil means tenant-wide.
	BranchID *uuid.UUID
	// Role is the principal's role, for capability checks downstream.
	Role models.Role
}

// Resolve maps a principal to its scope. A sub-account resolves to its
// tenant's ID; a subscriber resolves to itself.
func Resolve(p Principal) Scope {
	s := Scope{
		TenantID: p.ID,
		BranchID: p.BranchID,
		Role:     p.Role,
	}
	if p.MainAccountID != nil {
		s.TenantID = *p.MainAccountID
	}
	return s
}

// BranchScoped reports whether the scope is pinned to a single branch.
func (s Scope) BranchScoped() bool {
	return s.BranchID != nil
}

// WithBranch returns a copy of the scope pinned to the given branch. A scope
// that is already branch-pinned keeps its pin; sub-accounts cannot widen
// their own scope.
func (s Scope) WithBranch(branchID uuid.UUID) Scope {
	if s.BranchID != nil {
		return s
	}
	out := s
	out.BranchID = &branchID
	return out
}
