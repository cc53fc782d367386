package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles. Subscribers are top-level tenant
// accounts; every other business role is a sub-account under a subscriber.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSubscriber Role = "subscriber"
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleEmployee   Role = "employee"
	RoleCashier    Role = "cashier"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSubscriber, RoleOwner, RoleManager, RoleEmployee, RoleCashier:
		return true
	}
	return false
}

// IsSubAccount reports whether the role only exists under a tenant.
func (r Role) IsSubAccount() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEmployee, RoleCashier:
		return true
	}
	return false
}

// User represents a platform account. A subscriber row is a tenant and
// carries the embedded subscription record; sub-account rows point at their
// tenant via MainAccountID and are optionally pinned to one branch.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Email     string `json:"email" db:"email"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	Phone     string `json:"phone,omitempty" db:"phone"`

	PasswordHash string `json:"-" db:"password_hash"`

	Role     Role `json:"role" db:"role"`
	IsActive bool `json:"isActive" db:"is_active"`

	// MainAccountID links a sub-account to its tenant. Nil on subscriber
	// and admin rows.
	MainAccountID *uuid.UUID `json:"mainAccountId,omitempty" db:"main_account_id"`
	// BranchID pins a sub-account to a single branch. Nil means
	// tenant-wide access.
	BranchID *uuid.UUID `json:"branchId,omitempty" db:"branch_id"`

	// Subscription is stored only on subscriber rows.
	Subscription *Subscription `json:"subscription,omitempty" db:"subscription"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`

	Settings Variables `json:"settings" db:"settings"`
}

// IsTenant reports whether the user is a top-level subscriber account.
func (u *User) IsTenant() bool {
	return u.Role == RoleSubscriber
}
