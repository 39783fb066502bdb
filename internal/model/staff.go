package model

import "time"

// Staff roles carried in the JWT role claim.
const (
	RoleStaff   = "STAFF"
	RoleManager = "MANAGER"
)

// StaffUser mirrors the 'staff_users' table.
type StaffUser struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
