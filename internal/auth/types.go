package auth

import "time"

// Staff roles. Both tiers may run donation lifecycle operations; only admins
// manage other staff accounts.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User is a staff member of the rescue organization. Donors are not users;
// public submissions carry at most an opaque submitter reference.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// StaffRoles lists every role allowed into the admin console.
func StaffRoles() []string {
	return []string{RoleAdmin, RoleStaff}
}
