// user.go defines the User model for platform accounts. Password holds a
// bcrypt hash; it is named in the audit engine's sensitive-field set and is
// always redacted before any audit payload is stored.
package models

// User roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User represents a platform account.
type User struct {
	ID       string
	Email    string
	Name     string
	Password string // bcrypt hash
	Role     string
	Auditable
}

// IsAdmin reports whether the user may access administrative endpoints,
// including the audit trail.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
