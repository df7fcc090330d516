package model

import "time"

// Role is the role claim carried by a principal and its tokens.
type Role string

const (
    RolePlatformAdmin Role = "ADMIN"
    RoleSalonOwner    Role = "SALON_OWNER"
    RoleEmployee      Role = "EMPLOYEE"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
    switch r {
    case RolePlatformAdmin, RoleSalonOwner, RoleEmployee:
        return true
    }
    return false
}

// TracksPresence reports whether logins and logouts flip the principal's
// IsActive flag.  Salon owners are shown as online/offline in the admin
// console; platform admins are not.
func (r Role) TracksPresence() bool { return r == RoleSalonOwner }

// Principal represents an authenticable identity as stored in the
// `principals` table.
//
// Fields:
//  ID             – UUID primary key.
//  Email          – unique, always stored lower-cased.
//  PasswordHash   – bcrypt hash; empty while an owner is invited but not activated.
//  Role           – ADMIN, SALON_OWNER or EMPLOYEE.
//  IsActive       – presence flag for roles that track it.
//  SessionVersion – revocation counter, bumped on logout and embedded in tokens.
type Principal struct {
    ID             string    // principals.id
    Email          string    // principals.email
    FirstName      string    // principals.first_name
    LastName       string    // principals.last_name
    PasswordHash   string    // principals.password_hash (NULL when empty)
    Role           Role      // principals.role
    IsActive       bool      // principals.is_active
    SessionVersion int64     // principals.session_version
    CreatedAt      time.Time // principals.created_at
    UpdatedAt      time.Time // principals.updated_at
}

// HasPassword reports whether a secret has been set.
func (p *Principal) HasPassword() bool { return p.PasswordHash != "" }

// PrincipalSummary is the public view of a principal returned by auth flows.
type PrincipalSummary struct {
    ID        string `json:"id"`
    Email     string `json:"email"`
    FirstName string `json:"firstName,omitempty"`
    LastName  string `json:"lastName,omitempty"`
    Role      Role   `json:"role"`
}

// Summary returns the public view of p.
func (p *Principal) Summary() PrincipalSummary {
    return PrincipalSummary{ID: p.ID, Email: p.Email, FirstName: p.FirstName, LastName: p.LastName, Role: p.Role}
}
