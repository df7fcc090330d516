package model

import (
    "strings"
    "time"
)

// SalonStatus is the subscription state of a salon.
type SalonStatus string

const (
    SalonStatusTrial     SalonStatus = "TRIAL"
    SalonStatusActive    SalonStatus = "ACTIVE"
    SalonStatusSuspended SalonStatus = "SUSPENDED"
    SalonStatusCancelled SalonStatus = "CANCELLED"
)

// ParseSalonStatus upper-cases s and reports whether it is a known status.
func ParseSalonStatus(s string) (SalonStatus, bool) {
    st := SalonStatus(strings.ToUpper(strings.TrimSpace(s)))
    switch st {
    case SalonStatusTrial, SalonStatusActive, SalonStatusSuspended, SalonStatusCancelled:
        return st, true
    }
    return "", false
}

// Plan is the subscription plan of a salon.
type Plan string

const (
    PlanBasic    Plan = "BASIC"
    PlanStandard Plan = "STANDARD"
    PlanPremium  Plan = "PREMIUM"
)

// ParsePlan upper-cases s and reports whether it is a known plan.
func ParsePlan(s string) (Plan, bool) {
    p := Plan(strings.ToUpper(strings.TrimSpace(s)))
    switch p {
    case PlanBasic, PlanStandard, PlanPremium:
        return p, true
    }
    return "", false
}

// Salon represents a tenant as stored in the `salons` table.  The JSON form
// is what the directory listing serializes into the cache.
type Salon struct {
    ID            string         `json:"id"`
    Name          string         `json:"name"`
    BusinessType  string         `json:"businessType"`
    VTANumber     string         `json:"vtaNumber"`
    EmployeeCount int            `json:"employeeCount"`
    Email         string         `json:"email"`
    PhoneNumber   string         `json:"phoneNumber"`
    Country       string         `json:"country"`
    Province      string         `json:"province"`
    City          string         `json:"city"`
    ZipCode       string         `json:"zipCode"`
    Status        SalonStatus    `json:"status"`
    Plan          Plan           `json:"plan"`
    TrialEndsAt   *time.Time     `json:"trialEndsAt,omitempty"`
    CreatedBy     *string        `json:"createdBy,omitempty"`
    UpdatedBy     *string        `json:"updatedBy,omitempty"`
    CreatedAt     time.Time      `json:"createdAt"`
    UpdatedAt     time.Time      `json:"updatedAt"`
    DeletedAt     *time.Time     `json:"deletedAt,omitempty"`
    Owners        []OwnerProfile `json:"owners,omitempty"`
}

// OwnerProfile links a salon to an owning principal.  Its ID doubles as the
// invitation id used by the set-password flow, so only platform admins are
// shown it.
type OwnerProfile struct {
    ID                   string     `json:"id,omitempty"`
    SalonID              string     `json:"salonId"`
    PrincipalID          string     `json:"principalId"`
    Email                string     `json:"email,omitempty"`
    FirstName            string     `json:"firstName,omitempty"`
    LastName             string     `json:"lastName,omitempty"`
    InvitationSent       bool       `json:"invitationSent"`
    InvitationConsumedAt *time.Time `json:"invitationConsumedAt,omitempty"`
    CreatedAt            time.Time  `json:"createdAt"`
}

// WithoutInvitationIDs returns a copy of s whose owner profiles carry no
// invitation id.  s itself is left untouched.
func (s Salon) WithoutInvitationIDs() Salon {
    if len(s.Owners) == 0 {
        return s
    }
    owners := make([]OwnerProfile, len(s.Owners))
    for i, op := range s.Owners {
        op.ID = ""
        owners[i] = op
    }
    s.Owners = owners
    return s
}

// NewOwner is an owner to connect-or-create while creating a salon.
type NewOwner struct {
    FirstName      string
    LastName       string
    Email          string
    InvitationSent bool
}

// SalonUpdate is the closed set of salon fields a generic update may touch.
// Nil pointers leave the column unchanged.  Email and VTANumber identify the
// tenant and are deliberately absent.
type SalonUpdate struct {
    Name          *string
    BusinessType  *string
    EmployeeCount *int
    PhoneNumber   *string
    Country       *string
    Province      *string
    City          *string
    ZipCode       *string
    Status        *SalonStatus
    Plan          *Plan
    TrialEndsAt   *time.Time
}

// Empty reports whether u changes nothing.
func (u SalonUpdate) Empty() bool {
    return u.Name == nil && u.BusinessType == nil && u.EmployeeCount == nil &&
        u.PhoneNumber == nil && u.Country == nil && u.Province == nil &&
        u.City == nil && u.ZipCode == nil && u.Status == nil && u.Plan == nil &&
        u.TrialEndsAt == nil
}
