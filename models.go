package accounts

import (
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrganizationType classifies the organization a user signs up under
type OrganizationType = string

const (
	OrgLawFirm    OrganizationType = "law_firm"
	OrgCorporate  OrganizationType = "corporate"
	OrgGovernment OrganizationType = "government"
	OrgNGO        OrganizationType = "ngo"
	OrgIndividual OrganizationType = "individual"
	OrgStudent    OrganizationType = "student"
	OrgResearcher OrganizationType = "researcher"
	OrgOther      OrganizationType = "other"
)

// OrganizationTypes lists every accepted organization classification.
func OrganizationTypes() []any {
	return []any{
		OrgLawFirm,
		OrgCorporate,
		OrgGovernment,
		OrgNGO,
		OrgIndividual,
		OrgStudent,
		OrgResearcher,
		OrgOther,
	}
}

// IsValidOrganizationType reports whether v is part of the closed enumeration.
func IsValidOrganizationType(v string) bool {
	for _, t := range OrganizationTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// User is a confirmed, login capable account record. Email is the natural
// key; password hash is absent for federation-only accounts.
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email            string           `bun:"email,notnull,unique" json:"email"`
	FullName         string           `bun:"full_name,notnull" json:"full_name"`
	DateOfBirth      *time.Time       `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`
	OrganizationType OrganizationType `bun:"organization_type,notnull" json:"organization_type"`
	OrganizationName string           `bun:"organization_name" json:"organization_name,omitempty"`
	PasswordHash     string           `bun:"password_hash" json:"-"`
	GoogleID         string           `bun:"google_id" json:"google_id,omitempty"`
	EmailVerified    bool             `bun:"is_email_verified" json:"is_email_verified"`
	Active           bool             `bun:"is_active" json:"is_active"`
	Superuser        bool             `bun:"is_superuser" json:"-"`
	CreatedAt        *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Validate enforces the store boundary invariants: an email is required and a
// user must carry at least one credential (a password hash or a federated
// provider subject id).
func (u *User) Validate() error {
	if u == nil {
		return goerrors.New("user record is required", goerrors.CategoryValidation)
	}
	if strings.TrimSpace(u.Email) == "" {
		return goerrors.New("user email is required", goerrors.CategoryValidation)
	}
	if u.PasswordHash == "" && u.GoogleID == "" {
		return goerrors.New(
			"user must have a password hash or a federated provider id",
			goerrors.CategoryValidation,
		).WithTextCode("CREDENTIALLESS_USER")
	}
	return nil
}

// PendingRegistration is an unconfirmed signup staged until the emailed code
// is verified. At most one record exists per email; a resubmitted signup
// overwrites it in place. Records are removed on promotion or lazily when
// found expired; there is no background sweep.
type PendingRegistration struct {
	bun.BaseModel    `bun:"table:pending_registrations,alias:preg"`
	ID               uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email            string           `bun:"email,notnull,unique" json:"email"`
	FullName         string           `bun:"full_name,notnull" json:"full_name"`
	DateOfBirth      time.Time        `bun:"date_of_birth,notnull" json:"date_of_birth"`
	OrganizationType OrganizationType `bun:"organization_type,notnull" json:"organization_type"`
	OrganizationName string           `bun:"organization_name" json:"organization_name,omitempty"`
	PasswordHash     string           `bun:"password_hash,notnull" json:"-"`
	OTPCode          string           `bun:"otp_code,notnull" json:"-"`
	OTPIssuedAt      time.Time        `bun:"otp_issued_at,notnull" json:"otp_issued_at"`
	OTPAttempts      int              `bun:"otp_attempts,notnull,default:0" json:"otp_attempts"`
	CreatedAt        *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the code's validity window has elapsed. The state
// is derived from the stored issuance timestamp, never cached.
func (p *PendingRegistration) Expired(now time.Time) bool {
	return now.After(p.OTPIssuedAt.Add(OTPExpiry))
}

// Locked reports whether the registration burned through its attempt budget.
func (p *PendingRegistration) Locked() bool {
	return p.OTPAttempts >= MaxOTPAttempts
}

// RemainingAttempts returns how many verification attempts are left.
func (p *PendingRegistration) RemainingAttempts() int {
	remaining := MaxOTPAttempts - p.OTPAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Promote builds the confirmed User this registration stands in for.
func (p *PendingRegistration) Promote() *User {
	dob := p.DateOfBirth
	return &User{
		Email:            p.Email,
		FullName:         p.FullName,
		DateOfBirth:      &dob,
		OrganizationType: p.OrganizationType,
		OrganizationName: p.OrganizationName,
		PasswordHash:     p.PasswordHash,
		EmailVerified:    true,
		Active:           true,
	}
}

// NormalizeEmail lower-cases and trims an email so lookups hit the unique
// index regardless of how the caller spelled it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
