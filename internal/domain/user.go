// Package domain holds the marketplace's core types shared by services,
// repositories and handlers.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the marketplace role picked after onboarding.
type Role string

const (
	RoleNone      Role = ""
	RoleCreator   Role = "creator"
	RoleFulfiller Role = "fulfiller"
)

func (r Role) Valid() bool {
	return r == RoleCreator || r == RoleFulfiller
}

// OnboardingStep mirrors the sign-up flow a client walks through.
type OnboardingStep string

const (
	OnboardingRegister      OnboardingStep = "register"
	OnboardingVerifyEmail   OnboardingStep = "verify-email"
	OnboardingVerifyCode    OnboardingStep = "verify-code"
	OnboardingSuccess       OnboardingStep = "success"
	OnboardingRoleSelection OnboardingStep = "role-selection"
)

type User struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	Email              string     `json:"email" db:"email"`
	PasswordHash       string     `json:"-" db:"password_hash"`
	FirstName          string     `json:"firstName" db:"first_name"`
	LastName           string     `json:"lastName" db:"last_name"`
	Role               Role       `json:"role" db:"role"`
	EmailVerified      bool       `json:"emailVerified" db:"email_verified"`
	VerificationSecret *string    `json:"-" db:"verification_secret"`
	VerificationSentAt *time.Time `json:"-" db:"verification_sent_at"`
	CreatedAt          time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time  `json:"updatedAt" db:"updated_at"`
	LastLogin          *time.Time `json:"lastLogin,omitempty" db:"last_login"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// OnboardingStep derives where the user is in the sign-up flow.
func (u *User) OnboardingStep() OnboardingStep {
	switch {
	case u.EmailVerified && u.Role.Valid():
		return OnboardingSuccess
	case u.EmailVerified:
		return OnboardingRoleSelection
	case u.VerificationSentAt != nil:
		return OnboardingVerifyCode
	default:
		return OnboardingVerifyEmail
	}
}
