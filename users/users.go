package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is the privilege level of a user. The set is closed.
type RoleType string

const (
	RoleSuperAdmin RoleType = "super_admin" // Platform operator, manages every organisation
	RoleAdmin      RoleType = "admin"       // Manages users and settings of an organisation
	RoleManager    RoleType = "manager"     // Runs day to day property operations
	RoleOwner      RoleType = "owner"       // Owns one or more properties
	RoleTenant     RoleType = "tenant"      // Rents an apartment
)

// AllRoles lists every role from the highest privilege to the lowest.
var AllRoles = []RoleType{RoleSuperAdmin, RoleAdmin, RoleManager, RoleOwner, RoleTenant}

// IsValid reports whether r is one of the known roles.
func (r RoleType) IsValid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// User is the denormalised snapshot of an authenticated identity. The client keeps a copy next
// to the session token; the reference backend keeps the authoritative one.
type User struct {
	ID           string    `json:"id,omitempty"`        // Unique identifier for the user
	FirstName    string    `json:"firstName,omitempty"` // First name of the user
	LastName     string    `json:"lastName,omitempty"`  // Last name of the user
	Email        string    `json:"email,omitempty"`     // User's email address
	Role         RoleType  `json:"role,omitempty"`      // Privilege level
	Phone        string    `json:"phone,omitempty"`     // Contact number
	Avatar       string    `json:"avatar,omitempty"`    // Profile image URL
	IsActive     bool      `json:"isActive,omitempty"`  // Inactive users cannot sign in
	CreatedAt    time.Time `json:"createdAt,omitzero"`  // Date and time when the user registered
	PasswordHash string    `json:"-"`                   // Hashed password - never serialize
}

// FullName joins the name fields.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// HasRole reports whether the user holds exactly role.
func (u *User) HasRole(role RoleType) bool {
	if u == nil {
		return false
	}
	return u.Role == role
}

// HasAnyRole reports whether the user holds one of roles.
func (u *User) HasAnyRole(roles ...RoleType) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Clone returns a copy that can be handed out without sharing state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
