package auth

import "github.com/jrsteele09/go-property-auth/users"

// Authentication endpoints, relative to the API base URL.
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathLogout         = "/auth/logout"
	PathMe             = "/auth/me"
	PathUpdateDetails  = "/auth/updatedetails"
	PathUpdatePassword = "/auth/updatepassword"
	PathForgotPassword = "/auth/forgotpassword"
	PathResetPassword  = "/auth/resetpassword/" // followed by the reset token
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /auth/register.
// Role is optional; the backend decides which roles may self-register.
type RegisterRequest struct {
	FirstName string         `json:"firstName" validate:"required,max=50"`
	LastName  string         `json:"lastName" validate:"required,max=50"`
	Email     string         `json:"email" validate:"required,email"`
	Password  string         `json:"password" validate:"required,min=8"`
	Phone     string         `json:"phone,omitempty" validate:"omitempty,max=30"`
	Role      users.RoleType `json:"role,omitempty"`
}

// UserDetails is the body of PUT /auth/updatedetails. Empty fields are left unchanged.
type UserDetails struct {
	FirstName string `json:"firstName,omitempty" validate:"omitempty,max=50"`
	LastName  string `json:"lastName,omitempty" validate:"omitempty,max=50"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Avatar    string `json:"avatar,omitempty" validate:"omitempty,url"`
}

// UpdatePasswordRequest is the body of PUT /auth/updatepassword.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// ForgotPasswordRequest is the body of POST /auth/forgotpassword.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of PUT /auth/resetpassword/{token}.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// Response is the success envelope shared by every auth endpoint.
//   - login / register: Token and Data are both set
//   - me / updatedetails: Data is set
//   - updatepassword: Token is set when the backend rotated the session
type Response struct {
	Success bool        `json:"success"`
	Token   string      `json:"token,omitempty"`
	Data    *users.User `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}
