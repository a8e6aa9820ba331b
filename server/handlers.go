package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-property-auth/auth"
	autherrors "github.com/jrsteele09/go-property-auth/internal/errors"
	"github.com/jrsteele09/go-property-auth/users"
	"github.com/rs/zerolog/log"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Roles a new account may ask for. Staff accounts are created by an admin.
var selfRegisterRoles = []users.RoleType{users.RoleTenant, users.RoleOwner}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// decode reads a JSON body into dst and validates it. On failure the response is written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !autherrors.As(err, &fieldErrors) {
		return "Invalid request"
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("Please add a %s", fe.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("Please add a valid %s", fe.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s cannot be more than %s characters", fe.Field(), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(messages, ", ")
}

// sendSession issues a token for user and writes {success, token, data}.
func (s *Server) sendSession(w http.ResponseWriter, status int, user *users.User) {
	raw, err := s.issuer.Issue(user)
	if err != nil {
		log.Err(err).Str("user", user.ID).Msg("Failed to issue token")
		writeError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	writeJSON(w, status, envelope{Success: true, Token: raw, Data: user})
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if !s.decode(w, r, &req) {
			return
		}

		user, err := s.users.GetByEmail(req.Email)
		if err != nil || !users.CheckPasswordHash(req.Password, user.PasswordHash) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if !user.IsActive {
			writeError(w, http.StatusUnauthorized, "Account is deactivated")
			return
		}
		s.sendSession(w, http.StatusOK, user)
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if !s.decode(w, r, &req) {
			return
		}
		if err := users.ValidatePasswordStrength(req.Password); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		role := req.Role
		if role == "" {
			role = users.RoleTenant
		}
		if !role.IsValid() || !containsRole(selfRegisterRoles, role) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Role %s cannot be self-registered", role))
			return
		}

		hash, err := users.HashPassword(req.Password)
		if err != nil {
			log.Err(err).Msg("Failed to hash password")
			writeError(w, http.StatusInternalServerError, "Server Error")
			return
		}

		user := &users.User{
			ID:           uuid.New().String(),
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:        req.Phone,
			Role:         role,
			IsActive:     true,
			CreatedAt:    s.nowFunc().UTC(),
			PasswordHash: hash,
		}
		if err := s.users.Upsert(user); err != nil {
			if autherrors.Is(err, autherrors.ErrUserExists) {
				writeError(w, http.StatusBadRequest, "User already exists")
				return
			}
			log.Err(err).Str("email", user.Email).Msg("Failed to create user")
			writeError(w, http.StatusInternalServerError, "Server Error")
			return
		}
		s.sendSession(w, http.StatusCreated, user)
	}
}

// LogoutHandler revokes the bearer token when one is presented. It always succeeds.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := bearerToken(r); ok {
			if err := s.issuer.Revoke(r.Context(), raw); err != nil {
				log.Debug().Err(err).Msg("Logout with an unusable token")
			}
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: struct{}{}})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: userFromContext(r.Context())})
	}
}

func (s *Server) UpdateDetailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.UserDetails
		if !s.decode(w, r, &req) {
			return
		}

		user := userFromContext(r.Context())
		applyDetails(user, req)
		if err := s.users.Upsert(user); err != nil {
			if autherrors.Is(err, autherrors.ErrUserExists) {
				writeError(w, http.StatusBadRequest, "Email already in use")
				return
			}
			log.Err(err).Str("user", user.ID).Msg("Failed to update user")
			writeError(w, http.StatusInternalServerError, "Server Error")
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: user})
	}
}

// UpdatePasswordHandler changes the password, revokes the presented token and issues a new one.
func (s *Server) UpdatePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.UpdatePasswordRequest
		if !s.decode(w, r, &req) {
			return
		}

		user := userFromContext(r.Context())
		if !users.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
			writeError(w, http.StatusBadRequest, "Password is incorrect")
			return
		}
		if err := users.ValidatePasswordStrength(req.NewPassword); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !s.setPassword(w, user, req.NewPassword) {
			return
		}

		if raw, ok := r.Context().Value(ContextKeyToken).(string); ok {
			if err := s.issuer.Revoke(r.Context(), raw); err != nil {
				log.Warn().Err(err).Str("user", user.ID).Msg("Failed to revoke replaced token")
			}
		}
		s.sendSession(w, http.StatusOK, user)
	}
}

// ForgotPasswordHandler answers the same way whether or not the email is known.
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ForgotPasswordRequest
		if !s.decode(w, r, &req) {
			return
		}

		if user, err := s.users.GetByEmail(req.Email); err == nil && user.IsActive {
			s.notify(user, s.resets.Create(user.Email))
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: "Email sent"})
	}
}

func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ResetPasswordRequest
		if !s.decode(w, r, &req) {
			return
		}
		if err := users.ValidatePasswordStrength(req.Password); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		email, err := s.resets.Consume(r.PathValue("token"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid token")
			return
		}
		user, err := s.users.GetByEmail(email)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid token")
			return
		}
		if !s.setPassword(w, user, req.Password) {
			return
		}
		s.sendSession(w, http.StatusOK, user)
	}
}

func (s *Server) setPassword(w http.ResponseWriter, user *users.User, password string) bool {
	hash, err := users.HashPassword(password)
	if err == nil {
		err = s.users.SetPassword(user.Email, hash)
	}
	if err != nil {
		log.Err(err).Str("user", user.ID).Msg("Failed to set password")
		writeError(w, http.StatusInternalServerError, "Server Error")
		return false
	}
	user.PasswordHash = hash
	return true
}

func applyDetails(user *users.User, details auth.UserDetails) {
	if details.FirstName != "" {
		user.FirstName = details.FirstName
	}
	if details.LastName != "" {
		user.LastName = details.LastName
	}
	if details.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(details.Email))
	}
	if details.Phone != "" {
		user.Phone = details.Phone
	}
	if details.Avatar != "" {
		user.Avatar = details.Avatar
	}
}

func containsRole(roles []users.RoleType, role users.RoleType) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
