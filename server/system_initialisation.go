package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-property-auth/internal/config"
	"github.com/jrsteele09/go-property-auth/users"
	"github.com/rs/zerolog/log"
)

// InitialiseSystem creates the super admin if it does not exist yet.
// Returns the generated password on first creation (empty string if already exists)
func (s *Server) InitialiseSystem(cfg config.SecurityConfig) (string, error) {
	adminEmail := cfg.GetAdminEmail()
	if adminEmail == "" {
		return "", nil
	}

	generatedPassword, err := s.createSuperAdmin(adminEmail, cfg.GetAdminPassword())
	if err != nil {
		return "", fmt.Errorf("[Server InitialiseSystem] failed to bootstrap super admin: %w", err)
	}

	if generatedPassword != "" {
		log.Info().Msg("👤 Super Admin Credentials:")
		log.Info().Msgf("   Email:       %s", adminEmail)
		if cfg.GetAdminPassword() == "" {
			log.Info().Msgf("   Password:    %s", generatedPassword)
		}
	}
	return generatedPassword, nil
}

// createSuperAdmin creates the super admin user if none exists
func (s *Server) createSuperAdmin(adminEmail, defaultPassword string) (generatedPassword string, err error) {
	existingUser, err := s.users.GetByEmail(adminEmail)
	if err == nil && existingUser.HasRole(users.RoleSuperAdmin) {
		log.Debug().Str("email", adminEmail).Msg("Super admin already exists")
		return "", nil
	}

	generatedPassword = defaultPassword
	if generatedPassword == "" {
		// Generate a secure random password
		passwordBytes := make([]byte, 16)
		if _, err := rand.Read(passwordBytes); err != nil {
			return "", fmt.Errorf("[server createSuperAdmin] failed to generate password: %w", err)
		}
		// Suffix guarantees the strength rules are met
		generatedPassword = base64.RawURLEncoding.EncodeToString(passwordBytes) + "Aa1"
	}

	passwordHash, err := users.HashPassword(generatedPassword)
	if err != nil {
		return "", fmt.Errorf("[server createSuperAdmin] failed to hash password: %w", err)
	}

	adminUser := &users.User{
		ID:           uuid.New().String(),
		Email:        adminEmail,
		PasswordHash: passwordHash,
		FirstName:    "System",
		LastName:     "Administrator",
		Role:         users.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    s.nowFunc().UTC(),
	}
	if existingUser != nil {
		adminUser.ID = existingUser.ID
	}

	if err := s.users.Upsert(adminUser); err != nil {
		return "", fmt.Errorf("[server createSuperAdmin] failed to create super admin: %w", err)
	}
	return generatedPassword, nil
}
