package config

import "time"

// SecurityConfig holds the reference backend's token and bootstrap settings.
type SecurityConfig interface {
	GetTokenSecret() string
	GetTokenExpiry() time.Duration
	GetResetTokenExpiry() time.Duration
	GetAdminEmail() string
	GetAdminPassword() string
	GetRevocationRedisAddr() string
}

type Security struct {
	env EnvVars
}

var _ SecurityConfig = Security{}

func (s Security) GetTokenSecret() string {
	return s.env.TokenSecret
}

func (s Security) GetTokenExpiry() time.Duration {
	if s.env.TokenExpiry <= 0 {
		return 24 * time.Hour
	}
	return s.env.TokenExpiry
}

func (s Security) GetResetTokenExpiry() time.Duration {
	if s.env.ResetTokenExpiry <= 0 {
		return 10 * time.Minute
	}
	return s.env.ResetTokenExpiry
}

func (s Security) GetAdminEmail() string {
	return s.env.AdminEmail
}

// GetAdminPassword is empty unless ADMIN_PASSWORD is set; the backend then generates one.
func (s Security) GetAdminPassword() string {
	return s.env.AdminPassword
}

// GetRevocationRedisAddr is where logout revocations are shared between backend instances.
// Empty keeps them in process memory.
func (s Security) GetRevocationRedisAddr() string {
	return s.env.RevocationRedisAddr
}
