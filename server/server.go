package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-property-auth/internal/config"
	"github.com/jrsteele09/go-property-auth/token"
	"github.com/jrsteele09/go-property-auth/users"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// ResetNotifier delivers a password reset token to the user. The default logs it.
type ResetNotifier func(user *users.User, resetToken string)

// Server is the reference backend for the property-management auth API.
type Server struct {
	env         string // Environment (e.g., "DEV", "PROD")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	users       users.UserRepo
	issuer      *token.Issuer
	resets      *ResetTokens
	notify      ResetNotifier
	validate    *validator.Validate
	registry    *prometheus.Registry
	metrics     *serverMetrics
	revocations token.RevocationList
	nowFunc     func() time.Time
}

type Option func(*Server)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func WithResetNotifier(notify ResetNotifier) Option {
	return func(s *Server) {
		s.notify = notify
	}
}

// WithRevocationList stores logout revocations somewhere other than process memory.
func WithRevocationList(list token.RevocationList) Option {
	return func(s *Server) {
		s.revocations = list
	}
}

// WithRegistry exposes the server's own collectors and anything already in registry on /metrics.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

func New(cfg config.Config, userRepo users.UserRepo, options ...Option) (*Server, error) {
	if userRepo == nil {
		return nil, errors.New("[Server New] user repo is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		users:    userRepo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.notify == nil {
		s.notify = logResetToken
	}
	s.validate.RegisterTagNameFunc(jsonFieldName)

	s.metrics = newServerMetrics(s.registry)
	issuerOpts := []token.IssuerOption{
		token.WithIssuerName(cfg.GetAppName()),
		token.WithTokenExpiry(cfg.GetTokenExpiry()),
		token.WithIssuerNowFunc(s.nowFunc),
	}
	if s.revocations != nil {
		issuerOpts = append(issuerOpts, token.WithRevocationList(s.revocations))
	}
	s.issuer = token.NewIssuer(token.NewHMACSigner(cfg.GetTokenSecret()), issuerOpts...)
	s.resets = NewResetTokens(cfg.GetResetTokenExpiry(), s.nowFunc)

	if _, err := s.InitialiseSystem(cfg); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Issuer exposes the token issuer, mainly so tests can mint tokens the server accepts.
func (s *Server) Issuer() *token.Issuer {
	return s.issuer
}

// CleanupExpired drops expired revocations and reset tokens.
func (s *Server) CleanupExpired(ctx context.Context) {
	if err := s.issuer.CleanupRevocations(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to clean up revocations")
	}
	s.resets.Cleanup()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func displayMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", displayMethod(method), path)
}

func logError(method, path, message string) {
	log.Error().Msgf("[%-19s] %s %s", displayMethod(method), path, Red+message+ResetColor)
}

func logResetToken(user *users.User, resetToken string) {
	log.Info().Str("email", user.Email).Str("reset_token", resetToken).Msg("Password reset requested")
}
