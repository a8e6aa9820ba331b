package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"

	autherrors "github.com/jrsteele09/go-property-auth/internal/errors"
	"github.com/jrsteele09/go-property-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Requester is the part of the HTTP client the service calls through.
type Requester interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
}

// TokenStore persists the session token and the user snapshot next to it.
type TokenStore interface {
	SetToken(ctx context.Context, token string, remember bool) error
	GetToken(ctx context.Context) (string, error)
	RemoveToken(ctx context.Context) error
	IsTokenExpired(token string) bool
	SetUser(ctx context.Context, user *users.User) error
	GetUser(ctx context.Context) (*users.User, error)
	Remembered(ctx context.Context) (bool, error)
}

// Service is the only component that calls the authentication endpoints. It keeps the token
// store and an in-memory copy of the current user in step with the backend's answers.
type Service struct {
	requester Requester
	store     TokenStore
	user      *users.User
	lock      sync.RWMutex
}

func NewService(requester Requester, store TokenStore) (*Service, error) {
	if requester == nil {
		return nil, errors.New("[NewService] requester is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] token store is required")
	}
	return &Service{
		requester: requester,
		store:     store,
	}, nil
}

// Login signs in and stores the session in the durable area when remember is true.
// Backend and transport errors are returned unchanged.
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (*users.User, error) {
	var resp Response
	if err := s.requester.Post(ctx, PathLogin, LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return s.startSession(ctx, resp, remember)
}

// Register creates an account. New sessions always go to the volatile area.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*users.User, error) {
	var resp Response
	if err := s.requester.Post(ctx, PathRegister, req, &resp); err != nil {
		return nil, err
	}
	return s.startSession(ctx, resp, false)
}

// Logout tells the backend the session is over and clears local state whatever the outcome.
func (s *Service) Logout(ctx context.Context) {
	if err := s.requester.Get(ctx, PathLogout, nil); err != nil {
		log.Warn().Err(err).Msg("Server logout failed, clearing local session anyway")
	}
	s.clear(ctx)
}

// GetCurrentUser fetches the profile and overwrites the cached snapshot.
func (s *Service) GetCurrentUser(ctx context.Context) (*users.User, error) {
	var resp Response
	if err := s.requester.Get(ctx, PathMe, &resp); err != nil {
		return nil, err
	}
	return s.cacheUser(ctx, resp.Data)
}

func (s *Service) UpdateUserDetails(ctx context.Context, details UserDetails) (*users.User, error) {
	var resp Response
	if err := s.requester.Put(ctx, PathUpdateDetails, details, &resp); err != nil {
		return nil, err
	}
	return s.cacheUser(ctx, resp.Data)
}

// UpdatePassword changes the password. When the backend issues a new token it replaces the
// stored one in the same area.
func (s *Service) UpdatePassword(ctx context.Context, currentPassword, newPassword string) error {
	var resp Response
	req := UpdatePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := s.requester.Put(ctx, PathUpdatePassword, req, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return nil
	}

	remembered, err := s.store.Remembered(ctx)
	if err != nil {
		return errors.Wrap(err, "[Service.UpdatePassword]")
	}
	if err := s.store.SetToken(ctx, resp.Token, remembered); err != nil {
		return errors.Wrap(err, "[Service.UpdatePassword] rotate token")
	}
	if resp.Data != nil {
		if _, err := s.cacheUser(ctx, resp.Data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	return s.requester.Post(ctx, PathForgotPassword, ForgotPasswordRequest{Email: email}, nil)
}

func (s *Service) ResetPassword(ctx context.Context, resetToken, password string) error {
	if strings.TrimSpace(resetToken) == "" {
		return errors.Wrap(autherrors.ErrInvalidResetToken, "[Service.ResetPassword]")
	}
	path := PathResetPassword + url.PathEscape(resetToken)
	return s.requester.Put(ctx, path, ResetPasswordRequest{Password: password}, nil)
}

// IsUserAuthenticated reports whether a usable token and a user snapshot are both present.
// An absent or expired token clears the store.
func (s *Service) IsUserAuthenticated(ctx context.Context) bool {
	tok, err := s.store.GetToken(ctx)
	if err != nil {
		log.Err(err).Msg("Failed to read session token")
	}
	if err != nil || s.store.IsTokenExpired(tok) {
		s.clear(ctx)
		return false
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.user == nil {
		user, err := s.store.GetUser(ctx)
		if err != nil {
			log.Err(err).Msg("Stored user could not be read, clearing session")
			if err := s.store.RemoveToken(ctx); err != nil {
				log.Err(err).Msg("Failed to clear session")
			}
			return false
		}
		s.user = user
	}
	return s.user != nil
}

// HasRole reports whether the cached user holds role. False when no user is cached.
func (s *Service) HasRole(role users.RoleType) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user.HasRole(role)
}

func (s *Service) HasAnyRole(roles ...users.RoleType) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user.HasAnyRole(roles...)
}

// CurrentUser returns a copy of the cached user, or nil.
func (s *Service) CurrentUser() *users.User {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user.Clone()
}

// Forget drops the cached user without touching storage. Used after the HTTP client has
// already cleared the store on a 401.
func (s *Service) Forget() {
	s.setUser(nil)
}

func (s *Service) startSession(ctx context.Context, resp Response, remember bool) (*users.User, error) {
	if resp.Token == "" {
		return nil, MissingTokenErr
	}
	if resp.Data == nil {
		return nil, MissingUserErr
	}

	if err := s.store.SetToken(ctx, resp.Token, remember); err != nil {
		return nil, errors.Wrap(err, "[Service.startSession] store token")
	}
	return s.cacheUser(ctx, resp.Data)
}

// cacheUser writes user to the token's storage area and to memory.
func (s *Service) cacheUser(ctx context.Context, user *users.User) (*users.User, error) {
	if user == nil {
		return nil, MissingUserErr
	}
	if err := s.store.SetUser(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[Service.cacheUser]")
	}
	s.setUser(user.Clone())
	return user.Clone(), nil
}

func (s *Service) setUser(user *users.User) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.user = user
}

func (s *Service) clear(ctx context.Context) {
	s.setUser(nil)
	if err := s.store.RemoveToken(ctx); err != nil {
		log.Err(err).Msg("Failed to clear session")
	}
}
