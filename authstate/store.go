package authstate

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-property-auth/auth"
	"github.com/jrsteele09/go-property-auth/client"
	"github.com/jrsteele09/go-property-auth/users"
	"github.com/rs/zerolog/log"
)

// Authenticator is the auth service as seen by the state store.
type Authenticator interface {
	IsUserAuthenticated(ctx context.Context) bool
	CurrentUser() *users.User
	Login(ctx context.Context, email, password string, remember bool) (*users.User, error)
	Register(ctx context.Context, req auth.RegisterRequest) (*users.User, error)
	Logout(ctx context.Context)
	GetCurrentUser(ctx context.Context) (*users.User, error)
	UpdateUserDetails(ctx context.Context, details auth.UserDetails) (*users.User, error)
}

// Listener is called with the new state after every dispatch.
type Listener func(State)

// Store holds the current State and runs the auth workflows that change it.
type Store struct {
	auth      Authenticator
	state     State
	listeners map[int]Listener
	nextID    int
	lock      sync.RWMutex
}

func NewStore(authenticator Authenticator) *Store {
	return &Store{
		auth:      authenticator,
		state:     InitialState(),
		listeners: make(map[int]Listener),
	}
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return snapshot(s.state)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.lock.Lock()
	defer s.lock.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.listeners, id)
	}
}

// Dispatch applies e and notifies subscribers outside the lock.
func (s *Store) Dispatch(e Event) State {
	s.lock.Lock()
	s.state = Reduce(s.state, e)
	next := snapshot(s.state)
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.lock.Unlock()

	for _, fn := range listeners {
		fn(snapshot(next))
	}
	return next
}

// Initialize hydrates the state from the auth service. Any failure, including a panic,
// leaves the store in the anonymous state.
func (s *Store) Initialize(ctx context.Context) {
	var (
		user          *users.User
		authenticated bool
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("Auth initialization failed, starting anonymous")
				user, authenticated = nil, false
			}
		}()
		authenticated = s.auth.IsUserAuthenticated(ctx)
		if authenticated {
			user = s.auth.CurrentUser()
		}
	}()
	s.Dispatch(Initialize{User: user, Authenticated: authenticated})
}

// Login dispatches the login events. The error is returned after LoginFailure is dispatched.
func (s *Store) Login(ctx context.Context, email, password string, remember bool) (*users.User, error) {
	s.Dispatch(LoginStart{})
	user, err := s.auth.Login(ctx, email, password, remember)
	if err != nil {
		s.Dispatch(LoginFailure{Message: ErrorMessage(err)})
		return nil, err
	}
	s.Dispatch(LoginSuccess{User: user})
	return user, nil
}

func (s *Store) Register(ctx context.Context, req auth.RegisterRequest) (*users.User, error) {
	s.Dispatch(RegisterStart{})
	user, err := s.auth.Register(ctx, req)
	if err != nil {
		s.Dispatch(RegisterFailure{Message: ErrorMessage(err)})
		return nil, err
	}
	s.Dispatch(RegisterSuccess{User: user})
	return user, nil
}

// Logout always ends in the anonymous state.
func (s *Store) Logout(ctx context.Context) {
	s.auth.Logout(ctx)
	s.Dispatch(Logout{})
}

func (s *Store) UpdateProfile(ctx context.Context, details auth.UserDetails) (*users.User, error) {
	user, err := s.auth.UpdateUserDetails(ctx, details)
	if err != nil {
		s.Dispatch(SetError{Message: ErrorMessage(err)})
		return nil, err
	}
	s.Dispatch(UpdateUser{User: user})
	return user, nil
}

// RefreshUser re-fetches the profile. A 401 means the session expired, so the store logs out
// and returns no error; any other failure is recorded and returned.
func (s *Store) RefreshUser(ctx context.Context) (*users.User, error) {
	user, err := s.auth.GetCurrentUser(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			s.Dispatch(Logout{})
			return nil, nil
		}
		s.Dispatch(SetError{Message: ErrorMessage(err)})
		return nil, err
	}
	s.Dispatch(UpdateUser{User: user})
	return user, nil
}

func (s *Store) ClearError() {
	s.Dispatch(ClearError{})
}

// ForceLogout resets to anonymous without calling the backend. The HTTP client calls it
// after a 401 has already cleared the token store.
func (s *Store) ForceLogout() {
	s.Dispatch(Logout{})
}

// ErrorMessage returns the text shown to the user for err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func snapshot(s State) State {
	s.User = s.User.Clone()
	return s
}
