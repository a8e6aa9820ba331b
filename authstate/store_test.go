package authstate_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/jrsteele09/go-property-auth/auth"
	"github.com/jrsteele09/go-property-auth/authstate"
	"github.com/jrsteele09/go-property-auth/client"
	"github.com/jrsteele09/go-property-auth/users"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeAuthenticator returns canned results and records logout calls.
type fakeAuthenticator struct {
	authenticated bool
	user          *users.User
	panicOnCheck  bool

	loginErr    error
	registerErr error
	refreshErr  error
	updateErr   error

	logouts int
}

func (f *fakeAuthenticator) IsUserAuthenticated(ctx context.Context) bool {
	if f.panicOnCheck {
		panic("corrupt storage")
	}
	return f.authenticated
}

func (f *fakeAuthenticator) CurrentUser() *users.User {
	return f.user.Clone()
}

func (f *fakeAuthenticator) Login(ctx context.Context, email, password string, remember bool) (*users.User, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.user.Clone(), nil
}

func (f *fakeAuthenticator) Register(ctx context.Context, req auth.RegisterRequest) (*users.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &users.User{ID: "user-2", Email: req.Email, Role: users.RoleTenant}, nil
}

func (f *fakeAuthenticator) Logout(ctx context.Context) {
	f.logouts++
}

func (f *fakeAuthenticator) GetCurrentUser(ctx context.Context) (*users.User, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.user.Clone(), nil
}

func (f *fakeAuthenticator) UpdateUserDetails(ctx context.Context, details auth.UserDetails) (*users.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u := f.user.Clone()
	u.FirstName = details.FirstName
	return u, nil
}

func TestStore_InitializeAuthenticated(t *testing.T) {
	store := authstate.NewStore(&fakeAuthenticator{authenticated: true, user: manager})
	require.True(t, store.State().IsLoading)

	store.Initialize(context.Background())

	state := store.State()
	require.False(t, state.IsLoading)
	require.True(t, state.IsAuthenticated)
	require.Equal(t, manager.ID, state.User.ID)
}

func TestStore_InitializeRecoversToAnonymous(t *testing.T) {
	store := authstate.NewStore(&fakeAuthenticator{panicOnCheck: true, user: manager})

	require.NotPanics(t, func() { store.Initialize(context.Background()) })
	require.Equal(t, authstate.State{}, store.State())
}

func TestStore_LoginFailureDispatchesThenReturns(t *testing.T) {
	rejected := &client.APIError{Message: "Invalid credentials", Status: http.StatusUnauthorized}
	store := authstate.NewStore(&fakeAuthenticator{loginErr: rejected})

	var seen []authstate.State
	unsubscribe := store.Subscribe(func(s authstate.State) { seen = append(seen, s) })
	defer unsubscribe()

	_, err := store.Login(context.Background(), "john.doe@example.com", "wrong", false)
	require.Equal(t, rejected, err)

	require.Len(t, seen, 2)
	require.True(t, seen[0].IsLoading)
	require.Equal(t, authstate.State{Error: "Invalid credentials"}, seen[1])
	require.Equal(t, "Invalid credentials", store.State().Error)
}

func TestStore_LoginAndLogout(t *testing.T) {
	fake := &fakeAuthenticator{user: manager}
	store := authstate.NewStore(fake)
	ctx := context.Background()

	user, err := store.Login(ctx, "john.doe@example.com", "Password123", true)
	require.NoError(t, err)
	require.Equal(t, manager.ID, user.ID)
	require.True(t, store.State().IsAuthenticated)

	store.Logout(ctx)
	require.Equal(t, 1, fake.logouts)
	require.Equal(t, authstate.State{}, store.State())
}

func TestStore_Register(t *testing.T) {
	store := authstate.NewStore(&fakeAuthenticator{})
	ctx := context.Background()

	user, err := store.Register(ctx, auth.RegisterRequest{Email: "new.tenant@example.com"})
	require.NoError(t, err)
	require.Equal(t, users.RoleTenant, user.Role)
	require.True(t, store.State().HasRole(users.RoleTenant))

	failing := authstate.NewStore(&fakeAuthenticator{registerErr: errors.New("User already exists")})
	_, err = failing.Register(ctx, auth.RegisterRequest{Email: "new.tenant@example.com"})
	require.EqualError(t, err, "User already exists")
	require.Equal(t, authstate.State{Error: "User already exists"}, failing.State())
}

func TestStore_RefreshUser(t *testing.T) {
	ctx := context.Background()

	t.Run("unauthorized logs out without error", func(t *testing.T) {
		fake := &fakeAuthenticator{authenticated: true, user: manager}
		store := authstate.NewStore(fake)
		store.Initialize(ctx)

		fake.refreshErr = &client.APIError{Message: "Not authorized", Status: http.StatusUnauthorized}
		user, err := store.RefreshUser(ctx)
		require.NoError(t, err)
		require.Nil(t, user)
		require.Equal(t, authstate.State{}, store.State())
	})

	t.Run("other failures set the error and propagate", func(t *testing.T) {
		fake := &fakeAuthenticator{authenticated: true, user: manager}
		store := authstate.NewStore(fake)
		store.Initialize(ctx)

		fake.refreshErr = &client.APIError{Message: "Server error", Status: http.StatusInternalServerError}
		_, err := store.RefreshUser(ctx)
		require.Error(t, err)

		state := store.State()
		require.True(t, state.IsAuthenticated)
		require.Equal(t, "Server error", state.Error)

		store.ClearError()
		require.Empty(t, store.State().Error)
	})

	t.Run("success replaces the user", func(t *testing.T) {
		fake := &fakeAuthenticator{authenticated: true, user: manager}
		store := authstate.NewStore(fake)
		store.Initialize(ctx)

		fake.user = &users.User{ID: manager.ID, FirstName: "Jane", Role: users.RoleManager}
		user, err := store.RefreshUser(ctx)
		require.NoError(t, err)
		require.Equal(t, "Jane", user.FirstName)
		require.Equal(t, "Jane", store.State().User.FirstName)
	})
}

func TestStore_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAuthenticator{authenticated: true, user: manager}
	store := authstate.NewStore(fake)
	store.Initialize(ctx)

	user, err := store.UpdateProfile(ctx, auth.UserDetails{FirstName: "Jonathan"})
	require.NoError(t, err)
	require.Equal(t, "Jonathan", user.FirstName)
	require.True(t, store.State().IsAuthenticated)

	fake.updateErr = errors.New("Email already in use")
	_, err = store.UpdateProfile(ctx, auth.UserDetails{Email: "taken@example.com"})
	require.Error(t, err)
	require.Equal(t, "Email already in use", store.State().Error)
	require.True(t, store.State().IsAuthenticated)
}

func TestStore_ForceLogoutDoesNotCallBackend(t *testing.T) {
	fake := &fakeAuthenticator{authenticated: true, user: manager}
	store := authstate.NewStore(fake)
	store.Initialize(context.Background())

	store.ForceLogout()
	require.Zero(t, fake.logouts)
	require.False(t, store.State().IsAuthenticated)
}

func TestStore_Unsubscribe(t *testing.T) {
	store := authstate.NewStore(&fakeAuthenticator{})

	var calls int
	unsubscribe := store.Subscribe(func(authstate.State) { calls++ })
	store.ClearError()
	unsubscribe()
	store.ClearError()
	require.Equal(t, 1, calls)
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	store := authstate.NewStore(&fakeAuthenticator{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				store.Dispatch(authstate.LoginSuccess{User: manager})
			} else {
				store.Dispatch(authstate.Logout{})
			}
		}(i)
	}
	wg.Wait()

	state := store.State()
	require.Equal(t, state.User != nil, state.IsAuthenticated)
}
