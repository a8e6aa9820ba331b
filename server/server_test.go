package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-property-auth/internal/config"
	"github.com/jrsteele09/go-property-auth/server"
	"github.com/jrsteele09/go-property-auth/token"
	"github.com/jrsteele09/go-property-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-property-auth/users/repofake"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "AdminPass123"
)

type response struct {
	Success bool            `json:"success"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (r response) user(t *testing.T) users.User {
	t.Helper()
	var u users.User
	require.NoError(t, json.Unmarshal(r.Data, &u))
	return u
}

type testFixture struct {
	srv      *httptest.Server
	repo     *fakeuserrepo.FakeUserRepo
	now      time.Time
	nowLock  sync.Mutex
	resetsMu sync.Mutex
	resets   map[string]string // email -> latest reset token
}

func (f *testFixture) clock() time.Time {
	f.nowLock.Lock()
	defer f.nowLock.Unlock()
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.nowLock.Lock()
	defer f.nowLock.Unlock()
	f.now = f.now.Add(d)
}

func (f *testFixture) resetTokenFor(email string) string {
	f.resetsMu.Lock()
	defer f.resetsMu.Unlock()
	return f.resets[email]
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("TOKEN_EXPIRY", "1h")
	t.Setenv("RESET_TOKEN_EXPIRY", "10m")
	t.Setenv("ADMIN_EMAIL", adminEmail)
	t.Setenv("ADMIN_PASSWORD", adminPassword)
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo:   fakeuserrepo.NewFakeUserRepo(),
		now:    time.Now(),
		resets: make(map[string]string),
	}
	s, err := server.New(testConfig(t), f.repo,
		server.WithNowFunc(f.clock),
		server.WithResetNotifier(func(user *users.User, resetToken string) {
			f.resetsMu.Lock()
			defer f.resetsMu.Unlock()
			f.resets[user.Email] = resetToken
		}),
	)
	require.NoError(t, err)

	f.srv = httptest.NewServer(s)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *testFixture) call(t *testing.T, method, path, bearer string, body any) (int, response) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (f *testFixture) register(t *testing.T, email string, role users.RoleType) response {
	t.Helper()
	status, resp := f.call(t, http.MethodPost, server.RouteAuthRegister, "", map[string]any{
		"firstName": "Jane",
		"lastName":  "Tenant",
		"email":     email,
		"password":  "Password123",
		"role":      role,
	})
	require.Equal(t, http.StatusCreated, status, resp.Message)
	return resp
}

func (f *testFixture) login(t *testing.T, email, password string) (int, response) {
	t.Helper()
	return f.call(t, http.MethodPost, server.RouteAuthLogin, "", map[string]string{"email": email, "password": password})
}

func TestInitialiseSystem_SeedsSuperAdmin(t *testing.T) {
	f := setupTestFixture(t)

	status, resp := f.login(t, adminEmail, adminPassword)
	require.Equal(t, http.StatusOK, status)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)

	admin := resp.user(t)
	require.Equal(t, users.RoleSuperAdmin, admin.Role)
	require.Empty(t, admin.PasswordHash)
}

func TestNew_ExistingAdminIsNotRecreated(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	cfg := testConfig(t)

	_, err := server.New(cfg, repo)
	require.NoError(t, err)
	first, err := repo.GetByEmail(adminEmail)
	require.NoError(t, err)

	_, err = server.New(cfg, repo)
	require.NoError(t, err)
	second, err := repo.GetByEmail(adminEmail)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.PasswordHash, second.PasswordHash)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)

	status, resp := f.login(t, adminEmail, "WrongPass123")
	require.Equal(t, http.StatusUnauthorized, status)
	require.False(t, resp.Success)
	require.Equal(t, "Invalid credentials", resp.Message)

	status, resp = f.login(t, "nobody@example.com", adminPassword)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid credentials", resp.Message)

	status, resp = f.login(t, "not-an-email", adminPassword)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, resp.Message, "email")
}

func TestLogin_InactiveUser(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "jane@example.com", users.RoleTenant)
	require.NoError(t, f.repo.SetActive("jane@example.com", false))

	status, resp := f.login(t, "jane@example.com", "Password123")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Account is deactivated", resp.Message)
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.register(t, "Jane@Example.com", "")
	require.NotEmpty(t, resp.Token)
	user := resp.user(t)
	require.Equal(t, users.RoleTenant, user.Role)
	require.Equal(t, "jane@example.com", user.Email)
	require.True(t, user.IsActive)

	tests := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{
			name:    "duplicate email",
			body:    map[string]any{"firstName": "J", "lastName": "D", "email": "jane@example.com", "password": "Password123"},
			message: "User already exists",
		},
		{
			name:    "missing email",
			body:    map[string]any{"firstName": "J", "lastName": "D", "password": "Password123"},
			message: "Please add a email",
		},
		{
			name:    "weak password",
			body:    map[string]any{"firstName": "J", "lastName": "D", "email": "weak@example.com", "password": "password"},
			message: "password must contain at least one uppercase letter",
		},
		{
			name:    "staff role",
			body:    map[string]any{"firstName": "J", "lastName": "D", "email": "boss@example.com", "password": "Password123", "role": "admin"},
			message: "Role admin cannot be self-registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := f.call(t, http.MethodPost, server.RouteAuthRegister, "", tt.body)
			require.Equal(t, http.StatusBadRequest, status)
			require.False(t, resp.Success)
			require.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestMe(t *testing.T) {
	f := setupTestFixture(t)
	resp := f.register(t, "owner@example.com", users.RoleOwner)

	status, me := f.call(t, http.MethodGet, server.RouteAuthMe, resp.Token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "owner@example.com", me.user(t).Email)

	status, me = f.call(t, http.MethodGet, server.RouteAuthMe, "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.False(t, me.Success)

	status, _ = f.call(t, http.MethodGet, server.RouteAuthMe, "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestMe_ExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	resp := f.register(t, "owner@example.com", users.RoleOwner)

	f.advance(2 * time.Hour)
	status, me := f.call(t, http.MethodGet, server.RouteAuthMe, resp.Token, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Session expired", me.Message)
}

func TestLogout_RevokesToken(t *testing.T) {
	f := setupTestFixture(t)
	resp := f.register(t, "owner@example.com", users.RoleOwner)

	status, out := f.call(t, http.MethodGet, server.RouteAuthLogout, resp.Token, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Success)

	status, _ = f.call(t, http.MethodGet, server.RouteAuthMe, resp.Token, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	// Logging out without a usable token still succeeds
	status, _ = f.call(t, http.MethodGet, server.RouteAuthLogout, "", nil)
	require.Equal(t, http.StatusOK, status)
}

func TestUpdateDetails(t *testing.T) {
	f := setupTestFixture(t)
	resp := f.register(t, "owner@example.com", users.RoleOwner)
	f.register(t, "taken@example.com", users.RoleTenant)

	status, out := f.call(t, http.MethodPut, server.RouteAuthUpdateDetails, resp.Token, map[string]string{"firstName": "Olivia", "phone": "555-0100"})
	require.Equal(t, http.StatusOK, status)
	user := out.user(t)
	require.Equal(t, "Olivia", user.FirstName)
	require.Equal(t, "555-0100", user.Phone)
	require.Equal(t, "Tenant", user.LastName)

	status, out = f.call(t, http.MethodPut, server.RouteAuthUpdateDetails, resp.Token, map[string]string{"email": "taken@example.com"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Email already in use", out.Message)
}

func TestUpdatePassword(t *testing.T) {
	f := setupTestFixture(t)
	resp := f.register(t, "owner@example.com", users.RoleOwner)

	status, out := f.call(t, http.MethodPut, server.RouteAuthUpdatePassword, resp.Token, map[string]string{
		"currentPassword": "WrongPass123",
		"newPassword":     "NewPassword456",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Password is incorrect", out.Message)

	status, out = f.call(t, http.MethodPut, server.RouteAuthUpdatePassword, resp.Token, map[string]string{
		"currentPassword": "Password123",
		"newPassword":     "NewPassword456",
	})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, out.Token)
	require.NotEqual(t, resp.Token, out.Token)

	status, _ = f.call(t, http.MethodGet, server.RouteAuthMe, resp.Token, nil)
	require.Equal(t, http.StatusUnauthorized, status, "replaced token is revoked")
	status, _ = f.call(t, http.MethodGet, server.RouteAuthMe, out.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = f.login(t, "owner@example.com", "NewPassword456")
	require.Equal(t, http.StatusOK, status)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "tenant@example.com", users.RoleTenant)

	status, out := f.call(t, http.MethodPost, server.RouteAuthForgotPassword, "", map[string]string{"email": "tenant@example.com"})
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Success)
	resetToken := f.resetTokenFor("tenant@example.com")
	require.NotEmpty(t, resetToken)

	// Unknown emails get the same answer
	status, _ = f.call(t, http.MethodPost, server.RouteAuthForgotPassword, "", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusOK, status)

	status, out = f.call(t, http.MethodPut, "/auth/resetpassword/"+resetToken, "", map[string]string{"password": "weak"})
	require.Equal(t, http.StatusBadRequest, status)

	status, out = f.call(t, http.MethodPut, "/auth/resetpassword/"+resetToken, "", map[string]string{"password": "ResetPass789"})
	require.Equal(t, http.StatusOK, status, out.Message)
	require.NotEmpty(t, out.Token)

	status, out = f.call(t, http.MethodPut, "/auth/resetpassword/"+resetToken, "", map[string]string{"password": "ResetPass789"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid token", out.Message)

	status, _ = f.login(t, "tenant@example.com", "ResetPass789")
	require.Equal(t, http.StatusOK, status)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "tenant@example.com", users.RoleTenant)

	f.call(t, http.MethodPost, server.RouteAuthForgotPassword, "", map[string]string{"email": "tenant@example.com"})
	resetToken := f.resetTokenFor("tenant@example.com")

	f.advance(11 * time.Minute)
	status, out := f.call(t, http.MethodPut, "/auth/resetpassword/"+resetToken, "", map[string]string{"password": "ResetPass789"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid token", out.Message)
}

func TestProperties_StaffOnly(t *testing.T) {
	f := setupTestFixture(t)
	tenant := f.register(t, "tenant@example.com", users.RoleTenant)
	owner := f.register(t, "owner@example.com", users.RoleOwner)

	status, out := f.call(t, http.MethodGet, server.RouteAPIProperties, tenant.Token, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Contains(t, out.Message, "tenant")

	status, out = f.call(t, http.MethodGet, server.RouteAPIProperties, owner.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var properties []server.Property
	require.NoError(t, json.Unmarshal(out.Data, &properties))
	require.NotEmpty(t, properties)

	status, _ = f.call(t, http.MethodGet, server.RouteAPIProperties, "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestCorsAndRequestID(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+server.RouteAuthLogin, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")

	req, err = http.NewRequest(http.MethodOptions, f.srv.URL+server.RouteAuthLogin, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, f.srv.URL+server.RouteAuthLogout, nil)
	require.NoError(t, err)
	req.Header.Set(server.RequestIDHeader, "req-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "req-123", resp.Header.Get(server.RequestIDHeader))

	resp, err = http.Get(f.srv.URL + server.RouteAuthLogout)
	require.NoError(t, err)
	resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get(server.RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, adminEmail, adminPassword)

	resp, err := http.Get(f.srv.URL + server.RouteMetrics)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), "propauth_server_request_duration_seconds"))
	require.Contains(t, string(body), `route="POST /auth/login"`)
}

func TestLogout_SharedRevocationList(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig(t)
	repo := fakeuserrepo.NewFakeUserRepo()
	newInstance := func() *httptest.Server {
		s, err := server.New(cfg, repo, server.WithRevocationList(token.NewRedisRevocationList(rdb, "propauth:", nil)))
		require.NoError(t, err)
		srv := httptest.NewServer(s)
		t.Cleanup(srv.Close)
		return srv
	}
	first := &testFixture{srv: newInstance(), repo: repo}
	second := &testFixture{srv: newInstance(), repo: repo}

	_, resp := first.login(t, adminEmail, adminPassword)
	require.NotEmpty(t, resp.Token)

	status, _ := second.call(t, http.MethodGet, server.RouteAuthMe, resp.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = first.call(t, http.MethodGet, server.RouteAuthLogout, resp.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = second.call(t, http.MethodGet, server.RouteAuthMe, resp.Token, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}
