package main

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-property-auth/internal/config"
	"github.com/jrsteele09/go-property-auth/server"
	fakeuserrepo "github.com/jrsteele09/go-property-auth/users/repofake"
	"github.com/stretchr/testify/require"
)

func setupBackend(t *testing.T) {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("TOKEN_SECRET", "cli-test-secret")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("ADMIN_PASSWORD", "AdminPass123")
	t.Setenv("MAX_RETRIES", "0")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("STORAGE_DIR", t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	s, err := server.New(cfg, fakeuserrepo.NewFakeUserRepo())
	require.NoError(t, err)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	t.Setenv("API_BASE_URL", srv.URL)
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, &out)
	return out.String(), err
}

func TestRun_SessionLifecycle(t *testing.T) {
	setupBackend(t)

	out, err := runCmd(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Not signed in")

	out, err = runCmd(t, "login", "-email", "admin@example.com", "-password", "AdminPass123", "-remember")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as System Administrator (super_admin)")

	out, err = runCmd(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, `"email": "admin@example.com"`)

	out, err = runCmd(t, "nav")
	require.NoError(t, err)
	require.Contains(t, out, "Permissions")

	out, err = runCmd(t, "get", server.RouteAPIProperties)
	require.NoError(t, err)
	require.Contains(t, out, "Harbour View")

	out, err = runCmd(t, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")

	out, err = runCmd(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Not signed in")
}

func TestRun_Errors(t *testing.T) {
	setupBackend(t)

	_, err := runCmd(t, "login", "-email", "admin@example.com", "-password", "WrongPass123")
	require.EqualError(t, err, "Invalid credentials")

	_, err = runCmd(t, "teleport")
	require.ErrorContains(t, err, `unknown command "teleport"`)

	_, err = runCmd(t, "get")
	require.EqualError(t, err, "get needs exactly one path")

	out, err := runCmd(t, "register", "-first", "Tom", "-last", "Tenant", "-email", "tom@example.com", "-password", "Password123")
	require.NoError(t, err)
	require.Contains(t, out, "Registered tom@example.com (tenant)")
}
