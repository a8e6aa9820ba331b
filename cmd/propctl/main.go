package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-property-auth/access"
	"github.com/jrsteele09/go-property-auth/app"
	"github.com/jrsteele09/go-property-auth/auth"
	"github.com/jrsteele09/go-property-auth/authstate"
	"github.com/jrsteele09/go-property-auth/client"
	"github.com/jrsteele09/go-property-auth/internal/config"
	"github.com/jrsteele09/go-property-auth/storage"
	"github.com/jrsteele09/go-property-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const usage = `usage: propctl <command> [flags]

commands:
  login     -email -password [-remember]   sign in
  register  -first -last -email -password [-phone] [-role]
  whoami                                    show the signed in user
  logout                                    sign out and clear the stored session
  nav                                       list the menu for the signed in user
  get       <path>                          call a protected API path
  forgot    -email                          request a password reset
  reset     -token -password                set a new password with a reset token
  passwd    -current -new                   change the password
`

type command func(ctx context.Context, a *app.App, args []string, out io.Writer) error

var commands = map[string]command{
	"login":    loginCmd,
	"register": registerCmd,
	"whoami":   whoamiCmd,
	"logout":   logoutCmd,
	"nav":      navCmd,
	"get":      getCmd,
	"forgot":   forgotCmd,
	"reset":    resetCmd,
	"passwd":   passwdCmd,
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "propctl:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		displayAppname("propctl")
		fmt.Fprint(out, usage)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(out, usage)
		return errors.Errorf("unknown command %q", args[0])
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	config.SetupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	durable, closeArea, err := app.OpenDurableArea(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeArea(); err != nil {
			log.Warn().Err(err).Msg("Failed to close session storage")
		}
	}()

	a, err := app.New(cfg, durable, storage.NewMemoryArea(), app.WithNavigator(func(_ context.Context, path string) {
		fmt.Fprintf(out, "Session is no longer valid, sign in again (%s)\n", path)
	}))
	if err != nil {
		return err
	}
	a.State.Initialize(ctx)
	return cmd(ctx, a, args[1:], out)
}

func loginCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	remember := fs.Bool("remember", false, "keep the session after this command exits")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.State.Login(ctx, *email, *password, *remember)
	if err != nil {
		return errors.New(a.State.State().Error)
	}
	fmt.Fprintf(out, "Signed in as %s (%s)\n", user.FullName(), user.Role)
	if !*remember {
		fmt.Fprintln(out, "Session was not remembered and ends with this command")
	}
	return nil
}

func registerCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var req auth.RegisterRequest
	var role string
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Password, "password", "", "account password")
	fs.StringVar(&req.Phone, "phone", "", "contact number")
	fs.StringVar(&role, "role", "", "tenant or owner")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.Role = users.RoleType(role)

	user, err := a.State.Register(ctx, req)
	if err != nil {
		return errors.New(a.State.State().Error)
	}
	fmt.Fprintf(out, "Registered %s (%s); run propctl login -remember to keep a session\n", user.Email, user.Role)
	return nil
}

func whoamiCmd(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	if !a.State.State().Authenticated() {
		fmt.Fprintln(out, "Not signed in")
		return nil
	}
	user, err := a.State.RefreshUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return printJSON(out, user)
}

func logoutCmd(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	a.State.Logout(ctx)
	fmt.Fprintln(out, "Signed out")
	return nil
}

func navCmd(_ context.Context, a *app.App, _ []string, out io.Writer) error {
	state := a.State.State()
	if !state.Authenticated() {
		fmt.Fprintln(out, "Not signed in")
		return nil
	}
	for _, item := range access.NavigationItems(state.User.Role) {
		fmt.Fprintf(out, "%-12s %-24s %s\n", item.Name, item.Path, item.Icon)
	}
	return nil
}

func getCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("get needs exactly one path")
	}
	resp, err := a.Client.Do(ctx, client.Request{Method: http.MethodGet, Path: args[0]})
	if err != nil {
		return errors.New(authstate.ErrorMessage(err))
	}
	var body any
	if err := resp.Decode(&body); err != nil {
		_, err = out.Write(append(resp.Body, '\n'))
		return err
	}
	return printJSON(out, body)
}

func forgotCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("forgot", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.Auth.ForgotPassword(ctx, *email); err != nil {
		return errors.New(authstate.ErrorMessage(err))
	}
	fmt.Fprintln(out, "If the account exists a reset token has been sent")
	return nil
}

func resetCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	resetToken := fs.String("token", "", "reset token")
	password := fs.String("password", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.Auth.ResetPassword(ctx, *resetToken, *password); err != nil {
		return errors.New(authstate.ErrorMessage(err))
	}
	fmt.Fprintln(out, "Password reset, sign in with the new password")
	return nil
}

func passwdCmd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	current := fs.String("current", "", "current password")
	next := fs.String("new", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !a.State.State().Authenticated() {
		return errors.New("not signed in")
	}
	if err := a.Auth.UpdatePassword(ctx, *current, *next); err != nil {
		return errors.New(authstate.ErrorMessage(err))
	}
	fmt.Fprintln(out, "Password changed")
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
