package app

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-property-auth/auth"
	"github.com/jrsteele09/go-property-auth/authstate"
	"github.com/jrsteele09/go-property-auth/client"
	"github.com/jrsteele09/go-property-auth/internal/config"
	"github.com/jrsteele09/go-property-auth/storage"
	"github.com/jrsteele09/go-property-auth/token"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// LoginPath is where the application sends the user once a session has been invalidated.
const LoginPath = "/login"

// SessionFileName is the durable area file inside STORAGE_DIR.
const SessionFileName = "session.json"

// App wires the token store, HTTP client, auth service and auth state together.
type App struct {
	Tokens *token.Store
	Client *client.Client
	Auth   *auth.Service
	State  *authstate.Store
}

type options struct {
	navigate   func(ctx context.Context, path string)
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
	registerer prometheus.Registerer
	nowFunc    func() time.Time
}

type Option func(*options)

// WithNavigator is called with LoginPath after every 401.
func WithNavigator(navigate func(ctx context.Context, path string)) Option {
	return func(o *options) {
		o.navigate = navigate
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

// WithMetricsRegisterer registers the client metrics with reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithNowFunc sets the clock used for token expiry checks.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}

func New(cfg config.ClientConfig, durable, volatile storage.Area, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var storeOpts []token.StoreOption
	if o.nowFunc != nil {
		storeOpts = append(storeOpts, token.WithNowFunc(o.nowFunc))
	}
	a := &App{Tokens: token.NewStore(durable, volatile, storeOpts...)}

	clientOpts := []client.Option{
		client.WithTimeout(cfg.GetRequestTimeout()),
		client.WithMaxRetries(cfg.GetMaxRetries()),
		client.WithUnauthorizedHandler(a.sessionInvalidated(o.navigate)),
	}
	if base := cfg.GetRetryBackoffBase(); base > 0 {
		clientOpts = append(clientOpts, client.WithBackoffBase(base))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(o.httpClient))
	}
	if o.sleep != nil {
		clientOpts = append(clientOpts, client.WithSleepFunc(o.sleep))
	}
	if o.registerer != nil {
		clientOpts = append(clientOpts, client.WithMetrics(client.NewMetrics(o.registerer)))
	}

	c, err := client.New(cfg.GetAPIBaseURL(), a.Tokens, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "[app.New]")
	}
	a.Client = c

	a.Auth, err = auth.NewService(c, a.Tokens)
	if err != nil {
		return nil, errors.Wrap(err, "[app.New]")
	}
	a.State = authstate.NewStore(a.Auth)
	return a, nil
}

// sessionInvalidated runs after the client has cleared the token store on a 401.
func (a *App) sessionInvalidated(navigate func(ctx context.Context, path string)) func(ctx context.Context) {
	return func(ctx context.Context) {
		if a.Auth != nil {
			a.Auth.Forget()
		}
		if a.State != nil {
			a.State.ForceLogout()
		}
		if navigate != nil {
			navigate(ctx, LoginPath)
		}
	}
}

// OpenDurableArea returns the durable storage area selected by STORAGE_BACKEND and a function
// that releases it.
func OpenDurableArea(ctx context.Context, cfg config.ClientConfig) (storage.Area, func() error, error) {
	switch cfg.GetStorageBackend() {
	case config.StorageBackendRedis:
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.GetRedisAddr()})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, errors.Wrapf(err, "[app.OpenDurableArea] redis %s", cfg.GetRedisAddr())
		}
		log.Debug().Str("addr", cfg.GetRedisAddr()).Msg("Using redis session storage")
		return storage.NewRedisArea(rdb, cfg.GetRedisPrefix()), rdb.Close, nil
	case config.StorageBackendFile, "":
		path := filepath.Join(cfg.GetStorageDir(), SessionFileName)
		log.Debug().Str("path", path).Msg("Using file session storage")
		return storage.NewFileArea(path), func() error { return nil }, nil
	default:
		return nil, nil, errors.Errorf("[app.OpenDurableArea] unknown storage backend %q", cfg.GetStorageBackend())
	}
}
