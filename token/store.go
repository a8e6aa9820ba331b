package token

import (
	"context"
	"encoding/json"
	"time"

	autherrors "github.com/jrsteele09/go-property-auth/internal/errors"
	"github.com/jrsteele09/go-property-auth/storage"
	"github.com/jrsteele09/go-property-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Storage keys. Each is present in at most one area at a time.
const (
	TokenKey = "authToken"
	UserKey  = "currentUser"
)

// Store is the only component that reads or writes the session token and the user snapshot.
// The token lives in the durable area when the caller asked to be remembered and in the
// volatile area otherwise, never in both. The user snapshot always sits next to the token.
type Store struct {
	durable  storage.Area
	volatile storage.Area
	decoder  ClaimsDecoder
	nowFunc  func() time.Time
}

type StoreOption func(*Store)

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func WithClaimsDecoder(decoder ClaimsDecoder) StoreOption {
	return func(s *Store) {
		s.decoder = decoder
	}
}

func NewStore(durable, volatile storage.Area, options ...StoreOption) *Store {
	s := &Store{
		durable:  durable,
		volatile: volatile,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.decoder == nil {
		s.decoder = NewJWTClaimsDecoder()
	}
	if s.nowFunc == nil {
		s.nowFunc = time.Now
	}
	return s
}

// SetToken writes token to the durable area when remember is true, otherwise to the volatile
// area, and purges the other area. A user snapshot found in the purged area moves across.
func (s *Store) SetToken(ctx context.Context, token string, remember bool) error {
	target, other := s.volatile, s.durable
	if remember {
		target, other = s.durable, s.volatile
	}

	if err := target.Set(ctx, TokenKey, token); err != nil {
		return errors.Wrap(err, "[Store.SetToken] write token")
	}

	if user, ok, err := other.Get(ctx, UserKey); err == nil && ok {
		if _, exists, _ := target.Get(ctx, UserKey); !exists {
			if err := target.Set(ctx, UserKey, user); err != nil {
				return errors.Wrap(err, "[Store.SetToken] move user")
			}
		}
	}

	if err := purge(ctx, other); err != nil {
		// The token must never sit in both areas
		if rollbackErr := purge(ctx, target); rollbackErr != nil {
			log.Err(rollbackErr).Msg("Failed to roll back token after purge failure")
		}
		return errors.Wrap(err, "[Store.SetToken] purge")
	}
	return nil
}

// GetToken returns the durable token if present, else the volatile token, else "".
func (s *Store) GetToken(ctx context.Context) (string, error) {
	area, err := s.tokenArea(ctx)
	if err != nil || area == nil {
		return "", err
	}
	token, _, err := area.Get(ctx, TokenKey)
	if err != nil {
		return "", errors.Wrap(err, "[Store.GetToken] read")
	}
	return token, nil
}

// RemoveToken purges the token and user snapshot from both areas.
func (s *Store) RemoveToken(ctx context.Context) error {
	var errs []error
	if err := purge(ctx, s.durable); err != nil {
		errs = append(errs, errors.Wrap(err, "[Store.RemoveToken] durable"))
	}
	if err := purge(ctx, s.volatile); err != nil {
		errs = append(errs, errors.Wrap(err, "[Store.RemoveToken] volatile"))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// IsTokenExpired reports whether token is unusable: absent, undecodable, without an expiry
// claim, or expiring at or before now.
func (s *Store) IsTokenExpired(token string) bool {
	if token == "" {
		return true
	}
	claims, err := s.decoder.Decode(token)
	if err != nil {
		log.Debug().Err(err).Msg("Token could not be decoded, treating as expired")
		return true
	}
	return !claims.ExpiresAt.After(s.nowFunc())
}

// SetUser writes the user snapshot into whichever area currently holds the token.
func (s *Store) SetUser(ctx context.Context, user *users.User) error {
	area, err := s.tokenArea(ctx)
	if err != nil {
		return err
	}
	if area == nil {
		return errors.Wrap(autherrors.ErrTokenNotFound, "[Store.SetUser]")
	}

	data, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[Store.SetUser] encode")
	}
	if err := area.Set(ctx, UserKey, string(data)); err != nil {
		return errors.Wrap(err, "[Store.SetUser] write")
	}
	return nil
}

// GetUser returns the user snapshot stored next to the token, or nil when there is none.
func (s *Store) GetUser(ctx context.Context) (*users.User, error) {
	area, err := s.tokenArea(ctx)
	if err != nil || area == nil {
		return nil, err
	}

	raw, ok, err := area.Get(ctx, UserKey)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.GetUser] read")
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var user users.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, errors.Wrap(autherrors.ErrCorruptUserRecord, err.Error())
	}
	return &user, nil
}

// Remembered reports whether the token lives in the durable area.
func (s *Store) Remembered(ctx context.Context) (bool, error) {
	_, ok, err := s.durable.Get(ctx, TokenKey)
	if err != nil {
		return false, errors.Wrap(err, "[Store.Remembered] read")
	}
	return ok, nil
}

// tokenArea returns the area holding the token, durable first, or nil.
func (s *Store) tokenArea(ctx context.Context) (storage.Area, error) {
	for _, area := range []storage.Area{s.durable, s.volatile} {
		token, ok, err := area.Get(ctx, TokenKey)
		if err != nil {
			return nil, errors.Wrap(err, "[Store.tokenArea] read")
		}
		if ok && token != "" {
			return area, nil
		}
	}
	return nil, nil
}

func purge(ctx context.Context, area storage.Area) error {
	if err := area.Remove(ctx, TokenKey); err != nil {
		return err
	}
	return area.Remove(ctx, UserKey)
}
