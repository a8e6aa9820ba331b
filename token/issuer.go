package token

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-property-auth/internal/errors"
	"github.com/jrsteele09/go-property-auth/users"
	"github.com/pkg/errors"
)

// Issuer creates and verifies the session tokens handed out by the reference backend.
type Issuer struct {
	signer      Signer
	issuer      string
	expiry      time.Duration
	revocations RevocationList
	nowFunc     func() time.Time
}

type IssuerOption func(*Issuer)

func WithIssuerName(issuer string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = issuer
	}
}

func WithTokenExpiry(expiry time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.expiry = expiry
	}
}

func WithIssuerNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

// WithRevocationList replaces the in-memory revocation list, e.g. with a RedisRevocationList.
func WithRevocationList(list RevocationList) IssuerOption {
	return func(i *Issuer) {
		i.revocations = list
	}
}

func NewIssuer(signer Signer, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer: signer,
		issuer: "property-manager",
	}
	for _, opt := range options {
		opt(i)
	}
	if i.expiry == 0 {
		i.expiry = 24 * time.Hour
	}
	if i.nowFunc == nil {
		i.nowFunc = time.Now
	}
	if i.revocations == nil {
		i.revocations = NewMemoryRevocationList(i.nowFunc)
	}
	return i
}

// Issue signs a session token for user.
func (i *Issuer) Issue(user *users.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.Wrap(autherrors.ErrInvalidInput, "[Issuer.Issue] user is required")
	}

	now := i.nowFunc()
	claims := jwt.MapClaims{
		"iss":   i.issuer,                 // The issuer of the token
		"sub":   user.ID,                  // The subject, the user id
		"email": user.Email,               // Convenience copy of the email
		"role":  string(user.Role),        // Role at issue time
		"iat":   now.Unix(),               // Issued At
		"exp":   now.Add(i.expiry).Unix(), // Expiry
		"jti":   uuid.New().String(),      // Unique token ID for revocation
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.Issue] sign")
	}
	return signed, nil
}

// Verify checks the signature, expiry and revocation status of rawToken.
func (i *Issuer) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, autherrors.ErrInvalidToken
	}

	parsed, err := jwt.Parse(rawToken, i.signer.Keyfunc,
		jwt.WithValidMethods([]string{i.signer.Method().Alg()}),
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherrors.ErrTokenExpired
		}
		return nil, errors.Wrap(autherrors.ErrInvalidToken, err.Error())
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, autherrors.ErrInvalidToken
	}

	claims, err := claimsFromMap(mapClaims)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return claims, nil
	}
	revoked, err := i.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Issuer.Verify] revocation lookup")
	}
	if revoked {
		return nil, autherrors.ErrTokenRevoked
	}
	return claims, nil
}

// Revoke blocks rawToken until its natural expiry.
func (i *Issuer) Revoke(ctx context.Context, rawToken string) error {
	claims, err := i.Verify(ctx, rawToken)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return errors.Wrap(autherrors.ErrMissingTokenClaims, "[Issuer.Revoke] jti")
	}
	return i.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt)
}

// CleanupRevocations drops revocations of tokens that have expired anyway.
func (i *Issuer) CleanupRevocations(ctx context.Context) error {
	return i.revocations.Cleanup(ctx)
}
