package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-property-auth/internal/errors"
	"github.com/jrsteele09/go-property-auth/users"
	"github.com/pkg/errors"
)

// Claims are the parts of a session token the client and backend care about.
type Claims struct {
	ID        string         // jti, unique token id used for revocation
	Subject   string         // User id
	Email     string         // User email
	Role      users.RoleType // Role at the time the token was issued
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ClaimsDecoder reads claims out of a raw token without any trust decision.
type ClaimsDecoder interface {
	Decode(rawToken string) (*Claims, error)
}

// JWTClaimsDecoder decodes JWT payloads without verifying the signature. The client cannot
// verify a backend signature; it only needs the expiry to decide whether to send the token.
type JWTClaimsDecoder struct {
	parser *jwt.Parser
}

var _ ClaimsDecoder = JWTClaimsDecoder{}

func NewJWTClaimsDecoder() JWTClaimsDecoder {
	return JWTClaimsDecoder{parser: jwt.NewParser()}
}

func (d JWTClaimsDecoder) Decode(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, autherrors.ErrInvalidToken
	}

	parser := d.parser
	if parser == nil {
		parser = jwt.NewParser()
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(rawToken, claims); err != nil {
		return nil, errors.Wrap(autherrors.ErrInvalidToken, err.Error())
	}
	return claimsFromMap(claims)
}

func claimsFromMap(claims jwt.MapClaims) (*Claims, error) {
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, errors.Wrap(autherrors.ErrInvalidToken, err.Error())
	}
	if exp == nil {
		return nil, autherrors.ErrMissingTokenClaims
	}

	c := &Claims{ExpiresAt: exp.Time}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	c.Subject, _ = claims.GetSubject()
	c.ID, _ = claims["jti"].(string)
	c.Email, _ = claims["email"].(string)
	if role, ok := claims["role"].(string); ok {
		c.Role = users.RoleType(role)
	}
	return c, nil
}
