package auth

import "errors"

var (
	MissingTokenErr = errors.New("auth response did not include a token")
	MissingUserErr  = errors.New("auth response did not include a user")
)
