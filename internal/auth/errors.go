package auth

import "errors"

var (
	// ErrInvalidCredentials is the single error every failed login collapses
	// to. Which internal path failed must never reach the client.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")

	// ErrInvalidToken covers expired, malformed and signature-mismatched
	// tokens uniformly.
	ErrInvalidToken = errors.New("auth: invalid token")

	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
)

// errNoMatch is returned by a credential resolver when the email does not
// belong to its scheme; the chain then tries the next resolver. The chain
// boundary folds it into ErrInvalidCredentials along with everything else.
var errNoMatch = errors.New("auth: no credential match")
