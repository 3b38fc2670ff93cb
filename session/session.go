package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

const (
	// CookieName is the cookie carrying the session identifier.
	CookieName = "sessionId"
	CookiePath = "/"
	MaxAge     = 7 * 24 * time.Hour

	// TokenBytes is the amount of crypto/rand entropy in a minted id.
	TokenBytes = 32
)

var ErrMissingSession = errors.New("missing session")

// NewToken returns TokenBytes random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Resolver mints and validates session identifiers. NewID defaults to
// NewToken.
type Resolver struct {
	NewID func() (string, error)
}

func NewResolver() *Resolver {
	return &Resolver{NewID: NewToken}
}

// ResolveOrCreate returns existing when it is set, otherwise a freshly
// minted identifier with isNew true. Callers are expected to hand a new
// identifier back to the client.
func (r *Resolver) ResolveOrCreate(existing string) (id string, isNew bool, err error) {
	if existing != "" {
		return existing, false, nil
	}
	newID := r.NewID
	if newID == nil {
		newID = NewToken
	}
	id, err = newID()
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Require fails with ErrMissingSession when nothing was presented.
func Require(presented string) (string, error) {
	if presented == "" {
		return "", ErrMissingSession
	}
	return presented, nil
}
