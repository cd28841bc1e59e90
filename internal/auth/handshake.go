// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/models"
)

// UserIDHeader carries the caller-supplied identity when the dev override
// credential is used.
const UserIDHeader = "X-User-ID"

// UserSource resolves an authenticated subject to a stored user. A valid
// credential whose subject no longer exists must not yield a session.
type UserSource interface {
	User(ctx context.Context, id string) (*models.User, error)
}

// Authenticator resolves the user id for an incoming request at the
// websocket handshake or on an API call.
type Authenticator struct {
	jwt   *JWTManager
	users UserSource

	// overrideHash is the bcrypt hash of the shared dev credential.
	// Empty disables the override path entirely.
	overrideHash []byte
}

// NewAuthenticator creates an Authenticator. overrideHash may be empty;
// config validation guarantees it is empty in production.
func NewAuthenticator(jwtManager *JWTManager, users UserSource, overrideHash string) *Authenticator {
	return &Authenticator{
		jwt:          jwtManager,
		users:        users,
		overrideHash: []byte(overrideHash),
	}
}

// Authenticate extracts the bearer credential from the request, resolves
// it to a subject, and loads the subject's user record. The credential is
// read from the Authorization header or, for websocket handshakes where
// headers are awkward for browser clients, the "token" query parameter.
// A subject that does not resolve to a stored user is rejected the same
// as a bad credential.
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	credential := extractBearer(r)
	if credential == "" {
		return "", ErrNoCredentials
	}

	userID, err := a.resolveSubject(r, credential)
	if err != nil {
		return "", err
	}

	if _, err := a.users.User(r.Context(), userID); err != nil {
		logging.Debug().Err(err).Str("user_id", userID).Msg("authenticated subject did not resolve to a user")
		return "", fmt.Errorf("%w: unknown subject", ErrInvalidCredentials)
	}
	return userID, nil
}

func (a *Authenticator) resolveSubject(r *http.Request, credential string) (string, error) {
	if len(a.overrideHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(a.overrideHash, []byte(credential)); err == nil {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" {
				return "", ErrInvalidCredentials
			}
			logging.Debug().Str("user_id", userID).Msg("dev override credential accepted")
			return userID, nil
		}
	}

	return a.jwt.ValidateToken(credential)
}

// extractBearer pulls the token from the Authorization header or the
// "token" query parameter.
func extractBearer(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}
	return r.URL.Query().Get("token")
}

// HashOverrideToken produces the bcrypt hash to store in configuration
// for a dev override credential. Exposed for the gencred helper command.
func HashOverrideToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
