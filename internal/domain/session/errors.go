package session

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotActive      = errors.New("refresh record is not active")
	ErrRecordNotFound = errors.New("refresh record not found")
	ErrUnsupported    = errors.New("operation not supported by refresh strategy")
)

type Kind string

const (
	KindInvalidCredentials   Kind = "invalid_credentials"
	KindIdentityConflict     Kind = "identity_conflict"
	KindInvalidRefreshToken  Kind = "invalid_refresh_token"
	KindRefreshTokenRevoked  Kind = "refresh_token_revoked"
	KindAccountBanned        Kind = "account_banned"
	KindAccountSuspended     Kind = "account_suspended"
	KindInvalidExternalToken Kind = "invalid_external_token"
	KindUnverifiedEmail      Kind = "unverified_email"
	KindPasswordAlreadySet   Kind = "password_already_set"
	KindUserNotFound         Kind = "user_not_found"
)

// AuthError is a domain-level rejection. The message is safe to show to callers.
type AuthError struct {
	Kind    Kind
	Message string
}

func (e *AuthError) Error() string { return e.Message }

var (
	ErrInvalidCredentials   = &AuthError{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
	ErrIdentityConflict     = &AuthError{Kind: KindIdentityConflict, Message: "Registration failed"}
	ErrInvalidRefreshToken  = &AuthError{Kind: KindInvalidRefreshToken, Message: "Invalid refresh token"}
	ErrRefreshTokenRevoked  = &AuthError{Kind: KindRefreshTokenRevoked, Message: "Refresh token has been revoked"}
	ErrAccountBanned        = &AuthError{Kind: KindAccountBanned, Message: "User account is banned"}
	ErrAccountSuspended     = &AuthError{Kind: KindAccountSuspended, Message: "User account is suspended"}
	ErrInvalidExternalToken = &AuthError{Kind: KindInvalidExternalToken, Message: "Invalid Google ID token"}
	ErrUnverifiedEmail      = &AuthError{Kind: KindUnverifiedEmail, Message: "Google account email is not verified"}
	ErrPasswordAlreadySet   = &AuthError{Kind: KindPasswordAlreadySet, Message: "User already has a password"}
	ErrUserNotFound         = &AuthError{Kind: KindUserNotFound, Message: "User not found"}
)

func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// ValidationError carries field -> messages for malformed input.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// OrNil returns e as an error only when at least one field failed.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
