package usecase

import "errors"

var (
	// ErrTokenMissing indicates a required token header was absent.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenExpired indicates a correctly signed token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidAccessToken indicates the access token is malformed, forged, or not an access token.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrInvalidRefreshToken indicates the refresh token is malformed, of the wrong category, or has no live session.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrUserNotFound indicates the identity asserted in a request body does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials indicates the username or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRequestParsing indicates an unusable request body or an unknown auth method claim.
	ErrRequestParsing = errors.New("request parsing failed")
	// ErrInvalidIdentityToken indicates the social provider rejected the presented credential.
	ErrInvalidIdentityToken = errors.New("invalid identity token")
	// ErrDuplicateUsername indicates the username is already registered.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateEmail indicates the email is already used by another account.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrWeakPassword indicates the password fails the strength policy.
	ErrWeakPassword = errors.New("password too weak")
	// ErrInvalidInput indicates a field failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthenticated indicates the endpoint needs a principal and none was established.
	ErrUnauthenticated = errors.New("authentication required")
)
