package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StoryTeller-v2/back-end/internal/usecase"
)

// ErrorCase maps a sentinel error to a status, a taxonomy code and a message.
type ErrorCase struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// Internal is the fallback for errors outside the taxonomy. It never
// carries details of the underlying failure.
var Internal = ErrorCase{
	Status:  http.StatusInternalServerError,
	Code:    "INTERNAL_SERVER_ERROR",
	Message: "An unexpected error occurred.",
}

// Cases is the error taxonomy shared by middleware and handlers.
var Cases = []ErrorCase{
	{usecase.ErrTokenMissing, http.StatusBadRequest, "TOKEN_MISSING", "The token is missing."},
	{usecase.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", "The token has expired."},
	{usecase.ErrInvalidAccessToken, http.StatusUnauthorized, "INVALID_ACCESS_TOKEN", "The access token is invalid."},
	{usecase.ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "The refresh token is invalid."},
	{usecase.ErrUserNotFound, http.StatusUnauthorized, "USER_NOT_FOUND", "The user could not be found."},
	{usecase.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password."},
	{usecase.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required."},
	{usecase.ErrRequestParsing, http.StatusBadRequest, "REQUEST_PARSING", "The request could not be parsed."},
	{usecase.ErrInvalidIdentityToken, http.StatusUnauthorized, "INVALID_ID_TOKEN", "The identity token is invalid."},
	{usecase.ErrDuplicateUsername, http.StatusConflict, "DUPLICATE_USERNAME", "The username is already in use."},
	{usecase.ErrDuplicateEmail, http.StatusConflict, "DUPLICATE_EMAIL", "The email is already in use."},
	{usecase.ErrWeakPassword, http.StatusBadRequest, "WEAK_PASSWORD", "The password is too weak."},
	{usecase.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT", "The input is invalid."},
}

// Resolve finds the case for err, falling back to Internal.
func Resolve(err error, cases ...ErrorCase) ErrorCase {
	if len(cases) == 0 {
		cases = Cases
	}
	for _, cs := range cases {
		if cs.Err != nil && errors.Is(err, cs.Err) {
			return cs
		}
	}
	return Internal
}

// RespondWithMappedError aborts the request with the envelope for err.
// Errors outside the taxonomy are attached to the gin context for the
// access log and answered with a generic 500.
func RespondWithMappedError(c *gin.Context, err error, cases ...ErrorCase) {
	cs := Resolve(err, cases...)
	if cs.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	Fail(c, cs.Status, cs.Code, cs.Message)
}
