package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StoryTeller-v2/back-end/internal/transport/http/response"
	"github.com/StoryTeller-v2/back-end/internal/usecase"
)

const logoutPath = "/logout"

type logoutRequest struct {
	Username  string `json:"username"`
	AccountID string `json:"accountId"`
}

// LogoutFilter answers POST /logout itself and stops the chain. Every other
// request passes through untouched.
func LogoutFilter(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.URL.Path != logoutPath {
			c.Next()
			return
		}
		c.Set(routeLabelKey, logoutPath)

		// A missing or malformed body leaves the assertion empty; the token
		// checks still run first and report their own errors.
		var req logoutRequest
		_ = c.ShouldBindJSON(&req)

		err := auth.Logout(c.Request.Context(), c.GetHeader(RefreshHeader), usecase.IdentityAssertion{
			Username:  req.Username,
			AccountID: req.AccountID,
		})
		if err != nil {
			response.RespondWithMappedError(c, err)
			return
		}

		response.Success(c, http.StatusOK, response.CodeLogout, "Logged out.", nil)
		c.Abort()
	}
}
