package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/StoryTeller-v2/back-end/internal/transport/http/response"
	"github.com/StoryTeller-v2/back-end/internal/usecase"
)

// Header names carrying the two token categories.
const (
	AccessHeader  = "access"
	RefreshHeader = "refresh"
)

// Authenticate runs the access gate. A request without an access header
// continues unauthenticated; handlers that need a principal reject it.
func Authenticate(gate *usecase.AccessGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := gate.Evaluate(c.Request.URL.Path, c.GetHeader(AccessHeader))
		if err != nil {
			response.RespondWithMappedError(c, err)
			return
		}
		if principal != nil {
			SetPrincipal(c, principal)
		}
		c.Next()
	}
}
