package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StoryTeller-v2/back-end/internal/transport/http/middleware"
	"github.com/StoryTeller-v2/back-end/internal/transport/http/response"
	"github.com/StoryTeller-v2/back-end/internal/usecase"
)

// WhoAmI echoes the principal the gate attached to the request.
func WhoAmI(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.RespondWithMappedError(c, usecase.ErrUnauthenticated)
		return
	}
	response.Success(c, http.StatusOK, response.CodeTest, "Authenticated.", PrincipalView{
		Subject:    p.Subject,
		AuthMethod: string(p.Method),
		Role:       p.Role,
	})
}
