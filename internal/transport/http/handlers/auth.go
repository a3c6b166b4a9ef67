package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StoryTeller-v2/back-end/internal/infra/social"
	"github.com/StoryTeller-v2/back-end/internal/transport/http/middleware"
	"github.com/StoryTeller-v2/back-end/internal/transport/http/response"
	"github.com/StoryTeller-v2/back-end/internal/usecase"
)

// AuthHandler serves login, social login and token reissue.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds the authentication routes.
func (h *AuthHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/login", h.Login)
	r.POST("/google-login", h.GoogleLogin)
	r.POST("/kakao-login", h.KakaoLogin)
	r.POST("/reissue", h.Reissue)
}

// Login checks form credentials and returns a fresh token pair in headers.
func (h *AuthHandler) Login(c *gin.Context) {
	var form LoginForm
	// Unreadable forms fall through to the credential check, which rejects
	// empty values like any other bad login.
	_ = c.ShouldBind(&form)

	result, err := h.auth.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		response.RespondWithMappedError(c, err)
		return
	}
	h.respondWithTokens(c, result, response.CodeLogin, "Logged in.")
}

// GoogleLogin exchanges a Google id token for a session.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondWithMappedError(c, bindError(err))
		return
	}

	result, err := h.auth.SocialLogin(c.Request.Context(), social.ProviderGoogle, req.IDToken, req.Role)
	if err != nil {
		response.RespondWithMappedError(c, err)
		return
	}
	h.respondWithTokens(c, result, response.CodeGoogleLogin, "Logged in with Google.")
}

// KakaoLogin exchanges a Kakao access token for a session.
func (h *AuthHandler) KakaoLogin(c *gin.Context) {
	var req KakaoLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondWithMappedError(c, bindError(err))
		return
	}

	result, err := h.auth.SocialLogin(c.Request.Context(), social.ProviderKakao, req.AccessToken, req.Role)
	if err != nil {
		response.RespondWithMappedError(c, err)
		return
	}
	h.respondWithTokens(c, result, response.CodeKakaoLogin, "Logged in with Kakao.")
}

// Reissue rotates the refresh token presented in the refresh header.
func (h *AuthHandler) Reissue(c *gin.Context) {
	var req IdentityRequest
	// An unreadable body leaves the assertion empty; the service checks the
	// token first and then rejects the empty assertion.
	_ = c.ShouldBindJSON(&req)

	result, err := h.auth.Reissue(c.Request.Context(), c.GetHeader(middleware.RefreshHeader), usecase.IdentityAssertion{
		Username:  req.Username,
		AccountID: req.AccountID,
	})
	if err != nil {
		response.RespondWithMappedError(c, err)
		return
	}
	h.respondWithTokens(c, result, response.CodeReissue, "Tokens reissued.")
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, result *usecase.LoginResult, code, message string) {
	c.Header(middleware.AccessHeader, result.Tokens.AccessToken)
	c.Header(middleware.RefreshHeader, result.Tokens.RefreshToken)
	response.Success(c, http.StatusOK, code, message, profileOf(result.Identity))
}
