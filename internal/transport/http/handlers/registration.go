package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StoryTeller-v2/back-end/internal/transport/http/response"
	"github.com/StoryTeller-v2/back-end/internal/usecase"
)

// RegistrationHandler serves sign-up and the checks a client runs before it.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
	emails       *usecase.EmailVerificationService
}

func NewRegistrationHandler(registration *usecase.RegistrationService, emails *usecase.EmailVerificationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration, emails: emails}
}

// RegisterRoutes binds registration endpoints.
func (h *RegistrationHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/register", h.Register)
	r.POST("/username/verifications", h.VerifyUsername)
	r.POST("/emails/verification-requests", h.RequestEmailCode)
	r.POST("/emails/verifications", h.VerifyEmailCode)
}

// Register creates a local account from form fields or JSON.
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBind(&req); err != nil {
		response.RespondWithMappedError(c, bindError(err))
		return
	}

	user, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		response.RespondWithMappedError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, response.CodeRegister, "Registered.", localProfile(user))
}

// VerifyUsername reports whether a username can still be registered.
func (h *RegistrationHandler) VerifyUsername(c *gin.Context) {
	var req UsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondWithMappedError(c, bindError(err))
		return
	}

	available, err := h.registration.UsernameAvailable(c.Request.Context(), req.Username)
	if err != nil {
		response.RespondWithMappedError(c, err)
		return
	}

	response.Success(c, http.StatusOK, response.CodeVerifyUsername, "Username checked.", UsernameResult{
		Username:   req.Username,
		AuthResult: available,
	})
}

// RequestEmailCode mails a verification code to an unused address.
func (h *RegistrationHandler) RequestEmailCode(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondWithMappedError(c, bindError(err))
		return
	}

	if err := h.emails.SendCode(c.Request.Context(), req.Email); err != nil {
		response.RespondWithMappedError(c, err)
		return
	}

	response.Success(c, http.StatusOK, response.CodeVerificationRequest, "Verification code sent.", nil)
}

// VerifyEmailCode checks a code previously mailed to the address.
func (h *RegistrationHandler) VerifyEmailCode(c *gin.Context) {
	var req EmailCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondWithMappedError(c, bindError(err))
		return
	}

	ok, err := h.emails.VerifyCode(c.Request.Context(), req.Email, req.AuthCode)
	if err != nil {
		response.RespondWithMappedError(c, err)
		return
	}

	response.Success(c, http.StatusOK, response.CodeVerifyCode, "Verification code checked.", EmailCodeResult{
		Email:      req.Email,
		AuthCode:   req.AuthCode,
		AuthResult: ok,
	})
}
