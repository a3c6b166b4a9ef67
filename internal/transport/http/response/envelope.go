package response

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Success codes carried in the envelope's code field.
const (
	CodeLogin               = "SUCCESS_LOGIN"
	CodeGoogleLogin         = "SUCCESS_GOOGLE_LOGIN"
	CodeKakaoLogin          = "SUCCESS_KAKAO_LOGIN"
	CodeLogout              = "SUCCESS_LOGOUT"
	CodeReissue             = "SUCCESS_REISSUE"
	CodeRegister            = "SUCCESS_REGISTER"
	CodeVerifyUsername      = "SUCCESS_VERIFICATION_USERNAME"
	CodeVerificationRequest = "SUCCESS_VERIFICATION_REQUEST"
	CodeVerifyCode          = "SUCCESS_VERIFICATION_CODE"
	CodeTest                = "SUCCESS_TEST"
)

const timestampLayout = "2006-01-02 15:04:05"

// Envelope wraps every successful response body.
type Envelope struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorBody is written for every failed request.
type ErrorBody struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	TraceID   string `json:"traceId,omitempty"`
}

// Success writes data inside a success envelope.
func Success(c *gin.Context, status int, code, message string, data any) {
	c.JSON(status, Envelope{
		Status:  status,
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Fail aborts the request with an error body.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Timestamp: time.Now().Format(timestampLayout),
		Status:    status,
		Error:     StatusName(status),
		Code:      code,
		Message:   message,
		TraceID:   c.GetString("trace_id"),
	})
}

// StatusName renders the reason phrase as an upper snake identifier,
// e.g. 401 -> UNAUTHORIZED.
func StatusName(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "UNKNOWN"
	}
	text = strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text)
	return strings.ToUpper(text)
}
