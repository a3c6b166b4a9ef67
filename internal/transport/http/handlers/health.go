package handlers

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports deployment info and backing service status.
type HealthHandler struct {
	env     string
	address string
	port    int
	checks  map[string]HealthCheck
}

// HealthOption configures optional HealthHandler checks.
type HealthOption func(*HealthHandler)

// WithHealthCheck adds a named dependency probe.
func WithHealthCheck(name string, check HealthCheck) HealthOption {
	return func(h *HealthHandler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(env, address string, port int, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{env: env, address: address, port: port, checks: make(map[string]HealthCheck)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Status answers GET /healthCheck. Any failing probe turns the response into 503.
func (h *HealthHandler) Status(c *gin.Context) {
	body := map[string]string{
		"env":           h.env,
		"serverAddress": h.address,
		"serverPort":    strconv.Itoa(h.port),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			_ = c.Error(err)
			body[name] = "DOWN"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "UP"
	}

	c.JSON(status, body)
}
