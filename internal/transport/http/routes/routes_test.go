package routes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/infra/config"
	"github.com/StoryTeller-v2/back-end/internal/infra/kafka"
	"github.com/StoryTeller-v2/back-end/internal/infra/security"
	"github.com/StoryTeller-v2/back-end/internal/infra/telemetry"
	redisrepo "github.com/StoryTeller-v2/back-end/internal/repository/redis"
	"github.com/StoryTeller-v2/back-end/internal/transport/http/middleware"
	httproutes "github.com/StoryTeller-v2/back-end/internal/transport/http/routes"
	"github.com/StoryTeller-v2/back-end/internal/usecase"
)

const (
	testSecret    = "0123456789abcdef0123456789abcdef"
	alicePassword = "wonderland-rabbit-hole-42"
	accessTTL     = 24 * time.Hour
	refreshTTL    = 14 * 24 * time.Hour
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type server struct {
	router *gin.Engine
	clock  *clock
	redis  *miniredis.Miniredis
	mailer *capturingMailer
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	codec, err := security.NewTokenCodec([]byte(testSecret), security.WithClock(clk.Now))
	require.NoError(t, err)

	hasher, err := security.NewArgon2Hasher(port.Argon2Params{
		Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)

	hash, err := hasher.Hash(alicePassword)
	require.NoError(t, err)
	locals := newMemoryLocalUsers()
	require.NoError(t, locals.Create(context.Background(), domain.LocalUser{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         domain.DefaultRole,
	}))
	socials := newMemorySocialUsers()

	log := zaptest.NewLogger(t)
	registry := prometheus.NewRegistry()
	authMetrics, err := telemetry.NewAuthMetrics(registry)
	require.NoError(t, err)
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	require.NoError(t, err)

	events := kafka.NewStubPublisher(log)
	auth, err := usecase.NewAuthService(usecase.AuthDependencies{
		Credentials: usecase.NewCredentialVerifier(locals, hasher),
		LocalUsers:  locals,
		SocialUsers: socials,
		Social:      stubProviders{},
		Sessions:    redisrepo.NewSessionStore(client, refreshTTL),
		Codec:       codec,
		Events:      events,
		Metrics:     authMetrics,
		Logger:      log,
		AccessTTL:   accessTTL,
		RefreshTTL:  refreshTTL,
	})
	require.NoError(t, err)

	gate, err := usecase.NewAccessGate(codec)
	require.NoError(t, err)

	mailer := &capturingMailer{}
	router, err := httproutes.Register(httproutes.Dependencies{
		Config: &config.AppConfig{App: config.AppSettings{Env: "test", Host: "127.0.0.1", Port: 8080}},
		Logger: log,
		Services: httproutes.ServiceSet{
			Auth:         auth,
			Registration: usecase.NewRegistrationService(locals, socials, hasher, security.DefaultStrengthPolicy(), events, authMetrics, log),
			Emails:       usecase.NewEmailVerificationService(locals, socials, redisrepo.NewVerificationCodeStore(client), mailer, 30*time.Minute, log),
		},
		Gate:           gate,
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Cache:          pingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() }),
	})
	require.NoError(t, err)

	return &server{router: router, clock: clk, redis: mr, mailer: mailer}
}

type request struct {
	method  string
	path    string
	json    any
	form    url.Values
	headers map[string]string
}

func (s *server) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	switch {
	case r.form != nil:
		req = httptest.NewRequest(r.method, r.path, strings.NewReader(r.form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	case r.json != nil:
		raw, err := json.Marshal(r.json)
		require.NoError(t, err)
		req = httptest.NewRequest(r.method, r.path, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	default:
		req = httptest.NewRequest(r.method, r.path, nil)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *server) login(t *testing.T) (access, refresh string) {
	t.Helper()
	rr := s.do(t, request{
		method: http.MethodPost,
		path:   "/login",
		form:   url.Values{"username": {"alice"}, "password": {alicePassword}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	access = rr.Header().Get("access")
	refresh = rr.Header().Get("refresh")
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

type envelope struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	body := decode[errorEnvelope](t, rr)
	assert.Equal(t, code, body.Code)
	assert.Equal(t, status, body.Status)
	assert.NotEmpty(t, body.Timestamp)
	assert.NotEmpty(t, body.Error)
}

func TestLoginThenAccessProtectedRoute(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, request{
		method: http.MethodPost,
		path:   "/login",
		form:   url.Values{"username": {"alice"}, "password": {alicePassword}},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[envelope](t, rr)
	assert.Equal(t, "SUCCESS_LOGIN", body.Code)

	var profile map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &profile))
	assert.Equal(t, map[string]string{
		"id":       "user-1",
		"username": "alice",
		"email":    "alice@example.com",
		"role":     domain.DefaultRole,
	}, profile)

	stored, err := s.redis.Get("refresh_token:alice")
	require.NoError(t, err)
	assert.Equal(t, rr.Header().Get("refresh"), stored)

	rr = s.do(t, request{
		method:  http.MethodGet,
		path:    "/test",
		headers: map[string]string{"access": rr.Header().Get("access")},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body = decode[envelope](t, rr)
	assert.Equal(t, "SUCCESS_TEST", body.Code)
	assert.JSONEq(t, `{"subject":"alice","authMethod":"local","role":"ROLE_USER"}`, string(body.Data))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newServer(t)

	for _, form := range []url.Values{
		{"username": {"alice"}, "password": {"wrong"}},
		{"username": {"nobody"}, "password": {alicePassword}},
		{},
	} {
		rr := s.do(t, request{method: http.MethodPost, path: "/login", form: form})
		assertError(t, rr, http.StatusUnauthorized, "UNAUTHORIZED")
		assert.Empty(t, rr.Header().Get("access"))
	}
}

func TestProtectedRouteWithoutPrincipal(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, request{method: http.MethodGet, path: "/test"})
	assertError(t, rr, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestExpiredAccessTokenIsRejected(t *testing.T) {
	s := newServer(t)
	access, _ := s.login(t)

	s.clock.Advance(accessTTL + time.Second)

	rr := s.do(t, request{method: http.MethodGet, path: "/test", headers: map[string]string{"access": access}})
	assertError(t, rr, http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TestReissueRotatesTokens(t *testing.T) {
	s := newServer(t)
	access, refresh := s.login(t)

	rr := s.do(t, request{
		method:  http.MethodPost,
		path:    "/reissue",
		json:    map[string]string{"username": "alice"},
		headers: map[string]string{"refresh": refresh},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "SUCCESS_REISSUE", decode[envelope](t, rr).Code)

	newAccess, newRefresh := rr.Header().Get("access"), rr.Header().Get("refresh")
	assert.NotEqual(t, access, newAccess)
	assert.NotEqual(t, refresh, newRefresh)

	stored, err := s.redis.Get("refresh_token:alice")
	require.NoError(t, err)
	assert.Equal(t, newRefresh, stored)

	rr = s.do(t, request{
		method:  http.MethodPost,
		path:    "/reissue",
		json:    map[string]string{"username": "alice"},
		headers: map[string]string{"refresh": refresh},
	})
	assertError(t, rr, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN")
}

func TestLogoutRevokesSession(t *testing.T) {
	s := newServer(t)
	_, refresh := s.login(t)

	rr := s.do(t, request{
		method:  http.MethodPost,
		path:    "/logout",
		json:    map[string]string{"username": "alice"},
		headers: map[string]string{"refresh": refresh},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode[envelope](t, rr)
	assert.Equal(t, "SUCCESS_LOGOUT", body.Code)
	assert.Equal(t, "null", string(body.Data))
	assert.False(t, s.redis.Exists("refresh_token:alice"))

	rr = s.do(t, request{
		method:  http.MethodPost,
		path:    "/reissue",
		json:    map[string]string{"username": "alice"},
		headers: map[string]string{"refresh": refresh},
	})
	assertError(t, rr, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN")
}

func TestLogoutSucceedsWithExpiredAccessHeader(t *testing.T) {
	s := newServer(t)
	access, refresh := s.login(t)

	s.clock.Advance(accessTTL + time.Hour)

	rr := s.do(t, request{
		method:  http.MethodPost,
		path:    "/logout",
		json:    map[string]string{"username": "alice"},
		headers: map[string]string{"access": access, "refresh": refresh},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "SUCCESS_LOGOUT", decode[envelope](t, rr).Code)
	assert.False(t, s.redis.Exists("refresh_token:alice"))
}

func TestTokenCategoriesAreEnforced(t *testing.T) {
	s := newServer(t)
	access, refresh := s.login(t)

	rr := s.do(t, request{method: http.MethodGet, path: "/test", headers: map[string]string{"access": refresh}})
	assertError(t, rr, http.StatusUnauthorized, "INVALID_ACCESS_TOKEN")

	rr = s.do(t, request{
		method:  http.MethodPost,
		path:    "/reissue",
		json:    map[string]string{"username": "alice"},
		headers: map[string]string{"refresh": access},
	})
	assertError(t, rr, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN")

	rr = s.do(t, request{
		method:  http.MethodPost,
		path:    "/logout",
		json:    map[string]string{"username": "alice"},
		headers: map[string]string{"refresh": access},
	})
	assertError(t, rr, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN")
}

func TestRefreshFailures(t *testing.T) {
	s := newServer(t)
	_, refresh := s.login(t)

	cases := []struct {
		name    string
		path    string
		body    any
		headers map[string]string
		status  int
		code    string
	}{
		{"reissue without header", "/reissue", map[string]string{"username": "alice"}, nil, http.StatusBadRequest, "TOKEN_MISSING"},
		{"logout without header", "/logout", map[string]string{"username": "alice"}, nil, http.StatusBadRequest, "TOKEN_MISSING"},
		{"reissue garbage token", "/reissue", map[string]string{"username": "alice"}, map[string]string{"refresh": "garbage"}, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
		{"reissue empty body", "/reissue", map[string]string{}, map[string]string{"refresh": refresh}, http.StatusBadRequest, "REQUEST_PARSING"},
		{"reissue other identity", "/reissue", map[string]string{"username": "mallory"}, map[string]string{"refresh": refresh}, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
		{"logout unknown user", "/logout", map[string]string{"username": "mallory"}, map[string]string{"refresh": refresh}, http.StatusUnauthorized, "USER_NOT_FOUND"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := s.do(t, request{method: http.MethodPost, path: tc.path, json: tc.body, headers: tc.headers})
			assertError(t, rr, tc.status, tc.code)
		})
	}

	stored, err := s.redis.Get("refresh_token:alice")
	require.NoError(t, err)
	assert.Equal(t, refresh, stored, "failed requests must leave the session untouched")
}

func TestKakaoLoginReissueAndLogout(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, request{method: http.MethodPost, path: "/kakao-login", json: map[string]string{"accessToken": "42"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode[envelope](t, rr)
	assert.Equal(t, "SUCCESS_KAKAO_LOGIN", body.Code)

	var profile map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &profile))
	assert.Equal(t, "kakao_42", profile["accountId"])
	assert.Equal(t, "reader-42", profile["nickname"])
	assert.Equal(t, domain.DefaultRole, profile["role"])

	rr = s.do(t, request{
		method:  http.MethodGet,
		path:    "/test",
		headers: map[string]string{"access": rr.Header().Get("access")},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"subject":"kakao_42","authMethod":"social","role":"ROLE_USER"}`, string(decode[envelope](t, rr).Data))

	refresh, err := s.redis.Get("refresh_token:kakao_42")
	require.NoError(t, err)

	rr = s.do(t, request{
		method:  http.MethodPost,
		path:    "/reissue",
		json:    map[string]string{"accountId": "kakao_42"},
		headers: map[string]string{"refresh": refresh},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	refresh = rr.Header().Get("refresh")

	rr = s.do(t, request{
		method:  http.MethodPost,
		path:    "/logout",
		json:    map[string]string{"accountId": "kakao_42"},
		headers: map[string]string{"refresh": refresh},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.False(t, s.redis.Exists("refresh_token:kakao_42"))
}

func TestSocialLoginFailures(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, request{method: http.MethodPost, path: "/google-login", json: map[string]string{"idToken": "bad"}})
	assertError(t, rr, http.StatusUnauthorized, "INVALID_ID_TOKEN")

	rr = s.do(t, request{method: http.MethodPost, path: "/google-login", json: map[string]string{"idToken": "7", "role": "ROLE_ADMIN"}})
	assertError(t, rr, http.StatusBadRequest, "INVALID_INPUT")

	rr = s.do(t, request{method: http.MethodPost, path: "/kakao-login"})
	assertError(t, rr, http.StatusBadRequest, "REQUEST_PARSING")
}

func TestRegisterThenLogin(t *testing.T) {
	s := newServer(t)
	password := "tortoise-marmalade-lantern-9"

	rr := s.do(t, request{
		method: http.MethodPost,
		path:   "/register",
		form:   url.Values{"username": {"bob"}, "password": {password}, "email": {"Bob@Example.com"}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decode[envelope](t, rr)
	assert.Equal(t, "SUCCESS_REGISTER", body.Code)

	var profile map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &profile))
	assert.Equal(t, "bob", profile["username"])
	assert.Equal(t, "bob@example.com", profile["email"])
	assert.NotEmpty(t, profile["id"])
	assert.NotContains(t, rr.Body.String(), "password")

	rr = s.do(t, request{
		method: http.MethodPost,
		path:   "/login",
		form:   url.Values{"username": {"bob"}, "password": {password}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestRegisterFailures(t *testing.T) {
	s := newServer(t)

	cases := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{"duplicate username", map[string]string{"username": "alice", "password": "tortoise-marmalade-lantern-9", "email": "new@example.com"}, http.StatusConflict, "DUPLICATE_USERNAME"},
		{"duplicate email", map[string]string{"username": "carol", "password": "tortoise-marmalade-lantern-9", "email": "alice@example.com"}, http.StatusConflict, "DUPLICATE_EMAIL"},
		{"weak password", map[string]string{"username": "carol", "password": "password", "email": "carol@example.com"}, http.StatusBadRequest, "WEAK_PASSWORD"},
		{"bad email", map[string]string{"username": "carol", "password": "tortoise-marmalade-lantern-9", "email": "nope"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"elevated role", map[string]string{"username": "carol", "password": "tortoise-marmalade-lantern-9", "email": "carol@example.com", "role": "ROLE_ADMIN"}, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := s.do(t, request{method: http.MethodPost, path: "/register", json: tc.body})
			assertError(t, rr, tc.status, tc.code)
		})
	}
}

func TestUsernameVerification(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, request{method: http.MethodPost, path: "/username/verifications", json: map[string]string{"username": "alice"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"username":"alice","authResult":false}`, string(decode[envelope](t, rr).Data))

	rr = s.do(t, request{method: http.MethodPost, path: "/username/verifications", json: map[string]string{"username": "dave"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"username":"dave","authResult":true}`, string(decode[envelope](t, rr).Data))
}

func TestEmailVerificationFlow(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, request{method: http.MethodPost, path: "/emails/verification-requests", json: map[string]string{"email": "erin@example.com"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "SUCCESS_VERIFICATION_REQUEST", decode[envelope](t, rr).Code)

	code := s.mailer.code("erin@example.com")
	require.Len(t, code, 6)

	rr = s.do(t, request{method: http.MethodPost, path: "/emails/verifications", json: map[string]string{"email": "erin@example.com", "authCode": "000000x"}})
	require.Equal(t, http.StatusOK, rr.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(decode[envelope](t, rr).Data, &result))
	assert.Equal(t, false, result["authResult"])

	rr = s.do(t, request{method: http.MethodPost, path: "/emails/verifications", json: map[string]string{"email": "erin@example.com", "authCode": code}})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(decode[envelope](t, rr).Data, &result))
	assert.Equal(t, true, result["authResult"])

	rr = s.do(t, request{method: http.MethodPost, path: "/emails/verification-requests", json: map[string]string{"email": "alice@example.com"}})
	assertError(t, rr, http.StatusConflict, "DUPLICATE_EMAIL")
}

func TestHealthCheckAndMetrics(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, request{method: http.MethodGet, path: "/healthCheck"})
	require.Equal(t, http.StatusOK, rr.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "UP", health["redis"])
	assert.Equal(t, "test", health["env"])

	s.login(t)

	rr = s.do(t, request{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `storyteller_auth_operations_total{operation="login",result="success"} 1`)
	assert.Contains(t, rr.Body.String(), `storyteller_http_requests_total`)

	s.redis.SetError("redis down")
	rr = s.do(t, request{method: http.MethodGet, path: "/healthCheck"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
