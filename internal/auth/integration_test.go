package auth

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/logger"
)

type testServer struct {
	*httptest.Server
	service *Service
	client  *http.Client
}

func newTestRouter(t *testing.T, cfg config.Auth) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	svc := NewService(db, cfg, logger.Discard())
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	secret, err := GenerateSessionSecret()
	require.NoError(t, err)

	mw := NewMiddleware(svc, sm, cfg)
	ac := NewAuthController(svc, sm, cfg)
	t.Cleanup(ac.Stop)

	r := gin.New()
	r.Use(SecurityHeadersMiddleware(), sm.LoadAndSave(), mw.Handler(), CSRFMiddleware(secret, false))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	ac.RegisterRoutes(api)
	protected := api.Group("", mw.RequireUser())
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "auth": GetAuthType(c)})
	})
	protected.POST("/echo", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c)})
	})
	return r, svc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	r, svc := newTestRouter(t, testAuthConfig())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{Server: srv, service: svc, client: &http.Client{Jar: jar}}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *testServer) csrfToken(t *testing.T) string {
	t.Helper()
	resp, body := s.do(t, http.MethodGet, "/api/auth/csrf", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["csrf_token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, token, resp.Header.Get(CSRFTokenHeader))
	return token
}

func TestMiddleware_NoneMode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mw := NewMiddleware(nil, nil, config.Auth{Mode: config.AuthModeNone})

	r := gin.New()
	r.Use(mw.Handler())
	r.GET("/api/me", mw.RequireUser(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "auth": GetAuthType(c)})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":0,"auth":"none"}`, w.Body.String())
}

func TestMiddleware_LocalModeRejectsAnonymous(t *testing.T) {
	r, _ := newTestRouter(t, testAuthConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_AUTHENTICATED", body["code"])
}

func TestMiddleware_PublicPaths(t *testing.T) {
	r, _ := newTestRouter(t, testAuthConfig())

	for _, path := range []string{"/health", "/api/auth/status", "/api/auth/csrf"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestStatus_SetupRequired(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodGet, "/api/auth/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "local", body["mode"])
	assert.Equal(t, true, body["setup_required"])
	assert.Equal(t, false, body["authenticated"])
}

func TestSecurityHeaders(t *testing.T) {
	r, _ := newTestRouter(t, testAuthConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	r.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCSRF_RejectsPostWithoutToken(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPost, "/api/auth/setup",
		`{"username":"alice","email":"alice@example.com","password":"`+testPassword+`"}`, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])

	has, err := srv.service.HasUsers(t.Context())
	require.NoError(t, err)
	assert.False(t, has, "handler must not run after a CSRF failure")
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t)
	token := srv.csrfToken(t)
	headers := map[string]string{CSRFTokenHeader: token}

	resp, _ := srv.do(t, http.MethodPost, "/api/auth/setup",
		`{"username":"alice","email":"alice@example.com","password":"`+testPassword+`"}`, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := srv.do(t, http.MethodGet, "/api/me", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "session", body["auth"])
	assert.NotZero(t, body["id"])

	// Second setup is refused
	resp, _ = srv.do(t, http.MethodPost, "/api/auth/setup",
		`{"username":"bob","email":"bob@example.com","password":"`+testPassword+`"}`, headers)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/auth/logout", "", headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/auth/login",
		`{"login":"alice","password":"`+testPassword+`"}`, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBearerSkipsCSRF(t *testing.T) {
	srv := newTestServer(t)
	ctx := t.Context()

	user, err := srv.service.Setup(ctx, "alice", "alice@example.com", testPassword)
	require.NoError(t, err)
	token, err := srv.service.GenerateToken(ctx, user.ID)
	require.NoError(t, err)

	resp, body := srv.do(t, http.MethodPost, "/api/echo", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, user.ID, body["id"])

	resp, _ = srv.do(t, http.MethodPost, "/api/echo", "", map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_RateLimited(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.service.Setup(t.Context(), "alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	headers := map[string]string{CSRFTokenHeader: srv.csrfToken(t)}
	for i := 0; i < 3; i++ {
		resp, _ := srv.do(t, http.MethodPost, "/api/auth/login",
			`{"login":"alice","password":"wrong-password-entirely"}`, headers)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := srv.do(t, http.MethodPost, "/api/auth/login",
		`{"login":"alice","password":"`+testPassword+`"}`, headers)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "NOT_AUTHENTICATED", body["code"])
}
