package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SscSPs/shope_lite/internal/core/domain"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/core/services"
	"github.com/SscSPs/shope_lite/internal/handlers"
	"github.com/SscSPs/shope_lite/internal/middleware"
	"github.com/SscSPs/shope_lite/internal/platform/config"
	"github.com/SscSPs/shope_lite/internal/repositories/memory"
	"github.com/SscSPs/shope_lite/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type loginData struct {
	Token string `json:"token"`
	User  struct {
		UserID   string `json:"userId"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

func newTestRouter(t *testing.T, rate string) (*gin.Engine, *portssvc.ServiceContainer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:       "handler-test-secret",
		JWTIssuer:       "shope-lite",
		IsProduction:    true,
		FrontendBaseURL: "http://localhost:5173",
		ResetDemoMode:   true,
	}

	repo := memory.NewUserRepository()
	tokens, err := services.NewSessionTokenService(cfg.JWTSecret, cfg.JWTIssuer)
	require.NoError(t, err)
	hasher := utils.NewBcryptHasher(bcrypt.MinCost)

	container := &portssvc.ServiceContainer{
		SessionToken: tokens,
		User:         services.NewUserService(repo, nil),
		GoogleOAuth:  services.NewGoogleOAuthService(cfg),
		Auth: services.NewAuthService(
			services.AuthServiceConfig{FrontendBaseURL: cfg.FrontendBaseURL, DemoMode: cfg.ResetDemoMode},
			repo, hasher, tokens,
			services.NewResetTokenService(repo, hasher, nil),
		),
	}

	lim, err := middleware.NewMemoryLimiter(rate)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := gin.New()
	r.Use(middleware.SanitizeURL(), middleware.StructuredLoggingMiddleware(logger))
	handlers.RegisterRoutes(r, cfg, container, handlers.RouteOptions{AuthLimiter: lim})
	return r, container
}

func do(t *testing.T, r http.Handler, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

type HandlerTestSuite struct {
	suite.Suite
	router    *gin.Engine
	container *portssvc.ServiceContainer
}

func (s *HandlerTestSuite) SetupTest() {
	s.router, s.container = newTestRouter(s.T(), "1000-M")
}

func (s *HandlerTestSuite) register(username, email, password string) (*httptest.ResponseRecorder, envelope) {
	return do(s.T(), s.router, http.MethodPost, "/auth/register",
		gin.H{"username": username, "email": email, "password": password}, "")
}

func (s *HandlerTestSuite) login(email, password string) loginData {
	w, env := do(s.T(), s.router, http.MethodPost, "/auth/login", gin.H{"email": email, "password": password}, "")
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	var data loginData
	require.NoError(s.T(), json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.T(), data.Token)
	return data
}

func (s *HandlerTestSuite) TestRegisterLoginProfileAdminScenario() {
	w, env := s.register("alice", "alice@x.com", "secret1")
	s.Equal(http.StatusCreated, w.Code)
	s.Equal("success", env.Status)
	s.NotContains(w.Body.String(), "password")

	session := s.login("alice@x.com", "secret1")
	s.Equal("alice", session.User.Username)
	s.Equal("user", session.User.Role)

	w, env = do(s.T(), s.router, http.MethodGet, "/auth/profile", nil, session.Token)
	s.Equal(http.StatusOK, w.Code)
	var profile map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &profile))
	s.Equal("alice", profile["username"])
	s.NotContains(profile, "passwordHash")

	w, env = do(s.T(), s.router, http.MethodGet, "/auth/admin", nil, session.Token)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("Access denied", env.Message)

	w, _ = do(s.T(), s.router, http.MethodGet, "/auth/staff", nil, session.Token)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerTestSuite) TestLoginFailuresAreIndistinguishable() {
	s.register("alice", "alice@x.com", "secret1")

	wrongPw, wrongEnv := do(s.T(), s.router, http.MethodPost, "/auth/login", gin.H{"email": "alice@x.com", "password": "nope123"}, "")
	unknown, unknownEnv := do(s.T(), s.router, http.MethodPost, "/auth/login", gin.H{"email": "bob@x.com", "password": "nope123"}, "")

	s.Equal(http.StatusUnauthorized, wrongPw.Code)
	s.Equal(http.StatusUnauthorized, unknown.Code)
	s.Equal(wrongEnv.Message, unknownEnv.Message)
	s.Equal("Invalid credentials", wrongEnv.Message)
}

func (s *HandlerTestSuite) TestRegisterValidation() {
	w, env := do(s.T(), s.router, http.MethodPost, "/auth/register", gin.H{"username": "alice"}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("All fields are required", env.Message)

	w, env = s.register("ab", "ab@x.com", "secret1")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Username must be 3 to 20 characters", env.Message)

	w, env = s.register(strings.Repeat("a", 21), "long@x.com", "secret1")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Username must be 3 to 20 characters", env.Message)

	w, env = s.register("bad-name", "bad@x.com", "secret1")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Username can contain only letters, numbers, and underscore", env.Message)

	w, env = do(s.T(), s.router, http.MethodPost, "/auth/register",
		gin.H{"username": "mallory", "email": "m@x.com", "password": "secret1", "role": "admin"}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Role cannot be chosen at registration", env.Message)
}

func (s *HandlerTestSuite) TestRegisterConflicts() {
	s.register("alice", "alice@x.com", "secret1")

	w, env := s.register("alice2", "ALICE@x.com", "secret1")
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("User already exists", env.Message)

	w, env = s.register("ALICE", "other@x.com", "secret1")
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("Username already taken", env.Message)
}

func (s *HandlerTestSuite) TestChangeUsernameAndEmail() {
	s.register("alice", "alice@x.com", "secret1")
	s.register("bob", "bob@x.com", "secret1")
	session := s.login("alice@x.com", "secret1")

	w, env := do(s.T(), s.router, http.MethodPatch, "/auth/username", gin.H{"username": "al"}, session.Token)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Username must be 3 to 20 characters", env.Message)

	w, env = do(s.T(), s.router, http.MethodPatch, "/auth/username", gin.H{"username": "Bob"}, session.Token)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("Username already taken", env.Message)

	w, _ = do(s.T(), s.router, http.MethodPatch, "/auth/username", gin.H{"username": "alice_2"}, session.Token)
	s.Equal(http.StatusOK, w.Code)

	w, env = do(s.T(), s.router, http.MethodPatch, "/auth/email", gin.H{"email": "not-an-email"}, session.Token)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Valid email required", env.Message)

	w, _ = do(s.T(), s.router, http.MethodPatch, "/auth/email", gin.H{"email": "bob@x.com"}, session.Token)
	s.Equal(http.StatusConflict, w.Code)

	w, env = do(s.T(), s.router, http.MethodPatch, "/auth/email", gin.H{"email": "alice@new.com"}, session.Token)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(string(env.Data), "alice@new.com")
}

func (s *HandlerTestSuite) TestChangePassword() {
	s.register("alice", "alice@x.com", "secret1")
	session := s.login("alice@x.com", "secret1")

	w, env := do(s.T(), s.router, http.MethodPatch, "/auth/password",
		gin.H{"currentPassword": "wrong12", "newPassword": "secret2"}, session.Token)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Current password incorrect", env.Message)

	w, env = do(s.T(), s.router, http.MethodPatch, "/auth/password",
		gin.H{"currentPassword": "secret1", "newPassword": "12345"}, session.Token)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("New password must be at least 6 characters", env.Message)

	w, env = do(s.T(), s.router, http.MethodPatch, "/auth/password", gin.H{"currentPassword": "secret1"}, session.Token)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Both passwords required", env.Message)

	w, _ = do(s.T(), s.router, http.MethodPatch, "/auth/password",
		gin.H{"currentPassword": "secret1", "newPassword": "secret2"}, session.Token)
	s.Equal(http.StatusOK, w.Code)
	s.login("alice@x.com", "secret2")
}

func (s *HandlerTestSuite) TestForgotAndResetPassword() {
	s.register("alice", "alice@x.com", "secret1")

	w, known := do(s.T(), s.router, http.MethodPost, "/auth/forgot-password", gin.H{"email": "alice@x.com"}, "")
	s.Equal(http.StatusOK, w.Code)
	_, unknown := do(s.T(), s.router, http.MethodPost, "/auth/forgot-password", gin.H{"email": "nobody@x.com"}, "")
	s.Equal(known.Message, unknown.Message)

	var data struct {
		ResetLink  string `json:"resetLink"`
		ResetToken string `json:"resetToken"`
	}
	s.Require().NoError(json.Unmarshal(known.Data, &data))
	s.Len(data.ResetToken, 64)
	s.Equal("http://localhost:5173/reset-password/"+data.ResetToken, data.ResetLink)

	path := "/auth/reset-password/" + data.ResetToken
	w, env := do(s.T(), s.router, http.MethodPost, path, gin.H{"newPassword": "12345"}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("New password must be at least 6 characters", env.Message)

	w, _ = do(s.T(), s.router, http.MethodPost, path, gin.H{"newPassword": "brandnew"}, "")
	s.Equal(http.StatusOK, w.Code)
	s.login("alice@x.com", "brandnew")

	w, env = do(s.T(), s.router, http.MethodPost, path, gin.H{"newPassword": "another1"}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Token invalid or expired", env.Message)

	w, env = do(s.T(), s.router, http.MethodPost, "/auth/forgot-password", gin.H{"email": "nope"}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Valid email required", env.Message)
}

func (s *HandlerTestSuite) TestMissingAndInvalidToken() {
	w, env := do(s.T(), s.router, http.MethodGet, "/auth/profile", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("No token, authorization denied", env.Message)

	w, env = do(s.T(), s.router, http.MethodGet, "/auth/profile", nil, "not.a.jwt")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Token is not valid", env.Message)

	w, _ = do(s.T(), s.router, http.MethodGet, "/auth/admin", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerTestSuite) TestAdminListsUsers() {
	s.register("alice", "alice@x.com", "secret1")
	s.register("bob", "bob@x.com", "secret1")
	_, err := s.container.User.SetRole(context.Background(), "alice@x.com", domain.RoleAdmin)
	s.Require().NoError(err)

	admin := s.login("alice@x.com", "secret1")
	s.Equal("admin", admin.User.Role)

	w, env := do(s.T(), s.router, http.MethodGet, "/auth/admin", nil, admin.Token)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("Welcome, admin!", env.Message)

	w, env = do(s.T(), s.router, http.MethodGet, "/auth/admin/users?limit=1", nil, admin.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Users     []map[string]any `json:"users"`
		NextToken string           `json:"nextToken"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.Len(page.Users, 1)
	s.NotEmpty(page.NextToken)

	w, env = do(s.T(), s.router, http.MethodGet, "/auth/admin/users?limit=1&nextToken="+page.NextToken, nil, admin.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.Len(page.Users, 1)

	w, env = do(s.T(), s.router, http.MethodGet, "/auth/admin/users?nextToken=@@@", nil, admin.Token)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid nextToken", env.Message)
}

func (s *HandlerTestSuite) TestGoogleExchangeUnavailable() {
	w, env := do(s.T(), s.router, http.MethodPost, "/auth/google/exchange-code", gin.H{"code": "abc"}, "")
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal("error", env.Status)
}

func (s *HandlerTestSuite) TestHomeAndHealth() {
	w, env := do(s.T(), s.router, http.MethodGet, "/", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("success", env.Status)

	w, _ = do(s.T(), s.router, http.MethodGet, "/health", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("OK", w.Body.String())
}

func (s *HandlerTestSuite) TestSanitizerRejectsEncodedLineBreaks() {
	w, env := do(s.T(), s.router, http.MethodGet, "/auth/profile%0Aevil", nil, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Bad request URL", env.Message)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func TestLoginIsRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, "2-M")
	body := gin.H{"email": "alice@x.com", "password": "secret1"}

	for i := 0; i < 2; i++ {
		w, _ := do(t, r, http.MethodPost, "/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w, env := do(t, r, http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests. Please try again later.", env.Message)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// Other endpoints keep their own budget.
	w, _ = do(t, r, http.MethodPost, "/auth/forgot-password", gin.H{"email": "alice@x.com"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
