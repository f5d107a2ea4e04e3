package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/auth"
	"github.com/mcsmartbytes/job-sense/internal/config"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/email"
	"github.com/mcsmartbytes/job-sense/internal/http/handler"
	"github.com/mcsmartbytes/job-sense/internal/http/middleware"
	"github.com/mcsmartbytes/job-sense/internal/http/router"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"github.com/mcsmartbytes/job-sense/internal/storage"
	"github.com/mcsmartbytes/job-sense/internal/testutil"
	"github.com/mcsmartbytes/job-sense/internal/workspace"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// apiHarness serves the full router over an in-memory database
type apiHarness struct {
	t       *testing.T
	db      *gorm.DB
	handler http.Handler
	issuer  *auth.TokenIssuer
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	cfg := &config.Config{
		App:  config.AppConfig{Name: "job-sense-test", Environment: "test", BaseURL: "https://app.example.com"},
		Auth: config.AuthConfig{JWTSecret: "handler-test-secret", JWTIssuer: "job-sense-test", AccessTokenTTL: 60, VerificationTTL: 24, ResetTTL: 60},
	}

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	workspaces := workspace.NewManager(store, 0, logger)

	issuer := auth.NewTokenIssuer(&cfg.Auth)
	userRepo := repository.NewUserRepository(db)
	siteRepo := repository.NewSiteRepository(db)
	costCodeRepo := repository.NewCostCodeRepository(db)
	jobRepo := repository.NewJobRepository(db)

	authService := service.NewAuthService(userRepo, repository.NewTokenRepository(db), issuer, email.NewLogSender(logger),
		&cfg.Auth, cfg.App.BaseURL, logger,
		service.WithHashParams(&auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}))
	estimateService := service.NewEstimateService(repository.NewEstimateRepository(db), siteRepo, costCodeRepo, jobRepo, logger)

	rt := router.NewRouter(
		cfg,
		logger,
		auth.NewMiddleware(issuer, logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		handler.NewHealthHandler(db, workspaces, logger),
		handler.NewAuthHandler(authService, logger),
		handler.NewSiteHandler(service.NewSiteService(siteRepo, logger), logger),
		handler.NewCostCodeHandler(service.NewCostCodeService(costCodeRepo, logger), logger),
		handler.NewEstimateHandler(estimateService, logger),
		handler.NewJobHandler(service.NewJobService(jobRepo, costCodeRepo, logger), logger),
		handler.NewPipelineHandler(service.NewPipelineService(workspaces, estimateService, logger), logger),
		handler.NewTrackerHandler(service.NewTrackerService(workspaces, logger), logger),
	)

	return &apiHarness{t: t, db: db, handler: rt.Setup(), issuer: issuer}
}

// newUser inserts a verified user and returns a bearer token for it
func (h *apiHarness) newUser(emailAddr string) (uuid.UUID, string) {
	h.t.Helper()
	user := testutil.CreateTestUser(h.t, h.db, emailAddr)
	token, err := h.issuer.Issue(user.ID, user.Email)
	require.NoError(h.t, err)
	return user.ID, token
}

// do sends body as JSON; a string body is sent verbatim
func (h *apiHarness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
}

func apiError(t *testing.T, w *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	return decode[domain.APIError](t, w)
}

// rawGet requests a path outside /api/v1
func (h *apiHarness) rawGet(path string) *httptest.ResponseRecorder {
	h.t.Helper()
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}
