package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialnet/internal/middleware"
	"socialnet/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (*middleware.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*middleware.Identity), args.Error(1)
}

func TestAdminRouteWithVerifier(t *testing.T) {
	verifier := new(mockVerifier)
	verifier.On("Verify", mock.Anything, "admin-token").Return(&middleware.Identity{
		UserID:    1,
		Username:  "root",
		Role:      models.RoleAdmin,
		TokenID:   "jti-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	verifier.On("Verify", mock.Anything, "user-token").Return(&middleware.Identity{
		UserID:   2,
		Username: "someone",
		Role:     models.RoleUser,
	}, nil)
	verifier.On("Verify", mock.Anything, "expired").Return(nil, models.NewUnauthorizedError("token expired"))

	s := &Server{}
	app := fiber.New()
	app.Get("/admin", middleware.AuthRequired(verifier), middleware.RequireRole(models.RoleAdmin), s.AdminPage)

	tests := []struct {
		token  string
		status int
	}{
		{"admin-token", http.StatusOK},
		{"user-token", http.StatusForbidden},
		{"expired", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	verifier.AssertNumberOfCalls(t, "Verify", 3)
}

func TestHealthChecks(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadiness_DatabaseDown(t *testing.T) {
	sqlDB, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	dbMock.ExpectPing().WillReturnError(errors.New("connection refused"))

	s := &Server{db: gormDB, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	app := fiber.New()
	app.Get("/health/ready", s.ReadinessCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NoError(t, dbMock.ExpectationsWereMet())
}

type readinessBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func TestReadiness_DegradedWithoutRedis(t *testing.T) {
	sqlDB, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	dbMock.ExpectPing()

	s := &Server{db: gormDB}
	app := fiber.New()
	app.Get("/health/ready", s.ReadinessCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[readinessBody](t, resp)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unavailable", body.Checks["redis"])
}
