package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/oh-scheduler-go/pkg/config"
	"github.com/arnavshah/oh-scheduler-go/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Section = "cs61a"
	cfg.Semester = "fa23"
	cfg.Weeks = 15
	cfg.StartDate = "2023-08-23"
	cfg.Sources.AvailabilityCSV = "availability.csv"
	cfg.Sources.DemandCSV = "demand.csv"
	cfg.Storage.Backend = "memory"
	cfg.Lease.Backend = "memory"
	cfg.Database.Path = filepath.Join(t.TempDir(), "ohsched.db")
	cfg.Auth.JWTSecret = "jwt"
	cfg.Auth.MasterSecret = "master"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_WithSection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	a, err := New(ctx, testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer a.Close(ctx)

	require.NotNil(t, a.Runner)
	assert.Equal(t, "cs61a-fa23", a.Runner.Settings().Prefix)

	weeks, err := a.Runner.Weeks(ctx)
	require.NoError(t, err)
	assert.Empty(t, weeks)

	r, err := a.Router()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_WithoutSection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "ohsched.db")
	a, err := New(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.Nil(t, a.Runner)
	assert.Nil(t, a.Handler().Runner)
}
