package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/oh-scheduler-go/internal/optimizer"
	"github.com/arnavshah/oh-scheduler-go/internal/roster"
	"github.com/arnavshah/oh-scheduler-go/internal/runner"
	"github.com/arnavshah/oh-scheduler-go/internal/state"
	"github.com/arnavshah/oh-scheduler-go/pkg/auth"
	"github.com/arnavshah/oh-scheduler-go/pkg/blobstore"
	"github.com/arnavshah/oh-scheduler-go/pkg/config"
	"github.com/arnavshah/oh-scheduler-go/pkg/database"
	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
	"github.com/arnavshah/oh-scheduler-go/pkg/lease"
	"github.com/arnavshah/oh-scheduler-go/pkg/logger"
	"github.com/arnavshah/oh-scheduler-go/pkg/metrics"
	"github.com/arnavshah/oh-scheduler-go/pkg/models"
)

var authCfg = config.AuthConfig{
	JWTSecret:     "jwt-secret",
	MasterSecret:  "master-secret",
	AdminUsername: "admin",
	AdminPassword: "hunter2",
}

type staticSource struct{ availability, demand [][]string }

func (s staticSource) Availability(context.Context) ([][]string, error) { return s.availability, nil }
func (s staticSource) Demand(context.Context) ([][]string, error)       { return s.demand, nil }

func twoStaffSource() staticSource {
	src := staticSource{availability: [][]string{make([]string, 67)}}
	for _, email := range []string{"a@berkeley.edu", "b@berkeley.edu"} {
		row := []string{email, "tutor", "10", "1", "0", "2", "1"}
		for i := 0; i < grid.Cells; i++ {
			row = append(row, "2")
		}
		src.availability = append(src.availability, row)
	}
	for d := 0; d < grid.Days; d++ {
		for s := 0; s < grid.Slots; s++ {
			n := "0"
			if s == 3 && d < 2 {
				n = "1"
			}
			row := []string{"", "", grid.SlotLabel(s), grid.SlotLabel(s + 1), n}
			if d == 0 && s == 0 {
				row[0] = "1, 2"
			}
			if s == 0 {
				row[1] = grid.DayNames[d]
			}
			src.demand = append(src.demand, row)
		}
	}
	return src
}

type testServer struct {
	router *gin.Engine
	h      *Handler
	auth   *auth.Authenticator
}

func newTestServer(t *testing.T, withRunner bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, auth.EnsureAdminExists(db, authCfg, logger.Nop()))

	solver := optimizer.DefaultConfig()
	solver.TimeLimit = 10 * time.Second

	h := &Handler{DB: db, Auth: auth.New(authCfg), Log: logger.Nop(), Solver: solver}
	reg := prometheus.NewRegistry()
	if withRunner {
		h.Runner = runner.New(runner.Settings{
			Prefix:    "cs61a-fa23",
			Chain:     state.ChainConfig{Section: "cs61a", WeeksTotal: 2, Multiplier: 2},
			Optimizer: solver,
			LeaseTTL:  time.Minute,
			StartDate: "2023-08-23",
		}, runner.Deps{
			Store:   blobstore.NewMemory(),
			Locker:  lease.NewMemory(),
			Source:  twoStaffSource(),
			DB:      db,
			Metrics: metrics.NewPrometheus(reg, ""),
		})
	}
	return &testServer{router: NewRouter(h, reg), h: h, auth: h.Auth}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *testServer) login(t *testing.T) string {
	w := s.do(t, http.MethodPost, "/admin/login", "", models.LoginRequest{Username: "admin", Password: "hunter2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &resp)
	return resp.AccessToken
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, false)
	assert.NotEmpty(t, s.login(t))

	w := s.do(t, http.MethodPost, "/admin/login", "", models.LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/admin/keys", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodGet, "/admin/keys", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestKeyLifecycle(t *testing.T) {
	s := newTestServer(t, false)
	token := s.login(t)

	w := s.do(t, http.MethodPost, "/admin/keys", token, models.KeyRequest{Name: "cs61a-bot"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		ID  uint   `json:"id"`
		Key string `json:"key"`
	}
	decode(t, w, &created)
	assert.Equal(t, s.auth.GenerateHMACKey("cs61a-bot"), created.Key)

	w = s.do(t, http.MethodGet, "/admin/keys", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), created.Key)
	assert.Contains(t, w.Body.String(), "cs6...")

	id := strconv.FormatUint(uint64(created.ID), 10)
	w = s.do(t, http.MethodPut, "/admin/keys/"+id, token, models.RateLimitRequest{RateLimit: 5})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPut, "/admin/keys/999", token, models.RateLimitRequest{RateLimit: 5})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/admin/keys/"+id, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/admin/keys/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t, true)
	w := s.do(t, http.MethodGet, "/api/weeks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/weeks", "cs61a-bot.0000", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRunAndInspect(t *testing.T) {
	s := newTestServer(t, true)
	key := s.auth.GenerateHMACKey("cs61a-bot")

	w := s.do(t, http.MethodPost, "/api/preview", key, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/weeks", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Weeks []int `json:"weeks"`
	}
	decode(t, w, &listed)
	assert.Empty(t, listed.Weeks)

	w = s.do(t, http.MethodPost, "/api/run", key, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out runner.Outcome
	decode(t, w, &out)
	assert.Equal(t, 1, out.Week)
	assert.Equal(t, optimizer.StatusSolved, out.Result.Status)

	w = s.do(t, http.MethodGet, "/api/weeks/1", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary runner.WeekSummary
	decode(t, w, &summary)
	assert.Equal(t, 2, summary.StaffCount)
	require.NotNil(t, summary.Report)
	assert.Equal(t, 2, summary.Report.TotalDemand)

	w = s.do(t, http.MethodGet, "/api/weeks/1/staff/B@berkeley.edu", key, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var staff runner.StaffSummary
	decode(t, w, &staff)
	assert.Equal(t, 1, staff.Index)
	require.NotNil(t, staff.Assigned)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/weeks/2", key, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/weeks/zero", key, nil).Code)

	w = s.do(t, http.MethodGet, "/api/usage", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage struct {
		Totals struct {
			Requests int `json:"requests"`
			Solves   int `json:"solves"`
			Staff    int `json:"staff"`
		} `json:"totals"`
		Section string           `json:"section"`
		Runs    map[string]int64 `json:"runs"`
	}
	decode(t, w, &usage)
	assert.Equal(t, 2, usage.Totals.Requests)
	assert.Equal(t, 2, usage.Totals.Solves)
	assert.Equal(t, 4, usage.Totals.Staff)
	assert.Equal(t, "cs61a-fa23", usage.Section)
	assert.Equal(t, map[string]int64{"solved": 2}, usage.Runs)

	token := s.login(t)
	w = s.do(t, http.MethodGet, "/admin/runs?prefix=cs61a-fa23", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs struct {
		Runs []database.RunRecord `json:"runs"`
	}
	decode(t, w, &runs)
	assert.Len(t, runs.Runs, 2)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ohsched_runs_total{status="solved"} 2`)
}

func TestRunWithoutSection(t *testing.T) {
	s := newTestServer(t, false)
	key := s.auth.GenerateHMACKey("cs61a-bot")
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodPost, "/api/run", key, nil).Code)

	w := s.do(t, http.MethodGet, "/api/usage", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage map[string]any
	decode(t, w, &usage)
	assert.NotContains(t, usage, "runs")
	assert.Contains(t, usage, "totals")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("persist week 3: %w", lease.ErrLeaseLost), http.StatusConflict},
		{fmt.Errorf("save: %w", fmt.Errorf("%w: week 3", state.ErrConflict)), http.StatusConflict},
		{lease.ErrLeaseHeld, http.StatusConflict},
		{&optimizer.NotConvergedError{Phase: "exact"}, http.StatusGatewayTimeout},
		{fmt.Errorf("solve: %w", optimizer.ErrInfeasible), http.StatusUnprocessableEntity},
		{runner.ErrWeekNotFound, http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func solveInputs(demandAtSlot int) *optimizer.Inputs {
	var demand, avail grid.Grid
	demand[0][0] = demandAtSlot
	for d := range avail {
		for sl := range avail[d] {
			avail[d][sl] = 1
		}
	}
	return &optimizer.Inputs{
		FutureDemand:        []grid.Grid{demand},
		Availability:        []grid.Grid{avail},
		MaxContiguous:       []int{2},
		HoursRemaining:      []int{1},
		WeeklyTarget:        []int{1},
		PreferredContiguous: []int{1},
		ChangedWeight:       []float64{0},
		NonCohort:           optimizer.IndexRange{Start: 1, End: 1},
	}
}

func TestSolve(t *testing.T) {
	s := newTestServer(t, false)
	key := s.auth.GenerateHMACKey("cs61a-bot")

	w := s.do(t, http.MethodPost, "/api/solve", key, models.SolveRequest{Inputs: solveInputs(1), Emails: []string{"a@berkeley.edu"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.SolveResponse
	decode(t, w, &resp)
	assert.Equal(t, optimizer.StatusSolved, resp.Status)
	require.Len(t, resp.Assignment, 1)
	assert.Equal(t, 1, resp.Assignment[0][0][0])
	assert.Equal(t, "a@berkeley.edu", resp.Report.Staff[0].Email)

	w = s.do(t, http.MethodPost, "/api/solve", key, models.SolveRequest{Inputs: solveInputs(4)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"infeasible"`)

	bad := solveInputs(1)
	bad.WeeklyTarget = nil
	w = s.do(t, http.MethodPost, "/api/solve", key, models.SolveRequest{Inputs: bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/solve", key, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, false)
	token := s.login(t)
	w := s.do(t, http.MethodPost, "/admin/keys", token, models.KeyRequest{Name: "tiny", RateLimit: 1})
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Key string `json:"key"`
	}
	decode(t, w, &created)

	req := models.SolveRequest{Inputs: solveInputs(1)}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/solve", created.Key, req).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodPost, "/api/solve", created.Key, req).Code)
}

func TestValidateAvailability(t *testing.T) {
	s := newTestServer(t, false)
	key := s.auth.GenerateHMACKey("cs61a-bot")

	var ratings grid.Grid
	for d := range ratings {
		for sl := range ratings[d] {
			ratings[d][sl] = 3
		}
	}
	good := roster.AvailabilityRow{Email: "a@berkeley.edu", TotalWeeklyHours: 10, WeeklyTargetHours: 2, PreferredContiguousHours: 1, Ratings: ratings}
	bad := good
	bad.Email = "not-an-email"
	over := good
	over.Email = "c@berkeley.edu"
	over.WeeklyTargetHours = 12

	w := s.do(t, http.MethodPost, "/api/validate", key, models.ValidateRequest{Rows: []roster.AvailabilityRow{good, bad, over}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.ValidateResponse
	decode(t, w, &resp)
	assert.False(t, resp.Valid)
	assert.Len(t, resp.Errors, 2)
	assert.Equal(t, 3, resp.Stats.RowCount)

	w = s.do(t, http.MethodPost, "/api/validate", key, models.ValidateRequest{Rows: []roster.AvailabilityRow{good}})
	decode(t, w, &resp)
	assert.True(t, resp.Valid)
}
