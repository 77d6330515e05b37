package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/oh-scheduler-go/internal/optimizer"
	"github.com/arnavshah/oh-scheduler-go/internal/roster"
	"github.com/arnavshah/oh-scheduler-go/internal/runner"
	"github.com/arnavshah/oh-scheduler-go/internal/state"
	"github.com/arnavshah/oh-scheduler-go/pkg/ingest"
	"github.com/arnavshah/oh-scheduler-go/pkg/lease"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, optimizer.ErrInvalidInputs),
		errors.Is(err, optimizer.ErrInvalidConfig),
		errors.Is(err, roster.ErrInvalidRow),
		errors.Is(err, ingest.ErrBadCell),
		errors.Is(err, ingest.ErrIncompleteDemand),
		errors.Is(err, ingest.ErrNoData),
		errors.Is(err, state.ErrShapeMismatch),
		errors.Is(err, state.ErrRowsRewound):
		return http.StatusBadRequest
	case errors.Is(err, optimizer.ErrInfeasible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, optimizer.ErrNotConverged):
		return http.StatusGatewayTimeout
	case errors.Is(err, lease.ErrLeaseHeld),
		errors.Is(err, lease.ErrLeaseLost),
		errors.Is(err, state.ErrConflict),
		errors.Is(err, state.ErrSemesterOver):
		return http.StatusConflict
	case errors.Is(err, runner.ErrWeekNotFound),
		errors.Is(err, runner.ErrStaffNotFound):
		return http.StatusNotFound
	case errors.Is(err, runner.ErrNotify):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.Log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	body := gin.H{"error": err.Error()}
	if s := optimizer.StatusOf(err); s != "" {
		body["status"] = s
	}
	c.JSON(code, body)
}
