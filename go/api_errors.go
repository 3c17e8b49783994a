package replenishmentserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/http/mapper"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/application"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
	apierrors "github.com/Apurer/replenishment-engine/internal/shared/errors"
)

// problems renders planner failures as RFC 7807 responses.
var problems = apierrors.NewChainedResponder("", plannerProblem)

// plannerProblem maps planner and store errors to their problem types.
func plannerProblem(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, application.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrPendingOrderExists):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apierrors.ErrUnavailable.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

// respondBadRequest rejects a request that could not be bound.
func respondBadRequest(c *gin.Context, err error) {
	problems.Respond(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
}

// respondServiceError maps planner errors to problem responses.
func respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	problems.RespondError(c, err)
}

// respondPlan writes a planning result. A batch with failed lines still
// committed its other lines, so it is reported as 207 with every outcome.
func respondPlan(c *gin.Context, result *ports.PlanResult, err error) {
	var batchErr *application.BatchError
	if err != nil && !(errors.As(err, &batchErr) && result != nil) {
		respondServiceError(c, err)
		return
	}
	resp := mapper.FromPlanResult(result)
	if batchErr == nil {
		c.JSON(http.StatusOK, resp)
		return
	}
	problem := apierrors.NewPartialFailureProblem(batchErr.BranchID, batchErr.ProductIDs()).
		WithInstance(c.Request.URL.Path)
	resp.Problem = &problem
	c.JSON(http.StatusMultiStatus, resp)
}
