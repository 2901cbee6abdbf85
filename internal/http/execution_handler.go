package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/http/httputil"
)

type ExecutionHandler struct {
	api SwapAPI
}

func NewExecutionHandler(api SwapAPI) *ExecutionHandler {
	return &ExecutionHandler{api: api}
}

func (h *ExecutionHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listExecutions)
	pub.GET("/:id", h.getExecution)
}

func (h *ExecutionHandler) Root() string {
	return "/executions"
}

// @Summary List executions
// @Description Journaled executions, newest first.
// @Tags executions
// @Produce json
// @Param outcome query string false "Filter by outcome" Enums(completed, partial, none)
// @Success 200 {array} domain.ExecutionRecord
// @Failure 400 {object} httputil.Response "Unknown outcome"
// @Failure 503 {object} httputil.Response "Journal disabled"
// @Router /api/v1/executions [get]
func (h *ExecutionHandler) listExecutions(c *gin.Context) {
	outcome := c.Query("outcome")
	switch domain.ExecutionOutcome(outcome) {
	case "", domain.OutcomeCompleted, domain.OutcomePartial, domain.OutcomeNone:
	default:
		httputil.HandleBadRequest(c, "unknown outcome: "+outcome)
		return
	}

	records, err := h.api.Executions(outcome)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.HandleSuccess(c, records)
}

// @Summary Get execution
// @Tags executions
// @Produce json
// @Param id path string true "Execution id"
// @Success 200 {object} domain.ExecutionRecord
// @Failure 404 {object} httputil.Response "Unknown execution"
// @Failure 503 {object} httputil.Response "Journal disabled"
// @Router /api/v1/executions/{id} [get]
func (h *ExecutionHandler) getExecution(c *gin.Context) {
	rec, err := h.api.Execution(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.HandleSuccess(c, rec)
}
