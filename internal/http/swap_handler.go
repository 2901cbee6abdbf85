package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/swap-engine/internal/aggregator"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/http/httputil"
)

type SwapHandler struct {
	api SwapAPI
}

func NewSwapHandler(api SwapAPI) *SwapHandler {
	return &SwapHandler{api: api}
}

func (h *SwapHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.executeSwap)
	pub.POST("/simulate", h.simulateSwap)
}

func (h *SwapHandler) Root() string {
	return "/swap"
}

// SwapRequest represents a trade to execute with the server's signer
type SwapRequest struct {
	InputMint  string `json:"inputMint" binding:"required" example:"So11111111111111111111111111111111111111112"`
	OutputMint string `json:"outputMint" binding:"required" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`

	// Amount of the fixed side in smallest token units, or a display amount with uiAmount
	Amount   string `json:"amount" binding:"required" example:"1000000000"`
	UIAmount bool   `json:"uiAmount" example:"false"`

	SwapMode string `json:"swapMode" binding:"required" enums:"ExactIn,ExactOut" example:"ExactIn"`

	// Slippage tolerance in basis points (1 bps = 0.01%). Zero is honoured.
	SlippageBps *uint16 `json:"slippageBps" example:"50"`
}

func (r SwapRequest) trade() aggregator.TradeRequest {
	return aggregator.TradeRequest{
		InputMint:   r.InputMint,
		OutputMint:  r.OutputMint,
		Amount:      r.Amount,
		UIAmount:    r.UIAmount,
		SwapMode:    r.SwapMode,
		SlippageBps: r.SlippageBps,
	}
}

// SimulateRequest is a SwapRequest that may name the wallet to simulate as
type SimulateRequest struct {
	SwapRequest

	// Fee payer for the simulation. Defaults to the server signer.
	UserPublicKey string `json:"userPublicKey" example:"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"`
}

// ExecutionResponse reports what landed on chain
type ExecutionResponse struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome" enums:"completed,partial,none"`

	// Transaction ids of confirmed legs, in order
	Signatures []string `json:"signatures"`

	Quote     *QuoteResponse          `json:"quote,omitempty"`
	Execution *domain.ExecutionRecord `json:"execution"`
}

func newExecutionResponse(q *aggregator.Quote, res *domain.ExecutionResult, execErr error) *ExecutionResponse {
	sigs := res.ConfirmedSignatures()
	out := &ExecutionResponse{
		ID:         res.ID,
		Outcome:    string(res.Outcome),
		Signatures: make([]string, 0, len(sigs)),
		Execution:  domain.NewExecutionRecord(res, execErr),
	}
	for _, sig := range sigs {
		out.Signatures = append(out.Signatures, sig.String())
	}
	if q != nil {
		qr := newQuoteResponse(q)
		out.Quote = &qr
	}
	return out
}

// SimulationResponse is the quote and the result of simulating its first leg
type SimulationResponse struct {
	Quote      QuoteResponse            `json:"quote"`
	Simulation *domain.SimulationResult `json:"simulation"`

	// Compute unit limit to request, from the simulated consumption plus a buffer
	RecommendedComputeUnits uint32 `json:"recommendedComputeUnits,omitempty" example:"46200"`
	// Why the transaction would fail, when it would
	Failure string `json:"failure,omitempty"`
}

// @Summary Execute swap
// @Description Quote, sign and submit a trade, then wait for confirmation. A routed trade
// @Description whose first leg confirmed but second did not returns 202 with the landed signature.
// @Tags swap
// @Accept json
// @Produce json
// @Param request body SwapRequest true "Trade"
// @Success 200 {object} ExecutionResponse
// @Success 202 {object} httputil.Response "Partial route: first leg executed"
// @Failure 400 {object} httputil.Response "Invalid request"
// @Failure 404 {object} httputil.Response "No route available"
// @Failure 422 {object} httputil.Response "Slippage exceeded or transaction failed on chain"
// @Failure 502 {object} httputil.Response "Submission failed"
// @Failure 503 {object} httputil.Response "Signer not configured"
// @Failure 504 {object} httputil.Response "Confirmation timed out"
// @Router /api/v1/swap [post]
func (h *SwapHandler) executeSwap(c *gin.Context) {
	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	q, res, err := h.api.Execute(c.Request.Context(), req.trade())
	if res == nil {
		if err == nil {
			httputil.HandleInternalError(c, "execution returned no result")
			return
		}
		handleError(c, err)
		return
	}

	resp := newExecutionResponse(q, res, err)
	var partial *domain.PartialRouteError
	switch {
	case errors.As(err, &partial) || res.Outcome == domain.OutcomePartial:
		msg := "first leg executed, second leg did not"
		if err != nil {
			msg = err.Error()
		}
		httputil.Accepted(c, resp, msg)
	case err != nil:
		httputil.HTTPErrorWithData(c, toHTTPError(err), domain.FailedLeg(err), resp)
	default:
		httputil.HandleSuccess(c, resp)
	}
}

// @Summary Simulate swap
// @Description Quote a trade and simulate its first leg without submitting it.
// @Tags swap
// @Accept json
// @Produce json
// @Param request body SimulateRequest true "Trade"
// @Success 200 {object} SimulationResponse
// @Failure 400 {object} httputil.Response "Invalid request"
// @Failure 404 {object} httputil.Response "No route available"
// @Failure 503 {object} httputil.Response "No signer and no user public key"
// @Router /api/v1/swap/simulate [post]
func (h *SwapHandler) simulateSwap(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	trade := req.trade()
	trade.UserPublicKey = req.UserPublicKey

	sim, err := h.api.Simulate(c.Request.Context(), trade)
	if err != nil {
		handleError(c, err)
		return
	}
	resp := SimulationResponse{
		Quote:                   newQuoteResponse(sim.Quote),
		Simulation:              sim.Result,
		RecommendedComputeUnits: sim.ComputeUnitLimit,
	}
	if sim.Failure != nil {
		resp.Failure = sim.Failure.Error()
	}
	httputil.HandleSuccess(c, resp)
}
