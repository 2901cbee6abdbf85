package http

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/swap-engine/internal/aggregator"
	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/http/httputil"
	"github.com/hxuan190/swap-engine/internal/services/router"
)

// SwapAPI is the trade surface served over HTTP.
type SwapAPI interface {
	Quote(ctx context.Context, req aggregator.TradeRequest) (*aggregator.Quote, error)
	Execute(ctx context.Context, req aggregator.TradeRequest) (*aggregator.Quote, *domain.ExecutionResult, error)
	Simulate(ctx context.Context, req aggregator.TradeRequest) (*aggregator.Simulation, error)
	Execution(id string) (*domain.ExecutionRecord, error)
	Executions(outcome string) ([]*domain.ExecutionRecord, error)
	Token(ctx context.Context, symbolOrMint string) (domain.Token, error)
}

type QuoteHandler struct {
	api SwapAPI
}

func NewQuoteHandler(api SwapAPI) *QuoteHandler {
	return &QuoteHandler{api: api}
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

// QuoteRequest represents the parameters for requesting a swap quote
type QuoteRequest struct {
	// Input token mint address or registry symbol
	InputMint string `form:"inputMint" json:"inputMint" binding:"required" example:"So11111111111111111111111111111111111111112"`

	// Output token mint address or registry symbol
	OutputMint string `form:"outputMint" json:"outputMint" binding:"required" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`

	// Amount of the fixed side: input for ExactIn, output for ExactOut.
	// Smallest token units unless uiAmount is true.
	Amount string `form:"amount" json:"amount" binding:"required" example:"1000000000"`

	// Interpret amount as a display amount such as "1.5"
	UIAmount bool `form:"uiAmount" json:"uiAmount" example:"false"`

	SwapMode string `form:"swapMode" json:"swapMode" binding:"required" enums:"ExactIn,ExactOut" example:"ExactIn"`

	// Slippage tolerance in basis points. Defaults to the server setting.
	SlippageBps *uint16 `form:"slippageBps" json:"slippageBps" example:"50"`
}

func (r QuoteRequest) trade() aggregator.TradeRequest {
	return aggregator.TradeRequest{
		InputMint:   r.InputMint,
		OutputMint:  r.OutputMint,
		Amount:      r.Amount,
		UIAmount:    r.UIAmount,
		SwapMode:    r.SwapMode,
		SlippageBps: r.SlippageBps,
	}
}

// RouteInfo describes a single leg of the plan
type RouteInfo struct {
	PoolAddress string `json:"poolAddress" example:"7JuwJuNU88gurFnyWeiyGKbFmExMWcmRZntn9imEzdny"`
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	AmountIn    string `json:"amountIn"`
	AmountOut   string `json:"amountOut"`
	// Fee charged by the pool, in input token units
	FeeAmount      string `json:"feeAmount"`
	FeeBps         uint16 `json:"feeBps"`
	PriceImpactBps uint16 `json:"priceImpactBps"`
	// Pool price of the input before the trade, in output per input
	SpotPrice string `json:"spotPrice" example:"2"`
}

// QuoteResponse contains the priced plan
type QuoteResponse struct {
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	SwapMode   string `json:"swapMode" example:"ExactIn"`

	AmountIn    string `json:"amountIn" example:"1000000000"`
	AmountOut   string `json:"amountOut" example:"145320000"`
	UIAmountIn  string `json:"uiAmountIn" example:"1"`
	UIAmountOut string `json:"uiAmountOut" example:"145.32"`

	// Output per unit of input, decimals applied
	EffectivePrice string `json:"effectivePrice" example:"145.32"`

	PriceImpactBps      uint16 `json:"priceImpactBps" example:"25"`
	PriceImpactPercent  string `json:"priceImpactPercent" example:"0.25%"`
	PriceImpactSeverity string `json:"priceImpactSeverity" enums:"none,low,moderate,high,extreme" example:"none"`
	PriceImpactWarning  string `json:"priceImpactWarning,omitempty"`

	// Sum of pool fees across legs
	FeeBps uint16 `json:"feeBps" example:"50"`

	Routes    []RouteInfo `json:"routes"`
	RoutePath []string    `json:"routePath"`
	HopCount  int         `json:"hopCount" example:"1"`

	SlippageBps uint16 `json:"slippageBps" example:"50"`
	// Minimum output (ExactIn) or maximum input (ExactOut) after slippage
	OtherAmountThreshold string `json:"otherAmountThreshold" example:"144593400"`
}

func newQuoteResponse(q *aggregator.Quote) QuoteResponse {
	plan := q.Plan

	routes := make([]RouteInfo, 0, len(plan.Legs))
	var totalFeeBps uint16
	for _, leg := range plan.Legs {
		feeBps := uint16(leg.Pool.FeeRate / 100)
		totalFeeBps += feeBps
		spot := ""
		if price, err := leg.Pool.SpotPrice(leg.InputMint); err == nil {
			spot = price.String()
		}
		routes = append(routes, RouteInfo{
			PoolAddress:    leg.Pool.Address.String(),
			InputMint:      leg.InputMint.String(),
			OutputMint:     leg.OutputMint.String(),
			AmountIn:       leg.AmountIn.String(),
			AmountOut:      leg.AmountOut.String(),
			FeeAmount:      leg.Fee.String(),
			FeeBps:         feeBps,
			PriceImpactBps: leg.PriceImpactBps,
			SpotPrice:      spot,
		})
	}

	route := plan.Route()
	routePath := make([]string, 0, len(route))
	for _, mint := range route {
		routePath = append(routePath, mint.String())
	}

	return QuoteResponse{
		InputMint:            plan.Intent.InputMint.String(),
		OutputMint:           plan.Intent.OutputMint.String(),
		SwapMode:             string(plan.Intent.Mode),
		AmountIn:             plan.AmountIn.String(),
		AmountOut:            plan.AmountOut.String(),
		UIAmountIn:           common.FormatBaseUnits(plan.AmountIn, q.InputToken.Decimals),
		UIAmountOut:          common.FormatBaseUnits(plan.AmountOut, q.OutputToken.Decimals),
		EffectivePrice:       plan.EffectivePrice().String(),
		PriceImpactBps:       plan.PriceImpactBps,
		PriceImpactPercent:   fmt.Sprintf("%.2f%%", float64(plan.PriceImpactBps)/100.0),
		PriceImpactSeverity:  string(router.GetPriceImpactSeverity(plan.PriceImpactBps)),
		PriceImpactWarning:   router.GetPriceImpactWarning(plan.PriceImpactBps),
		FeeBps:               totalFeeBps,
		Routes:               routes,
		RoutePath:            routePath,
		HopCount:             len(plan.Legs),
		SlippageBps:          q.SlippageBps,
		OtherAmountThreshold: q.Threshold.String(),
	}
}

// @Summary Get swap quote
// @Description Price a trade against Raydium CPMM pools. A direct pool is used when one
// @Description exists; otherwise the trade is routed through the configured route token.
// @Tags quote
// @Produce json
// @Param inputMint query string true "Input mint or symbol"
// @Param outputMint query string true "Output mint or symbol"
// @Param amount query string true "Amount of the fixed side"
// @Param uiAmount query bool false "Amount is a display amount"
// @Param swapMode query string true "ExactIn or ExactOut" Enums(ExactIn, ExactOut)
// @Param slippageBps query int false "Slippage tolerance in bps"
// @Success 200 {object} QuoteResponse
// @Failure 400 {object} httputil.Response "Invalid request parameters"
// @Failure 404 {object} httputil.Response "No route available"
// @Failure 422 {object} httputil.Response "Insufficient liquidity, with the failing leg"
// @Router /api/v1/quote [get]
func (h *QuoteHandler) getQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	q, err := h.api.Quote(c.Request.Context(), req.trade())
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.HandleSuccess(c, newQuoteResponse(q))
}
