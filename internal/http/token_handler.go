package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/swap-engine/internal/http/httputil"
)

type TokenHandler struct {
	api SwapAPI
}

func NewTokenHandler(api SwapAPI) *TokenHandler {
	return &TokenHandler{api: api}
}

func (h *TokenHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/:mint", h.getToken)
}

func (h *TokenHandler) Root() string {
	return "/tokens"
}

// TokenResponse is a mint's metadata as used for amount conversion
type TokenResponse struct {
	Mint     string `json:"mint" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`
	Symbol   string `json:"symbol,omitempty" example:"USDC"`
	Decimals uint8  `json:"decimals" example:"6"`
	Program  string `json:"program" example:"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"`
}

// @Summary Get token
// @Description Resolve a mint address or registry symbol to its decimals and token program.
// @Tags tokens
// @Produce json
// @Param mint path string true "Mint address or symbol"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} httputil.Response "Invalid mint"
// @Failure 404 {object} httputil.Response "Mint not found"
// @Router /api/v1/tokens/{mint} [get]
func (h *TokenHandler) getToken(c *gin.Context) {
	tok, err := h.api.Token(c.Request.Context(), c.Param("mint"))
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.HandleSuccess(c, TokenResponse{
		Mint:     tok.Mint.String(),
		Symbol:   tok.Symbol,
		Decimals: tok.Decimals,
		Program:  tok.Program.String(),
	})
}
