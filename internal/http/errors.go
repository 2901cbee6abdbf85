package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/swap-engine/internal/adapters/persistence"
	"github.com/hxuan190/swap-engine/internal/aggregator"
	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/http/httputil"
	"github.com/hxuan190/swap-engine/internal/services/builder"
	"github.com/hxuan190/swap-engine/internal/services/market"
)

// toHTTPError maps the trade error taxonomy onto status codes. Order matters: a
// timeout inside a partial route is reported by the caller, not here.
func toHTTPError(err error) *common.HttpError {
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrInvalidMint),
		errors.Is(err, domain.ErrSameMint),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidSwapMode),
		errors.Is(err, domain.ErrInvalidSlippage),
		errors.Is(err, domain.ErrMalformedPlan),
		errors.Is(err, builder.ErrInvalidSigner):
		return common.HTTPErrorBadRequest(msg)

	case errors.Is(err, domain.ErrNoRouteAvailable),
		errors.Is(err, domain.ErrNoPoolFound),
		errors.Is(err, market.ErrMintNotFound),
		errors.Is(err, persistence.ErrRecordNotFound):
		return common.HTTPErrorNotFound(msg)

	case errors.Is(err, domain.ErrInsufficientLiquidity),
		errors.Is(err, domain.ErrPoolDisabled),
		errors.Is(err, domain.ErrSlippageExceeded),
		errors.Is(err, domain.ErrTransactionFailed):
		return common.HTTPErrorUnprocessable(msg)

	case errors.Is(err, domain.ErrConfirmationTimeout):
		return common.HTTPErrorGatewayTimeout(msg)

	case errors.Is(err, domain.ErrSubmissionFailed):
		return common.HTTPErrorBadGateway(msg)

	case errors.Is(err, aggregator.ErrSignerNotConfigured),
		errors.Is(err, aggregator.ErrJournalDisabled):
		return common.HTTPErrorServiceUnavailable(msg)

	default:
		return common.HTTPErrorInternalError(msg)
	}
}

func handleError(c *gin.Context, err error) {
	httputil.HTTPError(c, toHTTPError(err), domain.FailedLeg(err))
}
