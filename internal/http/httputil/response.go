package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/swap-engine/internal/common"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	// Leg is the 1-based leg a trade error came from.
	Leg int `json:"leg,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, err string) {
	c.JSON(status, Response{
		Success: false,
		Error:   err,
	})
}

func BadRequest(c *gin.Context, err string) {
	Error(c, http.StatusBadRequest, err)
}

func InternalError(c *gin.Context, err string) {
	Error(c, http.StatusInternalServerError, err)
}

func NotFound(c *gin.Context, err string) {
	Error(c, http.StatusNotFound, err)
}

// HTTPError writes a mapped error with its code and, when known, the failing leg.
func HTTPError(c *gin.Context, err *common.HttpError, leg int) {
	HTTPErrorWithData(c, err, leg, nil)
}

func HTTPErrorWithData(c *gin.Context, err *common.HttpError, leg int, data interface{}) {
	c.JSON(err.StatusCode, Response{
		Success: false,
		Data:    data,
		Error:   err.Message,
		Code:    err.Code,
		Leg:     leg,
	})
}

// Accepted reports work that started but did not complete, such as a route whose
// first leg landed.
func Accepted(c *gin.Context, data interface{}, err string) {
	c.JSON(http.StatusAccepted, Response{
		Success: false,
		Data:    data,
		Error:   err,
		Code:    "PARTIAL_ROUTE_EXECUTED",
		Leg:     2,
	})
}

// Aliases for compatibility
func HandleSuccess(c *gin.Context, data interface{}) {
	Success(c, data)
}

func HandleBadRequest(c *gin.Context, err string) {
	BadRequest(c, err)
}

func HandleNotFound(c *gin.Context, err string) {
	NotFound(c, err)
}

func HandleInternalError(c *gin.Context, err string) {
	InternalError(c, err)
}
