package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivedesk/hivedesk/pkg/faults"
)

// statusFor maps a fault kind to an HTTP status.
func statusFor(err error) int {
	switch faults.KindOf(err) {
	case faults.KindValidation:
		return http.StatusBadRequest
	case faults.KindNotFound:
		return http.StatusNotFound
	case faults.KindConflict, faults.KindState:
		return http.StatusConflict
	case faults.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case faults.KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx *gin.Context, err error) {
	ctx.JSON(statusFor(err), gin.H{
		"error": gin.H{
			"kind":    string(faults.KindOf(err)),
			"message": err.Error(),
		},
	})
}
