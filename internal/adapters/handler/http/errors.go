package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrOfferTitleEmpty),
		errors.Is(err, domain.ErrOfferTitleTooLong),
		errors.Is(err, domain.ErrOfferDescTooLong),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidTime),
		errors.Is(err, domain.ErrInvalidOfferID),
		errors.Is(err, domain.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOfferNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOfferConflict),
		errors.Is(err, domain.ErrImageExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the matching status. Internal errors are not
// echoed to the client.
func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, errorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, errorResponse{Error: err.Error()})
}
