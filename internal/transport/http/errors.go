package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dracarys0904/ServiceGo/internal/domain"
)

// writeError maps domain errors onto HTTP statuses. Store failures surface
// as 502 so the client can distinguish "retry later" from its own mistakes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidBooking):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
