package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "deal-chain.backend/internal/domain/errors"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error translates a domain error into the API error envelope. Classified
// errors keep their message; anything unclassified is a plain 500.
func Error(c *gin.Context, err error) {
	var appErr *domainerrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status, gin.H{"error": appErr.Message})
		return
	}

	status, message := classify(err)
	c.JSON(status, gin.H{"error": message})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domainerrors.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domainerrors.ErrInvalidTransition),
		errors.Is(err, domainerrors.ErrUnsupportedNetwork),
		errors.Is(err, domainerrors.ErrDealNotCrossChain),
		errors.Is(err, domainerrors.ErrConditionNotMutable),
		errors.Is(err, domainerrors.ErrDeadlinePassed),
		errors.Is(err, domainerrors.ErrAlreadyExists),
		errors.Is(err, domainerrors.ErrInvalidInput),
		errors.Is(err, domainerrors.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domainerrors.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domainerrors.ErrForbidden):
		return http.StatusForbidden, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
