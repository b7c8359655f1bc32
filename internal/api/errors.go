package api

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler turns a panic inside a handler into a 500 JSON response.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.FullPath()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response and aborts the chain.
func JSONError(c *gin.Context, status int, message, details string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Details: details})
}

func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		JSONError(c, http.StatusBadRequest, "Validation failed", fe.Field()+": failed '"+fe.Tag()+"' rule")
		return
	}
	JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
}

// respondError maps service errors onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		JSONError(c, http.StatusBadRequest, "Validation failed", verr.Error())
	case errors.Is(err, service.ErrValidation):
		JSONError(c, http.StatusBadRequest, "Validation failed", err.Error())
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotInvited):
		JSONError(c, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrUnknownStudio):
		JSONError(c, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, service.ErrSlotBooked),
		errors.Is(err, service.ErrSessionCanceled),
		errors.Is(err, service.ErrSessionCompleted),
		errors.Is(err, service.ErrAlreadyResponded):
		JSONError(c, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
		JSONError(c, http.StatusInternalServerError, "Internal Server Error", "")
	}
}
