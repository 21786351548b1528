package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
	"github.com/Eo-0118/Black-Kingdom/shared/access"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps service errors onto HTTP codes.
func statusFor(err error) int {
	var (
		validation *models.ValidationError
		unauth     *models.UnauthenticatedError
		denied     *access.AccessDeniedError
		notFound   *models.NotFoundError
		conflict   *models.ConflictError
		transition *models.InvalidTransitionError
		failed     *models.SubmissionFailedError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unauth):
		return http.StatusUnauthorized
	case errors.As(err, &denied):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &transition):
		return http.StatusUnprocessableEntity
	case errors.As(err, &failed):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err. Messages of unexpected errors stay in the log.
func writeError(c *gin.Context, logger *zerolog.Logger, err error) {
	code := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), RequestID: requestID(c)}

	var validation *models.ValidationError
	if errors.As(err, &validation) {
		resp.Field = validation.Field
	}

	if code >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("request_id", resp.RequestID).
			Str("path", c.FullPath()).
			Msg("request failed")
		resp.Error = publicMessage(code, err)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(code, resp)
}

func publicMessage(code int, err error) string {
	switch {
	case code == http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case models.IsSubmissionFailed(err):
		return "reservation could not be saved, please try again"
	}
	return "internal server error"
}
