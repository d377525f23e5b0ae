package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerops/fba-fees/pkg/errors"
	"github.com/sellerops/fba-fees/pkg/logging"
)

// ErrorBody is the JSON shape of every API error.
type ErrorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Path      string            `json:"path"`
}

func errorBody(c *gin.Context, code, message string, details map[string]string) ErrorBody {
	return ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	}
}

// ErrorResponder writes error bodies for one request and logs them
// with that request's IDs and tenant.
type ErrorResponder struct {
	c      *gin.Context
	logger *logging.Logger
}

func NewErrorResponder(c *gin.Context, logger *logging.Logger) *ErrorResponder {
	return &ErrorResponder{c: c, logger: logger}
}

// Respond writes err. Anything that is not an AppError becomes a 500
// whose cause is logged but never returned to the caller.
func (r *ErrorResponder) Respond(err error) {
	r.RespondWithAppError(errors.FromError(err))
}

func (r *ErrorResponder) RespondWithAppError(appErr *errors.AppError) {
	log := r.logger.WithContext(r.c.Request.Context())
	if appErr.Err != nil {
		log = log.WithError(appErr.Err)
	}
	attrs := []any{"code", appErr.Code, "status", appErr.HTTPStatus, "method", r.c.Request.Method, "path", r.c.Request.URL.Path}
	if len(appErr.Details) > 0 {
		attrs = append(attrs, "details", appErr.Details)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error(appErr.Message, attrs...)
	} else {
		log.Warn(appErr.Message, attrs...)
	}

	r.c.JSON(appErr.HTTPStatus, errorBody(r.c, appErr.Code, appErr.Message, appErr.Details))
}

// AbortWithAppError stops the handler chain with appErr as the response.
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, errorBody(c, appErr.Code, appErr.Message, appErr.Details))
}
