package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/apperror"
	"github.com/strata-blog-api/internal/auth"
)

// errorResponse is the body of every error reply
type errorResponse struct {
	Detail string                `json:"detail"`
	Errors []apperror.FieldError `json:"errors,omitempty"`
}

// writeError maps an application error to its status and body. Store causes are logged, never sent.
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	c.AbortWithStatusJSON(status, errorResponse{
		Detail: apperror.Detail(err),
		Errors: apperror.FieldsOf(err),
	})
}

func writeNotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Detail: apperror.ErrNotFound.Message})
}

// pathID parses the :id route parameter. Anything but an integer is not found.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeNotFound(c)
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body. An empty body leaves dst at its zero value.
func bindJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperror.Validation("Malformed JSON body.")
	}
	return nil
}

func authError(err error) error {
	if errors.Is(err, auth.ErrMalformedHeader) {
		return apperror.Unauthorized("Invalid authorization header.")
	}
	return apperror.Unauthorized("Invalid or expired token.")
}
