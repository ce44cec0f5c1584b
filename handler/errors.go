package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdf-chat-be/types"
)

// errorStatus maps a pipeline error to its HTTP status and response detail.
// Internal failures get a generic detail, the cause goes to the log.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, types.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, types.ErrInvalidPDF):
		return http.StatusBadRequest, "Invalid PDF file"
	case errors.Is(err, types.ErrNoContent):
		return http.StatusBadRequest, "No text could be extracted from the PDF"
	case errors.Is(err, types.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, types.ErrUpstream):
		return http.StatusInternalServerError, "Model provider request failed"
	case errors.Is(err, types.ErrStorage):
		return http.StatusInternalServerError, "Vector store request failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, detail := errorStatus(err)
	c.Error(err)
	c.AbortWithStatusJSON(status, types.ErrorResponse{Detail: detail})
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, types.ErrorResponse{Detail: detail})
}
