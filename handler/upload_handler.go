package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdf-chat-be/service"
)

const (
	uploadFormField = "file"
	// room for boundaries, part headers and small form fields
	multipartOverhead = 1 << 20
)

type UploadHandler struct {
	ingestService *service.IngestService
}

func NewUploadHandler(ingestService *service.IngestService) *UploadHandler {
	return &UploadHandler{
		ingestService: ingestService,
	}
}

// UploadDocumentHandler streams the "file" part of a multipart request
// into the ingestion pipeline without buffering the whole form first.
func (h *UploadHandler) UploadDocumentHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.ingestService.MaxUploadBytes()+multipartOverhead)

	reader, err := c.Request.MultipartReader()
	if err != nil {
		abortWithDetail(c, http.StatusBadRequest, "Expected a multipart form with a file field")
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			abortWithDetail(c, http.StatusBadRequest, "No file provided")
			return
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				abortWithDetail(c, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			abortWithDetail(c, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		if part.FormName() != uploadFormField {
			part.Close()
			continue
		}

		filename := part.FileName()
		if filename == "" {
			part.Close()
			abortWithDetail(c, http.StatusBadRequest, "No file provided")
			return
		}

		res, err := h.ingestService.Ingest(c.Request.Context(), filename, part)
		part.Close()
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, res.UploadResponse)
		return
	}
}
