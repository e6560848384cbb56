package pdftext

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// FormField is the multipart field carrying the uploaded PDF.
const FormField = "pdfFile"

const DefaultMaxBytes = 20 << 20

// Handler serves the extraction endpoint of the standalone service.
type Handler struct {
	maxBytes int64
	logger   *slog.Logger
}

func NewHandler(maxBytes int64, logger *slog.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{maxBytes: maxBytes, logger: logger}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/extract-text", h.extract)
}

func (h *Handler) extract(c *gin.Context) {
	fh, err := c.FormFile(FormField)
	if err != nil {
		c.String(http.StatusBadRequest, "No files were uploaded.")
		return
	}
	if fh.Size > h.maxBytes {
		c.String(http.StatusRequestEntityTooLarge, "File too large.")
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "Could not read upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes))
	if err != nil {
		c.String(http.StatusBadRequest, "Could not read upload.")
		return
	}

	text, err := Extract(data)
	if err != nil {
		h.logger.Warn("pdf extraction failed", "file", fh.Filename, "error", err)
		c.String(http.StatusUnprocessableEntity, "Could not extract text from PDF.")
		return
	}
	c.String(http.StatusOK, text)
}
