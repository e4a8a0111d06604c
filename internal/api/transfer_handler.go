package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/service"
	"github.com/rs/zerolog"
)

var streamContentTypes = map[string]string{
	service.FormatNDJSON: "application/x-ndjson",
	service.FormatJSON:   "application/json",
	service.FormatCSV:    "text/csv",
}

// TransferHandler handles bundle and entry stream endpoints
type TransferHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(services *service.Services, log zerolog.Logger) *TransferHandler {
	return &TransferHandler{
		services: services,
		log:      log.With().Str("handler", "transfer").Logger(),
	}
}

// Export handles GET /v1/transfer/export
func (h *TransferHandler) Export(c *gin.Context) {
	bundle, err := h.services.Transfer.Export(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=cms-export-%s.json", bundle.ExportedAt.Format("20060102-150405")))
	c.JSON(http.StatusOK, bundle)
}

// Import handles POST /v1/transfer/import with a bundle as body. The current
// schema, entries, media and settings are replaced.
func (h *TransferHandler) Import(c *gin.Context) {
	var bundle models.ExportBundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		badRequest(c, "invalid bundle: "+err.Error())
		return
	}
	if err := h.services.Transfer.Import(c.Request.Context(), &bundle); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contentTypes": len(bundle.ContentTypes),
		"components":   len(bundle.Components),
		"entries":      len(bundle.Entries),
		"mediaFiles":   len(bundle.MediaFiles),
	})
}

// Reconcile handles POST /v1/transfer/reconcile
func (h *TransferHandler) Reconcile(c *gin.Context) {
	report, err := h.services.Transfer.Reconcile(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// StreamEntries handles GET /v1/content-types/:id/entries/export?format=...
func (h *TransferHandler) StreamEntries(c *gin.Context) {
	h.stream(c, c.Param("id"))
}

// StreamAllEntries handles GET /v1/transfer/entries?format=ndjson|json
func (h *TransferHandler) StreamAllEntries(c *gin.Context) {
	h.stream(c, "")
}

// stream writes entries straight to the response
func (h *TransferHandler) stream(c *gin.Context, contentTypeID string) {
	format := c.Query("format")
	if format == "" {
		format = service.FormatNDJSON // Default to NDJSON for streaming
	}
	mime, ok := streamContentTypes[format]
	if !ok {
		badRequest(c, "format must be one of: ndjson, json, csv")
		return
	}
	if format == service.FormatCSV && contentTypeID == "" {
		badRequest(c, "CSV format needs a content type")
		return
	}

	c.Header("Content-Type", mime)
	if format == service.FormatCSV {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=entries_%s.csv", contentTypeID))
	}

	n, err := h.services.Transfer.StreamEntries(c.Request.Context(), c.Writer, contentTypeID, format)
	if err != nil {
		if !c.Writer.Written() {
			c.Header("Content-Type", "application/json; charset=utf-8")
			respondError(c, h.log, err)
			return
		}
		// Can't return error JSON after streaming has started
		h.log.Error().Err(err).Int("written", n).Str("content_type_id", contentTypeID).Msg("Entry export failed")
	}
}

// ImportEntries handles POST /v1/content-types/:id/entries/import. The NDJSON
// lines come from a multipart "file" or, failing that, the raw body.
func (h *TransferHandler) ImportEntries(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if header, err := c.FormFile("file"); err == nil {
		f, err := header.Open()
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to open upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
			return
		}
		defer f.Close()
		body = f
	}

	result, err := h.services.Transfer.ImportEntries(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("content_type_id", c.Param("id")).
		Int("created", result.Created).
		Int("failed", result.Failed).
		Msg("Entries imported")
	c.JSON(http.StatusOK, result)
}
