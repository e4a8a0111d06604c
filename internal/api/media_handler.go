package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/headless-cms-admin/internal/config"
	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/service"
	"github.com/rs/zerolog"
)

// MediaHandler handles media library endpoints
type MediaHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "media").Logger(),
	}
}

// List handles GET /v1/media
// At most one of type, folder, q or recent is applied, in that order.
func (h *MediaHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var files []models.MediaFile
	switch {
	case c.Query("type") != "":
		files = h.services.Media.ByType(ctx, models.MediaFileType(c.Query("type")))
	case c.Query("folder") != "":
		files = h.services.Media.ByFolder(ctx, c.Query("folder"))
	case c.Query("q") != "":
		files = h.services.Media.Search(ctx, c.Query("q"))
	case c.Query("recent") != "":
		limit, _ := strconv.Atoi(c.Query("recent"))
		files = h.services.Media.Recent(ctx, limit)
	default:
		files = h.services.Media.List(ctx)
	}
	c.JSON(http.StatusOK, files)
}

func (h *MediaHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Media.Stats(c.Request.Context()))
}

func (h *MediaHandler) Folders(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Media.Folders(c.Request.Context()))
}

// Upload handles POST /v1/media (multipart: file, alt, caption, folder)
func (h *MediaHandler) Upload(c *gin.Context) {
	upload, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	file, err := h.services.Media.Ingest(c.Request.Context(), upload, data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("media_id", file.ID).
		Str("file", upload.Filename).
		Int64("size_bytes", file.Size).
		Msg("Media uploaded")
	c.JSON(http.StatusCreated, file)
}

// Replace handles PUT /v1/media/:id/file
func (h *MediaHandler) Replace(c *gin.Context) {
	upload, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	file, err := h.services.Media.Replace(c.Request.Context(), c.Param("id"), upload, data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

// readUpload extracts the multipart file. Bodies over the size limit are not
// read; the service rejects them from the declared size.
func (h *MediaHandler) readUpload(c *gin.Context) (models.Upload, []byte, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file upload is required")
		return models.Upload{}, nil, false
	}

	upload := models.Upload{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Alt:      c.PostForm("alt"),
		Caption:  c.PostForm("caption"),
		Folder:   c.PostForm("folder"),
	}
	if header.Size > h.cfg.Media.MaxFileSize {
		return upload, nil, true
	}

	data, err := readFormFile(header)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return models.Upload{}, nil, false
	}
	return upload, data, true
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Get handles GET /v1/media/:id
func (h *MediaHandler) Get(c *gin.Context) {
	file, err := h.services.Media.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

// Update handles PUT /v1/media/:id
func (h *MediaHandler) Update(c *gin.Context) {
	var upd models.MediaUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	file, err := h.services.Media.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

// Delete handles DELETE /v1/media/:id
func (h *MediaHandler) Delete(c *gin.Context) {
	if err := h.services.Media.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Move handles POST /v1/media/move
func (h *MediaHandler) Move(c *gin.Context) {
	var req struct {
		IDs    []string `json:"ids" binding:"required"`
		Folder string   `json:"folder"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "ids is required")
		return
	}
	n, err := h.services.Media.MoveToFolder(c.Request.Context(), req.IDs, req.Folder)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": n})
}

// DeleteFolder handles DELETE /v1/media/folders/:folder
func (h *MediaHandler) DeleteFolder(c *gin.Context) {
	n, err := h.services.Media.DeleteFolder(c.Request.Context(), c.Param("folder"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
