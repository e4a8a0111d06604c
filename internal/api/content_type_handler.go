package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/service"
	"github.com/rs/zerolog"
)

// ContentTypeHandler handles content type endpoints
type ContentTypeHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewContentTypeHandler creates a new ContentTypeHandler
func NewContentTypeHandler(services *service.Services, log zerolog.Logger) *ContentTypeHandler {
	return &ContentTypeHandler{
		services: services,
		log:      log.With().Str("handler", "content_type").Logger(),
	}
}

// List handles GET /v1/content-types?kind=...&q=...
func (h *ContentTypeHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	switch {
	case c.Query("q") != "":
		c.JSON(http.StatusOK, h.services.ContentTypes.Search(ctx, c.Query("q")))
	case c.Query("kind") != "":
		c.JSON(http.StatusOK, h.services.ContentTypes.ByKind(ctx, models.ContentTypeKind(c.Query("kind"))))
	default:
		c.JSON(http.StatusOK, h.services.ContentTypes.List(ctx))
	}
}

func (h *ContentTypeHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.ContentTypes.Stats(c.Request.Context()))
}

// Create handles POST /v1/content-types
func (h *ContentTypeHandler) Create(c *gin.Context) {
	var in models.ContentTypeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ct, err := h.services.ContentTypes.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, ct)
}

// Get handles GET /v1/content-types/:id
func (h *ContentTypeHandler) Get(c *gin.Context) {
	ct, err := h.services.ContentTypes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

// GetByAPIID handles GET /v1/content-types/api-id/:apiId
func (h *ContentTypeHandler) GetByAPIID(c *gin.Context) {
	ct, err := h.services.ContentTypes.GetByAPIID(c.Request.Context(), c.Param("apiId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

// Update handles PUT /v1/content-types/:id
func (h *ContentTypeHandler) Update(c *gin.Context) {
	var in models.ContentTypeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ct, err := h.services.ContentTypes.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

// Delete handles DELETE /v1/content-types/:id
func (h *ContentTypeHandler) Delete(c *gin.Context) {
	if err := h.services.ContentTypes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddField handles POST /v1/content-types/:id/fields
func (h *ContentTypeHandler) AddField(c *gin.Context) {
	var field models.FieldDefinition
	if err := c.ShouldBindJSON(&field); err != nil {
		badRequest(c, "invalid field definition")
		return
	}
	ct, err := h.services.ContentTypes.AddField(c.Request.Context(), c.Param("id"), field)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

// UpdateField handles PUT /v1/content-types/:id/fields/:field
func (h *ContentTypeHandler) UpdateField(c *gin.Context) {
	var field models.FieldDefinition
	if err := c.ShouldBindJSON(&field); err != nil {
		badRequest(c, "invalid field definition")
		return
	}
	ct, err := h.services.ContentTypes.UpdateField(c.Request.Context(), c.Param("id"), c.Param("field"), field)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

// RemoveField handles DELETE /v1/content-types/:id/fields/:field
func (h *ContentTypeHandler) RemoveField(c *gin.Context) {
	ct, err := h.services.ContentTypes.RemoveField(c.Request.Context(), c.Param("id"), c.Param("field"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

// ReorderFields handles PUT /v1/content-types/:id/fields-order
func (h *ContentTypeHandler) ReorderFields(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "fields is required")
		return
	}
	ct, err := h.services.ContentTypes.ReorderFields(c.Request.Context(), c.Param("id"), req.Fields)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}
