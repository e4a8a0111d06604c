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

// reorderRequest is the body of a field reorder
type reorderRequest struct {
	Fields []string `json:"fields" binding:"required"`
}

// ComponentHandler handles component endpoints
type ComponentHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewComponentHandler creates a new ComponentHandler
func NewComponentHandler(services *service.Services, log zerolog.Logger) *ComponentHandler {
	return &ComponentHandler{
		services: services,
		log:      log.With().Str("handler", "component").Logger(),
	}
}

// List handles GET /v1/components?category=...&q=...
func (h *ComponentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	switch {
	case c.Query("q") != "":
		c.JSON(http.StatusOK, h.services.Components.Search(ctx, c.Query("q")))
	case c.Query("category") != "":
		c.JSON(http.StatusOK, h.services.Components.ByCategory(ctx, c.Query("category")))
	default:
		c.JSON(http.StatusOK, h.services.Components.List(ctx))
	}
}

func (h *ComponentHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Components.Categories(c.Request.Context()))
}

func (h *ComponentHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Components.Stats(c.Request.Context()))
}

// Create handles POST /v1/components
func (h *ComponentHandler) Create(c *gin.Context) {
	var in models.ComponentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	comp, err := h.services.Components.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comp)
}

// Get handles GET /v1/components/:id
func (h *ComponentHandler) Get(c *gin.Context) {
	comp, err := h.services.Components.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

// Update handles PUT /v1/components/:id
func (h *ComponentHandler) Update(c *gin.Context) {
	var in models.ComponentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	comp, err := h.services.Components.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

// Delete handles DELETE /v1/components/:id
func (h *ComponentHandler) Delete(c *gin.Context) {
	if err := h.services.Components.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Usage handles GET /v1/components/:id/usage
func (h *ComponentHandler) Usage(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	usedIn, err := h.services.Components.UsedIn(ctx, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	types, err := h.services.Components.ContentTypesUsing(ctx, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	comps, err := h.services.Components.ComponentsUsing(ctx, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"usageCount":   len(usedIn),
		"usedIn":       usedIn,
		"contentTypes": types,
		"components":   comps,
	})
}

// Export handles GET /v1/components/:id/export
func (h *ComponentHandler) Export(c *gin.Context) {
	id := c.Param("id")
	data, err := h.services.Components.Export(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=component_%s.json", id))
	c.Data(http.StatusOK, "application/json", data)
}

// Import handles POST /v1/components/import with an exported component as body
func (h *ComponentHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "failed to read request body")
		return
	}
	comp, err := h.services.Components.Import(c.Request.Context(), data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info().Str("component_id", comp.ID).Str("name", comp.Name).Msg("Component imported")
	c.JSON(http.StatusCreated, comp)
}

// AddField handles POST /v1/components/:id/fields
func (h *ComponentHandler) AddField(c *gin.Context) {
	var field models.FieldDefinition
	if err := c.ShouldBindJSON(&field); err != nil {
		badRequest(c, "invalid field definition")
		return
	}
	comp, err := h.services.Components.AddField(c.Request.Context(), c.Param("id"), field)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

// UpdateField handles PUT /v1/components/:id/fields/:field
func (h *ComponentHandler) UpdateField(c *gin.Context) {
	var field models.FieldDefinition
	if err := c.ShouldBindJSON(&field); err != nil {
		badRequest(c, "invalid field definition")
		return
	}
	comp, err := h.services.Components.UpdateField(c.Request.Context(), c.Param("id"), c.Param("field"), field)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

// RemoveField handles DELETE /v1/components/:id/fields/:field
func (h *ComponentHandler) RemoveField(c *gin.Context) {
	comp, err := h.services.Components.RemoveField(c.Request.Context(), c.Param("id"), c.Param("field"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

// ReorderFields handles PUT /v1/components/:id/fields-order
func (h *ComponentHandler) ReorderFields(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "fields is required")
		return
	}
	comp, err := h.services.Components.ReorderFields(c.Request.Context(), c.Param("id"), req.Fields)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}
