package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/service"
	"github.com/rs/zerolog"
)

// EntryHandler handles entry endpoints
type EntryHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewEntryHandler creates a new EntryHandler
func NewEntryHandler(services *service.Services, log zerolog.Logger) *EntryHandler {
	return &EntryHandler{
		services: services,
		log:      log.With().Str("handler", "entry").Logger(),
	}
}

// List handles GET /v1/entries
// Filters: status (repeatable), locale (repeatable), contentTypeId, search,
// dateFrom, dateTo (RFC 3339). Ordering: sort, direction.
func (h *EntryHandler) List(c *gin.Context) {
	var filter models.EntryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "invalid filter: "+err.Error())
		return
	}
	order := models.DefaultEntrySort
	if err := c.ShouldBindQuery(&order); err != nil {
		badRequest(c, "invalid sort: "+err.Error())
		return
	}
	if order.Field == "" {
		order.Field = models.DefaultEntrySort.Field
	}

	entries := h.services.Entries.List(c.Request.Context(), filter, order)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// Recent handles GET /v1/entries/recent?limit=...
func (h *EntryHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	c.JSON(http.StatusOK, h.services.Entries.Recent(c.Request.Context(), limit))
}

func (h *EntryHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Entries.Stats(c.Request.Context()))
}

// Create handles POST /v1/entries
func (h *EntryHandler) Create(c *gin.Context) {
	var req models.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	e, err := h.services.Entries.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// Get handles GET /v1/entries/:id
func (h *EntryHandler) Get(c *gin.Context) {
	e, err := h.services.Entries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Update handles PUT /v1/entries/:id
func (h *EntryHandler) Update(c *gin.Context) {
	var upd models.EntryUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	e, err := h.services.Entries.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Patch handles PATCH /v1/entries/:id. The body patches the entry data; an
// application/json-patch+json body is an RFC 6902 operation list, anything
// else an RFC 7386 merge patch.
func (h *EntryHandler) Patch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "failed to read request body")
		return
	}
	kind := models.PatchMerge
	if strings.HasPrefix(c.ContentType(), "application/json-patch+json") {
		kind = models.PatchJSON
	}

	e, err := h.services.Entries.Patch(c.Request.Context(), c.Param("id"), kind, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Delete handles DELETE /v1/entries/:id
func (h *EntryHandler) Delete(c *gin.Context) {
	if err := h.services.Entries.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Publish handles POST /v1/entries/:id/publish
func (h *EntryHandler) Publish(c *gin.Context) {
	e, err := h.services.Entries.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Unpublish handles POST /v1/entries/:id/unpublish
func (h *EntryHandler) Unpublish(c *gin.Context) {
	e, err := h.services.Entries.Unpublish(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Schedule handles POST /v1/entries/:id/schedule with {"scheduledAt": "..."}
func (h *EntryHandler) Schedule(c *gin.Context) {
	var req struct {
		ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "scheduledAt is required (RFC 3339)")
		return
	}
	e, err := h.services.Entries.Schedule(c.Request.Context(), c.Param("id"), req.ScheduledAt)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Duplicate handles POST /v1/entries/:id/duplicate
func (h *EntryHandler) Duplicate(c *gin.Context) {
	e, err := h.services.Entries.Duplicate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if e == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	c.JSON(http.StatusCreated, e)
}

// PublishDue handles POST /v1/entries/publish-due
func (h *EntryHandler) PublishDue(c *gin.Context) {
	n, err := h.services.Scheduler.PublishDue(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"published": n})
}
