package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/headless-cms-admin/internal/fieldtypes"
	"github.com/headless-cms-admin/internal/models"
)

// FieldTypeHandler serves the static field type catalog
type FieldTypeHandler struct{}

// NewFieldTypeHandler creates a new FieldTypeHandler
func NewFieldTypeHandler() *FieldTypeHandler {
	return &FieldTypeHandler{}
}

// List handles GET /v1/field-types?category=...
func (h *FieldTypeHandler) List(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		c.JSON(http.StatusOK, fieldtypes.ByCategory(fieldtypes.Category(category)))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": fieldtypes.Categories,
		"types":      fieldtypes.All(),
	})
}

// Get handles GET /v1/field-types/:type and includes the builder defaults
func (h *FieldTypeHandler) Get(c *gin.Context) {
	t := models.FieldType(c.Param("type"))
	info, ok := fieldtypes.Lookup(t)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown field type: " + string(t)})
		return
	}
	defaults, _ := fieldtypes.DefaultsFor(t)
	c.JSON(http.StatusOK, gin.H{
		"info":     info,
		"defaults": defaults,
	})
}
