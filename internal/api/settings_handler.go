package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/service"
	"github.com/rs/zerolog"
)

// SettingsHandler handles settings, locales, users, API tokens, webhooks and
// admin UI preferences
type SettingsHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(services *service.Services, log zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		services: services,
		log:      log.With().Str("handler", "settings").Logger(),
	}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Settings.Get(c.Request.Context()))
}

// Save handles PUT /v1/settings
func (h *SettingsHandler) Save(c *gin.Context) {
	var st models.Settings
	if err := c.ShouldBindJSON(&st); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	saved, err := h.services.Settings.Save(c.Request.Context(), st)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// Reset handles POST /v1/settings/reset
func (h *SettingsHandler) Reset(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Settings.Reset(ctx); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, h.services.Settings.Get(ctx))
}

// Locales

func (h *SettingsHandler) AddLocale(c *gin.Context) {
	var locale models.Locale
	if err := c.ShouldBindJSON(&locale); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	st, err := h.services.Settings.AddLocale(c.Request.Context(), locale)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *SettingsHandler) UpdateLocale(c *gin.Context) {
	var locale models.Locale
	if err := c.ShouldBindJSON(&locale); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	st, err := h.services.Settings.UpdateLocale(c.Request.Context(), c.Param("code"), locale)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *SettingsHandler) RemoveLocale(c *gin.Context) {
	st, err := h.services.Settings.RemoveLocale(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *SettingsHandler) SetDefaultLocale(c *gin.Context) {
	st, err := h.services.Settings.SetDefaultLocale(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// UI config

func (h *SettingsHandler) UIConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Settings.UIConfig(c.Request.Context()))
}

func (h *SettingsHandler) UpdateUIConfig(c *gin.Context) {
	var cfg models.UIConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	saved, err := h.services.Settings.UpdateUIConfig(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// Users

func (h *SettingsHandler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Settings.ListUsers(c.Request.Context()))
}

func (h *SettingsHandler) CreateUser(c *gin.Context) {
	var in models.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := h.services.Settings.CreateUser(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *SettingsHandler) GetUser(c *gin.Context) {
	u, err := h.services.Settings.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *SettingsHandler) UpdateUser(c *gin.Context) {
	var in models.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := h.services.Settings.UpdateUser(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *SettingsHandler) DeleteUser(c *gin.Context) {
	if err := h.services.Settings.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// API tokens

func (h *SettingsHandler) ListTokens(c *gin.Context) {
	ctx := c.Request.Context()
	tokens := h.services.Settings.ListTokens(ctx)
	if c.Query("active") == "true" {
		tokens = h.services.Settings.ActiveTokens(ctx)
	}
	out := make([]models.APIToken, len(tokens))
	for i, t := range tokens {
		out[i] = t.Redacted()
	}
	c.JSON(http.StatusOK, out)
}

// CreateToken handles POST /v1/tokens. The response is the only time the
// plaintext token is shown.
func (h *SettingsHandler) CreateToken(c *gin.Context) {
	var req models.APITokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	issued, err := h.services.Settings.CreateToken(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	issued.APIToken = issued.APIToken.Redacted()
	c.JSON(http.StatusCreated, issued)
}

func (h *SettingsHandler) UpdateToken(c *gin.Context) {
	var req models.APITokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	t, err := h.services.Settings.UpdateToken(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, t.Redacted())
}

func (h *SettingsHandler) RegenerateToken(c *gin.Context) {
	issued, err := h.services.Settings.RegenerateToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	issued.APIToken = issued.APIToken.Redacted()
	c.JSON(http.StatusOK, issued)
}

func (h *SettingsHandler) DeleteToken(c *gin.Context) {
	if err := h.services.Settings.DeleteToken(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// VerifyToken handles POST /v1/tokens/verify with an "Authorization: Bearer"
// header
func (h *SettingsHandler) VerifyToken(c *gin.Context) {
	secret, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || secret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}
	t, err := h.services.Settings.VerifyToken(c.Request.Context(), secret)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, t.Redacted())
}

// Webhooks

func (h *SettingsHandler) ListWebhooks(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Settings.ListWebhooks(c.Request.Context()))
}

func (h *SettingsHandler) CreateWebhook(c *gin.Context) {
	var req models.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	w, err := h.services.Settings.CreateWebhook(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *SettingsHandler) UpdateWebhook(c *gin.Context) {
	var req models.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	w, err := h.services.Settings.UpdateWebhook(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *SettingsHandler) ToggleWebhook(c *gin.Context) {
	w, err := h.services.Settings.ToggleWebhook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *SettingsHandler) DeleteWebhook(c *gin.Context) {
	if err := h.services.Settings.DeleteWebhook(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
