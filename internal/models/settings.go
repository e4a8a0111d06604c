package models

import (
	"time"
)

// Locale is a language the content can be authored in
type Locale struct {
	Code      string `json:"code" validate:"required"`
	Name      string `json:"name" validate:"required"`
	IsDefault bool   `json:"isDefault"`
}

// Settings holds application-wide preferences
type Settings struct {
	AppName                string   `json:"appName"`
	Description            string   `json:"description,omitempty"`
	DefaultLocale          string   `json:"defaultLocale"`
	Locales                []Locale `json:"locales"`
	Timezone               string   `json:"timezone"`
	I18nEnabled            bool     `json:"i18nEnabled"`
	DraftAndPublishEnabled bool     `json:"draftAndPublishEnabled"`
}

// DefaultSettings returns the settings of a fresh installation
func DefaultSettings() Settings {
	return Settings{
		AppName:       "My CMS",
		Description:   "A powerful headless CMS",
		DefaultLocale: DefaultLocale,
		Locales: []Locale{
			{Code: DefaultLocale, Name: "English", IsDefault: true},
		},
		Timezone:               "UTC",
		I18nEnabled:            false,
		DraftAndPublishEnabled: true,
	}
}

// Clone returns a deep copy
func (s Settings) Clone() Settings {
	out := s
	out.Locales = append([]Locale(nil), s.Locales...)
	return out
}

// APITokenType limits what an API token may do
type APITokenType string

const (
	TokenReadOnly   APITokenType = "read-only"
	TokenFullAccess APITokenType = "full-access"
)

// APIToken is an issued access token. Only the bcrypt hash of the secret is kept.
type APIToken struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       APITokenType `json:"type"`
	TokenHash  []byte       `json:"tokenHash,omitempty"`
	Prefix     string       `json:"prefix"`
	ExpiresAt  *time.Time   `json:"expiresAt,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	LastUsedAt *time.Time   `json:"lastUsedAt,omitempty"`
}

// GetID returns the token identity
func (t APIToken) GetID() string { return t.ID }

// Clone returns a deep copy
func (t APIToken) Clone() APIToken {
	out := t
	out.TokenHash = append([]byte(nil), t.TokenHash...)
	out.ExpiresAt = cloneTime(t.ExpiresAt)
	out.LastUsedAt = cloneTime(t.LastUsedAt)
	return out
}

// Redacted returns a copy without the secret hash, for API responses
func (t APIToken) Redacted() APIToken {
	out := t.Clone()
	out.TokenHash = nil
	return out
}

// APITokenRequest creates or updates a token
type APITokenRequest struct {
	Name      string       `json:"name" validate:"required"`
	Type      APITokenType `json:"type" validate:"required,oneof=read-only full-access"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

// IssuedToken is returned once, when a token secret is generated
type IssuedToken struct {
	APIToken
	Token string `json:"token"`
}

// Webhook notifies an external URL about content events
type Webhook struct {
	ID              string     `json:"id"`
	Name            string     `json:"name" validate:"required"`
	URL             string     `json:"url" validate:"required,url"`
	Events          []string   `json:"events" validate:"required,min=1"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`
}

// GetID returns the webhook identity
func (w Webhook) GetID() string { return w.ID }

// Clone returns a deep copy
func (w Webhook) Clone() Webhook {
	out := w
	out.Events = append([]string(nil), w.Events...)
	out.LastTriggeredAt = cloneTime(w.LastTriggeredAt)
	return out
}

// WebhookRequest creates or updates a webhook
type WebhookRequest struct {
	Name     string   `json:"name" validate:"required"`
	URL      string   `json:"url" validate:"required,url"`
	Events   []string `json:"events" validate:"required,min=1"`
	IsActive *bool    `json:"isActive,omitempty"`
}

// ThemeConfig holds the admin panel colors
type ThemeConfig struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	AccentColor    string `json:"accentColor"`
}

// UIConfig holds admin panel presentation preferences
type UIConfig struct {
	Theme              ThemeConfig `json:"theme"`
	SidebarCollapsed   bool        `json:"sidebarCollapsed"`
	ViewMode           string      `json:"viewMode" validate:"oneof=grid list"`
	ItemsPerPage       int         `json:"itemsPerPage" validate:"gte=1,lte=500"`
	ShowAdvancedFields bool        `json:"showAdvancedFields"`
}

// DefaultUIConfig returns the presentation defaults
func DefaultUIConfig() UIConfig {
	return UIConfig{
		Theme: ThemeConfig{
			PrimaryColor:   "#3b82f6",
			SecondaryColor: "#64748b",
			AccentColor:    "#8b5cf6",
		},
		SidebarCollapsed:   false,
		ViewMode:           "list",
		ItemsPerPage:       25,
		ShowAdvancedFields: false,
	}
}

// Clone returns a copy
func (c UIConfig) Clone() UIConfig {
	return c
}
