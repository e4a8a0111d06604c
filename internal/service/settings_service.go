package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/headless-cms-admin/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenSecretPrefix = "cms_"
	tokenPrefixLen    = 12
)

// settingsService is the concrete implementation of SettingsService
type settingsService struct {
	*deps
	log zerolog.Logger
}

// newSettingsService creates a new SettingsService
func newSettingsService(d *deps, log zerolog.Logger) *settingsService {
	return &settingsService{
		deps: d,
		log:  log.With().Str("service", "settings").Logger(),
	}
}

func (s *settingsService) Get(ctx context.Context) models.Settings {
	return s.repos.Settings.Get()
}

// Save replaces the settings after the configured save delay. The delay is
// spent before the service lock is taken and honours ctx.
func (s *settingsService) Save(ctx context.Context, settings models.Settings) (models.Settings, error) {
	if delay := s.cfg.Settings.SaveDelay; delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return models.Settings{}, s.record("settings", "save", ctx.Err())
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := normalizeSettings(&settings); err != nil {
		return models.Settings{}, s.record("settings", "save", err)
	}
	for _, l := range settings.Locales {
		if err := s.validator.Struct(l); err != nil {
			return models.Settings{}, s.record("settings", "save", err)
		}
	}
	if err := s.repos.Settings.Set(ctx, settings); err != nil {
		return models.Settings{}, s.record("settings", "save", fmt.Errorf("failed to save settings: %w", err))
	}
	s.log.Info().Str("app_name", settings.AppName).Msg("Settings saved")
	return settings.Clone(), s.record("settings", "save", nil)
}

// Reset restores the default settings
func (s *settingsService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repos.Settings.Reset(ctx); err != nil {
		return s.record("settings", "reset", fmt.Errorf("failed to reset settings: %w", err))
	}
	return s.record("settings", "reset", nil)
}

// normalizeSettings checks that the default locale exists and makes the
// IsDefault flags agree with it
func normalizeSettings(settings *models.Settings) error {
	if len(settings.Locales) == 0 {
		return models.NewFieldError(models.ErrRequiredField, "locales", "at least one locale is required")
	}
	seen := make(map[string]bool, len(settings.Locales))
	for _, l := range settings.Locales {
		if seen[l.Code] {
			return models.NewFieldError(models.ErrDuplicateName, "locales", "locale %s is listed twice", l.Code)
		}
		seen[l.Code] = true
	}
	if settings.DefaultLocale == "" {
		settings.DefaultLocale = settings.Locales[0].Code
		for _, l := range settings.Locales {
			if l.IsDefault {
				settings.DefaultLocale = l.Code
				break
			}
		}
	}
	if !seen[settings.DefaultLocale] {
		return models.NewFieldError(models.ErrInvalidField, "defaultLocale", "default locale %s is not configured", settings.DefaultLocale)
	}
	settings.Locales = append([]models.Locale(nil), settings.Locales...)
	for i := range settings.Locales {
		settings.Locales[i].IsDefault = settings.Locales[i].Code == settings.DefaultLocale
	}
	return nil
}

// AddLocale appends a locale; a default locale also becomes the default
func (s *settingsService) AddLocale(ctx context.Context, locale models.Locale) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.editLocales(ctx, func(st *models.Settings) error {
		if err := s.validator.Struct(locale); err != nil {
			return err
		}
		for _, l := range st.Locales {
			if l.Code == locale.Code {
				return models.NewFieldError(models.ErrDuplicateName, "code", "locale %s already exists", locale.Code)
			}
		}
		st.Locales = append(st.Locales, locale)
		if locale.IsDefault {
			st.DefaultLocale = locale.Code
		}
		return nil
	})
	return settings, s.record("settings", "add_locale", err)
}

// UpdateLocale renames a locale or changes its code
func (s *settingsService) UpdateLocale(ctx context.Context, code string, locale models.Locale) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.editLocales(ctx, func(st *models.Settings) error {
		if err := s.validator.Struct(locale); err != nil {
			return err
		}
		idx := -1
		for i, l := range st.Locales {
			if l.Code == code {
				idx = i
			} else if l.Code == locale.Code {
				return models.NewFieldError(models.ErrDuplicateName, "code", "locale %s already exists", locale.Code)
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", models.ErrLocaleNotFound, code)
		}
		if st.DefaultLocale == code || locale.IsDefault {
			st.DefaultLocale = locale.Code
		}
		st.Locales[idx] = locale
		return nil
	})
	return settings, s.record("settings", "update_locale", err)
}

// RemoveLocale drops a locale other than the default
func (s *settingsService) RemoveLocale(ctx context.Context, code string) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.editLocales(ctx, func(st *models.Settings) error {
		if st.DefaultLocale == code {
			return fmt.Errorf("locale %s is the default: %w", code, models.ErrInUse)
		}
		kept := make([]models.Locale, 0, len(st.Locales))
		for _, l := range st.Locales {
			if l.Code != code {
				kept = append(kept, l)
			}
		}
		if len(kept) == len(st.Locales) {
			return fmt.Errorf("%w: %s", models.ErrLocaleNotFound, code)
		}
		st.Locales = kept
		return nil
	})
	return settings, s.record("settings", "remove_locale", err)
}

func (s *settingsService) SetDefaultLocale(ctx context.Context, code string) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.editLocales(ctx, func(st *models.Settings) error {
		for _, l := range st.Locales {
			if l.Code == code {
				st.DefaultLocale = code
				return nil
			}
		}
		return fmt.Errorf("%w: %s", models.ErrLocaleNotFound, code)
	})
	return settings, s.record("settings", "set_default_locale", err)
}

func (s *settingsService) editLocales(ctx context.Context, fn func(*models.Settings) error) (models.Settings, error) {
	settings := s.repos.Settings.Get()
	if err := fn(&settings); err != nil {
		return models.Settings{}, err
	}
	if err := normalizeSettings(&settings); err != nil {
		return models.Settings{}, err
	}
	if err := s.repos.Settings.Set(ctx, settings); err != nil {
		return models.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return settings, nil
}

func (s *settingsService) UIConfig(ctx context.Context) models.UIConfig {
	return s.repos.UIConfig.Get()
}

func (s *settingsService) UpdateUIConfig(ctx context.Context, cfg models.UIConfig) (models.UIConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validator.Struct(cfg); err != nil {
		return models.UIConfig{}, s.record("settings", "update_ui_config", err)
	}
	if err := s.repos.UIConfig.Set(ctx, cfg); err != nil {
		return models.UIConfig{}, s.record("settings", "update_ui_config", fmt.Errorf("failed to save ui config: %w", err))
	}
	return cfg, s.record("settings", "update_ui_config", nil)
}

// Users

// CreateUser registers an account; emails are unique ignoring case
func (s *settingsService) CreateUser(ctx context.Context, in models.UserInput) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validator.ValidateUser(&in); err != nil {
		return nil, s.record("user", "create", err)
	}
	if err := s.checkEmailFree(in.Email, ""); err != nil {
		return nil, s.record("user", "create", err)
	}

	now := s.now()
	u := models.User{
		ID:        s.newID(),
		Username:  strings.TrimSpace(in.Username),
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Avatar:    in.Avatar,
		Role:      in.Role,
		IsActive:  in.IsActive == nil || *in.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repos.Users.Insert(ctx, u); err != nil {
		return nil, s.record("user", "create", fmt.Errorf("failed to save user: %w", err))
	}
	return &u, s.record("user", "create", nil)
}

// UpdateUser overlays the non-empty members of in on the account
func (s *settingsService) UpdateUser(ctx context.Context, id string, in models.UserInput) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.repos.Users.Get(id)
	if !ok {
		return nil, s.record("user", "update", fmt.Errorf("%w: %s", models.ErrUserNotFound, id))
	}
	merged := models.UserInput{
		Username:  firstNonEmpty(in.Username, u.Username),
		Email:     firstNonEmpty(in.Email, u.Email),
		FirstName: firstNonEmpty(in.FirstName, u.FirstName),
		LastName:  firstNonEmpty(in.LastName, u.LastName),
		Avatar:    firstNonEmpty(in.Avatar, u.Avatar),
		Role:      firstNonEmpty(in.Role, u.Role),
	}
	if err := s.validator.ValidateUser(&merged); err != nil {
		return nil, s.record("user", "update", err)
	}
	if err := s.checkEmailFree(merged.Email, id); err != nil {
		return nil, s.record("user", "update", err)
	}

	u.Username = strings.TrimSpace(merged.Username)
	u.Email = merged.Email
	u.FirstName = merged.FirstName
	u.LastName = merged.LastName
	u.Avatar = merged.Avatar
	u.Role = merged.Role
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	u.UpdatedAt = s.now()

	if err := s.repos.Users.Update(ctx, u); err != nil {
		return nil, s.record("user", "update", fmt.Errorf("failed to save user: %w", err))
	}
	return &u, s.record("user", "update", nil)
}

func (s *settingsService) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos.Users.Get(id); !ok {
		return s.record("user", "delete", fmt.Errorf("%w: %s", models.ErrUserNotFound, id))
	}
	if err := s.repos.Users.Delete(ctx, id); err != nil {
		return s.record("user", "delete", fmt.Errorf("failed to delete user: %w", err))
	}
	return s.record("user", "delete", nil)
}

func (s *settingsService) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.repos.Users.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUserNotFound, id)
	}
	return &u, nil
}

func (s *settingsService) ListUsers(ctx context.Context) []models.User {
	return s.repos.Users.List()
}

func (s *settingsService) checkEmailFree(email, exceptID string) error {
	_, taken := s.repos.Users.Find(func(u models.User) bool {
		return strings.EqualFold(u.Email, email) && u.ID != exceptID
	})
	if taken {
		return models.NewFieldError(models.ErrDuplicateName, "email", "email %s is already registered", email)
	}
	return nil
}

// API tokens

// CreateToken issues a token. The plaintext secret is only ever returned here
// and by RegenerateToken; the store keeps its bcrypt hash.
func (s *settingsService) CreateToken(ctx context.Context, req models.APITokenRequest) (*models.IssuedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issued, err := s.createToken(ctx, req)
	return issued, s.record("token", "create", err)
}

func (s *settingsService) createToken(ctx context.Context, req models.APITokenRequest) (*models.IssuedToken, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	now := s.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, models.NewFieldError(models.ErrOutOfRange, "expiresAt", "expiresAt must be in the future")
	}

	secret, hash, err := newTokenSecret()
	if err != nil {
		return nil, err
	}
	t := models.APIToken{
		ID:        s.newID(),
		Name:      req.Name,
		Type:      req.Type,
		TokenHash: hash,
		Prefix:    secret[:tokenPrefixLen],
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
	}
	if err := s.repos.APITokens.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save api token: %w", err)
	}
	s.log.Info().Str("token_id", t.ID).Str("prefix", t.Prefix).Msg("API token issued")
	return &models.IssuedToken{APIToken: t, Token: secret}, nil
}

func (s *settingsService) UpdateToken(ctx context.Context, id string, req models.APITokenRequest) (*models.APIToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.repos.APITokens.Get(id)
	if !ok {
		return nil, s.record("token", "update", fmt.Errorf("%w: %s", models.ErrTokenNotFound, id))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, s.record("token", "update", err)
	}
	t.Name = req.Name
	t.Type = req.Type
	t.ExpiresAt = req.ExpiresAt
	if err := s.repos.APITokens.Update(ctx, t); err != nil {
		return nil, s.record("token", "update", fmt.Errorf("failed to save api token: %w", err))
	}
	return &t, s.record("token", "update", nil)
}

// RegenerateToken replaces the secret of a token, invalidating the old one
func (s *settingsService) RegenerateToken(ctx context.Context, id string) (*models.IssuedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.repos.APITokens.Get(id)
	if !ok {
		return nil, s.record("token", "regenerate", fmt.Errorf("%w: %s", models.ErrTokenNotFound, id))
	}
	secret, hash, err := newTokenSecret()
	if err != nil {
		return nil, s.record("token", "regenerate", err)
	}
	t.TokenHash = hash
	t.Prefix = secret[:tokenPrefixLen]
	t.LastUsedAt = nil
	if err := s.repos.APITokens.Update(ctx, t); err != nil {
		return nil, s.record("token", "regenerate", fmt.Errorf("failed to save api token: %w", err))
	}
	return &models.IssuedToken{APIToken: t, Token: secret}, s.record("token", "regenerate", nil)
}

func (s *settingsService) DeleteToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos.APITokens.Get(id); !ok {
		return s.record("token", "delete", fmt.Errorf("%w: %s", models.ErrTokenNotFound, id))
	}
	if err := s.repos.APITokens.Delete(ctx, id); err != nil {
		return s.record("token", "delete", fmt.Errorf("failed to delete api token: %w", err))
	}
	return s.record("token", "delete", nil)
}

func (s *settingsService) ListTokens(ctx context.Context) []models.APIToken {
	return s.repos.APITokens.List()
}

// ActiveTokens returns the tokens that have not expired
func (s *settingsService) ActiveTokens(ctx context.Context) []models.APIToken {
	now := s.now()
	return s.repos.APITokens.Filter(func(t models.APIToken) bool { return !tokenExpired(t, now) })
}

// VerifyToken resolves a plaintext secret to its unexpired token and stamps
// LastUsedAt
func (s *settingsService) VerifyToken(ctx context.Context, secret string) (*models.APIToken, error) {
	if len(secret) < tokenPrefixLen {
		return nil, models.ErrTokenNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	prefix := secret[:tokenPrefixLen]
	for _, t := range s.repos.APITokens.Filter(func(t models.APIToken) bool { return t.Prefix == prefix }) {
		if bcrypt.CompareHashAndPassword(t.TokenHash, []byte(secret)) != nil {
			continue
		}
		if tokenExpired(t, now) {
			return nil, fmt.Errorf("%w: token %s expired", models.ErrTokenNotFound, t.Name)
		}
		t.LastUsedAt = &now
		if err := s.repos.APITokens.Update(ctx, t); err != nil {
			return nil, fmt.Errorf("failed to save api token: %w", err)
		}
		return &t, nil
	}
	return nil, models.ErrTokenNotFound
}

func newTokenSecret() (string, []byte, error) {
	secret := tokenSecretPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash token: %w", err)
	}
	return secret, hash, nil
}

func tokenExpired(t models.APIToken, now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// Webhooks

func (s *settingsService) CreateWebhook(ctx context.Context, req models.WebhookRequest) (*models.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validator.Struct(req); err != nil {
		return nil, s.record("webhook", "create", err)
	}
	w := models.Webhook{
		ID:        s.newID(),
		Name:      req.Name,
		URL:       req.URL,
		Events:    append([]string(nil), req.Events...),
		IsActive:  req.IsActive == nil || *req.IsActive,
		CreatedAt: s.now(),
	}
	if err := s.repos.Webhooks.Insert(ctx, w); err != nil {
		return nil, s.record("webhook", "create", fmt.Errorf("failed to save webhook: %w", err))
	}
	return &w, s.record("webhook", "create", nil)
}

func (s *settingsService) UpdateWebhook(ctx context.Context, id string, req models.WebhookRequest) (*models.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.repos.Webhooks.Get(id)
	if !ok {
		return nil, s.record("webhook", "update", fmt.Errorf("%w: %s", models.ErrWebhookNotFound, id))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, s.record("webhook", "update", err)
	}
	w.Name = req.Name
	w.URL = req.URL
	w.Events = append([]string(nil), req.Events...)
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}
	if err := s.repos.Webhooks.Update(ctx, w); err != nil {
		return nil, s.record("webhook", "update", fmt.Errorf("failed to save webhook: %w", err))
	}
	return &w, s.record("webhook", "update", nil)
}

// ToggleWebhook flips IsActive
func (s *settingsService) ToggleWebhook(ctx context.Context, id string) (*models.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.repos.Webhooks.Get(id)
	if !ok {
		return nil, s.record("webhook", "toggle", fmt.Errorf("%w: %s", models.ErrWebhookNotFound, id))
	}
	w.IsActive = !w.IsActive
	if err := s.repos.Webhooks.Update(ctx, w); err != nil {
		return nil, s.record("webhook", "toggle", fmt.Errorf("failed to save webhook: %w", err))
	}
	return &w, s.record("webhook", "toggle", nil)
}

func (s *settingsService) DeleteWebhook(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos.Webhooks.Get(id); !ok {
		return s.record("webhook", "delete", fmt.Errorf("%w: %s", models.ErrWebhookNotFound, id))
	}
	if err := s.repos.Webhooks.Delete(ctx, id); err != nil {
		return s.record("webhook", "delete", fmt.Errorf("failed to delete webhook: %w", err))
	}
	return s.record("webhook", "delete", nil)
}

func (s *settingsService) ListWebhooks(ctx context.Context) []models.Webhook {
	return s.repos.Webhooks.List()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
