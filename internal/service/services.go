package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/headless-cms-admin/internal/config"
	"github.com/headless-cms-admin/internal/metrics"
	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/repository"
	"github.com/headless-cms-admin/internal/validation"
	"github.com/rs/zerolog"
)

// ComponentService manages reusable components and their fields
type ComponentService interface {
	Create(ctx context.Context, in models.ComponentInput) (*models.Component, error)
	Update(ctx context.Context, id string, in models.ComponentInput) (*models.Component, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Component, error)
	GetByName(ctx context.Context, name string) (*models.Component, error)
	List(ctx context.Context) []models.Component
	ByCategory(ctx context.Context, category string) []models.Component
	Categories(ctx context.Context) []string
	Search(ctx context.Context, query string) []models.Component
	Stats(ctx context.Context) models.ComponentStats

	AddField(ctx context.Context, id string, field models.FieldDefinition) (*models.Component, error)
	UpdateField(ctx context.Context, id, fieldName string, field models.FieldDefinition) (*models.Component, error)
	RemoveField(ctx context.Context, id, fieldName string) (*models.Component, error)
	ReorderFields(ctx context.Context, id string, names []string) (*models.Component, error)

	UsageCount(ctx context.Context, id string) (int, error)
	UsedIn(ctx context.Context, id string) ([]string, error)
	ContentTypesUsing(ctx context.Context, id string) ([]models.ContentType, error)
	ComponentsUsing(ctx context.Context, id string) ([]models.Component, error)

	Export(ctx context.Context, id string) ([]byte, error)
	Import(ctx context.Context, data []byte) (*models.Component, error)
}

// ContentTypeService manages content type schemas and their fields
type ContentTypeService interface {
	Create(ctx context.Context, in models.ContentTypeInput) (*models.ContentType, error)
	Update(ctx context.Context, id string, in models.ContentTypeInput) (*models.ContentType, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.ContentType, error)
	GetByAPIID(ctx context.Context, apiID string) (*models.ContentType, error)
	List(ctx context.Context) []models.ContentType
	ByKind(ctx context.Context, kind models.ContentTypeKind) []models.ContentType
	Search(ctx context.Context, query string) []models.ContentType
	Stats(ctx context.Context) models.ContentTypeStats

	AddField(ctx context.Context, id string, field models.FieldDefinition) (*models.ContentType, error)
	UpdateField(ctx context.Context, id, fieldName string, field models.FieldDefinition) (*models.ContentType, error)
	RemoveField(ctx context.Context, id, fieldName string) (*models.ContentType, error)
	ReorderFields(ctx context.Context, id string, names []string) (*models.ContentType, error)
}

// EntryService manages content entries and their draft & publish lifecycle
type EntryService interface {
	Create(ctx context.Context, req models.CreateEntryRequest) (*models.Entry, error)
	Update(ctx context.Context, id string, upd models.EntryUpdate) (*models.Entry, error)
	Patch(ctx context.Context, id string, kind models.PatchKind, patch []byte) (*models.Entry, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Entry, error)
	Duplicate(ctx context.Context, id string) (*models.Entry, error)

	Publish(ctx context.Context, id string) (*models.Entry, error)
	Unpublish(ctx context.Context, id string) (*models.Entry, error)
	Schedule(ctx context.Context, id string, at time.Time) (*models.Entry, error)

	List(ctx context.Context, filter models.EntryFilter, sort models.EntrySort) []models.Entry
	ByContentType(ctx context.Context, contentTypeID string) []models.Entry
	ByStatus(ctx context.Context, status models.EntryStatus) []models.Entry
	ByLocale(ctx context.Context, locale string) []models.Entry
	Recent(ctx context.Context, limit int) []models.Entry
	Count(ctx context.Context, contentTypeID string) int
	Stats(ctx context.Context) models.EntryStats
}

// MediaService keeps the media library metadata
type MediaService interface {
	Add(ctx context.Context, file models.MediaFile) (*models.MediaFile, error)
	Ingest(ctx context.Context, upload models.Upload, data []byte) (*models.MediaFile, error)
	Replace(ctx context.Context, id string, upload models.Upload, data []byte) (*models.MediaFile, error)
	Update(ctx context.Context, id string, upd models.MediaUpdate) (*models.MediaFile, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.MediaFile, error)

	List(ctx context.Context) []models.MediaFile
	ByType(ctx context.Context, t models.MediaFileType) []models.MediaFile
	ByFolder(ctx context.Context, folder string) []models.MediaFile
	Recent(ctx context.Context, limit int) []models.MediaFile
	Search(ctx context.Context, query string) []models.MediaFile
	Stats(ctx context.Context) models.MediaStats

	Folders(ctx context.Context) []string
	MoveToFolder(ctx context.Context, ids []string, folder string) (int, error)
	DeleteFolder(ctx context.Context, folder string) (int, error)
}

// SettingsService manages application settings, locales, accounts, API
// tokens, webhooks and UI preferences
type SettingsService interface {
	Get(ctx context.Context) models.Settings
	Save(ctx context.Context, settings models.Settings) (models.Settings, error)
	Reset(ctx context.Context) error

	AddLocale(ctx context.Context, locale models.Locale) (models.Settings, error)
	UpdateLocale(ctx context.Context, code string, locale models.Locale) (models.Settings, error)
	RemoveLocale(ctx context.Context, code string) (models.Settings, error)
	SetDefaultLocale(ctx context.Context, code string) (models.Settings, error)

	UIConfig(ctx context.Context) models.UIConfig
	UpdateUIConfig(ctx context.Context, cfg models.UIConfig) (models.UIConfig, error)

	CreateUser(ctx context.Context, in models.UserInput) (*models.User, error)
	UpdateUser(ctx context.Context, id string, in models.UserInput) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) []models.User

	CreateToken(ctx context.Context, req models.APITokenRequest) (*models.IssuedToken, error)
	UpdateToken(ctx context.Context, id string, req models.APITokenRequest) (*models.APIToken, error)
	RegenerateToken(ctx context.Context, id string) (*models.IssuedToken, error)
	DeleteToken(ctx context.Context, id string) error
	ListTokens(ctx context.Context) []models.APIToken
	ActiveTokens(ctx context.Context) []models.APIToken
	VerifyToken(ctx context.Context, secret string) (*models.APIToken, error)

	CreateWebhook(ctx context.Context, req models.WebhookRequest) (*models.Webhook, error)
	UpdateWebhook(ctx context.Context, id string, req models.WebhookRequest) (*models.Webhook, error)
	ToggleWebhook(ctx context.Context, id string) (*models.Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
	ListWebhooks(ctx context.Context) []models.Webhook
}

// TransferService moves whole sites and entry sets in and out
type TransferService interface {
	Export(ctx context.Context) (*models.ExportBundle, error)
	Import(ctx context.Context, bundle *models.ExportBundle) error
	Reconcile(ctx context.Context) (*models.ReconcileReport, error)
	StreamEntries(ctx context.Context, w io.Writer, contentTypeID, format string) (int, error)
	ImportEntries(ctx context.Context, contentTypeID string, r io.Reader) (*models.ImportResult, error)
}

// SchedulerService publishes scheduled entries when they fall due
type SchedulerService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	PublishDue(ctx context.Context) (int, error)
}

// Services holds all service interfaces
type Services struct {
	Components   ComponentService
	ContentTypes ContentTypeService
	Entries      EntryService
	Media        MediaService
	Settings     SettingsService
	Transfer     TransferService
	Scheduler    SchedulerService
}

// Option customises NewServices
type Option func(*deps)

// WithClock replaces time.Now as the source of timestamps
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

// WithMetrics records operation outcomes on m
func WithMetrics(m *metrics.Collector) Option {
	return func(d *deps) { d.metrics = m }
}

// WithIDGenerator replaces uuid.NewString as the source of identities
func WithIDGenerator(newID func() string) Option {
	return func(d *deps) { d.newID = newID }
}

// deps is shared by every service built by one NewServices call. mu
// serialises all operations so no two mutations of the schema graph or the
// entry and media collections interleave.
type deps struct {
	repos     *repository.Repositories
	cfg       *config.Config
	validator *validation.Validator
	metrics   *metrics.Collector
	now       func() time.Time
	newID     func() string
	mu        sync.Mutex
}

// record counts the outcome of op and passes err through
func (d *deps) record(service, op string, err error) error {
	d.metrics.Op(service, op, err)
	return err
}

func (d *deps) lookupComponent(id string) (models.Component, bool) {
	return d.repos.Components.Get(id)
}

// NewServices creates all services over repos. Each call returns an
// independent set sharing nothing with previous calls.
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger, opts ...Option) *Services {
	d := &deps{
		repos:     repos,
		cfg:       cfg,
		validator: validation.NewValidator(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}

	entries := newEntryService(d, log)
	return &Services{
		Components:   newComponentService(d, log),
		ContentTypes: newContentTypeService(d, log),
		Entries:      entries,
		Media:        newMediaService(d, log),
		Settings:     newSettingsService(d, log),
		Transfer:     newTransferService(d, entries, log),
		Scheduler:    newSchedulerService(d, log),
	}
}
