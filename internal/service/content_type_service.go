package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/validation"
	"github.com/rs/zerolog"
)

// contentTypeService is the concrete implementation of ContentTypeService
type contentTypeService struct {
	*deps
	owner schemaOwner[models.ContentType]
	log   zerolog.Logger
}

// newContentTypeService creates a new ContentTypeService
func newContentTypeService(d *deps, log zerolog.Logger) *contentTypeService {
	return &contentTypeService{
		deps:  d,
		owner: contentTypeOwner(d.repos),
		log:   log.With().Str("service", "content_type").Logger(),
	}
}

// Create registers a new content type with no fields. The API ID is derived
// from the display name unless one is given.
func (s *contentTypeService) Create(ctx context.Context, in models.ContentTypeInput) (*models.ContentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, err := s.create(ctx, in)
	return ct, s.record("content_type", "create", err)
}

func (s *contentTypeService) create(ctx context.Context, in models.ContentTypeInput) (*models.ContentType, error) {
	if err := validation.ValidateIdentifier("name", in.Name); err != nil {
		return nil, err
	}
	kind := in.Kind
	if kind == "" {
		kind = models.ContentTypeCollection
	}
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	displayName := in.DisplayName
	if displayName == "" {
		displayName = in.Name
	}
	apiID := ""
	if in.APIID != nil {
		apiID = *in.APIID
	}
	if apiID == "" {
		apiID = validation.GenerateAPIID(displayName)
	}
	if err := validation.ValidateAPIID(apiID); err != nil {
		return nil, err
	}
	if err := s.checkUnique(in.Name, apiID, ""); err != nil {
		return nil, err
	}

	now := s.now()
	ct := models.ContentType{
		ID:              s.newID(),
		Name:            in.Name,
		DisplayName:     displayName,
		Description:     in.Description,
		Kind:            kind,
		APIID:           apiID,
		DraftAndPublish: in.DraftAndPublish == nil || *in.DraftAndPublish,
		I18n:            in.I18n != nil && *in.I18n,
		Fields:          []models.FieldDefinition{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repos.ContentTypes.Insert(ctx, ct); err != nil {
		return nil, fmt.Errorf("failed to save content type: %w", err)
	}
	s.log.Info().Str("content_type_id", ct.ID).Str("api_id", ct.APIID).Msg("Content type created")
	return &ct, nil
}

// Update changes the descriptive attributes of a content type. An explicitly
// empty APIID regenerates it from the (possibly new) display name.
func (s *contentTypeService) Update(ctx context.Context, id string, in models.ContentTypeInput) (*models.ContentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, err := s.update(ctx, id, in)
	return ct, s.record("content_type", "update", err)
}

func (s *contentTypeService) update(ctx context.Context, id string, in models.ContentTypeInput) (*models.ContentType, error) {
	ct, err := s.owner.get(id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" && in.Name != ct.Name {
		if err := validation.ValidateIdentifier("name", in.Name); err != nil {
			return nil, err
		}
		ct.Name = in.Name
	}
	if in.DisplayName != "" {
		ct.DisplayName = in.DisplayName
	}
	if in.Description != "" {
		ct.Description = in.Description
	}
	if in.Kind != "" {
		if err := checkKind(in.Kind); err != nil {
			return nil, err
		}
		ct.Kind = in.Kind
	}
	if in.APIID != nil {
		apiID := *in.APIID
		if apiID == "" {
			apiID = validation.GenerateAPIID(ct.DisplayName)
		}
		if err := validation.ValidateAPIID(apiID); err != nil {
			return nil, err
		}
		ct.APIID = apiID
	}
	if in.DraftAndPublish != nil {
		ct.DraftAndPublish = *in.DraftAndPublish
	}
	if in.I18n != nil {
		ct.I18n = *in.I18n
	}
	if err := s.checkUnique(ct.Name, ct.APIID, id); err != nil {
		return nil, err
	}
	ct.UpdatedAt = s.now()

	if err := s.repos.ContentTypes.Update(ctx, ct); err != nil {
		return nil, fmt.Errorf("failed to save content type: %w", err)
	}
	return &ct, nil
}

// Delete removes a content type without entries and releases the components
// its fields referenced
func (s *contentTypeService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.record("content_type", "delete", s.delete(ctx, id))
}

func (s *contentTypeService) delete(ctx context.Context, id string) error {
	ct, err := s.owner.get(id)
	if err != nil {
		return err
	}
	if ct.EntryCount > 0 {
		return fmt.Errorf("content type %s has %d entries: %w", ct.Name, ct.EntryCount, models.ErrInUse)
	}

	err = s.repos.Atomically(ctx, func() error {
		if err := s.repos.ContentTypes.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete content type: %w", err)
		}
		return applyUsage(ctx, s.deps, id, ct.Fields, nil)
	}, s.repos.ContentTypes, s.repos.Components)
	if err != nil {
		return err
	}
	s.log.Info().Str("content_type_id", id).Msg("Content type deleted")
	return nil
}

func (s *contentTypeService) Get(ctx context.Context, id string) (*models.ContentType, error) {
	ct, err := s.owner.get(id)
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

func (s *contentTypeService) GetByAPIID(ctx context.Context, apiID string) (*models.ContentType, error) {
	ct, ok := s.repos.ContentTypes.Find(func(t models.ContentType) bool { return t.APIID == apiID })
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrContentTypeNotFound, apiID)
	}
	return &ct, nil
}

func (s *contentTypeService) List(ctx context.Context) []models.ContentType {
	return s.repos.ContentTypes.List()
}

func (s *contentTypeService) ByKind(ctx context.Context, kind models.ContentTypeKind) []models.ContentType {
	return s.repos.ContentTypes.Filter(func(t models.ContentType) bool { return t.Kind == kind })
}

// Search matches the query case-insensitively against name, display name,
// description and API ID
func (s *contentTypeService) Search(ctx context.Context, query string) []models.ContentType {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.repos.ContentTypes.List()
	}
	return s.repos.ContentTypes.Filter(func(t models.ContentType) bool {
		return strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.DisplayName), q) ||
			strings.Contains(strings.ToLower(t.Description), q) ||
			strings.Contains(t.APIID, q)
	})
}

func (s *contentTypeService) Stats(ctx context.Context) models.ContentTypeStats {
	all := s.repos.ContentTypes.List()
	stats := models.ContentTypeStats{Total: len(all)}
	for _, t := range all {
		if t.Kind == models.ContentTypeSingle {
			stats.Single++
		} else {
			stats.Collection++
		}
		stats.TotalFields += len(t.Fields)
	}
	if stats.Total > 0 {
		stats.AverageFields = float64(stats.TotalFields) / float64(stats.Total)
	}
	return stats
}

func (s *contentTypeService) AddField(ctx context.Context, id string, field models.FieldDefinition) (*models.ContentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, err := addField(ctx, s.deps, s.owner, id, field)
	return ct, s.record("content_type", "add_field", err)
}

func (s *contentTypeService) UpdateField(ctx context.Context, id, fieldName string, field models.FieldDefinition) (*models.ContentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, err := updateField(ctx, s.deps, s.owner, id, fieldName, field)
	return ct, s.record("content_type", "update_field", err)
}

func (s *contentTypeService) RemoveField(ctx context.Context, id, fieldName string) (*models.ContentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, err := removeField(ctx, s.deps, s.owner, id, fieldName)
	return ct, s.record("content_type", "remove_field", err)
}

func (s *contentTypeService) ReorderFields(ctx context.Context, id string, names []string) (*models.ContentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, err := reorderFields(ctx, s.deps, s.owner, id, names)
	return ct, s.record("content_type", "reorder_fields", err)
}

func (s *contentTypeService) checkUnique(name, apiID, exceptID string) error {
	for _, t := range s.repos.ContentTypes.List() {
		if t.ID == exceptID {
			continue
		}
		if t.Name == name {
			return models.NewFieldError(models.ErrDuplicateName, "name", "content type %s already exists", name)
		}
		if t.APIID == apiID {
			return models.NewFieldError(models.ErrDuplicateName, "apiId", "API ID %s is already taken", apiID)
		}
	}
	return nil
}

func checkKind(kind models.ContentTypeKind) error {
	if kind != models.ContentTypeSingle && kind != models.ContentTypeCollection {
		return models.NewFieldError(models.ErrInvalidField, "kind", "kind must be one of: single, collection")
	}
	return nil
}
