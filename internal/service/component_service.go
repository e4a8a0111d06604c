package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/validation"
	"github.com/rs/zerolog"
)

// componentService is the concrete implementation of ComponentService
type componentService struct {
	*deps
	owner schemaOwner[models.Component]
	log   zerolog.Logger
}

// componentExport is the standalone document produced by Export
type componentExport struct {
	models.Component
	ExportedAt time.Time `json:"exportedAt"`
	Version    string    `json:"version"`
}

// newComponentService creates a new ComponentService
func newComponentService(d *deps, log zerolog.Logger) *componentService {
	return &componentService{
		deps:  d,
		owner: componentOwner(d.repos),
		log:   log.With().Str("service", "component").Logger(),
	}
}

// Create registers a new component with no fields
func (s *componentService) Create(ctx context.Context, in models.ComponentInput) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.create(ctx, in)
	return c, s.record("component", "create", err)
}

func (s *componentService) create(ctx context.Context, in models.ComponentInput) (*models.Component, error) {
	if err := validation.ValidateIdentifier("name", in.Name); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(in.Name, ""); err != nil {
		return nil, err
	}
	if err := checkInstances(in.MinInstances, in.MaxInstances); err != nil {
		return nil, err
	}

	now := s.now()
	c := models.Component{
		ID:               s.newID(),
		Name:             in.Name,
		DisplayName:      in.DisplayName,
		Description:      in.Description,
		Category:         in.Category,
		Icon:             in.Icon,
		IsRepeatable:     in.IsRepeatable != nil && *in.IsRepeatable,
		MinInstances:     in.MinInstances,
		MaxInstances:     in.MaxInstances,
		DefaultInstances: in.DefaultInstances,
		Fields:           []models.FieldDefinition{},
		UsedIn:           []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if c.DisplayName == "" {
		c.DisplayName = c.Name
	}
	if c.Category == "" {
		c.Category = "Custom"
	}

	if err := s.repos.Components.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save component: %w", err)
	}
	s.log.Info().Str("component_id", c.ID).Str("name", c.Name).Msg("Component created")
	return &c, nil
}

// Update changes the descriptive attributes of a component
func (s *componentService) Update(ctx context.Context, id string, in models.ComponentInput) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.update(ctx, id, in)
	return c, s.record("component", "update", err)
}

func (s *componentService) update(ctx context.Context, id string, in models.ComponentInput) (*models.Component, error) {
	c, err := s.owner.get(id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" && in.Name != c.Name {
		if err := validation.ValidateIdentifier("name", in.Name); err != nil {
			return nil, err
		}
		if err := s.checkNameFree(in.Name, id); err != nil {
			return nil, err
		}
		c.Name = in.Name
	}
	if in.DisplayName != "" {
		c.DisplayName = in.DisplayName
	}
	if in.Description != "" {
		c.Description = in.Description
	}
	if in.Category != "" {
		c.Category = in.Category
	}
	if in.Icon != "" {
		c.Icon = in.Icon
	}
	if in.IsRepeatable != nil {
		c.IsRepeatable = *in.IsRepeatable
	}
	if in.MinInstances != nil {
		c.MinInstances = in.MinInstances
	}
	if in.MaxInstances != nil {
		c.MaxInstances = in.MaxInstances
	}
	if in.DefaultInstances != nil {
		c.DefaultInstances = in.DefaultInstances
	}
	if err := checkInstances(c.MinInstances, c.MaxInstances); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()

	if err := s.repos.Components.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save component: %w", err)
	}
	return &c, nil
}

// Delete removes a component nobody references
func (s *componentService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.record("component", "delete", s.delete(ctx, id))
}

func (s *componentService) delete(ctx context.Context, id string) error {
	c, err := s.owner.get(id)
	if err != nil {
		return err
	}
	if c.UsageCount > 0 {
		return fmt.Errorf("component %s is used by %d schemas: %w", c.Name, c.UsageCount, models.ErrInUse)
	}

	err = s.repos.Atomically(ctx, func() error {
		if err := s.repos.Components.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete component: %w", err)
		}
		return applyUsage(ctx, s.deps, id, c.Fields, nil)
	}, s.repos.Components)
	if err != nil {
		return err
	}
	s.log.Info().Str("component_id", id).Msg("Component deleted")
	return nil
}

// Get retrieves a component by ID
func (s *componentService) Get(ctx context.Context, id string) (*models.Component, error) {
	c, err := s.owner.get(id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByName retrieves a component by its unique name
func (s *componentService) GetByName(ctx context.Context, name string) (*models.Component, error) {
	c, ok := s.repos.Components.Find(func(c models.Component) bool { return c.Name == name })
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrComponentNotFound, name)
	}
	return &c, nil
}

func (s *componentService) List(ctx context.Context) []models.Component {
	return s.repos.Components.List()
}

func (s *componentService) ByCategory(ctx context.Context, category string) []models.Component {
	return s.repos.Components.Filter(func(c models.Component) bool { return c.Category == category })
}

// Categories returns the distinct categories in use, sorted
func (s *componentService) Categories(ctx context.Context) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range s.repos.Components.List() {
		if !seen[c.Category] {
			seen[c.Category] = true
			out = append(out, c.Category)
		}
	}
	sort.Strings(out)
	return out
}

// Search matches the query case-insensitively against name, display name,
// description and category
func (s *componentService) Search(ctx context.Context, query string) []models.Component {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.repos.Components.List()
	}
	return s.repos.Components.Filter(func(c models.Component) bool {
		return strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.DisplayName), q) ||
			strings.Contains(strings.ToLower(c.Description), q) ||
			strings.Contains(strings.ToLower(c.Category), q)
	})
}

// Stats summarises the registry. MostUsed holds up to five components that
// are referenced at least once, most used first.
func (s *componentService) Stats(ctx context.Context) models.ComponentStats {
	all := s.repos.Components.List()
	stats := models.ComponentStats{
		Total:      len(all),
		MostUsed:   []models.Component{},
		Categories: make(map[string]int),
	}
	for _, c := range all {
		if c.IsRepeatable {
			stats.Repeatable++
		} else {
			stats.SingleUse++
		}
		stats.TotalFields += len(c.Fields)
		stats.Categories[c.Category]++
		if c.UsageCount > 0 {
			stats.MostUsed = append(stats.MostUsed, c)
		}
	}
	if stats.Total > 0 {
		stats.AverageFields = float64(stats.TotalFields) / float64(stats.Total)
	}
	sort.SliceStable(stats.MostUsed, func(i, j int) bool {
		return stats.MostUsed[i].UsageCount > stats.MostUsed[j].UsageCount
	})
	if len(stats.MostUsed) > 5 {
		stats.MostUsed = stats.MostUsed[:5]
	}
	return stats
}

func (s *componentService) AddField(ctx context.Context, id string, field models.FieldDefinition) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := addField(ctx, s.deps, s.owner, id, field)
	return c, s.record("component", "add_field", err)
}

func (s *componentService) UpdateField(ctx context.Context, id, fieldName string, field models.FieldDefinition) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := updateField(ctx, s.deps, s.owner, id, fieldName, field)
	return c, s.record("component", "update_field", err)
}

func (s *componentService) RemoveField(ctx context.Context, id, fieldName string) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := removeField(ctx, s.deps, s.owner, id, fieldName)
	return c, s.record("component", "remove_field", err)
}

func (s *componentService) ReorderFields(ctx context.Context, id string, names []string) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := reorderFields(ctx, s.deps, s.owner, id, names)
	return c, s.record("component", "reorder_fields", err)
}

func (s *componentService) UsageCount(ctx context.Context, id string) (int, error) {
	c, err := s.owner.get(id)
	if err != nil {
		return 0, err
	}
	return c.UsageCount, nil
}

func (s *componentService) UsedIn(ctx context.Context, id string) ([]string, error) {
	c, err := s.owner.get(id)
	if err != nil {
		return nil, err
	}
	return c.UsedIn, nil
}

// ContentTypesUsing resolves the content type owners among UsedIn
func (s *componentService) ContentTypesUsing(ctx context.Context, id string) ([]models.ContentType, error) {
	c, err := s.owner.get(id)
	if err != nil {
		return nil, err
	}
	out := []models.ContentType{}
	for _, owner := range c.UsedIn {
		if ct, ok := s.repos.ContentTypes.Get(owner); ok {
			out = append(out, ct)
		}
	}
	return out, nil
}

// ComponentsUsing resolves the component owners among UsedIn
func (s *componentService) ComponentsUsing(ctx context.Context, id string) ([]models.Component, error) {
	c, err := s.owner.get(id)
	if err != nil {
		return nil, err
	}
	out := []models.Component{}
	for _, owner := range c.UsedIn {
		if other, ok := s.repos.Components.Get(owner); ok {
			out = append(out, other)
		}
	}
	return out, nil
}

// Export renders one component as a standalone JSON document
func (s *componentService) Export(ctx context.Context, id string) ([]byte, error) {
	c, err := s.owner.get(id)
	if err != nil {
		return nil, err
	}
	doc := componentExport{Component: c, ExportedAt: s.now(), Version: models.ExportVersion}
	return json.MarshalIndent(doc, "", "  ")
}

// Import registers a component from an Export document under a new ID. Its
// fields are validated as if added one by one; usage is not carried over.
func (s *componentService) Import(ctx context.Context, data []byte) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.importComponent(ctx, data)
	return c, s.record("component", "import", err)
}

func (s *componentService) importComponent(ctx context.Context, data []byte) (*models.Component, error) {
	var doc componentExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid component document: %v", models.ErrInvalidField, err)
	}
	switch {
	case doc.Name == "":
		return nil, models.NewFieldError(models.ErrRequiredField, "name", "name is required")
	case doc.DisplayName == "":
		return nil, models.NewFieldError(models.ErrRequiredField, "displayName", "displayName is required")
	case doc.Category == "":
		return nil, models.NewFieldError(models.ErrRequiredField, "category", "category is required")
	}
	if err := validation.ValidateIdentifier("name", doc.Name); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(doc.Name, ""); err != nil {
		return nil, err
	}

	now := s.now()
	c := doc.Component
	c.ID = s.newID()
	c.Fields = []models.FieldDefinition{}
	c.UsageCount = 0
	c.UsedIn = []string{}
	c.CreatedAt = now
	c.UpdatedAt = now

	for _, field := range doc.Fields {
		if indexOfField(c.Fields, field.Name) >= 0 {
			return nil, models.NewFieldError(models.ErrDuplicateName, field.Name, "component already has a field named %s", field.Name)
		}
		fc := validation.FieldContext{OwnerID: c.ID, Siblings: c.Fields, Components: s.lookupComponent}
		if err := s.validator.ValidateFieldDefinition(fc, field); err != nil {
			return nil, err
		}
		c.Fields = append(c.Fields, field.Normalized().Clone())
	}

	err := s.repos.Atomically(ctx, func() error {
		if err := s.repos.Components.Insert(ctx, c); err != nil {
			return fmt.Errorf("failed to save component: %w", err)
		}
		return applyUsage(ctx, s.deps, c.ID, nil, c.Fields)
	}, s.repos.Components)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("component_id", c.ID).Str("name", c.Name).Int("fields", len(c.Fields)).Msg("Component imported")
	c, _ = s.repos.Components.Get(c.ID)
	return &c, nil
}

func (s *componentService) checkNameFree(name, exceptID string) error {
	_, taken := s.repos.Components.Find(func(c models.Component) bool {
		return c.Name == name && c.ID != exceptID
	})
	if taken {
		return models.NewFieldError(models.ErrDuplicateName, "name", "component %s already exists", name)
	}
	return nil
}

func checkInstances(min, max *int) error {
	if min != nil && *min < 0 {
		return models.NewFieldError(models.ErrOutOfRange, "minInstances", "minInstances cannot be negative")
	}
	if min != nil && max != nil && *min > *max {
		return models.NewFieldError(models.ErrOutOfRange, "maxInstances", "maxInstances must be at least minInstances")
	}
	return nil
}
