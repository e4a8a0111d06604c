package service

import (
	"context"
	"fmt"
	"time"

	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/repository"
	"github.com/headless-cms-admin/internal/validation"
)

// schemaOwner adapts a component or content type collection to the field
// operations both kinds of schema share.
type schemaOwner[T repository.Entity[T]] struct {
	kind     string
	coll     *repository.Collection[T]
	fields   func(*T) *[]models.FieldDefinition
	touch    func(*T, time.Time)
	notFound error
}

func componentOwner(repos *repository.Repositories) schemaOwner[models.Component] {
	return schemaOwner[models.Component]{
		kind:     "component",
		coll:     repos.Components,
		fields:   func(c *models.Component) *[]models.FieldDefinition { return &c.Fields },
		touch:    func(c *models.Component, now time.Time) { c.UpdatedAt = now },
		notFound: models.ErrComponentNotFound,
	}
}

func contentTypeOwner(repos *repository.Repositories) schemaOwner[models.ContentType] {
	return schemaOwner[models.ContentType]{
		kind:     "content type",
		coll:     repos.ContentTypes,
		fields:   func(t *models.ContentType) *[]models.FieldDefinition { return &t.Fields },
		touch:    func(t *models.ContentType, now time.Time) { t.UpdatedAt = now },
		notFound: models.ErrContentTypeNotFound,
	}
}

func (o schemaOwner[T]) get(id string) (T, error) {
	item, ok := o.coll.Get(id)
	if !ok {
		return item, fmt.Errorf("%w: %s", o.notFound, id)
	}
	return item, nil
}

func addField[T repository.Entity[T]](ctx context.Context, d *deps, o schemaOwner[T], id string, field models.FieldDefinition) (*T, error) {
	item, err := o.get(id)
	if err != nil {
		return nil, err
	}
	fields := o.fields(&item)
	if indexOfField(*fields, field.Name) >= 0 {
		return nil, models.NewFieldError(models.ErrDuplicateName, field.Name, "%s already has a field named %s", o.kind, field.Name)
	}

	fc := validation.FieldContext{OwnerID: id, Siblings: *fields, Components: d.lookupComponent}
	if err := d.validator.ValidateFieldDefinition(fc, field); err != nil {
		return nil, err
	}

	before := models.CloneFields(*fields)
	*fields = append(*fields, field.Normalized().Clone())
	o.touch(&item, d.now())

	if err := saveSchema(ctx, d, o, item, before, *fields); err != nil {
		return nil, err
	}
	return &item, nil
}

func updateField[T repository.Entity[T]](ctx context.Context, d *deps, o schemaOwner[T], id, name string, field models.FieldDefinition) (*T, error) {
	item, err := o.get(id)
	if err != nil {
		return nil, err
	}
	fields := o.fields(&item)
	idx := indexOfField(*fields, name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrFieldNotFound, name)
	}
	if field.Name != name && indexOfField(*fields, field.Name) >= 0 {
		return nil, models.NewFieldError(models.ErrDuplicateName, field.Name, "%s already has a field named %s", o.kind, field.Name)
	}

	siblings := make([]models.FieldDefinition, 0, len(*fields)-1)
	siblings = append(siblings, (*fields)[:idx]...)
	siblings = append(siblings, (*fields)[idx+1:]...)
	fc := validation.FieldContext{OwnerID: id, Siblings: siblings, Components: d.lookupComponent}
	if err := d.validator.ValidateFieldDefinition(fc, field); err != nil {
		return nil, err
	}

	before := models.CloneFields(*fields)
	(*fields)[idx] = field.Normalized().Clone()
	o.touch(&item, d.now())

	if err := saveSchema(ctx, d, o, item, before, *fields); err != nil {
		return nil, err
	}
	return &item, nil
}

func removeField[T repository.Entity[T]](ctx context.Context, d *deps, o schemaOwner[T], id, name string) (*T, error) {
	item, err := o.get(id)
	if err != nil {
		return nil, err
	}
	fields := o.fields(&item)
	idx := indexOfField(*fields, name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrFieldNotFound, name)
	}

	before := models.CloneFields(*fields)
	*fields = append((*fields)[:idx:idx], (*fields)[idx+1:]...)
	o.touch(&item, d.now())

	if err := saveSchema(ctx, d, o, item, before, *fields); err != nil {
		return nil, err
	}
	return &item, nil
}

// reorderFields puts the named fields first, in the given order. Unknown and
// repeated names are ignored and fields left unnamed keep their relative order
// after the named ones, so the field set itself never changes.
func reorderFields[T repository.Entity[T]](ctx context.Context, d *deps, o schemaOwner[T], id string, names []string) (*T, error) {
	item, err := o.get(id)
	if err != nil {
		return nil, err
	}
	fields := o.fields(&item)

	placed := make(map[string]bool, len(names))
	ordered := make([]models.FieldDefinition, 0, len(*fields))
	for _, name := range names {
		if placed[name] {
			continue
		}
		if idx := indexOfField(*fields, name); idx >= 0 {
			ordered = append(ordered, (*fields)[idx])
			placed[name] = true
		}
	}
	for _, f := range *fields {
		if !placed[f.Name] {
			ordered = append(ordered, f)
		}
	}
	*fields = ordered
	o.touch(&item, d.now())

	if err := o.coll.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", o.kind, err)
	}
	return &item, nil
}

// saveSchema writes the owner and moves component usage from the references
// in before to those in after, all or nothing.
func saveSchema[T repository.Entity[T]](ctx context.Context, d *deps, o schemaOwner[T], item T, before, after []models.FieldDefinition) error {
	return d.repos.Atomically(ctx, func() error {
		if err := o.coll.Update(ctx, item); err != nil {
			return fmt.Errorf("failed to save %s: %w", o.kind, err)
		}
		return applyUsage(ctx, d, item.GetID(), before, after)
	}, o.coll, d.repos.Components)
}

// applyUsage diffs the components referenced by two versions of an owner's
// fields. Each component counts an owner once, however many of its fields
// point there, so UsageCount always equals len(UsedIn).
func applyUsage(ctx context.Context, d *deps, ownerID string, before, after []models.FieldDefinition) error {
	old := referencedComponents(before)
	next := referencedComponents(after)

	for _, id := range next {
		if !containsString(old, id) {
			if err := acquireComponent(ctx, d, id, ownerID); err != nil {
				return err
			}
		}
	}
	for _, id := range old {
		if !containsString(next, id) {
			if err := releaseComponent(ctx, d, id, ownerID); err != nil {
				return err
			}
		}
	}
	return nil
}

func acquireComponent(ctx context.Context, d *deps, componentID, ownerID string) error {
	c, ok := d.repos.Components.Get(componentID)
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrComponentNotFound, componentID)
	}
	if containsString(c.UsedIn, ownerID) {
		return nil
	}
	c.UsedIn = append(c.UsedIn, ownerID)
	c.UsageCount = len(c.UsedIn)
	if err := d.repos.Components.Update(ctx, c); err != nil {
		return fmt.Errorf("failed to record component usage: %w", err)
	}
	return nil
}

func releaseComponent(ctx context.Context, d *deps, componentID, ownerID string) error {
	c, ok := d.repos.Components.Get(componentID)
	if !ok || !containsString(c.UsedIn, ownerID) {
		return nil
	}
	kept := c.UsedIn[:0]
	for _, id := range c.UsedIn {
		if id != ownerID {
			kept = append(kept, id)
		}
	}
	c.UsedIn = kept
	c.UsageCount = len(kept)
	if err := d.repos.Components.Update(ctx, c); err != nil {
		return fmt.Errorf("failed to release component usage: %w", err)
	}
	return nil
}

// referencedComponents returns the distinct component ids fields point at,
// in field order.
func referencedComponents(fields []models.FieldDefinition) []string {
	var out []string
	for _, f := range fields {
		for _, id := range f.ReferencedComponents() {
			if id != "" && !containsString(out, id) {
				out = append(out, id)
			}
		}
	}
	return out
}

func indexOfField(fields []models.FieldDefinition, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
