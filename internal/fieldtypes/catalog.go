// Package fieldtypes is the static catalog of supported field types.
package fieldtypes

import (
	"github.com/headless-cms-admin/internal/models"
)

// Category groups field types in the schema builder
type Category string

const (
	CategoryText      Category = "text"
	CategoryNumber    Category = "number"
	CategoryDate      Category = "date"
	CategoryMedia     Category = "media"
	CategoryRelation  Category = "relation"
	CategoryComponent Category = "component"
	CategoryAdvanced  Category = "advanced"
)

// Categories in display order
var Categories = []Category{
	CategoryText,
	CategoryNumber,
	CategoryDate,
	CategoryMedia,
	CategoryRelation,
	CategoryComponent,
	CategoryAdvanced,
}

// Shape lists the structural members a field definition of a type must carry
type Shape struct {
	NeedsComponent         bool `json:"needsComponent"`
	NeedsAllowedComponents bool `json:"needsAllowedComponents"`
	NeedsEnumeration       bool `json:"needsEnumeration"`
	NeedsRelation          bool `json:"needsRelation"`
	NeedsUIDTarget         bool `json:"needsUidTarget"`
}

// Info describes one field type
type Info struct {
	Type                models.FieldType `json:"type"`
	Label               string           `json:"label"`
	Description         string           `json:"description"`
	Icon                string           `json:"icon"`
	Category            Category         `json:"category"`
	HasAdvancedSettings bool             `json:"hasAdvancedSettings"`
	HasValidation       bool             `json:"hasValidation"`
	IsComplex           bool             `json:"isComplex"`
	Shape               Shape            `json:"shape"`
}

var catalog = []Info{
	{Type: models.FieldTypeText, Label: "Text", Description: "Small or long text like title or description", Icon: "Type", Category: CategoryText, HasAdvancedSettings: true, HasValidation: true},
	{Type: models.FieldTypeLongText, Label: "Long Text", Description: "Multi-line text for longer content", Icon: "AlignLeft", Category: CategoryText, HasAdvancedSettings: true, HasValidation: true},
	{Type: models.FieldTypeRichText, Label: "Rich Text", Description: "A rich text editor with formatting options", Icon: "FileText", Category: CategoryText, HasAdvancedSettings: true, IsComplex: true},
	{Type: models.FieldTypeNumber, Label: "Number", Description: "Numbers (integer)", Icon: "Hash", Category: CategoryNumber, HasAdvancedSettings: true, HasValidation: true},
	{Type: models.FieldTypeDecimal, Label: "Decimal", Description: "Decimal numbers", Icon: "Hash", Category: CategoryNumber, HasAdvancedSettings: true, HasValidation: true},
	{Type: models.FieldTypeFloat, Label: "Float", Description: "Floating point numbers", Icon: "Hash", Category: CategoryNumber, HasAdvancedSettings: true, HasValidation: true},
	{Type: models.FieldTypeDate, Label: "Date", Description: "A date picker", Icon: "Calendar", Category: CategoryDate},
	{Type: models.FieldTypeDateTime, Label: "Date & Time", Description: "A date and time picker", Icon: "CalendarClock", Category: CategoryDate},
	{Type: models.FieldTypeTime, Label: "Time", Description: "A time picker", Icon: "Clock", Category: CategoryDate},
	{Type: models.FieldTypeBoolean, Label: "Boolean", Description: "Yes or no, true or false", Icon: "ToggleLeft", Category: CategoryText},
	{Type: models.FieldTypeEmail, Label: "Email", Description: "Email field with validation", Icon: "Mail", Category: CategoryText, HasAdvancedSettings: true, HasValidation: true},
	{Type: models.FieldTypePassword, Label: "Password", Description: "Password field with encryption", Icon: "Lock", Category: CategoryText, HasAdvancedSettings: true, HasValidation: true},
	{Type: models.FieldTypeEnumeration, Label: "Enumeration", Description: "List of values, then pick one", Icon: "List", Category: CategoryText, HasAdvancedSettings: true, HasValidation: true, Shape: Shape{NeedsEnumeration: true}},
	{Type: models.FieldTypeMedia, Label: "Media", Description: "Files like images, videos, etc", Icon: "Image", Category: CategoryMedia, HasAdvancedSettings: true, IsComplex: true},
	{Type: models.FieldTypeRelation, Label: "Relation", Description: "Refers to a content type", Icon: "Link", Category: CategoryRelation, HasAdvancedSettings: true, IsComplex: true, Shape: Shape{NeedsRelation: true}},
	{Type: models.FieldTypeJSON, Label: "JSON", Description: "Data in JSON format", Icon: "Braces", Category: CategoryAdvanced, HasValidation: true, IsComplex: true},
	{Type: models.FieldTypeUID, Label: "UID", Description: "Unique identifier", Icon: "Key", Category: CategoryText, HasAdvancedSettings: true, HasValidation: true, Shape: Shape{NeedsUIDTarget: true}},
	{Type: models.FieldTypeComponent, Label: "Component", Description: "Group of fields that you can repeat or reuse", Icon: "Package", Category: CategoryComponent, HasAdvancedSettings: true, IsComplex: true, Shape: Shape{NeedsComponent: true}},
	{Type: models.FieldTypeRepeatableComponent, Label: "Repeatable Component", Description: "Repeatable group of fields", Icon: "Layers", Category: CategoryComponent, HasAdvancedSettings: true, IsComplex: true, Shape: Shape{NeedsComponent: true}},
	{Type: models.FieldTypeDynamicZone, Label: "Dynamic Zone", Description: "Dynamically pick components when editing content", Icon: "Shuffle", Category: CategoryComponent, HasAdvancedSettings: true, IsComplex: true, Shape: Shape{NeedsAllowedComponents: true}},
}

var byType = func() map[models.FieldType]Info {
	m := make(map[models.FieldType]Info, len(catalog))
	for _, info := range catalog {
		m[info.Type] = info
	}
	return m
}()

// All returns every field type in catalog order
func All() []Info {
	return append([]Info(nil), catalog...)
}

// Lookup returns the catalog entry of a type
func Lookup(t models.FieldType) (Info, bool) {
	info, ok := byType[t]
	return info, ok
}

// IsValid reports whether t is a supported field type
func IsValid(t models.FieldType) bool {
	_, ok := byType[t]
	return ok
}

// ByCategory returns the types of one category in catalog order
func ByCategory(c Category) []Info {
	var out []Info
	for _, info := range catalog {
		if info.Category == c {
			out = append(out, info)
		}
	}
	return out
}

// RequiredShapeFor returns the structural requirements of a type.
// Unknown types require nothing; callers check IsValid first.
func RequiredShapeFor(t models.FieldType) Shape {
	return byType[t].Shape
}

// DefaultsFor returns the field definition the schema builder starts from
// when only a type has been chosen.
func DefaultsFor(t models.FieldType) (models.FieldDefinition, bool) {
	if !IsValid(t) {
		return models.FieldDefinition{}, false
	}
	f := models.FieldDefinition{Type: t}
	switch t {
	case models.FieldTypeText:
		f.Constraints = models.TextConstraints{MaxLength: models.IntPtr(255)}
	case models.FieldTypeLongText:
		f.Constraints = models.TextConstraints{MaxLength: models.IntPtr(1000)}
	case models.FieldTypeBoolean:
		f.DefaultValue = false
		f.Constraints = models.NoConstraints{}
	case models.FieldTypeEnumeration:
		f.Constraints = models.EnumerationConstraints{Values: []string{}}
	case models.FieldTypeMedia:
		f.Constraints = models.MediaConstraints{MediaType: models.MediaKindAll, Multiple: false}
	case models.FieldTypeRelation:
		f.Constraints = models.RelationConstraints{RelationType: models.RelationOneToMany}
	case models.FieldTypeDynamicZone:
		f.Constraints = models.DynamicZoneConstraints{AllowedComponents: []string{}}
	default:
		f = f.Normalized()
	}
	return f, true
}
