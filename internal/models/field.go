package models

import (
	"encoding/json"
	"fmt"
)

// FieldType is the tag that selects a field's behavior and constraint shape
type FieldType string

const (
	FieldTypeText                FieldType = "text"
	FieldTypeLongText            FieldType = "longtext"
	FieldTypeRichText            FieldType = "richtext"
	FieldTypeNumber              FieldType = "number"
	FieldTypeDecimal             FieldType = "decimal"
	FieldTypeFloat               FieldType = "float"
	FieldTypeDate                FieldType = "date"
	FieldTypeDateTime            FieldType = "datetime"
	FieldTypeTime                FieldType = "time"
	FieldTypeBoolean             FieldType = "boolean"
	FieldTypeEmail               FieldType = "email"
	FieldTypePassword            FieldType = "password"
	FieldTypeEnumeration         FieldType = "enumeration"
	FieldTypeMedia               FieldType = "media"
	FieldTypeRelation            FieldType = "relation"
	FieldTypeJSON                FieldType = "json"
	FieldTypeUID                 FieldType = "uid"
	FieldTypeComponent           FieldType = "component"
	FieldTypeRepeatableComponent FieldType = "repeatable-component"
	FieldTypeDynamicZone         FieldType = "dynamic-zone"
)

// IsComponentRef reports whether the type embeds a single component reference
func (t FieldType) IsComponentRef() bool {
	return t == FieldTypeComponent || t == FieldTypeRepeatableComponent
}

// RelationType describes the cardinality of a relation field
type RelationType string

const (
	RelationOneToOne   RelationType = "one-to-one"
	RelationOneToMany  RelationType = "one-to-many"
	RelationManyToOne  RelationType = "many-to-one"
	RelationManyToMany RelationType = "many-to-many"
)

// ValidRelationTypes lists the accepted relation cardinalities
var ValidRelationTypes = map[RelationType]bool{
	RelationOneToOne:   true,
	RelationOneToMany:  true,
	RelationManyToOne:  true,
	RelationManyToMany: true,
}

// MediaKind restricts which assets a media field accepts
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindFile  MediaKind = "file"
	MediaKindAll   MediaKind = "all"
)

// Constraints is the type-specific part of a field definition.
// The set of implementations is closed; see ConstraintsMatch.
type Constraints interface {
	constraints()
}

// NoConstraints is used by types that carry no extra configuration
type NoConstraints struct{}

// TextConstraints applies to string-valued fields
type TextConstraints struct {
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// NumberConstraints applies to numeric fields
type NumberConstraints struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// EnumerationConstraints lists the accepted values of an enumeration
type EnumerationConstraints struct {
	Values []string `json:"enumerationValues"`
}

// MediaConstraints configures a media field
type MediaConstraints struct {
	MediaType MediaKind `json:"mediaType,omitempty"`
	Multiple  bool      `json:"multiple"`
}

// RelationConstraints points a relation field at another content type
type RelationConstraints struct {
	Target       string       `json:"relationTarget"`
	RelationType RelationType `json:"relationType"`
}

// UIDConstraints names the sibling field a uid is derived from
type UIDConstraints struct {
	TargetField string `json:"uidTarget"`
}

// ComponentConstraints embeds one component, or a list of it when repeatable
type ComponentConstraints struct {
	ComponentID string `json:"componentId"`
	Min         *int   `json:"minComponents,omitempty"`
	Max         *int   `json:"maxComponents,omitempty"`
}

// DynamicZoneConstraints allows a sequence of blocks drawn from several components
type DynamicZoneConstraints struct {
	AllowedComponents []string `json:"allowedComponents"`
	Min               *int     `json:"minComponents,omitempty"`
	Max               *int     `json:"maxComponents,omitempty"`
}

func (NoConstraints) constraints()          {}
func (TextConstraints) constraints()        {}
func (NumberConstraints) constraints()      {}
func (EnumerationConstraints) constraints() {}
func (MediaConstraints) constraints()       {}
func (RelationConstraints) constraints()    {}
func (UIDConstraints) constraints()         {}
func (ComponentConstraints) constraints()   {}
func (DynamicZoneConstraints) constraints() {}

// EmptyConstraints returns the zero constraint variant for a type.
// The second result is false for unknown types.
func EmptyConstraints(t FieldType) (Constraints, bool) {
	switch t {
	case FieldTypeText, FieldTypeLongText, FieldTypeRichText, FieldTypeEmail, FieldTypePassword:
		return TextConstraints{}, true
	case FieldTypeNumber, FieldTypeDecimal, FieldTypeFloat:
		return NumberConstraints{}, true
	case FieldTypeDate, FieldTypeDateTime, FieldTypeTime, FieldTypeBoolean, FieldTypeJSON:
		return NoConstraints{}, true
	case FieldTypeEnumeration:
		return EnumerationConstraints{}, true
	case FieldTypeMedia:
		return MediaConstraints{}, true
	case FieldTypeRelation:
		return RelationConstraints{}, true
	case FieldTypeUID:
		return UIDConstraints{}, true
	case FieldTypeComponent, FieldTypeRepeatableComponent:
		return ComponentConstraints{}, true
	case FieldTypeDynamicZone:
		return DynamicZoneConstraints{}, true
	}
	return nil, false
}

// ConstraintsMatch reports whether c is the variant that belongs to type t.
// A nil c matches types whose variant is NoConstraints.
func ConstraintsMatch(t FieldType, c Constraints) bool {
	want, ok := EmptyConstraints(t)
	if !ok {
		return false
	}
	if c == nil {
		_, none := want.(NoConstraints)
		return none
	}
	switch want.(type) {
	case NoConstraints:
		_, ok = c.(NoConstraints)
	case TextConstraints:
		_, ok = c.(TextConstraints)
	case NumberConstraints:
		_, ok = c.(NumberConstraints)
	case EnumerationConstraints:
		_, ok = c.(EnumerationConstraints)
	case MediaConstraints:
		_, ok = c.(MediaConstraints)
	case RelationConstraints:
		_, ok = c.(RelationConstraints)
	case UIDConstraints:
		_, ok = c.(UIDConstraints)
	case ComponentConstraints:
		_, ok = c.(ComponentConstraints)
	case DynamicZoneConstraints:
		_, ok = c.(DynamicZoneConstraints)
	default:
		ok = false
	}
	return ok
}

// FieldDefinition is one named, typed slot of a component or content type
type FieldDefinition struct {
	Name         string
	Type         FieldType
	Required     bool
	Unique       bool
	Private      bool
	Localized    bool
	DefaultValue interface{}
	Constraints  Constraints
}

// ComponentRef returns the component id referenced by a component or
// repeatable-component field, or "" for any other field.
func (f FieldDefinition) ComponentRef() string {
	if !f.Type.IsComponentRef() {
		return ""
	}
	if c, ok := f.Constraints.(ComponentConstraints); ok {
		return c.ComponentID
	}
	return ""
}

// ReferencedComponents returns every component id the field points at,
// including the allow-list of a dynamic zone.
func (f FieldDefinition) ReferencedComponents() []string {
	switch c := f.Constraints.(type) {
	case ComponentConstraints:
		if f.Type.IsComponentRef() && c.ComponentID != "" {
			return []string{c.ComponentID}
		}
	case DynamicZoneConstraints:
		if f.Type == FieldTypeDynamicZone {
			return append([]string(nil), c.AllowedComponents...)
		}
	}
	return nil
}

// Clone returns a copy that shares no slices or pointers with f
func (f FieldDefinition) Clone() FieldDefinition {
	out := f
	out.DefaultValue = CloneValue(f.DefaultValue)
	switch c := f.Constraints.(type) {
	case TextConstraints:
		c.MinLength = cloneInt(c.MinLength)
		c.MaxLength = cloneInt(c.MaxLength)
		out.Constraints = c
	case NumberConstraints:
		c.Min = cloneFloat(c.Min)
		c.Max = cloneFloat(c.Max)
		out.Constraints = c
	case EnumerationConstraints:
		c.Values = append([]string(nil), c.Values...)
		out.Constraints = c
	case ComponentConstraints:
		c.Min = cloneInt(c.Min)
		c.Max = cloneInt(c.Max)
		out.Constraints = c
	case DynamicZoneConstraints:
		c.AllowedComponents = append([]string(nil), c.AllowedComponents...)
		c.Min = cloneInt(c.Min)
		c.Max = cloneInt(c.Max)
		out.Constraints = c
	}
	return out
}

// CloneFields deep-copies a field list
func CloneFields(fields []FieldDefinition) []FieldDefinition {
	if fields == nil {
		return nil
	}
	out := make([]FieldDefinition, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

// fieldWire is the flat JSON shape used by the admin panel and export bundles
type fieldWire struct {
	Name              string       `json:"name"`
	Type              FieldType    `json:"type"`
	Required          bool         `json:"required"`
	Unique            bool         `json:"unique,omitempty"`
	Private           bool         `json:"private,omitempty"`
	Localized         bool         `json:"localized,omitempty"`
	DefaultValue      interface{}  `json:"defaultValue,omitempty"`
	MinLength         *int         `json:"minLength,omitempty"`
	MaxLength         *int         `json:"maxLength,omitempty"`
	Pattern           string       `json:"pattern,omitempty"`
	Min               *float64     `json:"min,omitempty"`
	Max               *float64     `json:"max,omitempty"`
	EnumerationValues []string     `json:"enumerationValues,omitempty"`
	RelationTarget    string       `json:"relationTarget,omitempty"`
	RelationType      RelationType `json:"relationType,omitempty"`
	ComponentID       string       `json:"componentId,omitempty"`
	AllowedComponents []string     `json:"allowedComponents,omitempty"`
	MinComponents     *int         `json:"minComponents,omitempty"`
	MaxComponents     *int         `json:"maxComponents,omitempty"`
	UIDTarget         string       `json:"uidTarget,omitempty"`
	MediaType         MediaKind    `json:"mediaType,omitempty"`
	Multiple          bool         `json:"multiple,omitempty"`
}

// MarshalJSON flattens the constraints into the field object
func (f FieldDefinition) MarshalJSON() ([]byte, error) {
	w := fieldWire{
		Name:         f.Name,
		Type:         f.Type,
		Required:     f.Required,
		Unique:       f.Unique,
		Private:      f.Private,
		Localized:    f.Localized,
		DefaultValue: f.DefaultValue,
	}
	switch c := f.Constraints.(type) {
	case TextConstraints:
		w.MinLength, w.MaxLength, w.Pattern = c.MinLength, c.MaxLength, c.Pattern
	case NumberConstraints:
		w.Min, w.Max = c.Min, c.Max
	case EnumerationConstraints:
		w.EnumerationValues = c.Values
	case MediaConstraints:
		w.MediaType, w.Multiple = c.MediaType, c.Multiple
	case RelationConstraints:
		w.RelationTarget, w.RelationType = c.Target, c.RelationType
	case UIDConstraints:
		w.UIDTarget = c.TargetField
	case ComponentConstraints:
		w.ComponentID, w.MinComponents, w.MaxComponents = c.ComponentID, c.Min, c.Max
	case DynamicZoneConstraints:
		w.AllowedComponents, w.MinComponents, w.MaxComponents = c.AllowedComponents, c.Min, c.Max
	}
	return json.Marshal(w)
}

// UnmarshalJSON builds the constraint variant selected by the field type
func (f *FieldDefinition) UnmarshalJSON(data []byte) error {
	var w fieldWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c, ok := EmptyConstraints(w.Type)
	if !ok {
		return fmt.Errorf("%w: unknown field type %q on field %q", ErrInvalidField, w.Type, w.Name)
	}
	switch c.(type) {
	case TextConstraints:
		c = TextConstraints{MinLength: w.MinLength, MaxLength: w.MaxLength, Pattern: w.Pattern}
	case NumberConstraints:
		c = NumberConstraints{Min: w.Min, Max: w.Max}
	case EnumerationConstraints:
		c = EnumerationConstraints{Values: w.EnumerationValues}
	case MediaConstraints:
		c = MediaConstraints{MediaType: w.MediaType, Multiple: w.Multiple}
	case RelationConstraints:
		c = RelationConstraints{Target: w.RelationTarget, RelationType: w.RelationType}
	case UIDConstraints:
		c = UIDConstraints{TargetField: w.UIDTarget}
	case ComponentConstraints:
		c = ComponentConstraints{ComponentID: w.ComponentID, Min: w.MinComponents, Max: w.MaxComponents}
	case DynamicZoneConstraints:
		c = DynamicZoneConstraints{AllowedComponents: w.AllowedComponents, Min: w.MinComponents, Max: w.MaxComponents}
	}
	*f = FieldDefinition{
		Name:         w.Name,
		Type:         w.Type,
		Required:     w.Required,
		Unique:       w.Unique,
		Private:      w.Private,
		Localized:    w.Localized,
		DefaultValue: w.DefaultValue,
		Constraints:  c,
	}
	return nil
}

// IntPtr is a helper for optional integer constraints
func IntPtr(v int) *int { return &v }

// FloatPtr is a helper for optional numeric constraints
func FloatPtr(v float64) *float64 { return &v }

// BoolPtr is a helper for optional flags
func BoolPtr(v bool) *bool { return &v }

// StringPtr is a helper for optional strings
func StringPtr(v string) *string { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// CloneValue deep-copies JSON-shaped values (maps, slices, scalars)
func CloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = CloneValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// CloneData deep-copies an entry data payload
func CloneData(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	return CloneValue(data).(map[string]interface{})
}

// Normalized fills in the empty constraint variant when none was given
func (f FieldDefinition) Normalized() FieldDefinition {
	if f.Constraints == nil {
		if c, ok := EmptyConstraints(f.Type); ok {
			f.Constraints = c
		}
	}
	return f
}
