package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/headless-cms-admin/internal/models"
)

// DynamicZoneKey names the component of a dynamic zone block
const DynamicZoneKey = "__component"

// maxNestingDepth bounds component recursion on data whose schema was
// corrupted into a cycle outside the registry.
const maxNestingDepth = 32

var emailFieldRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEntryData checks data against a field list. Fields are visited in
// order and the first failure is returned as a *models.FieldError whose Field
// is the dotted path of the offending value (seo.metaTitle, items[1].title).
func (v *Validator) ValidateEntryData(data map[string]interface{}, fields []models.FieldDefinition, components ComponentLookup) error {
	return v.validateFields("", data, fields, components, 0)
}

func (v *Validator) validateFields(prefix string, data map[string]interface{}, fields []models.FieldDefinition, components ComponentLookup, depth int) error {
	if depth > maxNestingDepth {
		return models.NewFieldError(models.ErrCircularDependency, prefix, "%s nests components too deeply", prefix)
	}
	for _, field := range fields {
		path := joinPath(prefix, field.Name)
		value := data[field.Name]

		if isEmpty(value) {
			if field.Required {
				return models.NewFieldError(models.ErrRequiredField, path, "%s is required", path)
			}
			continue
		}

		if err := v.validateValue(path, field.Normalized(), value, components, depth); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateValue(path string, field models.FieldDefinition, value interface{}, components ComponentLookup, depth int) error {
	switch field.Type {
	case models.FieldTypeText, models.FieldTypeLongText, models.FieldTypeRichText, models.FieldTypePassword:
		s, ok := value.(string)
		if !ok {
			return mismatch(path, value, "%s must be a string", path)
		}
		return v.checkText(path, s, field.Constraints)

	case models.FieldTypeEmail:
		s, ok := value.(string)
		if !ok {
			return mismatch(path, value, "%s must be a string", path)
		}
		if err := v.checkText(path, s, field.Constraints); err != nil {
			return err
		}
		if !emailFieldRegex.MatchString(s) {
			fe := models.NewFieldError(models.ErrPatternMismatch, path, "%s must be a valid email address", path)
			fe.Value = s
			return fe
		}

	case models.FieldTypeNumber, models.FieldTypeDecimal, models.FieldTypeFloat:
		n, ok := toFloat(value)
		if !ok || math.IsNaN(n) {
			return mismatch(path, value, "%s must be a number", path)
		}
		c, _ := field.Constraints.(models.NumberConstraints)
		if c.Min != nil && n < *c.Min {
			return outOfRange(path, value, "%s is below minimum value of %v", path, *c.Min)
		}
		if c.Max != nil && n > *c.Max {
			return outOfRange(path, value, "%s exceeds maximum value of %v", path, *c.Max)
		}

	case models.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return mismatch(path, value, "%s must be a boolean", path)
		}

	case models.FieldTypeDate, models.FieldTypeDateTime, models.FieldTypeTime:
		switch value.(type) {
		case string, time.Time, *time.Time:
		default:
			return mismatch(path, value, "%s must be a date", path)
		}

	case models.FieldTypeEnumeration:
		c, _ := field.Constraints.(models.EnumerationConstraints)
		s, _ := value.(string)
		for _, allowed := range c.Values {
			if s == allowed {
				return nil
			}
		}
		return outOfRange(path, value, "%s must be one of: %s", path, strings.Join(c.Values, ", "))

	case models.FieldTypeJSON:
		if _, err := json.Marshal(value); err != nil {
			return mismatch(path, nil, "%s must be valid JSON", path)
		}

	case models.FieldTypeComponent:
		c, _ := field.Constraints.(models.ComponentConstraints)
		obj, ok := value.(map[string]interface{})
		if !ok {
			return mismatch(path, value, "%s must be an object", path)
		}
		comp, err := resolve(path, c.ComponentID, components)
		if err != nil {
			return err
		}
		return v.validateFields(path, obj, comp.Fields, components, depth+1)

	case models.FieldTypeRepeatableComponent:
		c, _ := field.Constraints.(models.ComponentConstraints)
		items, ok := toSlice(value)
		if !ok {
			return mismatch(path, value, "%s must be a list", path)
		}
		if err := checkCount(path, len(items), c.Min, c.Max); err != nil {
			return err
		}
		comp, err := resolve(path, c.ComponentID, components)
		if err != nil {
			return err
		}
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			obj, ok := item.(map[string]interface{})
			if !ok {
				return mismatch(itemPath, item, "%s must be an object", itemPath)
			}
			if err := v.validateFields(itemPath, obj, comp.Fields, components, depth+1); err != nil {
				return err
			}
		}

	case models.FieldTypeDynamicZone:
		c, _ := field.Constraints.(models.DynamicZoneConstraints)
		items, ok := toSlice(value)
		if !ok {
			return mismatch(path, value, "%s must be a list", path)
		}
		if err := checkCount(path, len(items), c.Min, c.Max); err != nil {
			return err
		}
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			obj, ok := item.(map[string]interface{})
			if !ok {
				return mismatch(itemPath, item, "%s must be an object", itemPath)
			}
			id, _ := obj[DynamicZoneKey].(string)
			if id == "" {
				return models.NewFieldError(models.ErrRequiredField, itemPath+"."+DynamicZoneKey, "%s.%s is required", itemPath, DynamicZoneKey)
			}
			if !contains(c.AllowedComponents, id) {
				return outOfRange(itemPath, id, "%s: component %s is not allowed here", itemPath, id)
			}
			comp, err := resolve(itemPath, id, components)
			if err != nil {
				return err
			}
			if err := v.validateFields(itemPath, obj, comp.Fields, components, depth+1); err != nil {
				return err
			}
		}

	case models.FieldTypeMedia, models.FieldTypeRelation, models.FieldTypeUID:
		// references are resolved by the consumer
	}
	return nil
}

func (v *Validator) checkText(path, s string, constraints models.Constraints) error {
	c, _ := constraints.(models.TextConstraints)
	n := utf8.RuneCountInString(s)
	if c.MaxLength != nil && n > *c.MaxLength {
		return outOfRange(path, s, "%s exceeds maximum length of %d", path, *c.MaxLength)
	}
	if c.MinLength != nil && n < *c.MinLength {
		return outOfRange(path, s, "%s is below minimum length of %d", path, *c.MinLength)
	}
	if c.Pattern != "" {
		re, err := v.pattern(c.Pattern)
		if err != nil {
			return models.NewFieldError(models.ErrInvalidField, path, "%s has an invalid pattern: %v", path, err)
		}
		if !re.MatchString(s) {
			fe := models.NewFieldError(models.ErrPatternMismatch, path, "%s does not match the required pattern", path)
			fe.Value = s
			return fe
		}
	}
	return nil
}

func resolve(path, id string, components ComponentLookup) (models.Component, error) {
	if components != nil {
		if comp, ok := components(id); ok {
			return comp, nil
		}
	}
	return models.Component{}, models.NewFieldError(models.ErrComponentNotFound, path, "%s references unknown component %s", path, id)
}

func checkCount(path string, n int, min, max *int) error {
	if min != nil && n < *min {
		return outOfRange(path, n, "%s needs at least %d items", path, *min)
	}
	if max != nil && n > *max {
		return outOfRange(path, n, "%s allows at most %d items", path, *max)
	}
	return nil
}

func mismatch(path string, value interface{}, format string, args ...interface{}) error {
	fe := models.NewFieldError(models.ErrFieldTypeMismatch, path, format, args...)
	fe.Value = value
	return fe
}

func outOfRange(path string, value interface{}, format string, args ...interface{}) error {
	fe := models.NewFieldError(models.ErrOutOfRange, path, format, args...)
	fe.Value = value
	return fe
}

func isEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

func toFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toSlice(value interface{}) ([]interface{}, bool) {
	switch s := value.(type) {
	case []interface{}:
		return s, true
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
