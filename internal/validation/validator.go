package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/headless-cms-admin/internal/fieldtypes"
	"github.com/headless-cms-admin/internal/models"
)

var (
	identifierRegex   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	apiIDRegex        = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$`)
	apiIDReplaceRegex = regexp.MustCompile(`[^a-z0-9]+`)
)

// ComponentLookup resolves a component by id
type ComponentLookup func(id string) (models.Component, bool)

// ValidationErrors collects every failure found in one record
type ValidationErrors []*models.FieldError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual field errors to errors.Is and errors.As
func (e ValidationErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, fe := range e {
		out[i] = fe
	}
	return out
}

// orNil keeps a typed empty slice from becoming a non-nil error
func (e ValidationErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Validator provides validation methods
type Validator struct {
	structs *validator.Validate

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	structs := validator.New()
	structs.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{
		structs:  structs,
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Struct runs the validate tags of s and reports failures as field errors
func (v *Validator) Struct(s interface{}) error {
	err := v.structs.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, &models.FieldError{
			Field:   fe.Field(),
			Kind:    kindForTag(fe.Tag()),
			Message: messageForTag(fe),
			Value:   fe.Value(),
		})
	}
	return out
}

func kindForTag(tag string) error {
	switch tag {
	case "required":
		return models.ErrRequiredField
	case "email", "url":
		return models.ErrPatternMismatch
	case "oneof", "gte", "lte", "gt", "lt", "min", "max":
		return models.ErrOutOfRange
	default:
		return models.ErrInvalidField
	}
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
}

// ValidateIdentifier checks a component, content type or field name
func ValidateIdentifier(field, name string) error {
	if name == "" {
		return models.NewFieldError(models.ErrInvalidField, field, "%s is required", field)
	}
	if !identifierRegex.MatchString(name) {
		fe := models.NewFieldError(models.ErrInvalidField, field,
			"%s must start with a letter and contain only letters, numbers and underscores", field)
		fe.Value = name
		return fe
	}
	return nil
}

// ValidateAPIID checks the URL-safe identifier of a content type
func ValidateAPIID(apiID string) error {
	if !apiIDRegex.MatchString(apiID) {
		fe := models.NewFieldError(models.ErrInvalidField, "apiId",
			"apiId must be lowercase letters, numbers and hyphens, starting with a letter")
		fe.Value = apiID
		return fe
	}
	return nil
}

// GenerateAPIID derives an apiId from a display name: lowercase, every run
// of other characters collapsed to one hyphen, no leading or trailing hyphen.
func GenerateAPIID(displayName string) string {
	id := apiIDReplaceRegex.ReplaceAllString(strings.ToLower(displayName), "-")
	return strings.Trim(id, "-")
}

// ValidateUser validates the writable attributes of a user account.
// All failures are reported, not just the first.
func (v *Validator) ValidateUser(user *models.UserInput) error {
	in := *user
	in.Username = strings.TrimSpace(in.Username)
	return v.Struct(&in)
}

// FieldContext is what a field definition is checked against
type FieldContext struct {
	// OwnerID is the component or content type receiving the field
	OwnerID string
	// Siblings are the owner's other fields
	Siblings []models.FieldDefinition
	// Components resolves component references
	Components ComponentLookup
}

// ValidateFieldDefinition checks a field before it is added to, or replaced
// on, an owner. Checks run in a fixed order and the first failure is returned.
func (v *Validator) ValidateFieldDefinition(fc FieldContext, field models.FieldDefinition) error {
	if err := ValidateIdentifier("name", field.Name); err != nil {
		return err
	}

	if !fieldtypes.IsValid(field.Type) {
		return models.NewFieldError(models.ErrInvalidField, field.Name, "unknown field type %q", field.Type)
	}

	field = field.Normalized()
	if !models.ConstraintsMatch(field.Type, field.Constraints) {
		return models.NewFieldError(models.ErrInvalidField, field.Name,
			"constraints %T do not apply to %s fields", field.Constraints, field.Type)
	}

	switch c := field.Constraints.(type) {
	case models.TextConstraints:
		return v.checkTextConstraints(field.Name, c)
	case models.NumberConstraints:
		if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
			return models.NewFieldError(models.ErrInvalidField, field.Name, "min %v is greater than max %v", *c.Min, *c.Max)
		}
	case models.ComponentConstraints:
		if c.ComponentID == "" {
			return models.NewFieldError(models.ErrInvalidField, field.Name, "component fields must reference a component")
		}
		if err := checkInstanceBounds(field.Name, c.Min, c.Max); err != nil {
			return err
		}
		return checkComponentRef(fc, field.Name, c.ComponentID)
	case models.DynamicZoneConstraints:
		if len(c.AllowedComponents) == 0 {
			return models.NewFieldError(models.ErrInvalidField, field.Name, "dynamic zones must allow at least one component")
		}
		if err := checkInstanceBounds(field.Name, c.Min, c.Max); err != nil {
			return err
		}
		for _, id := range c.AllowedComponents {
			if err := checkComponentRef(fc, field.Name, id); err != nil {
				return err
			}
		}
	case models.EnumerationConstraints:
		if len(c.Values) == 0 {
			return models.NewFieldError(models.ErrInvalidField, field.Name, "enumeration fields must have at least one value")
		}
		seen := make(map[string]bool, len(c.Values))
		for _, val := range c.Values {
			if strings.TrimSpace(val) == "" {
				return models.NewFieldError(models.ErrInvalidField, field.Name, "enumeration values must not be blank")
			}
			if seen[val] {
				return models.NewFieldError(models.ErrInvalidField, field.Name, "duplicate enumeration value %q", val)
			}
			seen[val] = true
		}
	case models.RelationConstraints:
		if c.Target == "" {
			return models.NewFieldError(models.ErrInvalidField, field.Name, "relation target is required")
		}
		if c.RelationType == "" {
			return models.NewFieldError(models.ErrInvalidField, field.Name, "relation type is required")
		}
		if !models.ValidRelationTypes[c.RelationType] {
			return models.NewFieldError(models.ErrInvalidField, field.Name, "invalid relation type %q", c.RelationType)
		}
	case models.UIDConstraints:
		if c.TargetField == "" {
			return models.NewFieldError(models.ErrInvalidField, field.Name, "UID target field is required")
		}
		target, ok := findField(fc.Siblings, c.TargetField)
		if !ok || target.Name == field.Name {
			return models.NewFieldError(models.ErrInvalidField, field.Name, "UID target %q is not a field of this type", c.TargetField)
		}
		if !isTextLike(target.Type) {
			return models.NewFieldError(models.ErrInvalidField, field.Name, "UID target %q must be a text field", c.TargetField)
		}
	case models.MediaConstraints:
		switch c.MediaType {
		case "", models.MediaKindImage, models.MediaKindVideo, models.MediaKindFile, models.MediaKindAll:
		default:
			return models.NewFieldError(models.ErrInvalidField, field.Name, "invalid media type %q", c.MediaType)
		}
	}
	return nil
}

func (v *Validator) checkTextConstraints(name string, c models.TextConstraints) error {
	if c.MinLength != nil && *c.MinLength < 0 {
		return models.NewFieldError(models.ErrInvalidField, name, "minLength must not be negative")
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		return models.NewFieldError(models.ErrInvalidField, name, "minLength %d is greater than maxLength %d", *c.MinLength, *c.MaxLength)
	}
	if c.Pattern != "" {
		if _, err := v.pattern(c.Pattern); err != nil {
			return models.NewFieldError(models.ErrInvalidField, name, "invalid pattern: %v", err)
		}
	}
	return nil
}

func checkInstanceBounds(name string, min, max *int) error {
	if min != nil && *min < 0 {
		return models.NewFieldError(models.ErrInvalidField, name, "minComponents must not be negative")
	}
	if min != nil && max != nil && *min > *max {
		return models.NewFieldError(models.ErrInvalidField, name, "minComponents %d is greater than maxComponents %d", *min, *max)
	}
	return nil
}

func checkComponentRef(fc FieldContext, fieldName, componentID string) error {
	if componentID == fc.OwnerID {
		return models.NewFieldError(models.ErrCircularDependency, fieldName, "component cannot contain itself")
	}
	if _, ok := fc.Components(componentID); !ok {
		fe := models.NewFieldError(models.ErrComponentNotFound, fieldName, "component %s not found", componentID)
		fe.Value = componentID
		return fe
	}
	if Reaches(fc.Components, componentID, fc.OwnerID) {
		return models.NewFieldError(models.ErrCircularDependency, fieldName,
			"circular dependency detected: component %s already contains %s", componentID, fc.OwnerID)
	}
	return nil
}

// Reaches reports whether target is reachable from start over component
// references, including dynamic zone allow-lists. Unresolved ids are skipped.
func Reaches(lookup ComponentLookup, start, target string) bool {
	if start == target {
		return true
	}
	visited := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		comp, ok := lookup(id)
		if !ok {
			continue
		}
		for _, f := range comp.Fields {
			for _, ref := range f.ReferencedComponents() {
				if ref == target {
					return true
				}
				if !visited[ref] {
					visited[ref] = true
					stack = append(stack, ref)
				}
			}
		}
	}
	return false
}

func (v *Validator) pattern(expr string) (*regexp.Regexp, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if re, ok := v.patterns[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	v.patterns[expr] = re
	return re, nil
}

func findField(fields []models.FieldDefinition, name string) (models.FieldDefinition, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return models.FieldDefinition{}, false
}

func isTextLike(t models.FieldType) bool {
	switch t {
	case models.FieldTypeText, models.FieldTypeLongText, models.FieldTypeEmail:
		return true
	}
	return false
}
