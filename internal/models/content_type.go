package models

import (
	"time"
)

// ContentTypeKind distinguishes single-instance types from collections
type ContentTypeKind string

const (
	ContentTypeSingle     ContentTypeKind = "single"
	ContentTypeCollection ContentTypeKind = "collection"
)

// ContentType is a user-defined schema for a class of entries
type ContentType struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	DisplayName     string            `json:"displayName"`
	Description     string            `json:"description,omitempty"`
	Kind            ContentTypeKind   `json:"kind"`
	APIID           string            `json:"apiId"`
	DraftAndPublish bool              `json:"draftAndPublish"`
	I18n            bool              `json:"i18n"`
	Fields          []FieldDefinition `json:"fields"`
	EntryCount      int               `json:"entryCount"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// GetID returns the content type identity
func (t ContentType) GetID() string { return t.ID }

// Clone returns a deep copy
func (t ContentType) Clone() ContentType {
	out := t
	out.Fields = CloneFields(t.Fields)
	return out
}

// ContentTypeInput carries the writable content type attributes.
// DraftAndPublish and I18n default to true and false when nil. A nil APIID
// keeps the current one; an empty one is generated from DisplayName.
type ContentTypeInput struct {
	Name            string          `json:"name"`
	DisplayName     string          `json:"displayName"`
	Description     string          `json:"description,omitempty"`
	Kind            ContentTypeKind `json:"kind"`
	APIID           *string         `json:"apiId,omitempty"`
	DraftAndPublish *bool           `json:"draftAndPublish,omitempty"`
	I18n            *bool           `json:"i18n,omitempty"`
}

// ContentTypeStats summarises the content type registry
type ContentTypeStats struct {
	Total         int     `json:"total"`
	Single        int     `json:"single"`
	Collection    int     `json:"collection"`
	TotalFields   int     `json:"totalFields"`
	AverageFields float64 `json:"averageFieldsPerType"`
}
