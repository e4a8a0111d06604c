package models

import (
	"time"
)

// EntryStatus is the draft & publish lifecycle state of an entry
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "draft"
	EntryStatusPublished EntryStatus = "published"
	EntryStatusModified  EntryStatus = "modified"
	EntryStatusScheduled EntryStatus = "scheduled"
)

// ValidEntryStatuses defines allowed entry statuses
var ValidEntryStatuses = map[EntryStatus]bool{
	EntryStatusDraft:     true,
	EntryStatusPublished: true,
	EntryStatusModified:  true,
	EntryStatusScheduled: true,
}

// DefaultLocale is used when an entry is created without a locale
const DefaultLocale = "en"

// DefaultAuthor is recorded as creator/updater when none is supplied
const DefaultAuthor = "current-user"

// Entry is one instance of data conforming to a content type
type Entry struct {
	ID            string                 `json:"id"`
	ContentTypeID string                 `json:"contentTypeId"`
	Status        EntryStatus            `json:"status"`
	Locale        string                 `json:"locale"`
	Data          map[string]interface{} `json:"data"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	CreatedBy     string                 `json:"createdBy"`
	UpdatedBy     string                 `json:"updatedBy"`
	PublishedAt   *time.Time             `json:"publishedAt,omitempty"`
	ScheduledAt   *time.Time             `json:"scheduledAt,omitempty"`
}

// GetID returns the entry identity
func (e Entry) GetID() string { return e.ID }

// Clone returns a deep copy
func (e Entry) Clone() Entry {
	out := e
	out.Data = CloneData(e.Data)
	out.PublishedAt = cloneTime(e.PublishedAt)
	out.ScheduledAt = cloneTime(e.ScheduledAt)
	return out
}

// CreateEntryRequest carries the inputs of an entry creation
type CreateEntryRequest struct {
	ContentTypeID string                 `json:"contentTypeId"`
	Data          map[string]interface{} `json:"data"`
	Status        EntryStatus            `json:"status,omitempty"`
	Locale        string                 `json:"locale,omitempty"`
	CreatedBy     string                 `json:"createdBy,omitempty"`
}

// EntryUpdate is a partial update; nil members are left untouched
type EntryUpdate struct {
	Data      map[string]interface{} `json:"data,omitempty"`
	Status    *EntryStatus           `json:"status,omitempty"`
	Locale    *string                `json:"locale,omitempty"`
	UpdatedBy string                 `json:"updatedBy,omitempty"`
}

// EntryFilter narrows an entry listing. Zero members do not filter.
type EntryFilter struct {
	Statuses      []EntryStatus `json:"status,omitempty" form:"status"`
	Locales       []string      `json:"locale,omitempty" form:"locale"`
	ContentTypeID string        `json:"contentTypeId,omitempty" form:"contentTypeId"`
	Search        string        `json:"search,omitempty" form:"search"`
	DateFrom      *time.Time    `json:"dateFrom,omitempty" form:"dateFrom"`
	DateTo        *time.Time    `json:"dateTo,omitempty" form:"dateTo"`
}

// SortDirection orders a listing
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// EntrySort selects the ordering of an entry listing
type EntrySort struct {
	Field     string        `json:"field" form:"sort"`
	Direction SortDirection `json:"direction" form:"direction"`
}

// DefaultEntrySort is newest-updated first
var DefaultEntrySort = EntrySort{Field: "updatedAt", Direction: SortDesc}

// EntryStats counts entries per status
type EntryStats struct {
	Total     int `json:"total"`
	Draft     int `json:"draft"`
	Published int `json:"published"`
	Modified  int `json:"modified"`
	Scheduled int `json:"scheduled"`
}

// PatchKind selects how an entry data patch document is interpreted
type PatchKind string

const (
	PatchMerge PatchKind = "merge"
	PatchJSON  PatchKind = "json-patch"
)

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
