package models

import (
	"time"
)

// Component is a reusable group of field definitions
type Component struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	DisplayName      string            `json:"displayName"`
	Description      string            `json:"description,omitempty"`
	Category         string            `json:"category"`
	Icon             string            `json:"icon,omitempty"`
	IsRepeatable     bool              `json:"isRepeatable"`
	MinInstances     *int              `json:"minInstances,omitempty"`
	MaxInstances     *int              `json:"maxInstances,omitempty"`
	DefaultInstances *int              `json:"defaultInstances,omitempty"`
	Fields           []FieldDefinition `json:"fields"`
	UsageCount       int               `json:"usageCount"`
	UsedIn           []string          `json:"usedIn"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// GetID returns the component identity
func (c Component) GetID() string { return c.ID }

// Clone returns a deep copy
func (c Component) Clone() Component {
	out := c
	out.MinInstances = cloneInt(c.MinInstances)
	out.MaxInstances = cloneInt(c.MaxInstances)
	out.DefaultInstances = cloneInt(c.DefaultInstances)
	out.Fields = CloneFields(c.Fields)
	out.UsedIn = append([]string(nil), c.UsedIn...)
	return out
}

// ComponentInput carries the writable component attributes. On update, empty
// strings and nil pointers leave the current value in place.
type ComponentInput struct {
	Name             string `json:"name"`
	DisplayName      string `json:"displayName"`
	Description      string `json:"description,omitempty"`
	Category         string `json:"category"`
	Icon             string `json:"icon,omitempty"`
	IsRepeatable     *bool  `json:"isRepeatable,omitempty"`
	MinInstances     *int   `json:"minInstances,omitempty"`
	MaxInstances     *int   `json:"maxInstances,omitempty"`
	DefaultInstances *int   `json:"defaultInstances,omitempty"`
}

// ComponentCategories are the categories offered by the admin panel
var ComponentCategories = []string{
	"Layout",
	"Content",
	"SEO",
	"Navigation",
	"Forms",
	"Media",
	"Social",
	"Custom",
}

// ComponentStats summarises the component registry
type ComponentStats struct {
	Total         int            `json:"total"`
	Repeatable    int            `json:"repeatable"`
	SingleUse     int            `json:"singleUse"`
	TotalFields   int            `json:"totalFields"`
	AverageFields float64        `json:"averageFieldsPerComponent"`
	MostUsed      []Component    `json:"mostUsed"`
	Categories    map[string]int `json:"categories"`
}
