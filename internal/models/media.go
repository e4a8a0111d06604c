package models

import (
	"time"
)

// MediaFile is the metadata record of an uploaded asset
type MediaFile struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Filename  string    `json:"filename" validate:"required"`
	MimeType  string    `json:"mimeType" validate:"required"`
	Size      int64     `json:"size" validate:"gte=0"`
	Width     *int      `json:"width,omitempty"`
	Height    *int      `json:"height,omitempty"`
	URL       string    `json:"url"`
	Alt       string    `json:"alt,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	Folder    string    `json:"folder,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetID returns the media file identity
func (m MediaFile) GetID() string { return m.ID }

// Clone returns a deep copy
func (m MediaFile) Clone() MediaFile {
	out := m
	out.Width = cloneInt(m.Width)
	out.Height = cloneInt(m.Height)
	return out
}

// MediaFileType is the coarse family a MIME type belongs to
type MediaFileType string

const (
	MediaTypeImage    MediaFileType = "image"
	MediaTypeVideo    MediaFileType = "video"
	MediaTypeDocument MediaFileType = "document"
	MediaTypeAll      MediaFileType = "all"
)

// Upload describes an incoming file
type Upload struct {
	Filename string
	MimeType string
	Size     int64
	Alt      string
	Caption  string
	Folder   string
}

// MediaUpdate is a partial metadata update; nil members are left untouched
type MediaUpdate struct {
	Name    *string `json:"name,omitempty"`
	Alt     *string `json:"alt,omitempty"`
	Caption *string `json:"caption,omitempty"`
	Folder  *string `json:"folder,omitempty"`
}

// MediaStats aggregates the media library
type MediaStats struct {
	TotalFiles     int            `json:"totalFiles"`
	TotalSize      int64          `json:"totalSize"`
	TotalSizeHuman string         `json:"totalSizeHuman"`
	AverageSize    int64          `json:"averageSize"`
	ByType         map[string]int `json:"byType"`
	ByFolder       map[string]int `json:"byFolder"`
}

// RootFolder labels files that have no folder
const RootFolder = "Root"
