package service

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/headless-cms-admin/internal/media"
	"github.com/headless-cms-admin/internal/models"
	"github.com/rs/zerolog"
)

const defaultRecentMedia = 20

// mediaService is the concrete implementation of MediaService
type mediaService struct {
	*deps
	log zerolog.Logger
}

// newMediaService creates a new MediaService
func newMediaService(d *deps, log zerolog.Logger) *mediaService {
	return &mediaService{
		deps: d,
		log:  log.With().Str("service", "media").Logger(),
	}
}

// Add stores a metadata record as given, checking only required members
func (s *mediaService) Add(ctx context.Context, file models.MediaFile) (*models.MediaFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if file.ID == "" {
		file.ID = s.newID()
	}
	now := s.now()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	if file.UpdatedAt.IsZero() {
		file.UpdatedAt = file.CreatedAt
	}
	file.Folder = normalizeFolder(file.Folder)

	if err := s.validator.Struct(file); err != nil {
		return nil, s.record("media", "add", err)
	}
	if err := s.repos.Media.Insert(ctx, file); err != nil {
		return nil, s.record("media", "add", fmt.Errorf("failed to save media file: %w", err))
	}
	s.record("media", "add", nil)
	return &file, nil
}

// Ingest checks an upload against the size limit and the MIME allow-list,
// reads image dimensions and stores the resulting record. Decoding happens
// before the service lock is taken.
func (s *mediaService) Ingest(ctx context.Context, upload models.Upload, data []byte) (*models.MediaFile, error) {
	file, err := s.inspect(ctx, upload, data)
	if err != nil {
		return nil, s.record("media", "ingest", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file.ID = s.newID()
	file.CreatedAt = file.UpdatedAt
	if err := s.repos.Media.Insert(ctx, file); err != nil {
		return nil, s.record("media", "ingest", fmt.Errorf("failed to save media file: %w", err))
	}
	s.log.Info().
		Str("media_id", file.ID).
		Str("mime_type", file.MimeType).
		Str("size", media.FormatSize(file.Size)).
		Msg("Media file ingested")
	s.record("media", "ingest", nil)
	return &file, nil
}

// Replace swaps the file behind an existing record. The id, createdAt and
// folder are kept unless the upload names another folder.
func (s *mediaService) Replace(ctx context.Context, id string, upload models.Upload, data []byte) (*models.MediaFile, error) {
	next, err := s.inspect(ctx, upload, data)
	if err != nil {
		return nil, s.record("media", "replace", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.repos.Media.Get(id)
	if !ok {
		return nil, s.record("media", "replace", fmt.Errorf("%w: %s", models.ErrMediaNotFound, id))
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	if upload.Folder == "" {
		next.Folder = current.Folder
	}
	if upload.Alt == "" {
		next.Alt = current.Alt
	}
	if upload.Caption == "" {
		next.Caption = current.Caption
	}

	if err := s.repos.Media.Update(ctx, next); err != nil {
		return nil, s.record("media", "replace", fmt.Errorf("failed to save media file: %w", err))
	}
	s.record("media", "replace", nil)
	return &next, nil
}

func (s *mediaService) inspect(ctx context.Context, upload models.Upload, data []byte) (models.MediaFile, error) {
	size := upload.Size
	if size <= 0 {
		size = int64(len(data))
	}
	limit := s.cfg.Media.MaxFileSize
	if limit > 0 && size > limit {
		return models.MediaFile{}, fmt.Errorf("%w: %s is larger than %s",
			models.ErrFileTooLarge, media.FormatSize(size), media.FormatSize(limit))
	}

	info, err := media.Inspect(ctx, data)
	if err != nil {
		return models.MediaFile{}, err
	}

	declared := media.BaseType(upload.MimeType)
	if declared == "" {
		declared = info.MimeType
	}
	if !containsString(s.cfg.Media.AllowedMimeTypes(), declared) {
		return models.MediaFile{}, fmt.Errorf("%w: %q", models.ErrInvalidFileType, declared)
	}
	if !media.Consistent(declared, info.MimeType) {
		return models.MediaFile{}, fmt.Errorf("%w: declared %s but content is %s", models.ErrInvalidFileType, declared, info.MimeType)
	}

	now := s.now()
	name := path.Base(upload.Filename)
	if name == "." || name == "/" {
		name = "upload"
	}
	filename := strconv.FormatInt(now.UnixMilli(), 10) + "-" + name
	return models.MediaFile{
		Name:      name,
		Filename:  filename,
		MimeType:  declared,
		Size:      size,
		Width:     info.Width,
		Height:    info.Height,
		URL:       s.cfg.Media.URLPrefix + filename,
		Alt:       upload.Alt,
		Caption:   upload.Caption,
		Folder:    normalizeFolder(upload.Folder),
		UpdatedAt: now,
	}, nil
}

// Update changes the descriptive metadata of a file
func (s *mediaService) Update(ctx context.Context, id string, upd models.MediaUpdate) (*models.MediaFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.repos.Media.Get(id)
	if !ok {
		return nil, s.record("media", "update", fmt.Errorf("%w: %s", models.ErrMediaNotFound, id))
	}
	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, s.record("media", "update", models.NewFieldError(models.ErrRequiredField, "name", "name is required"))
		}
		file.Name = *upd.Name
	}
	if upd.Alt != nil {
		file.Alt = *upd.Alt
	}
	if upd.Caption != nil {
		file.Caption = *upd.Caption
	}
	if upd.Folder != nil {
		file.Folder = normalizeFolder(*upd.Folder)
	}
	file.UpdatedAt = s.now()

	if err := s.repos.Media.Update(ctx, file); err != nil {
		return nil, s.record("media", "update", fmt.Errorf("failed to save media file: %w", err))
	}
	s.record("media", "update", nil)
	return &file, nil
}

func (s *mediaService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos.Media.Get(id); !ok {
		return s.record("media", "delete", fmt.Errorf("%w: %s", models.ErrMediaNotFound, id))
	}
	if err := s.repos.Media.Delete(ctx, id); err != nil {
		return s.record("media", "delete", fmt.Errorf("failed to delete media file: %w", err))
	}
	return s.record("media", "delete", nil)
}

func (s *mediaService) Get(ctx context.Context, id string) (*models.MediaFile, error) {
	file, ok := s.repos.Media.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrMediaNotFound, id)
	}
	return &file, nil
}

func (s *mediaService) List(ctx context.Context) []models.MediaFile {
	return s.repos.Media.List()
}

// ByType filters by media family; MediaTypeAll returns everything
func (s *mediaService) ByType(ctx context.Context, t models.MediaFileType) []models.MediaFile {
	if t == models.MediaTypeAll || t == "" {
		return s.repos.Media.List()
	}
	return s.repos.Media.Filter(func(f models.MediaFile) bool { return media.Classify(f.MimeType) == t })
}

// ByFolder returns the files of a folder. RootFolder and "" both select files
// without a folder.
func (s *mediaService) ByFolder(ctx context.Context, folder string) []models.MediaFile {
	folder = normalizeFolder(folder)
	return s.repos.Media.Filter(func(f models.MediaFile) bool { return f.Folder == folder })
}

// Recent returns the newest files by creation time, 20 when limit <= 0
func (s *mediaService) Recent(ctx context.Context, limit int) []models.MediaFile {
	if limit <= 0 {
		limit = defaultRecentMedia
	}
	all := s.repos.Media.List()
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Search matches the query case-insensitively against name, filename, alt
// text and caption
func (s *mediaService) Search(ctx context.Context, query string) []models.MediaFile {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.repos.Media.List()
	}
	return s.repos.Media.Filter(func(f models.MediaFile) bool {
		return strings.Contains(strings.ToLower(f.Name), q) ||
			strings.Contains(strings.ToLower(f.Filename), q) ||
			strings.Contains(strings.ToLower(f.Alt), q) ||
			strings.Contains(strings.ToLower(f.Caption), q)
	})
}

func (s *mediaService) Stats(ctx context.Context) models.MediaStats {
	stats := models.MediaStats{
		ByType:   make(map[string]int),
		ByFolder: make(map[string]int),
	}
	for _, f := range s.repos.Media.List() {
		stats.TotalFiles++
		stats.TotalSize += f.Size
		stats.ByType[string(media.Classify(f.MimeType))]++
		folder := f.Folder
		if folder == "" {
			folder = models.RootFolder
		}
		stats.ByFolder[folder]++
	}
	if stats.TotalFiles > 0 {
		stats.AverageSize = stats.TotalSize / int64(stats.TotalFiles)
	}
	stats.TotalSizeHuman = media.FormatSize(stats.TotalSize)
	return stats
}

// Folders returns the named folders in use, sorted
func (s *mediaService) Folders(ctx context.Context) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, f := range s.repos.Media.List() {
		if f.Folder != "" && !seen[f.Folder] {
			seen[f.Folder] = true
			out = append(out, f.Folder)
		}
	}
	sort.Strings(out)
	return out
}

// MoveToFolder moves every listed file or none of them
func (s *mediaService) MoveToFolder(ctx context.Context, ids []string, folder string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.moveToFolder(ctx, ids, normalizeFolder(folder))
	return n, s.record("media", "move", err)
}

func (s *mediaService) moveToFolder(ctx context.Context, ids []string, folder string) (int, error) {
	for _, id := range ids {
		if _, ok := s.repos.Media.Get(id); !ok {
			return 0, fmt.Errorf("%w: %s", models.ErrMediaNotFound, id)
		}
	}

	now := s.now()
	moved := 0
	all := s.repos.Media.List()
	for i := range all {
		if containsString(ids, all[i].ID) && all[i].Folder != folder {
			all[i].Folder = folder
			all[i].UpdatedAt = now
			moved++
		}
	}
	if moved == 0 {
		return 0, nil
	}
	if err := s.repos.Media.ReplaceAll(ctx, all); err != nil {
		return 0, fmt.Errorf("failed to move media files: %w", err)
	}
	return moved, nil
}

// DeleteFolder removes a named folder together with its files
func (s *mediaService) DeleteFolder(ctx context.Context, folder string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder = normalizeFolder(folder)
	if folder == "" {
		return 0, s.record("media", "delete_folder",
			models.NewFieldError(models.ErrInvalidField, "folder", "the %s folder cannot be deleted", models.RootFolder))
	}
	n, err := s.repos.Media.DeleteWhere(ctx, func(f models.MediaFile) bool { return f.Folder == folder })
	if err != nil {
		return 0, s.record("media", "delete_folder", fmt.Errorf("failed to delete folder: %w", err))
	}
	s.log.Info().Str("folder", folder).Int("files", n).Msg("Media folder deleted")
	return n, s.record("media", "delete_folder", nil)
}

func normalizeFolder(folder string) string {
	folder = strings.TrimSpace(folder)
	if folder == models.RootFolder {
		return ""
	}
	return folder
}
