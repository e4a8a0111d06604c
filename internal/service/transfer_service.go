package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/repository"
	"github.com/rs/zerolog"
)

// Entry stream formats
const (
	FormatNDJSON = "ndjson"
	FormatJSON   = "json"
	FormatCSV    = "csv"
)

const flushEvery = 100

// entryLine is one record of an NDJSON entry import
type entryLine struct {
	Data   map[string]interface{} `json:"data"`
	Status models.EntryStatus     `json:"status,omitempty"`
	Locale string                 `json:"locale,omitempty"`
}

// transferService is the concrete implementation of TransferService
type transferService struct {
	*deps
	entries *entryService
	log     zerolog.Logger
}

// newTransferService creates a new TransferService
func newTransferService(d *deps, entries *entryService, log zerolog.Logger) *transferService {
	return &transferService{
		deps:    d,
		entries: entries,
		log:     log.With().Str("service", "transfer").Logger(),
	}
}

// Export captures the whole site as a bundle
func (s *transferService) Export(ctx context.Context) (*models.ExportBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, s.record("transfer", "export", err)
	}
	bundle := &models.ExportBundle{
		ContentTypes: s.repos.ContentTypes.List(),
		Components:   s.repos.Components.List(),
		Entries:      s.repos.Entries.List(),
		MediaFiles:   s.repos.Media.List(),
		Settings:     s.repos.Settings.Get(),
		Version:      models.ExportVersion,
		ExportedAt:   s.now(),
	}
	s.log.Info().
		Int("content_types", len(bundle.ContentTypes)).
		Int("components", len(bundle.Components)).
		Int("entries", len(bundle.Entries)).
		Int("media_files", len(bundle.MediaFiles)).
		Msg("Bundle exported")
	return bundle, s.record("transfer", "export", nil)
}

// Import replaces the schema, entries, media and settings with the bundle's.
// A collection that is absent or null in the bundle is left as it is; an
// empty list clears it. Either every present collection is replaced or none is.
func (s *transferService) Import(ctx context.Context, bundle *models.ExportBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.record("transfer", "import", s.importBundle(ctx, bundle))
}

func (s *transferService) importBundle(ctx context.Context, bundle *models.ExportBundle) error {
	if bundle == nil {
		return models.NewFieldError(models.ErrRequiredField, "bundle", "bundle is required")
	}
	if major, _, _ := strings.Cut(bundle.Version, "."); major != "1" {
		return models.NewFieldError(models.ErrInvalidField, "version", "unsupported bundle version %q", bundle.Version)
	}
	if err := checkUniqueIDs("contentTypes", bundle.ContentTypes); err != nil {
		return err
	}
	if err := checkUniqueIDs("components", bundle.Components); err != nil {
		return err
	}
	if err := checkUniqueIDs("entries", bundle.Entries); err != nil {
		return err
	}
	if err := checkUniqueIDs("mediaFiles", bundle.MediaFiles); err != nil {
		return err
	}

	// nil means the bundle left the collection out
	components := bundle.Components
	if components == nil {
		components = s.repos.Components.List()
	}
	types := bundle.ContentTypes
	if types == nil {
		types = s.repos.ContentTypes.List()
	}
	if err := checkSchema(components, types); err != nil {
		return err
	}

	settings := bundle.Settings
	replaceSettings := len(settings.Locales) > 0
	if replaceSettings {
		if err := normalizeSettings(&settings); err != nil {
			return err
		}
	}

	err := s.repos.Atomically(ctx, func() error {
		if bundle.Components != nil {
			if err := s.repos.Components.ReplaceAll(ctx, bundle.Components); err != nil {
				return fmt.Errorf("failed to import components: %w", err)
			}
		}
		if bundle.ContentTypes != nil {
			if err := s.repos.ContentTypes.ReplaceAll(ctx, bundle.ContentTypes); err != nil {
				return fmt.Errorf("failed to import content types: %w", err)
			}
		}
		if bundle.Entries != nil {
			if err := s.repos.Entries.ReplaceAll(ctx, bundle.Entries); err != nil {
				return fmt.Errorf("failed to import entries: %w", err)
			}
		}
		if bundle.MediaFiles != nil {
			if err := s.repos.Media.ReplaceAll(ctx, bundle.MediaFiles); err != nil {
				return fmt.Errorf("failed to import media files: %w", err)
			}
		}
		if replaceSettings {
			if err := s.repos.Settings.Set(ctx, settings); err != nil {
				return fmt.Errorf("failed to import settings: %w", err)
			}
		}
		return nil
	}, s.repos.Components, s.repos.ContentTypes, s.repos.Entries, s.repos.Media, s.repos.Settings)
	if err != nil {
		return err
	}

	s.log.Info().
		Str("version", bundle.Version).
		Bool("components", bundle.Components != nil).
		Bool("content_types", bundle.ContentTypes != nil).
		Bool("entries", bundle.Entries != nil).
		Bool("media_files", bundle.MediaFiles != nil).
		Bool("settings", replaceSettings).
		Int("entry_count", len(bundle.Entries)).
		Msg("Bundle imported")
	return nil
}

// checkSchema applies the registry invariants to the schema an import would
// leave behind: unique component names, unique content type names and apiIds,
// and component references that resolve. Existing cycles are tolerated.
func checkSchema(components []models.Component, types []models.ContentType) error {
	ids := make(map[string]bool, len(components))
	names := make(map[string]bool, len(components))
	for _, c := range components {
		if names[c.Name] {
			return models.NewFieldError(models.ErrDuplicateName, "components",
				"component name %q is used twice", c.Name)
		}
		names[c.Name] = true
		ids[c.ID] = true
	}

	typeNames := make(map[string]bool, len(types))
	apiIDs := make(map[string]bool, len(types))
	for _, t := range types {
		if typeNames[t.Name] {
			return models.NewFieldError(models.ErrDuplicateName, "contentTypes",
				"content type name %q is used twice", t.Name)
		}
		typeNames[t.Name] = true
		if apiIDs[t.APIID] {
			return models.NewFieldError(models.ErrDuplicateName, "contentTypes",
				"apiId %q is used twice", t.APIID)
		}
		apiIDs[t.APIID] = true
	}

	for _, c := range components {
		if err := checkReferences(c.Name, c.Fields, ids); err != nil {
			return err
		}
	}
	for _, t := range types {
		if err := checkReferences(t.Name, t.Fields, ids); err != nil {
			return err
		}
	}
	return nil
}

func checkReferences(owner string, fields []models.FieldDefinition, ids map[string]bool) error {
	for _, f := range fields {
		for _, ref := range f.ReferencedComponents() {
			if !ids[ref] {
				return models.NewFieldError(models.ErrComponentNotFound, owner+"."+f.Name,
					"%s.%s references unknown component %s", owner, f.Name, ref)
			}
		}
	}
	return nil
}

func checkUniqueIDs[T repository.Entity[T]](collection string, items []T) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		id := item.GetID()
		if id == "" {
			return models.NewFieldError(models.ErrRequiredField, collection, "%s contains a record without id", collection)
		}
		if seen[id] {
			return models.NewFieldError(models.ErrDuplicateName, collection, "%s contains id %s twice", collection, id)
		}
		seen[id] = true
	}
	return nil
}

// Reconcile recomputes component usage from the schema and entry counts from
// the entries, repairing counters a crash between two writes left behind
func (s *transferService) Reconcile(ctx context.Context) (*models.ReconcileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.reconcile(ctx)
	return report, s.record("transfer", "reconcile", err)
}

func (s *transferService) reconcile(ctx context.Context) (*models.ReconcileReport, error) {
	types := s.repos.ContentTypes.List()
	components := s.repos.Components.List()

	usedIn := make(map[string][]string, len(components))
	for _, t := range types {
		for _, id := range referencedComponents(t.Fields) {
			usedIn[id] = append(usedIn[id], t.ID)
		}
	}
	for _, c := range components {
		for _, id := range referencedComponents(c.Fields) {
			usedIn[id] = append(usedIn[id], c.ID)
		}
	}

	counts := make(map[string]int, len(types))
	for _, e := range s.repos.Entries.List() {
		counts[e.ContentTypeID]++
	}

	report := &models.ReconcileReport{}
	for i := range components {
		want := usedIn[components[i].ID]
		if want == nil {
			want = []string{}
		}
		if sameSet(components[i].UsedIn, want) && components[i].UsageCount == len(want) {
			continue
		}
		components[i].UsedIn = want
		components[i].UsageCount = len(want)
		report.ComponentsFixed++
	}
	for i := range types {
		if types[i].EntryCount != counts[types[i].ID] {
			types[i].EntryCount = counts[types[i].ID]
			report.ContentTypesFixed++
		}
	}
	if report.ComponentsFixed == 0 && report.ContentTypesFixed == 0 {
		return report, nil
	}

	err := s.repos.Atomically(ctx, func() error {
		if report.ComponentsFixed > 0 {
			if err := s.repos.Components.ReplaceAll(ctx, components); err != nil {
				return fmt.Errorf("failed to save components: %w", err)
			}
		}
		if report.ContentTypesFixed > 0 {
			if err := s.repos.ContentTypes.ReplaceAll(ctx, types); err != nil {
				return fmt.Errorf("failed to save content types: %w", err)
			}
		}
		return nil
	}, s.repos.Components, s.repos.ContentTypes)
	if err != nil {
		return nil, err
	}

	s.log.Warn().
		Int("components_fixed", report.ComponentsFixed).
		Int("content_types_fixed", report.ContentTypesFixed).
		Msg("Counters reconciled")
	return report, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		if !containsString(b, s) {
			return false
		}
	}
	return true
}

// StreamEntries writes the entries of a content type, or of every content
// type when contentTypeID is empty, and returns how many were written. CSV
// needs a content type to name its columns.
func (s *transferService) StreamEntries(ctx context.Context, w io.Writer, contentTypeID, format string) (int, error) {
	var ct models.ContentType
	entries := s.repos.Entries.List()
	if contentTypeID != "" {
		var ok bool
		ct, ok = s.repos.ContentTypes.Get(contentTypeID)
		if !ok {
			return 0, fmt.Errorf("%w: %s", models.ErrContentTypeNotFound, contentTypeID)
		}
		entries = s.repos.Entries.Filter(func(e models.Entry) bool { return e.ContentTypeID == contentTypeID })
	}
	sortEntries(entries, models.EntrySort{Field: "createdAt", Direction: models.SortAsc})

	s.log.Info().Str("format", format).Str("content_type_id", contentTypeID).Msg("Starting entries export")

	var (
		count int
		err   error
	)
	switch format {
	case FormatNDJSON, "":
		count, err = streamNDJSON(ctx, w, entries)
	case FormatJSON:
		count, err = streamJSON(ctx, w, entries)
	case FormatCSV:
		if contentTypeID == "" {
			return 0, models.NewFieldError(models.ErrRequiredField, "contentTypeId", "csv export needs a content type")
		}
		count, err = streamCSV(ctx, w, ct, entries)
	default:
		return 0, models.NewFieldError(models.ErrInvalidField, "format", "unsupported format: %s", format)
	}

	s.log.Info().Int("count", count).Str("format", format).Msg("Entries export completed")
	return count, err
}

func streamNDJSON(ctx context.Context, w io.Writer, entries []models.Entry) (int, error) {
	flusher, _ := w.(interface{ Flush() })
	count := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		data, err := json.Marshal(e)
		if err != nil {
			return count, err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return count, err
		}
		count++

		if count%flushEvery == 0 && flusher != nil {
			flusher.Flush()
		}
	}
	return count, nil
}

func streamJSON(ctx context.Context, w io.Writer, entries []models.Entry) (int, error) {
	if _, err := io.WriteString(w, "["); err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if count > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return count, err
			}
		}
		data, err := json.Marshal(e)
		if err != nil {
			return count, err
		}
		if _, err := w.Write(data); err != nil {
			return count, err
		}
		count++
	}
	_, err := io.WriteString(w, "]")
	return count, err
}

func streamCSV(ctx context.Context, w io.Writer, ct models.ContentType, entries []models.Entry) (int, error) {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"id", "status", "locale", "createdAt", "updatedAt", "publishedAt"}
	for _, f := range ct.Fields {
		header = append(header, f.Name)
	}
	if err := writer.Write(header); err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		published := ""
		if e.PublishedAt != nil {
			published = e.PublishedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			e.ID,
			string(e.Status),
			e.Locale,
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.UpdatedAt.UTC().Format(time.RFC3339),
			published,
		}
		for _, f := range ct.Fields {
			record = append(record, csvValue(e.Data[f.Name]))
		}
		if err := writer.Write(record); err != nil {
			return count, err
		}
		count++
	}
	writer.Flush()
	return count, writer.Error()
}

// csvValue renders scalars as text and everything else as JSON
func csvValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// ImportEntries creates one entry per NDJSON line. Lines are independent: a
// rejected line is reported and the rest still go in. Blank lines are skipped.
func (s *transferService) ImportEntries(ctx context.Context, contentTypeID string, r io.Reader) (*models.ImportResult, error) {
	if _, ok := s.repos.ContentTypes.Get(contentTypeID); !ok {
		return nil, s.record("transfer", "import_entries", fmt.Errorf("%w: %s", models.ErrContentTypeNotFound, contentTypeID))
	}

	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	result := &models.ImportResult{}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result.Total++

		if err := ctx.Err(); err != nil {
			return result, err
		}

		var rec entryLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.LineError{
				Line:    lineNum,
				Field:   "json",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		_, err := s.entries.Create(ctx, models.CreateEntryRequest{
			ContentTypeID: contentTypeID,
			Data:          rec.Data,
			Status:        rec.Status,
			Locale:        rec.Locale,
		})
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, lineError(lineNum, err))
			continue
		}
		result.Created++
	}
	if err := scanner.Err(); err != nil {
		return result, s.record("transfer", "import_entries", fmt.Errorf("failed to read entries: %w", err))
	}

	s.log.Info().
		Int("total", result.Total).
		Int("created", result.Created).
		Int("failed", result.Failed).
		Msg("Entries import completed")
	return result, s.record("transfer", "import_entries", nil)
}

func lineError(line int, err error) models.LineError {
	le := models.LineError{Line: line, Message: err.Error()}
	var fe *models.FieldError
	if errors.As(err, &fe) {
		le.Field = fe.Field
	}
	return le
}
