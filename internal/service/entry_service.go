package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/headless-cms-admin/internal/models"
	"github.com/rs/zerolog"
)

const defaultRecentEntries = 10

// entryService is the concrete implementation of EntryService
type entryService struct {
	*deps
	log zerolog.Logger
}

// newEntryService creates a new EntryService
func newEntryService(d *deps, log zerolog.Logger) *entryService {
	return &entryService{
		deps: d,
		log:  log.With().Str("service", "entry").Logger(),
	}
}

// Create validates data against the content type and stores a new entry
func (s *entryService) Create(ctx context.Context, req models.CreateEntryRequest) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.create(ctx, req)
	return e, s.record("entry", "create", err)
}

func (s *entryService) create(ctx context.Context, req models.CreateEntryRequest) (*models.Entry, error) {
	ct, ok := s.repos.ContentTypes.Get(req.ContentTypeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrContentTypeNotFound, req.ContentTypeID)
	}

	status := req.Status
	if status == "" {
		status = models.EntryStatusDraft
	}
	if status != models.EntryStatusDraft && status != models.EntryStatusPublished {
		return nil, models.NewFieldError(models.ErrInvalidField, "status", "new entries must be draft or published, got %q", status)
	}

	if err := s.validator.ValidateEntryData(req.Data, ct.Fields, s.lookupComponent); err != nil {
		return nil, err
	}

	locale := req.Locale
	if locale == "" {
		locale = s.repos.Settings.Get().DefaultLocale
	}
	if locale == "" {
		locale = models.DefaultLocale
	}
	author := req.CreatedBy
	if author == "" {
		author = models.DefaultAuthor
	}

	now := s.now()
	e := models.Entry{
		ID:            s.newID(),
		ContentTypeID: ct.ID,
		Status:        status,
		Locale:        locale,
		Data:          models.CloneData(req.Data),
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     author,
		UpdatedBy:     author,
	}
	if e.Data == nil {
		e.Data = map[string]interface{}{}
	}
	if status == models.EntryStatusPublished {
		e.PublishedAt = &now
	}

	if err := s.insert(ctx, e); err != nil {
		return nil, err
	}
	s.log.Debug().Str("entry_id", e.ID).Str("content_type", ct.APIID).Msg("Entry created")
	return &e, nil
}

// insert stores e and bumps its content type's entry count together
func (s *entryService) insert(ctx context.Context, e models.Entry) error {
	return s.repos.Atomically(ctx, func() error {
		if err := s.repos.Entries.Insert(ctx, e); err != nil {
			return fmt.Errorf("failed to save entry: %w", err)
		}
		return s.adjustEntryCount(ctx, e.ContentTypeID, 1)
	}, s.repos.Entries, s.repos.ContentTypes)
}

func (s *entryService) adjustEntryCount(ctx context.Context, contentTypeID string, delta int) error {
	ct, ok := s.repos.ContentTypes.Get(contentTypeID)
	if !ok {
		return nil
	}
	ct.EntryCount += delta
	if ct.EntryCount < 0 {
		ct.EntryCount = 0
	}
	if err := s.repos.ContentTypes.Update(ctx, ct); err != nil {
		return fmt.Errorf("failed to update entry count: %w", err)
	}
	return nil
}

// Update applies a partial update. Changing the data of a published entry
// always leaves it modified, whatever status the update asks for.
func (s *entryService) Update(ctx context.Context, id string, upd models.EntryUpdate) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.update(ctx, id, upd)
	return e, s.record("entry", "update", err)
}

func (s *entryService) update(ctx context.Context, id string, upd models.EntryUpdate) (*models.Entry, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	wasPublished := e.Status == models.EntryStatusPublished
	now := s.now()

	if upd.Data != nil {
		if ct, ok := s.repos.ContentTypes.Get(e.ContentTypeID); ok {
			if err := s.validator.ValidateEntryData(upd.Data, ct.Fields, s.lookupComponent); err != nil {
				return nil, err
			}
		}
		e.Data = models.CloneData(upd.Data)
	}
	if upd.Locale != nil && *upd.Locale != "" {
		e.Locale = *upd.Locale
	}
	if upd.Status != nil {
		if err := s.applyStatus(&e, *upd.Status, now); err != nil {
			return nil, err
		}
	}
	if wasPublished && upd.Data != nil {
		e.Status = models.EntryStatusModified
	}
	e.UpdatedAt = now
	if upd.UpdatedBy != "" {
		e.UpdatedBy = upd.UpdatedBy
	}

	if err := s.repos.Entries.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}
	return &e, nil
}

func (s *entryService) applyStatus(e *models.Entry, status models.EntryStatus, now time.Time) error {
	if !models.ValidEntryStatuses[status] {
		return models.NewFieldError(models.ErrInvalidField, "status", "unknown status %q", status)
	}
	switch status {
	case models.EntryStatusPublished:
		publish(e, now)
	case models.EntryStatusDraft:
		unpublish(e)
	case models.EntryStatusScheduled:
		if e.ScheduledAt == nil || !e.ScheduledAt.After(now) {
			return fmt.Errorf("%w: use schedule with a future time", models.ErrInvalidSchedule)
		}
		e.Status = status
	case models.EntryStatusModified:
		e.Status = status
	}
	return nil
}

// Patch applies an RFC 7386 merge patch or an RFC 6902 JSON patch to the
// entry data and stores the result as a data update
func (s *entryService) Patch(ctx context.Context, id string, kind models.PatchKind, patch []byte) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.patch(ctx, id, kind, patch)
	return e, s.record("entry", "patch", err)
}

func (s *entryService) patch(ctx context.Context, id string, kind models.PatchKind, patch []byte) (*models.Entry, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry data: %w", err)
	}

	var patched []byte
	switch kind {
	case models.PatchMerge, "":
		patched, err = jsonpatch.MergePatch(doc, patch)
	case models.PatchJSON:
		var ops jsonpatch.Patch
		ops, err = jsonpatch.DecodePatch(patch)
		if err == nil {
			patched, err = ops.Apply(doc)
		}
	default:
		return nil, models.NewFieldError(models.ErrInvalidField, "patch", "unknown patch kind %q", kind)
	}
	if err != nil {
		return nil, models.NewFieldError(models.ErrInvalidField, "patch", "cannot apply patch: %v", err)
	}

	data := map[string]interface{}{}
	if err := json.Unmarshal(patched, &data); err != nil {
		return nil, models.NewFieldError(models.ErrFieldTypeMismatch, "data", "patched data must be an object")
	}
	return s.update(ctx, id, models.EntryUpdate{Data: data})
}

// Delete removes an entry and decrements its content type's entry count
func (s *entryService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.record("entry", "delete", s.delete(ctx, id))
}

func (s *entryService) delete(ctx context.Context, id string) error {
	e, err := s.get(id)
	if err != nil {
		return err
	}
	return s.repos.Atomically(ctx, func() error {
		if err := s.repos.Entries.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		return s.adjustEntryCount(ctx, e.ContentTypeID, -1)
	}, s.repos.Entries, s.repos.ContentTypes)
}

func (s *entryService) Get(ctx context.Context, id string) (*models.Entry, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *entryService) get(id string) (models.Entry, error) {
	e, ok := s.repos.Entries.Get(id)
	if !ok {
		return e, fmt.Errorf("%w: %s", models.ErrEntryNotFound, id)
	}
	return e, nil
}

// Duplicate copies an entry into a new draft. A missing source yields nil
// without an error.
func (s *entryService) Duplicate(ctx context.Context, id string) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.repos.Entries.Get(id)
	if !ok {
		return nil, nil
	}

	now := s.now()
	e := models.Entry{
		ID:            s.newID(),
		ContentTypeID: src.ContentTypeID,
		Status:        models.EntryStatusDraft,
		Locale:        src.Locale,
		Data:          models.CloneData(src.Data),
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     models.DefaultAuthor,
		UpdatedBy:     models.DefaultAuthor,
	}
	if err := s.insert(ctx, e); err != nil {
		return nil, s.record("entry", "duplicate", err)
	}
	s.record("entry", "duplicate", nil)
	return &e, nil
}

// Publish marks an entry published now. Publishing twice keeps it published.
func (s *entryService) Publish(ctx context.Context, id string) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.transition(ctx, id, func(e *models.Entry, now time.Time) error {
		publish(e, now)
		return nil
	})
	return e, s.record("entry", "publish", err)
}

func (s *entryService) Unpublish(ctx context.Context, id string) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.transition(ctx, id, func(e *models.Entry, _ time.Time) error {
		unpublish(e)
		return nil
	})
	return e, s.record("entry", "unpublish", err)
}

// Schedule marks an entry for publication at a future time
func (s *entryService) Schedule(ctx context.Context, id string, at time.Time) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.transition(ctx, id, func(e *models.Entry, now time.Time) error {
		if !at.After(now) {
			return fmt.Errorf("%w: %s is not after %s", models.ErrInvalidSchedule, at.Format(time.RFC3339), now.Format(time.RFC3339))
		}
		e.Status = models.EntryStatusScheduled
		t := at
		e.ScheduledAt = &t
		return nil
	})
	return e, s.record("entry", "schedule", err)
}

func (s *entryService) transition(ctx context.Context, id string, fn func(*models.Entry, time.Time) error) (*models.Entry, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := fn(&e, now); err != nil {
		return nil, err
	}
	e.UpdatedAt = now
	if err := s.repos.Entries.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}
	return &e, nil
}

func publish(e *models.Entry, now time.Time) {
	e.Status = models.EntryStatusPublished
	t := now
	e.PublishedAt = &t
	e.ScheduledAt = nil
}

func unpublish(e *models.Entry) {
	e.Status = models.EntryStatusDraft
	e.PublishedAt = nil
}

// List returns the entries matching filter, ordered by sort
func (s *entryService) List(ctx context.Context, filter models.EntryFilter, order models.EntrySort) []models.Entry {
	q := strings.ToLower(strings.TrimSpace(filter.Search))
	out := s.repos.Entries.Filter(func(e models.Entry) bool {
		if filter.ContentTypeID != "" && e.ContentTypeID != filter.ContentTypeID {
			return false
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, e.Status) {
			return false
		}
		if len(filter.Locales) > 0 && !containsString(filter.Locales, e.Locale) {
			return false
		}
		if filter.DateFrom != nil && e.UpdatedAt.Before(*filter.DateFrom) {
			return false
		}
		if filter.DateTo != nil && e.UpdatedAt.After(*filter.DateTo) {
			return false
		}
		if q != "" {
			raw, err := json.Marshal(e.Data)
			if err != nil || !strings.Contains(strings.ToLower(string(raw)), q) {
				return false
			}
		}
		return true
	})
	if out == nil {
		out = []models.Entry{}
	}
	sortEntries(out, order)
	return out
}

func sortEntries(entries []models.Entry, order models.EntrySort) {
	if order.Field == "" {
		order.Field = models.DefaultEntrySort.Field
	}
	desc := order.Direction != models.SortAsc

	key := func(e models.Entry) time.Time { return e.UpdatedAt }
	switch order.Field {
	case "createdAt":
		key = func(e models.Entry) time.Time { return e.CreatedAt }
	case "publishedAt":
		key = func(e models.Entry) time.Time {
			if e.PublishedAt == nil {
				return time.Time{}
			}
			return *e.PublishedAt
		}
	case "status":
		sort.SliceStable(entries, func(i, j int) bool {
			if desc {
				return entries[i].Status > entries[j].Status
			}
			return entries[i].Status < entries[j].Status
		})
		return
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return key(entries[i]).After(key(entries[j]))
		}
		return key(entries[i]).Before(key(entries[j]))
	})
}

func (s *entryService) ByContentType(ctx context.Context, contentTypeID string) []models.Entry {
	return s.repos.Entries.Filter(func(e models.Entry) bool { return e.ContentTypeID == contentTypeID })
}

func (s *entryService) ByStatus(ctx context.Context, status models.EntryStatus) []models.Entry {
	return s.repos.Entries.Filter(func(e models.Entry) bool { return e.Status == status })
}

func (s *entryService) ByLocale(ctx context.Context, locale string) []models.Entry {
	return s.repos.Entries.Filter(func(e models.Entry) bool { return e.Locale == locale })
}

// Recent returns the last limit entries by update time, 10 when limit <= 0
func (s *entryService) Recent(ctx context.Context, limit int) []models.Entry {
	if limit <= 0 {
		limit = defaultRecentEntries
	}
	all := s.repos.Entries.List()
	sortEntries(all, models.DefaultEntrySort)
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func (s *entryService) Count(ctx context.Context, contentTypeID string) int {
	return len(s.ByContentType(ctx, contentTypeID))
}

func (s *entryService) Stats(ctx context.Context) models.EntryStats {
	var stats models.EntryStats
	for _, e := range s.repos.Entries.List() {
		stats.Total++
		switch e.Status {
		case models.EntryStatusDraft:
			stats.Draft++
		case models.EntryStatusPublished:
			stats.Published++
		case models.EntryStatusModified:
			stats.Modified++
		case models.EntryStatusScheduled:
			stats.Scheduled++
		}
	}
	return stats
}

func containsStatus(list []models.EntryStatus, s models.EntryStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
