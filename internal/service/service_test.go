package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/headless-cms-admin/internal/config"
	"github.com/headless-cms-admin/internal/kvstore"
	"github.com/headless-cms-admin/internal/mocks"
	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/repository"
	"github.com/headless-cms-admin/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type testHarness struct {
	services *service.Services
	repos    *repository.Repositories
	store    *mocks.MockStore
	clock    *mocks.Clock
	cfg      *config.Config
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	store := mocks.NewMockStore()
	repos := repository.New(store, zerolog.Nop())
	require.NoError(t, repos.Load(context.Background()))

	cfg := config.Default()
	cfg.Settings.SaveDelay = 0
	clock := mocks.NewClock(testStart)

	services := service.NewServices(repos, cfg, zerolog.Nop(), service.WithClock(clock.Now))
	return &testHarness{
		services: services,
		repos:    repos,
		store:    store,
		clock:    clock,
		cfg:      cfg,
	}
}

func textField(name string, required bool) models.FieldDefinition {
	return models.FieldDefinition{Name: name, Type: models.FieldTypeText, Required: required}
}

func componentField(name, componentID string) models.FieldDefinition {
	return models.FieldDefinition{
		Name:        name,
		Type:        models.FieldTypeComponent,
		Constraints: models.ComponentConstraints{ComponentID: componentID},
	}
}

func (h *testHarness) component(t *testing.T, name string, fields ...models.FieldDefinition) *models.Component {
	t.Helper()
	ctx := context.Background()
	c, err := h.services.Components.Create(ctx, models.ComponentInput{Name: name, DisplayName: name, Category: "Content"})
	require.NoError(t, err)
	for _, f := range fields {
		c, err = h.services.Components.AddField(ctx, c.ID, f)
		require.NoError(t, err)
	}
	return c
}

func (h *testHarness) contentType(t *testing.T, name string, fields ...models.FieldDefinition) *models.ContentType {
	t.Helper()
	ctx := context.Background()
	ct, err := h.services.ContentTypes.Create(ctx, models.ContentTypeInput{Name: name, DisplayName: name})
	require.NoError(t, err)
	for _, f := range fields {
		ct, err = h.services.ContentTypes.AddField(ctx, ct.ID, f)
		require.NoError(t, err)
	}
	return ct
}

func fieldNames(fields []models.FieldDefinition) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func TestScenarioA_ComponentUsageTracked(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	seo := h.component(t, "seo",
		textField("metaTitle", false),
		models.FieldDefinition{Name: "metaDescription", Type: models.FieldTypeLongText},
	)
	article, err := h.services.ContentTypes.Create(ctx, models.ContentTypeInput{
		Name: "article", DisplayName: "Article", Kind: models.ContentTypeCollection,
	})
	require.NoError(t, err)
	_, err = h.services.ContentTypes.AddField(ctx, article.ID, componentField("seo", seo.ID))
	require.NoError(t, err)

	count, err := h.services.Components.UsageCount(ctx, seo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	usedIn, err := h.services.Components.UsedIn(ctx, seo.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{article.ID}, usedIn)

	types, err := h.services.Components.ContentTypesUsing(ctx, seo.ID)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "article", types[0].APIID)
}

func TestScenarioB_SelfReferenceRejected(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	a := h.component(t, "A", textField("title", false))

	_, err := h.services.Components.AddField(ctx, a.ID, componentField("self", a.ID))
	assert.ErrorIs(t, err, models.ErrCircularDependency)

	got, err := h.services.Components.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, fieldNames(got.Fields))
}

func TestScenarioC_MutualReferenceRejected(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	x := h.component(t, "X")
	y := h.component(t, "Y")

	_, err := h.services.Components.AddField(ctx, x.ID, componentField("y", y.ID))
	require.NoError(t, err)

	_, err = h.services.Components.AddField(ctx, y.ID, componentField("x", x.ID))
	assert.ErrorIs(t, err, models.ErrCircularDependency)

	got, err := h.services.Components.Get(ctx, y.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Fields)
}

func TestComponentCycle_Transitive(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	c := h.component(t, "C")
	b := h.component(t, "B", componentField("c", c.ID))
	a := h.component(t, "A", componentField("b", b.ID))

	_, err := h.services.Components.AddField(ctx, c.ID, componentField("a", a.ID))
	assert.ErrorIs(t, err, models.ErrCircularDependency)

	zone := models.FieldDefinition{
		Name:        "blocks",
		Type:        models.FieldTypeDynamicZone,
		Constraints: models.DynamicZoneConstraints{AllowedComponents: []string{a.ID}},
	}
	_, err = h.services.Components.AddField(ctx, c.ID, zone)
	assert.ErrorIs(t, err, models.ErrCircularDependency)
}

func TestComponentDelete_InUse(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	seo := h.component(t, "seo", textField("metaTitle", false))
	page := h.contentType(t, "page", componentField("seo", seo.ID))

	err := h.services.Components.Delete(ctx, seo.ID)
	assert.ErrorIs(t, err, models.ErrInUse)
	_, err = h.services.Components.Get(ctx, seo.ID)
	assert.NoError(t, err)

	_, err = h.services.ContentTypes.RemoveField(ctx, page.ID, "seo")
	require.NoError(t, err)

	require.NoError(t, h.services.Components.Delete(ctx, seo.ID))
	_, err = h.services.Components.Get(ctx, seo.ID)
	assert.ErrorIs(t, err, models.ErrComponentNotFound)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestComponentDelete_ReleasesNestedUsage(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	link := h.component(t, "link", textField("href", true))
	nav := h.component(t, "nav", componentField("primary", link.ID))

	count, _ := h.services.Components.UsageCount(ctx, link.ID)
	require.Equal(t, 1, count)

	require.NoError(t, h.services.Components.Delete(ctx, nav.ID))

	count, _ = h.services.Components.UsageCount(ctx, link.ID)
	assert.Equal(t, 0, count)
	usedIn, _ := h.services.Components.UsedIn(ctx, link.ID)
	assert.Empty(t, usedIn)
}

func TestRemoveField_UsageSymmetry(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	seo := h.component(t, "seo", textField("metaTitle", false))
	article := h.contentType(t, "article",
		componentField("seo", seo.ID),
		componentField("seoFallback", seo.ID),
	)

	// one owner counts once however many fields point at the component
	count, _ := h.services.Components.UsageCount(ctx, seo.ID)
	assert.Equal(t, 1, count)

	_, err := h.services.ContentTypes.RemoveField(ctx, article.ID, "seo")
	require.NoError(t, err)
	count, _ = h.services.Components.UsageCount(ctx, seo.ID)
	assert.Equal(t, 1, count, "the second field still references seo")

	_, err = h.services.ContentTypes.RemoveField(ctx, article.ID, "seoFallback")
	require.NoError(t, err)
	count, _ = h.services.Components.UsageCount(ctx, seo.ID)
	assert.Equal(t, 0, count)
	usedIn, _ := h.services.Components.UsedIn(ctx, seo.ID)
	assert.Empty(t, usedIn)

	_, err = h.services.ContentTypes.RemoveField(ctx, article.ID, "seo")
	assert.ErrorIs(t, err, models.ErrFieldNotFound)
}

func TestUpdateField_MovesUsage(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	seo := h.component(t, "seo", textField("metaTitle", false))
	hero := h.component(t, "hero", textField("headline", false))
	page := h.contentType(t, "page", componentField("header", seo.ID))

	updated, err := h.services.ContentTypes.UpdateField(ctx, page.ID, "header", componentField("header", hero.ID))
	require.NoError(t, err)
	assert.Equal(t, hero.ID, updated.Fields[0].ComponentRef())

	seoCount, _ := h.services.Components.UsageCount(ctx, seo.ID)
	heroCount, _ := h.services.Components.UsageCount(ctx, hero.ID)
	assert.Equal(t, 0, seoCount)
	assert.Equal(t, 1, heroCount)

	_, err = h.services.ContentTypes.UpdateField(ctx, page.ID, "missing", textField("missing", false))
	assert.ErrorIs(t, err, models.ErrFieldNotFound)
}

func TestUpdateField_RenameConflict(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	page := h.contentType(t, "page", textField("title", true), textField("subtitle", false))

	_, err := h.services.ContentTypes.UpdateField(ctx, page.ID, "subtitle", textField("title", false))
	assert.ErrorIs(t, err, models.ErrDuplicateName)

	updated, err := h.services.ContentTypes.UpdateField(ctx, page.ID, "subtitle", textField("tagline", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "tagline"}, fieldNames(updated.Fields))
}

func TestAddField_Duplicate(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	page := h.contentType(t, "page", textField("title", true))
	_, err := h.services.ContentTypes.AddField(ctx, page.ID, textField("title", false))
	assert.ErrorIs(t, err, models.ErrDuplicateName)

	_, err = h.services.ContentTypes.AddField(ctx, "nope", textField("title", false))
	assert.ErrorIs(t, err, models.ErrContentTypeNotFound)
}

func TestReorderFields(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	page := h.contentType(t, "page", textField("a", false), textField("b", false), textField("c", false))

	updated, err := h.services.ContentTypes.ReorderFields(ctx, page.ID, []string{"c", "ghost", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, fieldNames(updated.Fields))
}

func TestContentType_APIIDUnique(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	first, err := h.services.ContentTypes.Create(ctx, models.ContentTypeInput{Name: "blogPost", DisplayName: "Blog Post"})
	require.NoError(t, err)
	assert.Equal(t, "blog-post", first.APIID)
	assert.True(t, first.DraftAndPublish)
	assert.False(t, first.I18n)
	assert.Equal(t, models.ContentTypeCollection, first.Kind)

	_, err = h.services.ContentTypes.Create(ctx, models.ContentTypeInput{Name: "otherPost", DisplayName: "Blog  Post!"})
	assert.ErrorIs(t, err, models.ErrDuplicateName)

	_, err = h.services.ContentTypes.Create(ctx, models.ContentTypeInput{Name: "blogPost", DisplayName: "Another"})
	assert.ErrorIs(t, err, models.ErrDuplicateName)

	second, err := h.services.ContentTypes.Create(ctx, models.ContentTypeInput{Name: "news", DisplayName: "News"})
	require.NoError(t, err)
	_, err = h.services.ContentTypes.Update(ctx, second.ID, models.ContentTypeInput{APIID: models.StringPtr("blog-post")})
	assert.ErrorIs(t, err, models.ErrDuplicateName)

	seen := make(map[string]bool)
	for _, ct := range h.services.ContentTypes.List(ctx) {
		assert.False(t, seen[ct.APIID], "duplicate apiId %s", ct.APIID)
		seen[ct.APIID] = true
	}
}

func TestContentType_UpdateRegeneratesBlankAPIID(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	ct, err := h.services.ContentTypes.Create(ctx, models.ContentTypeInput{Name: "news", DisplayName: "News"})
	require.NoError(t, err)

	updated, err := h.services.ContentTypes.Update(ctx, ct.ID, models.ContentTypeInput{DisplayName: "Press Releases"})
	require.NoError(t, err)
	assert.Equal(t, "news", updated.APIID, "absent apiId is kept")

	updated, err = h.services.ContentTypes.Update(ctx, ct.ID, models.ContentTypeInput{APIID: models.StringPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "press-releases", updated.APIID)

	_, err = h.services.ContentTypes.Update(ctx, ct.ID, models.ContentTypeInput{APIID: models.StringPtr("Bad ID")})
	var fe *models.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "apiId", fe.Field)
}

func TestContentTypeDelete_InUseAndRelease(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	seo := h.component(t, "seo", textField("metaTitle", false))
	article := h.contentType(t, "article", textField("title", true), componentField("seo", seo.ID))

	entry, err := h.services.Entries.Create(ctx, models.CreateEntryRequest{
		ContentTypeID: article.ID,
		Data:          map[string]interface{}{"title": "Hello"},
	})
	require.NoError(t, err)

	err = h.services.ContentTypes.Delete(ctx, article.ID)
	assert.ErrorIs(t, err, models.ErrInUse)

	require.NoError(t, h.services.Entries.Delete(ctx, entry.ID))
	require.NoError(t, h.services.ContentTypes.Delete(ctx, article.ID))

	count, _ := h.services.Components.UsageCount(ctx, seo.ID)
	assert.Equal(t, 0, count)
}

func TestComponent_NameUniqueAndIdentifier(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	h.component(t, "seo")
	_, err := h.services.Components.Create(ctx, models.ComponentInput{Name: "seo"})
	assert.ErrorIs(t, err, models.ErrDuplicateName)

	_, err = h.services.Components.Create(ctx, models.ComponentInput{Name: "1bad"})
	assert.ErrorIs(t, err, models.ErrInvalidField)

	c, err := h.services.Components.Create(ctx, models.ComponentInput{Name: "quote", IsRepeatable: models.BoolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "quote", c.DisplayName)
	assert.Equal(t, "Custom", c.Category)
	assert.True(t, c.IsRepeatable)

	updated, err := h.services.Components.Update(ctx, c.ID, models.ComponentInput{Description: "Pull quote"})
	require.NoError(t, err)
	assert.True(t, updated.IsRepeatable, "absent flag is kept")
	assert.Equal(t, "Pull quote", updated.Description)
}

func TestComponent_StatsSearchCategories(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	seo := h.component(t, "seo", textField("metaTitle", false), textField("metaKeywords", false))
	quote, err := h.services.Components.Create(ctx, models.ComponentInput{
		Name: "quote", DisplayName: "Pull Quote", Category: "Layout", IsRepeatable: models.BoolPtr(true),
	})
	require.NoError(t, err)
	h.contentType(t, "article", componentField("seo", seo.ID))

	stats := h.services.Components.Stats(ctx)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Repeatable)
	assert.Equal(t, 1, stats.SingleUse)
	assert.Equal(t, 2, stats.TotalFields)
	assert.InDelta(t, 1.0, stats.AverageFields, 0.001)
	require.Len(t, stats.MostUsed, 1)
	assert.Equal(t, seo.ID, stats.MostUsed[0].ID)
	assert.Equal(t, map[string]int{"Content": 1, "Layout": 1}, stats.Categories)

	assert.Equal(t, []string{"Content", "Layout"}, h.services.Components.Categories(ctx))

	found := h.services.Components.Search(ctx, "PULL")
	require.Len(t, found, 1)
	assert.Equal(t, quote.ID, found[0].ID)
	assert.Len(t, h.services.Components.ByCategory(ctx, "Layout"), 1)
}

func TestComponent_ExportImport(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	link := h.component(t, "link", textField("href", true))
	card := h.component(t, "card", textField("title", true), componentField("cta", link.ID))

	data, err := h.services.Components.Export(ctx, card.ID)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "1.0.0"`)

	_, err = h.services.Components.Import(ctx, data)
	assert.ErrorIs(t, err, models.ErrDuplicateName)

	require.NoError(t, h.services.Components.Delete(ctx, card.ID))
	imported, err := h.services.Components.Import(ctx, data)
	require.NoError(t, err)
	assert.NotEqual(t, card.ID, imported.ID)
	assert.Equal(t, []string{"title", "cta"}, fieldNames(imported.Fields))
	assert.Zero(t, imported.UsageCount)

	usedIn, _ := h.services.Components.UsedIn(ctx, link.ID)
	assert.Equal(t, []string{imported.ID}, usedIn)

	_, err = h.services.Components.Import(ctx, []byte(`{"name":"x","category":"Layout"}`))
	assert.ErrorIs(t, err, models.ErrRequiredField)
}

func TestAddField_RollsBackOnPersistFailure(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	seo := h.component(t, "seo", textField("metaTitle", false))
	article := h.contentType(t, "article", textField("title", true))

	// the owner write lands, the usage write fails
	h.store.FailOn(kvstore.KeyComponents, errors.New("disk full"))
	_, err := h.services.ContentTypes.AddField(ctx, article.ID, componentField("seo", seo.ID))
	require.Error(t, err)
	h.store.Heal()

	got, err := h.services.ContentTypes.Get(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, fieldNames(got.Fields))
	count, _ := h.services.Components.UsageCount(ctx, seo.ID)
	assert.Equal(t, 0, count)

	// the rolled back state is what a fresh load sees
	reloaded := repository.New(h.store, zerolog.Nop())
	require.NoError(t, reloaded.Load(ctx))
	ct, ok := reloaded.ContentTypes.Get(article.ID)
	require.True(t, ok)
	assert.Len(t, ct.Fields, 1)
}

func TestNewServices_Independent(t *testing.T) {
	a := newTestHarness(t)
	b := newTestHarness(t)

	a.component(t, "seo")
	assert.Len(t, a.services.Components.List(context.Background()), 1)
	assert.Empty(t, b.services.Components.List(context.Background()))
}
