package service_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/headless-cms-admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestMedia_IngestImage(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	data := pngBytes(t, 64, 48)
	file, err := h.services.Media.Ingest(ctx, models.Upload{
		Filename: "hero.png",
		MimeType: "image/png",
		Size:     int64(len(data)),
		Alt:      "Hero",
		Folder:   "banners",
	}, data)
	require.NoError(t, err)

	assert.Equal(t, "hero.png", file.Name)
	assert.Equal(t, "image/png", file.MimeType)
	require.NotNil(t, file.Width)
	require.NotNil(t, file.Height)
	assert.Equal(t, 64, *file.Width)
	assert.Equal(t, 48, *file.Height)
	assert.Equal(t, "/api/media/"+file.Filename, file.URL)
	assert.Contains(t, file.Filename, "hero.png")
	assert.Equal(t, testStart, file.CreatedAt)

	got, err := h.services.Media.Get(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.URL, got.URL)
}

func TestMedia_IngestLimits(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	_, err := h.services.Media.Ingest(ctx, models.Upload{
		Filename: "huge.png",
		MimeType: "image/png",
		Size:     h.cfg.Media.MaxFileSize + 1,
	}, nil)
	assert.ErrorIs(t, err, models.ErrFileTooLarge)
	assert.Contains(t, err.Error(), "10 MiB")

	_, err = h.services.Media.Ingest(ctx, models.Upload{
		Filename: "tool.exe",
		MimeType: "application/x-msdownload",
		Size:     10,
	}, []byte("MZ........"))
	assert.ErrorIs(t, err, models.ErrInvalidFileType)

	// declared as an image but the bytes are text
	_, err = h.services.Media.Ingest(ctx, models.Upload{
		Filename: "fake.png",
		MimeType: "image/png",
	}, []byte("just some plain text"))
	assert.ErrorIs(t, err, models.ErrInvalidFileType)

	doc, err := h.services.Media.Ingest(ctx, models.Upload{
		Filename: "notes.txt",
		MimeType: "text/plain; charset=utf-8",
	}, []byte("just some plain text"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", doc.MimeType)
	assert.Nil(t, doc.Width)

	assert.Len(t, h.services.Media.List(ctx), 1)
}

func TestMedia_Replace(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	original, err := h.services.Media.Ingest(ctx, models.Upload{Filename: "a.png", MimeType: "image/png", Alt: "A", Folder: "banners"}, pngBytes(t, 10, 10))
	require.NoError(t, err)

	h.clock.Advance(time.Second)
	replaced, err := h.services.Media.Replace(ctx, original.ID, models.Upload{Filename: "b.png", MimeType: "image/png"}, pngBytes(t, 20, 30))
	require.NoError(t, err)
	assert.Equal(t, original.ID, replaced.ID)
	assert.Equal(t, original.CreatedAt, replaced.CreatedAt)
	assert.Equal(t, "b.png", replaced.Name)
	assert.Equal(t, "A", replaced.Alt)
	assert.Equal(t, "banners", replaced.Folder)
	assert.Equal(t, 30, *replaced.Height)

	_, err = h.services.Media.Replace(ctx, "missing", models.Upload{Filename: "b.png", MimeType: "image/png"}, pngBytes(t, 1, 1))
	assert.ErrorIs(t, err, models.ErrMediaNotFound)
}

func TestMedia_AddRequiresFields(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	_, err := h.services.Media.Add(ctx, models.MediaFile{Name: "x"})
	assert.ErrorIs(t, err, models.ErrRequiredField)

	f, err := h.services.Media.Add(ctx, models.MediaFile{
		Name: "report", Filename: "report.pdf", MimeType: "application/pdf", Size: 2048, Folder: models.RootFolder,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Empty(t, f.Folder)
}

func TestMedia_QueriesAndFolders(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	add := func(name, mime, folder, caption string, size int64) *models.MediaFile {
		f, err := h.services.Media.Add(ctx, models.MediaFile{
			Name: name, Filename: name, MimeType: mime, Folder: folder, Caption: caption, Size: size,
		})
		require.NoError(t, err)
		h.clock.Advance(time.Second)
		return f
	}
	logo := add("logo.png", "image/png", "brand", "Company logo", 1024)
	intro := add("intro.mp4", "video/mp4", "", "", 4096)
	add("terms.pdf", "application/pdf", "legal", "Terms of service", 1024)

	assert.Len(t, h.services.Media.ByType(ctx, models.MediaTypeImage), 1)
	assert.Len(t, h.services.Media.ByType(ctx, models.MediaTypeVideo), 1)
	assert.Len(t, h.services.Media.ByType(ctx, models.MediaTypeDocument), 1)
	assert.Len(t, h.services.Media.ByType(ctx, models.MediaTypeAll), 3)

	root := h.services.Media.ByFolder(ctx, models.RootFolder)
	require.Len(t, root, 1)
	assert.Equal(t, intro.ID, root[0].ID)

	recent := h.services.Media.Recent(ctx, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "terms.pdf", recent[0].Name)

	found := h.services.Media.Search(ctx, "LOGO")
	require.Len(t, found, 1)
	assert.Equal(t, logo.ID, found[0].ID)

	stats := h.services.Media.Stats(ctx)
	assert.Equal(t, 3, stats.TotalFiles)
	assert.Equal(t, int64(6144), stats.TotalSize)
	assert.Equal(t, int64(2048), stats.AverageSize)
	assert.Equal(t, "6.0 KiB", stats.TotalSizeHuman)
	assert.Equal(t, map[string]int{"image": 1, "video": 1, "document": 1}, stats.ByType)
	assert.Equal(t, map[string]int{"brand": 1, models.RootFolder: 1, "legal": 1}, stats.ByFolder)

	assert.Equal(t, []string{"brand", "legal"}, h.services.Media.Folders(ctx))

	moved, err := h.services.Media.MoveToFolder(ctx, []string{logo.ID, intro.ID}, "legal")
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assert.Equal(t, []string{"legal"}, h.services.Media.Folders(ctx))

	_, err = h.services.Media.MoveToFolder(ctx, []string{logo.ID, "missing"}, "brand")
	assert.ErrorIs(t, err, models.ErrMediaNotFound)
	assert.Equal(t, []string{"legal"}, h.services.Media.Folders(ctx))

	deleted, err := h.services.Media.DeleteFolder(ctx, "legal")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Empty(t, h.services.Media.List(ctx))

	_, err = h.services.Media.DeleteFolder(ctx, models.RootFolder)
	assert.ErrorIs(t, err, models.ErrInvalidField)
}

func TestMedia_UpdateAndDelete(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	f, err := h.services.Media.Add(ctx, models.MediaFile{Name: "a", Filename: "a.pdf", MimeType: "application/pdf"})
	require.NoError(t, err)

	alt := "Alt text"
	updated, err := h.services.Media.Update(ctx, f.ID, models.MediaUpdate{Alt: &alt})
	require.NoError(t, err)
	assert.Equal(t, "Alt text", updated.Alt)
	assert.Equal(t, "a", updated.Name)

	empty := ""
	_, err = h.services.Media.Update(ctx, f.ID, models.MediaUpdate{Name: &empty})
	assert.ErrorIs(t, err, models.ErrRequiredField)

	require.NoError(t, h.services.Media.Delete(ctx, f.ID))
	assert.ErrorIs(t, h.services.Media.Delete(ctx, f.ID), models.ErrMediaNotFound)
}
