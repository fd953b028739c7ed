package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/photoreel/internal/metrics"
	"github.com/bdougie/photoreel/internal/models"
	"github.com/bdougie/photoreel/internal/storage"
)

type fakeDescriber struct {
	fail    map[string]bool
	prompts map[string]string
}

func (f *fakeDescriber) Describe(_ context.Context, prompt, imageURL string) (string, error) {
	name := imageURL[strings.LastIndex(imageURL, "/")+1:]
	if f.prompts == nil {
		f.prompts = map[string]string{}
	}
	f.prompts[name] = prompt
	if f.fail[name] {
		return "", errors.New("vision request: 502 Bad Gateway")
	}
	return "A photo of " + name + ".\n\nInstagram Reel Caption: **" + name + "** #travel", nil
}

type recordingStore struct {
	results []models.AnalysisResult
	err     error
}

func (r *recordingStore) AddResult(_ context.Context, result models.AnalysisResult) error {
	if r.err != nil {
		return r.err
	}
	r.results = append(r.results, result)
	return nil
}

func (r *recordingStore) Flush() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("not really an image"), 0o644))
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.JPEG", "c.png", "d.gif", "e.BMP", "notes.txt", "f.webp", "noext")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o755))

	got, err := ListImages(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.jpg", "b.JPEG", "c.png", "d.gif", "e.BMP"}, got)
}

func TestListImagesMissingFolder(t *testing.T) {
	_, err := ListImages(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestProcessFolderContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.png", "readme.md")

	describer := &fakeDescriber{fail: map[string]bool{"a.jpg": true}}
	store := &recordingStore{}
	catalog := &recordingStore{}
	p := NewProcessor(describer, store, catalog, testLogger(), ProcessorConfig{
		ImageFolder: dir,
		BaseURL:     "https://host/",
	})
	failedBefore := testutil.ToFloat64(metrics.ImagesProcessedTotal.WithLabelValues("failed"))
	describedBefore := testutil.ToFloat64(metrics.ImagesProcessedTotal.WithLabelValues("described"))

	results, err := p.ProcessFolder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(metrics.ImagesProcessedTotal.WithLabelValues("failed")))
	assert.Equal(t, describedBefore+1, testutil.ToFloat64(metrics.ImagesProcessedTotal.WithLabelValues("described")))
	require.Len(t, results, 2)
	assert.Equal(t, results, store.results)
	assert.Equal(t, results, catalog.results)

	byName := map[string]models.AnalysisResult{}
	for _, r := range results {
		byName[r.FileName] = r
	}

	failed := byName["a.jpg"]
	assert.True(t, failed.Failed())
	assert.Nil(t, failed.Description)
	assert.Nil(t, failed.Caption)
	assert.Equal(t, "vision request: 502 Bad Gateway", *failed.Error)
	assert.Equal(t, models.ImageMetadata{}, failed.Metadata)

	ok := byName["b.png"]
	assert.False(t, ok.Failed())
	require.NotNil(t, ok.Description)
	assert.Contains(t, *ok.Description, "Instagram Reel Caption:")
	require.NotNil(t, ok.Caption)
	assert.Equal(t, "b.png #travel", *ok.Caption)

	// Unreadable EXIF means the bare instructions go out.
	assert.Equal(t, basePrompt, describer.prompts["b.png"])
}

func TestProcessFolderWritesSidecarPerImage(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.jpg", "c.jpg")
	sidecar := filepath.Join(t.TempDir(), "captions.json")

	run := func() *models.ResultSet {
		store := storage.NewSidecarStorage(sidecar, "https://host/")
		p := NewProcessor(&fakeDescriber{}, store, nil, testLogger(), ProcessorConfig{
			ImageFolder: dir,
			BaseURL:     "https://host/",
		})
		_, err := p.ProcessFolder(context.Background())
		require.NoError(t, err)

		rs, err := storage.LoadResultSet(sidecar)
		require.NoError(t, err)
		return rs
	}

	first := run()
	require.Len(t, first.Images, 3)
	for _, img := range first.Images {
		assert.Equal(t, "https://host/"+img.FileName, img.ImageURL)
		assert.NotNil(t, img.Caption)
	}

	// A second run replaces the sidecar rather than appending to it.
	second := run()
	assert.Len(t, second.Images, 3)
}

func TestProcessFolderEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "notes.txt")
	store := &recordingStore{}

	p := NewProcessor(&fakeDescriber{}, store, nil, testLogger(), ProcessorConfig{ImageFolder: dir})
	results, err := p.ProcessFolder(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, store.results)
}

func TestProcessFolderStopsOnStoreError(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.jpg")
	store := &recordingStore{err: errors.New("disk full")}

	p := NewProcessor(&fakeDescriber{}, store, nil, testLogger(), ProcessorConfig{ImageFolder: dir})
	results, err := p.ProcessFolder(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, results, 1)
}

func TestProcessFolderCatalogErrorsAreNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.jpg")
	store := &recordingStore{}
	catalog := &recordingStore{err: errors.New("connection refused")}

	p := NewProcessor(&fakeDescriber{}, store, catalog, testLogger(), ProcessorConfig{ImageFolder: dir})
	results, err := p.ProcessFolder(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Len(t, store.results, 2)
}

func TestProcessFolderCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(&fakeDescriber{}, &recordingStore{}, nil, testLogger(), ProcessorConfig{ImageFolder: dir})
	_, err := p.ProcessFolder(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeImageWithoutCaption(t *testing.T) {
	p := NewProcessor(describeFunc(func(string, string) (string, error) {
		return "Only a description.", nil
	}), &recordingStore{}, nil, testLogger(), ProcessorConfig{BaseURL: "https://host/"})

	r := p.AnalyzeImage(context.Background(), "x.jpg", models.ImageMetadata{})
	require.NotNil(t, r.Description)
	assert.Equal(t, "Only a description.", *r.Description)
	assert.Nil(t, r.Caption)
	assert.Nil(t, r.Error)
}

type describeFunc func(prompt, imageURL string) (string, error)

func (f describeFunc) Describe(_ context.Context, prompt, imageURL string) (string, error) {
	return f(prompt, imageURL)
}
