package seed

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"eduverse/catalog"
	"eduverse/internal/config"
	"eduverse/internal/course"
	"eduverse/internal/logger"
	"eduverse/internal/storage"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(path string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Driver: config.DriverFile, Path: path},
		Catalog: config.CatalogConfig{UseEmbed: true},
	}
}

func TestWrite_RoundTripsAsSeed(t *testing.T) {
	log := logger.NewLogger(logger.ERROR)
	courses, err := Reconciled(context.Background(), testConfig(""), catalog.FS, log, true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, courses))

	reloaded, err := course.LoadSeedFromFS(fstest.MapFS{course.CoursesFile: {Data: buf.Bytes()}}, ".")
	require.NoError(t, err)
	if diff := cmp.Diff(courses, reloaded.Courses); diff != "" {
		t.Errorf("seed output does not round trip (-want +got):\n%s", diff)
	}
}

func TestReconciled_AppliesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eduverse.json")
	log := logger.NewLogger(logger.ERROR)

	kv := storage.NewFileStore(path, log)
	require.NoError(t, kv.Set(context.Background(), course.SnapshotKey,
		[]byte(`[{"id":"k12_1","progress":25,"lessons":[{"id":"l1","isCompleted":true}]}]`)))

	courses, err := Reconciled(context.Background(), testConfig(path), catalog.FS, log, false)
	require.NoError(t, err)
	require.NotEmpty(t, courses)
	assert.Equal(t, "k12_1", courses[0].ID)
	assert.Equal(t, 25, courses[0].Progress)
	assert.True(t, courses[0].Lessons[0].IsCompleted)
}

func TestReconciled_MalformedSnapshotFallsBackToSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eduverse.json")
	log := logger.NewLogger(logger.ERROR)

	kv := storage.NewFileStore(path, log)
	require.NoError(t, kv.Set(context.Background(), course.SnapshotKey, []byte(`{"broken`)))

	courses, err := Reconciled(context.Background(), testConfig(path), catalog.FS, log, false)
	require.NoError(t, err)

	seed, err := course.OpenSeed(true, "", catalog.FS)
	require.NoError(t, err)
	if diff := cmp.Diff(seed.Courses, courses); diff != "" {
		t.Errorf("malformed snapshot should yield the seed (-want +got):\n%s", diff)
	}
}
