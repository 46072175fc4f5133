package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"eduverse/catalog"
	"eduverse/internal/config"
	"eduverse/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(driver, path string) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 3006},
		Storage: config.StorageConfig{Driver: driver, Path: path, Table: "eduverse_kv"},
		Catalog: config.CatalogConfig{UseEmbed: true},
		Media:   config.MediaConfig{MaxUploadMB: 1},
		Log:     config.LogConfig{Level: "error", Format: "text"},
	}
}

func TestBuild_ServesHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), testConfig(config.DriverMemory, ""), catalog.FS, logger.NewLogger(logger.ERROR))
	require.NoError(t, err)
	defer app.Close()

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "API endpoint not found")
}

func TestBuild_StateSurvivesRestart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(config.DriverFile, filepath.Join(t.TempDir(), "eduverse.json"))
	log := logger.NewLogger(logger.ERROR)

	first, err := Build(context.Background(), cfg, catalog.FS, log)
	require.NoError(t, err)
	first.Users.Login("a@example.com")
	require.True(t, first.Courses.MarkLessonComplete("k12_1", "l1"))
	require.True(t, first.Courses.ToggleLessonLock("k12_1", "l4"))
	require.NoError(t, first.Close())

	second, err := Build(context.Background(), cfg, catalog.FS, log)
	require.NoError(t, err)
	defer second.Close()

	u, ok := second.Users.Current()
	require.True(t, ok)
	assert.Equal(t, "a@example.com", u.Email)

	co, ok := second.Courses.GetCourse("k12_1")
	require.True(t, ok)
	assert.Equal(t, 25, co.Progress)
	assert.True(t, co.Lessons[0].IsCompleted)
	assert.False(t, co.Lessons[3].IsLocked)
}

func TestBuild_UnknownDriver(t *testing.T) {
	_, err := Build(context.Background(), testConfig("redis", ""), catalog.FS, logger.NewLogger(logger.ERROR))
	assert.Error(t, err)
}
