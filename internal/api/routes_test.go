package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"eduverse/catalog"
	"eduverse/internal/config"
	"eduverse/internal/course"
	"eduverse/internal/logger"
	"eduverse/internal/media"
	"eduverse/internal/storage"
	"eduverse/internal/user"
	ws "eduverse/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router  *gin.Engine
	handler *Handler
	courses *course.Service
	users   *user.Service
	hub     *ws.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger(logger.ERROR)

	seed, err := course.OpenSeed(true, "", catalog.FS)
	require.NoError(t, err)

	kv := storage.NewMemoryStore()
	videos := media.NewRegistry(1 << 20)
	videos.SetLogger(log)

	courses := course.NewService(seed, kv)
	courses.SetLogger(log)
	courses.SetVideoRegistry(videos)
	require.NoError(t, courses.LoadCourses(context.Background()))

	users := user.NewService(kv)
	users.SetLogger(log)
	require.NoError(t, users.Load(context.Background()))

	hub := ws.NewHub()
	hub.SetLogger(log)

	cfg := &config.Config{Media: config.MediaConfig{MaxUploadMB: 1}}
	h := NewHandler(courses, users, videos, hub, log, cfg)
	r := gin.New()
	h.SetupRoutes(r)

	t.Cleanup(func() {
		h.Close()
		hub.Close()
	})
	return &testEnv{router: r, handler: h, courses: courses, users: users, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (e *testEnv) loginPremium(t *testing.T) {
	t.Helper()
	e.users.Login("instructor@example.com")
	require.True(t, e.users.UpgradeToPremium())
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	decode(t, w, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "Eduverse is running", resp["message"])
}

func TestGetCourses(t *testing.T) {
	env := newTestEnv(t)

	var resp struct {
		Category string `json:"category"`
		Courses  []struct {
			ID          string `json:"id"`
			Lock        string `json:"lock"`
			CanNavigate bool   `json:"canNavigate"`
		} `json:"courses"`
	}

	w := env.do(t, http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "All", resp.Category)
	assert.Len(t, resp.Courses, 18)

	w = env.do(t, http.MethodGet, "/api/courses?category=Business", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "Business", resp.Category)
	for _, c := range resp.Courses {
		if c.ID == "adv_bus_1" {
			assert.Equal(t, "premium", c.Lock)
			assert.False(t, c.CanNavigate)
		}
	}

	w = env.do(t, http.MethodGet, "/api/courses?category=Cooking", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCourses_StudentIsPinnedToAcademic(t *testing.T) {
	env := newTestEnv(t)
	env.users.Login("kid@example.com")

	var resp struct {
		Category string `json:"category"`
	}
	w := env.do(t, http.MethodGet, "/api/courses?category=Skills", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "Academic", resp.Category)
}

func TestGetCourse(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/courses/k12_1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Course struct {
			ID     string `json:"id"`
			Access []struct {
				LessonID string `json:"lessonId"`
				Playable bool   `json:"playable"`
				Reason   string `json:"reason"`
			} `json:"access"`
		} `json:"course"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Course.Access, 4)
	assert.True(t, resp.Course.Access[0].Playable)
	assert.False(t, resp.Course.Access[3].Playable)
	assert.Equal(t, "lesson", resp.Course.Access[3].Reason)

	w = env.do(t, http.MethodGet, "/api/courses/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompleteLesson(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l1/complete", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.users.Login("a@example.com")

	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l4/complete", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/missing/complete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l1/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Progress     int    `json:"progress"`
		NextLessonID string `json:"nextLessonId"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 25, resp.Progress)
	assert.Equal(t, "l2", resp.NextLessonID)

	// 重复完成不改变进度
	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l1/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, 25, resp.Progress)
}

func TestUpdateProgress(t *testing.T) {
	env := newTestEnv(t)
	env.users.Login("a@example.com")

	w := env.do(t, http.MethodPost, "/api/courses/bus_1/progress", map[string]int{"progress": 140})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Progress int `json:"progress"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 100, resp.Progress)

	w = env.do(t, http.MethodPost, "/api/courses/bus_1/progress", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/courses/nope/progress", map[string]int{"progress": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInstructorTools_RequirePremium(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l4/lock", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.users.Login("a@example.com")
	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l4/lock", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.True(t, env.users.UpgradeToPremium())
	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l4/lock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		IsLocked bool `json:"isLocked"`
	}
	decode(t, w, &resp)
	assert.False(t, resp.IsLocked)

	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.True(t, resp.IsLocked)

	co, _ := env.courses.GetCourse("k12_1")
	assert.True(t, co.IsLocked)

	// 课程锁定期间不能单独切换课时锁
	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l4/lock", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	co, _ = env.courses.GetCourse("k12_1")
	assert.False(t, co.Lessons[3].IsLocked)

	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/missing/lock", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartUpload(t *testing.T, name, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+uploadField+`"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestUploadVideo(t *testing.T) {
	env := newTestEnv(t)
	env.loginPremium(t)

	body, ct := multipartUpload(t, "notes.txt", "text/plain", []byte("just some notes"))
	req := httptest.NewRequest(http.MethodPost, "/api/courses/k12_1/lessons/l2/video", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please upload a valid video file.")

	before, _ := env.courses.GetCourse("k12_1")
	l2, _ := before.Lesson("l2")
	assert.False(t, l2.Video.IsLocal())

	clip := []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")
	body, ct = multipartUpload(t, "clip.mp4", "video/mp4", clip)
	req = httptest.NewRequest(http.MethodPost, "/api/courses/k12_1/lessons/l2/video", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Video struct {
			Source string `json:"source"`
			URL    string `json:"url"`
		} `json:"video"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "local", resp.Video.Source)
	require.True(t, strings.HasPrefix(resp.Video.URL, media.URLPrefix))

	w = env.do(t, http.MethodGet, resp.Video.URL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, clip, w.Body.Bytes())

	w = env.do(t, http.MethodGet, media.URLPrefix+"unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuizFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/courses/k12_1/lessons/l1/quiz", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.users.Login("a@example.com")

	w = env.do(t, http.MethodGet, "/api/courses/k12_1/lessons/l2/quiz", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/courses/k12_1/lessons/l1/quiz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "correctAnswer")

	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l1/quiz/submit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l1/quiz/answer", map[string]interface{}{"questionId": "q1", "option": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l1/quiz/answer", map[string]interface{}{"questionId": "q1", "option": 2})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l1/quiz/answer", map[string]interface{}{"questionId": "q2", "option": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l1/quiz/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Submitted bool `json:"submitted"`
		Score     int  `json:"score"`
		Total     int  `json:"total"`
		Perfect   bool `json:"perfect"`
	}
	decode(t, w, &view)
	assert.True(t, view.Submitted)
	assert.Equal(t, 1, view.Score)
	assert.Equal(t, 2, view.Total)
	assert.False(t, view.Perfect)
	assert.Contains(t, w.Body.String(), "correctAnswer")

	w = env.do(t, http.MethodPost, "/api/courses/k12_1/lessons/l1/quiz/retry", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &view)
	assert.False(t, view.Submitted)
	assert.Equal(t, 0, view.Score)

	w = env.do(t, http.MethodGet, "/api/courses/k12_1/lessons/l4/quiz", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/session/upgrade", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(t, http.MethodPatch, "/api/session/profile", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/session/login", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/session/signup", map[string]string{"name": "Ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/session/signup", map[string]string{"email": "nameless@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, "/api/session/profile", map[string]string{"role": "Wizard"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPatch, "/api/session/profile", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	current, _ := env.users.Current()
	assert.Equal(t, "ada@example.com", current.Email)

	w = env.do(t, http.MethodPatch, "/api/session/profile", map[string]string{"role": "Professional"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/session/upgrade", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		User user.User `json:"user"`
	}
	decode(t, w, &resp)
	assert.Equal(t, user.User{Name: "Ada", Email: "ada@example.com", Role: user.RoleProfessional, IsPremium: true}, resp.User)

	w = env.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"categories":["Skills","Business"],"default":"Skills"}`, w.Body.String())

	w = env.do(t, http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, ok := env.users.Current()
	assert.False(t, ok)
}

func TestDashboardAndLists(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dash struct {
		Premium           []course.Course `json:"premium"`
		CertificatesCount int             `json:"certificatesCount"`
	}
	decode(t, w, &dash)
	assert.Len(t, dash.Premium, 3)
	assert.Equal(t, 3, dash.CertificatesCount)

	w = env.do(t, http.MethodGet, "/api/internships", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var interns struct {
		Internships []course.Internship `json:"internships"`
	}
	decode(t, w, &interns)
	assert.Len(t, interns.Internships, 5)
}

func TestEnvCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/check", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "课程目录")
}
