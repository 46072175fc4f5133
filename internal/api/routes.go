// Package api 提供课程目录、课时访问、测验与用户会话的 HTTP 接口
package api

import (
	"fmt"
	"net/http"
	"strings"

	"eduverse/internal/access"
	"eduverse/internal/check"
	"eduverse/internal/config"
	"eduverse/internal/course"
	"eduverse/internal/logger"
	"eduverse/internal/media"
	"eduverse/internal/quiz"
	"eduverse/internal/user"
	ws "eduverse/internal/websocket"

	"github.com/gin-gonic/gin"
)

// Handler API处理器
// 封装所有HTTP请求处理逻辑，提供RESTful API接口
type Handler struct {
	// courseService 课程服务实例，负责目录读取与变更
	courseService *course.Service
	// userService 当前用户会话
	userService *user.Service
	// videos 本地上传视频登记表
	videos *media.Registry
	// hub 变更推送中心
	hub *ws.Hub
	// quizzes 每个课时的测验作答
	quizzes *quiz.Sessions
	// logger 日志记录器实例，用于统一日志管理
	logger *logger.Logger

	// cfg 全局配置，用于环境检查与上传限制
	cfg *config.Config

	unsubscribe []func()
}

// NewHandler 创建新的API处理器，并将服务变更接入推送中心
// 参数:
//
//	courseService: 课程服务实例
//	userService: 用户服务实例
//	videos: 本地视频登记表
//	hub: WebSocket 推送中心，可为 nil
//	logger: 日志记录器实例
//	cfg: 全局配置，可为 nil
//
// 返回: 初始化的API处理器
func NewHandler(
	courseService *course.Service,
	userService *user.Service,
	videos *media.Registry,
	hub *ws.Hub,
	logger *logger.Logger,
	cfg *config.Config,
) *Handler {
	h := &Handler{
		courseService: courseService,
		userService:   userService,
		videos:        videos,
		hub:           hub,
		quizzes:       quiz.NewSessions(),
		logger:        logger,
		cfg:           cfg,
	}

	h.unsubscribe = append(h.unsubscribe,
		courseService.Subscribe(func(courses []course.Course) {
			if h.hub != nil {
				h.hub.Broadcast(ws.Message{Type: ws.TypeCatalog, Data: courses})
			}
		}),
		userService.Subscribe(func(u *user.User) {
			h.quizzes.Reset()
			if h.hub != nil {
				h.hub.Broadcast(ws.Message{Type: ws.TypeUser, Data: u})
			}
		}),
	)
	return h
}

// Close 取消服务变更订阅
func (h *Handler) Close() {
	for _, fn := range h.unsubscribe {
		fn()
	}
	h.unsubscribe = nil
}

// SetupRoutes 设置路由
// 参数:
//
//	r: Gin引擎实例
func (h *Handler) SetupRoutes(r *gin.Engine) {
	// 健康检查路由（根级别）
	r.GET("/health", h.healthCheck)

	api := r.Group("/api")
	{
		// 环境检测
		api.GET("/check", h.envCheck)

		api.GET("/dashboard", h.getDashboard)
		api.GET("/categories", h.getCategories)
		api.GET("/certificates", h.getCertificates)
		api.GET("/internships", h.getInternships)

		// 课程相关路由
		courses := api.Group("/courses")
		{
			courses.GET("", h.getCourses)
			courses.GET("/:id", h.getCourse)
			courses.POST("/:id/progress", h.updateProgress)
			courses.POST("/:id/lock", h.requireManager, h.toggleCourseLock)

			lessons := courses.Group("/:id/lessons/:lessonId")
			{
				lessons.GET("/access", h.getLessonAccess)
				lessons.POST("/complete", h.completeLesson)
				lessons.POST("/lock", h.requireManager, h.toggleLessonLock)
				lessons.POST("/video", h.requireManager, h.uploadVideo)

				lessons.GET("/quiz", h.getQuiz)
				lessons.POST("/quiz/answer", h.answerQuiz)
				lessons.POST("/quiz/submit", h.submitQuiz)
				lessons.POST("/quiz/retry", h.retryQuiz)
			}
		}

		// 用户会话
		session := api.Group("/session")
		{
			session.GET("", h.getSession)
			session.DELETE("", h.logout)
			session.POST("/login", h.login)
			session.POST("/signup", h.signup)
			session.PATCH("/profile", h.updateProfile)
			session.POST("/upgrade", h.upgrade)
		}
	}

	// 本地上传视频
	r.GET(strings.TrimSuffix(media.URLPrefix, "/")+"/:handle", h.serveMedia)

	// WebSocket路由
	r.GET("/ws/catalog", h.handleCatalogWebSocket)
}

// healthCheck 健康检查
// 响应: {"status": "ok", "message": "Eduverse is running"}
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": check.HealthMessage(),
	})
}

// envCheck 环境检测，与 cmd/check 保持一致的检查逻辑但以 JSON 返回
// 使用已加载的服务，不重新打开存储
func (h *Handler) envCheck(c *gin.Context) {
	h.logger.Info("Handling /api/check request")
	if h.cfg == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "配置未初始化"})
		return
	}
	items := make([]check.Item, 0, 2)

	coursesOK, coursesMsg := check.CatalogIntegrity(h.courseService.GetCourses())
	items = append(items, check.Item{Name: "课程目录", OK: coursesOK, Message: coursesMsg})

	items = append(items, check.Item{
		Name:    "本地视频",
		OK:      true,
		Message: fmt.Sprintf("已登记 %d 个本地视频，上传上限 %d MB", h.videos.Len(), h.cfg.Media.MaxUploadMB),
	})

	c.JSON(http.StatusOK, check.NewSummary(items))
}

// currentUser 返回当前用户，未登录时为 nil
func (h *Handler) currentUser() *user.User {
	u, ok := h.userService.Current()
	if !ok {
		return nil
	}
	return &u
}

// requireManager 讲师工具仅对付费用户开放
func (h *Handler) requireManager(c *gin.Context) {
	u := h.currentUser()
	if u == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
		return
	}
	if !access.CanManage(u) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "讲师工具仅对高级会员开放"})
		return
	}
	c.Next()
}

// requireUser 需要登录的接口
func (h *Handler) requireUser(c *gin.Context) (*user.User, bool) {
	u := h.currentUser()
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
		return nil, false
	}
	return u, true
}

// lookupLesson 按路径参数查找课程与课时，不存在时写入 404
func (h *Handler) lookupLesson(c *gin.Context) (course.Course, course.Lesson, bool) {
	courseID := c.Param("id")
	lessonID := c.Param("lessonId")
	co, exists := h.courseService.GetCourse(courseID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "课程不存在"})
		return course.Course{}, course.Lesson{}, false
	}
	l, exists := co.Lesson(lessonID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "课时不存在"})
		return course.Course{}, course.Lesson{}, false
	}
	return co, l, true
}

// requirePlayable 课时不可播放时写入 403
func (h *Handler) requirePlayable(c *gin.Context, co course.Course, l course.Lesson, u *user.User) bool {
	if reason := access.LessonLock(co, l, u); reason != access.ReasonNone {
		c.JSON(http.StatusForbidden, gin.H{"error": "课时已锁定", "reason": reason})
		return false
	}
	return true
}
