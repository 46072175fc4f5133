package api

import (
	"errors"
	"io"
	"net/http"

	"eduverse/internal/access"
	"eduverse/internal/course"
	"eduverse/internal/media"
	"eduverse/internal/quiz"

	"github.com/gin-gonic/gin"
)

// uploadField 视频上传的表单字段名
const uploadField = "file"

// getLessonAccess 课时对当前用户的访问判定
func (h *Handler) getLessonAccess(c *gin.Context) {
	co, l, ok := h.lookupLesson(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, access.Evaluate(co, l, h.currentUser()))
}

// completeLesson 标记课时完成（视频播放结束）
// 响应:
//
//	200: {"courseId", "lessonId", "progress"}
//	401: 未登录
//	403: 课时已锁定
//	404: 课程或课时不存在
func (h *Handler) completeLesson(c *gin.Context) {
	u, ok := h.requireUser(c)
	if !ok {
		return
	}
	co, l, ok := h.lookupLesson(c)
	if !ok {
		return
	}
	if !h.requirePlayable(c, co, l, u) {
		return
	}

	if !h.courseService.MarkLessonComplete(co.ID, l.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "课时不存在"})
		return
	}
	updated, _ := h.courseService.GetCourse(co.ID)
	next, hasNext := course.NextLesson(updated, l.ID)
	resp := gin.H{
		"courseId": co.ID,
		"lessonId": l.ID,
		"progress": updated.Progress,
	}
	if hasNext {
		resp["nextLessonId"] = next.ID
	}
	c.JSON(http.StatusOK, resp)
}

// toggleLessonLock 切换单个课时锁
// 课程整体被讲师锁定时不允许单独调整课时锁
// 响应:
//
//	200: {"courseId", "lessonId", "isLocked"}
//	404: 课程或课时不存在
//	409: 课程已锁定
func (h *Handler) toggleLessonLock(c *gin.Context) {
	co, _, ok := h.lookupLesson(c)
	if !ok {
		return
	}
	if co.IsLocked {
		c.JSON(http.StatusConflict, gin.H{"error": "课程已锁定，请先解锁课程", "reason": access.ReasonInstructor})
		return
	}
	courseID, lessonID := co.ID, c.Param("lessonId")
	if !h.courseService.ToggleLessonLock(courseID, lessonID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "课程或课时不存在"})
		return
	}
	co, _ = h.courseService.GetCourse(courseID)
	l, _ := co.Lesson(lessonID)
	c.JSON(http.StatusOK, gin.H{"courseId": courseID, "lessonId": lessonID, "isLocked": l.IsLocked})
}

// uploadVideo 用本地视频替换课时视频
// multipart 字段: file
// 响应:
//
//	200: {"courseId", "lessonId", "video"}
//	400: 不是视频文件或缺少文件
//	404: 课程或课时不存在
//	413: 超过上传限制
func (h *Handler) uploadVideo(c *gin.Context) {
	co, l, ok := h.lookupLesson(c)
	if !ok {
		return
	}

	header, err := c.FormFile(uploadField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}
	if h.cfg != nil && header.Size > h.cfg.MaxUploadBytes() {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "文件超过上传限制"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取上传文件失败"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取上传文件失败"})
		return
	}

	found, err := h.courseService.UploadLessonVideo(co.ID, l.ID, course.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	switch {
	case !found:
		c.JSON(http.StatusNotFound, gin.H{"error": "课程或课时不存在"})
		return
	case errors.Is(err, course.ErrNotVideo):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload a valid video file."})
		return
	case errors.Is(err, media.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "文件超过上传限制"})
		return
	case err != nil:
		h.logger.Error("视频上传失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "视频上传失败"})
		return
	}

	updated, _ := h.courseService.GetCourse(co.ID)
	ul, _ := updated.Lesson(l.ID)
	c.JSON(http.StatusOK, gin.H{"courseId": co.ID, "lessonId": l.ID, "video": ul.Video})
}

// quizLesson 测验接口的公共前置：登录、课时存在、可播放
func (h *Handler) quizLesson(c *gin.Context) (course.Course, course.Lesson, bool) {
	u, ok := h.requireUser(c)
	if !ok {
		return course.Course{}, course.Lesson{}, false
	}
	co, l, ok := h.lookupLesson(c)
	if !ok {
		return course.Course{}, course.Lesson{}, false
	}
	if !h.requirePlayable(c, co, l, u) {
		return course.Course{}, course.Lesson{}, false
	}
	if len(l.Quiz) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "该课时暂无测验"})
		return course.Course{}, course.Lesson{}, false
	}
	return co, l, true
}

// getQuiz 当前作答状态，提交前不包含正确答案
func (h *Handler) getQuiz(c *gin.Context) {
	co, l, ok := h.quizLesson(c)
	if !ok {
		return
	}
	var view quiz.View
	h.quizzes.With(co.ID, l.ID, l.Quiz, func(a *quiz.Attempt) { view = a.View() })
	c.JSON(http.StatusOK, view)
}

// answerQuiz 选择题目选项
// 请求体: {"questionId": "q1", "option": 2}
func (h *Handler) answerQuiz(c *gin.Context) {
	co, l, ok := h.quizLesson(c)
	if !ok {
		return
	}
	var req struct {
		QuestionID string `json:"questionId" binding:"required"`
		Option     *int   `json:"option" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	var (
		view     quiz.View
		accepted bool
	)
	h.quizzes.With(co.ID, l.ID, l.Quiz, func(a *quiz.Attempt) {
		accepted = a.Select(req.QuestionID, *req.Option)
		view = a.View()
	})
	if !accepted && !view.Submitted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的题目或选项"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// submitQuiz 提交并计分
func (h *Handler) submitQuiz(c *gin.Context) {
	co, l, ok := h.quizLesson(c)
	if !ok {
		return
	}
	var (
		view      quiz.View
		canSubmit bool
	)
	h.quizzes.With(co.ID, l.ID, l.Quiz, func(a *quiz.Attempt) {
		canSubmit = a.Submitted || a.CanSubmit()
		if canSubmit {
			a.Submit()
		}
		view = a.View()
	})
	if !canSubmit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请先回答所有题目"})
		return
	}
	h.logger.Debug("测验已提交: course=%s, lesson=%s, score=%d/%d", co.ID, l.ID, view.Score, view.Total)
	c.JSON(http.StatusOK, view)
}

// retryQuiz 清空作答重新开始
func (h *Handler) retryQuiz(c *gin.Context) {
	co, l, ok := h.quizLesson(c)
	if !ok {
		return
	}
	var view quiz.View
	h.quizzes.With(co.ID, l.ID, l.Quiz, func(a *quiz.Attempt) {
		a.Retry()
		view = a.View()
	})
	c.JSON(http.StatusOK, view)
}
