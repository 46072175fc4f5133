package api

import (
	"net/http"

	"eduverse/internal/access"
	"eduverse/internal/course"
	"eduverse/internal/user"

	"github.com/gin-gonic/gin"
)

// courseView 课程及其对当前用户的访问状态
type courseView struct {
	course.Course
	Lock        access.Reason     `json:"lock,omitempty"`
	CanNavigate bool              `json:"canNavigate"`
	Access      []access.Decision `json:"access,omitempty"`
}

func newCourseView(c course.Course, u *user.User, withLessons bool) courseView {
	v := courseView{
		Course:      c,
		Lock:        access.CourseLock(c, u),
		CanNavigate: access.CanNavigate(c, u),
	}
	if withLessons {
		v.Access = make([]access.Decision, len(c.Lessons))
		for i, l := range c.Lessons {
			v.Access[i] = access.Evaluate(c, l, u)
		}
	}
	return v
}

func userRole(u *user.User) user.Role {
	if u == nil {
		return ""
	}
	return u.Role
}

// getCourses 获取课程列表
// 查询参数:
//
//	category: 分类筛选；学生固定为 Academic，职场人士默认 Skills
//
// 响应: {"category": "...", "courses": [courseView, ...]}
func (h *Handler) getCourses(c *gin.Context) {
	u := h.currentUser()
	category := course.DefaultCategory(userRole(u), course.Category(c.Query("category")))
	if category != course.CategoryAll && !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的课程分类"})
		return
	}

	courses := course.FilterByCategory(h.courseService.GetCourses(), category)
	views := make([]courseView, len(courses))
	for i, co := range courses {
		views[i] = newCourseView(co, u, false)
	}
	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"courses":  views,
	})
}

// getCourse 获取指定课程
// 路径参数:
//
//	id: 课程ID
//
// 响应:
//
//	200: {"course": courseView} - 课程详细信息及每个课时的访问判定
//	404: {"error": "课程不存在"} - 课程不存在
func (h *Handler) getCourse(c *gin.Context) {
	co, exists := h.courseService.GetCourse(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "课程不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"course": newCourseView(co, h.currentUser(), true),
	})
}

// getDashboard 首页数据：进行中的课程、付费课程与证书数量
func (h *Handler) getDashboard(c *gin.Context) {
	u := h.currentUser()
	courses := h.courseService.GetCourses()
	isPremium := u != nil && u.IsPremium

	c.JSON(http.StatusOK, gin.H{
		"user":              u,
		"inProgress":        course.InProgress(courses, isPremium),
		"premium":           course.PremiumCourses(courses),
		"certificatesCount": len(h.courseService.Certificates()),
		"defaultCategory":   course.DefaultCategory(userRole(u), ""),
	})
}

// getCategories 当前身份可见的分类标签
func (h *Handler) getCategories(c *gin.Context) {
	role := userRole(h.currentUser())
	c.JSON(http.StatusOK, gin.H{
		"categories": course.CategoriesFor(role),
		"default":    course.DefaultCategory(role, course.Category(c.Query("category"))),
	})
}

func (h *Handler) getCertificates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"certificates": h.courseService.Certificates()})
}

func (h *Handler) getInternships(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"internships": h.courseService.Internships()})
}

// updateProgress 直接设置课程进度
// 请求体: {"progress": 0..100}
// 有课时的课程进度由课时完成情况推导，此接口不改变其进度
func (h *Handler) updateProgress(c *gin.Context) {
	if _, ok := h.requireUser(c); !ok {
		return
	}
	var req struct {
		Progress *int `json:"progress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	id := c.Param("id")
	if !h.courseService.UpdateCourseProgress(id, *req.Progress) {
		c.JSON(http.StatusNotFound, gin.H{"error": "课程不存在"})
		return
	}
	co, _ := h.courseService.GetCourse(id)
	c.JSON(http.StatusOK, gin.H{"courseId": id, "progress": co.Progress})
}

// toggleCourseLock 切换讲师级课程锁
func (h *Handler) toggleCourseLock(c *gin.Context) {
	id := c.Param("id")
	if !h.courseService.ToggleCourseLock(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "课程不存在"})
		return
	}
	co, _ := h.courseService.GetCourse(id)
	h.logger.Info("课程锁已切换: course=%s, locked=%v", id, co.IsLocked)
	c.JSON(http.StatusOK, gin.H{"courseId": id, "isLocked": co.IsLocked})
}
