// Package access 判断课程与课时是否可以播放、浏览或管理
// 全部为纯函数；锁定在数据层只是建议性的，由调用方（API/界面）负责执行
package access

import (
	"eduverse/internal/course"
	"eduverse/internal/user"
)

// Reason 课时被锁定的原因，按优先级从高到低排列
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonInstructor Reason = "instructor" // 讲师锁定整门课程
	ReasonPremium    Reason = "premium"    // 付费课程且用户未订阅
	ReasonLesson     Reason = "lesson"     // 单个课时锁定且用户未订阅
)

// userIsPremium nil 用户视为非付费用户
func userIsPremium(u *user.User) bool {
	return u != nil && u.IsPremium
}

// IsCourseLocked 讲师锁，优先级最高
func IsCourseLocked(c course.Course) bool {
	return c.IsLocked
}

// IsPremiumLocked 付费课程对非付费用户锁定
func IsPremiumLocked(c course.Course, u *user.User) bool {
	return c.IsPremium && !userIsPremium(u)
}

// IsLessonPlayable 课时是否可以播放
func IsLessonPlayable(c course.Course, l course.Lesson, u *user.User) bool {
	return LessonLock(c, l, u) == ReasonNone
}

// CanNavigate 是否允许在课时之间切换
// 只有讲师锁与付费锁会禁止浏览；单个课时锁仍允许浏览列表
func CanNavigate(c course.Course, u *user.User) bool {
	return !IsCourseLocked(c) && !IsPremiumLocked(c, u)
}

// CourseLock 课程级锁定原因
func CourseLock(c course.Course, u *user.User) Reason {
	switch {
	case IsCourseLocked(c):
		return ReasonInstructor
	case IsPremiumLocked(c, u):
		return ReasonPremium
	}
	return ReasonNone
}

// LessonLock 课时锁定原因: 讲师锁 > 付费锁 > 课时锁 > 未锁定
func LessonLock(c course.Course, l course.Lesson, u *user.User) Reason {
	if r := CourseLock(c, u); r != ReasonNone {
		return r
	}
	if l.IsLocked && !userIsPremium(u) {
		return ReasonLesson
	}
	return ReasonNone
}

// CanManage 是否可以使用讲师工具（锁切换、视频上传）
func CanManage(u *user.User) bool {
	return userIsPremium(u)
}

// Decision 单个课时的访问判定结果
type Decision struct {
	CourseID    string `json:"courseId"`
	LessonID    string `json:"lessonId"`
	Playable    bool   `json:"playable"`
	CanNavigate bool   `json:"canNavigate"`
	CanManage   bool   `json:"canManage"`
	Reason      Reason `json:"reason,omitempty"`
}

// Evaluate 汇总课时的访问判定
func Evaluate(c course.Course, l course.Lesson, u *user.User) Decision {
	reason := LessonLock(c, l, u)
	return Decision{
		CourseID:    c.ID,
		LessonID:    l.ID,
		Playable:    reason == ReasonNone,
		CanNavigate: CanNavigate(c, u),
		CanManage:   CanManage(u),
		Reason:      reason,
	}
}
