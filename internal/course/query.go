package course

import "eduverse/internal/user"

// FilterByCategory 按分类筛选课程，CategoryAll 或空值返回全部
func FilterByCategory(courses []Course, category Category) []Course {
	if category == "" || category == CategoryAll {
		return courses
	}
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// CategoriesFor 返回该身份可见的分类标签
// 学生只看到 Academic；职场人士只看到 Skills 与 Business；其余为 All 加全部分类
func CategoriesFor(role user.Role) []Category {
	switch role {
	case user.RoleStudent:
		return []Category{CategoryAcademic}
	case user.RoleProfessional:
		return []Category{CategorySkills, CategoryBusiness}
	default:
		return append([]Category{CategoryAll}, Categories...)
	}
}

// DefaultCategory 根据身份确定课程库默认分类
func DefaultCategory(role user.Role, requested Category) Category {
	if requested == "" {
		requested = CategoryAll
	}
	switch role {
	case user.RoleStudent:
		return CategoryAcademic
	case user.RoleProfessional:
		if requested == CategoryAll {
			return CategorySkills
		}
	}
	return requested
}

// InProgress 进行中的课程（0 < progress < 100），非付费用户排除付费课程
func InProgress(courses []Course, isPremium bool) []Course {
	out := make([]Course, 0)
	for _, c := range courses {
		if c.Progress > 0 && c.Progress < 100 && (!c.IsPremium || isPremium) {
			out = append(out, c)
		}
	}
	return out
}

// PremiumCourses 全部付费课程
func PremiumCourses(courses []Course) []Course {
	out := make([]Course, 0)
	for _, c := range courses {
		if c.IsPremium {
			out = append(out, c)
		}
	}
	return out
}

// NextLesson 返回指定课时之后的课时
func NextLesson(c Course, lessonID string) (Lesson, bool) {
	i := c.lessonIndex(lessonID)
	if i < 0 || i+1 >= len(c.Lessons) {
		return Lesson{}, false
	}
	return c.Lessons[i+1], true
}

// PreviousLesson 返回指定课时之前的课时
func PreviousLesson(c Course, lessonID string) (Lesson, bool) {
	i := c.lessonIndex(lessonID)
	if i <= 0 {
		return Lesson{}, false
	}
	return c.Lessons[i-1], true
}

// FirstLesson 返回课程的第一个课时
func FirstLesson(c Course) (Lesson, bool) {
	if len(c.Lessons) == 0 {
		return Lesson{}, false
	}
	return c.Lessons[0], true
}
