package course

import "math"

// CompletedCount 统计已完成的课时数
func CompletedCount(lessons []Lesson) int {
	n := 0
	for _, l := range lessons {
		if l.IsCompleted {
			n++
		}
	}
	return n
}

// DeriveProgress 根据课时完成情况计算进度: round(100 * completed / total)
// 没有课时时进度为 0
func DeriveProgress(lessons []Lesson) int {
	total := len(lessons)
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(CompletedCount(lessons)) * 100 / float64(total)))
}

// ClampProgress 将进度限制在 [0, 100]
func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
