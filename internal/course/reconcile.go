package course

// Reconcile 将已保存的快照合并进规范种子目录
//
// 字段来源:
//
//	课程结构字段（标题、描述、课时数、时长、分类、颜色、付费标记） -> 种子
//	course.progress, course.isLocked                              -> 快照（课程存在时）
//	课时身份、标题、时长、视频、测验                                -> 种子
//	lesson.isLocked, lesson.isCompleted                           -> 快照（课时存在时）
//
// 结果的课程集合与顺序与种子完全一致，快照中多出的课程被丢弃。
// 返回的切片不与 seed 共享内存。
func Reconcile(seed []Course, saved []SavedCourse) []Course {
	byID := make(map[string]*SavedCourse, len(saved))
	for i := range saved {
		if _, dup := byID[saved[i].ID]; !dup {
			byID[saved[i].ID] = &saved[i]
		}
	}

	merged := make([]Course, len(seed))
	for i, seedCourse := range seed {
		c := seedCourse.Clone()
		sc, ok := byID[c.ID]
		if !ok {
			merged[i] = c
			continue
		}

		if sc.Progress != nil {
			c.Progress = ClampProgress(*sc.Progress)
		}
		c.IsLocked = sc.IsLocked

		savedLessons := make(map[string]*SavedLesson, len(sc.Lessons))
		for j := range sc.Lessons {
			if _, dup := savedLessons[sc.Lessons[j].ID]; !dup {
				savedLessons[sc.Lessons[j].ID] = &sc.Lessons[j]
			}
		}
		for j := range c.Lessons {
			if sl, ok := savedLessons[c.Lessons[j].ID]; ok {
				c.Lessons[j].IsLocked = sl.IsLocked
				c.Lessons[j].IsCompleted = sl.IsCompleted
			}
		}
		merged[i] = c
	}
	return merged
}
