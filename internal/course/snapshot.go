package course

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SnapshotKey 课程快照在持久化存储中的键
const SnapshotKey = "eduverse_courses"

// ErrMalformedSnapshot 快照无法解析或结构非法
var ErrMalformedSnapshot = errors.New("malformed course snapshot")

// SavedCourse 快照中的课程记录
// 字段与 Course 一致，课时视频以 videoUrl 字符串保存，仅包含远程地址
type SavedCourse struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	LessonsCount int           `json:"lessonsCount"`
	Duration     string        `json:"duration"`
	Category     Category      `json:"category"`
	Progress     *int          `json:"progress"`
	ImageColor   string        `json:"imageColor"`
	IsPremium    bool          `json:"isPremium,omitempty"`
	IsLocked     bool          `json:"isLocked,omitempty"`
	Lessons      []SavedLesson `json:"lessons,omitempty"`
}

// SavedLesson 快照中的课时记录
type SavedLesson struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Duration    string         `json:"duration"`
	VideoURL    string         `json:"videoUrl,omitempty"`
	IsLocked    bool           `json:"isLocked"`
	IsCompleted bool           `json:"isCompleted,omitempty"`
	Quiz        []QuizQuestion `json:"quiz,omitempty"`
}

// EncodeSnapshot 序列化课程列表
// 本地临时视频引用不会写入快照
func EncodeSnapshot(courses []Course) ([]byte, error) {
	saved := make([]SavedCourse, len(courses))
	for i, c := range courses {
		progress := c.Progress
		sc := SavedCourse{
			ID:           c.ID,
			Title:        c.Title,
			Description:  c.Description,
			LessonsCount: c.LessonsCount,
			Duration:     c.Duration,
			Category:     c.Category,
			Progress:     &progress,
			ImageColor:   c.ImageColor,
			IsPremium:    c.IsPremium,
			IsLocked:     c.IsLocked,
		}
		if c.Lessons != nil {
			sc.Lessons = make([]SavedLesson, len(c.Lessons))
			for j, l := range c.Lessons {
				sl := SavedLesson{
					ID:          l.ID,
					Title:       l.Title,
					Duration:    l.Duration,
					IsLocked:    l.IsLocked,
					IsCompleted: l.IsCompleted,
					Quiz:        l.Quiz,
				}
				if l.Video.Durable() {
					sl.VideoURL = l.Video.URL
				}
				sc.Lessons[j] = sl
			}
		}
		saved[i] = sc
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("序列化课程快照失败: %w", err)
	}
	return data, nil
}

// DecodeSnapshot 解析并校验快照
// 任何结构问题都返回 ErrMalformedSnapshot，调用方不应部分信任快照
func DecodeSnapshot(data []byte) ([]SavedCourse, error) {
	var saved []SavedCourse
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	for i, c := range saved {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: course #%d has no id", ErrMalformedSnapshot, i)
		}
		if c.Progress == nil {
			return nil, fmt.Errorf("%w: course %s has no progress", ErrMalformedSnapshot, c.ID)
		}
		if *c.Progress < 0 || *c.Progress > 100 {
			return nil, fmt.Errorf("%w: course %s progress %d out of range", ErrMalformedSnapshot, c.ID, *c.Progress)
		}
		for j, l := range c.Lessons {
			if l.ID == "" {
				return nil, fmt.Errorf("%w: course %s lesson #%d has no id", ErrMalformedSnapshot, c.ID, j)
			}
		}
	}
	return saved, nil
}
