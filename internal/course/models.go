package course

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Category 课程分类
type Category string

// 课程分类常量，CategoryAll 仅用于筛选
const (
	CategoryAll      Category = "All"
	CategoryAcademic Category = "Academic"
	CategoryHigherEd Category = "Higher Ed"
	CategorySkills   Category = "Skills"
	CategoryBusiness Category = "Business"
)

// Categories 全部课程分类，按展示顺序排列
var Categories = []Category{CategoryAcademic, CategoryHigherEd, CategorySkills, CategoryBusiness}

// Valid 判断是否为合法的课程分类（不含 All）
func (c Category) Valid() bool {
	switch c {
	case CategoryAcademic, CategoryHigherEd, CategorySkills, CategoryBusiness:
		return true
	}
	return false
}

// Course 课程模型
type Course struct {
	ID           string   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	LessonsCount int      `json:"lessonsCount" yaml:"lessonsCount"`
	Duration     string   `json:"duration" yaml:"duration"`
	Category     Category `json:"category" yaml:"category"`
	Progress     int      `json:"progress" yaml:"progress"`
	ImageColor   string   `json:"imageColor" yaml:"imageColor"`
	IsPremium    bool     `json:"isPremium" yaml:"isPremium,omitempty"`
	IsLocked     bool     `json:"isLocked" yaml:"isLocked,omitempty"` // 讲师级课程锁
	Lessons      []Lesson `json:"lessons,omitempty" yaml:"lessons,omitempty"`
}

// Lesson 课时模型，顺序即展示顺序
type Lesson struct {
	ID          string         `json:"id" yaml:"id"`
	Title       string         `json:"title" yaml:"title"`
	Duration    string         `json:"duration" yaml:"duration"`
	Video       VideoRef       `json:"video" yaml:"videoUrl"`
	IsLocked    bool           `json:"isLocked" yaml:"isLocked"`
	IsCompleted bool           `json:"isCompleted,omitempty" yaml:"isCompleted,omitempty"`
	Quiz        []QuizQuestion `json:"quiz,omitempty" yaml:"quiz,omitempty"`
}

// QuizQuestion 测验题目，CorrectAnswer 为 Options 的下标
type QuizQuestion struct {
	ID            string   `json:"id" yaml:"id"`
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correctAnswer"`
}

// Certificate 证书（只读展示数据）
type Certificate struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	IssueDate   string `json:"issueDate" yaml:"issueDate"`
	DownloadURL string `json:"downloadUrl" yaml:"downloadUrl"`
}

// InternshipStatus 实习状态
type InternshipStatus string

const (
	InternshipActive    InternshipStatus = "Active"
	InternshipAvailable InternshipStatus = "Available"
)

// Internship 实习岗位（只读展示数据）
type Internship struct {
	ID         string           `json:"id" yaml:"id"`
	Title      string           `json:"title" yaml:"title"`
	Company    string           `json:"company" yaml:"company"`
	Mentor     string           `json:"mentor" yaml:"mentor"`
	Status     InternshipStatus `json:"status" yaml:"status"`
	Week       *int             `json:"week,omitempty" yaml:"week,omitempty"`
	TotalWeeks *int             `json:"totalWeeks,omitempty" yaml:"totalWeeks,omitempty"`
	SpotsLeft  *int             `json:"spotsLeft,omitempty" yaml:"spotsLeft,omitempty"`
}

// VideoSource 视频来源
type VideoSource string

const (
	// VideoRemote 外部地址，可持久化
	VideoRemote VideoSource = "remote"
	// VideoLocal 本地上传生成的临时引用，仅在当前进程内有效
	VideoLocal VideoSource = "local"
)

// VideoRef 课时视频引用：Remote(url) 或 Local(handle)
// 只有 Remote 会写入持久化快照
type VideoRef struct {
	Source VideoSource
	URL    string
	Handle string
}

// RemoteVideo 构造外部视频引用
func RemoteVideo(url string) VideoRef {
	return VideoRef{Source: VideoRemote, URL: url}
}

// LocalVideo 构造本地临时视频引用
func LocalVideo(handle, url string) VideoRef {
	return VideoRef{Source: VideoLocal, URL: url, Handle: handle}
}

// IsLocal 是否为本地临时引用
func (v VideoRef) IsLocal() bool {
	return v.Source == VideoLocal
}

// Durable 是否可以跨进程持久化
func (v VideoRef) Durable() bool {
	return v.Source == VideoRemote && v.URL != ""
}

type videoRefJSON struct {
	Source VideoSource `json:"source"`
	URL    string      `json:"url"`
}

// MarshalJSON 输出 {"source": ..., "url": ...}，不暴露内部句柄
func (v VideoRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(videoRefJSON{Source: v.Source, URL: v.URL})
}

// UnmarshalJSON 只接受 remote 来源，本地引用无法跨进程恢复
func (v *VideoRef) UnmarshalJSON(data []byte) error {
	var raw videoRefJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Source != "" && raw.Source != VideoRemote {
		return fmt.Errorf("video source %q cannot be restored", raw.Source)
	}
	*v = RemoteVideo(raw.URL)
	return nil
}

// UnmarshalYAML 种子数据中视频以纯字符串地址给出
func (v *VideoRef) UnmarshalYAML(node *yaml.Node) error {
	var url string
	if err := node.Decode(&url); err != nil {
		return fmt.Errorf("videoUrl must be a string: %w", err)
	}
	*v = RemoteVideo(url)
	return nil
}

// MarshalYAML 输出远程地址，本地引用输出为空
func (v VideoRef) MarshalYAML() (interface{}, error) {
	if !v.Durable() {
		return nil, nil
	}
	return v.URL, nil
}

// Clone 深拷贝课程，避免调用方修改影响内部状态
func (c Course) Clone() Course {
	out := c
	if c.Lessons != nil {
		out.Lessons = make([]Lesson, len(c.Lessons))
		for i, l := range c.Lessons {
			out.Lessons[i] = l.Clone()
		}
	}
	return out
}

// Clone 深拷贝课时
func (l Lesson) Clone() Lesson {
	out := l
	if l.Quiz != nil {
		out.Quiz = make([]QuizQuestion, len(l.Quiz))
		for i, q := range l.Quiz {
			q.Options = append([]string(nil), q.Options...)
			out.Quiz[i] = q
		}
	}
	return out
}

// Lesson 按ID查找课时
func (c Course) Lesson(id string) (Lesson, bool) {
	if i := c.lessonIndex(id); i >= 0 {
		return c.Lessons[i], true
	}
	return Lesson{}, false
}

func (c Course) lessonIndex(id string) int {
	for i := range c.Lessons {
		if c.Lessons[i].ID == id {
			return i
		}
	}
	return -1
}

// CloneCourses 深拷贝课程列表
func CloneCourses(courses []Course) []Course {
	if courses == nil {
		return nil
	}
	out := make([]Course, len(courses))
	for i, c := range courses {
		out[i] = c.Clone()
	}
	return out
}
