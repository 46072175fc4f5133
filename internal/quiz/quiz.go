// Package quiz 提供课时测验的计分与作答状态
package quiz

import (
	"sync"

	"eduverse/internal/course"
)

// Score 统计答对的题目数，未作答视为答错
func Score(answers map[string]int, questions []course.QuizQuestion) int {
	score := 0
	for _, q := range questions {
		if chosen, ok := answers[q.ID]; ok && chosen == q.CorrectAnswer {
			score++
		}
	}
	return score
}

// Attempt 单个课时测验的一次作答
// 提交后答案锁定，直到 Retry 清空
type Attempt struct {
	Questions []course.QuizQuestion
	Answers   map[string]int
	Submitted bool
	Score     int
}

// NewAttempt 创建新的作答
func NewAttempt(questions []course.QuizQuestion) *Attempt {
	return &Attempt{
		Questions: questions,
		Answers:   make(map[string]int),
	}
}

// Select 记录题目的选项，已提交或题目不存在时忽略
// 返回: 是否记录成功
func (a *Attempt) Select(questionID string, option int) bool {
	if a.Submitted {
		return false
	}
	for _, q := range a.Questions {
		if q.ID == questionID {
			if option < 0 || option >= len(q.Options) {
				return false
			}
			a.Answers[questionID] = option
			return true
		}
	}
	return false
}

// CanSubmit 每道题都已作答且尚未提交
func (a *Attempt) CanSubmit() bool {
	if a.Submitted || len(a.Questions) == 0 {
		return false
	}
	for _, q := range a.Questions {
		if _, ok := a.Answers[q.ID]; !ok {
			return false
		}
	}
	return true
}

// Submit 计分并锁定答案，重复提交不改变结果
func (a *Attempt) Submit() int {
	if a.Submitted {
		return a.Score
	}
	a.Score = Score(a.Answers, a.Questions)
	a.Submitted = true
	return a.Score
}

// Retry 清空答案与提交状态
func (a *Attempt) Retry() {
	a.Answers = make(map[string]int)
	a.Submitted = false
	a.Score = 0
}

// Perfect 已提交且全部答对
func (a *Attempt) Perfect() bool {
	return a.Submitted && a.Score == len(a.Questions)
}

// QuestionView 对外展示的题目，提交前不包含正确答案
type QuestionView struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Selected      *int     `json:"selected,omitempty"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
	Correct       *bool    `json:"correct,omitempty"`
}

// View 作答状态的展示结构
type View struct {
	Questions []QuestionView `json:"questions"`
	Answered  int            `json:"answered"`
	Total     int            `json:"total"`
	CanSubmit bool           `json:"canSubmit"`
	Submitted bool           `json:"submitted"`
	Score     int            `json:"score"`
	Perfect   bool           `json:"perfect"`
}

// View 生成展示结构
func (a *Attempt) View() View {
	v := View{
		Questions: make([]QuestionView, len(a.Questions)),
		Answered:  len(a.Answers),
		Total:     len(a.Questions),
		CanSubmit: a.CanSubmit(),
		Submitted: a.Submitted,
		Score:     a.Score,
		Perfect:   a.Perfect(),
	}
	for i, q := range a.Questions {
		qv := QuestionView{
			ID:       q.ID,
			Question: q.Question,
			Options:  append([]string(nil), q.Options...),
		}
		if chosen, ok := a.Answers[q.ID]; ok {
			c := chosen
			qv.Selected = &c
		}
		if a.Submitted {
			correct := q.CorrectAnswer
			qv.CorrectAnswer = &correct
			ok := qv.Selected != nil && *qv.Selected == correct
			qv.Correct = &ok
		}
		v.Questions[i] = qv
	}
	return v
}

// Sessions 按课程与课时保存作答，供 HTTP 层使用
type Sessions struct {
	mu       sync.Mutex
	attempts map[string]*Attempt
}

// NewSessions 创建空的作答集合
func NewSessions() *Sessions {
	return &Sessions{attempts: make(map[string]*Attempt)}
}

func sessionKey(courseID, lessonID string) string {
	return courseID + "/" + lessonID
}

// With 在锁内获取（必要时创建）课时作答并执行 fn
// 题目列表变化（例如种子更新）时重新开始作答
func (s *Sessions) With(courseID, lessonID string, questions []course.QuizQuestion, fn func(a *Attempt)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(courseID, lessonID)
	a, ok := s.attempts[key]
	if !ok || !sameQuestions(a.Questions, questions) {
		a = NewAttempt(questions)
		s.attempts[key] = a
	}
	fn(a)
}

// Reset 清空全部作答，用户切换时调用
func (s *Sessions) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = make(map[string]*Attempt)
}

func sameQuestions(a, b []course.QuizQuestion) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].CorrectAnswer != b[i].CorrectAnswer || len(a[i].Options) != len(b[i].Options) {
			return false
		}
	}
	return true
}
