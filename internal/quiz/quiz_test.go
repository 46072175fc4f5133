package quiz

import (
	"testing"

	"eduverse/internal/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleQuestions() []course.QuizQuestion {
	return []course.QuizQuestion{
		{ID: "q1", Question: "2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: 1},
		{ID: "q2", Question: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectAnswer: 0},
	}
}

func TestScore(t *testing.T) {
	qs := sampleQuestions()
	tests := []struct {
		name    string
		answers map[string]int
		want    int
	}{
		{"one correct one wrong", map[string]int{"q1": 1, "q2": 1}, 1},
		{"all correct", map[string]int{"q1": 1, "q2": 0}, 2},
		{"no answers", map[string]int{}, 0},
		{"nil answers", nil, 0},
		{"unknown ids ignored", map[string]int{"q9": 0, "q1": 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.answers, qs))
		})
	}
}

func TestScore_BoundedByQuestionCount(t *testing.T) {
	qs := sampleQuestions()
	got := Score(map[string]int{"q1": 1, "q2": 0, "q3": 2}, qs)
	assert.LessOrEqual(t, got, len(qs))
}

func TestAttempt_SubmitFlow(t *testing.T) {
	a := NewAttempt(sampleQuestions())

	assert.False(t, a.CanSubmit())
	require.True(t, a.Select("q1", 1))
	assert.False(t, a.CanSubmit(), "submit needs every question answered")
	require.True(t, a.Select("q2", 1))
	assert.True(t, a.CanSubmit())

	assert.Equal(t, 1, a.Submit())
	assert.False(t, a.Perfect())

	assert.False(t, a.Select("q2", 0), "answers are frozen after submit")
	assert.Equal(t, 1, a.Submit())
	assert.False(t, a.CanSubmit())
}

func TestAttempt_SelectRejectsInvalid(t *testing.T) {
	a := NewAttempt(sampleQuestions())
	assert.False(t, a.Select("q9", 0))
	assert.False(t, a.Select("q1", 3))
	assert.False(t, a.Select("q1", -1))
	assert.Empty(t, a.Answers)
}

func TestAttempt_Retry(t *testing.T) {
	a := NewAttempt(sampleQuestions())
	a.Select("q1", 0)
	a.Select("q2", 0)
	a.Submit()

	a.Retry()

	assert.False(t, a.Submitted)
	assert.Zero(t, a.Score)
	assert.Empty(t, a.Answers)

	a.Select("q1", 1)
	a.Select("q2", 0)
	assert.Equal(t, 2, a.Submit())
	assert.True(t, a.Perfect())
}

func TestAttempt_ViewHidesAnswersUntilSubmit(t *testing.T) {
	a := NewAttempt(sampleQuestions())
	a.Select("q1", 1)

	v := a.View()
	require.Len(t, v.Questions, 2)
	assert.Nil(t, v.Questions[0].CorrectAnswer)
	require.NotNil(t, v.Questions[0].Selected)
	assert.Equal(t, 1, *v.Questions[0].Selected)
	assert.Nil(t, v.Questions[1].Selected)
	assert.Equal(t, 1, v.Answered)

	a.Select("q2", 1)
	a.Submit()
	v = a.View()
	require.NotNil(t, v.Questions[1].Correct)
	assert.True(t, *v.Questions[0].Correct)
	assert.False(t, *v.Questions[1].Correct)
	assert.Equal(t, 0, *v.Questions[1].CorrectAnswer)
}

func TestSessions_KeyedByLesson(t *testing.T) {
	s := NewSessions()
	qs := sampleQuestions()

	s.With("k12_1", "l1", qs, func(a *Attempt) { a.Select("q1", 1) })
	s.With("k12_1", "l2", qs, func(a *Attempt) { assert.Empty(t, a.Answers) })
	s.With("k12_1", "l1", qs, func(a *Attempt) { assert.Equal(t, 1, a.Answers["q1"]) })

	changed := qs[:1]
	s.With("k12_1", "l1", changed, func(a *Attempt) {
		assert.Empty(t, a.Answers, "changed question set restarts the attempt")
	})

	s.Reset()
	s.With("k12_1", "l1", changed, func(a *Attempt) { assert.Empty(t, a.Answers) })
}
