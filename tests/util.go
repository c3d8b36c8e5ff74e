package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtihani/core"
	"github.com/trezcool/mtihani/core/quiz"
)

// Clock is a manually advanced core.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

var _ core.Clock = (*Clock)(nil)

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// NewConfig returns an app config suitable for tests.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode: true,
		AppName:  "Mtihani",
		Grading: core.GradingConfig{
			TrimShortAnswer:     true,
			FoldShortAnswerCase: true,
		},
	}
}

// Question builds a quiz.Question with generated IDs.
func Question(qzID string, order int, typ quiz.QuestionType, prompt string, options, correct []string, points float64) quiz.Question {
	return quiz.Question{
		ID:            uuid.New().String(),
		QuizID:        qzID,
		Prompt:        prompt,
		Type:          typ,
		Options:       options,
		CorrectAnswer: correct,
		Points:        points,
		Order:         order,
	}
}

// CreateQuiz stores a quiz with the given questions and time limits.
func CreateQuiz(
	t *testing.T,
	repo quiz.Repository,
	title string,
	questions []quiz.Question,
	duration, maxAttempts null.Int,
	dueDate null.Time,
	published bool,
) quiz.Quiz {
	t.Helper()

	tstamp := time.Now().UTC()
	qz := quiz.Quiz{
		ID:              uuid.New().String(),
		Title:           title,
		Questions:       questions,
		DurationSeconds: duration,
		MaxAttempts:     maxAttempts,
		DueDate:         dueDate,
		IsPublished:     published,
		CreatedAt:       tstamp,
		UpdatedAt:       tstamp,
	}
	for i := range qz.Questions {
		qz.Questions[i].QuizID = qz.ID
	}
	qz, err := repo.CreateQuiz(context.Background(), qz)
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return qz
}
