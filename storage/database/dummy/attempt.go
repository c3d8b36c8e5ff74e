package dummydb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtihani/core/attempt"
	"github.com/trezcool/mtihani/core/quiz"
)

// attemptRepository keeps attempts and their answers behind a single mutex so
// the finish compare-and-set is atomic, same as the database's row lock.
type attemptRepository struct {
	mu       sync.Mutex
	attempts map[string]attempt.Attempt
	answers  map[string][]attempt.Answer // keyed by attempt ID, in question order
}

var _ attempt.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository() *attemptRepository {
	return &attemptRepository{
		attempts: make(map[string]attempt.Attempt),
		answers:  make(map[string][]attempt.Answer),
	}
}

func (repo *attemptRepository) CreateAttempt(_ context.Context, att attempt.Attempt, answers []attempt.Answer) (attempt.Attempt, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, other := range repo.attempts {
		if other.QuizID != att.QuizID || other.StudentID != att.StudentID {
			continue
		}
		if !other.Finished() || other.Number == att.Number {
			return attempt.Attempt{}, attempt.ErrAttemptExists
		}
	}

	repo.attempts[att.ID] = att
	repo.answers[att.ID] = append([]attempt.Answer(nil), answers...)
	return att, nil
}

func (repo *attemptRepository) GetAttemptByID(_ context.Context, id string) (attempt.Attempt, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	att, ok := repo.attempts[id]
	if !ok {
		return attempt.Attempt{}, attempt.ErrNotFound
	}
	return att, nil
}

func (repo *attemptRepository) GetActiveAttempt(_ context.Context, quizID, studentID string) (attempt.Attempt, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, att := range repo.attempts {
		if att.QuizID == quizID && att.StudentID == studentID && !att.Finished() {
			return att, nil
		}
	}
	return attempt.Attempt{}, attempt.ErrNoActiveAttempt
}

func (repo *attemptRepository) GetLatestAttempt(_ context.Context, quizID, studentID string) (attempt.Attempt, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var latest attempt.Attempt
	for _, att := range repo.attempts {
		if att.QuizID == quizID && att.StudentID == studentID && att.Number > latest.Number {
			latest = att
		}
	}
	if latest.Number == 0 {
		return attempt.Attempt{}, attempt.ErrNotFound
	}
	return latest, nil
}

func (repo *attemptRepository) CountAttempts(_ context.Context, quizID, studentID string) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var count int
	for _, att := range repo.attempts {
		if att.QuizID == quizID && att.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (repo *attemptRepository) QueryAttempts(_ context.Context, quizID, studentID string) ([]attempt.Attempt, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var attempts []attempt.Attempt
	for _, att := range repo.attempts {
		if att.QuizID == quizID && att.StudentID == studentID {
			attempts = append(attempts, att)
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].Number < attempts[j].Number })
	return attempts, nil
}

func (repo *attemptRepository) GetAnswers(_ context.Context, attemptID string) ([]attempt.Answer, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return append([]attempt.Answer(nil), repo.answers[attemptID]...), nil
}

func (repo *attemptRepository) UpdateAnswer(_ context.Context, attemptID, questionID string, values []string, now time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	att, ok := repo.attempts[attemptID]
	if !ok || att.Finished() {
		return attempt.ErrNoActiveAttempt
	}
	answers := repo.answers[attemptID]
	for i, ans := range answers {
		if ans.QuestionID == questionID {
			ans.Values = append([]string(nil), values...)
			ans.IsTouched = true
			ans.UpdatedAt = now
			answers[i] = ans
			return nil
		}
	}
	return attempt.ErrNoActiveAttempt
}

func (repo *attemptRepository) SetCurrentQuestion(_ context.Context, attemptID string, index int, now time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	att, ok := repo.attempts[attemptID]
	if !ok || att.Finished() {
		return attempt.ErrNoActiveAttempt
	}
	att.CurrentQuestion = index
	att.UpdatedAt = now
	repo.attempts[attemptID] = att
	return nil
}

func (repo *attemptRepository) FinishAttempt(_ context.Context, attemptID string, finishedAt time.Time, grade attempt.GradeFunc) (attempt.Attempt, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	att, ok := repo.attempts[attemptID]
	if !ok {
		return attempt.Attempt{}, attempt.ErrNotFound
	}
	if att.Finished() {
		return attempt.Attempt{}, attempt.ErrAlreadyFinished
	}

	score, err := grade(append([]attempt.Answer(nil), repo.answers[attemptID]...))
	if err != nil {
		return attempt.Attempt{}, err
	}

	att.FinishedAt = null.TimeFrom(finishedAt)
	att.Grade = null.Float64From(score)
	att.UpdatedAt = finishedAt
	repo.attempts[attemptID] = att
	return att, nil
}

func (repo *attemptRepository) SetAnswerGrade(_ context.Context, attemptID, questionID string, grade float64, now time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	answers := repo.answers[attemptID]
	for i, ans := range answers {
		if ans.QuestionID == questionID {
			ans.Grade = null.Float64From(grade)
			ans.UpdatedAt = now
			answers[i] = ans
			return nil
		}
	}
	return quiz.ErrQuestionNotFound
}

func (repo *attemptRepository) SetFeedback(_ context.Context, attemptID, feedback string, now time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	att, ok := repo.attempts[attemptID]
	if !ok {
		return attempt.ErrNotFound
	}
	att.Feedback = null.StringFrom(feedback)
	att.UpdatedAt = now
	repo.attempts[attemptID] = att
	return nil
}
