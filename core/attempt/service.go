package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtihani/core"
	"github.com/trezcool/mtihani/core/quiz"
)

var (
	// errors
	ErrNotFound             = errors.New("attempt not found")
	ErrNoActiveAttempt      = errors.New("no attempt in progress")
	ErrAlreadyFinished      = errors.New("attempt already finished")
	ErrAttemptLimitExceeded = errors.New("maximum number of attempts reached")
	ErrQuizClosed           = errors.New("quiz is past its due date")
	ErrNotFinished          = errors.New("attempt is still in progress")
	// ErrAttemptExists is returned by repositories when creating an attempt
	// conflicts with an existing unfinished one (concurrent starts).
	ErrAttemptExists = errors.New("an attempt is already in progress")
)

type (
	// GradeFunc computes the aggregate grade of an attempt from its answers.
	// Repositories invoke it inside the finishing transaction so the grade
	// and FinishedAt are committed together.
	GradeFunc func(answers []Answer) (float64, error)

	Repository interface {
		// CreateAttempt persists the attempt and its full answer set as a
		// single atomic unit. Returns ErrAttemptExists when an unfinished
		// attempt already exists for the same (quiz, student).
		CreateAttempt(ctx context.Context, att Attempt, answers []Answer) (Attempt, error)
		GetAttemptByID(ctx context.Context, id string) (Attempt, error)
		// GetActiveAttempt returns the single unfinished attempt for
		// (quiz, student), or ErrNoActiveAttempt.
		GetActiveAttempt(ctx context.Context, quizID, studentID string) (Attempt, error)
		GetLatestAttempt(ctx context.Context, quizID, studentID string) (Attempt, error)
		CountAttempts(ctx context.Context, quizID, studentID string) (int, error)
		// QueryAttempts returns all attempts for (quiz, student) by number, ascending.
		QueryAttempts(ctx context.Context, quizID, studentID string) ([]Attempt, error)
		// GetAnswers returns the attempt's answers in question order.
		GetAnswers(ctx context.Context, attemptID string) ([]Answer, error)
		// UpdateAnswer overwrites the answer's values and marks it touched,
		// only while the attempt is unfinished (conditional update, not
		// check-then-act). Returns ErrNoActiveAttempt otherwise.
		UpdateAnswer(ctx context.Context, attemptID, questionID string, values []string, now time.Time) error
		// SetCurrentQuestion records the advisory last-viewed question index
		// while the attempt is unfinished.
		SetCurrentQuestion(ctx context.Context, attemptID string, index int, now time.Time) error
		// FinishAttempt applies the terminal transition at most once:
		// FinishedAt is set only where it is still null (compare-and-set),
		// the grade function runs on the frozen answers and both writes
		// commit in one transaction. Returns ErrAlreadyFinished to a losing
		// racer and leaves the attempt untouched.
		FinishAttempt(ctx context.Context, attemptID string, finishedAt time.Time, grade GradeFunc) (Attempt, error)
		// SetAnswerGrade records a manual per-question override.
		SetAnswerGrade(ctx context.Context, attemptID, questionID string, grade float64, now time.Time) error
		SetFeedback(ctx context.Context, attemptID, feedback string, now time.Time) error
	}

	ServiceInterface interface {
		Start(ctx context.Context, quizID, studentID string) (Attempt, error)
		Answer(ctx context.Context, quizID, studentID, questionID string, values []string) error
		Session(ctx context.Context, quizID, studentID string) (Session, error)
		Navigate(ctx context.Context, quizID, studentID string, index int) error
		Submit(ctx context.Context, quizID, studentID string) (Attempt, error)
		Attempts(ctx context.Context, quizID, studentID string) ([]Attempt, error)
		Review(ctx context.Context, quizID, studentID string, number int) ([]QuestionReview, error)
		GradeAnswer(ctx context.Context, attemptID, questionID string, grade float64) error
		SetFeedback(ctx context.Context, attemptID, feedback string) error
	}

	Service struct {
		repo    Repository
		quizzes quiz.Repository
		clock   core.Clock
		grader  Grader
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, quizzes quiz.Repository, clock core.Clock, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		quizzes: quizzes,
		clock:   clock,
		grader:  NewGrader(conf.Grading),
	}
}

// Start opens an attempt for (quiz, student). Re-opening while an attempt is
// in progress returns that attempt unchanged; a learner reloading the quiz
// page must never lose or duplicate it.
func (svc *Service) Start(ctx context.Context, quizID, studentID string) (Attempt, error) {
	qz, err := svc.getPublishedQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}

	if att, err := svc.repo.GetActiveAttempt(ctx, quizID, studentID); err == nil {
		return att, nil
	} else if err != ErrNoActiveAttempt {
		return Attempt{}, err
	}

	count, err := svc.repo.CountAttempts(ctx, quizID, studentID)
	if err != nil {
		return Attempt{}, err
	}
	if err := qz.Policy(svc.clock).CheckStart(count); err != nil {
		switch err {
		case core.ErrAttemptLimitReached:
			return Attempt{}, ErrAttemptLimitExceeded
		case core.ErrDeadlinePassed:
			return Attempt{}, ErrQuizClosed
		}
		return Attempt{}, err
	}

	now := svc.clock.Now().UTC()
	att := Attempt{
		ID:        uuid.New().String(),
		QuizID:    quizID,
		StudentID: studentID,
		Number:    count + 1,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	answers := make([]Answer, 0, len(qz.Questions))
	for _, qn := range qz.Questions {
		answers = append(answers, Answer{
			ID:         uuid.New().String(),
			AttemptID:  att.ID,
			QuestionID: qn.ID,
			Values:     []string{},
			UpdatedAt:  now,
		})
	}

	att, err = svc.repo.CreateAttempt(ctx, att, answers)
	if err == ErrAttemptExists {
		// lost a concurrent start; the other attempt is the one to resume
		return svc.repo.GetActiveAttempt(ctx, quizID, studentID)
	}
	return att, err
}

// Answer records the learner's response to one question of the active
// attempt, last write wins. Values are stored as given; option validation is
// the presentation layer's concern so retries stay cheap.
func (svc *Service) Answer(ctx context.Context, quizID, studentID, questionID string, values []string) error {
	qz, err := svc.getPublishedQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	att, err := svc.repo.GetActiveAttempt(ctx, quizID, studentID)
	if err != nil {
		return err
	}
	if _, ok := qz.Question(questionID); !ok {
		return quiz.ErrQuestionNotFound
	}

	// a late write past the time budget must be rejected, not accepted
	if qz.Policy(svc.clock).Expired(att.StartedAt) {
		if _, err := svc.finish(ctx, att, qz); err != nil && err != ErrAlreadyFinished {
			return err
		}
		return ErrNoActiveAttempt
	}

	if values == nil {
		values = []string{} // an explicit empty selection still touches
	}
	return svc.repo.UpdateAnswer(ctx, att.ID, questionID, values, svc.clock.Now().UTC())
}

// Session returns a snapshot of the active attempt. When the time budget is
// exhausted it applies the same terminal transition as Submit first and
// reports Expired instead of a live countdown.
func (svc *Service) Session(ctx context.Context, quizID, studentID string) (Session, error) {
	qz, err := svc.getPublishedQuiz(ctx, quizID)
	if err != nil {
		return Session{}, err
	}
	att, err := svc.repo.GetActiveAttempt(ctx, quizID, studentID)
	if err != nil {
		return Session{}, err
	}

	pol := qz.Policy(svc.clock)
	if pol.Expired(att.StartedAt) {
		fin, err := svc.finish(ctx, att, qz)
		if err == ErrAlreadyFinished {
			// a concurrent submit/read won the transition; same outcome
			fin, err = svc.repo.GetAttemptByID(ctx, att.ID)
		}
		if err != nil {
			return Session{}, err
		}
		answers, err := svc.repo.GetAnswers(ctx, att.ID)
		if err != nil {
			return Session{}, err
		}
		return Session{Attempt: fin, Quiz: qz, Answers: answers, Expired: true}, nil
	}

	answers, err := svc.repo.GetAnswers(ctx, att.ID)
	if err != nil {
		return Session{}, err
	}
	sess := Session{Attempt: att, Quiz: qz, Answers: answers}
	if pol.Bounded() {
		sess.Remaining = null.IntFrom(int(pol.Remaining(att.StartedAt) / time.Second))
	}
	return sess, nil
}

// Navigate records the advisory last-viewed question index.
func (svc *Service) Navigate(ctx context.Context, quizID, studentID string, index int) error {
	qz, err := svc.getPublishedQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	att, err := svc.repo.GetActiveAttempt(ctx, quizID, studentID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(qz.Questions) {
		return core.NewValidationError(nil, core.FieldError{Field: "index", Error: "question index out of range"})
	}
	return svc.repo.SetCurrentQuestion(ctx, att.ID, index, svc.clock.Now().UTC())
}

// Submit closes the active attempt and grades it. An explicit submit against
// an already-finished attempt fails with ErrAlreadyFinished to surface
// client bugs; losing a race against the expiry enforcer does not.
func (svc *Service) Submit(ctx context.Context, quizID, studentID string) (Attempt, error) {
	qz, err := svc.getPublishedQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	att, err := svc.repo.GetActiveAttempt(ctx, quizID, studentID)
	if err == ErrNoActiveAttempt {
		if latest, lerr := svc.repo.GetLatestAttempt(ctx, quizID, studentID); lerr == nil && latest.Finished() {
			return Attempt{}, ErrAlreadyFinished
		}
		return Attempt{}, ErrNoActiveAttempt
	} else if err != nil {
		return Attempt{}, err
	}

	fin, err := svc.finish(ctx, att, qz)
	if err == ErrAlreadyFinished {
		// the attempt was observed unfinished above, so this submit lost the
		// race against the expiry enforcer: same terminal state, success
		return svc.repo.GetAttemptByID(ctx, att.ID)
	}
	return fin, err
}

// Attempts returns the student's attempt history for the quiz, oldest first.
func (svc *Service) Attempts(ctx context.Context, quizID, studentID string) ([]Attempt, error) {
	if _, err := svc.getPublishedQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAttempts(ctx, quizID, studentID)
}

// Review re-runs the correctness predicate over a finished attempt and
// returns per-question results, reporting any manual override alongside the
// automatic contribution. Read-only; the persisted grade is never touched.
func (svc *Service) Review(ctx context.Context, quizID, studentID string, number int) ([]QuestionReview, error) {
	qz, err := svc.getPublishedQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	atts, err := svc.repo.QueryAttempts(ctx, quizID, studentID)
	if err != nil {
		return nil, err
	}
	var att Attempt
	var found bool
	for _, a := range atts {
		if a.Number == number {
			att, found = a, true
			break
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	if !att.Finished() {
		return nil, ErrNotFinished
	}

	answers, err := svc.repo.GetAnswers(ctx, att.ID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[string]Answer, len(answers))
	for _, ans := range answers {
		byQuestion[ans.QuestionID] = ans
	}

	reviews := make([]QuestionReview, 0, len(qz.Questions))
	for _, qn := range qz.Questions {
		ans, ok := byQuestion[qn.ID]
		if !ok {
			continue
		}
		correct, err := svc.grader.Correct(qn, ans)
		if err != nil {
			return nil, err
		}
		rev := QuestionReview{Question: qn, Answer: ans, Correct: correct, Override: ans.Grade}
		if correct {
			rev.Awarded = qn.Points
		}
		reviews = append(reviews, rev)
	}
	return reviews, nil
}

// GradeAnswer sets an instructor's manual override score on one answer of a
// finished attempt. The automatic engine never overwrites it.
func (svc *Service) GradeAnswer(ctx context.Context, attemptID, questionID string, grade float64) error {
	att, err := svc.repo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if !att.Finished() {
		return ErrNotFinished
	}
	if grade < 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "grade", Error: "grade cannot be negative"})
	}
	return svc.repo.SetAnswerGrade(ctx, attemptID, questionID, grade, svc.clock.Now().UTC())
}

// SetFeedback records instructor feedback on a finished attempt.
func (svc *Service) SetFeedback(ctx context.Context, attemptID, feedback string) error {
	att, err := svc.repo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if !att.Finished() {
		return ErrNotFinished
	}
	return svc.repo.SetFeedback(ctx, attemptID, core.CleanString(feedback), svc.clock.Now().UTC())
}

// finish applies the terminal transition: FinishedAt and the aggregate grade
// are committed together, at most once per attempt.
func (svc *Service) finish(ctx context.Context, att Attempt, qz quiz.Quiz) (Attempt, error) {
	return svc.repo.FinishAttempt(ctx, att.ID, svc.clock.Now().UTC(), func(answers []Answer) (float64, error) {
		return svc.grader.GradeAttempt(qz.Questions, answers)
	})
}

func (svc *Service) getPublishedQuiz(ctx context.Context, quizID string) (quiz.Quiz, error) {
	qz, err := svc.quizzes.GetQuizByID(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, err
	}
	if !qz.IsPublished {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return qz, nil
}
