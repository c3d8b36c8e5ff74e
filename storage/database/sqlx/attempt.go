package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtihani/core/attempt"
	"github.com/trezcool/mtihani/core/quiz"
)

type (
	attemptRow struct {
		ID              string       `db:"id"`
		QuizID          string       `db:"quiz_id"`
		StudentID       string       `db:"student_id"`
		Number          int          `db:"number"`
		StartedAt       time.Time    `db:"started_at"`
		FinishedAt      null.Time    `db:"finished_at"`
		CurrentQuestion int          `db:"current_question"`
		Grade           null.Float64 `db:"grade"`
		Feedback        null.String  `db:"feedback"`
		CreatedAt       time.Time    `db:"created_at"`
		UpdatedAt       time.Time    `db:"updated_at"`
	}

	answerRow struct {
		ID         string         `db:"id"`
		AttemptID  string         `db:"attempt_id"`
		QuestionID string         `db:"question_id"`
		Values     pq.StringArray `db:"values"`
		IsTouched  bool           `db:"is_touched"`
		Grade      null.Float64   `db:"grade"`
		UpdatedAt  time.Time      `db:"updated_at"`
	}
)

func (r attemptRow) unpack() attempt.Attempt {
	return attempt.Attempt{
		ID:              r.ID,
		QuizID:          r.QuizID,
		StudentID:       r.StudentID,
		Number:          r.Number,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		CurrentQuestion: r.CurrentQuestion,
		Grade:           r.Grade,
		Feedback:        r.Feedback,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (r answerRow) unpack() attempt.Answer {
	return attempt.Answer{
		ID:         r.ID,
		AttemptID:  r.AttemptID,
		QuestionID: r.QuestionID,
		Values:     r.Values,
		IsTouched:  r.IsTouched,
		Grade:      r.Grade,
		UpdatedAt:  r.UpdatedAt,
	}
}

type attemptRepository struct {
	db *sqlx.DB
}

var _ attempt.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(db *sql.DB) *attemptRepository {
	return &attemptRepository{db: sqlx.NewDb(db, "postgres")}
}

// isUniqueViolation reports whether err is a postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == "23505"
}

const answersQuery = `
SELECT a.id, a.attempt_id, a.question_id, a."values", a.is_touched, a.grade, a.updated_at
FROM answer a
JOIN question q ON q.id = a.question_id
WHERE a.attempt_id = $1
ORDER BY q."order"`

func (repo attemptRepository) CreateAttempt(ctx context.Context, att attempt.Attempt, answers []attempt.Answer) (attempt.Attempt, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return attempt.Attempt{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO attempt (id, quiz_id, student_id, number, started_at, current_question, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		att.ID, att.QuizID, att.StudentID, att.Number, att.StartedAt, att.CurrentQuestion, att.CreatedAt, att.UpdatedAt,
	)
	if err != nil {
		// attempt_active_key or the (quiz, student, number) key; either way
		// a concurrent start won the race.
		if isUniqueViolation(err) {
			return attempt.Attempt{}, attempt.ErrAttemptExists
		}
		return attempt.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	for _, ans := range answers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO answer (id, attempt_id, question_id, "values", is_touched, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			ans.ID, ans.AttemptID, ans.QuestionID, pq.StringArray(ans.Values), ans.IsTouched, ans.UpdatedAt,
		)
		if err != nil {
			return attempt.Attempt{}, errors.Wrap(err, "inserting answer")
		}
	}

	if err = tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return attempt.Attempt{}, attempt.ErrAttemptExists
		}
		return attempt.Attempt{}, errors.Wrap(err, "committing attempt")
	}
	return att, nil
}

func (repo attemptRepository) GetAttemptByID(ctx context.Context, id string) (attempt.Attempt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attempt.Attempt{}, attempt.ErrNotFound
	}

	var row attemptRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM attempt WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return attempt.Attempt{}, attempt.ErrNotFound
		}
		return attempt.Attempt{}, errors.Wrap(err, "finding attempt by ID")
	}
	return row.unpack(), nil
}

func (repo attemptRepository) GetActiveAttempt(ctx context.Context, quizID, studentID string) (attempt.Attempt, error) {
	var row attemptRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM attempt WHERE quiz_id = $1 AND student_id = $2 AND finished_at IS NULL`,
		quizID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return attempt.Attempt{}, attempt.ErrNoActiveAttempt
		}
		return attempt.Attempt{}, errors.Wrap(err, "finding active attempt")
	}
	return row.unpack(), nil
}

func (repo attemptRepository) GetLatestAttempt(ctx context.Context, quizID, studentID string) (attempt.Attempt, error) {
	var row attemptRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM attempt WHERE quiz_id = $1 AND student_id = $2 ORDER BY number DESC LIMIT 1`,
		quizID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return attempt.Attempt{}, attempt.ErrNotFound
		}
		return attempt.Attempt{}, errors.Wrap(err, "finding latest attempt")
	}
	return row.unpack(), nil
}

func (repo attemptRepository) CountAttempts(ctx context.Context, quizID, studentID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM attempt WHERE quiz_id = $1 AND student_id = $2`,
		quizID, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "counting attempts")
	}
	return count, nil
}

func (repo attemptRepository) QueryAttempts(ctx context.Context, quizID, studentID string) ([]attempt.Attempt, error) {
	var rows []attemptRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM attempt WHERE quiz_id = $1 AND student_id = $2 ORDER BY number`,
		quizID, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	attempts := make([]attempt.Attempt, 0, len(rows))
	for _, r := range rows {
		attempts = append(attempts, r.unpack())
	}
	return attempts, nil
}

func (repo attemptRepository) GetAnswers(ctx context.Context, attemptID string) ([]attempt.Answer, error) {
	var rows []answerRow
	if err := repo.db.SelectContext(ctx, &rows, answersQuery, attemptID); err != nil {
		return nil, errors.Wrap(err, "querying answers")
	}
	answers := make([]attempt.Answer, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, r.unpack())
	}
	return answers, nil
}

// UpdateAnswer overwrites an answer's selected values. The write is guarded by
// the attempt still being active: once a finish commits, saves are rejected.
// A save racing an in-flight finish may still commit against the grade
// snapshot; the review path re-grades from stored answers, so correctness
// there is never stale.
func (repo attemptRepository) UpdateAnswer(ctx context.Context, attemptID, questionID string, values []string, now time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE answer SET "values" = $3, is_touched = TRUE, updated_at = $4
		 FROM attempt
		 WHERE answer.attempt_id = attempt.id
		   AND attempt.id = $1
		   AND answer.question_id = $2
		   AND attempt.finished_at IS NULL`,
		attemptID, questionID, pq.StringArray(values), now)
	if err != nil {
		return errors.Wrap(err, "updating answer")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attempt.ErrNoActiveAttempt
	}
	return nil
}

func (repo attemptRepository) SetCurrentQuestion(ctx context.Context, attemptID string, index int, now time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE attempt SET current_question = $2, updated_at = $3 WHERE id = $1 AND finished_at IS NULL`,
		attemptID, index, now)
	if err != nil {
		return errors.Wrap(err, "updating position")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attempt.ErrNoActiveAttempt
	}
	return nil
}

// FinishAttempt freezes the attempt and grades it in a single transaction.
// The compare-and-set on finished_at guarantees exactly one caller finishes;
// the loser gets ErrAlreadyFinished and the stored grade is never overwritten.
func (repo attemptRepository) FinishAttempt(ctx context.Context, attemptID string, finishedAt time.Time, grade attempt.GradeFunc) (attempt.Attempt, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return attempt.Attempt{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE attempt SET finished_at = $2, updated_at = $2 WHERE id = $1 AND finished_at IS NULL`,
		attemptID, finishedAt)
	if err != nil {
		return attempt.Attempt{}, errors.Wrap(err, "finishing attempt")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attempt.Attempt{}, attempt.ErrAlreadyFinished
	}

	var ansRows []answerRow
	if err = tx.SelectContext(ctx, &ansRows, answersQuery, attemptID); err != nil {
		return attempt.Attempt{}, errors.Wrap(err, "querying answers")
	}
	answers := make([]attempt.Answer, 0, len(ansRows))
	for _, r := range ansRows {
		answers = append(answers, r.unpack())
	}

	score, err := grade(answers)
	if err != nil {
		return attempt.Attempt{}, errors.Wrap(err, "grading attempt")
	}

	_, err = tx.ExecContext(ctx, `UPDATE attempt SET grade = $2 WHERE id = $1`, attemptID, score)
	if err != nil {
		return attempt.Attempt{}, errors.Wrap(err, "storing grade")
	}

	var row attemptRow
	if err = tx.GetContext(ctx, &row, `SELECT * FROM attempt WHERE id = $1`, attemptID); err != nil {
		return attempt.Attempt{}, errors.Wrap(err, "reloading attempt")
	}

	if err = tx.Commit(); err != nil {
		return attempt.Attempt{}, errors.Wrap(err, "committing finish")
	}
	return row.unpack(), nil
}

func (repo attemptRepository) SetAnswerGrade(ctx context.Context, attemptID, questionID string, grade float64, now time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE answer SET grade = $3, updated_at = $4 WHERE attempt_id = $1 AND question_id = $2`,
		attemptID, questionID, grade, now)
	if err != nil {
		return errors.Wrap(err, "overriding answer grade")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.ErrQuestionNotFound
	}
	return nil
}

func (repo attemptRepository) SetFeedback(ctx context.Context, attemptID, feedback string, now time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE attempt SET feedback = $2, updated_at = $3 WHERE id = $1`,
		attemptID, feedback, now)
	if err != nil {
		return errors.Wrap(err, "setting feedback")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attempt.ErrNotFound
	}
	return nil
}
