package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtihani/core"
	"github.com/trezcool/mtihani/core/quiz"
)

type (
	quizRow struct {
		ID              string    `db:"id"`
		Title           string    `db:"title"`
		Description     string    `db:"description"`
		DurationSeconds null.Int  `db:"duration_seconds"`
		MaxAttempts     null.Int  `db:"max_attempts"`
		DueDate         null.Time `db:"due_date"`
		IsPublished     bool      `db:"is_published"`
		CreatedAt       time.Time `db:"created_at"`
		UpdatedAt       time.Time `db:"updated_at"`
	}

	questionRow struct {
		ID            string         `db:"id"`
		QuizID        string         `db:"quiz_id"`
		Prompt        string         `db:"prompt"`
		Type          string         `db:"type"`
		Options       pq.StringArray `db:"options"`
		CorrectAnswer pq.StringArray `db:"correct_answer"`
		Points        float64        `db:"points"`
		Order         int            `db:"order"`
	}
)

func (r quizRow) unpack(questions []quiz.Question) quiz.Quiz {
	return quiz.Quiz{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Questions:       questions,
		DurationSeconds: r.DurationSeconds,
		MaxAttempts:     r.MaxAttempts,
		DueDate:         r.DueDate,
		IsPublished:     r.IsPublished,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (r questionRow) unpack() quiz.Question {
	return quiz.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		Prompt:        r.Prompt,
		Type:          quiz.QuestionType(r.Type),
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Points:        r.Points,
		Order:         r.Order,
	}
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sql.DB) *quizRepository {
	return &quizRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo quizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO quiz (id, title, description, duration_seconds, max_attempts, due_date, is_published, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		qz.ID, qz.Title, qz.Description, qz.DurationSeconds, qz.MaxAttempts, qz.DueDate, qz.IsPublished, qz.CreatedAt, qz.UpdatedAt,
	)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	for _, qn := range qz.Questions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO question (id, quiz_id, prompt, type, options, correct_answer, points, "order")
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			qn.ID, qn.QuizID, qn.Prompt, string(qn.Type), pq.StringArray(qn.Options), pq.StringArray(qn.CorrectAnswer), qn.Points, qn.Order,
		)
		if err != nil {
			return quiz.Quiz{}, errors.Wrap(err, "inserting question")
		}
	}

	if err = tx.Commit(); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "committing quiz")
	}
	return qz, nil
}

func (repo quizRepository) GetQuizByID(ctx context.Context, id string) (quiz.Quiz, error) {
	if _, err := uuid.Parse(id); err != nil {
		return quiz.Quiz{}, quiz.ErrNotFound
	}

	var row quizRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM quiz WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "finding quiz by ID")
	}

	var qnRows []questionRow
	err := repo.db.SelectContext(ctx, &qnRows,
		`SELECT * FROM question WHERE quiz_id = $1 ORDER BY "order"`, id)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "querying questions")
	}
	questions := make([]quiz.Question, 0, len(qnRows))
	for _, r := range qnRows {
		questions = append(questions, r.unpack())
	}
	return row.unpack(questions), nil
}

func (repo quizRepository) QueryQuizzes(ctx context.Context, filter quiz.QueryFilter, ordering ...core.DBOrdering) ([]quiz.Quiz, error) {
	query := `SELECT * FROM quiz`
	var conds []string
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.IsPublished != nil {
		args = append(args, *filter.IsPublished)
		conds = append(conds, fmt.Sprintf("is_published = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		query += " ORDER BY created_at DESC"
	}

	var rows []quizRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, r := range rows {
		quizzes = append(quizzes, r.unpack(nil))
	}
	return quizzes, nil
}

func (repo quizRepository) SetQuizPublished(ctx context.Context, id string, published bool) (quiz.Quiz, error) {
	if _, err := uuid.Parse(id); err != nil {
		return quiz.Quiz{}, quiz.ErrNotFound
	}

	res, err := repo.db.ExecContext(ctx,
		`UPDATE quiz SET is_published = $2, updated_at = NOW() WHERE id = $1`, id, published)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return repo.GetQuizByID(ctx, id)
}
