package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtihani/core"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	ShortAnswer    QuestionType = "SHORT_ANSWER"
)

var QuestionTypes = []QuestionType{MultipleChoice, TrueFalse, ShortAnswer}

// TrueFalseOptions is the fixed option set of TRUE_FALSE questions.
var TrueFalseOptions = []string{"True", "False"}

type Question struct {
	ID     string       `json:"id"`
	QuizID string       `json:"quiz_id"`
	Prompt string       `json:"prompt"`
	Type   QuestionType `json:"type"`
	// Options is the ordered option sequence presented to the learner;
	// empty for SHORT_ANSWER.
	Options []string `json:"options"`
	// CorrectAnswer is the correct option set; a single-element set holding
	// the expected free text for SHORT_ANSWER. Never serialized to learners.
	CorrectAnswer []string `json:"-"`
	Points        float64  `json:"points"`
	Order         int      `json:"order"`
}

type Quiz struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Questions is ordered by Question.Order.
	Questions       []Question `json:"questions,omitempty"`
	DurationSeconds null.Int   `json:"duration_seconds"` // null: unbounded
	MaxAttempts     null.Int   `json:"max_attempts"`     // null: unlimited
	DueDate         null.Time  `json:"due_date"`         // null: never closes
	IsPublished     bool       `json:"is_published"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
	UpdatedAt       time.Time  `json:"updated_at"` // UTC
}

// TotalPoints is the maximum automatic grade attainable on the quiz.
func (q Quiz) TotalPoints() float64 {
	var total float64
	for _, qn := range q.Questions {
		total += qn.Points
	}
	return total
}

func (q Quiz) Question(id string) (Question, bool) {
	for _, qn := range q.Questions {
		if qn.ID == id {
			return qn, true
		}
	}
	return Question{}, false
}

// Policy derives the attempt policy governing this quiz.
func (q Quiz) Policy(clock core.Clock) core.ActivityPolicy {
	return core.NewActivityPolicy(q.MaxAttempts, q.DurationSeconds, q.DueDate, clock)
}

// NewQuestion contains information needed to add a Question to a new Quiz.
type NewQuestion struct {
	Prompt        string       `json:"prompt" validate:"required"`
	Type          QuestionType `json:"type" validate:"required,questiontype"`
	Options       []string     `json:"options"`
	CorrectAnswer []string     `json:"correct_answer" validate:"required,min=1"`
	Points        float64      `json:"points" validate:"gte=0"`
}

// NewQuiz contains information needed to create a new Quiz.
type NewQuiz struct {
	Title           string        `json:"title" validate:"required"`
	Description     string        `json:"description"`
	DurationSeconds null.Int      `json:"duration_seconds"`
	MaxAttempts     null.Int      `json:"max_attempts"`
	DueDate         null.Time     `json:"due_date"`
	Questions       []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.Description = core.CleanString(nq.Description)
	return validate.Struct(nq)
}

type QueryFilter struct {
	Search      string `query:"search"`
	IsPublished *bool  `query:"is_published"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsPublished == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
