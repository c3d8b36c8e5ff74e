package attempt

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtihani/core/quiz"
)

// Attempt is one learner's timed instance of taking a quiz, identified by
// (QuizID, StudentID, Number).
type Attempt struct {
	ID        string `json:"id"`
	QuizID    string `json:"quiz_id"`
	StudentID string `json:"student_id"`
	// Number is 1-based and gapless per (quiz, student).
	Number    int       `json:"number"`
	StartedAt time.Time `json:"started_at"` // UTC; set once
	// FinishedAt is write-once: a null value means the attempt is in
	// progress, a valid one makes it terminal.
	FinishedAt null.Time `json:"finished_at"`
	// CurrentQuestion is the last-viewed question index, advisory only.
	CurrentQuestion int `json:"current_question"`
	// Grade is the automatic aggregate score, set exactly once together
	// with FinishedAt.
	Grade null.Float64 `json:"grade"`
	// Feedback is free instructor text, set after finishing.
	Feedback  null.String `json:"feedback"`
	CreatedAt time.Time   `json:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

func (a Attempt) Finished() bool { return a.FinishedAt.Valid }

// Answer is the learner's recorded response to one question within one
// attempt. The full set is created empty when the attempt starts and never
// grows or shrinks afterwards.
type Answer struct {
	ID         string `json:"id"`
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	// Values holds the selected option strings, or a single-element sequence
	// wrapping the free text of a SHORT_ANSWER response.
	Values []string `json:"values"`
	// IsTouched flips to true on the first write, including an explicit
	// empty selection.
	IsTouched bool `json:"is_touched"`
	// Grade is a manual per-question override set by an instructor. The
	// automatic grading engine never reads or writes it.
	Grade     null.Float64 `json:"grade"`
	UpdatedAt time.Time    `json:"updated_at"` // UTC
}

// Text returns the free-text value of a SHORT_ANSWER response.
func (a Answer) Text() string {
	if len(a.Values) == 0 {
		return ""
	}
	return a.Values[0]
}

// Session is a snapshot of a learner's current attempt as seen on the
// session read path.
type Session struct {
	Attempt Attempt   `json:"attempt"`
	Quiz    quiz.Quiz `json:"quiz"`
	Answers []Answer  `json:"answers"`
	// Remaining is the number of seconds left on the attempt's time budget;
	// null when the quiz is unbounded.
	Remaining null.Int `json:"remaining"`
	// Expired reports that the time budget ran out and the attempt was
	// force-finished by this read. Terminal: the caller must stop answering
	// and show results.
	Expired bool `json:"expired"`
}

// QuestionReview pairs one question of a finished attempt with the learner's
// answer and its automatic scoring. The manual override grade is reported
// alongside the automatic contribution, never merged with it.
type QuestionReview struct {
	Question quiz.Question `json:"question"`
	Answer   Answer        `json:"answer"`
	Correct  bool          `json:"correct"`
	// Awarded is the automatic per-question contribution.
	Awarded float64 `json:"awarded"`
	// Override is the manual instructor grade, if any.
	Override null.Float64 `json:"override"`
}
