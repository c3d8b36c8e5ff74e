package attempt

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/mtihani/core"
	"github.com/trezcool/mtihani/core/quiz"
)

// Grader scores an attempt's answers against the quiz's questions.
//
// An answer to an option-based question is correct iff its selected-option
// set is exactly equal to the question's correct-option set: no missing
// correct options, no extra incorrect ones. Equality is order-independent.
// SHORT_ANSWER responses compare the free text to the single expected
// string; normalization and fuzzy matching are policy knobs, both off by
// default.
//
// Grading is pure: it reads questions and answers and returns scores,
// leaving persistence to the caller.
type Grader struct {
	trim       bool
	foldCase   bool
	similarity float64 // 0 disables fuzzy matching
}

func NewGrader(conf core.GradingConfig) Grader {
	return Grader{
		trim:       conf.TrimShortAnswer,
		foldCase:   conf.FoldShortAnswerCase,
		similarity: conf.ShortAnswerSimilarity,
	}
}

// GradeAttempt computes the automatic aggregate grade: the sum over all
// answers of the question's full points if correct, else 0. Partial credit
// is the manual override's job, not this engine's.
func (g Grader) GradeAttempt(questions []quiz.Question, answers []Answer) (float64, error) {
	byID := make(map[string]quiz.Question, len(questions))
	for _, qn := range questions {
		byID[qn.ID] = qn
	}

	var grade float64
	for _, ans := range answers {
		qn, ok := byID[ans.QuestionID]
		if !ok {
			return 0, errors.Errorf("answer %s: question %s does not belong to the quiz", ans.ID, ans.QuestionID)
		}
		correct, err := g.Correct(qn, ans)
		if err != nil {
			return 0, err
		}
		if correct {
			grade += qn.Points
		}
	}
	return grade, nil
}

// Correct applies the correctness predicate for one question.
func (g Grader) Correct(qn quiz.Question, ans Answer) (bool, error) {
	switch qn.Type {
	case quiz.MultipleChoice:
		if len(qn.CorrectAnswer) == 0 {
			return false, errors.Errorf("question %s: no correct options defined", qn.ID)
		}
		return setsEqual(ans.Values, qn.CorrectAnswer), nil

	case quiz.TrueFalse:
		if len(qn.CorrectAnswer) != 1 {
			return false, errors.Errorf("question %s: expected exactly one correct option", qn.ID)
		}
		return setsEqual(ans.Values, qn.CorrectAnswer), nil

	case quiz.ShortAnswer:
		if len(qn.CorrectAnswer) != 1 {
			return false, errors.Errorf("question %s: expected exactly one correct answer", qn.ID)
		}
		if !ans.IsTouched && len(ans.Values) == 0 {
			return false, nil
		}
		got := g.normalize(ans.Text())
		want := g.normalize(qn.CorrectAnswer[0])
		if got == want {
			return true, nil
		}
		if g.similarity > 0 && got != "" {
			m := difflib.NewMatcher(strings.Split(got, ""), strings.Split(want, ""))
			return m.Ratio() >= g.similarity, nil
		}
		return false, nil

	default:
		return false, errors.Errorf("question %s: unknown type %q", qn.ID, qn.Type)
	}
}

func (g Grader) normalize(s string) string {
	if g.trim {
		s = strings.TrimSpace(s)
	}
	if g.foldCase {
		s = strings.ToLower(s)
	}
	return s
}

// setsEqual compares two string slices as sets, ignoring order and
// duplicates.
func setsEqual(a, b []string) bool {
	as := make(map[string]struct{}, len(a))
	for _, s := range a {
		as[s] = struct{}{}
	}
	bs := make(map[string]struct{}, len(b))
	for _, s := range b {
		bs[s] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for s := range as {
		if _, ok := bs[s]; !ok {
			return false
		}
	}
	return true
}
