package quiz

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mtihani/core"
)

var (
	questionTypeTag  = "questiontype"
	questionTypeText = "invalid question type"

	questionOptionsTag  = "questionoptions"
	questionOptionsText = "invalid options for this question type"
)

// InitValidators registers the quiz validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(questionTypeTag, questionTypeValidation)
	core.RegisterCustomTranslation(validate, translator, questionTypeTag, questionTypeText)

	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, questionOptionsTag, questionOptionsText)
}

func questionTypeValidation(fl validator.FieldLevel) bool {
	qt := QuestionType(fl.Field().String())
	for _, typ := range QuestionTypes {
		if qt == typ {
			return true
		}
	}
	return false
}

// questionStructValidation enforces per-type option constraints:
// MULTIPLE_CHOICE needs at least 2 options; TRUE_FALSE and SHORT_ANSWER have
// exactly one correct answer; option-based types must pick correct answers
// from the option set.
func questionStructValidation(sl validator.StructLevel) {
	nq := sl.Current().Interface().(NewQuestion)

	switch nq.Type {
	case MultipleChoice:
		if len(nq.Options) < 2 {
			sl.ReportError(nq.Options, "options", "Options", questionOptionsTag, "")
			return
		}
		if !subset(nq.CorrectAnswer, nq.Options) {
			sl.ReportError(nq.CorrectAnswer, "correct_answer", "CorrectAnswer", questionOptionsTag, "")
		}
	case TrueFalse:
		if len(nq.CorrectAnswer) != 1 || !subset(nq.CorrectAnswer, TrueFalseOptions) {
			sl.ReportError(nq.CorrectAnswer, "correct_answer", "CorrectAnswer", questionOptionsTag, "")
		}
	case ShortAnswer:
		if len(nq.Options) > 0 || len(nq.CorrectAnswer) != 1 {
			sl.ReportError(nq.CorrectAnswer, "correct_answer", "CorrectAnswer", questionOptionsTag, "")
		}
	}
}

func subset(sub, set []string) bool {
	for _, s := range sub {
		var found bool
		for _, o := range set {
			if s == o {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
