package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/mtihani/core"
	"github.com/trezcool/mtihani/core/quiz"
)

// addQuiz loads a quiz.NewQuiz definition from a JSON file and creates it.
func (cli *commandLine) addQuiz(path string, publish bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading quiz file")
	}

	var nq quiz.NewQuiz
	if err = json.Unmarshal(data, &nq); err != nil {
		return errors.Wrap(err, "parsing quiz file")
	}

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)

	if err = nq.Validate(validate); err != nil {
		return err
	}

	ctx := context.Background()
	svc := cli.quizService()

	qz, err := svc.Create(ctx, nq)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	if publish {
		if qz, err = svc.Publish(ctx, qz.ID); err != nil {
			return errors.Wrap(err, "publishing quiz")
		}
	}

	fmt.Printf("quiz %q created: %s\n", qz.Title, qz.ID)
	return nil
}
