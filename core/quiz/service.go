package quiz

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/trezcool/mtihani/core"
)

var (
	// errors
	ErrNotFound         = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")
)

type (
	Repository interface {
		CreateQuiz(ctx context.Context, qz Quiz) (Quiz, error)
		// GetQuizByID returns the quiz with its questions in presentation order.
		GetQuizByID(ctx context.Context, id string) (Quiz, error)
		// QueryQuizzes applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Quiz.Title.
		// Questions are not loaded.
		QueryQuizzes(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Quiz, error)
		SetQuizPublished(ctx context.Context, id string, published bool) (Quiz, error)
	}

	Service struct {
		repo  Repository
		clock core.Clock
	}
)

func NewService(repo Repository, clock core.Clock) *Service {
	return &Service{repo: repo, clock: clock}
}

func (svc *Service) Create(ctx context.Context, nq NewQuiz) (Quiz, error) {
	now := svc.clock.Now().UTC()
	qz := Quiz{
		ID:              uuid.New().String(),
		Title:           nq.Title,
		Description:     nq.Description,
		DurationSeconds: nq.DurationSeconds,
		MaxAttempts:     nq.MaxAttempts,
		DueDate:         nq.DueDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	qz.Questions = make([]Question, 0, len(nq.Questions))
	for i, nqn := range nq.Questions {
		options := nqn.Options
		if nqn.Type == TrueFalse {
			options = TrueFalseOptions
		}
		qz.Questions = append(qz.Questions, Question{
			ID:            uuid.New().String(),
			QuizID:        qz.ID,
			Prompt:        nqn.Prompt,
			Type:          nqn.Type,
			Options:       options,
			CorrectAnswer: nqn.CorrectAnswer,
			Points:        nqn.Points,
			Order:         i,
		})
	}
	return svc.repo.CreateQuiz(ctx, qz)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuizByID(ctx, id)
}

// GetPublished returns the published quiz with the given id; an unpublished
// quiz is reported as ErrNotFound so callers cannot tell it exists.
func (svc *Service) GetPublished(ctx context.Context, id string) (Quiz, error) {
	qz, err := svc.repo.GetQuizByID(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if !qz.IsPublished {
		return Quiz{}, ErrNotFound
	}
	return qz, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Quiz, error) {
	filter.Clean()
	return svc.repo.QueryQuizzes(ctx, filter, ordering...)
}

func (svc *Service) Publish(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.SetQuizPublished(ctx, id, true)
}

func (svc *Service) Unpublish(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.SetQuizPublished(ctx, id, false)
}
