package dummydb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/mtihani/core"
	"github.com/trezcool/mtihani/core/quiz"
)

type quizRepository struct {
	mu      sync.RWMutex
	quizzes map[string]quiz.Quiz
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(quizzes ...quiz.Quiz) *quizRepository {
	repo := &quizRepository{quizzes: make(map[string]quiz.Quiz, len(quizzes))}
	for _, qz := range quizzes {
		repo.quizzes[qz.ID] = qz
	}
	return repo
}

func (repo *quizRepository) CreateQuiz(_ context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.quizzes[qz.ID] = qz
	return qz, nil
}

func (repo *quizRepository) GetQuizByID(_ context.Context, id string) (quiz.Quiz, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	qz, ok := repo.quizzes[id]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return qz, nil
}

func (repo *quizRepository) QueryQuizzes(_ context.Context, filter quiz.QueryFilter, _ ...core.DBOrdering) ([]quiz.Quiz, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var quizzes []quiz.Quiz
	for _, qz := range repo.quizzes {
		if filter.Search != "" && !strings.Contains(strings.ToLower(qz.Title), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.IsPublished != nil && qz.IsPublished != *filter.IsPublished {
			continue
		}
		quizzes = append(quizzes, qz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt) })
	return quizzes, nil
}

func (repo *quizRepository) SetQuizPublished(_ context.Context, id string, published bool) (quiz.Quiz, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	qz, ok := repo.quizzes[id]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	qz.IsPublished = published
	repo.quizzes[id] = qz
	return qz, nil
}
