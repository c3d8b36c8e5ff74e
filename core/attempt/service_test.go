package attempt_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtihani/core/attempt"
	"github.com/trezcool/mtihani/core/quiz"
	dummydb "github.com/trezcool/mtihani/storage/database/dummy"
	testutil "github.com/trezcool/mtihani/tests"
)

var ctx = context.Background()

func questions() []quiz.Question {
	return []quiz.Question{
		testutil.Question("", 0, quiz.MultipleChoice, "Pick A and C", []string{"A", "B", "C", "D"}, []string{"A", "C"}, 2),
		testutil.Question("", 1, quiz.TrueFalse, "Go has generics", quiz.TrueFalseOptions, []string{"True"}, 1),
		testutil.Question("", 2, quiz.ShortAnswer, "Capital of Kenya?", nil, []string{"Nairobi"}, 3),
	}
}

func setup(t *testing.T, clock *testutil.Clock, duration, maxAttempts null.Int, dueDate null.Time) (*attempt.Service, quiz.Quiz, attempt.Repository) {
	t.Helper()

	quizRepo := dummydb.NewQuizRepository()
	qz := testutil.CreateQuiz(t, quizRepo, "Go Basics", questions(), duration, maxAttempts, dueDate, true)

	attRepo := dummydb.NewAttemptRepository()
	svc := attempt.NewService(attRepo, quizRepo, clock, testutil.NewConfig())
	return svc, qz, attRepo
}

func TestServiceStart(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.Int{}, null.Int{}, null.Time{})

	att, err := svc.Start(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if att.Number != 1 {
		t.Errorf("Start() number = %d, want 1", att.Number)
	}
	if !att.StartedAt.Equal(clock.Now()) {
		t.Errorf("Start() startedAt = %v, want %v", att.StartedAt, clock.Now())
	}

	// starting again while in progress resumes the same attempt
	clock.Advance(10 * time.Second)
	again, err := svc.Start(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Start() again error = %v", err)
	}
	if again.ID != att.ID {
		t.Errorf("Start() again id = %s, want %s", again.ID, att.ID)
	}
	if !again.StartedAt.Equal(att.StartedAt) {
		t.Errorf("Start() again startedAt = %v, want %v", again.StartedAt, att.StartedAt)
	}

	// another student gets their own attempt
	other, err := svc.Start(ctx, qz.ID, "student-2")
	if err != nil {
		t.Fatalf("Start() other student error = %v", err)
	}
	if other.ID == att.ID {
		t.Error("Start() other student resumed a foreign attempt")
	}
}

func TestServiceStartNumbering(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.Int{}, null.Int{}, null.Time{})

	for want := 1; want <= 3; want++ {
		att, err := svc.Start(ctx, qz.ID, "student-1")
		if err != nil {
			t.Fatalf("Start() #%d error = %v", want, err)
		}
		if att.Number != want {
			t.Errorf("Start() #%d number = %d, want %d", want, att.Number, want)
		}
		if _, err = svc.Submit(ctx, qz.ID, "student-1"); err != nil {
			t.Fatalf("Submit() #%d error = %v", want, err)
		}
	}
}

func TestServiceStartAttemptLimit(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.Int{}, null.IntFrom(2), null.Time{})

	for i := 0; i < 2; i++ {
		if _, err := svc.Start(ctx, qz.ID, "student-1"); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if _, err := svc.Submit(ctx, qz.ID, "student-1"); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	if _, err := svc.Start(ctx, qz.ID, "student-1"); err != attempt.ErrAttemptLimitExceeded {
		t.Errorf("Start() error = %v, want %v", err, attempt.ErrAttemptLimitExceeded)
	}
}

func TestServiceStartGates(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))

	t.Run("unpublished quiz", func(t *testing.T) {
		quizRepo := dummydb.NewQuizRepository()
		qz := testutil.CreateQuiz(t, quizRepo, "Draft", questions(), null.Int{}, null.Int{}, null.Time{}, false)
		svc := attempt.NewService(dummydb.NewAttemptRepository(), quizRepo, clock, testutil.NewConfig())

		if _, err := svc.Start(ctx, qz.ID, "student-1"); err != quiz.ErrNotFound {
			t.Errorf("Start() error = %v, want %v", err, quiz.ErrNotFound)
		}
	})

	t.Run("unknown quiz", func(t *testing.T) {
		svc, _, _ := setup(t, clock, null.Int{}, null.Int{}, null.Time{})
		if _, err := svc.Start(ctx, "nope", "student-1"); err != quiz.ErrNotFound {
			t.Errorf("Start() error = %v, want %v", err, quiz.ErrNotFound)
		}
	})

	t.Run("past due date", func(t *testing.T) {
		svc, qz, _ := setup(t, clock, null.Int{}, null.Int{}, null.TimeFrom(clock.Now().Add(-time.Hour)))
		if _, err := svc.Start(ctx, qz.ID, "student-1"); err != attempt.ErrQuizClosed {
			t.Errorf("Start() error = %v, want %v", err, attempt.ErrQuizClosed)
		}
	})
}

func TestServiceAnswer(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, repo := setup(t, clock, null.Int{}, null.Int{}, null.Time{})

	att, err := svc.Start(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	qn := qz.Questions[0]

	if err = svc.Answer(ctx, qz.ID, "student-1", qn.ID, []string{"A"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	// last write wins
	if err = svc.Answer(ctx, qz.ID, "student-1", qn.ID, []string{"A", "C"}); err != nil {
		t.Fatalf("Answer() rewrite error = %v", err)
	}

	answers, err := repo.GetAnswers(ctx, att.ID)
	if err != nil {
		t.Fatalf("GetAnswers() error = %v", err)
	}
	var saved attempt.Answer
	for _, ans := range answers {
		if ans.QuestionID == qn.ID {
			saved = ans
		}
	}
	if !saved.IsTouched {
		t.Error("Answer() did not mark the answer touched")
	}
	if len(saved.Values) != 2 || saved.Values[0] != "A" || saved.Values[1] != "C" {
		t.Errorf("Answer() values = %v, want [A C]", saved.Values)
	}

	// unknown question
	if err = svc.Answer(ctx, qz.ID, "student-1", "nope", []string{"A"}); err != quiz.ErrQuestionNotFound {
		t.Errorf("Answer() error = %v, want %v", err, quiz.ErrQuestionNotFound)
	}

	// no validation against the option list
	if err = svc.Answer(ctx, qz.ID, "student-1", qn.ID, []string{"Z"}); err != nil {
		t.Errorf("Answer() free-form value error = %v", err)
	}

	// rejected once finished
	if _, err = svc.Submit(ctx, qz.ID, "student-1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err = svc.Answer(ctx, qz.ID, "student-1", qn.ID, []string{"A"}); err != attempt.ErrNoActiveAttempt {
		t.Errorf("Answer() after finish error = %v, want %v", err, attempt.ErrNoActiveAttempt)
	}
}

func TestServiceAnswerAfterExpiry(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, repo := setup(t, clock, null.IntFrom(60), null.Int{}, null.Time{})

	att, err := svc.Start(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err = svc.Answer(ctx, qz.ID, "student-1", qz.Questions[0].ID, []string{"A", "C"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	// the write arrives one second too late
	clock.Advance(61 * time.Second)
	err = svc.Answer(ctx, qz.ID, "student-1", qz.Questions[1].ID, []string{"True"})
	if err != attempt.ErrNoActiveAttempt {
		t.Fatalf("Answer() past budget error = %v, want %v", err, attempt.ErrNoActiveAttempt)
	}

	// the attempt was force-finished and graded on the pre-expiry answers
	fin, err := repo.GetAttemptByID(ctx, att.ID)
	if err != nil {
		t.Fatalf("GetAttemptByID() error = %v", err)
	}
	if !fin.Finished() {
		t.Fatal("Answer() past budget did not finish the attempt")
	}
	if !fin.Grade.Valid || fin.Grade.Float64 != 2 {
		t.Errorf("grade = %v, want 2", fin.Grade)
	}
}

func TestServiceSession(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.IntFrom(600), null.Int{}, null.Time{})

	att, err := svc.Start(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	clock.Advance(4 * time.Minute)
	sess, err := svc.Session(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if sess.Attempt.ID != att.ID {
		t.Errorf("Session() attempt = %s, want %s", sess.Attempt.ID, att.ID)
	}
	if sess.Expired {
		t.Error("Session() reported expired with time left")
	}
	if !sess.Remaining.Valid || sess.Remaining.Int != 360 {
		t.Errorf("Session() remaining = %v, want 360", sess.Remaining)
	}
	if len(sess.Answers) != len(qz.Questions) {
		t.Errorf("Session() answers = %d, want %d", len(sess.Answers), len(qz.Questions))
	}
}

func TestServiceSessionExpired(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.IntFrom(60), null.Int{}, null.Time{})

	if _, err := svc.Start(ctx, qz.ID, "student-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := svc.Answer(ctx, qz.ID, "student-1", qz.Questions[1].ID, []string{"True"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	// reading the session past the budget finishes the attempt
	clock.Advance(2 * time.Minute)
	sess, err := svc.Session(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if !sess.Expired {
		t.Error("Session() expired = false, want true")
	}
	if !sess.Attempt.Finished() {
		t.Error("Session() attempt not finished")
	}
	if !sess.Attempt.Grade.Valid || sess.Attempt.Grade.Float64 != 1 {
		t.Errorf("Session() grade = %v, want 1", sess.Attempt.Grade)
	}

	// a subsequent read finds no active attempt
	if _, err = svc.Session(ctx, qz.ID, "student-1"); err != attempt.ErrNoActiveAttempt {
		t.Errorf("Session() after expiry error = %v, want %v", err, attempt.ErrNoActiveAttempt)
	}
}

func TestServiceSessionUnbounded(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.Int{}, null.Int{}, null.Time{})

	att, err := svc.Start(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// no time budget: the attempt stays open no matter how long ago it started
	clock.Advance(72 * time.Hour)
	sess, err := svc.Session(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if sess.Attempt.ID != att.ID {
		t.Errorf("Session() attempt = %s, want %s", sess.Attempt.ID, att.ID)
	}
	if sess.Expired {
		t.Error("Session() expired = true on an unbounded quiz")
	}
	if sess.Attempt.Finished() {
		t.Error("Session() finished an unbounded attempt")
	}
	if sess.Remaining.Valid {
		t.Errorf("Session() remaining = %v, want null", sess.Remaining)
	}
}

// finishRacerRepo makes another writer win the terminal transition just
// before the caller's own finish lands.
type finishRacerRepo struct {
	attempt.Repository
}

func (repo *finishRacerRepo) FinishAttempt(ctx context.Context, attemptID string, finishedAt time.Time, grade attempt.GradeFunc) (attempt.Attempt, error) {
	if _, err := repo.Repository.FinishAttempt(ctx, attemptID, finishedAt, grade); err != nil {
		return attempt.Attempt{}, err
	}
	return repo.Repository.FinishAttempt(ctx, attemptID, finishedAt, grade)
}

func TestServiceSessionExpiredRace(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))

	quizRepo := dummydb.NewQuizRepository()
	qz := testutil.CreateQuiz(t, quizRepo, "Go Basics", questions(), null.IntFrom(60), null.Int{}, null.Time{}, true)
	repo := &finishRacerRepo{Repository: dummydb.NewAttemptRepository()}
	svc := attempt.NewService(repo, quizRepo, clock, testutil.NewConfig())

	if _, err := svc.Start(ctx, qz.ID, "student-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := svc.Answer(ctx, qz.ID, "student-1", qz.Questions[0].ID, []string{"A", "C"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	// an expired read losing the transition reports the winner's outcome
	clock.Advance(2 * time.Minute)
	sess, err := svc.Session(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if !sess.Expired {
		t.Error("Session() expired = false, want true")
	}
	if !sess.Attempt.Finished() {
		t.Error("Session() attempt not finished")
	}
	if !sess.Attempt.Grade.Valid || sess.Attempt.Grade.Float64 != 2 {
		t.Errorf("Session() grade = %v, want 2", sess.Attempt.Grade)
	}
}

func TestServiceNavigate(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, repo := setup(t, clock, null.Int{}, null.Int{}, null.Time{})

	att, err := svc.Start(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err = svc.Navigate(ctx, qz.ID, "student-1", 2); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	att, err = repo.GetAttemptByID(ctx, att.ID)
	if err != nil {
		t.Fatalf("GetAttemptByID() error = %v", err)
	}
	if att.CurrentQuestion != 2 {
		t.Errorf("Navigate() currentQuestion = %d, want 2", att.CurrentQuestion)
	}

	if err = svc.Navigate(ctx, qz.ID, "student-1", len(qz.Questions)); err == nil {
		t.Error("Navigate() expected an error for an out-of-range index")
	}
}

func TestServiceSubmit(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.Int{}, null.Int{}, null.Time{})

	if _, err := svc.Start(ctx, qz.ID, "student-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := svc.Answer(ctx, qz.ID, "student-1", qz.Questions[0].ID, []string{"C", "A"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if err := svc.Answer(ctx, qz.ID, "student-1", qz.Questions[2].ID, []string{"nairobi"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	clock.Advance(5 * time.Minute)
	att, err := svc.Submit(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !att.Finished() {
		t.Fatal("Submit() attempt not finished")
	}
	if !att.FinishedAt.Time.Equal(clock.Now()) {
		t.Errorf("Submit() finishedAt = %v, want %v", att.FinishedAt.Time, clock.Now())
	}
	if !att.Grade.Valid || att.Grade.Float64 != 5 {
		t.Errorf("Submit() grade = %v, want 5", att.Grade)
	}

	// an explicit duplicate submit is a client bug
	if _, err = svc.Submit(ctx, qz.ID, "student-1"); err != attempt.ErrAlreadyFinished {
		t.Errorf("Submit() again error = %v, want %v", err, attempt.ErrAlreadyFinished)
	}
}

func TestServiceSubmitNoAttempt(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.Int{}, null.Int{}, null.Time{})

	if _, err := svc.Submit(ctx, qz.ID, "student-1"); err != attempt.ErrNoActiveAttempt {
		t.Errorf("Submit() error = %v, want %v", err, attempt.ErrNoActiveAttempt)
	}
}

// countingRepo counts how many times the grade function actually ran.
type countingRepo struct {
	attempt.Repository
	gradeCalls int32
}

func (repo *countingRepo) FinishAttempt(ctx context.Context, attemptID string, finishedAt time.Time, grade attempt.GradeFunc) (attempt.Attempt, error) {
	return repo.Repository.FinishAttempt(ctx, attemptID, finishedAt, func(answers []attempt.Answer) (float64, error) {
		atomic.AddInt32(&repo.gradeCalls, 1)
		return grade(answers)
	})
}

func TestServiceSubmitRace(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))

	quizRepo := dummydb.NewQuizRepository()
	qz := testutil.CreateQuiz(t, quizRepo, "Go Basics", questions(), null.Int{}, null.Int{}, null.Time{}, true)
	repo := &countingRepo{Repository: dummydb.NewAttemptRepository()}
	svc := attempt.NewService(repo, quizRepo, clock, testutil.NewConfig())

	att, err := svc.Start(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// concurrent submits: exactly one grading pass. A racer that saw the
	// attempt unfinished but lost the compare-and-set still succeeds; one
	// arriving after the transition gets ErrAlreadyFinished.
	const racers = 8
	var successes int32
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			fin, err := svc.Submit(ctx, qz.ID, "student-1")
			if err == attempt.ErrAlreadyFinished {
				return
			}
			if err != nil {
				t.Errorf("Submit() racer %d error = %v", i, err)
				return
			}
			if fin.ID != att.ID || !fin.Finished() {
				t.Errorf("racer %d observed attempt %+v, want finished %s", i, fin, att.ID)
			}
			atomic.AddInt32(&successes, 1)
		}(i)
	}
	wg.Wait()

	if calls := atomic.LoadInt32(&repo.gradeCalls); calls != 1 {
		t.Errorf("grade function ran %d times, want 1", calls)
	}
	if successes == 0 {
		t.Error("no racer completed the submit")
	}
}

func TestServiceAttempts(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.Int{}, null.Int{}, null.Time{})

	for i := 0; i < 2; i++ {
		if _, err := svc.Start(ctx, qz.ID, "student-1"); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if _, err := svc.Submit(ctx, qz.ID, "student-1"); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	attempts, err := svc.Attempts(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Attempts() error = %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("Attempts() len = %d, want 2", len(attempts))
	}
	for i, att := range attempts {
		if att.Number != i+1 {
			t.Errorf("Attempts()[%d].Number = %d, want %d", i, att.Number, i+1)
		}
	}
}

func TestServiceReview(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.Int{}, null.Int{}, null.Time{})

	att, err := svc.Start(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// review requires a finished attempt
	if _, err = svc.Review(ctx, qz.ID, "student-1", att.Number); err != attempt.ErrNotFinished {
		t.Fatalf("Review() in progress error = %v, want %v", err, attempt.ErrNotFinished)
	}

	if err = svc.Answer(ctx, qz.ID, "student-1", qz.Questions[0].ID, []string{"A", "C"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if err = svc.Answer(ctx, qz.ID, "student-1", qz.Questions[1].ID, []string{"False"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if _, err = svc.Submit(ctx, qz.ID, "student-1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	reviews, err := svc.Review(ctx, qz.ID, "student-1", att.Number)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if len(reviews) != len(qz.Questions) {
		t.Fatalf("Review() len = %d, want %d", len(reviews), len(qz.Questions))
	}

	wantCorrect := []bool{true, false, false}
	wantAwarded := []float64{2, 0, 0}
	for i, rev := range reviews {
		if rev.Question.ID != qz.Questions[i].ID {
			t.Errorf("Review()[%d] question = %s, want %s", i, rev.Question.ID, qz.Questions[i].ID)
		}
		if rev.Correct != wantCorrect[i] {
			t.Errorf("Review()[%d] correct = %v, want %v", i, rev.Correct, wantCorrect[i])
		}
		if rev.Awarded != wantAwarded[i] {
			t.Errorf("Review()[%d] awarded = %v, want %v", i, rev.Awarded, wantAwarded[i])
		}
	}

	if _, err = svc.Review(ctx, qz.ID, "student-1", 42); err != attempt.ErrNotFound {
		t.Errorf("Review() unknown number error = %v, want %v", err, attempt.ErrNotFound)
	}
}

func TestServiceGradeAnswerAndFeedback(t *testing.T) {
	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, qz, _ := setup(t, clock, null.Int{}, null.Int{}, null.Time{})

	att, err := svc.Start(ctx, qz.ID, "student-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// both require a finished attempt
	if err = svc.GradeAnswer(ctx, att.ID, qz.Questions[2].ID, 1.5); err != attempt.ErrNotFinished {
		t.Fatalf("GradeAnswer() in progress error = %v, want %v", err, attempt.ErrNotFinished)
	}
	if err = svc.SetFeedback(ctx, att.ID, "see me"); err != attempt.ErrNotFinished {
		t.Fatalf("SetFeedback() in progress error = %v, want %v", err, attempt.ErrNotFinished)
	}

	if _, err = svc.Submit(ctx, qz.ID, "student-1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err = svc.GradeAnswer(ctx, att.ID, qz.Questions[2].ID, -1); err == nil {
		t.Error("GradeAnswer() expected an error for a negative grade")
	}
	if err = svc.GradeAnswer(ctx, att.ID, qz.Questions[2].ID, 1.5); err != nil {
		t.Fatalf("GradeAnswer() error = %v", err)
	}
	if err = svc.SetFeedback(ctx, att.ID, "partial credit on Q3"); err != nil {
		t.Fatalf("SetFeedback() error = %v", err)
	}

	reviews, err := svc.Review(ctx, qz.ID, "student-1", att.Number)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	override := reviews[2].Override
	if !override.Valid || override.Float64 != 1.5 {
		t.Errorf("Review() override = %v, want 1.5", override)
	}
}
