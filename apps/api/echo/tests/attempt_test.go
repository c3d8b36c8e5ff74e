package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtihani/core/attempt"
	"github.com/trezcool/mtihani/core/quiz"
	testutil "github.com/trezcool/mtihani/tests"
)

func seedQuiz(t *testing.T, app *testApp, duration, maxAttempts null.Int) quiz.Quiz {
	t.Helper()
	questions := []quiz.Question{
		testutil.Question("", 0, quiz.MultipleChoice, "Pick A and C", []string{"A", "B", "C", "D"}, []string{"A", "C"}, 2),
		testutil.Question("", 1, quiz.TrueFalse, "Go has goroutines", quiz.TrueFalseOptions, []string{"True"}, 1),
	}
	return testutil.CreateQuiz(t, app.quizRepo, "Go Basics", questions, duration, maxAttempts, null.Time{}, true)
}

func TestAttemptFlow(t *testing.T) {
	app := setup(t)
	token := getStudentToken(t, app, "student-1")
	qz := seedQuiz(t, app, null.IntFrom(600), null.Int{})
	base := "/v1/quizzes/" + qz.ID

	// start
	req, rec := newAuthRequest(http.MethodPost, base+"/attempts", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start code = %v: %s", rec.Code, rec.Body.String())
	}
	var att attempt.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
		t.Fatalf("unmarshalling attempt: %v", err)
	}
	if att.Number != 1 {
		t.Errorf("start number = %d, want 1", att.Number)
	}

	// restart resumes the same attempt
	req, rec = newAuthRequest(http.MethodPost, base+"/attempts", token)
	app.server.ServeHTTP(rec, req)
	var again attempt.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &again); err != nil {
		t.Fatalf("unmarshalling attempt: %v", err)
	}
	if again.ID != att.ID {
		t.Errorf("restart id = %s, want %s", again.ID, att.ID)
	}

	// answer both questions
	for i, values := range [][]string{{"C", "A"}, {"False"}} {
		body := marchallObj(t, map[string][]string{"values": values})
		req, rec = newAuthRequest(http.MethodPut, base+"/answers/"+qz.Questions[i].ID, token, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("answer %d code = %v: %s", i, rec.Code, rec.Body.String())
		}
	}

	// navigate
	req, rec = newAuthRequest(http.MethodPut, base+"/position", token, marchallObj(t, map[string]int{"index": 1}))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("navigate code = %v: %s", rec.Code, rec.Body.String())
	}

	// session snapshot
	app.clock.Advance(time.Minute)
	req, rec = newAuthRequest(http.MethodGet, base+"/session", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("session code = %v: %s", rec.Code, rec.Body.String())
	}
	var sess attempt.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("unmarshalling session: %v", err)
	}
	if !sess.Remaining.Valid || sess.Remaining.Int != 540 {
		t.Errorf("session remaining = %v, want 540", sess.Remaining)
	}
	if sess.Attempt.CurrentQuestion != 1 {
		t.Errorf("session currentQuestion = %d, want 1", sess.Attempt.CurrentQuestion)
	}

	// submit: MC correct (2), TF wrong (0)
	req, rec = newAuthRequest(http.MethodPost, base+"/submit", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit code = %v: %s", rec.Code, rec.Body.String())
	}
	var fin attempt.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &fin); err != nil {
		t.Fatalf("unmarshalling attempt: %v", err)
	}
	if !fin.Grade.Valid || fin.Grade.Float64 != 2 {
		t.Errorf("submit grade = %v, want 2", fin.Grade)
	}
	if !fin.FinishedAt.Valid {
		t.Error("submit did not set finishedAt")
	}

	// duplicate submit conflicts
	req, rec = newAuthRequest(http.MethodPost, base+"/submit", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate submit code = %v, want %v", rec.Code, http.StatusConflict)
	}

	// history
	req, rec = newAuthRequest(http.MethodGet, base+"/attempts", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("history code = %v", rec.Code)
	}
	var attempts []attempt.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &attempts); err != nil {
		t.Fatalf("unmarshalling attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Errorf("history len = %d, want 1", len(attempts))
	}

	// review
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("%s/attempts/%d/review", base, att.Number), token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("review code = %v: %s", rec.Code, rec.Body.String())
	}
	var reviews []attempt.QuestionReview
	if err := json.Unmarshal(rec.Body.Bytes(), &reviews); err != nil {
		t.Fatalf("unmarshalling reviews: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("review len = %d, want 2", len(reviews))
	}
	if !reviews[0].Correct || reviews[1].Correct {
		t.Errorf("review correctness = [%v %v], want [true false]", reviews[0].Correct, reviews[1].Correct)
	}
}

func TestAttemptAccess(t *testing.T) {
	app := setup(t)
	teacherToken := getTeacherToken(t, app, "teacher-1")
	qz := seedQuiz(t, app, null.Int{}, null.Int{})
	base := "/v1/quizzes/" + qz.ID

	tests := []httpTest{
		{name: "auth required", method: http.MethodPost, path: base + "/attempts",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "teachers cannot take quizzes", method: http.MethodPost, path: base + "/attempts",
			token: teacherToken, wantCode: http.StatusForbidden},
		{name: "session requires a student", method: http.MethodGet, path: base + "/session",
			token: teacherToken, wantCode: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestAttemptLimit(t *testing.T) {
	app := setup(t)
	token := getStudentToken(t, app, "student-1")
	qz := seedQuiz(t, app, null.Int{}, null.IntFrom(1))
	base := "/v1/quizzes/" + qz.ID

	req, rec := newAuthRequest(http.MethodPost, base+"/attempts", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start code = %v", rec.Code)
	}
	req, rec = newAuthRequest(http.MethodPost, base+"/submit", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit code = %v", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodPost, base+"/attempts", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("start past limit code = %v, want %v", rec.Code, http.StatusForbidden)
	}
}

func TestAttemptExpiry(t *testing.T) {
	app := setup(t)
	token := getStudentToken(t, app, "student-1")
	qz := seedQuiz(t, app, null.IntFrom(60), null.Int{})
	base := "/v1/quizzes/" + qz.ID

	req, rec := newAuthRequest(http.MethodPost, base+"/attempts", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start code = %v", rec.Code)
	}

	app.clock.Advance(61 * time.Second)

	// a late answer is rejected and the attempt force-finished
	body := marchallObj(t, map[string][]string{"values": {"A"}})
	req, rec = newAuthRequest(http.MethodPut, base+"/answers/"+qz.Questions[0].ID, token, body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("late answer code = %v, want %v", rec.Code, http.StatusConflict)
	}

	// the attempt shows up finished with a grade
	req, rec = newAuthRequest(http.MethodGet, base+"/attempts", token)
	app.server.ServeHTTP(rec, req)
	var attempts []attempt.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &attempts); err != nil {
		t.Fatalf("unmarshalling attempts: %v", err)
	}
	if len(attempts) != 1 || !attempts[0].Finished() {
		t.Fatalf("attempt not finished after expiry: %+v", attempts)
	}
	if !attempts[0].Grade.Valid || attempts[0].Grade.Float64 != 0 {
		t.Errorf("grade = %v, want 0", attempts[0].Grade)
	}
}

func TestAttemptInstructorOps(t *testing.T) {
	app := setup(t)
	studentToken := getStudentToken(t, app, "student-1")
	teacherToken := getTeacherToken(t, app, "teacher-1")
	qz := seedQuiz(t, app, null.Int{}, null.Int{})
	base := "/v1/quizzes/" + qz.ID

	req, rec := newAuthRequest(http.MethodPost, base+"/attempts", studentToken)
	app.server.ServeHTTP(rec, req)
	var att attempt.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
		t.Fatalf("unmarshalling attempt: %v", err)
	}

	gradePath := "/v1/attempts/" + att.ID + "/answers/" + qz.Questions[0].ID + "/grade"
	feedbackPath := "/v1/attempts/" + att.ID + "/feedback"
	gradeBody := marchallObj(t, map[string]float64{"grade": 1.5})
	feedbackBody := marchallObj(t, map[string]string{"feedback": "good effort"})

	// students may not grade; grading an unfinished attempt conflicts
	tests := []httpTest{
		{name: "students cannot grade", method: http.MethodPut, path: gradePath, body: gradeBody,
			token: studentToken, wantCode: http.StatusForbidden},
		{name: "grade in progress", method: http.MethodPut, path: gradePath, body: gradeBody,
			token: teacherToken, wantCode: http.StatusConflict},
		{name: "feedback in progress", method: http.MethodPut, path: feedbackPath, body: feedbackBody,
			token: teacherToken, wantCode: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	req, rec = newAuthRequest(http.MethodPost, base+"/submit", studentToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit code = %v", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodPut, gradePath, teacherToken, gradeBody)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("grade code = %v: %s", rec.Code, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodPut, feedbackPath, teacherToken, feedbackBody)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("feedback code = %v: %s", rec.Code, rec.Body.String())
	}

	// the override shows up in the student's review
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("%s/attempts/%d/review", base, att.Number), studentToken)
	app.server.ServeHTTP(rec, req)
	var reviews []attempt.QuestionReview
	if err := json.Unmarshal(rec.Body.Bytes(), &reviews); err != nil {
		t.Fatalf("unmarshalling reviews: %v", err)
	}
	if !reviews[0].Override.Valid || reviews[0].Override.Float64 != 1.5 {
		t.Errorf("override = %v, want 1.5", reviews[0].Override)
	}
}
