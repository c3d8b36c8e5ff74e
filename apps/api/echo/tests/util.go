package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/mtihani/apps/api/echo"
	"github.com/trezcool/mtihani/core"
	"github.com/trezcool/mtihani/core/attempt"
	"github.com/trezcool/mtihani/core/quiz"
	emailsvc "github.com/trezcool/mtihani/services/email"
	dummydb "github.com/trezcool/mtihani/storage/database/dummy"
	testutil "github.com/trezcool/mtihani/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server      Server
	conf        *core.Config
	clock       *testutil.Clock
	quizRepo    quiz.Repository
	attemptRepo attempt.Repository
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := testutil.NewConfig()
	conf.SecretKey = "secret"
	conf.Server.JWTExpirationDelta = time.Hour

	clock := testutil.NewClock(time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC))

	// set up repos
	quizRepo := dummydb.NewQuizRepository()
	attemptRepo := dummydb.NewAttemptRepository()

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	quizSvc := quiz.NewService(quizRepo, clock)
	attemptSvc := attempt.NewService(attemptRepo, quizRepo, clock, conf)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)

	// set up server
	server := NewServer(
		"", /* addr */
		&ServerDeps{
			Conf:           conf,
			Logger:         testLogger{},
			QuizSvc:        quizSvc,
			AttemptSvc:     attemptSvc,
			MailSvc:        mailSvc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
	return &testApp{
		server:      server,
		conf:        conf,
		clock:       clock,
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
	}
}

type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getStudentToken(t *testing.T, app *testApp, id string) string {
	return getToken(t, GetClaims(app.conf, id, id, id+"@test.test", true, false))
}

func getTeacherToken(t *testing.T, app *testApp, id string) string {
	return getToken(t, GetClaims(app.conf, id, id, id+"@test.test", false, true))
}

func getToken(t *testing.T, claims *Claims) string {
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
