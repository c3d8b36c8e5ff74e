package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mtihani/core"
	"github.com/trezcool/mtihani/core/attempt"
	"github.com/trezcool/mtihani/core/quiz"
)

type (
	attemptApi struct {
		svc      attempt.ServiceInterface
		quizSvc  *quiz.Service
		mailSvc  core.EmailService
		validate *validator.Validate
	}

	answerRequest struct {
		Values []string `json:"values"`
	}

	positionRequest struct {
		Index int `json:"index" validate:"gte=0"`
	}

	gradeRequest struct {
		Grade float64 `json:"grade" validate:"gte=0"`
	}

	feedbackRequest struct {
		Feedback string `json:"feedback" validate:"required"`
	}

	resultsEmailData struct {
		Number      int
		QuizID      string
		QuizTitle   string
		Grade       float64
		TotalPoints float64
	}
)

func registerAttemptAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := attemptApi{
		svc:      deps.AttemptSvc,
		quizSvc:  deps.QuizSvc,
		mailSvc:  deps.MailSvc,
		validate: deps.Validate,
	}

	// student endpoints, scoped to one quiz. Middleware is attached per
	// route: group-level middleware makes echo register catch-all routes at
	// the group root, shadowing the quiz retrieve route on the same path.
	sg := g.Group("/quizzes/:id")
	student := []echo.MiddlewareFunc{jwt, studentMiddleware()}
	sg.POST("/attempts", api.start, student...)
	sg.GET("/attempts", api.history, student...)
	sg.GET("/attempts/:number/review", api.review, student...)
	sg.GET("/session", api.session, student...)
	sg.PUT("/answers/:qid", api.answer, student...)
	sg.PUT("/position", api.navigate, student...)
	sg.POST("/submit", api.submit, student...)

	// instructor endpoints, scoped to one attempt
	tg := g.Group("/attempts/:id")
	teacher := []echo.MiddlewareFunc{jwt, teacherMiddleware()}
	tg.PUT("/answers/:qid/grade", api.gradeAnswer, teacher...)
	tg.PUT("/feedback", api.setFeedback, teacher...)
}

// Handlers

func (api *attemptApi) start(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	att, err := api.svc.Start(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "starting attempt")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *attemptApi) session(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.Session(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "loading session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *attemptApi) answer(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data answerRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to answerRequest")
	}

	err = api.svc.Answer(ctx.Request().Context(), ctx.Param("id"), claims.Subject, ctx.Param("qid"), data.Values)
	if err != nil {
		return errors.Wrap(err, "saving answer")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attemptApi) navigate(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data positionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to positionRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	err = api.svc.Navigate(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Index)
	if err != nil {
		return errors.Wrap(err, "saving position")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attemptApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	att, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}

	api.sendResultsEmail(claims, att)

	return ctx.JSON(http.StatusOK, att)
}

func (api *attemptApi) history(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	attempts, err := api.svc.Attempts(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *attemptApi) review(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil {
		return errHttpNotFound
	}

	reviews, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), claims.Subject, number)
	if err != nil {
		return errors.Wrap(err, "reviewing attempt")
	}
	return ctx.JSON(http.StatusOK, reviews)
}

func (api *attemptApi) gradeAnswer(ctx echo.Context) error {
	var data gradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to gradeRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	err := api.svc.GradeAnswer(ctx.Request().Context(), ctx.Param("id"), ctx.Param("qid"), data.Grade)
	if err != nil {
		return errors.Wrap(err, "overriding answer grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attemptApi) setFeedback(ctx echo.Context) error {
	var data feedbackRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to feedbackRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	err := api.svc.SetFeedback(ctx.Request().Context(), ctx.Param("id"), data.Feedback)
	if err != nil {
		return errors.Wrap(err, "setting feedback")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attemptApi) sendResultsEmail(claims Claims, att attempt.Attempt) {
	if claims.Email == "" {
		return
	}

	qz, err := api.quizSvc.GetByID(context.Background(), att.QuizID)
	if err != nil {
		return // attempt stands regardless; nothing to do here
	}

	api.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: claims.Username, Address: claims.Email}},
		Subject:      fmt.Sprintf("Your results for %q", qz.Title),
		TemplateName: "attempt-results",
		TemplateData: resultsEmailData{
			Number:      att.Number,
			QuizID:      qz.ID,
			QuizTitle:   qz.Title,
			Grade:       att.Grade.Float64,
			TotalPoints: qz.TotalPoints(),
		},
	})
}
