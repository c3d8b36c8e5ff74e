package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mtihani/core/quiz"
)

type quizApi struct {
	svc      *quiz.Service
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *quiz.Service, validate *validator.Validate) {
	api := quizApi{
		svc:      svc,
		validate: validate,
	}

	qg := g.Group("/quizzes", jwt)

	qg.POST("", api.create, teacherMiddleware())
	qg.GET("", api.query)
	qg.GET("/:id", api.retrieve)
	qg.PUT("/:id/publish", api.publish, teacherMiddleware())
	qg.PUT("/:id/unpublish", api.unpublish, teacherMiddleware())
}

// Handlers

func (api *quizApi) create(ctx echo.Context) error {
	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	qz, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, qz)
}

func (api *quizApi) query(ctx echo.Context) error {
	var filter quiz.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	// students only ever see published quizzes
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !(claims.IsTeacher || claims.IsAdmin) {
		published := true
		filter.IsPublished = &published
	}

	var ordering Ordering
	ordering.Bind(ctx)

	quizzes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var qz quiz.Quiz
	if claims.IsTeacher || claims.IsAdmin {
		qz, err = api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	} else {
		qz, err = api.svc.GetPublished(ctx.Request().Context(), ctx.Param("id"))
	}
	if err != nil {
		return errors.Wrap(err, "finding quiz by ID")
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *quizApi) publish(ctx echo.Context) error {
	qz, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "publishing quiz")
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *quizApi) unpublish(ctx echo.Context) error {
	qz, err := api.svc.Unpublish(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "unpublishing quiz")
	}
	return ctx.JSON(http.StatusOK, qz)
}
