package httpapi

import (
	"github.com/go-playground/validator/v10"

	"lesson-quiz/internal/auth"
	"lesson-quiz/internal/lesson"
	"lesson-quiz/internal/logger"
)

type API struct {
	lessons  *lesson.Service
	auth     *auth.Service
	log      *logger.Logger
	validate *validator.Validate
}

func NewAPI(lessons *lesson.Service, accounts *auth.Service, log *logger.Logger) *API {
	if log == nil {
		log = logger.Nop()
	}
	return &API{
		lessons:  lessons,
		auth:     accounts,
		log:      log,
		validate: validator.New(),
	}
}
