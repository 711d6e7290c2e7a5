package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	CORSOrigins []string
	// LogBodies adds up to this many bytes of each response body to the
	// request log. Zero disables body logging.
	LogBodies int
}

func NewRouter(api *API, opts Options) http.Handler {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(requestLogger(api.log, opts.LogBodies))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: !allowsAnyOrigin(origins),
		MaxAge:           300,
	}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", api.HandleLogin)
		r.Post("/register", api.HandleRegister)
		r.Post("/verify", api.HandleVerify)
		r.Get("/{uuid}/verify", api.HandleVerifyStatus)
		r.Post("/account/contains", api.HandleContainsAccount)
	})
	r.Get("/dictionary/languages", api.HandleLanguages)

	r.Group(func(pr chi.Router) {
		pr.Use(api.auth.Middleware)
		pr.Get("/api/user/current-user/info", api.HandleCurrentUser)

		pr.Get("/api/user/lessons", api.HandleLessons)
		pr.Get("/api/user/lessons/{id}", api.HandleLesson)
		pr.Post("/api/user/lessons/{id}/complete", api.HandleCompleteLesson)

		pr.Get("/api/user/test/lesson-block/{id}/random-question", api.HandleBlockQuestion)
		pr.Get("/api/user/test/lesson/{id}/random-question", api.HandleLessonQuestion)
		pr.Post("/api/user/test/answer", api.HandleAnswer)
		pr.Post("/api/user/test/answer/pair", api.HandleAnswerPair)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
