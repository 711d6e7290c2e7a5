package httpapi

import (
	"net/http"
	"strconv"

	"lesson-quiz/internal/quiz"
)

func (a *API) HandleLessons(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lessons, err := a.lessons.ListLessons(r.Context(), userID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

func (a *API) HandleLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lessonID, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	item, err := a.lessons.GetLesson(r.Context(), userID, lessonID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) HandleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lessonID, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := a.lessons.CompleteLesson(r.Context(), userID, lessonID); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

func (a *API) HandleBlockQuestion(w http.ResponseWriter, r *http.Request) {
	a.nextQuestion(w, r, quiz.BlockScope)
}

func (a *API) HandleLessonQuestion(w http.ResponseWriter, r *http.Request) {
	a.nextQuestion(w, r, quiz.LessonScope)
}

// nextQuestion answers 204 No Content once every question of the scope has
// been answered.
func (a *API) nextQuestion(w http.ResponseWriter, r *http.Request, scopeOf func(string) quiz.Scope) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	scope := scopeOf(strconv.FormatInt(id, 10))

	question, found, err := a.lessons.NextQuestion(r.Context(), userID, scope)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if !found {
		a.log.Debug("test scope finished", "user", userID, "scope", scope.String())
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (a *API) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var request answerRequest
	if !a.decode(w, r, &request) {
		return
	}
	correct, err := a.lessons.CheckAnswer(r.Context(), userID, request.QuestionID, request.SelectedPairs)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, correct)
}

// HandleAnswerPair checks a single pair of a progressive matching question.
// The body carries exactly one entry in selectedPairs.
func (a *API) HandleAnswerPair(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var request answerRequest
	if !a.decode(w, r, &request) {
		return
	}
	if len(request.SelectedPairs) != 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "selectedPairs must hold exactly one pair"})
		return
	}
	var pair quiz.Pair
	for key, value := range request.SelectedPairs {
		pair = quiz.Pair{Key: key, Value: value}
	}
	correct, err := a.lessons.CheckPair(r.Context(), userID, request.QuestionID, pair)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, correct)
}
