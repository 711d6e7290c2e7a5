package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"lesson-quiz/internal/auth"
	"lesson-quiz/internal/lesson"
)

const maxBodyBytes = 1 << 20

func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, lesson.ErrLessonNotFound),
		errors.Is(err, lesson.ErrBlockNotFound),
		errors.Is(err, lesson.ErrQuestionNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrRegistrationNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, lesson.ErrLessonLocked):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "lesson is locked"})
	case errors.Is(err, lesson.ErrInvalidScope),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, auth.ErrInvalidField),
		errors.Is(err, auth.ErrInvalidOTP):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	case errors.Is(err, auth.ErrAccountExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "account already exists"})
	case errors.Is(err, auth.ErrOTPExpired):
		writeJSON(w, http.StatusGone, errorResponse{Error: "verification code expired"})
	default:
		a.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

// decode reads a JSON body into dst and runs its validate tags.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !readJSON(w, r, dst) {
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func parseIDParam(r *http.Request, key string) (int64, error) {
	value := strings.TrimSpace(chi.URLParam(r, key))
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return id, nil
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user"})
	}
	return id, ok
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
