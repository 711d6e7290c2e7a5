package httpapi

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lesson-quiz/internal/auth"
)

var languages = []languageResponse{
	{Code: "KZ", Label: "KZ"},
	{Code: "RU", Label: "RU"},
	{Code: "EN", Label: "EN"},
}

func (a *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if !a.decode(w, r, &request) {
		return
	}
	token, err := a.auth.Login(r.Context(), strings.TrimSpace(request.Username), request.Password)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (a *API) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var request auth.RegisterInput
	if !readJSON(w, r, &request) {
		return
	}
	id, ttl, err := a.auth.Register(r.Context(), request)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registrationResponse{UUID: id, SecondsLeft: secondsLeft(ttl)})
}

func (a *API) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var request verifyRequest
	if !a.decode(w, r, &request) {
		return
	}
	token, err := a.auth.Verify(r.Context(), request.UUID, request.OTP)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// HandleVerifyStatus reports how long the pending code stays valid. Unknown
// and expired registrations both report zero seconds.
func (a *API) HandleVerifyStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "uuid"))
	ttl, err := a.auth.VerifyStatus(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registrationResponse{UUID: id, SecondsLeft: secondsLeft(ttl)})
}

func (a *API) HandleContainsAccount(w http.ResponseWriter, r *http.Request) {
	field, err := auth.ParseAccountField(r.URL.Query().Get("accountField"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "accountField must be USERNAME or EMAIL"})
		return
	}
	var request containsRequest
	if !a.decode(w, r, &request) {
		return
	}
	taken, err := a.auth.ContainsAccount(r.Context(), field, request.Account)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taken)
}

func (a *API) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := a.auth.User(r.Context(), userID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userInfoResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Language:  user.Language,
		BirthDate: user.BirthDate,
	})
}

func (a *API) HandleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, languages)
}

func secondsLeft(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int(math.Ceil(ttl.Seconds()))
}
