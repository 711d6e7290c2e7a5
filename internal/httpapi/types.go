package httpapi

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type verifyRequest struct {
	UUID string `json:"uuid" validate:"required,uuid"`
	OTP  string `json:"otp" validate:"required,numeric"`
}

type registrationResponse struct {
	UUID        string `json:"uuid"`
	SecondsLeft int    `json:"secondsLeft"`
}

type containsRequest struct {
	Account string `json:"account" validate:"required"`
}

type userInfoResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Language  string `json:"language"`
	BirthDate string `json:"birthDate,omitempty"`
}

type answerRequest struct {
	QuestionID    string            `json:"questionId" validate:"required"`
	SelectedPairs map[string]string `json:"selectedPairs" validate:"required,min=1"`
}

type languageResponse struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}
