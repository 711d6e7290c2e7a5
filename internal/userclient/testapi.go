package userclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"lesson-quiz/internal/quiz"
)

var errEmptyResponse = errors.New("empty or malformed server response")

// flexID accepts an id encoded as either a JSON string or a number.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

type questionPayload struct {
	ID             flexID      `json:"id"`
	Type           string      `json:"type"`
	Text           string      `json:"text"`
	MediaURL       string      `json:"mediaUrl"`
	Items          []quiz.Item `json:"items"`
	IsTestFinished bool        `json:"isTestFinished"`
}

type answerRequest struct {
	QuestionID    string            `json:"questionId"`
	SelectedPairs map[string]string `json:"selectedPairs"`
}

func questionPath(scope quiz.Scope) (string, error) {
	id := url.PathEscape(strings.TrimSpace(scope.ID))
	if id == "" {
		return "", errors.New("scope id is required")
	}
	switch scope.Kind {
	case quiz.ScopeBlock:
		return "/api/user/test/lesson-block/" + id + "/random-question", nil
	case quiz.ScopeLesson:
		return "/api/user/test/lesson/" + id + "/random-question", nil
	default:
		return "", fmt.Errorf("unsupported scope %s", scope)
	}
}

// FetchNext asks the service for the next question of scope. A 204 or an
// isTestFinished payload means the scope is exhausted. Unknown question types
// are passed through with a zero Type so the quiz can report them.
func (c *HTTPClient) FetchNext(ctx context.Context, scope quiz.Scope) (quiz.Question, bool, error) {
	path, err := questionPath(scope)
	if err != nil {
		return quiz.Question{}, false, err
	}

	status, raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return quiz.Question{}, false, err
	}
	if status == http.StatusNoContent {
		return quiz.Question{}, false, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return quiz.Question{}, false, errEmptyResponse
	}

	var payload questionPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return quiz.Question{}, false, fmt.Errorf("%w: %v", errEmptyResponse, err)
	}
	if payload.IsTestFinished {
		return quiz.Question{}, false, nil
	}

	qType, _ := quiz.ParseQuestionType(payload.Type)
	return quiz.Question{
		ID:       string(payload.ID),
		Type:     qType,
		Text:     payload.Text,
		MediaURL: payload.MediaURL,
		Items:    payload.Items,
	}, true, nil
}

func (c *HTTPClient) SubmitFull(ctx context.Context, questionID string, answer map[string]string) (bool, error) {
	return c.postVerdict(ctx, "/api/user/test/answer", answerRequest{QuestionID: questionID, SelectedPairs: answer})
}

func (c *HTTPClient) SubmitPair(ctx context.Context, questionID string, pair quiz.Pair) (bool, error) {
	return c.postVerdict(ctx, "/api/user/test/answer/pair", answerRequest{QuestionID: questionID, SelectedPairs: pair.Map()})
}

func (c *HTTPClient) postVerdict(ctx context.Context, path string, body any) (bool, error) {
	_, raw, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return false, err
	}
	return parseVerdict(raw)
}

// parseVerdict accepts a bare boolean, {"correct": bool} or {"ok": bool}.
func parseVerdict(raw []byte) (bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, errEmptyResponse
	}

	var plain bool
	if err := json.Unmarshal(trimmed, &plain); err == nil {
		return plain, nil
	}

	var wrapped struct {
		Correct *bool `json:"correct"`
		OK      *bool `json:"ok"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil {
		switch {
		case wrapped.Correct != nil:
			return *wrapped.Correct, nil
		case wrapped.OK != nil:
			return *wrapped.OK, nil
		}
	}
	return false, fmt.Errorf("unrecognized verdict %q", string(trimmed))
}
