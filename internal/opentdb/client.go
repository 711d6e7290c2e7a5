package opentdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	apiURL        = "https://opentdb.com/api.php"
	defaultAmount = 10
	maxAmount     = 50
)

const (
	TypeMultiple = "multiple"
	TypeBoolean  = "boolean"
)

var (
	ErrNoResults   = errors.New("opentdb: not enough questions for the query")
	ErrRateLimited = errors.New("opentdb: rate limited")
)

// RawQuestion mirrors the OpenTriviaDB question payload. Text fields are
// HTML-escaped.
type RawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

// Query narrows a fetch. Zero fields are left out of the request.
type Query struct {
	Amount     int
	Category   int
	Difficulty string
	Type       string
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{httpClient: httpClient, baseURL: apiURL}
}

func (c *Client) FetchQuestions(ctx context.Context, amount int) ([]RawQuestion, error) {
	return c.Fetch(ctx, Query{Amount: amount})
}

func (c *Client) Fetch(ctx context.Context, q Query) ([]RawQuestion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.values().Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opentdb returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	switch payload.ResponseCode {
	case 0:
		return payload.Results, nil
	case 1:
		return nil, ErrNoResults
	case 5:
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("opentdb response_code=%d", payload.ResponseCode)
	}
}

func (q Query) values() url.Values {
	amount := q.Amount
	if amount <= 0 {
		amount = defaultAmount
	}
	if amount > maxAmount {
		amount = maxAmount
	}
	values := url.Values{}
	values.Set("amount", strconv.Itoa(amount))
	if q.Category > 0 {
		values.Set("category", strconv.Itoa(q.Category))
	}
	if q.Difficulty != "" {
		values.Set("difficulty", q.Difficulty)
	}
	if q.Type != "" {
		values.Set("type", q.Type)
	}
	return values
}
