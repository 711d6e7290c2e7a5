package userclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ErrServiceUnavailable = errors.New("lesson service unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// TokenSource supplies the bearer token attached to every request. An empty
// token sends no Authorization header.
type TokenSource interface {
	Token() string
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewHTTPClient(baseURL string, httpClient *http.Client, tokens TokenSource) *HTTPClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultServer
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
	}
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// do sends the request and returns the status and raw body of a 2xx response.
func (c *HTTPClient) do(ctx context.Context, method, path string, requestBody any) (int, []byte, error) {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return 0, nil, err
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrServiceUnavailable, err)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.Unmarshal(raw, &payload); err == nil {
			apiErr.Message = strings.TrimSpace(payload.Error)
			if apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(payload.Message)
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return response.StatusCode, nil, &apiErr
	}
	return response.StatusCode, raw, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	_, raw, err := c.do(ctx, method, path, requestBody)
	if err != nil {
		return err
	}
	if responseBody == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, responseBody)
}
