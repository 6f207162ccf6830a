package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

const maxErrorBody = 64 << 10

// apiClient sends requests to one platform and turns non-2xx responses
// into *APIError using the platform's error envelope.
type apiClient struct {
	platform     models.Platform
	http         *http.Client
	errorMessage func(body []byte) string
}

func newJSONRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func newFormRequest(ctx context.Context, endpoint string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (c *apiClient) do(req *http.Request, out any) (http.Header, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := ""
		if c.errorMessage != nil {
			msg = c.errorMessage(body)
		}
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &APIError{Platform: c.platform, StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("error reading response body: %w", err)
		}
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return nil, fmt.Errorf("error parsing response: %w", err)
			}
		}
	}
	return resp.Header, nil
}

func graphErrorMessage(body []byte) string {
	var e transfer.GraphErrorResponse
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.Error.ErrorUserMsg != "" {
		return e.Error.ErrorUserMsg
	}
	return e.Error.Message
}
