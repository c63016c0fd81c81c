package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gitlab.com/dirk.krummacker/relationship-service/pkg/model"
)

// apiClient sends authenticated requests to the service.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL string, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// apiError is an error response of the service.
type apiError struct {
	status int
	body   model.ErrorBody
}

func (e *apiError) Error() string {
	if e.body.Details != nil {
		return fmt.Sprintf("%d %s: %v", e.status, e.body.Message, e.body.Details)
	}
	return fmt.Sprintf("%d %s", e.status, e.body.Message)
}

func (a *apiClient) chat(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	var res model.ChatResponse
	err := a.call(ctx, http.MethodPost, "/api/ai/chat", req, &res)
	return res, err
}

func (a *apiClient) insights(ctx context.Context) (model.InsightsResponse, error) {
	var res model.InsightsResponse
	err := a.call(ctx, http.MethodGet, "/api/ai/insights", nil, &res)
	return res, err
}

// call sends the request and decodes a successful answer into out. Error responses are returned
// as *apiError.
func (a *apiClient) call(ctx context.Context, method string, path string, in interface{}, out interface{}) error {
	resBody, status, _, err := a.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		var envelope model.ErrorEnvelope
		if err := json.Unmarshal(resBody, &envelope); err != nil || envelope.Error.Message == "" {
			envelope.Error.Message = http.StatusText(status)
		}
		return &apiError{status: status, body: envelope.Error}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resBody, out)
}

// send performs the request and measures how long it took until the body was read.
func (a *apiClient) send(ctx context.Context, method string, path string, in interface{}) ([]byte, int, time.Duration, error) {
	var bodyReader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, 0, 0, err
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("could not create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	before := time.Now()
	res, err := a.http.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("error making http request: %w", err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("could not read response body: %w", err)
	}
	return resBody, res.StatusCode, time.Since(before), nil
}
