package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Client talks to a generative-text completion endpoint. Callers treat
// every failure as "no suggestion" — nothing here is load-bearing.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var ErrDisabled = errors.New("text generation is not configured")

type HTTPClient struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewHTTPClient(endpoint, apiKey, model string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type completionRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Text string `json:"text"`
}

func (c *HTTPClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.endpoint == "" {
		return "", ErrDisabled
	}

	body, err := json.Marshal(completionRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned status %d", resp.StatusCode)
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", err
	}

	return completion.Text, nil
}
