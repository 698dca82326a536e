package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	deepseekAPIURL = "https://api.deepseek.com/v1"
	deepseekModel  = "deepseek-chat"
	apiTimeoutSec  = 60
)

// DeepseekClient talks to the Deepseek chat completions API
type DeepseekClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewDeepseekClient creates a new Deepseek API client. Empty model and
// baseURL fall back to deepseek-chat on the public endpoint.
func NewDeepseekClient(apiKey, model, baseURL string) *DeepseekClient {
	if model == "" {
		model = deepseekModel
	}
	if baseURL == "" {
		baseURL = deepseekAPIURL
	}
	return &DeepseekClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: apiTimeoutSec * time.Second},
	}
}

type deepseekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepseekRequest struct {
	Model    string            `json:"model"`
	Messages []deepseekMessage `json:"messages"`
}

type deepseekResponseChoice struct {
	Message deepseekMessage `json:"message"`
}

type deepseekResponse struct {
	Choices []deepseekResponseChoice `json:"choices"`
	ID      string                   `json:"id,omitempty"`
}

// GenerateText sends the prompt as a single user message
func (c *DeepseekClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	// Create request body
	reqJSON, err := json.Marshal(deepseekRequest{
		Model:    c.model,
		Messages: []deepseekMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	// Create HTTP request with timeout
	ctx, cancel := context.WithTimeout(ctx, apiTimeoutSec*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	// Send the request with timing
	log.Debug("Sending request to Deepseek API", "model", c.model)
	sent := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("deepseek request timed out after %v", time.Since(sent))
		}
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	log.Debug("Received response from Deepseek API", "status", resp.StatusCode, "took", time.Since(sent))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	// Parse response
	var parsed deepseekResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
