package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fyrsmithlabs/planboard/internal/conversation"
)

// OpenAIClient calls an OpenAI-compatible chat/completions endpoint.
type OpenAIClient struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      *retrier
}

// NewOpenAI returns an OpenAI-compatible client.
func NewOpenAI(cfg Config) *OpenAIClient {
	cfg = cfg.withDefaults(defaultOpenAIModel, defaultOpenAIBaseURL)
	return &OpenAIClient{
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      &retrier{limiter: cfg.limiter(), maxRetries: cfg.MaxRetries, baseBackoff: cfg.BaseBackoff},
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

type openAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the history and returns the first choice.
func (o *OpenAIClient) Complete(ctx context.Context, history []conversation.Message) (string, error) {
	if o.apiKey == "" {
		return "", ErrNotConfigured
	}

	req := openAIRequest{Model: o.model, Messages: make([]openAIMessage, 0, len(history))}
	for _, m := range history {
		role := "user"
		if m.Role == conversation.RoleModel {
			role = "assistant"
		}
		req.Messages = append(req.Messages, openAIMessage{Role: role, Content: m.Text})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	return o.retry.do(ctx, func(ctx context.Context) (string, error) {
		return o.doRequest(ctx, body)
	})
}

func (o *OpenAIClient) doRequest(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: &transportError{err: err}}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(data)
		var errResp openAIError
		if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return "", statusError(resp.StatusCode, msg)
	}

	var out openAIResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty response from API")
	}
	return out.Choices[0].Message.Content, nil
}
