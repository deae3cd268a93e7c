package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fyrsmithlabs/planboard/internal/conversation"
)

// GeminiClient calls the Gemini generateContent REST API.
type GeminiClient struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      *retrier
}

// NewGemini returns a Gemini client. An empty API key is reported by
// Complete, not here, so the service can start before it is set.
func NewGemini(cfg Config) *GeminiClient {
	cfg = cfg.withDefaults(defaultGeminiModel, defaultGeminiBaseURL)
	return &GeminiClient{
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      &retrier{limiter: cfg.limiter(), maxRetries: cfg.MaxRetries, baseBackoff: cfg.BaseBackoff},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete sends the history and returns the first candidate's text.
func (g *GeminiClient) Complete(ctx context.Context, history []conversation.Message) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}

	req := geminiRequest{Contents: make([]geminiContent, 0, len(history))}
	for _, m := range history {
		req.Contents = append(req.Contents, geminiContent{
			Role:  string(m.Role),
			Parts: []geminiPart{{Text: m.Text}},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	return g.retry.do(ctx, func(ctx context.Context) (string, error) {
		return g.doRequest(ctx, body)
	})
}

func (g *GeminiClient) doRequest(ctx context.Context, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
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
		var errResp geminiError
		if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
			if errResp.Error.Status != "" {
				msg = errResp.Error.Status + ": " + msg
			}
		}
		return "", statusError(resp.StatusCode, msg)
	}

	var out geminiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
