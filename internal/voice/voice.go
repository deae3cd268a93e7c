// Package voice places outbound assistant phone calls through the Vapi REST
// API. One call is tracked at a time.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/config"
	"github.com/fyrsmithlabs/planboard/internal/logging"
)

const defaultBaseURL = "https://api.vapi.ai"

// ErrNotConfigured means a required credential or id is missing.
var ErrNotConfigured = errors.New("voice calling is not configured")

// State is a call lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateCalling   State = "calling"
	StateConnected State = "connected"
	StateEnded     State = "ended"
	StateError     State = "error"
)

// Target names a configured call destination.
type Target string

const (
	TargetVenue      Target = "venue"
	TargetRestaurant Target = "restaurant"
)

// ParseTarget accepts "venue" or "restaurant".
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetVenue, TargetRestaurant:
		return t, nil
	default:
		return "", fmt.Errorf("unknown call target %q", s)
	}
}

// Status is the tracked call.
type Status struct {
	ID     string `json:"id"`
	State  State  `json:"status"`
	Target Target `json:"target,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Client starts and ends calls.
type Client struct {
	apiKey     string
	baseURL    string
	targets    map[Target]config.CallTarget
	httpClient *http.Client
	logger     *logging.Logger

	mu      sync.Mutex
	current Status
}

// New returns a Client for cfg. Missing settings are reported when a call
// is placed.
func New(cfg config.VoiceConfig, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey.Value(),
		baseURL: strings.TrimRight(baseURL, "/"),
		targets: map[Target]config.CallTarget{
			TargetVenue:      cfg.Venue,
			TargetRestaurant: cfg.Restaurant,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("voice"),
		current:    Status{State: StateIdle},
	}
}

// CallVenue calls the configured venue.
func (c *Client) CallVenue(ctx context.Context) Status {
	return c.Call(ctx, TargetVenue)
}

// CallRestaurant calls the configured restaurant.
func (c *Client) CallRestaurant(ctx context.Context) Status {
	return c.Call(ctx, TargetRestaurant)
}

type callRequest struct {
	AssistantID   string   `json:"assistantId"`
	PhoneNumberID string   `json:"phoneNumberId"`
	Customer      customer `json:"customer"`
}

type customer struct {
	Number string `json:"number"`
}

type callResponse struct {
	ID     string `json:"id"`
	CallID string `json:"callId"`
}

// Call starts a call to target. Failures, configuration errors included,
// are reported in the returned Status rather than as an error.
func (c *Client) Call(ctx context.Context, target Target) Status {
	t, err := c.target(target)
	if err != nil {
		return c.set(Status{State: StateError, Target: target, Error: err.Error()})
	}

	c.set(Status{State: StateCalling, Target: target})

	id, err := c.startCall(ctx, t)
	if err != nil {
		c.logger.Error(ctx, "failed to start call", zap.String("target", string(target)), zap.Error(err))
		return c.set(Status{State: StateError, Target: target, Error: err.Error()})
	}
	c.logger.Info(ctx, "call started", zap.String("target", string(target)), zap.String("call_id", id))
	return c.set(Status{ID: id, State: StateConnected, Target: target})
}

func (c *Client) target(target Target) (config.CallTarget, error) {
	if c.apiKey == "" {
		return config.CallTarget{}, fmt.Errorf("%w: set voice.api_key", ErrNotConfigured)
	}
	t, ok := c.targets[target]
	if !ok {
		return config.CallTarget{}, fmt.Errorf("unknown call target %q", target)
	}
	switch {
	case t.AssistantID == "":
		return t, fmt.Errorf("%w: set voice.%s.assistant_id", ErrNotConfigured, target)
	case t.PhoneNumberID == "":
		return t, fmt.Errorf("%w: set voice.%s.phone_number_id", ErrNotConfigured, target)
	case t.Customer == "":
		return t, fmt.Errorf("%w: set voice.%s.customer_number", ErrNotConfigured, target)
	}
	return t, nil
}

func (c *Client) startCall(ctx context.Context, t config.CallTarget) (string, error) {
	body, err := json.Marshal(callRequest{
		AssistantID:   t.AssistantID,
		PhoneNumberID: t.PhoneNumberID,
		Customer:      customer{Number: t.Customer},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	data, err := c.post(ctx, "/call", body)
	if err != nil {
		return "", err
	}

	var out callResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.ID != "" {
		return out.ID, nil
	}
	if out.CallID != "" {
		return out.CallID, nil
	}
	return "", errors.New("call response has no id")
}

// EndCall hangs up the connected call. It is a no-op unless a call is
// connected. On failure the call stays connected.
func (c *Client) EndCall(ctx context.Context) (Status, error) {
	cur := c.Status()
	if cur.ID == "" || cur.State != StateConnected {
		return cur, nil
	}

	if _, err := c.post(ctx, "/call/"+cur.ID+"/end", nil); err != nil {
		c.logger.Error(ctx, "failed to end call", zap.String("call_id", cur.ID), zap.Error(err))
		return cur, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.ID == cur.ID {
		c.current.State = StateEnded
	}
	return c.current, nil
}

// Status returns the tracked call.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Client) set(s Status) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = s
	return s
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vapi request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("vapi API error: %d %s - %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(data)))
	}
	return data, nil
}
