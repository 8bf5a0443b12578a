// Package advisor asks an LLM for a coaching read on the analysis
// results. The whole package is optional: no API key, no advisor, and
// every report still works without it.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	httperrors "loopwatch/internal/infrastructure/errors"
	"loopwatch/internal/infrastructure/logging"
	"loopwatch/internal/types"
)

// Client calls the Anthropic Messages API synchronously.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     logging.Logger
}

// Option tweaks a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel overrides the model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates an advisor client. The API key is required; callers
// should skip advisor output entirely when they have none.
func NewClient(apiKey string, logger logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com/v1/messages",
		model:   "claude-sonnet-4-20250514",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const systemPrompt = `You are a productivity coach reviewing one week of app-switching
telemetry. Death loops are rapid back-and-forth switches between two apps.
Be specific and practical. Use the numbers you are given. Suggest at most
three interventions, each tied to a loop in the data. No preamble.`

// Advise sends the analysis to the model and returns its coaching text.
func (c *Client) Advise(ctx context.Context, result *types.AnalysisResult) (string, error) {
	if c.apiKey == "" {
		return "", httperrors.HandleValidationError("Advise", "apiKey", "", "advisor requires an API key")
	}

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages: []message{
			{Role: "user", Content: buildPrompt(result)},
		},
	}

	var advice string
	err := httperrors.WithRetryContext(ctx, httperrors.AdvisorRetryConfig(), func() error {
		text, callErr := c.call(ctx, req)
		if callErr != nil {
			return callErr
		}
		advice = text
		return nil
	}, "Advise")
	if err != nil {
		return "", err
	}

	c.logger.Info("Advisor responded", "chars", len(advice))
	return advice, nil
}

func (c *Client) call(ctx context.Context, req messagesRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", httperrors.New("Advise", err, httperrors.ErrCodeInternal)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", httperrors.New("Advise", err, httperrors.ErrCodeInternal)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", httperrors.Wrap("Advise", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", httperrors.Wrap("Advise", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", httperrors.New("Advise", fmt.Errorf("rate limited: %s", respBody), httperrors.ErrCodeRateLimited)
	case resp.StatusCode >= 500:
		return "", httperrors.New("Advise", fmt.Errorf("server error %d: %s", resp.StatusCode, respBody), httperrors.ErrCodeConnection)
	case resp.StatusCode != http.StatusOK:
		return "", httperrors.NewWithContext("Advise",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody),
			httperrors.ErrCodeInternal, map[string]string{"status": fmt.Sprintf("%d", resp.StatusCode)})
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", httperrors.New("Advise", fmt.Errorf("parse response: %w", err), httperrors.ErrCodeInternal)
	}
	if parsed.Error != nil {
		return "", httperrors.New("Advise", fmt.Errorf("api error %s: %s", parsed.Error.Type, parsed.Error.Message), httperrors.ErrCodeInternal)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", httperrors.New("Advise", fmt.Errorf("empty response"), httperrors.ErrCodeInternal)
	}
	return text.String(), nil
}

// buildPrompt flattens the analysis into plain text for the model.
func buildPrompt(result *types.AnalysisResult) string {
	var b strings.Builder

	s := result.Stats
	fmt.Fprintf(&b, "Window: last %d days.\n", result.WindowDays)
	fmt.Fprintf(&b, "Switches: %d total, %.1f per day, %d bounces (%.1f%%).\n",
		s.TotalSwitches, s.SwitchesPerDay, s.Bounces, s.BounceRate)
	fmt.Fprintf(&b, "Estimated loss: %.1f hours, $%.2f.\n\n", s.HoursLost, s.EstimatedCostUSD)

	if len(result.DeathLoops) == 0 {
		b.WriteString("No death loops above threshold.\n")
	} else {
		b.WriteString("Death loops, worst first:\n")
		for i, loop := range result.DeathLoops {
			fmt.Fprintf(&b, "%d. %s: %d occurrences, avg gap %.1fs, %.0f%% during work hours, severity %.0f/100\n",
				i+1, loop.Label(), loop.Occurrences, loop.AvgGapSeconds,
				loop.WorkHourPercentage, loop.SeverityScore)
		}
	}

	if len(result.TopApps) > 0 {
		b.WriteString("\nTop apps by time:\n")
		for _, app := range result.TopApps {
			fmt.Fprintf(&b, "- %s: %.1f hours across %d sessions\n",
				app.App, app.TotalSeconds/3600, app.Sessions)
		}
	}
	return b.String()
}
