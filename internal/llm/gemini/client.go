// Package gemini implements the triage Provider interface on Google's
// Gemini API, with a bounded retry policy and a deterministic offline
// fallback. Callers never receive an error from Complete: any persistent
// backend failure degrades to the fallback heuristic.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/linnemanlabs/go-core/log"
)

// DefaultModel is used when no model ID is configured.
const DefaultModel = "gemini-2.5-flash"

const (
	maxAttempts     = 3
	initialInterval = 1 * time.Second
	maxInterval     = 8 * time.Second
	maxOutputTokens = 1000
	temperature     = 0.1
)

var errNoUsableText = errors.New("gemini: no usable text in response")

// Client wraps a Gemini generative model. A Client constructed without an
// API key performs no network I/O at all and serves the fallback for
// every call, which keeps the whole pipeline testable offline.
type Client struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	modelID string
	logger  log.Logger
}

// New creates a Gemini-backed client. An empty apiKey yields a
// fallback-only client rather than an error.
func New(ctx context.Context, apiKey, modelID string, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if modelID == "" {
		modelID = DefaultModel
	}

	c := &Client{modelID: modelID, logger: logger}

	if apiKey == "" {
		logger.Warn(ctx, "gemini api key not set, serving deterministic fallback responses")
		return c, nil
	}

	gc, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	model := gc.GenerativeModel(modelID)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxOutputTokens)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
	}

	c.client = gc
	c.model = model
	logger.Info(ctx, "initialized gemini model", "model", modelID)
	return c, nil
}

// Offline reports whether the client serves only the fallback heuristic.
func (c *Client) Offline() bool { return c.model == nil }

// Complete generates a structured triage response for the prompt. The
// error return exists to satisfy the Provider interface and is always
// nil: backend failure, safety blocks, and empty responses all resolve
// to the fallback.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.model == nil {
		return Fallback(prompt), nil
	}

	text, err := c.generateWithRetry(ctx, prompt)
	if err != nil {
		c.logger.Error(ctx, err, "gemini call failed, using fallback")
		return Fallback(prompt), nil
	}
	return text, nil
}

// generateWithRetry calls the backend with up to maxAttempts tries and
// exponential backoff between them. Safety blocks and empty responses
// are permanent failures: retrying would spend the budget on a response
// the API has already decided not to give.
func (c *Client) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialInterval
	bo.MaxInterval = maxInterval

	op := func() (string, error) {
		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		text, ok := extractText(resp)
		if !ok {
			return "", backoff.Permanent(errNoUsableText)
		}
		return text, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(maxAttempts),
	)
}

// extractText pulls the concatenated text parts out of the first
// candidate. A safety-blocked candidate is treated the same as an empty
// one.
func extractText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", false
	}
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", false
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(sb.String())
	return out, out != ""
}

// Close releases the underlying API client, if any.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
