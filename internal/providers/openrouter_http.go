package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// doRequest posts to OpenRouter, retrying transient failures. It returns the
// number of attempts made.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, orReq *openRouterRequest) (*openRouterResponse, int, error) {
	var lastErr error
	attempt := 0
	for ; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt, err
		}

		// A nonce makes the retried request distinct for upstream caches.
		if attempt > 0 {
			c.injectNonce(orReq, attempt)
		}

		bodyBytes, err := json.Marshal(orReq)
		if err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/bookboost")
		req.Header.Set("X-Title", "BookBoost")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.sleepWithJitter(ctx, attempt, 0)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			c.sleepWithJitter(ctx, attempt, 0)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			rl := &RateLimitError{
				Message:    fmt.Sprintf("OpenRouter rate limited: %s", string(respBody)),
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				StatusCode: resp.StatusCode,
			}
			lastErr = rl
			c.sleepWithJitter(ctx, attempt, rl.RetryAfter)
			continue
		}
		if shouldRetry(resp.StatusCode) {
			lastErr = fmt.Errorf("OpenRouter error (status %d): %s", resp.StatusCode, string(respBody))
			c.sleepWithJitter(ctx, attempt, 0)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, attempt + 1, fmt.Errorf("OpenRouter error (status %d): %s", resp.StatusCode, string(respBody))
		}

		var orResp openRouterResponse
		if err := json.Unmarshal(respBody, &orResp); err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if retryable, err := shouldRetryResponse(&orResp); retryable {
			lastErr = err
			c.sleepWithJitter(ctx, attempt, 0)
			continue
		}

		return &orResp, attempt + 1, nil
	}

	return nil, attempt, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// shouldRetry returns true for status codes that should be retried.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		// Usually cache or format issues upstream; retried with a nonce.
		return true
	default:
		return statusCode >= 500
	}
}

// shouldRetryResponse checks a 200 response for transient API-level errors.
func shouldRetryResponse(resp *openRouterResponse) (bool, error) {
	if resp.Error != nil {
		switch fmt.Sprintf("%v", resp.Error.Code) {
		case "overloaded", "rate_limit_exceeded", "503", "502", "500":
			return true, fmt.Errorf("OpenRouter API error (retryable): %s", resp.Error.Message)
		}
		return false, nil
	}
	if len(resp.Choices) == 0 {
		return true, fmt.Errorf("empty choices in response (model=%s, id=%s)", resp.Model, resp.ID)
	}
	return false, nil
}

// injectNonce appends a unique comment to the last user message.
func (c *OpenRouterClient) injectNonce(req *openRouterRequest, attempt int) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != RoleUser {
			continue
		}
		if text, ok := req.Messages[i].Content.(string); ok {
			nonce := uuid.New().String()[:16]
			req.Messages[i].Content = text + fmt.Sprintf("\n<!-- retry_%d_id: %s -->", attempt, nonce)
		}
		return
	}
}

// sleepWithJitter backs off exponentially from retryDelay, capped at 10s,
// with -20% to +30% jitter. A server supplied floor takes precedence.
func (c *OpenRouterClient) sleepWithJitter(ctx context.Context, attempt int, floor time.Duration) {
	baseDelay := c.retryDelay * time.Duration(1<<attempt)
	if baseDelay > 10*time.Second {
		baseDelay = 10 * time.Second
	}
	delay := time.Duration(float64(baseDelay) * (0.8 + 0.5*rand.Float64()))
	if floor > delay {
		delay = floor
	}

	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
