// Package nli calls a natural language inference service that scores how
// strongly two sentences contradict each other.
//
// The service accepts POST {base}/score with {"model", "premise",
// "hypothesis"} and answers {"score": <float>}.
package nli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"clipper/internal/services"
)

// Config holds configuration for the scoring endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client scores sentence pairs over HTTP.
type Client struct {
	client *resty.Client
	model  string
}

// New creates a scoring client.
func New(cfg Config) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Client{client: client, model: cfg.Model}
}

type scoreRequest struct {
	Model      string `json:"model,omitempty"`
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

type scoreResponse struct {
	Score *float64 `json:"score"`
	Error string   `json:"error,omitempty"`
}

// Score returns the contradiction probability for a and b.
func (c *Client) Score(ctx context.Context, a, b string) (float64, error) {
	var resp scoreResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(scoreRequest{Model: c.model, Premise: a, Hypothesis: b}).
		SetResult(&resp).
		SetError(&resp).
		Post("/score")
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "scoring", "request", "scoring endpoint unreachable", err)
	}
	if httpResp.IsError() {
		detail := fmt.Sprintf("status %d", httpResp.StatusCode())
		if resp.Error != "" {
			detail = resp.Error
		}
		marker := services.ErrExternalTool
		switch httpResp.StatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			marker = services.ErrConfiguration
		case http.StatusNotFound:
			marker = services.ErrNotFound
		}
		return 0, services.Wrap(marker, "scoring", "request", "scoring endpoint error: "+detail, nil)
	}
	if resp.Score == nil {
		return 0, services.Wrap(services.ErrValidation, "scoring", "response", "response has no score", nil)
	}
	return *resp.Score, nil
}
