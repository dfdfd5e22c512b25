// Package embedapi calls an OpenAI-compatible /embeddings endpoint.
package embedapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"clipper/internal/services"
)

// Config holds configuration for the embedding endpoint.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// Client generates embeddings over HTTP.
type Client struct {
	client     *resty.Client
	model      string
	dimensions int
}

// New creates an embedding client.
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
	return &Client{client: client, model: cfg.Model, dimensions: cfg.Dimensions}
}

// Model returns the model name being used.
func (c *Client) Model() string {
	return c.model
}

// Dimensions returns the configured vector length.
func (c *Client) Dimensions() int {
	return c.dimensions
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed generates an embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var resp embeddingResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{Model: c.model, Input: texts, Dimensions: c.dimensions}).
		SetResult(&resp).
		SetError(&resp).
		Post("/embeddings")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "embedding", "request", "embedding endpoint unreachable", err)
	}
	if httpResp.IsError() {
		detail := fmt.Sprintf("status %d", httpResp.StatusCode())
		if resp.Error != nil && resp.Error.Message != "" {
			detail = resp.Error.Message
		}
		marker := services.ErrExternalTool
		if httpResp.StatusCode() == http.StatusUnauthorized || httpResp.StatusCode() == http.StatusForbidden {
			marker = services.ErrConfiguration
		}
		return nil, services.Wrap(marker, "embedding", "request", "embedding endpoint error: "+detail, nil)
	}
	if len(resp.Data) != len(texts) {
		return nil, services.Wrap(services.ErrValidation, "embedding", "response",
			fmt.Sprintf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(texts)), nil)
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index >= 0 && item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return nil, services.Wrap(services.ErrValidation, "embedding", "response", fmt.Sprintf("missing embedding for input %d", i), nil)
		}
	}
	return embeddings, nil
}
