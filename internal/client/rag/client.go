// Package rag talks to the external retrieval-augmented generation backend.
// Retrieval, ranking and generation all happen on that side; this client only
// carries match-result-scoped requests across.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rashid-gateway/internal/utils"
)

type InitResult struct {
	SourceURL     string `json:"source_url"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type ChatResult struct {
	Reply     string   `json:"reply"`
	Citations []string `json:"citations"`
}

type Client interface {
	Init(ctx context.Context, matchResultID string) (*InitResult, error)
	Chat(ctx context.Context, matchResultID, message string) (*ChatResult, error)
	Summary(ctx context.Context, matchResultID string) (string, error)
}

type HTTPClient struct {
	baseURL string
	prefix  string
	http    *http.Client
}

func NewHTTPClient(baseURL, prefix string, timeout time.Duration) *HTTPClient {
	if prefix == "" {
		prefix = "/rag"
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  prefix,
		http:    utils.NewHTTPClient(timeout),
	}
}

func (c *HTTPClient) Init(ctx context.Context, matchResultID string) (*InitResult, error) {
	var out InitResult
	err := c.post(ctx, "/init", map[string]string{"match_result_id": matchResultID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Chat(ctx context.Context, matchResultID, message string) (*ChatResult, error) {
	var out ChatResult
	err := c.post(ctx, "/chat", map[string]string{
		"match_result_id": matchResultID,
		"message":         message,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Summary(ctx context.Context, matchResultID string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := c.post(ctx, "/summary", map[string]string{"match_result_id": matchResultID}, &out)
	if err != nil {
		return "", err
	}
	return out.Summary, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.prefix+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The backend puts its complaint in the body; surface it as-is.
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("rag %s: %s", path, strings.TrimSpace(string(text)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
