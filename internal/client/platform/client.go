// Package platform talks to the projects/matches REST API and the readiness
// prediction model server.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"rashid-gateway/internal/model"
	"rashid-gateway/internal/utils"
)

type Client struct {
	baseURL string
	http    *http.Client

	// Only the newest predict run may land; issuing a new one cancels
	// whatever is still in flight.
	predictMu     sync.Mutex
	predictSeq    uint64
	cancelPredict context.CancelFunc
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    utils.NewHTTPClient(timeout),
	}
}

func (c *Client) GetProject(ctx context.Context, id, bearerToken string) (*model.Project, error) {
	var out model.ProjectResponse
	if err := c.get(ctx, "/projects/"+id, bearerToken, &out); err != nil {
		return nil, err
	}
	return &out.Project, nil
}

func (c *Client) GetMatches(ctx context.Context, id string, limit int, bearerToken string) ([]model.Match, error) {
	path := "/projects/" + id + "/matches"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out model.MatchesResponse
	if err := c.get(ctx, path, bearerToken, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

// Predict runs the readiness model. A new call aborts any in-flight one, so a
// slow earlier run can never overwrite a newer result.
func (c *Client) Predict(ctx context.Context, req model.PredictRequest) (*model.PredictResponse, error) {
	c.predictMu.Lock()
	if c.cancelPredict != nil {
		c.cancelPredict()
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancelPredict = cancel
	c.predictSeq++
	seq := c.predictSeq
	c.predictMu.Unlock()

	defer func() {
		cancel()
		c.predictMu.Lock()
		// A newer run may have replaced us already; only clear our own.
		if c.predictSeq == seq {
			c.cancelPredict = nil
		}
		c.predictMu.Unlock()
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal predict request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(runCtx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("predict: %s", strings.TrimSpace(string(text)))
	}

	var out model.PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path, bearerToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("platform %s: %s", path, strings.TrimSpace(string(text)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
