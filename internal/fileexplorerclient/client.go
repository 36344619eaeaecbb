// Package fileexplorerclient talks to the external file-explorer service
// (spec §6): candidate-file search plus per-path tag apply/remove.
package fileexplorerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Candidate struct {
	Path    string   `json:"path"`
	Score   *float64 `json:"score,omitempty"`
	Preview *string  `json:"preview,omitempty"`
}

type TagInput struct {
	Key        string   `json:"key"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// Search returns up to limit candidate files for repositoryID. Callers
// fall back to a local checkout walk when this errors — see
// internal/worker/sample.go.
func (c *Client) Search(ctx context.Context, repositoryID string, limit int) ([]Candidate, error) {
	url := fmt.Sprintf("%s/api/search?repositoryId=%s&limit=%d", c.baseURL, repositoryID, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("fileexplorer: search %s: status %d: %s", repositoryID, resp.StatusCode, body)
	}

	var candidates []Candidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("fileexplorer: decode search results: %w", err)
	}
	return candidates, nil
}

type tagsRequest struct {
	RepositoryID string     `json:"repositoryId"`
	Path         string     `json:"path"`
	Tags         []TagInput `json:"tags"`
}

func (c *Client) ApplyTags(ctx context.Context, repositoryID, path string, tags []TagInput) error {
	return c.sendTags(ctx, http.MethodPost, repositoryID, path, tags)
}

func (c *Client) RemoveTags(ctx context.Context, repositoryID, path string, tags []TagInput) error {
	return c.sendTags(ctx, http.MethodDelete, repositoryID, path, tags)
}

func (c *Client) sendTags(ctx context.Context, method, repositoryID, path string, tags []TagInput) error {
	body, err := json.Marshal(tagsRequest{RepositoryID: repositoryID, Path: path, Tags: tags})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/tags", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("fileexplorer: %s tags %s/%s: status %d: %s", method, repositoryID, path, resp.StatusCode, respBody)
	}
	return nil
}

func (c *Client) Healthz(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fileexplorer: healthz status %d", resp.StatusCode)
	}
	return nil
}
