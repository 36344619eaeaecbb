// Package catalogclient is a thin HTTP client for the external catalog
// service described in spec §6. No third-party HTTP client library
// appears anywhere in the retrieved corpus (a go-resty require line shows
// up in one manifest but no source demonstrating its API was retrieved),
// so this follows net/http directly in the manner of the teacher's own
// dependency-light style elsewhere in the codebase.
package catalogclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Tag struct {
	Key        string   `json:"key"`
	Value      string   `json:"value"`
	Source     *string  `json:"source,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type Repository struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RepoURL       string `json:"repoUrl"`
	RepositoryURL string `json:"repositoryUrl"`
	DefaultBranch string `json:"defaultBranch"`
	Readme        string `json:"readme"`
	Description   string `json:"description"`
	Tags          []Tag  `json:"tags"`
}

// URL resolves the legacy repositoryUrl field when repoUrl is absent.
func (r Repository) URL() string {
	if r.RepoURL != "" {
		return r.RepoURL
	}
	return r.RepositoryURL
}

type Summary struct {
	ID           string  `json:"id"`
	IngestStatus *string `json:"ingestStatus,omitempty"`
}

type TagBatch struct {
	Tags   []Tag            `json:"tags"`
	Remove []RemoveTagKey   `json:"remove"`
}

type RemoveTagKey struct {
	Key   string `json:"key"`
	Value string `json:"value"`
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

func (c *Client) GetRepository(ctx context.Context, id string) (Repository, error) {
	url := fmt.Sprintf("%s/apps/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Repository{}, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Repository{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Repository{}, fmt.Errorf("catalog: get repository %s: status %d: %s", id, resp.StatusCode, body)
	}

	var repo Repository
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return Repository{}, fmt.Errorf("catalog: decode repository %s: %w", id, err)
	}
	return repo, nil
}

func (c *Client) ApplyTags(ctx context.Context, id string, batch TagBatch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/apps/%s/tags", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
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
		return fmt.Errorf("catalog: apply tags %s: status %d: %s", id, resp.StatusCode, respBody)
	}
	return nil
}

// ListRepositories pages through the catalog's repository index for the
// scheduler backstop.
func (c *Client) ListRepositories(ctx context.Context, page, perPage int) ([]Summary, error) {
	url := fmt.Sprintf("%s/apps?page=%d&perPage=%d", c.baseURL, page, perPage)
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
		return nil, fmt.Errorf("catalog: list repositories page=%d: status %d: %s", page, resp.StatusCode, body)
	}

	var summaries []Summary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return nil, fmt.Errorf("catalog: decode repository list: %w", err)
	}
	return summaries, nil
}
