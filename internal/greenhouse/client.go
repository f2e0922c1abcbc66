// Package greenhouse is a read-only client for the applicant-tracking
// Harvest API: application listings, candidate detail, and job-post
// descriptions.
package greenhouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hothouse/hothouse/internal/config"
)

// ErrMissingAuthKey is returned when no API key is configured.
var ErrMissingAuthKey = errors.New("greenhouse auth key is not set")

// Client calls the Harvest API with basic auth.
type Client struct {
	baseURL    string
	authKey    string
	httpClient *http.Client
}

// NewClient creates a Harvest API client.
func NewClient(cfg config.GreenhouseConfig) (*Client, error) {
	if cfg.AuthKey == "" {
		return nil, ErrMissingAuthKey
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		authKey:    cfg.AuthKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ListApplications fetches one page of active applications for a job
// posting. An empty slice marks the end of pagination.
func (c *Client) ListApplications(ctx context.Context, jobID int64, page int) ([]Application, error) {
	query := url.Values{}
	query.Set("job_id", strconv.FormatInt(jobID, 10))
	query.Set("page", strconv.Itoa(page))
	query.Set("status", StatusActive)

	body, err := c.get(ctx, "applications?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("list applications for job %d page %d: %w", jobID, page, err)
	}

	var applications []Application
	if err := json.Unmarshal(body, &applications); err != nil {
		return nil, fmt.Errorf("decode applications page %d: %w", page, err)
	}
	return applications, nil
}

// GetCandidateRaw fetches a candidate-detail payload without decoding it,
// so callers can cache the raw bytes.
func (c *Client) GetCandidateRaw(ctx context.Context, candidateID int64) ([]byte, error) {
	body, err := c.get(ctx, fmt.Sprintf("candidates/%d", candidateID))
	if err != nil {
		return nil, fmt.Errorf("get candidate %d: %w", candidateID, err)
	}
	return body, nil
}

// GetJobPostDescription fetches the job posting's description text used as
// scoring context.
func (c *Client) GetJobPostDescription(ctx context.Context, jobID int64) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("jobs/%d/job_post", jobID))
	if err != nil {
		return "", fmt.Errorf("get job post %d: %w", jobID, err)
	}

	var post jobPost
	if err := json.Unmarshal(body, &post); err != nil {
		return "", fmt.Errorf("decode job post %d: %w", jobID, err)
	}
	return post.Content, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.authKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
