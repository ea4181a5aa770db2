// Package search drives the upstream search cluster: counting documents in a
// time window and triggering window exports to object storage
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	perr "slipway/internal/platform/errors"
	"slipway/internal/platform/logger"
	"slipway/internal/services/pipeline/domain"
)

// Config holds the search cluster connection settings
type Config struct {
	Host     string
	Port     int
	Index    string
	Username string
	Password string

	// TimestampField is the document field windows are cut on
	TimestampField string

	// HTTPTimeout caps each request; zero means rely on ctx deadlines
	HTTPTimeout time.Duration
}

// Client implements domain.SourceDriver against a search HTTP API
type Client struct {
	cfg    Config
	client *http.Client
}

// New constructs a search client
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

func (c *Client) baseURL() string {
	return fmt.Sprintf("http://%s:%d", c.cfg.Host, c.cfg.Port)
}

// rangeQuery selects documents whose timestamp falls inside the window,
// start inclusive and end exclusive so adjacent windows never overlap
func (c *Client) rangeQuery(rec *domain.Record) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				c.cfg.TimestampField: map[string]any{
					"gte": rec.WindowStart.UTC().Format(time.RFC3339),
					"lt":  rec.WindowEnd.UTC().Format(time.RFC3339),
				},
			},
		},
	}
}

// Count implements domain.SourceDriver
func (c *Client) Count(ctx context.Context, rec *domain.Record) (int64, error) {
	url := fmt.Sprintf("%s/%s/_count", c.baseURL(), c.cfg.Index)

	var out struct {
		Count int64 `json:"count"`
	}
	if err := c.postJSON(ctx, url, c.rangeQuery(rec), &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Export implements domain.SourceDriver. It asks the cluster to write every
// document in the window to the record's stage location and waits for the
// job to be accepted
func (c *Client) Export(ctx context.Context, rec *domain.Record) error {
	url := fmt.Sprintf("%s/%s/_export", c.baseURL(), c.cfg.Index)

	body := c.rangeQuery(rec)
	body["destination"] = rec.StageSubcategory
	body["format"] = "json"

	var out struct {
		Accepted bool   `json:"accepted"`
		Reason   string `json:"reason"`
	}
	if err := c.postJSON(ctx, url, body, &out); err != nil {
		return err
	}
	if !out.Accepted {
		return perr.Unavailablef("search export rejected: %s", out.Reason)
	}

	logger.C(ctx).Info().
		Str("destination", rec.StageSubcategory).
		Msg("search export accepted")
	return nil
}

func (c *Client) postJSON(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return perr.JSONErrf("encode search request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "search request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return perr.Unavailablef("search returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return perr.Newf(perr.ErrorCodeInvalidArgument, "search returned %d: %s", resp.StatusCode, b)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return perr.JSONErrf("decode search response: %v", err)
	}
	return nil
}
