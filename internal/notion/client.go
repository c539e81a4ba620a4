// Package notion is the adapter for the external knowledge store. It isolates
// the rest of the service from the store's property naming and wire format.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const apiVersion = "2022-06-28"

// Store failure kinds. Callers must not treat a missing record like a
// transient failure, so these are distinct sentinels.
var (
	ErrNotFound     = errors.New("record not found")
	ErrUnauthorized = errors.New("invalid store credential")
)

type Client struct {
	token      string
	databaseID string
	baseURL    string
	client     *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	titleProp string // resolved once via the schema probe
}

func New(token, databaseID, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		databaseID: databaseID,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// knownTitleProps are the title-property names observed across database
// generations. The probe accepts either.
var knownTitleProps = []string{"Title", "Name"}

// TitleProperty resolves the database's title property name, probing the
// schema on first use and caching the answer.
func (c *Client) TitleProperty(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.titleProp != "" {
		return c.titleProp, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/v1/databases/"+c.databaseID, nil)
	if err != nil {
		return "", fmt.Errorf("probe database schema: %w", err)
	}

	var db struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &db); err != nil {
		return "", fmt.Errorf("parse database schema: %w", err)
	}

	for _, name := range knownTitleProps {
		if p, ok := db.Properties[name]; ok && p.Type == "title" {
			c.titleProp = name
			c.logger.Info("resolved title property", "property", name)
			return name, nil
		}
	}
	return "", fmt.Errorf("database %s has no title property named Title or Name; check the database schema", c.databaseID)
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do executes a store API call and returns the response body. Auth and
// not-found failures map to the package sentinels.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w: %s", method, path, ErrNotFound, apiErr.Message)
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%s %s: %w: %s", method, path, ErrUnauthorized, apiErr.Message)
	}
	if apiErr.Message != "" {
		return nil, fmt.Errorf("store error %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
	}
	return nil, fmt.Errorf("store error %d: %s", resp.StatusCode, string(body))
}
