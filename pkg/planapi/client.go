package planapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cisops/cisplan-scout/pkg/cisplan"
)

// Client is the central connection manager for the CIS Plan API.
// All plan server requests should go through this client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new plan API client.
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a server-reported failure: the request reached the server
// and came back with an error envelope.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// envelope is the one documented response schema: every endpoint returns
// {status, message?, data?}. Anything else is a shape error.
type envelope struct {
	Status  *string         `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// decodeEnvelope parses a response body strictly. No branch-per-shape
// sniffing: a missing status field fails loudly.
func decodeEnvelope(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unexpected response shape: %w", err)
	}
	if env.Status == nil {
		return nil, fmt.Errorf("unexpected response shape: missing %q", "status")
	}
	if *env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("server reported status %q", *env.Status)
		}
		return nil, &APIError{Message: msg}
	}
	return env.Data, nil
}

// do runs a request and returns the envelope's data payload.
func (c *Client) do(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode request: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	data, envErr := decodeEnvelope(raw)
	if envErr != nil {
		// A decodable error envelope beats a bare status code.
		var apiErr *APIError
		if errors.As(envErr, &apiErr) {
			return nil, apiErr
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("%s %s: server returned status %d", method, path, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, envErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: server returned status %d", method, path, resp.StatusCode)
	}
	return data, nil
}

// FetchTree retrieves and normalizes the full plan hierarchy.
func (c *Client) FetchTree(ctx context.Context) (*cisplan.Entity, error) {
	data, err := c.do(ctx, http.MethodGet, TreePath, nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("GET %s: unexpected response shape: missing %q", TreePath, "data")
	}
	var root cisplan.Entity
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("GET %s: unexpected response shape: %w", TreePath, err)
	}
	if err := cisplan.Normalize(&root); err != nil {
		return nil, fmt.Errorf("GET %s: %w", TreePath, err)
	}
	return &root, nil
}

// FetchEntity retrieves a single entity by type and identifier.
func (c *Client) FetchEntity(ctx context.Context, t cisplan.EntityType, id string) (*cisplan.Entity, error) {
	if !t.Valid() || t == cisplan.TypeCISPlan {
		return nil, fmt.Errorf("cannot fetch entity of type %q", t)
	}
	path := fmt.Sprintf("/api/%s/%s", t.APIPath(), id)
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("GET %s: unexpected response shape: missing %q", path, "data")
	}
	var e cisplan.Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("GET %s: unexpected response shape: %w", path, err)
	}
	if err := cisplan.NormalizeAs(&e, t); err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return &e, nil
}

// moveRequest is the relocation payload.
type moveRequest struct {
	ElementID   string `json:"elementId"`
	NewParentID string `json:"newParentId"`
}

// MoveEntity relocates an entity under a new parent. Server-side legality
// failures come back as *APIError with the server's message.
func (c *Client) MoveEntity(ctx context.Context, elementID, newParentID string) error {
	_, err := c.do(ctx, http.MethodPost, MovePath, moveRequest{
		ElementID:   elementID,
		NewParentID: newParentID,
	})
	return err
}

// UpdateEntity patches scalar fields of an entity.
func (c *Client) UpdateEntity(ctx context.Context, t cisplan.EntityType, id string, fields map[string]string) error {
	if !t.Valid() || t == cisplan.TypeCISPlan {
		return fmt.Errorf("cannot update entity of type %q", t)
	}
	path := fmt.Sprintf("/api/%s/%s", t.APIPath(), id)
	_, err := c.do(ctx, http.MethodPut, path, fields)
	return err
}

// DeleteEntity removes an entity and its subtree.
func (c *Client) DeleteEntity(ctx context.Context, t cisplan.EntityType, id string) error {
	if !t.Valid() || t == cisplan.TypeCISPlan {
		return fmt.Errorf("cannot delete entity of type %q", t)
	}
	path := fmt.Sprintf("/api/%s/%s", t.APIPath(), id)
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}
