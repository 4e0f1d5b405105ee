package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a thin HTTP client for the query gateway API.
type Client struct {
	BaseURL string
	Token   string

	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// APIError is a non-2xx response decoded into its error body.
type APIError struct {
	HTTPStatus int
	Message    string
	Body       map[string]interface{}
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.HTTPStatus)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		var parsed map[string]interface{}
		if json.Unmarshal(raw, &parsed) == nil {
			apiErr.Body = parsed
			if msg, ok := parsed["message"].(string); ok {
				apiErr.Message = msg
			} else if msg, ok := parsed["error"].(string); ok {
				apiErr.Message = msg
			}
		}
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		return json.Unmarshal(raw, out)
	}
	return nil
}

// IssueToken exchanges credentials for a bearer token.
func (c *Client) IssueToken(ctx context.Context, name, secret string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/auth/token",
		map[string]string{"name": name, "secret": secret}, &resp)
	return resp.Token, err
}

// QueryResult mirrors the gateway's query response.
type QueryResult struct {
	Status         string          `json:"status"`
	SQL            string          `json:"sql,omitempty"`
	Confidence     float64         `json:"confidence,omitempty"`
	Intent         string          `json:"intent,omitempty"`
	Columns        []string        `json:"columns,omitempty"`
	Rows           [][]interface{} `json:"rows,omitempty"`
	DeniedResource string          `json:"denied_resource,omitempty"`
	ReasonCode     string          `json:"reason_code,omitempty"`
	Message        string          `json:"message,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Ask submits a natural-language question. A denied outcome comes back as
// a result, not an error: the 403 body carries the denial details.
func (c *Client) Ask(ctx context.Context, question string) (*QueryResult, error) {
	var result QueryResult
	err := c.do(ctx, http.MethodPost, "/v1/query", map[string]string{"question": question}, &result)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Body != nil && apiErr.Body["status"] != nil {
			remarshaled, mErr := json.Marshal(apiErr.Body)
			if mErr == nil && json.Unmarshal(remarshaled, &result) == nil {
				return &result, nil
			}
		}
		return nil, err
	}
	return &result, nil
}

func (c *Client) Schema(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/v1/schema", nil, &out)
	return out, err
}

func (c *Client) Suggest(ctx context.Context) ([]string, error) {
	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/suggest", nil, &resp)
	return resp.Suggestions, err
}

func (c *Client) CreatePrincipal(ctx context.Context, name, typ, secret string, isAdmin bool) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodPost, "/v1/admin/principals", map[string]interface{}{
		"name": name, "type": typ, "secret": secret, "is_admin": isAdmin,
	}, &out)
	return out, err
}

func (c *Client) ListPrincipals(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/v1/admin/principals", nil, &out)
	return out, err
}

func (c *Client) DeletePrincipal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/admin/principals/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AddGrant(ctx context.Context, principal string, databases, tables, columns []string) error {
	return c.do(ctx, http.MethodPost, "/v1/admin/grants", map[string]interface{}{
		"principal": principal, "databases": databases, "tables": tables, "columns": columns,
	}, nil)
}

func (c *Client) ListAudit(ctx context.Context, principal, status string, limit int) (map[string]interface{}, error) {
	q := url.Values{}
	if principal != "" {
		q.Set("principal", principal)
	}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/v1/audit"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out map[string]interface{}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) RefreshSchema(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodPost, "/v1/admin/refresh", nil, &out)
	return out, err
}
