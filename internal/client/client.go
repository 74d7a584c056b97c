// Package client talks to the deepfake-guard HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"deepfake-guard/internal/model"
)

// Client is safe for concurrent use. The bearer token is picked up from the
// last successful auth call or set with SetToken.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// APIError is a non-2xx response. It unwraps to the taxonomy sentinel named
// by its code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return model.ErrorForCode(e.Code) }

func (c *Client) Register(ctx context.Context, email, password, name string) (model.AuthResult, error) {
	return c.authCall(ctx, "/v1/auth/register", map[string]string{"email": email, "password": password, "name": name})
}

func (c *Client) Login(ctx context.Context, email, password string) (model.AuthResult, error) {
	return c.authCall(ctx, "/v1/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) FederatedLogin(ctx context.Context, credential string) (model.AuthResult, error) {
	return c.authCall(ctx, "/v1/auth/federated", map[string]string{"credential": credential})
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) VerifyToken(ctx context.Context, token string) (model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	err := c.doWithToken(ctx, http.MethodGet, "/v1/auth/verify", token, nil, &out)
	return out.User, err
}

func (c *Client) Profile(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, "/v1/account/profile", nil, &u)
	return u, err
}

func (c *Client) Scan(ctx context.Context, ct model.ContentType, content string) (model.ScanResult, error) {
	var scan model.ScanResult
	body := map[string]string{"contentType": string(ct), "content": content}
	err := c.do(ctx, http.MethodPost, "/v1/scans", body, &scan)
	return scan, err
}

func (c *Client) History(ctx context.Context) ([]model.ScanResult, error) {
	var out struct {
		Scans []model.ScanResult `json:"scans"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/scans", nil, &out)
	return out.Scans, err
}

func (c *Client) ScanResult(ctx context.Context, id string) (model.ScanResult, error) {
	var scan model.ScanResult
	err := c.do(ctx, http.MethodGet, "/v1/scans/"+url.PathEscape(id), nil, &scan)
	return scan, err
}

func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	err := c.do(ctx, http.MethodGet, "/v1/scans/stats", nil, &st)
	return st, err
}

func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/version", nil, &out)
	return out.Version, err
}

func (c *Client) authCall(ctx context.Context, path string, body any) (model.AuthResult, error) {
	var res model.AuthResult
	if err := c.do(ctx, http.MethodPost, path, body, &res); err != nil {
		return model.AuthResult{}, err
	}
	c.SetToken(res.Token)
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.doWithToken(ctx, method, path, c.Token(), body, out)
}

func (c *Client) doWithToken(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Error
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
