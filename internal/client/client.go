package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/packrat-app/packrat/internal/models"
)

// Sentinel errors mapped from API status codes.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
)

// APIError is a non-2xx response from the server. Fields carries
// field-level validation messages when the server returned any.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// Client is a typed client for the packrat API. It is safe for sequential
// use by one session; set Token after login.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    http.DefaultClient,
	}
}

// SetToken installs the bearer token used for authenticated calls.
func (c *Client) SetToken(token string) {
	c.Token = token
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload interface{}) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

// do runs the request and decodes a 2xx body into out (when non-nil).
// 401 maps to ErrUnauthenticated and 404 to ErrNotFound so callers can
// branch without inspecting status codes.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if out != nil {
			return json.NewDecoder(resp.Body).Decode(out)
		}
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusNotFound:
		return ErrNotFound
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: "request failed"}
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Fields = body.Fields
	}
	return apiErr
}

// ==========================
// Auth
// ==========================

func (c *Client) Register(ctx context.Context, email, password string) (*models.User, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	user := &models.User{}
	if err := c.do(req, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates and returns the issued token with the user record.
// The token is not installed on the client; callers decide whether to keep it.
func (c *Client) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", nil, err
	}
	var out struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	if err := c.do(req, &out); err != nil {
		return "", nil, err
	}
	if out.Token == "" {
		return "", nil, errors.New("login succeeded but no token returned")
	}
	return out.Token, out.User, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	user := &models.User{}
	if err := c.do(req, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ==========================
// Assets
// ==========================

func (c *Client) ListAssets(ctx context.Context) ([]models.Asset, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/assets", nil)
	if err != nil {
		return nil, err
	}
	var assets []models.Asset
	if err := c.do(req, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// GetAsset returns (nil, nil) when the asset does not exist, mirroring the
// repository convention so screens can show an absent state without errors.
func (c *Client) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/assets/"+id, nil)
	if err != nil {
		return nil, err
	}
	asset := &models.Asset{}
	if err := c.do(req, asset); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return asset, nil
}

func (c *Client) CreateAsset(ctx context.Context, fields models.AssetFields) (models.Asset, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/assets", fields)
	if err != nil {
		return models.Asset{}, err
	}
	var asset models.Asset
	if err := c.do(req, &asset); err != nil {
		return models.Asset{}, err
	}
	return asset, nil
}

func (c *Client) UpdateAsset(ctx context.Context, id string, fields models.AssetFields) (*models.Asset, error) {
	req, err := c.newRequest(ctx, http.MethodPatch, "/assets/"+id, fields)
	if err != nil {
		return nil, err
	}
	asset := &models.Asset{}
	if err := c.do(req, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

func (c *Client) DeleteAsset(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/assets/"+id, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ==========================
// Audit
// ==========================

func (c *Client) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/audit?limit=%d", limit), nil)
	if err != nil {
		return nil, err
	}
	var entries []models.AuditEntry
	if err := c.do(req, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
