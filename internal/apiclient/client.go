// Package apiclient is the typed Go client for the backend API, the
// counterpart of the page's fetch layer. It keeps the session cookie in a
// jar so one login carries across calls.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"mercamaps/internal/models"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Jar: jar},
	}, nil
}

// apiError is the {error: message} body every failure carries.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		var e apiError
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("api: %s", e.Error)
		}
		return fmt.Errorf("api: status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.UserResponse, error) {
	var res struct {
		User models.UserResponse `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth",
		map[string]string{"email": email, "password": password}, &res)
	if err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*models.UserResponse, error) {
	var res struct {
		User models.UserResponse `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth", nil, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/auth", nil, nil)
}

func (c *Client) Locations(ctx context.Context) ([]models.LocationResponse, error) {
	var res struct {
		Locations []models.LocationResponse `json:"locations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/locations", nil, &res); err != nil {
		return nil, err
	}
	return res.Locations, nil
}

type LocationPayload struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Notes string  `json:"notes,omitempty"`
}

func (c *Client) CreateLocation(ctx context.Context, p LocationPayload) (*models.LocationResponse, error) {
	var res struct {
		Location models.LocationResponse `json:"location"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/locations", p, &res); err != nil {
		return nil, err
	}
	return &res.Location, nil
}

func (c *Client) DeleteLocation(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/locations?id="+url.QueryEscape(strconv.FormatInt(id, 10)), nil, nil)
}

func (c *Client) Users(ctx context.Context) ([]models.UserResponse, error) {
	var res struct {
		Users []models.UserResponse `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &res); err != nil {
		return nil, err
	}
	return res.Users, nil
}

// UserPayload drives both create (ID zero) and partial update (ID set; nil
// fields untouched), the way the admin form reuses one save call.
type UserPayload struct {
	ID       int64   `json:"id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

func (c *Client) SaveUser(ctx context.Context, p UserPayload) (*models.UserResponse, error) {
	method := http.MethodPost
	if p.ID != 0 {
		method = http.MethodPut
	}
	var res struct {
		User models.UserResponse `json:"user"`
	}
	if err := c.do(ctx, method, "/api/users", p, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/users?id="+url.QueryEscape(strconv.FormatInt(id, 10)), nil, nil)
}
