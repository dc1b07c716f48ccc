// Package client is an HTTP client for the blog API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// DefaultBaseURL is the API root of a locally running server.
const DefaultBaseURL = "http://localhost:5000/api"

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == fiber.StatusNotFound
}

// Health is the body of GET /api.
type Health struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type postBody struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Client talks to one API root. It is safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request. Zero means no bound beyond the context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New returns a client for the API rooted at baseURL, e.g. http://localhost:5000/api.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, fiber.MethodGet, "", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListPosts returns all posts, newest first. Both a bare array and a
// {"data": [...]} envelope are accepted.
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var raw json.RawMessage
	if err := c.do(ctx, fiber.MethodGet, "/posts", nil, &raw); err != nil {
		return nil, err
	}
	return decodePostList(raw)
}

func (c *Client) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, fiber.MethodGet, postPath(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePost(ctx context.Context, title, content string) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, fiber.MethodPost, "/posts", postBody{Title: title, Content: content}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdatePost(ctx context.Context, id, title, content string) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, fiber.MethodPut, postPath(id), postBody{Title: title, Content: content}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, fiber.MethodDelete, postPath(id), nil, nil)
}

func postPath(id string) string {
	return "/posts/" + url.PathEscape(id)
}

// do sends one request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Bytes releases the agent.
	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)

	if timeout := c.requestTimeout(ctx); timeout > 0 {
		a.Timeout(timeout)
	}
	if body != nil {
		a.JSON(body)
	}
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status, respBody, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
	}

	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return decodeAPIError(status, respBody)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// requestTimeout combines the client timeout with the context deadline.
func (c *Client) requestTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout == 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var er models.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		apiErr.Message = er.Error
		apiErr.Code = er.Code
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = fiber.NewError(status).Message
	}
	return apiErr
}

func decodePostList(raw json.RawMessage) ([]models.Post, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Data []models.Post `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode post list: %w", err)
		}
		return nonNil(envelope.Data), nil
	}

	var posts []models.Post
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &posts); err != nil {
			return nil, fmt.Errorf("decode post list: %w", err)
		}
	}
	return nonNil(posts), nil
}

func nonNil(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	return posts
}
