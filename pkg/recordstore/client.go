// Package recordstore is a typed client for the HR backend that owns approved
// employee records and their change requests.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// Observer is told about every completed round trip.
// status is 0 when the request never produced a response.
type Observer func(operation string, status int, elapsed time.Duration)

// Client talks to the Record Store REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithObserver registers a latency observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for the given base URL (e.g. "https://hr.example.com/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  "hr-workflow-api",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch returns the raw data payload of a record resource.
func (c *Client) Fetch(ctx context.Context, token, path string) (json.RawMessage, error) {
	env, err := c.do(ctx, "fetch", http.MethodGet, path, token, nil, "")
	if err != nil {
		return nil, err
	}
	return env.Response.Data, nil
}

// ListRequests returns the change requests exposed at path.
func (c *Client) ListRequests(ctx context.Context, token, path string) ([]ChangeRequest, error) {
	env, err := c.do(ctx, "list_requests", http.MethodGet, path, token, nil, "")
	if err != nil {
		return nil, err
	}
	if len(env.Response.Data) == 0 || string(env.Response.Data) == "null" {
		return []ChangeRequest{}, nil
	}
	var out []ChangeRequest
	if err := json.Unmarshal(env.Response.Data, &out); err != nil {
		return nil, fmt.Errorf("decode change requests: %w", err)
	}
	return out, nil
}

// Submit sends a change request as a multipart body with one JSON part and any file parts.
func (c *Client) Submit(ctx context.Context, token, method, path string, form SubmitForm) (json.RawMessage, error) {
	body, contentType, err := form.encode()
	if err != nil {
		return nil, err
	}
	env, err := c.do(ctx, "submit", method, path, token, body, contentType)
	if err != nil {
		return nil, err
	}
	return env.Response.Data, nil
}

// Decide posts an approval decision.
func (c *Client) Decide(ctx context.Context, token, path string, decision Decision) error {
	raw, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	_, err = c.do(ctx, "decide", http.MethodPost, path, token, bytes.NewReader(raw), "application/json")
	return err
}

func (c *Client) do(ctx context.Context, operation, method, path, token string, body io.Reader, contentType string) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(operation, 0, start)
		return nil, &TransportError{Op: operation, Err: err}
	}
	defer resp.Body.Close()
	c.observe(operation, resp.StatusCode, start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: operation, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	env := &Envelope{}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(respBody, env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.ok() {
		return nil, &APIError{StatusCode: resp.StatusCode, Status: env.Status, Message: env.message()}
	}
	return env, nil
}

func (c *Client) observe(operation string, status int, start time.Time) {
	if c.observer != nil {
		c.observer(operation, status, time.Since(start))
	}
}

// SubmitForm is the multipart payload of a change request.
type SubmitForm struct {
	JSONPart string
	Data     any
	Files    []FilePart
}

// FilePart is one uploaded file.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Body        io.Reader
}

func (f SubmitForm) encode() (io.Reader, string, error) {
	if f.JSONPart == "" {
		return nil, "", fmt.Errorf("json part name required")
	}
	raw, err := json.Marshal(f.Data)
	if err != nil {
		return nil, "", fmt.Errorf("marshal %s: %w", f.JSONPart, err)
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.WriteField(f.JSONPart, string(raw)); err != nil {
		return nil, "", fmt.Errorf("write %s part: %w", f.JSONPart, err)
	}
	for _, file := range f.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create %s part: %w", file.Field, err)
		}
		if _, err := io.Copy(part, file.Body); err != nil {
			return nil, "", fmt.Errorf("copy %s part: %w", file.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}
