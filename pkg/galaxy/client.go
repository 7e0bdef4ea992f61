// Package galaxy is a Go SDK for the galaxy-server HTTP API.
package galaxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"galaxy/internal/camera"
	"galaxy/internal/dashboard"
	"galaxy/internal/domain"
	"galaxy/internal/httpapi"
	"galaxy/internal/timeline"
)

// APIError is a non-2xx reply. Retry is set when the server suggests an
// action, such as reloading after a failed load.
type APIError struct {
	StatusCode int
	Message    string
	Retry      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("galaxy api: %d %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the galaxy-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new galaxy API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e httpapi.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error, Retry: e.Retry}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// Status returns the server's load status.
func (c *Client) Status(ctx context.Context) (httpapi.StatusResponse, error) {
	var out httpapi.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// Reload asks the server to retry loading its samples.
func (c *Client) Reload(ctx context.Context) (httpapi.StatusResponse, error) {
	var out httpapi.StatusResponse
	err := c.do(ctx, http.MethodPost, "/api/reload", nil, &out)
	return out, err
}

// Frame composes a frame at progress with the server's default filters.
func (c *Client) Frame(ctx context.Context, progress float64) (domain.DisplayFrame, error) {
	var out domain.DisplayFrame
	q := url.Values{"progress": {strconv.FormatFloat(progress, 'f', -1, 64)}}
	err := c.do(ctx, http.MethodGet, "/api/frame?"+q.Encode(), nil, &out)
	return out, err
}

// Camera returns the camera fit for a viewport.
func (c *Client) Camera(ctx context.Context, w, h float64) (camera.CameraFit, error) {
	var out camera.CameraFit
	q := url.Values{
		"w": {strconv.FormatFloat(w, 'f', -1, 64)},
		"h": {strconv.FormatFloat(h, 'f', -1, 64)},
	}
	err := c.do(ctx, http.MethodGet, "/api/camera?"+q.Encode(), nil, &out)
	return out, err
}

// Search returns tickers matching q.
func (c *Client) Search(ctx context.Context, q string, limit int) ([]string, error) {
	var out []string
	v := url.Values{"q": {q}, "limit": {strconv.Itoa(limit)}}
	err := c.do(ctx, http.MethodGet, "/api/tickers?"+v.Encode(), nil, &out)
	return out, err
}

// Session is a handle on a server-side playback session.
type Session struct {
	c  *Client
	ID string
}

// CreateSession starts a playback session positioned at the last frame.
func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	var out httpapi.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &Session{c: c, ID: out.ID}, nil
}

func (s *Session) path(suffix string) string {
	return "/api/sessions/" + url.PathEscape(s.ID) + suffix
}

func (s *Session) state(ctx context.Context, method, suffix string, body any) (timeline.State, error) {
	var out timeline.State
	err := s.c.do(ctx, method, s.path(suffix), body, &out)
	return out, err
}

// Frame returns the frame at the session's progress.
func (s *Session) Frame(ctx context.Context) (domain.DisplayFrame, error) {
	var out domain.DisplayFrame
	err := s.c.do(ctx, http.MethodGet, s.path("/frame"), nil, &out)
	return out, err
}

func (s *Session) Play(ctx context.Context) (timeline.State, error) {
	return s.state(ctx, http.MethodPost, "/play", nil)
}

func (s *Session) Pause(ctx context.Context) (timeline.State, error) {
	return s.state(ctx, http.MethodPost, "/pause", nil)
}

func (s *Session) Toggle(ctx context.Context) (timeline.State, error) {
	return s.state(ctx, http.MethodPost, "/toggle", nil)
}

// Scrub moves to progress and stops playback.
func (s *Session) Scrub(ctx context.Context, progress float64) (timeline.State, error) {
	return s.state(ctx, http.MethodPut, "/progress", httpapi.ProgressRequest{Progress: progress})
}

func (s *Session) SetSpeed(ctx context.Context, speed float64) (timeline.State, error) {
	return s.state(ctx, http.MethodPut, "/speed", httpapi.SpeedRequest{Speed: speed})
}

// Filters returns the session's active filters.
func (s *Session) Filters(ctx context.Context) (httpapi.FiltersJSON, error) {
	var out httpapi.FiltersJSON
	err := s.c.do(ctx, http.MethodGet, s.path("/filters"), nil, &out)
	return out, err
}

// UpdateFilters applies a partial filter update.
func (s *Session) UpdateFilters(ctx context.Context, patch httpapi.FilterPatch) (httpapi.FiltersJSON, error) {
	var out httpapi.FiltersJSON
	err := s.c.do(ctx, http.MethodPut, s.path("/filters"), patch, &out)
	return out, err
}

// Pick hit-tests a pointer position in the given view.
func (s *Session) Pick(ctx context.Context, req httpapi.PickRequest) (dashboard.PickResult, error) {
	var out dashboard.PickResult
	err := s.c.do(ctx, http.MethodPost, s.path("/pick"), req, &out)
	return out, err
}

// Close deletes the session on the server.
func (s *Session) Close(ctx context.Context) error {
	return s.c.do(ctx, http.MethodDelete, s.path(""), nil, nil)
}
