// An HTTP client for the podmill API. It is consumed by the CLI and
// the tracker, and speaks the same wire shapes the server emits.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/podmill/podmill-go/internal/models"
)

// APIError is a non-2xx response from the server, carrying the decoded
// error message and the HTTP status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus returns the HTTP status code of the failed request.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// ServerMessage returns the error text the server sent, without the
// status-code prefix Error() adds.
func (e *APIError) ServerMessage() string {
	return e.Message
}

// ProtocolError is a response that arrived with a 2xx status but did
// not satisfy the wire contract, e.g. a status payload with
// success=false.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Message
}

// Client talks to a podmill server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. to adjust
// the timeout or install a test transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs a JSON round trip. A nil out discards the response body;
// non-2xx responses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeAPIError turns an error response into an *APIError, falling
// back to the HTTP status text when the body is not the expected JSON.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// CreatePodcastRequest is the payload for CreatePodcast. Voice is
// optional; the server falls back to its configured default.
type CreatePodcastRequest struct {
	Title      string `json:"title"`
	SourceType string `json:"sourceType"`
	SourceRef  string `json:"sourceRef"`
	Voice      string `json:"voice,omitempty"`
}

// CreatePodcast submits a new generation job.
func (c *Client) CreatePodcast(ctx context.Context, req CreatePodcastRequest) (*models.Podcast, error) {
	var podcast models.Podcast
	if err := c.do(ctx, http.MethodPost, "/api/podcasts", req, &podcast); err != nil {
		return nil, err
	}
	return &podcast, nil
}

// GetPodcast fetches a single podcast by id.
func (c *Client) GetPodcast(ctx context.Context, id string) (*models.Podcast, error) {
	var podcast models.Podcast
	if err := c.do(ctx, http.MethodGet, "/api/podcasts/"+id, nil, &podcast); err != nil {
		return nil, err
	}
	return &podcast, nil
}

// ListPodcasts fetches all podcasts, unwrapping the list envelope.
func (c *Client) ListPodcasts(ctx context.Context) ([]*models.Podcast, error) {
	var envelope struct {
		Podcasts []*models.Podcast `json:"podcasts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/podcasts", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Podcasts, nil
}

// DeletePodcast removes a podcast and its artifacts.
func (c *Client) DeletePodcast(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/podcasts/"+id, nil, nil)
}

// PodcastStatus fetches one progress observation for a podcast. A 2xx
// response with success=false violates the contract and is returned as
// a *ProtocolError.
func (c *Client) PodcastStatus(ctx context.Context, id string) (*models.StatusSnapshot, error) {
	var body struct {
		Success bool `json:"success"`
		models.StatusSnapshot
	}
	if err := c.do(ctx, http.MethodGet, "/api/podcasts/"+id+"/status", nil, &body); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, &ProtocolError{Message: "status response carried success=false"}
	}
	return &body.StatusSnapshot, nil
}

// Audio downloads the generated WAV. The caller owns the returned
// reader and must close it.
func (c *Client) Audio(ctx context.Context, id string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/podcasts/"+id+"/audio", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp.Body, nil
}

// Sources lists the content sources registered on the server.
func (c *Client) Sources(ctx context.Context) ([]models.SourceInfo, error) {
	var sources []models.SourceInfo
	if err := c.do(ctx, http.MethodGet, "/api/sources", nil, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}
