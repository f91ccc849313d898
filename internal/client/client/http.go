package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/common"
)

const maxErrorBody = 4 << 10

// HTTPClient implements Client against the server's JSON API.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPClient returns a client for baseURL ("http://host:port"). timeout
// bounds every request, including reading the body.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var out api.HealthResponse
	return c.do(ctx, http.MethodGet, "/health", nil, &out)
}

func (c *HTTPClient) Batch(ctx context.Context, actions []api.Action) (*api.BatchResponse, error) {
	var out api.BatchResponse
	if err := c.do(ctx, http.MethodPost, "/sync/batch", api.BatchRequest{Actions: actions}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pull fetches changes newer than since; the zero time asks for everything.
func (c *HTTPClient) Pull(ctx context.Context, since time.Time) (*api.PullResponse, error) {
	path := "/sync/changes"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.UTC().Format(common.TimeFormat))
	}
	var out api.PullResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) List(ctx context.Context, entity string) ([]api.Record, error) {
	var out api.ListResponse
	if err := c.do(ctx, http.MethodGet, recordPath(entity, ""), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *HTTPClient) Get(ctx context.Context, entity, id string) (api.Record, error) {
	var out api.Record
	if err := c.do(ctx, http.MethodGet, recordPath(entity, id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Create(ctx context.Context, entity string, data api.Record) (api.Record, error) {
	var out api.Record
	if err := c.do(ctx, http.MethodPost, recordPath(entity, ""), data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Update(ctx context.Context, entity, id string, patch api.Record) (api.Record, error) {
	var out api.Record
	if err := c.do(ctx, http.MethodPatch, recordPath(entity, id), patch, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Delete(ctx context.Context, entity, id string) error {
	return c.do(ctx, http.MethodDelete, recordPath(entity, id), nil, nil)
}

func recordPath(entity, id string) string {
	p := "/api/v1/" + url.PathEscape(entity)
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: truncated response: %w", ErrUnavailable, err)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) mapTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func (c *HTTPClient) mapError(resp *http.Response) error {
	msg := readErrorMessage(resp.Body)

	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = ErrUnauthorized
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusConflict:
		sentinel = ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel = ErrValidation
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		sentinel = ErrUnavailable
	default:
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

func readErrorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var er api.ErrorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error != "" {
		return er.Error
	}
	return strings.TrimSpace(string(raw))
}

// StatusError is returned for statuses that have no sentinel mapping.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}
