package api

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

	"github.com/nhle/ecotrack-console/internal/source"
)

// TokenSource supplies the Bearer credential for each request.
type TokenSource interface {
	Token() (string, error)
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func() (string, error)

// Token calls f.
func (f TokenFunc) Token() (string, error) { return f() }

// adminPrefix is the path under which every admin resource lives.
const adminPrefix = "/api/admin/"

// Client is a thin HTTP client for the admin REST API. It handles Bearer
// token authentication, JSON (de)serialization and maps every failure onto
// a *source.FetchError. It never retries.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

var _ source.Fetcher = (*Client)(nil)

// NewClient creates a new admin API client. The baseURL should be the API
// origin (e.g., https://api.example.com).
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchCollection performs GET /api/admin/{resource} and returns the
// records of the body, either a bare JSON array or an object wrapping the
// array in "data".
func (c *Client) FetchCollection(
	ctx context.Context,
	resource source.Resource,
) ([]source.RawRecord, error) {
	body, err := c.do(ctx, http.MethodGet, resource, "", nil)
	if err != nil {
		return nil, err
	}

	records, err := decodeCollection(body)
	if err != nil {
		return nil, &source.FetchError{
			Kind:     source.MalformedResponse,
			Resource: resource,
			Method:   http.MethodGet,
			Err:      err,
		}
	}

	return records, nil
}

func decodeCollection(body []byte) ([]source.RawRecord, error) {
	var records []source.RawRecord
	arrErr := json.Unmarshal(body, &records)
	if arrErr == nil {
		return records, nil
	}

	var envelope struct {
		Data *[]source.RawRecord `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return *envelope.Data, nil
	}
	return nil, fmt.Errorf("expected a JSON array or a data envelope: %w", arrErr)
}

// MutateResource performs PUT or DELETE on /api/admin/{resource}/{id}.
func (c *Client) MutateResource(
	ctx context.Context,
	resource source.Resource,
	id string,
	op source.Operation,
	payload any,
) (source.RawRecord, error) {
	var method string
	switch op {
	case source.OpUpdate:
		method = http.MethodPut
	case source.OpDelete:
		method = http.MethodDelete
		payload = nil
	default:
		return nil, &source.FetchError{
			Kind:     source.MalformedResponse,
			Resource: resource,
			Err:      fmt.Errorf("unsupported operation %s", op),
		}
	}

	body, err := c.do(ctx, method, resource, id, payload)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		if op == source.OpDelete {
			// Some deployments answer deletes with a plain-text body.
			return nil, nil
		}
		return nil, &source.FetchError{
			Kind:     source.MalformedResponse,
			Resource: resource,
			Method:   method,
			Err:      errors.New("response body is not JSON"),
		}
	}

	return source.RawRecord(trimmed), nil
}

// do is the core HTTP method that builds the request, attaches the
// credential and classifies the response.
func (c *Client) do(
	ctx context.Context,
	method string,
	resource source.Resource,
	id string,
	payload any,
) ([]byte, error) {
	fail := func(kind source.ErrorKind, status int, reason string, err error) error {
		return &source.FetchError{
			Kind:       kind,
			Resource:   resource,
			Method:     method,
			StatusCode: status,
			Reason:     reason,
			Err:        err,
		}
	}

	token, err := c.token()
	if err != nil {
		return nil, fail(source.Unauthorized, 0, "", err)
	}

	path := adminPrefix + string(resource)
	if id != "" {
		path += "/" + url.PathEscape(id)
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fail(source.MalformedResponse, 0, "", fmt.Errorf("marshaling request body: %w", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fail(source.Unreachable, 0, "", fmt.Errorf("creating request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(source.Unreachable, 0, "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(source.Unreachable, resp.StatusCode, "", fmt.Errorf("reading response body: %w", err))
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fail(source.Unauthorized, resp.StatusCode, serverReason(respBody), nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := serverReason(respBody)
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return nil, fail(source.ServerRejected, resp.StatusCode, reason, nil)
	}

	return respBody, nil
}

func (c *Client) token() (string, error) {
	if c.tokens == nil {
		return "", errors.New("no credential configured")
	}
	token, err := c.tokens.Token()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", errors.New("empty credential")
	}
	return token, nil
}

// errorResponse is the structured error body sent by the admin API.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// serverReason extracts {message} (or {error}) from an error body.
func serverReason(body []byte) string {
	var er errorResponse
	if json.Unmarshal(body, &er) != nil {
		return ""
	}
	if er.Message != "" {
		return er.Message
	}
	return er.Error
}
