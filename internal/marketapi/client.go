package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/session"
	"github.com/angelmondragon/marketcart/pkg/types"
	"github.com/google/uuid"
)

const (
	errorBodyReadLimit int64 = 4096
	defaultTimeout           = 10 * time.Second

	// IdempotencyHeader carries the intent key on order creation.
	IdempotencyHeader = "Idempotency-Key"
)

var errBaseURLRequired = errors.New("marketcart base url is required")

// Client talks to the marketcart HTTP API on behalf of one signed-in session.
// Every call goes through the session guard, so an expired access token is
// refreshed once and the call replayed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	guard      *session.Guard
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// NewClient builds a client for baseURL. guard supplies the access token.
func NewClient(baseURL string, guard *session.Guard, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if guard == nil {
		return nil, errors.New("session guard is required")
	}
	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    trimmed,
		guard:      guard,
		logg:       logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

// call runs req under the session guard and decodes the data envelope into out.
func (c *Client) call(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode request body")
		}
		payload = raw
	}
	// Unsafe methods always carry a key; a replay after a token refresh reuses it.
	if req.method != http.MethodGet && req.headers[IdempotencyHeader] == "" {
		headers := map[string]string{IdempotencyHeader: uuid.NewString()}
		for k, v := range req.headers {
			headers[k] = v
		}
		req.headers = headers
	}
	return c.guard.Do(ctx, func(ctx context.Context, token string) error {
		return c.send(ctx, req, payload, token, out)
	})
}

func (c *Client) send(ctx context.Context, req request, payload []byte, token string, out any) error {
	target := c.buildURL(req.path)
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", req.method, req.path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response data")
	}
	return nil
}

// decodeError turns the {error:{code,message,details}} envelope back into a
// typed error. Bodies without an envelope become dependency errors.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
		if resp.StatusCode == http.StatusUnauthorized {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "unauthorized")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), "unexpected response")
	}
	typed := pkgerrors.New(pkgerrors.Code(envelope.Error.Code), envelope.Error.Message)
	if envelope.Error.Details != nil {
		typed = typed.WithDetails(envelope.Error.Details)
	}
	return typed
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ",")
}

func statusQuery(status *enums.OrderStatus, limit int) url.Values {
	q := url.Values{}
	if status != nil {
		q.Set("status", string(*status))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}
