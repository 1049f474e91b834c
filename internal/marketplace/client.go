// Package marketplace talks to the remote GraphQL marketplace: it builds the
// query documents, posts them and normalizes the responses into local records.
package marketplace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"axie-market-cache/internal/model"

	"github.com/tidwall/gjson"
)

// DefaultEndpoint is the public marketplace GraphQL endpoint.
const DefaultEndpoint = "https://axieinfinity.com/graphql-server-v2/graphql"

const maxResponseBytes = 16 << 20

// Client posts GraphQL documents to a single endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	timeout    time.Duration
}

// ClientConfig holds marketplace client settings.
type ClientConfig struct {
	Endpoint  string
	UserAgent string
	// Timeout bounds every Execute call. Zero disables the deadline.
	Timeout time.Duration
}

// NewClient creates a marketplace client. A nil httpClient uses a default one.
func NewClient(httpClient *http.Client, cfg ClientConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
	}
}

// Execute posts doc and returns the raw response body once the envelope is
// known to be valid JSON with a non-null data member and no GraphQL errors.
// Every failure is a KindTransport error.
func (c *Client) Execute(ctx context.Context, doc Document) ([]byte, error) {
	op := "marketplace." + doc.Name

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := doc.Body()
	if err != nil {
		return nil, model.E(model.KindTransport, op, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, model.E(model.KindTransport, op, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, model.E(model.KindTransport, op, fmt.Errorf("deadline exceeded: %w", err))
		}
		return nil, model.E(model.KindTransport, op, fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, model.E(model.KindTransport, op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, model.Errorf(model.KindTransport, op, "unexpected status %d: %s", resp.StatusCode, snippet(body))
	}

	if err := checkEnvelope(body); err != nil {
		return nil, model.E(model.KindTransport, op, err)
	}
	return body, nil
}

func checkEnvelope(body []byte) error {
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("malformed JSON envelope: %s", snippet(body))
	}

	envelope := gjson.ParseBytes(body)
	if !envelope.IsObject() {
		return errors.New("malformed JSON envelope: not an object")
	}

	if errs := envelope.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		first := errs.Array()[0]
		msg := first.Get("message").String()
		if msg == "" {
			msg = first.Raw
		}
		return fmt.Errorf("graphql error: %s", msg)
	}

	data := envelope.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return errors.New("malformed JSON envelope: missing data")
	}
	return nil
}

func snippet(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
