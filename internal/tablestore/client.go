package tablestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client issues table-scoped requests against a PostgREST-style REST store.
// Each operation is a direct typed call; there is no query-builder chain.
type Client struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *log.Logger
	missing bool
}

// New constructs a table store client. An empty base URL or key is not fatal:
// the client comes up disabled and every call reports KindConfigMissing, so
// the caller can surface the condition once instead of crashing.
func New(baseURL, apiKey string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	c := &Client{
		apiKey: apiKey,
		logger: logger,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
	if baseURL == "" || apiKey == "" {
		c.missing = true
		return c, nil
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse table store url: %w", err)
	}
	c.baseURL = parsed
	return c, nil
}

// Ready reports whether the client holds a usable base URL and key.
func (c *Client) Ready() bool { return !c.missing }

// ListAll fetches the full column set of every row in a table, ordered
// server-side by the given field and direction, and decodes the JSON array
// into dest (a pointer to a slice).
func (c *Client) ListAll(ctx context.Context, table, orderField string, ascending bool, dest any) error {
	const op = "listAll"
	if c.missing {
		return &Error{Kind: KindConfigMissing, Op: op}
	}

	direction := "desc"
	if ascending {
		direction = "asc"
	}
	endpoint := c.baseURL.JoinPath(table)
	q := endpoint.Query()
	q.Set("select", "*")
	q.Set("order", orderField+"."+direction)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, table, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &Error{Kind: KindDecode, Op: op, Err: err}
	}
	return nil
}

// Insert posts row as a single-element JSON array and decodes the created
// representation, returned in the same round trip, into created. Pass a nil
// created to discard the representation.
func (c *Client) Insert(ctx context.Context, table string, row, created any) error {
	const op = "insert"
	if c.missing {
		return &Error{Kind: KindConfigMissing, Op: op}
	}

	payload, err := json.Marshal([]any{row})
	if err != nil {
		return &Error{Kind: KindDecode, Op: op, Err: err}
	}

	endpoint := c.baseURL.JoinPath(table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, table, resp); err != nil {
		return err
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return &Error{Kind: KindDecode, Op: op, Err: err}
	}
	if len(rows) == 0 {
		return &Error{Kind: KindDecode, Op: op, Err: fmt.Errorf("empty representation")}
	}
	if created != nil {
		if err := json.Unmarshal(rows[0], created); err != nil {
			return &Error{Kind: KindDecode, Op: op, Err: err}
		}
	}
	return nil
}

// DeleteWhere removes the rows matching an equality predicate on one field.
// Callers pass a unique field (the id column), so at most one row goes away.
func (c *Client) DeleteWhere(ctx context.Context, table, field, value string) error {
	const op = "deleteWhere"
	if c.missing {
		return &Error{Kind: KindConfigMissing, Op: op}
	}

	endpoint := c.baseURL.JoinPath(table)
	q := endpoint.Query()
	q.Set(field, "eq."+value)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint.String(), nil)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, table, resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// setHeaders attaches the credential pair and content type every call carries.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) checkStatus(op, table string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	c.logger.Printf("tablestore: %s %s returned %d", op, table, resp.StatusCode)
	return &Error{Kind: KindRemoteRejected, Op: op, Status: resp.StatusCode}
}
