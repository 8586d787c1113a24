// Package jsonrpc provides a JSON-RPC 2.0 client for the gateway's /rpc
// endpoint.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"norelock.dev/listenify/gateway/internal/transport"
)

// ErrClientClosed is returned by calls made after Close.
var ErrClientClosed = errors.New("client closed")

// Client is a JSON-RPC 2.0 client posting over a transport.Doer.
type Client struct {
	endpoint string
	doer     transport.Doer

	// headers are sent with every request
	headers *transport.Header
	mutex   sync.RWMutex

	nextID atomic.Int64
	closed atomic.Bool
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithHeader adds an HTTP header to include in requests.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// NewClient creates a new JSON-RPC 2.0 client.
func NewClient(endpoint string, doer transport.Doer, options ...ClientOption) *Client {
	client := &Client{
		endpoint: endpoint,
		doer:     doer,
		headers:  transport.NewHeader(),
	}

	client.headers.Set("Content-Type", "application/json")
	client.headers.Set("Accept", "application/json")

	for _, option := range options {
		option(client)
	}

	return client
}

// SetHeader sets an HTTP header to include in requests.
func (c *Client) SetHeader(key, value string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.headers.Set(key, value)
}

// Call invokes method and decodes its result into result. A JSON-RPC error
// reply is returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	req, err := NewRequest(method, params, c.nextID.Add(1))
	if err != nil {
		return err
	}

	res, err := c.send(ctx, req)
	if err != nil {
		return err
	}

	if res.Error != nil {
		return res.Error
	}
	if result == nil || len(res.Result) == 0 {
		return nil
	}
	return json.Unmarshal(res.Result, result)
}

// Notify invokes method without waiting for a result.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	req, err := NewRequest(method, params, nil)
	if err != nil {
		return err
	}

	_, err = c.send(ctx, req)
	return err
}

// Close closes the client.
func (c *Client) Close() error {
	c.closed.Store(true)
	return nil
}

// send posts req. Notifications yield a nil response.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	c.mutex.RLock()
	header := transport.NewHeader()
	for _, name := range c.headers.Names() {
		for _, value := range c.headers.Values(name) {
			header.Add(name, value)
		}
	}
	c.mutex.RUnlock()

	res, err := c.doer.Execute(ctx, transport.Exchange{
		Method: http.MethodPost,
		URL:    c.endpoint,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	if req.ID == nil {
		if res.StatusCode != http.StatusNoContent && !res.OK() {
			return nil, fmt.Errorf("HTTP error: %d %s", res.StatusCode, http.StatusText(res.StatusCode))
		}
		return nil, nil
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", res.StatusCode, http.StatusText(res.StatusCode))
	}

	return ParseResponse([]byte(res.Body))
}
