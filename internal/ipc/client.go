package ipc

import (
	"bufio"
	"context"
	"fmt"
	"time"
)

// DefaultTimeout bounds management requests (status, shutdown). Backend
// requests made through Call with a zero timeout are not bounded.
const DefaultTimeout = 5 * time.Second

// Client connects to the daemon's IPC endpoint.
type Client struct {
	timeout time.Duration
	address string
}

// NewClient creates a new IPC client for the default address.
func NewClient() *Client {
	return &Client{
		timeout: DefaultTimeout,
		address: DefaultAddress(),
	}
}

// NewClientWithAddress creates a new IPC client for a custom socket path or
// pipe name.
func NewClientWithAddress(address string) *Client {
	if address == "" {
		address = DefaultAddress()
	}
	return &Client{
		timeout: DefaultTimeout,
		address: address,
	}
}

// SetTimeout sets the per-request deadline. Zero disables it.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Address returns the endpoint the client dials.
func (c *Client) Address() string {
	return c.address
}

// Do sends req and waits for its response. The connection deadline is the
// client timeout; a zero timeout leaves only ctx in control.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	conn, err := dial(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IPC server at %s: %w", c.address, err)
	}
	defer conn.Close()

	if c.timeout > 0 {
		conn.SetDeadline(time.Now().Add(c.timeout))
	}

	// Unblock the read if the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	data, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	data = append(data, '\n')

	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	resp, err := DecodeResponse(respData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("%w: sent %s, got %q", ErrMismatchedResponse, req.ID, resp.ID)
	}

	return resp, nil
}

// Call sends a typed request and decodes the response data into result.
// A daemon-side failure is returned as an error.
func (c *Client) Call(ctx context.Context, reqType RequestType, payload, result interface{}) error {
	req, err := NewRequest(reqType, payload)
	if err != nil {
		return err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("server error: %s", resp.Error)
	}

	if err := resp.DecodeData(result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", reqType, err)
	}
	return nil
}

// GetStatus retrieves the current daemon status.
func (c *Client) GetStatus(ctx context.Context) (*StatusData, error) {
	var status StatusData
	if err := c.Call(ctx, ReqStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Shutdown requests the daemon to exit.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.Call(ctx, ReqShutdown, nil, nil)
}

// IsDaemonRunning checks if the daemon answers on the client's address.
func (c *Client) IsDaemonRunning(ctx context.Context) bool {
	_, err := c.GetStatus(ctx)
	return err == nil
}
