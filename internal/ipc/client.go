package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// AddJob creates a job, optionally submitting it immediately.
func (c *Client) AddJob(req AddJobRequest) (*AddJobResponse, error) {
	var resp AddJobResponse
	if err := c.client.Call("Clippy.AddJob", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit hands a job to the backend and waits for it to settle.
func (c *Client) Submit(jobID string) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.client.Call("Clippy.Submit", SubmitRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns tracked jobs optionally filtered by overall status.
func (c *Client) List(statuses []string) (*ListResponse, error) {
	var resp ListResponse
	if err := c.client.Call("Clippy.List", ListRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Describe returns full detail for a single job.
func (c *Client) Describe(jobID string) (*DescribeResponse, error) {
	var resp DescribeResponse
	if err := c.client.Call("Clippy.Describe", DescribeRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove stops tracking a job.
func (c *Client) Remove(jobID string) (*RemoveResponse, error) {
	var resp RemoveResponse
	if err := c.client.Call("Clippy.Remove", RemoveRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear removes tracked jobs, optionally only completed ones.
func (c *Client) Clear(completedOnly bool) (*ClearResponse, error) {
	var resp ClearResponse
	if err := c.client.Call("Clippy.Clear", ClearRequest{CompletedOnly: completedOnly}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Retry re-queues a failed task.
func (c *Client) Retry(jobID, taskID string) (*RetryResponse, error) {
	var resp RetryResponse
	req := RetryRequest{JobID: jobID, TaskID: taskID}
	if err := c.client.Call("Clippy.Retry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToggleExpansion flips a job's expanded display flag.
func (c *Client) ToggleExpansion(jobID string) (*ToggleResponse, error) {
	var resp ToggleResponse
	if err := c.client.Call("Clippy.ToggleExpansion", ToggleRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Watch long-polls the daemon's throttled job snapshot stream.
func (c *Client) Watch(req WatchRequest) (*WatchResponse, error) {
	var resp WatchResponse
	if err := c.client.Call("Clippy.Watch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Clippy.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Clippy.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Clippy.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
