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
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[T any](c *Client, method string, args any) (*T, error) {
	var resp T
	if err := c.client.Call(ServiceName+"."+method, args, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", Empty{})
}

// AuthStart returns the mailbox login URL.
func (c *Client) AuthStart() (*AuthStartResponse, error) {
	return call[AuthStartResponse](c, "AuthStart", Empty{})
}

// AuthComplete exchanges an authorization code.
func (c *Client) AuthComplete(req AuthCompleteRequest) (*AuthCompleteResponse, error) {
	return call[AuthCompleteResponse](c, "AuthComplete", req)
}

// Start requests the monitor to start polling.
func (c *Client) Start() (*MonitorResponse, error) {
	return call[MonitorResponse](c, "Start", Empty{})
}

// Stop requests the monitor to stop polling.
func (c *Client) Stop() (*MonitorResponse, error) {
	return call[MonitorResponse](c, "Stop", Empty{})
}

// Scan runs one synchronous poll cycle.
func (c *Client) Scan() (*ScanResponse, error) {
	return call[ScanResponse](c, "Scan", Empty{})
}

// Applications lists applications grouped by stage.
func (c *Client) Applications() (*ApplicationsResponse, error) {
	return call[ApplicationsResponse](c, "Applications", Empty{})
}

// Application fetches one application.
func (c *Client) Application(id int64) (*Application, error) {
	return call[Application](c, "Application", ApplicationRequest{ID: id})
}

// AddApplication creates or merges an application.
func (c *Client) AddApplication(req AddApplicationRequest) (*Application, error) {
	return call[Application](c, "AddApplication", req)
}

// SetStage overrides the stage of an application.
func (c *Client) SetStage(id int64, stage string) (*Application, error) {
	return call[Application](c, "SetStage", SetStageRequest{ID: id, Stage: stage})
}

// DeleteApplication removes an application.
func (c *Client) DeleteApplication(id int64) (*DeleteResponse, error) {
	return call[DeleteResponse](c, "DeleteApplication", ApplicationRequest{ID: id})
}

// TestNotification publishes a test notification from the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", Empty{})
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	return call[ShutdownResponse](c, "Shutdown", Empty{})
}
