// Package bridge forwards tool calls that need the desktop process (screen
// capture, browser control, workflow automation, voice cloning) over its
// local IPC socket. The connection is dialed lazily and rebuilt on the next
// call after any failure; the desktop side being down turns into a tool-level
// error, never a crash.
package bridge

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/catalog"
	"voicemirror/internal/infra/dispatch"
)

const (
	defaultCallTimeout = 30 * time.Second

	// maxFrameSize bounds a single response frame; screenshots dominate.
	maxFrameSize = 32 << 20
)

type request struct {
	ID   string          `json:"id"`
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args,omitempty"`
}

type response struct {
	ID      string                 `json:"id"`
	Content []dispatch.ContentItem `json:"content,omitempty"`
	IsError bool                   `json:"isError,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Client is a lazy, serialized connection to the desktop bridge socket.
// Calls are framed as 4-byte big-endian length plus a JSON body, one
// in-flight request at a time.
type Client struct {
	mu      sync.Mutex
	path    string
	conn    net.Conn
	timeout time.Duration
	logger  *zap.Logger
}

func NewClient(socketPath string, logger *zap.Logger) *Client {
	return &Client{
		path:    socketPath,
		timeout: defaultCallTimeout,
		logger:  logger.Named("bridge"),
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Call forwards one tool invocation and waits for the matching response.
func (c *Client) Call(ctx context.Context, tool string, args json.RawMessage) (*dispatch.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.roundTrip(ctx, request{ID: uuid.NewString(), Tool: tool, Args: args})
	if err != nil {
		c.drop()
		return nil, domain.E(domain.CodeUnavailable, "bridge.Call", "desktop bridge call failed", errors.Join(domain.ErrBridgeUnavailable, err))
	}
	if resp.Error != "" {
		return dispatch.Errorf("%s", resp.Error), nil
	}
	return &dispatch.Result{Content: resp.Content, IsError: resp.IsError}, nil
}

func (c *Client) roundTrip(ctx context.Context, req request) (*response, error) {
	conn, err := c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	if err := writeFrame(conn, req); err != nil {
		return nil, err
	}
	var resp response
	if err := readFrame(conn, &resp); err != nil {
		return nil, err
	}
	if resp.ID != req.ID {
		return nil, errors.New("bridge response id mismatch")
	}
	return &resp, nil
}

func (c *Client) ensureConn(ctx context.Context) (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.path)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("connected to desktop bridge", zap.String("socket", c.path))
	c.conn = conn
	return conn, nil
}

func (c *Client) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func writeFrame(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func readFrame(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return errors.New("bridge frame too large")
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// Handler adapts one bridged tool into a dispatch handler.
func (c *Client) Handler(tool string) dispatch.Handler {
	return func(ctx context.Context, args json.RawMessage) (*dispatch.Result, error) {
		res, err := c.Call(ctx, tool, args)
		if err != nil {
			if errors.Is(err, domain.ErrBridgeUnavailable) {
				c.logger.Warn("desktop bridge unavailable", zap.String("tool", tool), zap.Error(err))
				return dispatch.Errorf("The desktop app is not reachable; %s is unavailable right now.", tool), nil
			}
			return nil, err
		}
		return res, nil
	}
}

// RegisterGroups registers a forwarding handler for every tool of the named
// catalog groups.
func (c *Client) RegisterGroups(t *dispatch.Table, cat *catalog.Catalog, groups ...string) {
	for _, group := range groups {
		for _, tool := range cat.ToolsOf(group) {
			t.Register(tool.Name, c.Handler(tool.Name))
		}
	}
}
