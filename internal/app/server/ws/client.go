package ws

import (
	"context"
	"errors"
	"sync"
)

// Client is one registered connection: a per-session id, the owning user
// (immutable for the connection's lifetime), and a buffered write pump so
// senders never block on this socket's I/O.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	connID string
	userID string
	out    chan []byte
	once   sync.Once
}

func NewClient(
	parent context.Context,
	ws *WebSocket,
	connID, userID string,
) *Client {
	ctx, cancel := context.WithCancel(parent)
	c := &Client{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		connID: connID,
		userID: userID,
		out:    make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *Client) ConnID() string { return c.connID }
func (c *Client) UserID() string { return c.userID }

// Send queues data for the write pump. It never blocks: a closed client or a
// full buffer returns an error and the frame is dropped, which keeps fan-out
// paths from stalling on one slow socket.
func (c *Client) Send(ctx context.Context, data []byte) error {
	select {
	case <-c.ctx.Done():
		return errors.New("client closed")
	default:
	}
	select {
	case c.out <- data:
		return nil
	default:
		return errors.New("client send buffer full")
	}
}

// Close is idempotent. The out channel is never closed; the write loop exits
// on context cancellation, so a concurrent Send can at worst drop a frame.
func (c *Client) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *Client) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
