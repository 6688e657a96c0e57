package websocket

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var clients = sync.Map{}

// reconnectDelay is the pause between failed reconnection attempts.
var reconnectDelay = time.Second

// Client is a long-running wrapper of connections to the same WebSocket
// server with the same credentials. It manages a single [Conn] at a time,
// and when that connection is closed by the server, or replaced with
// [Client.Reconnect], the client switches to a connection with a new URL,
// so subscribers of [Client.IncomingMessages] never notice.
type Client struct {
	logger   *zerolog.Logger
	url      urlFunc
	opts     []DialOpt
	hashedID string

	mu      sync.RWMutex
	conn    *Conn
	outMsgs chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// urlFunc returns a WebSocket URL to dial. It is called again
// for each reconnection, because some servers (e.g. Slack) issue
// single-use URLs.
type urlFunc func(ctx context.Context) (string, error)

func NewOrCachedClient(ctx context.Context, url urlFunc, id string, opts ...DialOpt) (*Client, error) {
	hashedID := hash(id)
	if client, ok := clients.Load(hashedID); ok {
		return client.(*Client), nil
	}

	c, err := newClient(ctx, url, opts...)
	if err != nil {
		return nil, err
	}
	c.hashedID = hashedID

	actual, loaded := clients.LoadOrStore(hashedID, c)
	if loaded { // Stored by a different goroutine since clients.Load() above.
		deleteClient(c)
	} else { // Newly-stored by this goroutine, so activate its message relay.
		go c.relayMessages()
	}

	return actual.(*Client), nil
}

// hash generates a stable-but-irreversible SHA-256 hash of a [Client] ID.
func hash(id string) string {
	h := sha256.New()
	h.Write([]byte(id))
	return fmt.Sprintf("%x", h.Sum(nil))
}

func newClient(ctx context.Context, f urlFunc, opts ...DialOpt) (*Client, error) {
	url, err := f(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := Dial(ctx, url, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		logger:  zerolog.Ctx(ctx),
		url:     f,
		opts:    opts,
		conn:    conn,
		outMsgs: make(chan []byte),
		done:    make(chan struct{}),
	}, nil
}

// deleteClient deletes a newly-created [Client] which is not needed anymore,
// because a different one was already activated with the same unique hashed ID.
func deleteClient(c *Client) {
	c.conn.Close()
	close(c.done)
}

// relayMessages runs as a [Client] goroutine, to route data messages
// from the client's active [Conn] to the client's subscribers.
func (c *Client) relayMessages() {
	defer close(c.outMsgs)

	for {
		conn := c.activeConn()
		for msg := range conn.IncomingMessages() {
			select {
			case c.outMsgs <- msg:
			case <-c.done:
				return
			}
		}

		// Already switched by [Client.Reconnect].
		if c.activeConn() != conn {
			continue
		}

		if !c.replaceConn() {
			return
		}
	}
}

// replaceConn dials a new connection until it succeeds, or until
// the client is closed (in which case it returns false).
func (c *Client) replaceConn() bool {
	ctx := c.logger.WithContext(context.Background())
	for {
		select {
		case <-c.done:
			return false
		default:
		}

		conn, err := c.dial(ctx)
		if err == nil {
			if !c.swapConn(conn) {
				return false
			}
			c.logger.Debug().Msg("WebSocket client reconnected")
			return true
		}

		c.logger.Err(err).Msg("WebSocket client reconnection failed")
		select {
		case <-c.done:
			return false
		case <-time.After(reconnectDelay):
		}
	}
}

// swapConn makes conn the active connection and closes the previous one.
// It returns false (and closes conn) if the client is already closed.
func (c *Client) swapConn(conn *Conn) bool {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		conn.Close()
		return false
	default:
	}
	prev := c.conn
	c.conn = conn
	c.mu.Unlock()

	prev.Close()
	return true
}

func (c *Client) dial(ctx context.Context) (*Conn, error) {
	url, err := c.url(ctx)
	if err != nil {
		return nil, err
	}
	return Dial(ctx, url, c.opts...)
}

func (c *Client) activeConn() *Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.conn
}

// IncomingMessages returns the client's channel that publishes data messages
// from all of its connections. It is closed only by [Client.Close].
func (c *Client) IncomingMessages() <-chan []byte {
	return c.outMsgs
}

// SendTextMessage sends a text message over the client's active connection.
func (c *Client) SendTextMessage(data []byte) error {
	return c.activeConn().SendTextMessage(data)
}

// Reconnect dials a new connection and switches to it before closing the
// active one, so concurrent senders never hit a closed connection. If the
// dial fails, the active connection is closed and the client keeps retrying
// in the background.
func (c *Client) Reconnect() {
	conn, err := c.dial(c.logger.WithContext(context.Background()))
	if err != nil {
		c.logger.Err(err).Msg("WebSocket client reconnection failed")
		c.activeConn().Close()
		return
	}

	if c.swapConn(conn) {
		c.logger.Debug().Msg("WebSocket client reconnected")
	}
}

// Close stops the client permanently, and removes it from the cache.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		clients.Delete(c.hashedID)
		close(c.done)
		c.activeConn().Close()
	})
}
