// Package websocket maintains long-running WebSocket client connections,
// such as Slack's [Socket Mode], on top of [golang.org/x/net/websocket].
//
// [Socket Mode]: https://docs.slack.dev/apis/events-api/using-socket-mode
package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"
)

// Servers such as Slack don't check it, but the WebSocket
// handshake of [golang.org/x/net/websocket] requires one.
const defaultOrigin = "http://localhost/"

// Conn represents an open client connection to a WebSocket server.
type Conn struct {
	logger *zerolog.Logger
	ws     *websocket.Conn
	readC  chan []byte

	closed  atomic.Bool
	closedC chan struct{}
}

// DialOpt customizes the WebSocket handshake in [Dial].
type DialOpt func(*websocket.Config)

// WithHeader adds an HTTP header to the WebSocket handshake request.
func WithHeader(key, value string) DialOpt {
	return func(c *websocket.Config) {
		c.Header.Add(key, value)
	}
}

// Dial opens a new client connection to a WebSocket server, and starts
// publishing its incoming data messages (see [Conn.IncomingMessages]).
func Dial(ctx context.Context, url string, opts ...DialOpt) (*Conn, error) {
	cfg, err := websocket.NewConfig(url, defaultOrigin)
	if err != nil {
		return nil, fmt.Errorf("invalid WebSocket URL: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to dial WebSocket server: %w", err)
	}

	c := &Conn{
		logger:  zerolog.Ctx(ctx),
		ws:      ws,
		readC:   make(chan []byte),
		closedC: make(chan struct{}),
	}
	go c.readMessages()

	return c, nil
}

// IncomingMessages returns the connection's channel that publishes
// data messages as they are received from the server. The channel
// is closed when the connection is closed, by either side.
func (c *Conn) IncomingMessages() <-chan []byte {
	return c.readC
}

// readMessages runs as a [Conn] goroutine, to receive data messages
// continuously and publish them to the subscribers of this connection.
// Control frames are handled by [golang.org/x/net/websocket].
func (c *Conn) readMessages() {
	defer close(c.readC)

	for {
		var msg []byte
		if err := websocket.Message.Receive(c.ws, &msg); err != nil {
			if !c.closed.Load() && !errors.Is(err, io.EOF) {
				c.logger.Err(err).Msg("failed to read WebSocket message")
			}
			c.Close()
			return
		}

		c.logger.Trace().Bytes("data", msg).Msg("received WebSocket data message")
		select {
		case c.readC <- msg:
		case <-c.closedC:
			return
		}
	}
}

// SendTextMessage sends a UTF-8 text message to the server.
// It is safe to call from multiple goroutines.
func (c *Conn) SendTextMessage(data []byte) error {
	if c.closed.Load() {
		return errors.New("WebSocket connection is closed")
	}
	if err := websocket.Message.Send(c.ws, string(data)); err != nil {
		return fmt.Errorf("failed to send WebSocket message: %w", err)
	}
	return nil
}

// Close sends a close frame to the server and closes the underlying connection.
// It is idempotent.
func (c *Conn) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.closedC)
	if err := c.ws.Close(); err != nil {
		c.logger.Trace().Err(err).Msg("error while closing WebSocket connection")
	}
}

func (c *Conn) isClosed() bool {
	return c.closed.Load()
}
