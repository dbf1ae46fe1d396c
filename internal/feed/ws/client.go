package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Client maintains a single-stream websocket connection and reconnects
// forever until the context is cancelled. The stream is selected by URL;
// no subscription messages are needed.
type Client struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *zap.Logger
}

func New(url string, reconnectDelay, pingInterval time.Duration, log *zap.Logger) *Client {
	return &Client{url: url, reconnectDelay: reconnectDelay, pingInterval: pingInterval, log: log}
}

// Run delivers every received message to handler until ctx is cancelled.
// Read failures close the connection and trigger a delayed reconnect.
func (c *Client) Run(ctx context.Context, handler func(json.RawMessage)) error {
	for {
		err := c.runOnce(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logDisconnect(err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context, handler func(json.RawMessage)) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		c.pingLoop(pingCtx, conn)
	}()
	err = readLoop(ctx, conn, handler)
	cancel()
	<-pingDone
	return err
}

func readLoop(ctx context.Context, conn *websocket.Conn, handler func(json.RawMessage)) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if handler != nil {
			handler(json.RawMessage(data))
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	if c.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}

func (c *Client) logDisconnect(err error) {
	if c.log == nil || err == nil {
		return
	}
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			c.log.Info("ws stream closed", zap.String("url", c.url), zap.Int("status", int(closeErr.Code)), zap.String("reason", closeErr.Reason))
			return
		}
		c.log.Info("ws stream closed", zap.String("url", c.url), zap.Error(err))
		return
	}
	c.log.Warn("ws stream closed", zap.String("url", c.url), zap.Error(err))
}
