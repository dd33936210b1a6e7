// Package transport connects a session.Mirror to a game server over a
// websocket. Events are applied in arrival order on a single goroutine.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/majeanson/anthropicJoffre-sub005/gameModel"
	"github.com/majeanson/anthropicJoffre-sub005/logging"
	"github.com/majeanson/anthropicJoffre-sub005/session"
)

const writeWait = 5 * time.Second

type Client struct {
	conn   *websocket.Conn
	mirror *session.Mirror
	logger *zap.Logger

	writeMu sync.Mutex
}

// Dial opens a websocket to url and binds it to mirror.
func Dial(ctx context.Context, url string, mirror *session.Mirror, logger *zap.Logger) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn, mirror: mirror, logger: logging.OrNop(logger)}, nil
}

// Run reads events until the connection closes or ctx is done. A delta the
// mirror cannot apply triggers a sync request for a fresh full snapshot.
func (c *Client) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}

		var env gameModel.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			c.logger.Warn("discarding malformed event", zap.Error(err))
			continue
		}
		if err := c.mirror.Apply(env); err != nil {
			if !errors.Is(err, session.ErrNoSnapshot) && !errors.Is(err, session.ErrGameMismatch) {
				c.logger.Warn("event not applied", zap.String("event", string(env.Event)), zap.Error(err))
			}
		}

		if signal, ok := c.mirror.ConsumeResync(); ok {
			c.logger.Info("requesting full snapshot", zap.String("summary", signal.Summary()))
			if err := c.RequestSync(signal.GameID); err != nil {
				return err
			}
		}
	}
}

// RequestSync asks the server to resend the full state of gameID.
func (c *Client) RequestSync(gameID string) error {
	env, err := gameModel.NewEnvelope(gameModel.EventSyncRequest, gameModel.SyncRequest{GameID: gameID})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("send sync request for %s: %w", gameID, err)
	}
	return nil
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.conn.Close()
}
