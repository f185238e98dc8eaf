package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"chaos-room/internal/protocol"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 5 * time.Second

// Client is a Transport backed by a websocket to the relay server. The relay
// does not echo frames back to the connection that sent them.
type Client struct {
	conn    *websocket.Conn
	subs    *registry
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// ChannelURL builds the relay endpoint for a channel. playerID lets the relay
// announce PLAYER_LEFT when the connection drops.
func ChannelURL(base, channel, playerID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws/channels/" + channel
	q := u.Query()
	if playerID != "" {
		q.Set("player_id", playerID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func Dial(ctx context.Context, wsURL string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	c := &Client{
		conn: conn,
		subs: newRegistry(),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Broadcast(action protocol.Action) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	data, err := protocol.Encode(action)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write action: %w", err)
	}
	return nil
}

func (c *Client) Subscribe(handler Handler) *Subscription {
	return c.subs.add(handler)
}

func (c *Client) Close(sub *Subscription) {
	c.subs.remove(sub)
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Shutdown closes the connection and every subscription.
func (c *Client) Shutdown() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
		close(c.done)
		c.subs.removeAll()
	})
	return err
}

func (c *Client) readLoop() {
	defer func() {
		_ = c.Shutdown()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Debug().Err(err).Msg("relay connection closed")
			}
			return
		}
		action, err := protocol.Decode(data)
		if err != nil {
			log.Debug().Err(err).Msg("dropping undecodable frame")
			continue
		}
		c.subs.publish(action)
	}
}
