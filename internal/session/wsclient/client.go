// Package wsclient is a session.Client that talks JSON frames to a game gateway over a
// websocket.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/protocol"
	"hecstore.ai/internal/session"
	"hecstore.ai/internal/spatial"
)

const writeWait = 5 * time.Second

type Config struct {
	URL     string
	Account string
	Server  string
	Dialer  *websocket.Dialer
	Logger  *log.Logger
}

// Client keeps at most one gateway connection. Events from every connection share one
// queue so AwaitEvent is stable across reconnects.
type Client struct {
	cfg    Config
	log    *log.Logger
	events chan session.Event
	seq    atomic.Uint64

	mu      sync.Mutex
	conn    *conn
	pos     spatial.Position
	hasPos  bool
	pending map[string]chan protocol.ResultMsg
}

type conn struct {
	ws     *websocket.Conn
	wmu    sync.Mutex
	closed chan struct{}
	// quitting is set by Disconnect so the reader does not report an error.
	quitting atomic.Bool
}

var _ session.Client = (*Client)(nil)
var _ session.Actuator = (*Client)(nil)

func New(cfg Config) *Client {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	c := &Client{
		cfg:     cfg,
		log:     cfg.Logger,
		events:  make(chan session.Event, 256),
		pending: make(map[string]chan protocol.ResultMsg),
	}
	if c.log == nil {
		c.log = log.Default()
	}
	return c
}

// Connect dials the gateway and sends HELLO. It is a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	ws, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	cn := &conn{ws: ws, closed: make(chan struct{})}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Account:         c.cfg.Account,
		Server:          c.cfg.Server,
	}
	if err := cn.writeJSON(hello); err != nil {
		_ = ws.Close()
		return fmt.Errorf("send HELLO: %w", err)
	}
	c.conn = cn
	c.hasPos = false
	go c.readLoop(cn)
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	cn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if cn == nil {
		return session.ErrDisconnected
	}
	cn.quitting.Store(true)
	cn.wmu.Lock()
	_ = cn.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	cn.wmu.Unlock()
	err := cn.ws.Close()
	select {
	case <-cn.closed:
	case <-ctx.Done():
	}
	return err
}

func (c *Client) SendChat(ctx context.Context, text string) error {
	cn := c.current()
	if cn == nil {
		return session.ErrDisconnected
	}
	return cn.writeJSON(protocol.ChatMsg{Type: protocol.TypeChat, Text: text})
}

func (c *Client) CurrentPosition() (spatial.Position, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos, c.hasPos && c.conn != nil
}

func (c *Client) AwaitEvent(ctx context.Context) (session.Event, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-ctx.Done():
		return session.Event{}, ctx.Err()
	}
}

func (c *Client) InteractWithChest(ctx context.Context, chest model.Chest, action protocol.ChestAction) error {
	return c.act(ctx, protocol.ActionMsg{
		Kind: protocol.ActionChest,
		Chest: &protocol.ChestPayload{
			ID:       chest.ID,
			Position: chest.Position,
			Op:       action.Kind.String(),
			Items:    action.Items,
		},
	})
}

func (c *Client) ProcessTrade(ctx context.Context, trade model.Trade) error {
	return c.act(ctx, protocol.ActionMsg{Kind: protocol.ActionTrade, Trade: &trade})
}

// act sends an ACTION frame and waits for the RESULT carrying the same id.
func (c *Client) act(ctx context.Context, msg protocol.ActionMsg) error {
	cn := c.current()
	if cn == nil {
		return session.ErrDisconnected
	}
	msg.Type = protocol.TypeAction
	msg.ID = "A" + strconv.FormatUint(c.seq.Add(1), 10)

	resp := make(chan protocol.ResultMsg, 1)
	c.mu.Lock()
	c.pending[msg.ID] = resp
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
	}()

	if err := cn.writeJSON(msg); err != nil {
		return fmt.Errorf("send ACTION %s: %w", msg.Kind, err)
	}
	select {
	case res := <-resp:
		if !res.OK {
			if res.Error == "" {
				return fmt.Errorf("%s action failed", msg.Kind)
			}
			return errors.New(res.Error)
		}
		return nil
	case <-cn.closed:
		return session.ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) current() *conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) readLoop(cn *conn) {
	defer close(cn.closed)
	for {
		_, b, err := cn.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == cn {
				c.conn = nil
			}
			c.mu.Unlock()
			if !cn.quitting.Load() {
				c.emit(session.Event{Kind: session.EventDisconnect, Reason: err.Error()})
			}
			return
		}
		base, err := protocol.DecodeBase(b)
		if err != nil {
			c.log.Printf("gateway: bad frame: %v", err)
			continue
		}
		switch base.Type {
		case protocol.TypeChat:
			var m protocol.ChatMsg
			if err := json.Unmarshal(b, &m); err != nil {
				continue
			}
			c.emit(session.Event{Kind: session.EventChat, Sender: m.Sender, Text: m.Text})
		case protocol.TypePosition:
			var m protocol.PositionMsg
			if err := json.Unmarshal(b, &m); err != nil {
				continue
			}
			c.mu.Lock()
			c.pos, c.hasPos = m.Position, true
			c.mu.Unlock()
			c.emit(session.Event{Kind: session.EventPosition, Position: m.Position})
		case protocol.TypeResult:
			var m protocol.ResultMsg
			if err := json.Unmarshal(b, &m); err != nil {
				continue
			}
			c.mu.Lock()
			ch := c.pending[m.ID]
			c.mu.Unlock()
			if ch == nil {
				c.log.Printf("gateway: RESULT for unknown action %s", m.ID)
				continue
			}
			select {
			case ch <- m:
			default:
			}
		case protocol.TypeDisconnect:
			var m protocol.DisconnectMsg
			_ = json.Unmarshal(b, &m)
			c.emit(session.Event{Kind: session.EventDisconnect, Reason: m.Reason})
		}
	}
}

// emit queues ev, dropping it when nobody is consuming events.
func (c *Client) emit(ev session.Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Printf("gateway: event queue full; dropped %s", ev.Kind)
	}
}

func (cn *conn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	cn.wmu.Lock()
	defer cn.wmu.Unlock()
	_ = cn.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return cn.ws.WriteMessage(websocket.TextMessage, b)
}
