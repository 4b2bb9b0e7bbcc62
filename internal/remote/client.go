// ABOUTME: Websocket client for the remote control endpoint
// ABOUTME: Receives hello and status messages and sends player commands
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a connected remote
type Client struct {
	conn  *websocket.Conn
	mu    sync.Mutex
	hello Hello

	// Message channels
	Statuses chan Status
	Errors   chan Error

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// Dial connects to a player at host:port and waits for its hello
func Dial(addr string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:     conn,
		Statuses: make(chan Status, 16),
		Errors:   make(chan Error, 16),
		ctx:      ctx,
		cancel:   cancel,
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to read hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	if err := json.Unmarshal(data, &c.hello); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to parse hello: %w", err)
	}
	if c.hello.Type != TypeHello {
		c.Close()
		return nil, fmt.Errorf("expected hello, got %s", c.hello.Type)
	}

	go c.readMessages()
	return c, nil
}

// Hello returns the player's greeting, including its track list
func (c *Client) Hello() Hello {
	return c.hello
}

// Play asks the player to play a track
func (c *Client) Play(track int) error {
	return c.send(Command{Type: TypePlay, Track: track})
}

// Stop asks the player to stop
func (c *Client) Stop() error {
	return c.send(Command{Type: TypeStop})
}

// SetVolume asks the player to change volume (0-100)
func (c *Client) SetVolume(volume int) error {
	return c.send(Command{Type: TypeVolume, Volume: volume})
}

// Mute asks the player to mute or unmute
func (c *Client) Mute(muted bool) error {
	return c.send(Command{Type: TypeMute, Muted: muted})
}

func (c *Client) send(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(cmd)
}

// readMessages routes incoming messages until the connection ends
func (c *Client) readMessages() {
	defer c.Close()
	defer close(c.Statuses)
	defer close(c.Errors)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("Failed to parse message: %v", err)
			continue
		}

		switch env.Type {
		case TypeStatus:
			var st Status
			if err := json.Unmarshal(data, &st); err != nil {
				log.Printf("Failed to parse status: %v", err)
				continue
			}
			select {
			case c.Statuses <- st:
			case <-c.ctx.Done():
				return
			}

		case TypeError:
			var e Error
			if err := json.Unmarshal(data, &e); err != nil {
				log.Printf("Failed to parse error: %v", err)
				continue
			}
			select {
			case c.Errors <- e:
			case <-c.ctx.Done():
				return
			}

		default:
			log.Printf("Unknown message type: %s", env.Type)
		}
	}
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		c.cancel()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.conn.Close()
	}
}
