// ABOUTME: Websocket remote control server
// ABOUTME: Pushes player status to remotes and dispatches their commands
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sdplay/sdplay-go/internal/version"
)

// Controller is the player as seen by remotes
type Controller interface {
	// Play starts a track without waiting for it to finish
	Play(number int) error
	Stop()
	SetVolume(volume int) error
	Mute(muted bool) error
	Status() Status
	Tracks() ([]TrackInfo, error)
}

// Config holds server configuration
type Config struct {
	// Addr is the listen address, ":0" picks a free port
	Addr string

	// Name identifies this player to remotes
	Name string
}

// Server serves the remote control endpoint
type Server struct {
	config   Config
	ctrl     Controller
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	httpServer *http.Server
	listener   net.Listener

	clients   map[string]*client
	clientsMu sync.RWMutex
	wg        sync.WaitGroup
}

// client is one connected remote
type client struct {
	id       string
	conn     *websocket.Conn
	sendChan chan interface{}
	done     chan struct{}
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// NewServer creates a remote control server
func NewServer(config Config, ctrl Controller) *Server {
	s := &Server{
		config: config,
		ctrl:   ctrl,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Remotes run on the local network; browsers are not expected
				if origin := r.Header.Get("Origin"); origin != "" {
					log.Printf("Warning: accepting remote from origin: %s", origin)
				}
				return true
			},
		},
		clients: make(map[string]*client),
	}
	s.mux.HandleFunc(Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.mux}

	log.Printf("Remote control listening on %s%s", ln.Addr(), Path)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Remote control server error: %v", err)
		}
	}()
	return nil
}

// Port returns the port being served, 0 before Start
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Stop closes every remote and shuts the server down
func (s *Server) Stop() {
	s.clientsMu.Lock()
	for _, c := range s.clients {
		c.close()
		c.conn.Close()
	}
	s.clientsMu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("Remote control shutdown error: %v", err)
		}
	}
	s.wg.Wait()
}

// Broadcast pushes a status to every remote
func (s *Server) Broadcast(status Status) {
	status.Type = TypeStatus

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		s.send(c, status)
	}
}

// Clients returns the number of connected remotes
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("Remote connected from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	c := &client{
		id:       uuid.New().String(),
		conn:     conn,
		sendChan: make(chan interface{}, 32),
		done:     make(chan struct{}),
	}

	tracks, err := s.ctrl.Tracks()
	if err != nil {
		log.Printf("Failed to list tracks for remote: %v", err)
	}
	s.send(c, Hello{
		Type:    TypeHello,
		Name:    s.config.Name,
		Product: version.Product,
		Version: version.Version,
		Tracks:  tracks,
	})
	status := s.ctrl.Status()
	status.Type = TypeStatus
	s.send(c, status)

	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		c.close()
		log.Printf("Remote %s disconnected", c.id)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Remote read error: %v", err)
			}
			return
		}
		s.handleCommand(c, data)
	}
}

// clientWriter sends queued messages to one remote
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.sendChan:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing to remote: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleCommand dispatches one command; failures are reported to the sender only
func (s *Server) handleCommand(c *client, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.send(c, Error{Type: TypeError, Error: fmt.Sprintf("invalid message: %v", err)})
		return
	}

	var err error
	switch cmd.Type {
	case TypePlay:
		log.Printf("Remote %s: play track %d", c.id, cmd.Track)
		err = s.ctrl.Play(cmd.Track)
	case TypeStop:
		log.Printf("Remote %s: stop", c.id)
		s.ctrl.Stop()
	case TypeVolume:
		err = s.ctrl.SetVolume(cmd.Volume)
	case TypeMute:
		err = s.ctrl.Mute(cmd.Muted)
	default:
		err = fmt.Errorf("unknown command %q", cmd.Type)
	}

	if err != nil {
		s.send(c, Error{Type: TypeError, Command: cmd.Type, Error: err.Error()})
	}
}

// send queues a message without blocking the caller
func (s *Server) send(c *client, msg interface{}) {
	select {
	case c.sendChan <- msg:
	default:
		log.Printf("Warning: remote %s send buffer full, dropping message", c.id)
	}
}
