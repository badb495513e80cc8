package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the live transport handle the registry tracks per identity.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// client wraps one live connection; the mutex serializes writes, gorilla
// connections allow only one concurrent writer.
type client struct {
	mu   sync.Mutex
	conn Conn
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn}
}

func (that *client) send(action string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if err = that.conn.WriteJSON(Message{Action: action, Payload: raw}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// Registry maps stable client identities to live connections. Identities
// keep their seat and queue membership across disconnects; only the live
// handle is cleared. A disconnected identity that does not rebind within the
// grace period is forfeited via the onForfeit callback.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*client
	timers  map[string]*time.Timer

	grace     time.Duration
	onForfeit func(playerID string)
}

func NewRegistry(grace time.Duration) *Registry {
	return &Registry{
		clients: make(map[string]*client),
		timers:  make(map[string]*time.Timer),
		grace:   grace,
	}
}

// OnForfeit installs the callback invoked when a disconnected identity's
// grace period expires. Must be set before the first Unbind.
func (that *Registry) OnForfeit(callback func(playerID string)) {
	that.onForfeit = callback
}

// Bind associates the identity with a live connection, replacing and closing
// any stale prior one, and cancels a pending forfeit.
func (that *Registry) Bind(playerID string, c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if timer, ok := that.timers[playerID]; ok {
		timer.Stop()
		delete(that.timers, playerID)
	}

	if stale, ok := that.clients[playerID]; ok && stale != c {
		_ = stale.conn.Close()
	}

	that.clients[playerID] = c
}

// Unbind clears the live handle and starts the reconnect window.
func (that *Registry) Unbind(playerID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.clients, playerID)

	if that.onForfeit == nil {
		return
	}

	if timer, ok := that.timers[playerID]; ok {
		timer.Stop()
	}

	that.timers[playerID] = time.AfterFunc(that.grace, func() {
		that.mu.Lock()
		_, rebound := that.clients[playerID]
		delete(that.timers, playerID)
		that.mu.Unlock()

		if !rebound {
			that.onForfeit(playerID)
		}
	})
}

func (that *Registry) Get(playerID string) (*client, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	c, ok := that.clients[playerID]

	return c, ok
}

// Send delivers one message to the identity's live connection. Transport
// failures are swallowed: the registry reconciles on the next broadcast or
// reconnect.
func (that *Registry) Send(playerID, action string, payload any) {
	c, ok := that.Get(playerID)
	if !ok {
		return
	}

	_ = c.send(action, payload)
}
