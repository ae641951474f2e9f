package ipc

import (
	mathrand "math/rand"
	"net"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newClientID generates a ULID string identifying one accepted connection.
func newClientID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Client is one accepted connection plus its subscription state. Events
// holds subscribed names in arrival order; duplicates are kept verbatim.
type Client struct {
	ID     string
	conn   net.Conn
	events []string
	alive  bool
}

// Subscriptions returns a copy of the client's subscribed event names.
func (c *Client) Subscriptions() []string {
	out := make([]string, len(c.events))
	copy(out, c.events)
	return out
}

// Registry holds the currently connected clients in insertion order. It
// is owned by the reactor goroutine; mutation is never concurrent.
type Registry struct {
	clients []*Client
	byConn  map[net.Conn]*Client
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byConn: make(map[net.Conn]*Client)}
}

// Add inserts a client for conn at the tail and returns it.
func (r *Registry) Add(conn net.Conn) *Client {
	client := &Client{ID: newClientID(), conn: conn, alive: true}
	r.clients = append(r.clients, client)
	r.byConn[conn] = client
	return client
}

// Lookup finds the client bound to conn, or nil.
func (r *Registry) Lookup(conn net.Conn) *Client {
	return r.byConn[conn]
}

// Remove closes the client's connection and drops it from the registry,
// releasing its subscription state.
func (r *Registry) Remove(client *Client) {
	if client == nil || !client.alive {
		return
	}
	client.alive = false
	client.events = nil
	_ = client.conn.Close()
	delete(r.byConn, client.conn)
	for i, cur := range r.clients {
		if cur == client {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			break
		}
	}
}

// Snapshot copies the client list so a broadcast can iterate while
// teardown mutates the registry.
func (r *Registry) Snapshot() []*Client {
	out := make([]*Client, len(r.clients))
	copy(out, r.clients)
	return out
}

// Len reports the number of registered clients.
func (r *Registry) Len() int {
	return len(r.clients)
}

// Drain force-closes every client without a final message. Called at
// controlled shutdown only.
func (r *Registry) Drain() {
	for _, client := range r.clients {
		client.alive = false
		client.events = nil
		_ = client.conn.Close()
	}
	r.clients = nil
	r.byConn = make(map[net.Conn]*Client)
}
