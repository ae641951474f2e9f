package ipc

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// HandlerFunc produces the reply payload for one request. A returned
// error suppresses the reply and is logged; the connection survives.
type HandlerFunc func(payload []byte) ([]byte, error)

// Logger is satisfied by logging.Logger; kept minimal to avoid dependency
// cycles.
type Logger interface {
	Printf(format string, v ...any)
}

// writeTimeout bounds every send. Event delivery is best-effort: a write
// that cannot complete in time is dropped, and the dead connection is
// detected by its own read path.
const writeTimeout = 50 * time.Millisecond

// Server owns the rendezvous socket, the client registry, and the
// dispatch table. All registry access and all writes happen on a single
// reactor goroutine; connection readers only decode frames and post work.
type Server struct {
	logger   Logger
	registry *Registry
	handlers [messageTypeCount]HandlerFunc

	mu       sync.Mutex
	queue    []func()
	stopping bool
	wake     chan struct{}

	listeners []net.Listener
	path      string
	wg        sync.WaitGroup
	loopDone  chan struct{}
	started   bool
}

// NewServer constructs an IPC server.
func NewServer(logger Logger) *Server {
	return &Server{
		logger:   logger,
		registry: NewRegistry(),
		wake:     make(chan struct{}, 1),
		loopDone: make(chan struct{}),
	}
}

// Handle installs the handler for a request type. Must be called before
// Start. MessageSubscribe is handled internally and cannot be overridden.
func (s *Server) Handle(msgType uint32, fn HandlerFunc) {
	if msgType >= messageTypeCount || msgType == MessageSubscribe {
		return
	}
	s.handlers[msgType] = fn
}

// Start binds the rendezvous socket (created on demand, stale file
// unlinked) and adopts any pre-opened activation descriptors, then begins
// serving. An empty socketPath is resolved per ResolvePath. Failure to
// bind disables the subsystem but is not fatal to the host.
func (s *Server) Start(ctx context.Context, socketPath string) error {
	if s == nil {
		return errors.New("nil server")
	}
	path := ResolvePath(socketPath)
	activated := activationListeners(s.logger)
	ln, err := createSocket(path)
	if err != nil {
		if len(activated) == 0 {
			return err
		}
		s.logf("ipc: could not bind %s, serving activation sockets only: %v", path, err)
	} else {
		s.listeners = append(s.listeners, ln)
		s.path = path
	}
	s.listeners = append(s.listeners, activated...)

	s.started = true
	go s.loop()
	for _, listener := range s.listeners {
		s.wg.Add(1)
		go s.acceptLoop(ctx, listener)
	}
	s.logf("ipc: listening on %s (%d listeners)", path, len(s.listeners))
	return nil
}

// SocketPath reports the bound rendezvous path, if any.
func (s *Server) SocketPath() string {
	return s.path
}

// Stop drains the registry, closes all listeners, and waits for the
// reactor to exit. Clients are force-closed without a final message.
func (s *Server) Stop() error {
	if !s.started {
		return nil
	}
	s.enqueue(func() { s.registry.Drain() })
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
	s.signal()
	for _, listener := range s.listeners {
		_ = listener.Close()
	}
	<-s.loopDone
	s.wg.Wait()
	if s.path != "" {
		removeSocket(s.path)
	}
	return nil
}

// Publish sends payload to every registered client subscribed to the
// named event, in registry insertion order. Delivery is best-effort and
// happens at most once per client per publish, even when the client
// stored duplicate subscriptions.
func (s *Server) Publish(event string, payload []byte) {
	msgType, ok := eventTypes[strings.ToLower(event)]
	if !ok {
		s.logf("ipc: publish of unknown event %q", event)
		return
	}
	s.enqueue(func() {
		for _, client := range s.registry.Snapshot() {
			if !client.alive {
				continue
			}
			for _, sub := range client.events {
				if strings.EqualFold(sub, event) {
					s.send(client, msgType, payload)
					break
				}
			}
		}
	})
}

// Clients reports the number of registered clients, observed from the
// reactor so in-flight teardowns are settled first.
func (s *Server) Clients() int {
	done := make(chan int, 1)
	s.enqueue(func() { done <- s.registry.Len() })
	select {
	case n := <-done:
		return n
	case <-s.loopDone:
		return 0
	}
}

// enqueue posts fn to the reactor. Tasks arriving after shutdown began
// are dropped; the registry is already drained by then.
func (s *Server) enqueue(fn func()) {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
	s.signal()
}

func (s *Server) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// loop is the reactor: the only goroutine that touches the registry,
// runs handlers, and writes to connections.
func (s *Server) loop() {
	defer close(s.loopDone)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 {
			stopping := s.stopping
			s.mu.Unlock()
			if stopping {
				return
			}
			<-s.wake
			s.mu.Lock()
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		fn()
	}
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logf("ipc: accept error: %v", err)
			continue
		}
		s.enqueue(func() {
			client := s.registry.Add(conn)
			s.logf("ipc: new client %s connected", client.ID)
		})
		s.wg.Add(1)
		go s.readLoop(conn)
	}
}

// readLoop reads raw bytes off one connection, reassembles frames, and
// posts complete messages to the reactor. It never touches the registry.
func (s *Server) readLoop(conn net.Conn) {
	defer s.wg.Done()
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				msgType, payload, consumed, derr := Decode(buf)
				if errors.Is(derr, ErrIncomplete) {
					break
				}
				if derr != nil {
					s.logf("ipc: framing error, closing connection: %v", derr)
					s.teardown(conn)
					return
				}
				buf = buf[consumed:]
				s.enqueue(func() { s.dispatch(conn, msgType, payload) })
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logf("ipc: read error: %v", err)
			}
			s.teardown(conn)
			return
		}
	}
}

// teardown schedules removal of the client bound to conn. Runs on the
// reactor so it cannot race a broadcast iteration.
func (s *Server) teardown(conn net.Conn) {
	s.enqueue(func() {
		if client := s.registry.Lookup(conn); client != nil {
			s.logf("ipc: client %s disconnected", client.ID)
			s.registry.Remove(client)
			return
		}
		_ = conn.Close()
	})
}

// dispatch routes one decoded message. Unknown type codes are logged and
// ignored without harming the connection.
func (s *Server) dispatch(conn net.Conn, msgType uint32, payload []byte) {
	client := s.registry.Lookup(conn)
	if client == nil || !client.alive {
		s.logf("ipc: dropping message type %d for unregistered connection", msgType)
		return
	}
	if msgType >= messageTypeCount {
		s.logf("ipc: unhandled message type %d from client %s", msgType, client.ID)
		return
	}
	if msgType == MessageSubscribe {
		s.handleSubscribe(client, payload)
		return
	}
	fn := s.handlers[msgType]
	if fn == nil {
		s.logf("ipc: no handler for message type %d", msgType)
		return
	}
	reply, err := fn(payload)
	if err != nil {
		s.logf("ipc: handler for type %d failed: %v", msgType, err)
		return
	}
	s.send(client, msgType, reply)
}

func (s *Server) handleSubscribe(client *Client, payload []byte) {
	if err := parseSubscriptions(client, payload); err != nil {
		s.logf("ipc: subscribe parse error from client %s: %v", client.ID, err)
		s.send(client, MessageSubscribe, []byte(`{"success":false}`))
		return
	}
	s.send(client, MessageSubscribe, []byte(`{"success":true}`))
}

// send writes one framed message, bounded by the write timeout. Failures
// are dropped; the connection's read path notices a dead peer.
func (s *Server) send(client *Client, msgType uint32, payload []byte) {
	_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := WriteMessage(client.conn, msgType, payload); err != nil {
		s.logf("ipc: dropping message type %d for client %s: %v", msgType, client.ID, err)
	}
	_ = client.conn.SetWriteDeadline(time.Time{})
}

func (s *Server) logf(format string, v ...any) {
	if s.logger != nil {
		s.logger.Printf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}
