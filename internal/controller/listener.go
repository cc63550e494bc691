package controller

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/amplink/amplink/internal/logging"
)

// readBufferSize covers both families' largest frames with headroom
// (expert status frames are a few hundred bytes, discovery packets less).
const readBufferSize = 2048

// DatagramHandler processes one received datagram. data is owned by the
// handler; the listener never reuses the slice.
type DatagramHandler func(data []byte, addr *net.UDPAddr)

// Listener is a broadcast-capable UDP listener on a fixed well-known port.
// A single reader goroutine receives datagrams and hands each to the
// handler, so handlers for one listener never run concurrently with each
// other.
type Listener struct {
	port    int
	handler DatagramHandler

	mu     sync.Mutex
	conn   *net.UDPConn
	closed bool
	done   chan struct{}
}

// NewListener creates a listener for the given port. Start must be called
// before any datagrams are delivered.
func NewListener(port int, handler DatagramHandler) *Listener {
	return &Listener{
		port:    port,
		handler: handler,
	}
}

// Start binds the socket and launches the reader goroutine. A bind failure
// is returned to the caller and is fatal to startup; there is no retry.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("listener already closed")
	}
	if l.conn != nil {
		return fmt.Errorf("listener already started")
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: l.port})
	if err != nil {
		return fmt.Errorf("failed to bind UDP port %d: %w", l.port, err)
	}

	l.conn = conn
	l.done = make(chan struct{})

	logging.Info("UDP listener started", zap.String("addr", conn.LocalAddr().String()))

	go l.readLoop(conn, l.done)
	return nil
}

// LocalAddr returns the bound address, or nil before Start.
func (l *Listener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

func (l *Listener) readLoop(conn *net.UDPConn, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readBufferSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			// Read errors after Close are the normal shutdown path.
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if !closed {
				logging.Error("UDP read failed", zap.Error(err))
			}
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		l.handler(data, addr)
	}
}

// Close stops the listener and waits for the reader goroutine to exit.
// It is idempotent and safe to call even if Start was never called.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conn := l.conn
	done := l.done
	l.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	<-done
	logging.Info("UDP listener stopped", zap.Int("port", l.port))
	return err
}
