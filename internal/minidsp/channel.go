package minidsp

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/amplink/amplink/internal/logging"
)

// UpdateFunc receives the device and whether a delta changed its state.
type UpdateFunc func(device *Device, changed bool)

// LiveChannel is the long-lived websocket stream that delivers status
// deltas for one device. Deltas are applied to the device field by field
// and surfaced through the notify callback, which the controller wires to
// the registry's device-updated listeners.
type LiveChannel struct {
	device *Device
	notify UpdateFunc

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewLiveChannel creates a channel for the device. Run must be called to
// open the stream; notify may be nil.
func NewLiveChannel(device *Device, notify UpdateFunc) *LiveChannel {
	return &LiveChannel{
		device: device,
		notify: notify,
	}
}

// Run dials the device's streaming endpoint and applies deltas until the
// channel is closed, the context is canceled, or the stream fails. A
// close from either side returns nil; a transport failure is returned.
func (ch *LiveChannel) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ch.device.streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to open live channel to %q: %w", ch.device.Name(), err)
	}

	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		conn.Close()
		return nil
	}
	ch.conn = conn
	ch.mu.Unlock()

	// Context cancellation tears the stream down so ReadMessage unblocks.
	stop := context.AfterFunc(ctx, func() { ch.Close() })
	defer stop()

	logging.Info("live channel opened", zap.String("device", ch.device.Name()))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ch.isClosed() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("live channel to %q failed: %w", ch.device.Name(), err)
		}

		changed, err := ch.device.applyDelta(message)
		if err != nil {
			logging.Warn("dropping malformed status delta",
				zap.String("device", ch.device.Name()),
				zap.Error(err),
			)
			continue
		}
		if ch.notify != nil {
			ch.notify(ch.device, changed)
		}
	}
}

func (ch *LiveChannel) isClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

// Close tears the stream down. Idempotent, and safe to call even if Run
// was never started.
func (ch *LiveChannel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return nil
	}
	ch.closed = true
	if ch.conn == nil {
		return nil
	}
	logging.Info("live channel closed", zap.String("device", ch.device.Name()))
	return ch.conn.Close()
}
