package minidsp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// streamServer serves the poll endpoint, sends the given messages, and
// then holds the connection open until the client closes it.
func streamServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/devices/0" || r.URL.Query().Get("poll") != "true" {
			t.Errorf("unexpected stream request %q", r.URL.String())
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the stream open; ReadMessage returns when the client closes.
		conn.ReadMessage()
	}))
	t.Cleanup(server.Close)
	return server
}

func newStreamedDevice(t *testing.T, server *httptest.Server) *Device {
	t.Helper()
	device := newTestDevice(t, nil)
	device.streamURL = "ws" + strings.TrimPrefix(server.URL, "http") + "/devices/0?poll=true"
	return device
}

func TestLiveChannelAppliesDeltas(t *testing.T) {
	server := streamServer(t, []string{
		`{"master": {"source": "Toslink", "mute": false, "volume": -30, "preset": 1}}`,
		`{"master": {"volume": -30}}`,
	})
	device := newStreamedDevice(t, server)

	type event struct {
		changed bool
	}
	events := make(chan event, 4)
	ch := NewLiveChannel(device, func(d *Device, changed bool) {
		events <- event{changed: changed}
	})

	done := make(chan error, 1)
	go func() { done <- ch.Run(context.Background()) }()

	waitEvent := func() event {
		select {
		case e := <-events:
			return e
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delta")
			return event{}
		}
	}

	if e := waitEvent(); !e.changed {
		t.Error("first delta reported changed = false")
	}
	// Second delta repeats the volume; nothing changes.
	if e := waitEvent(); e.changed {
		t.Error("repeated delta reported changed = true")
	}

	if device.Source() != "Toslink" {
		t.Errorf("source = %q, want Toslink", device.Source())
	}
	if device.VolumeDB() != -30 {
		t.Errorf("volume = %v, want -30", device.VolumeDB())
	}
	if device.Preset() != 1 {
		t.Errorf("preset = %d, want 1", device.Preset())
	}

	// Closing from our side ends Run cleanly.
	ch.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() after Close() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after Close()")
	}
}

func TestLiveChannelSkipsMalformedDeltas(t *testing.T) {
	server := streamServer(t, []string{
		`not json at all`,
		`{"master": {"preset": 4}}`,
	})
	device := newStreamedDevice(t, server)

	events := make(chan bool, 4)
	ch := NewLiveChannel(device, func(d *Device, changed bool) {
		events <- changed
	})
	defer ch.Close()

	go ch.Run(context.Background())

	// The malformed message is dropped without a notification; the next
	// valid delta still gets through.
	select {
	case changed := <-events:
		if !changed {
			t.Error("valid delta after malformed one reported changed = false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delta after malformed message")
	}

	if device.Preset() != 4 {
		t.Errorf("preset = %d, want 4", device.Preset())
	}
}

func TestLiveChannelCloseIdempotent(t *testing.T) {
	device := newTestDevice(t, nil)
	ch := NewLiveChannel(device, nil)

	// Close before Run, twice; both must be safe.
	if err := ch.Close(); err != nil {
		t.Errorf("Close() before Run error = %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestLiveChannelContextCancel(t *testing.T) {
	server := streamServer(t, nil)
	device := newStreamedDevice(t, server)
	ch := NewLiveChannel(device, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()

	// Give the dial a moment, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancel")
	}
}
