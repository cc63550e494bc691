package expert

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/amplink/amplink/internal/logging"
)

// dialFunc opens the transient association used for one logical command.
// Swappable for tests.
type dialFunc func(ctx context.Context, ip string) (net.Conn, error)

func dialCommandPort(ctx context.Context, ip string) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "udp4", net.JoinHostPort(ip, strconv.Itoa(CommandPort)))
}

// sendCommand transmits one logical command: it opens a transient UDP
// association to the device's command port, sends the frame transmits
// times, and closes the association once the writes are flushed.
//
// Every physical transmission re-runs the encoder so the packet counter
// advances per send; the command counter advances once for the whole
// logical command. There is no acknowledgment protocol, so the caller only
// waits for local completion.
func (d *Device) sendCommand(ctx context.Context, flag, opcode, payloadHi, payloadLo byte) error {
	ip := d.IPAddress()
	if ip == "" {
		return fmt.Errorf("device %q has no known address", d.Name())
	}

	conn, err := d.dial(ctx, ip)
	if err != nil {
		return fmt.Errorf("failed to open command session to %s: %w", ip, err)
	}
	defer conn.Close()

	for i := 0; i < d.transmits; i++ {
		frame := d.nextFrame(flag, opcode, payloadHi, payloadLo)
		if _, err := conn.Write(frame); err != nil {
			return fmt.Errorf("failed to send command to %s: %w", ip, err)
		}
	}
	d.finishCommand()

	logging.Debug("expert command sent",
		zap.String("device", d.Name()),
		zap.Uint8("opcode", opcode),
		zap.Int("transmits", d.transmits),
	)
	return nil
}

// nextFrame encodes one physical transmission, advancing the packet
// counter. The counters are wrapped before use so the 16-bit fields never
// truncate silently.
func (d *Device) nextFrame(flag, opcode, payloadHi, payloadLo byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.numPackets > counterLimit {
		d.numPackets = 0
	}
	if d.numCommands > counterLimit {
		d.numCommands = 0
	}

	frame := EncodeCommand(uint16(d.numPackets), uint16(d.numCommands), flag, opcode, payloadHi, payloadLo)
	d.numPackets++
	return frame
}

func (d *Device) finishCommand() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.numCommands++
}
