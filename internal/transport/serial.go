package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"
)

// SerialTransport talks to the radio co-processor over a serial port.
// Inbound frames are handed to the registered handler one at a time from
// the read loop, so handlers never see interleaved frames from the same
// device.
type SerialTransport struct {
	port     serial.Port
	endpoint uint8
	logger   *slog.Logger

	writeMu   sync.Mutex
	handlerMu sync.RWMutex
	handler   func(InboundFrame)

	closeOnce sync.Once
	done      chan struct{}
}

// OpenSerial opens the port and starts the read loop.
func OpenSerial(portName string, baudRate int, endpoint uint8, logger *slog.Logger) (*SerialTransport, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	t := &SerialTransport{
		port:     port,
		endpoint: endpoint,
		logger:   logger.With("component", "transport"),
		done:     make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

func (t *SerialTransport) SendFrame(ctx context.Context, clusterID uint16, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	packet := encodePacket(t.endpoint, clusterID, data)

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.port.Write(packet); err != nil {
		return fmt.Errorf("write frame to cluster 0x%04X: %w", clusterID, err)
	}
	return nil
}

func (t *SerialTransport) OnFrame(handler func(InboundFrame)) {
	t.handlerMu.Lock()
	t.handler = handler
	t.handlerMu.Unlock()
}

func (t *SerialTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.port.Close()
	})
	return err
}

func (t *SerialTransport) readLoop() {
	var asm assembler
	buf := make([]byte, 512)
	for {
		n, err := t.port.Read(buf)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if err == io.EOF {
				continue
			}
			t.logger.Error("serial read failed", "error", err)
			return
		}
		frames, err := asm.Push(buf[:n])
		if err != nil {
			t.logger.Debug("discarded malformed packet", "error", err)
		}
		for _, f := range frames {
			t.dispatch(f)
		}
	}
}

func (t *SerialTransport) dispatch(f InboundFrame) {
	t.handlerMu.RLock()
	handler := t.handler
	t.handlerMu.RUnlock()
	if handler == nil {
		t.logger.Debug("frame dropped, no handler registered", "cluster", fmt.Sprintf("0x%04X", f.ClusterID))
		return
	}
	handler(f)
}
