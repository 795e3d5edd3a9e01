// Package transport carries ZCL frames between the gateway and the radio
// co-processor over a serial link. Network formation, joining, and
// security live on the co-processor side of this boundary.
package transport

import "context"

// InboundFrame is one ZCL frame received from the keypad.
type InboundFrame struct {
	ClusterID uint16
	Endpoint  uint8
	Data      []byte
}

// Transport is the frame-level link to the radio. Sends are best-effort;
// no delivery confirmation is surfaced.
type Transport interface {
	SendFrame(ctx context.Context, clusterID uint16, data []byte) error
	OnFrame(handler func(InboundFrame))
	Close() error
}
