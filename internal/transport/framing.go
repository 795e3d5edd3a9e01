package transport

import (
	"encoding/binary"
	"fmt"
)

// HDLC-style framing: packets are delimited by flag bytes, special bytes
// inside a packet are escaped, and a running XOR check byte trails the
// payload. Payload layout: endpoint (1) + cluster id (2, LE) + ZCL frame.
const (
	frameFlag   = 0x7E
	frameEscape = 0x7D
	escapeXOR   = 0x20

	packetHeaderSize = 3
	maxPacketSize    = 256
)

func fcs(data []byte) byte {
	var c byte
	for _, b := range data {
		c ^= b
	}
	return c
}

func appendEscaped(dst []byte, b byte) []byte {
	if b == frameFlag || b == frameEscape {
		return append(dst, frameEscape, b^escapeXOR)
	}
	return append(dst, b)
}

// encodePacket frames one outbound packet.
func encodePacket(endpoint uint8, clusterID uint16, data []byte) []byte {
	payload := make([]byte, 0, packetHeaderSize+len(data)+1)
	payload = append(payload, endpoint)
	payload = binary.LittleEndian.AppendUint16(payload, clusterID)
	payload = append(payload, data...)
	payload = append(payload, fcs(payload))

	out := make([]byte, 0, len(payload)+2)
	out = append(out, frameFlag)
	for _, b := range payload {
		out = appendEscaped(out, b)
	}
	return append(out, frameFlag)
}

// decodePacket parses an unescaped packet body (between flags).
func decodePacket(payload []byte) (InboundFrame, error) {
	if len(payload) < packetHeaderSize+1 {
		return InboundFrame{}, fmt.Errorf("packet too short: %d bytes", len(payload))
	}
	body, check := payload[:len(payload)-1], payload[len(payload)-1]
	if fcs(body) != check {
		return InboundFrame{}, fmt.Errorf("bad check byte: got 0x%02X, want 0x%02X", check, fcs(body))
	}
	f := InboundFrame{
		Endpoint:  body[0],
		ClusterID: binary.LittleEndian.Uint16(body[1:3]),
	}
	if len(body) > packetHeaderSize {
		f.Data = make([]byte, len(body)-packetHeaderSize)
		copy(f.Data, body[packetHeaderSize:])
	}
	return f, nil
}

// assembler accumulates raw serial bytes into packets.
type assembler struct {
	buf     []byte
	inFrame bool
	escaped bool
}

// Push consumes raw bytes and returns any complete, valid packets.
// Oversized or corrupt packets are discarded and the error of the last
// discard is returned alongside whatever parsed cleanly.
func (a *assembler) Push(data []byte) ([]InboundFrame, error) {
	var frames []InboundFrame
	var lastErr error

	for _, b := range data {
		if b == frameFlag {
			if a.inFrame && len(a.buf) > 0 {
				f, err := decodePacket(a.buf)
				if err != nil {
					lastErr = err
				} else {
					frames = append(frames, f)
				}
			}
			a.buf = a.buf[:0]
			a.inFrame = true
			a.escaped = false
			continue
		}
		if !a.inFrame {
			continue // noise between frames
		}
		if a.escaped {
			b ^= escapeXOR
			a.escaped = false
		} else if b == frameEscape {
			a.escaped = true
			continue
		}
		if len(a.buf) >= maxPacketSize {
			lastErr = fmt.Errorf("packet exceeds %d bytes, discarding", maxPacketSize)
			a.buf = a.buf[:0]
			a.inFrame = false
			continue
		}
		a.buf = append(a.buf, b)
	}
	return frames, lastErr
}
