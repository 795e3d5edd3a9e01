// Package zcl implements the subset of the ZigBee Cluster Library wire
// format needed by the keypad gateway: the frame header, the typed value
// codec, and attribute-report parsing.
package zcl

import "fmt"

// Frame control field bits (header byte 0).
const (
	fcClusterSpecific      uint8 = 0x01
	fcManufacturerSpecific uint8 = 0x04
	fcDirectionToClient    uint8 = 0x08
	fcDisableDefaultResp   uint8 = 0x10
)

// FrameControl is the decoded ZCL frame control field.
type FrameControl struct {
	ClusterSpecific        bool
	ManufacturerSpecific   bool
	DirectionToClient      bool
	DisableDefaultResponse bool
}

// ParseFrameControl decodes a raw frame control byte.
func ParseFrameControl(b uint8) FrameControl {
	return FrameControl{
		ClusterSpecific:        b&fcClusterSpecific != 0,
		ManufacturerSpecific:   b&fcManufacturerSpecific != 0,
		DirectionToClient:      b&fcDirectionToClient != 0,
		DisableDefaultResponse: b&fcDisableDefaultResp != 0,
	}
}

// Byte encodes the frame control field back to its wire form.
func (fc FrameControl) Byte() uint8 {
	var b uint8
	if fc.ClusterSpecific {
		b |= fcClusterSpecific
	}
	if fc.ManufacturerSpecific {
		b |= fcManufacturerSpecific
	}
	if fc.DirectionToClient {
		b |= fcDirectionToClient
	}
	if fc.DisableDefaultResponse {
		b |= fcDisableDefaultResp
	}
	return b
}

// Frame is a parsed ZCL frame. Manufacturer is only meaningful when
// Control.ManufacturerSpecific is set.
type Frame struct {
	Control      FrameControl
	Manufacturer uint16
	Seq          uint8
	Command      uint8
	Payload      []byte
}

// ParseFrame decodes a raw ZCL frame (header + payload).
func ParseFrame(data []byte) (Frame, error) {
	if len(data) < 3 {
		return Frame{}, fmt.Errorf("zcl: frame too short: %d bytes", len(data))
	}
	f := Frame{Control: ParseFrameControl(data[0])}
	rest := data[1:]
	if f.Control.ManufacturerSpecific {
		if len(rest) < 4 {
			return Frame{}, fmt.Errorf("zcl: manufacturer frame too short: %d bytes", len(data))
		}
		f.Manufacturer = uint16(rest[0]) | uint16(rest[1])<<8
		rest = rest[2:]
	}
	f.Seq = rest[0]
	f.Command = rest[1]
	if len(rest) > 2 {
		f.Payload = make([]byte, len(rest)-2)
		copy(f.Payload, rest[2:])
	}
	return f, nil
}

// Bytes encodes the frame to its wire form.
func (f Frame) Bytes() []byte {
	n := 3 + len(f.Payload)
	if f.Control.ManufacturerSpecific {
		n += 2
	}
	buf := make([]byte, 0, n)
	buf = append(buf, f.Control.Byte())
	if f.Control.ManufacturerSpecific {
		buf = append(buf, byte(f.Manufacturer), byte(f.Manufacturer>>8))
	}
	buf = append(buf, f.Seq, f.Command)
	buf = append(buf, f.Payload...)
	return buf
}
