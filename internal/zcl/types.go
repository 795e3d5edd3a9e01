package zcl

import (
	"encoding/binary"
	"fmt"
)

// ZCL data type IDs used by the gateway's clusters.
const (
	TypeNoData   uint8 = 0x00
	TypeBool     uint8 = 0x10
	TypeBitmap8  uint8 = 0x18
	TypeBitmap16 uint8 = 0x19
	TypeUint8    uint8 = 0x20
	TypeUint16   uint8 = 0x21
	TypeEnum8    uint8 = 0x30
	TypeCharStr  uint8 = 0x42
)

const (
	typeSizeVariable = -1 // variable-length type with 1-byte length prefix
	typeSizeUnknown  = -2 // unrecognized type
)

// TypeSize returns the fixed size in bytes of a ZCL type, typeSizeVariable
// for length-prefixed types, or typeSizeUnknown.
func TypeSize(t uint8) int {
	switch {
	case t == TypeNoData:
		return 0
	case t >= 0x08 && t <= 0x0F: // data8..data64
		return int(t-0x08) + 1
	case t == TypeBool:
		return 1
	case t >= 0x18 && t <= 0x1B: // map8..map32
		return int(t-0x18) + 1
	case t >= 0x20 && t <= 0x27: // uint8..uint64
		return int(t-0x20) + 1
	case t >= 0x28 && t <= 0x2F: // int8..int64
		return int(t-0x28) + 1
	case t == TypeEnum8:
		return 1
	case t == 0x31: // enum16
		return 2
	case t == 0x41, t == TypeCharStr: // octstr, string
		return typeSizeVariable
	}
	return typeSizeUnknown
}

// DecodeValue decodes a ZCL typed value, returning the Go value and the
// number of bytes consumed.
func DecodeValue(typeID uint8, data []byte) (interface{}, int, error) {
	size := TypeSize(typeID)
	switch size {
	case 0:
		return nil, 0, nil
	case typeSizeUnknown:
		return nil, 0, fmt.Errorf("zcl: unsupported type 0x%02X", typeID)
	case typeSizeVariable:
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("zcl: no length byte for string type")
		}
		length := int(data[0])
		if length == 0xFF {
			return nil, 1, nil // invalid marker
		}
		if len(data) < 1+length {
			return nil, 0, fmt.Errorf("zcl: string truncated: need %d, have %d", length, len(data)-1)
		}
		return string(data[1 : 1+length]), 1 + length, nil
	}

	if len(data) < size {
		return nil, 0, fmt.Errorf("zcl: not enough data for type 0x%02X: need %d, have %d", typeID, size, len(data))
	}
	switch typeID {
	case TypeBool:
		return data[0] != 0, 1, nil
	case TypeUint8, TypeEnum8, TypeBitmap8:
		return data[0], 1, nil
	case TypeUint16, TypeBitmap16:
		return binary.LittleEndian.Uint16(data[:2]), 2, nil
	}
	// Recognized but untyped: hand back the raw bytes.
	raw := make([]byte, size)
	copy(raw, data[:size])
	return raw, size, nil
}

// EncodeValue encodes a Go value into ZCL wire format.
func EncodeValue(typeID uint8, val interface{}) ([]byte, error) {
	switch typeID {
	case TypeBool:
		v, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to bool", val)
		}
		if v {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case TypeUint8, TypeEnum8, TypeBitmap8:
		v, ok := toUint64(val)
		if !ok || v > 0xFF {
			return nil, fmt.Errorf("zcl: cannot encode %v (%T) as uint8", val, val)
		}
		return []byte{uint8(v)}, nil

	case TypeUint16, TypeBitmap16:
		v, ok := toUint64(val)
		if !ok || v > 0xFFFF {
			return nil, fmt.Errorf("zcl: cannot encode %v (%T) as uint16", val, val)
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(v))
		return buf, nil

	case TypeCharStr:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to string", val)
		}
		if len(s) > 254 {
			return nil, fmt.Errorf("zcl: string too long for CharStr: %d (max 254)", len(s))
		}
		buf := make([]byte, 1+len(s))
		buf[0] = uint8(len(s))
		copy(buf[1:], s)
		return buf, nil
	}

	return nil, fmt.Errorf("zcl: encode not implemented for type 0x%02X", typeID)
}

func toUint64(v interface{}) (uint64, bool) {
	switch val := v.(type) {
	case uint8:
		return uint64(val), true
	case uint16:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	case int:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	}
	return 0, false
}
