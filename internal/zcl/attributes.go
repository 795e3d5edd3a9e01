package zcl

import "encoding/binary"

// AttributeReport is a single record from a Report Attributes frame.
type AttributeReport struct {
	AttrID   uint16
	DataType uint8
	Value    interface{}
}

// ParseReportAttributes walks a Report Attributes payload: repeated
// AttrID (2 bytes) + DataType (1 byte) + value. Stops at the first record
// it cannot decode and returns what it has so far rather than guessing.
func ParseReportAttributes(data []byte) []AttributeReport {
	var results []AttributeReport
	for len(data) >= 3 {
		attrID := binary.LittleEndian.Uint16(data[0:2])
		dataType := data[2]
		data = data[3:]

		value, n, err := DecodeValue(dataType, data)
		if err != nil {
			return results
		}
		data = data[n:]
		results = append(results, AttributeReport{AttrID: attrID, DataType: dataType, Value: value})
	}
	return results
}
