// Package hci decodes the thin slice of the Bluetooth HCI wire format the
// gateway needs: UART (H4) event packets carrying LE Advertising Reports.
// Everything else on the capture is reported as a non-advertisement so the
// caller can skip it without treating it as an error.
package hci

import (
	"sensilo-go/errcode"
	"sensilo-go/types"
)

const (
	packetTypeEvent   = 0x04
	eventLEMeta       = 0x3e
	subeventAdvReport = 0x02
)

// ADElement is one advertising data structure: a type byte and its value.
type ADElement struct {
	Type  byte
	Value []byte
}

// Report is one advertising report from an LE Advertising Report event.
// A single HCI event can carry several.
type Report struct {
	EventType   byte
	AddressType byte
	Address     types.Address
	Elements    []ADElement
	RSSI        int8
}

// ParseAdvertisingReports decodes an H4 packet into its advertising reports.
// Packets that are well formed but not LE Advertising Report events return
// errcode.NotAdvertisement; structurally broken packets return
// errcode.ParseFailed.
func ParseAdvertisingReports(b []byte) ([]Report, error) {
	const op = "hci.ParseAdvertisingReports"
	if len(b) < 3 {
		return nil, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "packet shorter than event header"}
	}
	if b[0] != packetTypeEvent || b[1] != eventLEMeta {
		return nil, errcode.NotAdvertisement
	}
	paramLen := int(b[2])
	params := b[3:]
	if len(params) < paramLen {
		return nil, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "event parameters truncated"}
	}
	params = params[:paramLen]
	if len(params) < 2 {
		return nil, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "meta event too short"}
	}
	if params[0] != subeventAdvReport {
		return nil, errcode.NotAdvertisement
	}

	numReports := int(params[1])
	rest := params[2:]
	reports := make([]Report, 0, numReports)
	for i := 0; i < numReports; i++ {
		// event type, address type, address, data length
		if len(rest) < 9 {
			return nil, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "report header truncated"}
		}
		r := Report{EventType: rest[0], AddressType: rest[1]}
		addr, err := types.AddressFromWire(rest[2:8])
		if err != nil {
			return nil, err
		}
		r.Address = addr
		dataLen := int(rest[8])
		rest = rest[9:]
		if len(rest) < dataLen+1 { // data plus trailing RSSI
			return nil, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "report data truncated"}
		}
		elems, err := parseADElements(rest[:dataLen])
		if err != nil {
			return nil, err
		}
		r.Elements = elems
		r.RSSI = int8(rest[dataLen])
		rest = rest[dataLen+1:]
		reports = append(reports, r)
	}
	return reports, nil
}

// parseADElements splits advertising data into length-prefixed structures.
// A zero length byte terminates the data early, which is legal padding.
func parseADElements(data []byte) ([]ADElement, error) {
	const op = "hci.parseADElements"
	var elems []ADElement
	for len(data) > 0 {
		n := int(data[0])
		if n == 0 {
			break
		}
		if len(data) < 1+n {
			return nil, &errcode.E{C: errcode.ParseFailed, Op: op, Msg: "ad structure overruns data"}
		}
		elems = append(elems, ADElement{Type: data[1], Value: data[2 : 1+n]})
		data = data[1+n:]
	}
	return elems, nil
}
