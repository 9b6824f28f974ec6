package beacon

import (
	"encoding/binary"

	"sensilo-go/errcode"
	"sensilo-go/types"
)

// CompanyID is the reserved test/development company identifier carried in
// the manufacturer-specific element. Only elements with this identifier are
// Sensilo payloads.
const CompanyID uint16 = 0xFFFF

// LocalName is broadcast as a complete-local-name element in every frame.
const LocalName = "Sensilo"

// AD structure types used by this platform.
const (
	ADTypeCompleteLocalName byte = 0x09
	ADTypeManufacturerData  byte = 0xFF
)

// Advertising data is capped by the link layer.
const maxAdvDataLen = 31

// Advertisement is one beacon frame as assembled on the node. Immutable once
// built; the burst controller retransmits the same encoded bytes.
type Advertisement struct {
	Address   types.Address
	LocalName string
	Payload   Payload
}

// Bytes assembles the advertising-data buffer: a complete local name element
// followed by the manufacturer-specific element (company identifier
// little-endian, then the encoded payload). Data over the 31-byte link-layer
// cap is an error; callers skip the cycle rather than truncate.
func (a *Advertisement) Bytes() ([]byte, error) {
	payload := a.Payload.Encode()
	name := a.LocalName
	if name == "" {
		return nil, &errcode.E{C: errcode.MissingName, Op: "beacon.adv"}
	}

	n := 2 + len(name) + 2 + 2 + len(payload)
	if n > maxAdvDataLen {
		return nil, &errcode.E{C: errcode.AdvTooLong, Op: "beacon.adv"}
	}

	buf := make([]byte, 0, n)
	buf = append(buf, byte(1+len(name)), ADTypeCompleteLocalName)
	buf = append(buf, name...)
	buf = append(buf, byte(1+2+len(payload)), ADTypeManufacturerData)
	buf = binary.LittleEndian.AppendUint16(buf, CompanyID)
	buf = append(buf, payload...)
	return buf, nil
}
