package types

import (
	"encoding/hex"

	"sensilo-go/errcode"
)

// Address is a 6-byte radio device address in canonical order.
// Equality and map keys work on the raw bytes.
//
// On the air the bytes travel in reversed order; AddressFromWire is the only
// place that un-reverses them. Everything else in the tree holds canonical
// addresses so allowlist matching and configuration stay consistent.
type Address [6]byte

// AddressFromWire converts a raw, byte-reversed address field as captured
// from an advertising report into the canonical representation.
func AddressFromWire(b []byte) (Address, error) {
	var a Address
	if len(b) != len(a) {
		return a, &errcode.E{C: errcode.ParseFailed, Op: "addr", Msg: "address field must be 6 bytes"}
	}
	for i := range a {
		a[i] = b[len(a)-1-i]
	}
	return a, nil
}

// ParseAddress parses a 12-hex-character address (no separators), as used in
// the gateway device configuration.
func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) != 2*len(a) {
		return a, &errcode.E{C: errcode.InvalidParams, Op: "addr", Msg: "hex address must be 12 characters"}
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, &errcode.E{C: errcode.InvalidParams, Op: "addr", Msg: "bad hex address", Err: err}
	}
	return a, nil
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}
