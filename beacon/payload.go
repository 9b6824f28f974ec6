// Package beacon implements the Sensilo advertisement wire format.
//
// The manufacturer-specific element carries, after the company identifier,
// a 2-byte little-endian cycle counter followed by zero or more
// (tag, 4-byte little-endian value) pairs. The format is self-describing via
// tags, not positional: absent readings are omitted, never zero-filled.
//
// Encode and Decode are pure and symmetric; Decode is strict but salvages as
// much as it can, so a readable counter survives a truncated or unknown
// trailing field.
package beacon

import (
	"encoding/binary"
	"math"

	"sensilo-go/errcode"
	"sensilo-go/types"
)

// Reading tags on the wire.
const (
	TagTemperature  byte = 0x01
	TagHumidity     byte = 0x02
	TagAmbientLight byte = 0x04
)

const counterSize = 2
const valueSize = 4

// Payload is the decoded manufacturer-specific sub-payload. Nil reading
// pointers mean the reading was absent from this cycle.
type Payload struct {
	Counter      uint16
	Temperature  *types.TemperatureValue
	Humidity     *types.HumidityValue
	AmbientLight *types.AmbientLightValue
}

// Encode packs the payload. Readings are emitted in tag order; decoders must
// not rely on ordering.
func (p *Payload) Encode() []byte {
	buf := make([]byte, counterSize, counterSize+3*(1+valueSize))
	binary.LittleEndian.PutUint16(buf, p.Counter)
	if p.Temperature != nil {
		buf = appendField(buf, TagTemperature, uint32(p.Temperature.MilliC))
	}
	if p.Humidity != nil {
		buf = appendField(buf, TagHumidity, uint32(p.Humidity.MilliPct))
	}
	if p.AmbientLight != nil {
		buf = appendField(buf, TagAmbientLight, math.Float32bits(p.AmbientLight.Lux))
	}
	return buf
}

func appendField(buf []byte, tag byte, v uint32) []byte {
	buf = append(buf, tag)
	return binary.LittleEndian.AppendUint32(buf, v)
}

// Decode parses a payload. On error the returned Payload still holds
// everything parsed before the failure point: an unknown tag or a field cut
// short never corrupts the counter or earlier readings.
//
// Error codes: short_payload (no room for the counter), truncated_payload
// (tag present, value cut short), unknown_tag (value width unknowable, so
// decoding cannot continue past it).
func Decode(b []byte) (Payload, error) {
	var p Payload
	if len(b) < counterSize {
		return p, &errcode.E{C: errcode.ShortPayload, Op: "beacon.decode", Msg: "no counter"}
	}
	p.Counter = binary.LittleEndian.Uint16(b)
	rest := b[counterSize:]

	for len(rest) > 0 {
		tag := rest[0]
		switch tag {
		case TagTemperature, TagHumidity, TagAmbientLight:
		default:
			return p, &errcode.E{C: errcode.UnknownTag, Op: "beacon.decode"}
		}
		if len(rest) < 1+valueSize {
			return p, &errcode.E{C: errcode.TruncatedPayload, Op: "beacon.decode"}
		}
		v := binary.LittleEndian.Uint32(rest[1:])
		switch tag {
		case TagTemperature:
			p.Temperature = &types.TemperatureValue{MilliC: int32(v)}
		case TagHumidity:
			p.Humidity = &types.HumidityValue{MilliPct: int32(v)}
		case TagAmbientLight:
			p.AmbientLight = &types.AmbientLightValue{Lux: math.Float32frombits(v)}
		}
		rest = rest[1+valueSize:]
	}
	return p, nil
}
