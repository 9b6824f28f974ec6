package beacon

import (
	"bytes"
	"math"
	"testing"

	"sensilo-go/errcode"
	"sensilo-go/types"
)

func TestDecode_ReferenceVector(t *testing.T) {
	// 25.338°C, 49.382 %RH, ~76.49 lx, counter 1076.
	raw := []byte{
		52, 4,
		1, 250, 98, 0, 0,
		2, 230, 192, 0, 0,
		4, 80, 252, 152, 66,
	}
	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if p.Counter != 1076 {
		t.Errorf("counter = %d, want 1076", p.Counter)
	}
	if p.Temperature == nil || p.Temperature.MilliC != 25338 {
		t.Errorf("temperature = %+v, want 25338 milli-°C", p.Temperature)
	}
	if p.Humidity == nil || p.Humidity.MilliPct != 49382 {
		t.Errorf("humidity = %+v, want 49382 milli-%%RH", p.Humidity)
	}
	if p.AmbientLight == nil {
		t.Fatal("ambient light missing")
	}
	if lux := float64(p.AmbientLight.Lux); math.Abs(lux-76.4928) > 0.001 {
		t.Errorf("lux = %v, want ~76.4928", lux)
	}
}

func TestRoundTrip_AllSubsets(t *testing.T) {
	temp := &types.TemperatureValue{MilliC: -1250}
	hum := &types.HumidityValue{MilliPct: 100000}
	lux := &types.AmbientLightValue{Lux: 0.0576}

	for mask := 0; mask < 8; mask++ {
		in := Payload{Counter: 65535}
		if mask&1 != 0 {
			in.Temperature = temp
		}
		if mask&2 != 0 {
			in.Humidity = hum
		}
		if mask&4 != 0 {
			in.AmbientLight = lux
		}

		out, err := Decode(in.Encode())
		if err != nil {
			t.Fatalf("mask %d: decode failed: %v", mask, err)
		}
		if out.Counter != in.Counter {
			t.Errorf("mask %d: counter = %d, want %d", mask, out.Counter, in.Counter)
		}
		if (out.Temperature != nil) != (in.Temperature != nil) ||
			(out.Humidity != nil) != (in.Humidity != nil) ||
			(out.AmbientLight != nil) != (in.AmbientLight != nil) {
			t.Fatalf("mask %d: presence mismatch: %+v", mask, out)
		}
		if out.Temperature != nil && out.Temperature.MilliC != temp.MilliC {
			t.Errorf("mask %d: temperature changed", mask)
		}
		if out.Humidity != nil && out.Humidity.MilliPct != hum.MilliPct {
			t.Errorf("mask %d: humidity changed", mask)
		}
		if out.AmbientLight != nil &&
			math.Float32bits(out.AmbientLight.Lux) != math.Float32bits(lux.Lux) {
			t.Errorf("mask %d: lux bits changed", mask)
		}
	}
}

func TestDecode_ShortPayload(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, {52}} {
		if _, err := Decode(raw); errcode.Of(err) != errcode.ShortPayload {
			t.Errorf("Decode(%v) error = %v, want short_payload", raw, err)
		}
	}
}

func TestDecode_TruncatedField(t *testing.T) {
	// Counter, then a temperature tag with only 2 of 4 value bytes.
	raw := []byte{52, 4, 1, 250, 98}
	p, err := Decode(raw)
	if errcode.Of(err) != errcode.TruncatedPayload {
		t.Fatalf("error = %v, want truncated_payload", err)
	}
	if p.Counter != 1076 {
		t.Errorf("counter = %d, want 1076 (must survive truncation)", p.Counter)
	}
	if p.Temperature != nil {
		t.Error("truncated temperature must stay absent")
	}
}

func TestDecode_UnknownTagKeepsEarlierFields(t *testing.T) {
	raw := []byte{
		52, 4,
		1, 250, 98, 0, 0,
		0x7f, 1, 2, 3, 4, // unknown tag: value width unknowable
	}
	p, err := Decode(raw)
	if errcode.Of(err) != errcode.UnknownTag {
		t.Fatalf("error = %v, want unknown_tag", err)
	}
	if p.Counter != 1076 || p.Temperature == nil || p.Temperature.MilliC != 25338 {
		t.Errorf("earlier fields corrupted: %+v", p)
	}
}

func TestEncode_OmitsAbsentReadings(t *testing.T) {
	p := Payload{Counter: 7}
	got := p.Encode()
	if !bytes.Equal(got, []byte{7, 0}) {
		t.Errorf("Encode() = %v, want counter only", got)
	}
}
