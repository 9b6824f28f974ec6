package shtc3

import (
	"bytes"
	"errors"
	"testing"
)

// fakeBus scripts I2C transactions: writes are recorded, reads are served
// from a queue of canned responses (nil response = NACK).
type fakeBus struct {
	writes [][]byte
	reads  [][]byte
}

var errNACK = errors.New("i2c: nack")

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		f.writes = append(f.writes, append([]byte(nil), w...))
	}
	if len(r) > 0 {
		if len(f.reads) == 0 {
			return errNACK
		}
		resp := f.reads[0]
		f.reads = f.reads[1:]
		if resp == nil {
			return errNACK
		}
		copy(r, resp)
	}
	return nil
}

// word appends the CRC to a big-endian 16-bit raw value.
func word(raw uint16) []byte {
	b := []byte{byte(raw >> 8), byte(raw)}
	return append(b, crc8(b))
}

func TestTriggerCollect(t *testing.T) {
	// Raw 0x8000 is the scale midpoint: 42.5°C, 50%RH exactly.
	resp := append(word(0x8000), word(0x8000)...)
	bus := &fakeBus{reads: [][]byte{resp}}
	d := New(bus)
	d.Configure()

	if err := d.Trigger(); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if len(bus.writes) != 2 ||
		!bytes.Equal(bus.writes[0], cmdWakeup) ||
		!bytes.Equal(bus.writes[1], cmdMeasureNormal) {
		t.Fatalf("unexpected command sequence: % x", bus.writes)
	}

	var s Sample
	if err := d.Collect(&s); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if got := s.MilliCelsius(); got != 42500 {
		t.Errorf("MilliCelsius() = %d, want 42500", got)
	}
	if got := s.MilliRelHumidity(); got != 50000 {
		t.Errorf("MilliRelHumidity() = %d, want 50000", got)
	}
	// Sensor goes back to sleep after a successful readout.
	last := bus.writes[len(bus.writes)-1]
	if !bytes.Equal(last, cmdSleep) {
		t.Errorf("last command = % x, want sleep", last)
	}
}

func TestCollect_NotReadyOnNACK(t *testing.T) {
	bus := &fakeBus{reads: [][]byte{nil}}
	d := New(bus)
	d.Configure()
	var s Sample
	if err := d.Collect(&s); err != ErrNotReady {
		t.Errorf("Collect() = %v, want ErrNotReady", err)
	}
}

func TestCollect_ChecksumMismatch(t *testing.T) {
	resp := append(word(0x1234), word(0x5678)...)
	resp[2] ^= 0xff
	bus := &fakeBus{reads: [][]byte{resp}}
	d := New(bus)
	d.Configure()
	var s Sample
	if err := d.Collect(&s); err != ErrChecksum {
		t.Errorf("Collect() = %v, want ErrChecksum", err)
	}
}

func TestConversionRange(t *testing.T) {
	lo := Sample{RawTemp: 0, RawHumidity: 0}
	hi := Sample{RawTemp: 0xFFFF, RawHumidity: 0xFFFF}
	if lo.MilliCelsius() != -45000 {
		t.Errorf("low temp = %d, want -45000", lo.MilliCelsius())
	}
	if lo.MilliRelHumidity() != 0 {
		t.Errorf("low humidity = %d, want 0", lo.MilliRelHumidity())
	}
	if got := hi.MilliCelsius(); got < 129990 || got > 130000 {
		t.Errorf("high temp = %d, want ~130000", got)
	}
	if got := hi.MilliRelHumidity(); got < 99990 || got > 100000 {
		t.Errorf("high humidity = %d, want ~100000", got)
	}
}
