package veml7700

import (
	"math"
	"testing"
	"time"
)

type fakeBus struct {
	writes [][]byte
	als    uint16
}

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	if len(r) > 0 {
		r[0] = byte(f.als)
		r[1] = byte(f.als >> 8)
		return nil
	}
	f.writes = append(f.writes, append([]byte(nil), w...))
	return nil
}

func TestConfigure_WritesShutdownConfig(t *testing.T) {
	bus := &fakeBus{}
	d := New(bus)
	if err := d.Configure(Config{Gain: Gain1, IntegrationTime: 25 * time.Millisecond}); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	if len(bus.writes) != 1 {
		t.Fatalf("want one config write, got %d", len(bus.writes))
	}
	w := bus.writes[0]
	if w[0] != regConfig {
		t.Fatalf("wrote register %#x", w[0])
	}
	v := uint16(w[1]) | uint16(w[2])<<8
	if v&shutdownBit == 0 {
		t.Error("configure must leave the sensor shut down")
	}
	if (v>>6)&0xf != 0b1100 {
		t.Errorf("integration time bits = %04b, want 1100 (25ms)", (v>>6)&0xf)
	}
}

func TestConfigure_Unsupported(t *testing.T) {
	d := New(&fakeBus{})
	if err := d.Configure(Config{IntegrationTime: 33 * time.Millisecond}); err != ErrConfig {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}

func TestTriggerHint(t *testing.T) {
	d := New(&fakeBus{})
	if err := d.Configure(Config{IntegrationTime: 100 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	if got := d.TriggerHint(); got != 104 * time.Millisecond {
		t.Errorf("TriggerHint() = %v, want 104ms", got)
	}
}

func TestCollect_LuxConversion(t *testing.T) {
	bus := &fakeBus{als: 332}
	d := New(bus)
	if err := d.Configure(); err != nil { // gain 1, 25ms: 0.2304 lx/count
		t.Fatal(err)
	}
	if err := d.Trigger(); err != nil {
		t.Fatal(err)
	}
	lux, err := d.Collect()
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if math.Abs(float64(lux)-332*0.2304) > 1e-3 {
		t.Errorf("lux = %v, want %v", lux, 332*0.2304)
	}
	// Collect powers the sensor back down.
	last := bus.writes[len(bus.writes)-1]
	if last[1]&shutdownBit == 0 {
		t.Error("sensor left running after Collect")
	}
}
