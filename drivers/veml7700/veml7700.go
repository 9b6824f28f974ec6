// Package veml7700 provides a driver for the Vishay VEML7700 ambient light
// sensor. The sensor free-runs once enabled: Trigger powers it on, and after
// the startup delay plus one integration period the ALS register holds a
// valid count. There is no data-ready flag, so callers must wait out
// TriggerHint before Collect.
//
// Lux conversion uses the gain/integration-time resolution table; the result
// is a float32 because resolution is fractional lux per count.
package veml7700

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x10

// Registers.
const (
	regConfig = 0x00
	regALS    = 0x04
)

// Gain selects the analog gain in the config register.
type Gain uint8

const (
	Gain1 Gain = iota
	Gain2
	GainQuarter
	GainEighth
)

// config register bits 12:11 and the resolution multiplier vs Gain1.
var gains = map[Gain]struct {
	bits uint16
	mul  float32
}{
	Gain1:       {0b00, 1},
	Gain2:       {0b01, 0.5},
	GainQuarter: {0b11, 4},
	GainEighth:  {0b10, 8},
}

// integration time register bits 9:6 and resolution at Gain1 (lx/count).
var integrationTimes = map[time.Duration]struct {
	bits uint16
	res  float32
}{
	25 * time.Millisecond:  {0b1100, 0.2304},
	50 * time.Millisecond:  {0b1000, 0.1152},
	100 * time.Millisecond: {0b0000, 0.0576},
	200 * time.Millisecond: {0b0001, 0.0288},
	400 * time.Millisecond: {0b0010, 0.0144},
	800 * time.Millisecond: {0b0011, 0.0072},
}

const shutdownBit = 0x0001

// Power-on settling before the first integration period starts.
const startupDelay = 4 * time.Millisecond

// Errors returned by the driver.
var (
	ErrConfig = errors.New("veml7700: unsupported gain or integration time")
)

// Config controls measurement behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x10 if zero.
	Address uint16
	// Gain defaults to Gain1.
	Gain Gain
	// IntegrationTime defaults to 25ms (shortest supported).
	IntegrationTime time.Duration
}

// Device wraps an I2C connection to a VEML7700 device.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg Config
	res float32 // lx per count for the configured gain/integration time
	buf [3]byte
}

// New creates a new VEML7700 connection. The I2C bus must already be
// configured. This function only creates the Device object.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Configure applies the config and writes the (shut down) config register.
func (d *Device) Configure(cfgs ...Config) error {
	c := Config{}
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address != 0 {
		d.Address = c.Address
	}
	if c.IntegrationTime == 0 {
		c.IntegrationTime = 25 * time.Millisecond
	}
	g, ok := gains[c.Gain]
	if !ok {
		return ErrConfig
	}
	it, ok := integrationTimes[c.IntegrationTime]
	if !ok {
		return ErrConfig
	}
	d.cfg = c
	d.res = it.res * g.mul
	return d.writeConfig(true)
}

// Trigger powers the sensor on. A valid count is available after
// TriggerHint.
func (d *Device) Trigger() error {
	if d.res == 0 {
		if err := d.Configure(); err != nil {
			return err
		}
	}
	return d.writeConfig(false)
}

// TriggerHint returns the worst-case delay until the ALS register is valid:
// startup settling plus one integration period.
func (d *Device) TriggerHint() time.Duration {
	it := d.cfg.IntegrationTime
	if it == 0 {
		it = 25 * time.Millisecond
	}
	return startupDelay + it
}

// Collect reads the ALS register and shuts the sensor back down. Called
// before TriggerHint has elapsed it returns whatever the sensor integrated
// so far; scheduling the wait is the caller's job.
func (d *Device) Collect() (float32, error) {
	buf := d.buf[:2]
	if err := d.bus.Tx(d.Address, []byte{regALS}, buf); err != nil {
		return 0, err
	}
	raw := uint16(buf[0]) | uint16(buf[1])<<8 // output register is little-endian
	_ = d.writeConfig(true)
	return float32(raw) * d.res, nil
}

func (d *Device) writeConfig(shutdown bool) error {
	g := gains[d.cfg.Gain]
	it := integrationTimes[d.cfg.IntegrationTime]
	v := g.bits<<11 | it.bits<<6
	if shutdown {
		v |= shutdownBit
	}
	d.buf[0] = regConfig
	d.buf[1] = byte(v) // command registers are little-endian
	d.buf[2] = byte(v >> 8)
	return d.bus.Tx(d.Address, d.buf[:3], nil)
}
