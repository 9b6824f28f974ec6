// Package shtc3 provides a driver for the Sensirion SHTC3 temperature and
// humidity sensor. It exposes a two-phase measurement API:
//
//	d.Trigger()              // wake the sensor and start a conversion (fast)
//	err := d.Collect(&s)     // fetch when ready; returns ErrNotReady while busy
//
// For convenience, d.Read() performs trigger + bounded polling until ready.
//
// Measurements run with clock stretching disabled, so the sensor NACKs the
// readout while a conversion is in flight; Collect reports that as
// ErrNotReady rather than a bus error.
//
// The driver avoids floating-point entirely; conversions return thousandths
// of units (milli-°C and milli-%RH).
package shtc3

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x70

// Command words (big-endian on the wire, per datasheet).
var (
	cmdWakeup        = []byte{0x35, 0x17}
	cmdSleep         = []byte{0xB0, 0x98}
	cmdMeasureNormal = []byte{0x78, 0x66} // T first, clock stretching disabled
	cmdMeasureLowPwr = []byte{0x60, 0x9C}
	cmdReadID        = []byte{0xEF, 0xC8}
)

// Worst-case conversion times per the datasheet (14.4 ms / 0.94 ms),
// rounded up to whole timer ticks.
const (
	MaxMeasurementDuration         = 15 * time.Millisecond
	MaxMeasurementDurationLowPower = 1 * time.Millisecond
)

// Errors returned by the driver.
var (
	ErrTimeout  = errors.New("shtc3: timeout")
	ErrNotReady = errors.New("shtc3: not ready")
	ErrChecksum = errors.New("shtc3: checksum mismatch")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x70 if zero.
	Address uint16
	// LowPower selects the low-power measurement command (faster, noisier).
	LowPower bool
	// PollInterval is used by Read() between Collect() attempts. Default 5 ms.
	PollInterval time.Duration
	// CollectTimeout bounds the total wait in Read(). Default 100 ms.
	CollectTimeout time.Duration
}

// Device wraps an I2C connection to an SHTC3 device.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg Config
	buf [6]byte // reuse buffer to avoid allocations
}

// New creates a new SHTC3 connection. The I2C bus must already be configured.
// This function only creates the Device object; it does not touch the device.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Configure applies optional config. May be called with no cfg.
func (d *Device) Configure(cfgs ...Config) {
	c := Config{}
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address != 0 {
		d.Address = c.Address
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Millisecond
	}
	if c.CollectTimeout <= 0 {
		c.CollectTimeout = 100 * time.Millisecond
	}
	d.cfg = c
}

// DeviceID reads the identification register (useful as a presence check).
// The sensor must be awake.
func (d *Device) DeviceID() (uint16, error) {
	if err := d.bus.Tx(d.Address, cmdWakeup, nil); err != nil {
		return 0, err
	}
	time.Sleep(time.Millisecond)
	buf := d.buf[:3]
	if err := d.bus.Tx(d.Address, cmdReadID, buf); err != nil {
		return 0, err
	}
	if crc8(buf[:2]) != buf[2] {
		return 0, ErrChecksum
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// Trigger wakes the sensor and starts a conversion. It is two quick register
// writes with no blocking; the conversion completes within
// MaxMeasurementDuration (low power: MaxMeasurementDurationLowPower).
func (d *Device) Trigger() error {
	if d.cfg.PollInterval == 0 {
		d.Configure()
	}
	if err := d.bus.Tx(d.Address, cmdWakeup, nil); err != nil {
		return err
	}
	cmd := cmdMeasureNormal
	if d.cfg.LowPower {
		cmd = cmdMeasureLowPwr
	}
	return d.bus.Tx(d.Address, cmd, nil)
}

// TriggerHint returns the worst-case conversion time for the configured mode.
func (d *Device) TriggerHint() time.Duration {
	if d.cfg.LowPower {
		return MaxMeasurementDurationLowPower
	}
	return MaxMeasurementDuration
}

// Collect attempts to read the conversion result into the provided sample and
// puts the sensor back to sleep on success. While the conversion is still
// running the sensor does not ACK the read, reported as ErrNotReady.
func (d *Device) Collect(out *Sample) error {
	data := d.buf[:6]
	if err := d.bus.Tx(d.Address, nil, data); err != nil {
		return ErrNotReady
	}
	if crc8(data[0:2]) != data[2] || crc8(data[3:5]) != data[5] {
		return ErrChecksum
	}
	if out != nil {
		out.RawTemp = uint16(data[0])<<8 | uint16(data[1])
		out.RawHumidity = uint16(data[3])<<8 | uint16(data[4])
	}
	_ = d.bus.Tx(d.Address, cmdSleep, nil)
	return nil
}

// Read performs a full measurement cycle: Trigger followed by bounded
// polling until Collect succeeds or the timeout elapses.
func (d *Device) Read(out *Sample) error {
	if err := d.Trigger(); err != nil {
		return err
	}
	deadline := time.Now().Add(d.cfg.CollectTimeout)
	for {
		err := d.Collect(out)
		switch err {
		case nil:
			return nil
		case ErrNotReady:
			if time.Now().After(deadline) {
				return ErrTimeout
			}
			time.Sleep(d.cfg.PollInterval)
		default:
			return err
		}
	}
}

// Sample holds raw readings.
type Sample struct {
	RawTemp     uint16
	RawHumidity uint16
}

// MilliCelsius returns thousandths of °C (-45000 + 175000 * raw / 2^16).
func (s Sample) MilliCelsius() int32 {
	return int32(int64(s.RawTemp)*175000/65536) - 45000
}

// MilliRelHumidity returns thousandths of %RH (100000 * raw / 2^16).
func (s Sample) MilliRelHumidity() int32 {
	return int32(int64(s.RawHumidity) * 100000 / 65536)
}

// crc8 implements the sensor's CRC (poly 0x31, init 0xFF) over a 2-byte word.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
