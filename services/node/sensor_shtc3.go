package node

import (
	"context"
	"time"

	"sensilo-go/beacon"
	"sensilo-go/drivers/shtc3"
	"sensilo-go/types"
	"sensilo-go/x/mathx"

	"tinygo.org/x/drivers"
)

// SHTC3Sensor adapts the split-phase SHTC3 driver to the acquisition cycle.
// It supplies the temperature and humidity readings and is the node's
// primary (non-optional) sensor.
type SHTC3Sensor struct {
	id  string
	dev shtc3.Device
}

func NewSHTC3Sensor(id string, bus drivers.I2C) *SHTC3Sensor {
	dev := shtc3.New(bus)
	dev.Configure()
	return &SHTC3Sensor{id: id, dev: dev}
}

func (s *SHTC3Sensor) ID() string { return s.id }

func (s *SHTC3Sensor) Trigger(ctx context.Context) (time.Duration, error) {
	if err := s.dev.Trigger(); err != nil {
		return 0, err
	}
	return s.dev.TriggerHint(), nil
}

func (s *SHTC3Sensor) Collect(ctx context.Context, p *beacon.Payload) error {
	var smp shtc3.Sample
	if err := s.dev.Collect(&smp); err != nil {
		if err == shtc3.ErrNotReady {
			return ErrNotReady
		}
		return err
	}
	p.Temperature = &types.TemperatureValue{
		MilliC: mathx.Clamp(smp.MilliCelsius(), -45000, 130000),
	}
	p.Humidity = &types.HumidityValue{
		MilliPct: mathx.Clamp(smp.MilliRelHumidity(), 0, 100000),
	}
	return nil
}
