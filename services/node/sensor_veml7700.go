package node

import (
	"context"
	"time"

	"sensilo-go/beacon"
	"sensilo-go/drivers/veml7700"
	"sensilo-go/types"

	"tinygo.org/x/drivers"
)

// VEML7700Sensor adapts the ambient light driver to the acquisition cycle.
// Typically configured as an optional slot: a failed light reading leaves
// the field absent instead of aborting the cycle.
type VEML7700Sensor struct {
	id  string
	dev veml7700.Device
	err error // Configure failure, reported on Trigger
}

func NewVEML7700Sensor(id string, bus drivers.I2C) *VEML7700Sensor {
	dev := veml7700.New(bus)
	err := dev.Configure(veml7700.Config{
		Gain:            veml7700.Gain1,
		IntegrationTime: 25 * time.Millisecond,
	})
	return &VEML7700Sensor{id: id, dev: dev, err: err}
}

func (s *VEML7700Sensor) ID() string { return s.id }

func (s *VEML7700Sensor) Trigger(ctx context.Context) (time.Duration, error) {
	if s.err != nil {
		return 0, s.err
	}
	if err := s.dev.Trigger(); err != nil {
		return 0, err
	}
	return s.dev.TriggerHint(), nil
}

func (s *VEML7700Sensor) Collect(ctx context.Context, p *beacon.Payload) error {
	lux, err := s.dev.Collect()
	if err != nil {
		return err
	}
	p.AmbientLight = &types.AmbientLightValue{Lux: lux}
	return nil
}
