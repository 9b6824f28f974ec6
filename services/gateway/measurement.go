// Package gateway contains the capture-side pipeline: decode captured
// advertisement frames, filter to configured devices, suppress burst
// duplicates and forward measurements to a telemetry sink.
package gateway

import (
	"time"

	"sensilo-go/types"
)

// Measurement is one validated, deduplicated sensor report as handed to a
// sink. Name and Location come from the device configuration, everything
// else from the air. Immutable once built.
type Measurement struct {
	Name      string        `json:"name"`
	Location  string        `json:"location,omitempty"`
	Address   types.Address `json:"-"`
	RSSI      int8          `json:"rssi"`
	LocalName string        `json:"local_name"`
	Counter   uint16        `json:"counter"`

	Temperature  *types.TemperatureValue  `json:"temperature,omitempty"`
	Humidity     *types.HumidityValue     `json:"humidity,omitempty"`
	AmbientLight *types.AmbientLightValue `json:"ambient_light,omitempty"`

	TS time.Time `json:"ts"`
}
