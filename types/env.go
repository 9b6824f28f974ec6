package types

// ------------------------
// Environmental readings
// ------------------------

// Readings travel as fixed-point milli-units so the node never needs
// floating point on the hot path. Ambient light is the one float quantity:
// the sensor resolution is fractional lux per count.

type TemperatureValue struct {
	// Thousandths of °C (e.g. 25338 => 25.338°C).
	MilliC int32 `json:"milli_c"`
}

// Celsius returns the value in °C.
func (v TemperatureValue) Celsius() float64 { return float64(v.MilliC) / 1000 }

type HumidityValue struct {
	// Thousandths of %RH (0..100000 for 0..100.000%).
	MilliPct int32 `json:"milli_pct"`
}

// Percent returns the value in %RH.
func (v HumidityValue) Percent() float64 { return float64(v.MilliPct) / 1000 }

type AmbientLightValue struct {
	Lux float32 `json:"lux"`
}
