package types

// Kind names a reading category. The names double as sink measurement names.
type Kind string

const (
	KindTemperature  Kind = "temperature"
	KindHumidity     Kind = "humidity"
	KindAmbientLight Kind = "ambient_light"
)
