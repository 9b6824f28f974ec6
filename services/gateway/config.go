package gateway

import (
	"bytes"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"sensilo-go/errcode"
	"sensilo-go/types"
)

// Duration wraps time.Duration so YAML can carry "250ms" style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "bad duration " + s, Err: err}
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Submission modes, see SubmitConfig.
const (
	SubmitInline = "inline" // sink submission in line with frame intake
	SubmitQueued = "queued" // decoupled via a bounded in-process queue
)

// Device is one allowlisted beacon node.
type Device struct {
	Name     string `yaml:"name"`
	HexAddr  string `yaml:"hex_addr"` // 12 hex characters, no separators
	Location string `yaml:"location,omitempty"`

	Address types.Address `yaml:"-"` // parsed from HexAddr
}

type CaptureConfig struct {
	// File is a pcap capture of the HCI stream.
	File string `yaml:"file"`
	// HeaderLen is the per-packet transport header to skip before the HCI
	// packet itself. Default 4.
	HeaderLen int `yaml:"header_len"`
}

type InfluxConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // host:port
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

type SinkConfig struct {
	// Type selects the sink: "influxdb", "mqtt" or "stdout".
	Type     string       `yaml:"type"`
	Timeout  Duration     `yaml:"timeout"`
	InfluxDB InfluxConfig `yaml:"influxdb"`
	MQTT     MQTTConfig   `yaml:"mqtt"`
}

type SubmitConfig struct {
	// Mode is "inline" (reference behaviour, a slow sink delays intake) or
	// "queued" (bounded queue between pipeline and sink).
	Mode  string `yaml:"mode"`
	Queue int    `yaml:"queue"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
	Path   string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type Config struct {
	Devices []Device      `yaml:"devices"`
	Capture CaptureConfig `yaml:"capture"`
	Sink    SinkConfig    `yaml:"sink"`
	Submit  SubmitConfig  `yaml:"submit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoadConfig reads, parses and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "read " + path, Err: err}
	}
	return ParseConfig(raw)
}

// ParseConfig parses and validates a YAML configuration document. Unknown
// fields are rejected so typos do not silently disable features.
func ParseConfig(raw []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "parse yaml", Err: err}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Capture.HeaderLen == 0 {
		c.Capture.HeaderLen = 4
	}
	if c.Sink.Type == "" {
		c.Sink.Type = "stdout"
	}
	if c.Sink.Timeout <= 0 {
		c.Sink.Timeout = Duration(5 * time.Second)
	}
	if c.Submit.Mode == "" {
		c.Submit.Mode = SubmitInline
	}
	if c.Submit.Queue <= 0 {
		c.Submit.Queue = 64
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Sink.MQTT.TopicPrefix == "" {
		c.Sink.MQTT.TopicPrefix = "sensilo"
	}
	if c.Sink.MQTT.ClientID == "" {
		c.Sink.MQTT.ClientID = "sensilo-gateway"
	}
}

func (c *Config) validate() error {
	bad := func(msg string) error {
		return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: msg}
	}
	if len(c.Devices) == 0 {
		return bad("at least one device is required")
	}
	seen := make(map[types.Address]string, len(c.Devices))
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Name == "" {
			return bad("device " + d.HexAddr + " has no name")
		}
		addr, err := types.ParseAddress(d.HexAddr)
		if err != nil {
			return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "device " + d.Name, Err: err}
		}
		if prev, dup := seen[addr]; dup {
			return bad("devices " + prev + " and " + d.Name + " share address " + d.HexAddr)
		}
		seen[addr] = d.Name
		d.Address = addr
	}
	switch c.Sink.Type {
	case "stdout":
	case "influxdb":
		if c.Sink.InfluxDB.URL == "" || c.Sink.InfluxDB.Database == "" {
			return bad("influxdb sink needs url and database")
		}
	case "mqtt":
		if c.Sink.MQTT.Broker == "" {
			return bad("mqtt sink needs a broker address")
		}
	default:
		return bad("unknown sink type " + c.Sink.Type)
	}
	switch c.Submit.Mode {
	case SubmitInline, SubmitQueued:
	default:
		return bad("unknown submit mode " + c.Submit.Mode)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return bad("unknown log level " + c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return bad("unknown log format " + c.Logging.Format)
	}
	return nil
}

// Allowlist indexes the configured devices by canonical address.
func (c *Config) Allowlist() map[types.Address]Device {
	m := make(map[types.Address]Device, len(c.Devices))
	for _, d := range c.Devices {
		m[d.Address] = d
	}
	return m
}
