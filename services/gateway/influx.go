package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"sensilo-go/errcode"
	"sensilo-go/types"
)

// InfluxSink submits measurements to an InfluxDB 1.x write endpoint as line
// protocol. Each measurement becomes one row per reading plus rows for rssi
// and counter, all sharing the address and local_name tags.
type InfluxSink struct {
	cfg    InfluxConfig
	client *http.Client
}

func NewInfluxSink(cfg InfluxConfig, client *http.Client) *InfluxSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &InfluxSink{cfg: cfg, client: client}
}

func (s *InfluxSink) Submit(ctx context.Context, m *Measurement) error {
	const op = "influx.Submit"
	body := LineProtocol(m)
	u := strings.TrimRight(s.cfg.URL, "/") + "/write?db=" + url.QueryEscape(s.cfg.Database)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(body))
	if err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Err: err}
	}
	if s.cfg.Username != "" {
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &errcode.E{C: errcode.Timeout, Op: op, Msg: "write request failed", Err: err}
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		// Database missing. Permanent until someone creates it.
		return &errcode.E{C: errcode.NotFound, Op: op, Msg: "database " + s.cfg.Database + " not found"}
	case http.StatusBadRequest:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &errcode.E{C: errcode.SinkRejected, Op: op, Msg: strings.TrimSpace(string(detail))}
	default:
		return &errcode.E{C: errcode.Error, Op: op, Msg: "unexpected status " + resp.Status}
	}
}

// LineProtocol renders a measurement as InfluxDB line protocol, newline
// terminated. Fixed-point readings stay integral (milli-units) so nothing is
// lost to float formatting.
func LineProtocol(m *Measurement) string {
	var b strings.Builder
	tags := tagSet(m)
	row := func(name, value string) {
		b.WriteString(name)
		b.WriteString(tags)
		b.WriteString(" value=")
		b.WriteString(value)
		b.WriteByte('\n')
	}
	row("rssi", strconv.Itoa(int(m.RSSI))+"i")
	row("counter", strconv.Itoa(int(m.Counter))+"i")
	if m.Temperature != nil {
		row(string(types.KindTemperature), strconv.Itoa(int(m.Temperature.MilliC))+"i")
	}
	if m.Humidity != nil {
		row(string(types.KindHumidity), strconv.Itoa(int(m.Humidity.MilliPct))+"i")
	}
	if m.AmbientLight != nil {
		row(string(types.KindAmbientLight), strconv.FormatFloat(float64(m.AmbientLight.Lux), 'f', 2, 32))
	}
	return b.String()
}

func tagSet(m *Measurement) string {
	var b strings.Builder
	tag := func(k, v string) {
		if v == "" {
			return
		}
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(escapeTag(v))
	}
	tag("address", m.Address.String())
	tag("local_name", m.LocalName)
	tag("device", m.Name)
	tag("location", m.Location)
	return b.String()
}

// escapeTag escapes the characters line protocol reserves in tag values.
func escapeTag(s string) string {
	r := strings.NewReplacer(",", `\,`, "=", `\=`, " ", `\ `)
	return r.Replace(s)
}
