package gateway

import (
	"context"
	"encoding/json"
	"io"
)

// Sink accepts finished measurements. Implementations own serialization,
// authentication and transport. A missing backing store must surface as
// errcode.NotFound so the caller can tell permanent from transient failure.
type Sink interface {
	Submit(ctx context.Context, m *Measurement) error
}

// StdoutSink writes one JSON document per measurement, mainly for bring-up.
type StdoutSink struct {
	W io.Writer
}

func (s *StdoutSink) Submit(_ context.Context, m *Measurement) error {
	enc := json.NewEncoder(s.W)
	return enc.Encode(m)
}
