package gateway

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"sync"
	"time"

	"sensilo-go/beacon"
	"sensilo-go/bus"
	"sensilo-go/errcode"
	"sensilo-go/hci"
	"sensilo-go/types"
)

// Capture is one captured packet as delivered by the capture source,
// transport header still attached.
type Capture struct {
	Data           []byte
	OriginalLength int // length reported on the wire, may exceed len(Data)
	TS             time.Time
}

var measurementTopic = bus.T("gateway", "measurement")

type PipelineConfig struct {
	Devices map[types.Address]Device
	// CaptureHeaderLen is the per-packet transport header skipped before HCI
	// parsing. Default 4.
	CaptureHeaderLen int
	DedupWindow      int
	// SubmitMode is SubmitInline or SubmitQueued.
	SubmitMode    string
	SubmitQueue   int
	SubmitTimeout time.Duration
}

// Pipeline processes captured frames one at a time: validate, parse, filter
// to allowlisted devices, decode the beacon payload, deduplicate and forward
// to the sink. A bad frame is dropped and logged; the loop never stops on
// one.
type Pipeline struct {
	cfg     PipelineConfig
	sink    Sink
	log     *slog.Logger
	metrics *Metrics
	dedup   *Dedup
	conn    *bus.Connection
}

func NewPipeline(cfg PipelineConfig, sink Sink, log *slog.Logger, metrics *Metrics, b *bus.Bus) *Pipeline {
	if cfg.CaptureHeaderLen == 0 {
		cfg.CaptureHeaderLen = 4
	}
	if cfg.SubmitMode == "" {
		cfg.SubmitMode = SubmitInline
	}
	if cfg.SubmitQueue <= 0 {
		cfg.SubmitQueue = 64
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 5 * time.Second
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if b == nil {
		b = bus.NewBus(cfg.SubmitQueue)
	}
	return &Pipeline{
		cfg:     cfg,
		sink:    sink,
		log:     log,
		metrics: metrics,
		dedup:   NewDedup(cfg.DedupWindow),
		conn:    b.NewConnection("pipeline"),
	}
}

// Run consumes captures until the channel closes or the context is
// cancelled. In queued mode a submitter goroutine decouples sink submission
// from frame intake; any leftover queue is drained before Run returns.
func (p *Pipeline) Run(ctx context.Context, captures <-chan Capture) error {
	var wg sync.WaitGroup
	if p.cfg.SubmitMode == SubmitQueued {
		sub := p.conn.Subscribe(measurementTopic)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.submitLoop(ctx, sub)
		}()
	}
	defer func() {
		p.conn.Disconnect() // closes the subscription, ends the submitter
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-captures:
			if !ok {
				return nil
			}
			p.handle(ctx, c)
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, c Capture) {
	if c.OriginalLength != len(c.Data) {
		p.drop(errcode.InvalidLength, slog.LevelDebug, "truncated capture",
			slog.Int("wire_len", c.OriginalLength), slog.Int("captured_len", len(c.Data)))
		return
	}
	if len(c.Data) < p.cfg.CaptureHeaderLen {
		p.drop(errcode.InvalidLength, slog.LevelDebug, "capture shorter than transport header")
		return
	}
	reports, err := hci.ParseAdvertisingReports(c.Data[p.cfg.CaptureHeaderLen:])
	if err != nil {
		code := errcode.Of(err)
		lvl := slog.LevelDebug
		if code == errcode.ParseFailed {
			lvl = slog.LevelWarn
		}
		p.drop(code, lvl, "unusable packet", slog.Any("err", err))
		return
	}
	for _, rep := range reports {
		m, err := p.buildMeasurement(rep, c.TS)
		if err != nil {
			code := errcode.Of(err)
			lvl := slog.LevelDebug
			switch code {
			case errcode.MissingName, errcode.MissingCounter:
				lvl = slog.LevelWarn // build failure, not routine noise
			}
			p.drop(code, lvl, "report dropped",
				slog.String("address", rep.Address.String()), slog.Any("err", err))
			continue
		}
		if !p.dedup.CheckAndRecord(m.Address, m.Counter) {
			p.drop(errcode.Duplicate, slog.LevelDebug, "burst duplicate",
				slog.String("device", m.Name), slog.Int("counter", int(m.Counter)))
			continue
		}
		p.forward(ctx, m)
	}
}

// buildMeasurement turns one advertising report into a Measurement.
// Readings are individually optional; a missing local name or an
// undecodable counter fails the build.
func (p *Pipeline) buildMeasurement(rep hci.Report, ts time.Time) (*Measurement, error) {
	const op = "gateway.buildMeasurement"
	dev, ok := p.cfg.Devices[rep.Address]
	if !ok {
		return nil, errcode.UnknownAddress
	}

	var localName string
	var mfg []byte
	sawForeignVendor := false
	for _, e := range rep.Elements {
		switch e.Type {
		case beacon.ADTypeCompleteLocalName:
			localName = string(e.Value)
		case beacon.ADTypeManufacturerData:
			if len(e.Value) < 2 {
				continue
			}
			if binary.LittleEndian.Uint16(e.Value) != beacon.CompanyID {
				sawForeignVendor = true
				continue
			}
			mfg = e.Value[2:]
		}
	}
	if localName == "" {
		return nil, &errcode.E{C: errcode.MissingName, Op: op, Msg: "no complete local name element"}
	}
	if mfg == nil {
		if sawForeignVendor {
			return nil, errcode.WrongVendor
		}
		return nil, &errcode.E{C: errcode.MissingCounter, Op: op, Msg: "no manufacturer data element"}
	}

	payload, err := beacon.Decode(mfg)
	if err != nil {
		if errcode.Of(err) == errcode.ShortPayload {
			return nil, &errcode.E{C: errcode.MissingCounter, Op: op, Err: err}
		}
		// Partial decode: the counter and any earlier readings are intact.
		p.log.Warn("partial payload decode",
			slog.String("device", dev.Name), slog.Any("err", err))
	}

	if ts.IsZero() {
		ts = time.Now()
	}
	return &Measurement{
		Name:         dev.Name,
		Location:     dev.Location,
		Address:      rep.Address,
		RSSI:         rep.RSSI,
		LocalName:    localName,
		Counter:      payload.Counter,
		Temperature:  payload.Temperature,
		Humidity:     payload.Humidity,
		AmbientLight: payload.AmbientLight,
		TS:           ts,
	}, nil
}

func (p *Pipeline) forward(ctx context.Context, m *Measurement) {
	p.metrics.Frames.WithLabelValues(string(errcode.OK)).Inc()
	p.metrics.Forwarded.Inc()
	p.metrics.RSSI.WithLabelValues(m.Name).Set(float64(m.RSSI))
	p.conn.Publish(p.conn.NewMessage(bus.T("gateway", "last", m.Name), m, true))

	if p.cfg.SubmitMode == SubmitQueued {
		p.conn.Publish(p.conn.NewMessage(measurementTopic, m, false))
		return
	}
	p.submit(ctx, m)
}

func (p *Pipeline) submit(ctx context.Context, m *Measurement) {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.SubmitTimeout)
	defer cancel()
	if err := p.sink.Submit(sctx, m); err != nil {
		p.metrics.SinkError.WithLabelValues(string(errcode.Of(err))).Inc()
		p.log.Error("sink submission failed",
			slog.String("device", m.Name), slog.Int("counter", int(m.Counter)), slog.Any("err", err))
		return
	}
	p.log.Debug("measurement forwarded",
		slog.String("device", m.Name), slog.Int("counter", int(m.Counter)))
}

// submitLoop drains queued measurements. The subscription channel closing
// is the exit condition, so messages still buffered when the capture source
// ends are submitted rather than lost.
func (p *Pipeline) submitLoop(ctx context.Context, sub *bus.Subscription) {
	for msg := range sub.Channel() {
		m, ok := msg.Payload.(*Measurement)
		if !ok {
			continue
		}
		p.submit(ctx, m)
	}
}

func (p *Pipeline) drop(code errcode.Code, lvl slog.Level, msg string, attrs ...slog.Attr) {
	p.metrics.Frames.WithLabelValues(string(code)).Inc()
	p.log.LogAttrs(context.Background(), lvl, msg,
		append(attrs, slog.String("code", string(code)))...)
}
