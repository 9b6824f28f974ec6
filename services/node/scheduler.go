package node

import (
	"context"
	"time"

	"sensilo-go/beacon"
	"sensilo-go/types"
	"sensilo-go/x/mathx"
)

// SchedulerConfig centralises timings and limits.
type SchedulerConfig struct {
	// Interval between cycle starts. Default 3s.
	Interval time.Duration
	// Address and LocalName identify this node in the broadcast frame.
	Address   types.Address
	LocalName string
	// Sensors sampled each cycle.
	Sensors []SensorSlot

	TriggerTimeout time.Duration
	CollectTimeout time.Duration
	// StartDelay before the first cycle. Default 200ms.
	StartDelay time.Duration
	// CycleQueueSize bounds the observability channel. Default 8.
	CycleQueueSize int
}

type phase uint8

const (
	phaseIdle phase = iota
	phaseAcquiring
)

// Scheduler drives the repeating acquisition cycle. Cycle starts are
// anchored to absolute instants: cycle k+1 always starts at
// scheduledStart(k) + Interval, regardless of how long acquisition took or
// how late the timer fired, so jitter never accumulates.
type Scheduler struct {
	cfg  SchedulerConfig
	out  FrameSink
	name string

	cycles chan Cycle
	timer  *time.Timer

	counter        uint16
	phase          phase
	scheduledStart time.Time
	skip           []bool // per-slot: trigger failed, reading absent this cycle
}

func NewScheduler(cfg SchedulerConfig, out FrameSink) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 3000 * time.Millisecond
	}
	if cfg.TriggerTimeout <= 0 {
		cfg.TriggerTimeout = 100 * time.Millisecond
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 250 * time.Millisecond
	}
	if cfg.StartDelay <= 0 {
		cfg.StartDelay = 200 * time.Millisecond
	}
	if cfg.CycleQueueSize <= 0 {
		cfg.CycleQueueSize = 8
	}
	name := cfg.LocalName
	if name == "" {
		name = beacon.LocalName
	}
	return &Scheduler{
		cfg:    cfg,
		out:    out,
		name:   name,
		cycles: make(chan Cycle, cfg.CycleQueueSize),
		timer:  time.NewTimer(time.Hour),
		skip:   make([]bool, len(cfg.Sensors)),
	}
}

// Cycles reports every finished or abandoned cycle. The channel is bounded
// and drop-oldest; consuming it is optional.
func (s *Scheduler) Cycles() <-chan Cycle { return s.cycles }

func (s *Scheduler) Start(ctx context.Context) {
	if !s.timer.Stop() {
		drainTimer(s.timer)
	}
	go func() {
		s.scheduledStart = time.Now().Add(s.cfg.StartDelay)
		s.phase = phaseIdle
		resetTimer(s.timer, time.Until(s.scheduledStart))
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.timer.C:
				switch s.phase {
				case phaseIdle:
					s.beginCycle(ctx)
				case phaseAcquiring:
					s.finishCycle(ctx)
				}
			}
		}
	}()
}

// beginCycle triggers every sensor and arms one unified wakeup at
// scheduledStart + max(latencies). The scheduled instant, not the actual
// firing time, is the cycle's start.
func (s *Scheduler) beginCycle(ctx context.Context) {
	start := s.scheduledStart

	var maxLatency time.Duration
	for i, slot := range s.cfg.Sensors {
		tctx, cancel := context.WithTimeout(ctx, s.cfg.TriggerTimeout)
		after, err := slot.Sensor.Trigger(tctx)
		cancel()
		if err != nil {
			if !slot.Optional {
				s.emit(Cycle{ScheduledStart: start, Counter: s.counter, Err: err})
				s.scheduleNext(start)
				return
			}
			s.skip[i] = true
			continue
		}
		s.skip[i] = false
		maxLatency = mathx.Max(maxLatency, after)
	}

	s.phase = phaseAcquiring
	resetTimer(s.timer, time.Until(start.Add(maxLatency)))
}

// finishCycle collects all results, hands the frame to the burst controller
// and schedules the next cycle. Every exit path schedules from
// scheduledStart + Interval.
func (s *Scheduler) finishCycle(ctx context.Context) {
	start := s.scheduledStart
	payload := beacon.Payload{Counter: s.counter}

	var cycleErr error
	for i, slot := range s.cfg.Sensors {
		if s.skip[i] {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, s.cfg.CollectTimeout)
		err := slot.Sensor.Collect(cctx, &payload)
		cancel()
		if err != nil && !slot.Optional {
			cycleErr = err
			break
		}
	}

	if cycleErr == nil {
		adv := &beacon.Advertisement{
			Address:   s.cfg.Address,
			LocalName: s.name,
			Payload:   payload,
		}
		// Validate before handoff so a malformed frame degrades to a skipped
		// cycle instead of reaching the radio.
		if _, err := adv.Bytes(); err != nil {
			cycleErr = err
		} else {
			s.out.Submit(adv)
		}
	}

	s.emit(Cycle{ScheduledStart: start, Counter: s.counter, Payload: payload, Err: cycleErr})
	if cycleErr == nil {
		s.counter++ // wraps at 65536
	}
	s.scheduleNext(start)
}

func (s *Scheduler) scheduleNext(start time.Time) {
	s.phase = phaseIdle
	s.scheduledStart = start.Add(s.cfg.Interval)
	resetTimer(s.timer, time.Until(s.scheduledStart))
}

func (s *Scheduler) emit(c Cycle) {
	select {
	case s.cycles <- c:
	default:
		select {
		case <-s.cycles:
		default:
		}
		s.cycles <- c
	}
}

// Timer discipline shared by both loops in this package: stop, drain the
// fired-but-unread edge, then re-arm. Waiting is always "fire at an absolute
// instant", so a negative remainder means fire now.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		drainTimer(t)
	}
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

func drainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
