package node

import (
	"context"
	"time"

	"sensilo-go/beacon"
	"sensilo-go/types"
)

// BurstConfig centralises burst timings and limits.
type BurstConfig struct {
	// Count of transmissions per frame. Default 3.
	Count int
	// Interval between transmissions. Default 20ms.
	Interval time.Duration
	// EventQueueSize bounds the Events channel. Default 16.
	EventQueueSize int
}

// Burst retransmits each submitted advertisement Count times, Interval
// apart, anchored to the instant the burst started. A frame submitted
// mid-burst pre-empts the remaining retransmissions of the old one
// (last-writer-wins, no queueing).
type Burst struct {
	cfg   BurstConfig
	radio Radio

	frames chan *beacon.Advertisement
	events chan TxEvent
	timer  *time.Timer

	// Current burst. Owned by the run loop.
	data    []byte
	addr    types.Address
	counter uint16
	attempt int
	anchor  time.Time
	active  bool
}

func NewBurst(cfg BurstConfig, radio Radio) *Burst {
	if cfg.Count <= 0 {
		cfg.Count = 3
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 20 * time.Millisecond
	}
	if cfg.EventQueueSize <= 0 {
		cfg.EventQueueSize = 16
	}
	return &Burst{
		cfg:    cfg,
		radio:  radio,
		frames: make(chan *beacon.Advertisement, 1),
		events: make(chan TxEvent, cfg.EventQueueSize),
		timer:  time.NewTimer(time.Hour),
	}
}

// Submit hands over a new frame. It never blocks: a pending, not yet started
// frame is replaced by the newer one.
func (b *Burst) Submit(adv *beacon.Advertisement) bool {
	for {
		select {
		case b.frames <- adv:
			return true
		default:
			select {
			case <-b.frames:
			default:
			}
		}
	}
}

// Events reports every transmission attempt, including skipped ones.
// The channel is bounded and drop-oldest; consuming it is optional.
func (b *Burst) Events() <-chan TxEvent { return b.events }

func (b *Burst) Start(ctx context.Context) {
	if !b.timer.Stop() {
		drainTimer(b.timer)
	}
	go func() {
		for {
			if b.active {
				// Next transmission is anchored to the burst start, not to
				// when the previous one completed.
				due := b.anchor.Add(time.Duration(b.attempt) * b.cfg.Interval)
				resetTimer(b.timer, time.Until(due))
			} else {
				resetTimer(b.timer, time.Hour)
			}
			select {
			case <-ctx.Done():
				return
			case adv := <-b.frames:
				data, err := adv.Bytes()
				if err != nil {
					b.emit(TxEvent{Counter: adv.Payload.Counter, Err: err})
					b.active = false
					continue
				}
				b.data = data
				b.addr = adv.Address
				b.counter = adv.Payload.Counter
				b.attempt = 0
				b.anchor = time.Now()
				b.transmit()
			case <-b.timer.C:
				if b.active {
					b.transmit()
				}
			}
		}
	}()
}

// transmit sends one advertisement. A radio failure skips exactly this
// transmission; the burst schedule continues and no attempt is added back.
func (b *Burst) transmit() {
	err := b.radio.Broadcast(b.addr, b.data)
	b.emit(TxEvent{Counter: b.counter, Attempt: b.attempt, Err: err})
	b.attempt++
	b.active = b.attempt < b.cfg.Count
}

func (b *Burst) emit(ev TxEvent) {
	select {
	case b.events <- ev:
	default:
		select {
		case <-b.events:
		default:
		}
		b.events <- ev
	}
}
