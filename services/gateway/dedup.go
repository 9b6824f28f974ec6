package gateway

import (
	"sensilo-go/types"
)

// DefaultDedupWindow is how many recent counters are remembered per device.
const DefaultDedupWindow = 5

// Dedup suppresses burst retransmissions: each frame is broadcast several
// times and only the first sighting per (address, counter) may pass.
//
// Counters wrap at 65536 and bursts can arrive out of order, so suppression
// is exact-match only; no ordering comparison is ever correct here. Entries
// are created lazily per address and live for the process lifetime; only
// counter slots within an address are evicted.
//
// Not safe for concurrent use. The pipeline owns it exclusively.
type Dedup struct {
	window int
	seen   map[types.Address][]uint16 // most recently used last
}

func NewDedup(window int) *Dedup {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Dedup{window: window, seen: make(map[types.Address][]uint16)}
}

// CheckAndRecord reports whether the counter is new for this address and, if
// so, records it as most recently seen, evicting the least recently seen
// slot when the window is full. A duplicate leaves the recency order
// untouched.
func (d *Dedup) CheckAndRecord(addr types.Address, counter uint16) bool {
	recent := d.seen[addr]
	for _, c := range recent {
		if c == counter {
			return false
		}
	}
	if len(recent) >= d.window {
		recent = recent[1:]
	}
	d.seen[addr] = append(recent, counter)
	return true
}
