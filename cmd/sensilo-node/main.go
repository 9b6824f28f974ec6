// cmd/sensilo-node/main.go
//
// Host-side demo of the node firmware loop: simulated sensors feed the
// measurement scheduler, finished frames go through the burst controller to
// a stub radio that hex-dumps what would go on the air.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"sensilo-go/beacon"
	"sensilo-go/services/node"
	"sensilo-go/types"
)

// ---------- Configuration ----------

const (
	cycleInterval = 3 * time.Second
	runFor        = 15 * time.Second
)

var nodeAddr = types.Address{0xca, 0xfe, 0x00, 0x00, 0x00, 0x01}

// ---------- Simulated sensors ----------

// simClimate pretends to be the SHTC3: 12ms conversion, slow sine drift.
type simClimate struct{ n int }

func (s *simClimate) ID() string { return "sim-shtc3" }

func (s *simClimate) Trigger(ctx context.Context) (time.Duration, error) {
	return 12 * time.Millisecond, nil
}

func (s *simClimate) Collect(ctx context.Context, p *beacon.Payload) error {
	s.n++
	phase := float64(s.n) / 10
	p.Temperature = &types.TemperatureValue{MilliC: int32(22000 + 3000*math.Sin(phase))}
	p.Humidity = &types.HumidityValue{MilliPct: int32(45000 + 5000*math.Cos(phase))}
	return nil
}

// simLight pretends to be the VEML7700 with a 25ms integration window.
type simLight struct{ n int }

func (s *simLight) ID() string { return "sim-veml7700" }

func (s *simLight) Trigger(ctx context.Context) (time.Duration, error) {
	return 29 * time.Millisecond, nil
}

func (s *simLight) Collect(ctx context.Context, p *beacon.Payload) error {
	s.n++
	p.AmbientLight = &types.AmbientLightValue{Lux: 300 + 50*float32(s.n%7)}
	return nil
}

// ---------- Stub radio ----------

type dumpRadio struct{}

func (dumpRadio) Broadcast(addr types.Address, advData []byte) error {
	fmt.Printf("  tx %s  %s\n", addr, hex.EncodeToString(advData))
	return nil
}

// ---------- Main ----------

func main() {
	fmt.Println("sensilo-node demo, address", nodeAddr.String())

	ctx, cancel := context.WithTimeout(context.Background(), runFor)
	defer cancel()

	burst := node.NewBurst(node.BurstConfig{}, dumpRadio{})
	sched := node.NewScheduler(node.SchedulerConfig{
		Interval: cycleInterval,
		Address:  nodeAddr,
		Sensors: []node.SensorSlot{
			{Sensor: &simClimate{}},
			{Sensor: &simLight{}, Optional: true},
		},
	}, burst)

	burst.Start(ctx)
	sched.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("done")
			return
		case c := <-sched.Cycles():
			if c.Err != nil {
				fmt.Println("cycle", c.Counter, "failed:", c.Err.Error())
				continue
			}
			lux := "absent"
			if c.Payload.AmbientLight != nil {
				lux = fmt.Sprintf("%.1f", c.Payload.AmbientLight.Lux)
			}
			fmt.Printf("cycle %d at %s: temp=%dmC hum=%dm%% lux=%s\n",
				c.Counter, c.ScheduledStart.Format("15:04:05.000"),
				c.Payload.Temperature.MilliC, c.Payload.Humidity.MilliPct, lux)
		case ev := <-burst.Events():
			if ev.Err != nil {
				fmt.Println("tx", ev.Counter, "attempt", ev.Attempt, "failed:", ev.Err.Error())
			}
		}
	}
}
