// Package status provides a thread-safe status tracker for the boiler
// daemon. It is read by the HTTP dashboard and by log correlation, and
// never by the controller itself — the tick loop never blocks on it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/boilerd/internal/boiler"
)

// Config contains daemon configuration for display.
type Config struct {
	TickSeconds float64
	Broker      string
	HTTPAddr    string
	Pumps       int
}

// FaultView is the JSON/display-friendly projection of one FaultSlot.
type FaultView struct {
	Kind         string
	Acknowledged bool
}

// Snapshot is a point-in-time view of daemon state. It is a value type
// — safe to use after the lock is released.
type Snapshot struct {
	Mode      boiler.Mode
	Level     float64
	Steam     float64
	ValveOpen bool

	PumpCommand      []bool
	PumpState        []bool
	PumpControlState []bool

	ValveFault FaultView
	SteamFault FaultView
	LevelFault FaultView
	Pumps      []FaultView
	Control    []FaultView

	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// AnyFaulted reports whether any peripheral in the snapshot is faulted.
func (s Snapshot) AnyFaulted() bool {
	if s.ValveFault.Kind != "OK" || s.SteamFault.Kind != "OK" || s.LevelFault.Kind != "OK" {
		return true
	}
	for _, p := range s.Pumps {
		if p.Kind != "OK" {
			return true
		}
	}
	for _, c := range s.Control {
		if c.Kind != "OK" {
			return true
		}
	}
	return false
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime:        startTime,
			Config:           cfg,
			PumpCommand:      make([]bool, cfg.Pumps),
			PumpState:        make([]bool, cfg.Pumps),
			PumpControlState: make([]bool, cfg.Pumps),
			Pumps:            make([]FaultView, cfg.Pumps),
			Control:          make([]FaultView, cfg.Pumps),
		},
	}
}

// UpdateTick records the controller's mode, the tick's readings, pump
// command/readback state, and the current fault registry. Called from
// the run loop after every Tick().
func (t *Tracker) UpdateTick(mode boiler.Mode, level, steam float64, valveOpen bool, pumpCommand, pumpState, pumpControlState []bool, faults *boiler.FaultRegistry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Mode = mode
	t.snap.Level = level
	t.snap.Steam = steam
	t.snap.ValveOpen = valveOpen
	t.snap.PumpCommand = append(t.snap.PumpCommand[:0], pumpCommand...)
	t.snap.PumpState = append(t.snap.PumpState[:0], pumpState...)
	t.snap.PumpControlState = append(t.snap.PumpControlState[:0], pumpControlState...)

	t.snap.ValveFault = faultView(faults.Valve())
	t.snap.SteamFault = faultView(faults.Steam())
	t.snap.LevelFault = faultView(faults.Level())

	pumps := t.snap.Config.Pumps
	t.snap.Pumps = t.snap.Pumps[:0]
	t.snap.Control = t.snap.Control[:0]
	for i := 0; i < pumps; i++ {
		t.snap.Pumps = append(t.snap.Pumps, faultView(faults.Pump(i)))
		t.snap.Control = append(t.snap.Control, faultView(faults.Controller(i)))
	}
}

func faultView(s boiler.FaultSlot) FaultView {
	return FaultView{Kind: s.Kind.String(), Acknowledged: s.Acknowledged}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state. The Now
// field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.PumpCommand = append([]bool(nil), t.snap.PumpCommand...)
	s.PumpState = append([]bool(nil), t.snap.PumpState...)
	s.PumpControlState = append([]bool(nil), t.snap.PumpControlState...)
	s.Pumps = append([]FaultView(nil), t.snap.Pumps...)
	s.Control = append([]FaultView(nil), t.snap.Control...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
