// Package boiler contains pure business logic for the steam-boiler feedback
// controller. This package has NO external dependencies (no MQTT, GPIO, OS,
// or time.Sleep) — every tick is a deterministic function of the controller's
// private state plus the inbound Mailbox.
package boiler

import "fmt"

// Configuration records the immutable plant parameters for a boiler
// installation. It is created once at startup and never mutated.
type Configuration struct {
	// Capacity is the total capacity of the boiler, in litres.
	Capacity float64
	// NormalMin and NormalMax bound the normal operating band [N-, N+].
	NormalMin float64
	NormalMax float64
	// SafetyMin and SafetyMax bound the physically safe band [L-, L+].
	SafetyMin float64
	SafetyMax float64
	// Pumps is the number of feedwater pumps, P.
	Pumps int
	// PumpCapacity is the uniform per-pump delivery rate, Q (litres/second).
	PumpCapacity float64
	// MaxSteamRate is the maximum steam output rate, W (litres/second).
	MaxSteamRate float64
	// EvacuationRate is the rate the open evacuation valve removes water, E.
	EvacuationRate float64
}

// Target returns T, the midpoint of the normal band.
func (c Configuration) Target() float64 {
	return (c.NormalMin + c.NormalMax) / 2
}

// Validate checks the configuration invariant
// 0 < L- < N- < T < N+ < L+ < C, all positive, and returns a descriptive
// error naming the first violated inequality.
func (c Configuration) Validate() error {
	t := c.Target()
	switch {
	case c.SafetyMin <= 0:
		return fmt.Errorf("boiler: safety minimum %.2f must be positive", c.SafetyMin)
	case c.SafetyMin >= c.NormalMin:
		return fmt.Errorf("boiler: safety minimum %.2f must be below normal minimum %.2f", c.SafetyMin, c.NormalMin)
	case c.NormalMin >= t:
		return fmt.Errorf("boiler: normal minimum %.2f must be below target %.2f", c.NormalMin, t)
	case t >= c.NormalMax:
		return fmt.Errorf("boiler: target %.2f must be below normal maximum %.2f", t, c.NormalMax)
	case c.NormalMax >= c.SafetyMax:
		return fmt.Errorf("boiler: normal maximum %.2f must be below safety maximum %.2f", c.NormalMax, c.SafetyMax)
	case c.SafetyMax >= c.Capacity:
		return fmt.Errorf("boiler: safety maximum %.2f must be below capacity %.2f", c.SafetyMax, c.Capacity)
	case c.Pumps <= 0:
		return fmt.Errorf("boiler: number of pumps %d must be positive", c.Pumps)
	case c.PumpCapacity <= 0:
		return fmt.Errorf("boiler: pump capacity %.2f must be positive", c.PumpCapacity)
	case c.MaxSteamRate <= 0:
		return fmt.Errorf("boiler: maximum steam rate %.2f must be positive", c.MaxSteamRate)
	case c.EvacuationRate <= 0:
		return fmt.Errorf("boiler: evacuation rate %.2f must be positive", c.EvacuationRate)
	}
	return nil
}

// DefaultConfiguration returns the scenario defaults used throughout spec
// testing: C=1000, N-=400, N+=600, L-=100, L+=900, W=10, P=4, Q=5, E=10.
func DefaultConfiguration() Configuration {
	return Configuration{
		Capacity:       1000,
		NormalMin:      400,
		NormalMax:      600,
		SafetyMin:      100,
		SafetyMax:      900,
		Pumps:          4,
		PumpCapacity:   5,
		MaxSteamRate:   10,
		EvacuationRate: 10,
	}
}

// epsilon absorbs floating-point slack in the expectation window, as in
// the original implementation's 0.0001 offset — widened slightly here
// because we compare against live sensor readings rather than a
// fixed-point simulator.
const epsilon = 0.3

// tickSeconds is the duration represented by a single clock tick.
const tickSeconds = 5.0
