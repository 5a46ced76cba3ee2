// Package gpio provides direct physical actuation of pumps and the
// evacuation valve over the Linux GPIO character device, for
// installations where the relays are wired straight to the controller
// host rather than proxied through the plant's own MQTT-speaking bus
// (spec §6). The real implementation drives an actual chip; the fake
// implementation lets tests script line values without hardware.
package gpio

// Actuator drives pump/valve output lines and reads back their
// reported digital state. It carries only the physical subset of the
// wire protocol — OPEN_PUMP_n / CLOSE_PUMP_n / VALVE as writes,
// PUMP_STATE_n_b / PUMP_CONTROL_STATE_n_b as reads. LEVEL_v/STEAM_v and
// the repair/ack/failure messages are analog or out-of-band and never
// go through this package.
type Actuator interface {
	// OpenPump drives pump n's command line to the open state.
	OpenPump(n int) error
	// ClosePump drives pump n's command line to the closed state.
	ClosePump(n int) error
	// ToggleValve inverts the evacuation valve's output line.
	ToggleValve() error
	// PumpState reads back pump n's reported physical state.
	PumpState(n int) (bool, error)
	// PumpControlState reads back pump n's reported controller state.
	PumpControlState(n int) (bool, error)
	// Close releases every line and the underlying chip.
	Close() error
}

// PinMap names the BCM line for every physical signal of an
// installation with n pumps. Command lines are outputs; State and
// ControlState lines are inputs; Valve is an output.
type PinMap struct {
	Chip             string // e.g. "gpiochip0"
	PumpCommand      []int  // len == pumps, output line per pump
	PumpState        []int  // len == pumps, input line per pump
	PumpControlState []int  // len == pumps, input line per pump
	Valve            int    // output line
}

// Pumps returns the number of pumps this map describes.
func (m PinMap) Pumps() int { return len(m.PumpCommand) }
