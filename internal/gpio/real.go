//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealActuator drives pump and valve relays on actual hardware through
// the Linux GPIO character device.
type RealActuator struct {
	chip *gpiocdev.Chip

	pumpCommand      []*gpiocdev.Line
	pumpState        []*gpiocdev.Line
	pumpControlState []*gpiocdev.Line
	valve            *gpiocdev.Line

	valveOpen bool
}

// NewRealActuator opens m.Chip and requests every line it names.
// Command and valve lines are requested as outputs, driven low
// (closed) initially; state lines are requested as inputs with
// pull-down, matching the boot-default wiring of the relay boards.
func NewRealActuator(m PinMap) (*RealActuator, error) {
	chip, err := gpiocdev.NewChip(m.Chip)
	if err != nil {
		return nil, fmt.Errorf("gpio: open chip %s: %w", m.Chip, err)
	}

	ra := &RealActuator{chip: chip}
	closeOnErr := func(err error) (*RealActuator, error) {
		ra.Close()
		return nil, err
	}

	for i, pin := range m.PumpCommand {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			return closeOnErr(fmt.Errorf("gpio: request pump %d command pin %d: %w", i, pin, err))
		}
		ra.pumpCommand = append(ra.pumpCommand, line)
	}
	for i, pin := range m.PumpState {
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			return closeOnErr(fmt.Errorf("gpio: request pump %d state pin %d: %w", i, pin, err))
		}
		ra.pumpState = append(ra.pumpState, line)
	}
	for i, pin := range m.PumpControlState {
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			return closeOnErr(fmt.Errorf("gpio: request pump %d control state pin %d: %w", i, pin, err))
		}
		ra.pumpControlState = append(ra.pumpControlState, line)
	}
	valve, err := chip.RequestLine(m.Valve, gpiocdev.AsOutput(0))
	if err != nil {
		return closeOnErr(fmt.Errorf("gpio: request valve pin %d: %w", m.Valve, err))
	}
	ra.valve = valve

	return ra, nil
}

func (r *RealActuator) OpenPump(n int) error {
	if err := r.pumpCommand[n].SetValue(1); err != nil {
		return fmt.Errorf("gpio: open pump %d: %w", n, err)
	}
	return nil
}

func (r *RealActuator) ClosePump(n int) error {
	if err := r.pumpCommand[n].SetValue(0); err != nil {
		return fmt.Errorf("gpio: close pump %d: %w", n, err)
	}
	return nil
}

// ToggleValve inverts the valve line, mirroring the controller's own
// VALVE message semantics (a toggle, not an idempotent set).
func (r *RealActuator) ToggleValve() error {
	r.valveOpen = !r.valveOpen
	val := 0
	if r.valveOpen {
		val = 1
	}
	if err := r.valve.SetValue(val); err != nil {
		r.valveOpen = !r.valveOpen
		return fmt.Errorf("gpio: toggle valve: %w", err)
	}
	return nil
}

func (r *RealActuator) PumpState(n int) (bool, error) {
	v, err := r.pumpState[n].Value()
	if err != nil {
		return false, fmt.Errorf("gpio: read pump %d state: %w", n, err)
	}
	return v != 0, nil
}

func (r *RealActuator) PumpControlState(n int) (bool, error) {
	v, err := r.pumpControlState[n].Value()
	if err != nil {
		return false, fmt.Errorf("gpio: read pump %d control state: %w", n, err)
	}
	return v != 0, nil
}

// Close drives every output line low, then releases all lines and the
// chip, collecting any errors encountered along the way.
func (r *RealActuator) Close() error {
	var errs []error

	for i, line := range r.pumpCommand {
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("close pump %d command: %w", i, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release pump %d command: %w", i, err))
		}
	}
	for i, line := range r.pumpState {
		if line == nil {
			continue
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release pump %d state: %w", i, err))
		}
	}
	for i, line := range r.pumpControlState {
		if line == nil {
			continue
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release pump %d control state: %w", i, err))
		}
	}
	if r.valve != nil {
		if err := r.valve.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("close valve: %w", err))
		}
		if err := r.valve.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release valve: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("gpio: close errors: %v", errs)
	}
	return nil
}
