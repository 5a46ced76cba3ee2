package gpio

import "fmt"

// FakeActuator is a test double that records commands and returns
// scripted readback values, without touching real hardware.
type FakeActuator struct {
	// PumpStateSamples and PumpControlStateSamples hold the next
	// readback value per pump; set directly between ticks to script
	// plant behavior.
	PumpStateSamples        []bool
	PumpControlStateSamples []bool

	// OpenedPumps and ClosedPumps record every command received, in
	// order.
	OpenedPumps []int
	ClosedPumps []int
	ValveToggles int

	ValveOpen bool
	Closed    bool

	// ReadError, if set, is returned by PumpState/PumpControlState
	// instead of a scripted sample.
	ReadError error
	// WriteError, if set, is returned by OpenPump/ClosePump/ToggleValve.
	WriteError error
}

// NewFakeActuator creates a FakeActuator for n pumps, all reading
// closed/off until scripted otherwise.
func NewFakeActuator(n int) *FakeActuator {
	return &FakeActuator{
		PumpStateSamples:        make([]bool, n),
		PumpControlStateSamples: make([]bool, n),
	}
}

func (f *FakeActuator) OpenPump(n int) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.OpenedPumps = append(f.OpenedPumps, n)
	return nil
}

func (f *FakeActuator) ClosePump(n int) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.ClosedPumps = append(f.ClosedPumps, n)
	return nil
}

func (f *FakeActuator) ToggleValve() error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.ValveToggles++
	f.ValveOpen = !f.ValveOpen
	return nil
}

func (f *FakeActuator) PumpState(n int) (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if n < 0 || n >= len(f.PumpStateSamples) {
		return false, fmt.Errorf("gpio: pump %d out of range", n)
	}
	return f.PumpStateSamples[n], nil
}

func (f *FakeActuator) PumpControlState(n int) (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if n < 0 || n >= len(f.PumpControlStateSamples) {
		return false, fmt.Errorf("gpio: pump %d out of range", n)
	}
	return f.PumpControlStateSamples[n], nil
}

func (f *FakeActuator) Close() error {
	f.Closed = true
	return nil
}

// Reset clears every recorded command and restores scripted state
// slices to all-false, keeping their length.
func (f *FakeActuator) Reset() {
	for i := range f.PumpStateSamples {
		f.PumpStateSamples[i] = false
	}
	for i := range f.PumpControlStateSamples {
		f.PumpControlStateSamples[i] = false
	}
	f.OpenedPumps = nil
	f.ClosedPumps = nil
	f.ValveToggles = 0
	f.ValveOpen = false
	f.Closed = false
	f.ReadError = nil
	f.WriteError = nil
}
