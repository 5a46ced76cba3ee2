//go:build !linux

package gpio

import "errors"

// RealActuator is not available on non-Linux platforms.
type RealActuator struct{}

// NewRealActuator returns an error on non-Linux platforms.
func NewRealActuator(m PinMap) (*RealActuator, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (r *RealActuator) OpenPump(n int) error                { return errors.New("gpio: not supported") }
func (r *RealActuator) ClosePump(n int) error                { return errors.New("gpio: not supported") }
func (r *RealActuator) ToggleValve() error                  { return errors.New("gpio: not supported") }
func (r *RealActuator) PumpState(n int) (bool, error)        { return false, errors.New("gpio: not supported") }
func (r *RealActuator) PumpControlState(n int) (bool, error) { return false, errors.New("gpio: not supported") }
func (r *RealActuator) Close() error                         { return nil }
