package boiler

// Expectation is the predicted water-level window for the next tick,
// derived from the last tick's level, the commanded pump set, the steam
// reading and the (possibly broken) valve state (spec §3, §4.5).
type Expectation struct {
	Known bool
	Lo    float64
	Hi    float64
}

// contains reports whether level falls within the window. An unknown
// expectation is treated as always-normal, matching the original
// implementation's waterLevelNormal when no prediction has been made yet
// (expectedRange == -1).
func (e Expectation) contains(level float64) bool {
	if !e.Known {
		return true
	}
	return level >= e.Lo && level <= e.Hi
}

// mid returns the midpoint of the window, or the target if unknown.
func (e Expectation) mid(target float64) float64 {
	if !e.Known {
		return target
	}
	return (e.Lo + e.Hi) / 2
}
