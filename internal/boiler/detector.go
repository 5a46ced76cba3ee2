package boiler

// pumpVerdict is the outcome of classifying a single pump/controller pair
// against the spec §4.6 truth table.
type pumpVerdict int

const (
	verdictNone pumpVerdict = iota
	verdictTxWrong
	verdictPumpFailure
	verdictControllerFailure
	verdictStuckInReportedState
	verdictStuck
	verdictAmbiguous
)

// classifyPump applies the §4.6 truth table for a single pump i: c is the
// commanded state, p the reported pump state, s the reported controller
// state, and n whether the current level is inside the expectation window.
func classifyPump(c, p, s, n bool) pumpVerdict {
	if s == c && p != c {
		if n {
			return verdictTxWrong // case 1
		}
		return verdictPumpFailure // case 2
	}
	if s != c {
		switch {
		case p == s && n:
			return verdictStuckInReportedState // case 3
		case p == c && !n:
			return verdictStuck // case 4
		case p == c && n:
			return verdictAmbiguous // case 5
		case p != c && !n:
			return verdictPumpFailure // case 6
		}
	}
	return verdictNone
}

// failureDirection reports whether an abnormal level implicates a
// stuck-on (level above target) or stuck-off (level at/below target) fault,
// per "direction inferred from sign of level - T".
func failureDirection(level, target float64) FaultKind {
	if level > target {
		return FaultStuckOn
	}
	return FaultStuckOff
}

// stuckDirection reports STUCK_ON if level is above the expectation's
// upper bound, STUCK_OFF otherwise (case 4's rule).
func stuckDirection(level float64, exp Expectation) FaultKind {
	if exp.Known && level > exp.Hi {
		return FaultStuckOn
	}
	return FaultStuckOff
}

// steamSane checks the steam reading against the obvious-nonsense rules of
// §4.6: negative, above the maximum rate, or a regression from the last
// reading (steam must be monotone non-decreasing while the sensor is OK).
func steamSane(steam, lastSteam, maxRate float64) bool {
	if steam < 0 || steam > maxRate {
		return false
	}
	if steam < lastSteam {
		return false
	}
	return true
}
