package boiler

import "math"

// planPumpCount chooses the number of pumps k, in [lockedOn, cfg.Pumps-lockedOff],
// that puts the predicted mid-range level closest to the target T (spec
// §4.5). base is the current level reading in NORMAL/DEGRADED, or the
// midpoint of the last expectation window in RESCUE. It returns the chosen
// count and the resulting expectation window, widened by epsilon to absorb
// floating-point slack.
func planPumpCount(cfg Configuration, base, steam float64, valveBroken bool, lockedOn, lockedOff int) (int, Expectation) {
	lo := lockedOn
	hi := cfg.Pumps - lockedOff
	if hi < lo {
		hi = lo
	}

	target := cfg.Target()
	bestK := lo
	bestDist := math.Inf(1)
	var bestExp Expectation

	for k := lo; k <= hi; k++ {
		max := base + 5*cfg.PumpCapacity*float64(k) - 5*steam
		min := base + 5*cfg.PumpCapacity*float64(k) - 5*cfg.MaxSteamRate
		if valveBroken {
			max -= 5 * cfg.EvacuationRate
			min -= 5 * cfg.EvacuationRate
		}
		mid := (max + min) / 2
		dist := math.Abs(mid - target)
		if dist < bestDist {
			bestDist = dist
			bestK = k
			bestExp = Expectation{Known: true, Lo: min - epsilon, Hi: max + epsilon}
		}
	}

	return bestK, bestExp
}

// initialFillPumpCount picks the integer k in [1, P] minimizing
// |level + 5*Q*k - T| for the WAITING-mode initial fill (spec §4.3).
func initialFillPumpCount(cfg Configuration, level float64) (int, Expectation) {
	target := cfg.Target()
	best := 1
	bestDist := math.Inf(1)
	var bestExp Expectation

	for k := 1; k <= cfg.Pumps; k++ {
		predicted := level + 5*cfg.PumpCapacity*float64(k)
		dist := math.Abs(predicted - target)
		if dist < bestDist {
			bestDist = dist
			best = k
			bestExp = Expectation{Known: true, Lo: predicted - epsilon, Hi: predicted + epsilon}
		}
	}

	return best, bestExp
}
