package boiler

// pendingKind names the deferred-diagnosis state carried across a tick
// boundary (spec §4.6, §9 "Ambiguous case-5").
type pendingKind int

const (
	pendingNone pendingKind = iota
	// pendingAmbiguousPump defers a case-5 pump/controller ambiguity to
	// the next tick, where the drift direction disambiguates it.
	pendingAmbiguousPump
	// pendingRescueOrigin defers the question of whether a freshly
	// entered RESCUE was actually caused by a leaking valve, to be
	// checked once more data (this tick's steam/level) is available.
	pendingRescueOrigin
	// pendingReducedProbe is mid-way through probing which pump (if any)
	// is running at reduced capacity (spec §4.5).
	pendingReducedProbe
)

// pendingDiagnosis is the "pending diagnosis" variant carried in
// controller state between ticks.
type pendingDiagnosis struct {
	kind            pendingKind
	pumpIndex       int   // subject pump, for pendingAmbiguousPump
	probeCandidates []int // remaining pumps to test, for pendingReducedProbe
	probeAt         int   // index into probeCandidates currently under test
}

// resolveAmbiguousPump implements the deferred-resolution rule: "this
// tick's drift direction disambiguates to pump-stuck or controller-stuck".
// Drifting low implicates the pump; drifting high implicates the
// controller (at-most-one-fault assumption).
func (c *Controller) resolveAmbiguousPump(level float64, out *Mailbox) {
	i := c.pending.pumpIndex
	if level < c.cfg.Target() {
		c.faults.setPump(i, FaultStuckOff)
		c.pumpCommand[i] = false
		out.Send(Indexed(KindPumpFailureDetection, i))
	} else {
		c.faults.setController(i, FaultStuckOff)
		out.Send(Indexed(KindPumpControlFailureDetection, i))
	}
	c.pending = pendingDiagnosis{}
}

// resolveRescueOrigin implements "if the prior state was RESCUE and the
// valve-return calculation matches, re-classify as valve-stuck and demote
// to DEGRADED" — checking whether the anomaly that forced RESCUE is
// actually explained by a leaking evacuation valve.
//
// measured_level ~= last_level + 5*E - 5*((last_steam+steam)/2)
//
// It never issues a pump command itself. It reports startedProbe=true when
// it has just armed the reduced-capacity probe for the following tick (the
// pending state re-enters pendingReducedProbe rather than resolving) — the
// caller must skip its own per-mode dispatch for this tick, since planning
// from the fault registry right now would just be discarded once the probe
// actually starts issuing its own commands next tick.
func (c *Controller) resolveRescueOrigin(level, steam float64) (startedProbe bool) {
	predicted := c.lastLevel + 5*c.cfg.EvacuationRate - 5*((c.lastSteam+steam)/2)
	if abs(level-predicted) <= epsilon {
		c.faults.levelSlot().clear()
		c.faults.setValve(FaultStuckOn)
		c.mode = ModeDegraded
		c.pending = pendingDiagnosis{}
		return false
	}
	// Not a valve leak — try the reduced-capacity hypothesis instead.
	candidates := c.faults.HealthyPumps()
	if len(candidates) == 0 {
		c.pending = pendingDiagnosis{}
		return false
	}
	c.pending = pendingDiagnosis{
		kind:            pendingReducedProbe,
		probeCandidates: candidates,
		probeAt:         0,
	}
	return true
}

// runReducedProbe implements the reduced-capacity probe of §4.5: open
// exactly one candidate pump, close the rest, and on the following tick
// check whether the level fell below the widened expectation — if so the
// candidate is confirmed REDUCED; otherwise advance to the next candidate.
// If no candidate confirms, the anomaly is attributed to the level sensor
// and RESCUE is retained.
//
// It reports probing=true on every tick where it has just sent a fresh
// single-candidate OPEN/CLOSE set and its matching narrow expectation —
// the caller must skip RESCUE's normal dispatch for that tick, or the
// planner would immediately re-plan from the fault registry and issue a
// second, contradicting round of commands on top of the probe's. It
// reports probing=false on the ticks where the probe instead resolves
// (confirms a candidate, or exhausts the list) without sending any new
// commands, leaving the normal dispatch free to run.
func (c *Controller) runReducedProbe(out *Mailbox, level float64) (probing bool) {
	candidate := c.pending.probeCandidates[c.pending.probeAt]

	if c.probeArmed {
		// We opened `candidate` alone last tick; check the outcome now.
		widened := c.expectation
		widened.Lo -= c.cfg.PumpCapacity
		if widened.Known && level < widened.Lo {
			c.faults.setPump(candidate, FaultReduced)
			c.mode = ModeDegraded
			c.pending = pendingDiagnosis{}
			c.probeArmed = false
			return false
		}
		c.pending.probeAt++
		c.probeArmed = false
		if c.pending.probeAt >= len(c.pending.probeCandidates) {
			// No candidate confirmed; level sensor fault stands, remain RESCUE.
			c.pending = pendingDiagnosis{}
			return false
		}
		candidate = c.pending.probeCandidates[c.pending.probeAt]
	}

	for i := 0; i < c.cfg.Pumps; i++ {
		if i == candidate {
			out.Send(Indexed(KindOpenPump, i))
			c.pumpCommand[i] = true
		} else {
			out.Send(Indexed(KindClosePump, i))
			c.pumpCommand[i] = false
		}
	}
	_, exp := planPumpCount(c.cfg, c.expectation.mid(c.cfg.Target()), c.lastSteam, c.faults.Valve().Faulted(), 1, c.cfg.Pumps-1)
	c.expectation = exp
	c.probeArmed = true
	return true
}

// checkValveReturn implements §4.5's valve-return check: each tick while
// the valve is flagged broken, compare the actual level to exp_hi + 5*E;
// if within the epsilon band, the valve has returned and the fault clears.
func (c *Controller) checkValveReturn(level float64) {
	if !c.faults.Valve().Faulted() {
		return
	}
	if !c.expectation.Known {
		return
	}
	predicted := c.expectation.Hi + 5*c.cfg.EvacuationRate
	if abs(level-predicted) <= epsilon {
		c.faults.valveSlot().clear()
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
