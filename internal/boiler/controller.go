package boiler

// Controller is the tick orchestrator: the top-level per-tick procedure
// that wires the configuration, mailbox, fault registry, expectation model,
// pump planner, failure detector and mode state machine together (spec
// §4.1). A Controller owns all of its state exclusively; mailboxes are
// borrowed for the duration of a single Tick call and never retained.
type Controller struct {
	cfg Configuration

	mode        Mode
	pumpCommand []bool
	expectation Expectation

	lastSteam   float64
	lastLevel   float64
	hasLastTick bool

	valveOpen bool
	faults    *FaultRegistry

	pending    pendingDiagnosis
	probeArmed bool
}

// NewController constructs a Controller for the given plant configuration,
// starting in WAITING with every fault slot clear and every pump closed.
func NewController(cfg Configuration) *Controller {
	return &Controller{
		cfg:         cfg,
		mode:        ModeWaiting,
		pumpCommand: make([]bool, cfg.Pumps),
		faults:      NewFaultRegistry(cfg.Pumps),
	}
}

// Mode returns the controller's current operating mode.
func (c *Controller) Mode() Mode { return c.mode }

// String renders the current mode, for log lines and the status dashboard —
// the Go analogue of the original controller's debug status message.
func (c *Controller) String() string { return c.mode.String() }

// Faults returns the controller's fault registry (read-only use expected;
// callers should not mutate slots directly).
func (c *Controller) Faults() *FaultRegistry { return c.faults }

// ValveOpen reports whether the evacuation valve is currently commanded
// open, for the status dashboard and log lines.
func (c *Controller) ValveOpen() bool { return c.valveOpen }

// Tick processes one five-second clock signal: it consumes the inbound
// mailbox and returns the outbound mailbox, updating internal state exactly
// once (spec §4.1). The inbound mailbox is read-only during the call; the
// returned mailbox is freshly allocated and owned by the caller.
func (c *Controller) Tick(in *Mailbox) *Mailbox {
	out := NewMailbox()

	if c.mode == ModeEmergencyStop {
		out.Send(ModeMessage(c.mode))
		return out
	}

	if c.mode == ModeReady {
		return c.doReady(in, out)
	}

	level, levelOK := ExtractUnique(in, KindLevel)
	steam, steamOK := ExtractUnique(in, KindSteam)

	if c.mode == ModeWaiting {
		if !levelOK || !steamOK {
			return c.emergencyStop(out)
		}
		return c.tickInitial(in, out, level.Double, steam.Double)
	}

	pumpStates, pumpOK := ExtractIndexed(in, KindPumpState, c.cfg.Pumps)
	ctrlStates, ctrlOK := ExtractIndexed(in, KindPumpControlState, c.cfg.Pumps)

	if !levelOK || !steamOK || !pumpOK || !ctrlOK {
		return c.emergencyStop(out)
	}

	levelVal, steamVal := level.Double, steam.Double

	skipDispatch := false
	switch c.pending.kind {
	case pendingAmbiguousPump:
		c.resolveAmbiguousPump(levelVal, out)
	case pendingRescueOrigin:
		skipDispatch = c.resolveRescueOrigin(levelVal, steamVal)
	case pendingReducedProbe:
		skipDispatch = c.runReducedProbe(out, levelVal)
	}

	c.checkValveReturn(levelVal)

	c.runDetector(levelVal, steamVal, pumpStates, ctrlStates, out)

	if c.mode == ModeDegraded || c.mode == ModeRescue {
		c.processRepairsAndAcks(in, out)
	}

	if c.mode == ModeEmergencyStop {
		out.Send(ModeMessage(c.mode))
		return out
	}

	// A pending-diagnosis step that already issued this tick's pump
	// commands (a probe candidate) or that re-entered an intermediate
	// pending state (about to probe next tick) owns this tick's dispatch;
	// running the normal per-mode planner on top of it would re-plan from
	// the fault registry and contradict what was just sent.
	if !skipDispatch {
		switch c.mode {
		case ModeNormal:
			c.doNormal(levelVal, steamVal, out)
		case ModeDegraded:
			c.doDegraded(levelVal, steamVal, out)
		case ModeRescue:
			c.doRescue(steamVal, out)
		}
	}

	if !c.safetyMarginOK(levelVal, steamVal) {
		return c.emergencyStop(out)
	}

	out.Send(ModeMessage(c.mode))
	c.lastSteam, c.lastLevel, c.hasLastTick = steamVal, levelVal, true
	return out
}

// tickInitial handles the WAITING mode (spec §4.2, §4.3), which uses a
// simpler sequence than the main detector/planner loop.
func (c *Controller) tickInitial(in, out *Mailbox, level, steam float64) *Mailbox {
	c.doWaiting(in, out, level, steam)

	if c.mode == ModeEmergencyStop {
		out.Send(ModeMessage(c.mode))
		return out
	}

	out.Send(ModeMessage(c.mode))
	c.lastSteam, c.lastLevel, c.hasLastTick = steam, level, true
	return out
}

func (c *Controller) doWaiting(in, out *Mailbox, level, steam float64) {
	waiting := ExtractAllOfKind(in, KindSteamBoilerWaiting)
	if len(waiting) != 1 {
		return
	}

	// The level did not respond despite the valve being open: the valve
	// (or the level sensor) is broken before we have even reached READY.
	if c.valveOpen && c.hasLastTick && level >= c.lastLevel {
		c.mode = ModeEmergencyStop
		return
	}

	switch {
	case steam != 0:
		c.mode = ModeEmergencyStop
	case level < 0 || level >= c.cfg.Capacity:
		c.mode = ModeEmergencyStop
	case level >= c.cfg.NormalMin && level <= c.cfg.NormalMax:
		c.closeAllPumps(out)
		if c.valveOpen {
			out.Send(Plain(KindValve))
			c.valveOpen = false
		}
		out.Send(Plain(KindProgramReady))
		c.mode = ModeReady
	default:
		c.initialFill(level, out)
	}
}

// doReady handles the READY mode directly: it needs nothing from the
// mailbox but a single PHYSICAL_UNITS_READY, unlike every later mode.
func (c *Controller) doReady(in, out *Mailbox) *Mailbox {
	if len(ExtractAllOfKind(in, KindPhysicalUnitsReady)) == 1 {
		c.mode = ModeNormal
	}
	out.Send(ModeMessage(c.mode))
	return out
}

// initialFill implements spec §4.3: above N+, toggle the valve open until
// the level re-enters the band; below N-, pick k in [1, P] minimizing
// |level + 5*Q*k - T|, open pumps 0..k-1 and ensure the valve is closed.
func (c *Controller) initialFill(level float64, out *Mailbox) {
	if level > c.cfg.NormalMax {
		if !c.valveOpen {
			out.Send(Plain(KindValve))
			c.valveOpen = true
		}
		return
	}

	k, exp := initialFillPumpCount(c.cfg, level)
	c.expectation = exp
	for i := 0; i < c.cfg.Pumps; i++ {
		if i < k {
			out.Send(Indexed(KindOpenPump, i))
			c.pumpCommand[i] = true
		} else {
			out.Send(Indexed(KindClosePump, i))
			c.pumpCommand[i] = false
		}
	}
	if c.valveOpen {
		out.Send(Plain(KindValve))
		c.valveOpen = false
	}
}

func (c *Controller) closeAllPumps(out *Mailbox) {
	for i := 0; i < c.cfg.Pumps; i++ {
		out.Send(Indexed(KindClosePump, i))
		c.pumpCommand[i] = false
	}
}

// doNormal implements spec §4.2 NORMAL: plan the pump count for the
// current reading and command pumps accordingly. No fault exists in
// NORMAL by construction (the detector demotes on the same tick it finds
// one), so there are no locked/healthy/reduced distinctions to make.
func (c *Controller) doNormal(level, steam float64, out *Mailbox) {
	k, exp := planPumpCount(c.cfg, level, steam, c.faults.Valve().Faulted(), 0, 0)
	c.expectation = exp
	for i := 0; i < c.cfg.Pumps; i++ {
		c.setPumpCommand(i, i < k, out)
	}
}

// doDegraded implements spec §4.2/§4.5 DEGRADED: plan around locked pumps,
// then command healthy pumps first and reduced-capacity pumps only if
// still short, widening exp_lo to account for the shortfall.
func (c *Controller) doDegraded(level, steam float64, out *Mailbox) {
	lockedOn := c.faults.PumpsLockedOn()
	lockedOff := c.faults.PumpsLockedOff()
	k, exp := planPumpCount(c.cfg, level, steam, c.faults.Valve().Faulted(), lockedOn, lockedOff)
	c.expectation = exp
	c.commandRespectingFaults(k, out)
}

// doRescue implements spec §4.2/§4.5 RESCUE: plan from the predicted
// window rather than the (untrusted) level reading, driving pumps
// conservatively around T while still respecting any concurrent
// non-level fault.
func (c *Controller) doRescue(steam float64, out *Mailbox) {
	base := c.expectation.mid(c.cfg.Target())
	lockedOn := c.faults.PumpsLockedOn()
	lockedOff := c.faults.PumpsLockedOff()
	k, exp := planPumpCount(c.cfg, base, steam, c.faults.Valve().Faulted(), lockedOn, lockedOff)
	c.expectation = exp
	c.commandRespectingFaults(k, out)
}

// commandRespectingFaults commands exactly k pumps open, counting locked-on
// pumps and any already-open TX_WRONG-unacknowledged pump toward k without
// treating either as a fresh candidate, preferring healthy pumps, and
// falling back to reduced-capacity pumps (widening exp_lo by Q) only if
// healthy pumps cannot reach k. Unused pumps are closed and locked pumps
// receive no command; a TX_WRONG-unacked pump is closed too once the budget no longer needs it —
// its command is not trusted by the detector, but it is still obeyed (a
// TX_WRONG fault is a reporting fault, not a physical one), so leaving it
// open past its share would silently add water on top of the planned k.
func (c *Controller) commandRespectingFaults(k int, out *Mailbox) {
	on := c.faults.PumpsLockedOn()

	var txWrongOpen []int
	for i := 0; i < c.cfg.Pumps; i++ {
		slot := c.faults.Pump(i)
		if slot.Kind == FaultTxWrong && !slot.Acknowledged && c.pumpCommand[i] {
			txWrongOpen = append(txWrongOpen, i)
		}
	}

	keepOpen := make(map[int]bool, len(txWrongOpen))
	for _, i := range txWrongOpen {
		if on >= k {
			break
		}
		keepOpen[i] = true
		on++
	}

	healthy := c.faults.HealthyPumps()
	reduced := c.faults.ReducedPumps()
	open := make(map[int]bool, k)

	for _, i := range healthy {
		if on >= k {
			break
		}
		open[i] = true
		on++
	}
	for _, i := range reduced {
		if on >= k {
			break
		}
		open[i] = true
		on++
		c.expectation.Lo -= c.cfg.PumpCapacity
	}

	for _, i := range healthy {
		c.setPumpCommand(i, open[i], out)
	}
	for _, i := range reduced {
		c.setPumpCommand(i, open[i], out)
	}
	for _, i := range txWrongOpen {
		c.setPumpCommand(i, keepOpen[i], out)
	}
	// Locked pumps receive no command (the plant ignores it anyway), but
	// the command record tracks physical reality.
	for i := 0; i < c.cfg.Pumps; i++ {
		switch c.faults.Pump(i).Kind {
		case FaultStuckOn:
			c.pumpCommand[i] = true
		case FaultStuckOff:
			c.pumpCommand[i] = false
		}
	}
}

func (c *Controller) setPumpCommand(i int, open bool, out *Mailbox) {
	c.pumpCommand[i] = open
	if open {
		out.Send(Indexed(KindOpenPump, i))
	} else {
		out.Send(Indexed(KindClosePump, i))
	}
}

// runDetector implements spec §4.6: check steam sanity first, then apply
// the pump/controller truth table, then — if every pump/controller is
// consistent — check the level sensor. At most one new fault is raised per
// tick (the at-most-one-fault assumption).
func (c *Controller) runDetector(level, steam float64, pumpStates, ctrlStates []Message, out *Mailbox) {
	if !steamSane(steam, c.lastSteam, c.cfg.MaxSteamRate) {
		if c.mode == ModeRescue {
			c.mode = ModeEmergencyStop
			return
		}
		c.faults.setSteam(FaultOffset)
		out.Send(Plain(KindSteamFailureDetection))
		c.mode = ModeDegraded
		return
	}

	// A reading outside the safety band is never normal, even before the
	// planner has formed an expectation window.
	normal := c.expectation.contains(level) && level >= c.cfg.SafetyMin && level <= c.cfg.SafetyMax
	target := c.cfg.Target()

	for i := 0; i < c.cfg.Pumps; i++ {
		verdict := classifyPump(c.pumpCommand[i], pumpStates[i].Bool, ctrlStates[i].Bool, normal)
		if verdict == verdictNone {
			continue
		}

		switch verdict {
		case verdictTxWrong:
			c.faults.setPump(i, FaultTxWrong)
			out.Send(Indexed(KindPumpFailureDetection, i))
		case verdictPumpFailure:
			c.faults.setPump(i, failureDirection(level, target))
			out.Send(Indexed(KindPumpFailureDetection, i))
		case verdictStuckInReportedState:
			kind := FaultStuckOff
			if ctrlStates[i].Bool {
				kind = FaultStuckOn
			}
			c.faults.setPump(i, kind)
			c.pumpCommand[i] = ctrlStates[i].Bool
			out.Send(Indexed(KindPumpFailureDetection, i))
		case verdictStuck:
			c.faults.setPump(i, stuckDirection(level, c.expectation))
			out.Send(Indexed(KindPumpFailureDetection, i))
		case verdictAmbiguous:
			c.pending = pendingDiagnosis{kind: pendingAmbiguousPump, pumpIndex: i}
		}
		c.mode = ModeDegraded
		return
	}

	if !normal {
		c.faults.setLevel(FaultOffset)
		out.Send(Plain(KindLevelFailureDetection))
		c.mode = ModeRescue
		c.pending = pendingDiagnosis{kind: pendingRescueOrigin}
	}
}

// processRepairsAndAcks implements spec §4.7: acknowledgements move a
// faulted slot to acknowledged; REPAIRED for an acknowledged fault clears
// the slot and emits the matching REPAIRED_ACK. Unmatched acknowledgements
// and repairs are no-ops (the Open Question on rogue acknowledgements).
func (c *Controller) processRepairsAndAcks(in, out *Mailbox) {
	if _, ok := ExtractUnique(in, KindLevelFailureAck); ok {
		c.faults.levelSlot().acknowledge()
	}
	if _, ok := ExtractUnique(in, KindSteamFailureAck); ok {
		c.faults.steamSlot().acknowledge()
	}
	for _, m := range ExtractAllOfKind(in, KindPumpFailureAck) {
		c.faults.pumpSlot(m.Pump).acknowledge()
	}
	for _, m := range ExtractAllOfKind(in, KindPumpControlFailureAck) {
		c.faults.controllerSlot(m.Pump).acknowledge()
	}

	repaired := false
	if _, ok := ExtractUnique(in, KindLevelRepaired); ok {
		if slot := c.faults.levelSlot(); slot.Faulted() && slot.Acknowledged {
			slot.clear()
			out.Send(Plain(KindLevelRepairedAck))
			repaired = true
		}
	}
	if _, ok := ExtractUnique(in, KindSteamRepaired); ok {
		if slot := c.faults.steamSlot(); slot.Faulted() && slot.Acknowledged {
			slot.clear()
			out.Send(Plain(KindSteamRepairedAck))
			repaired = true
		}
	}
	for _, m := range ExtractAllOfKind(in, KindPumpRepaired) {
		if slot := c.faults.pumpSlot(m.Pump); slot.Faulted() && slot.Acknowledged {
			slot.clear()
			out.Send(Indexed(KindPumpRepairedAck, m.Pump))
			repaired = true
		}
	}
	for _, m := range ExtractAllOfKind(in, KindPumpControlRepaired) {
		if slot := c.faults.controllerSlot(m.Pump); slot.Faulted() && slot.Acknowledged {
			slot.clear()
			out.Send(Indexed(KindPumpControlRepairedAck, m.Pump))
			repaired = true
		}
	}

	if repaired {
		c.selectMode()
	}
}

// selectMode implements spec §4.7's post-repair mode selection: RESCUE if
// the level sensor is still faulted, else DEGRADED if anything else is
// faulted, else NORMAL.
func (c *Controller) selectMode() {
	switch {
	case c.faults.LevelFaulted():
		c.mode = ModeRescue
	case c.faults.NonLevelFaulted():
		c.mode = ModeDegraded
	default:
		c.mode = ModeNormal
	}
}

// safetyMarginOK implements spec §4.4: checked after choosing the next
// tick's commands, using the expectation window just computed and the
// one-pump-margin rule on the current reading.
func (c *Controller) safetyMarginOK(level, steam float64) bool {
	if c.expectation.Known {
		if c.expectation.Hi > c.cfg.SafetyMax || c.expectation.Lo < c.cfg.SafetyMin {
			return false
		}
	}
	// A level reading attributed to a fault this tick is not trustworthy
	// evidence of the physical water level; RESCUE relies on the
	// expectation window above instead of this raw-reading margin.
	if !c.faults.LevelFaulted() {
		if level-c.cfg.PumpCapacity <= c.cfg.SafetyMin || level+c.cfg.PumpCapacity >= c.cfg.SafetyMax {
			return false
		}
	}
	if c.mode == ModeRescue {
		lockedOff := c.faults.PumpsLockedOff()
		lockedOn := c.faults.PumpsLockedOn()
		maxAvailable := float64(c.cfg.Pumps-lockedOff) * c.cfg.PumpCapacity
		if maxAvailable < steam {
			return false
		}
		if float64(lockedOn)*c.cfg.PumpCapacity > steam {
			return false
		}
	}
	return true
}

func (c *Controller) emergencyStop(out *Mailbox) *Mailbox {
	c.mode = ModeEmergencyStop
	out.Send(ModeMessage(c.mode))
	return out
}
