package boiler

import "testing"

func TestPlanPumpCountChoosesClosestToTarget(t *testing.T) {
	cfg := DefaultConfiguration()

	k, exp := planPumpCount(cfg, cfg.Target(), 0, false, 0, 0)
	if k < 0 || k > cfg.Pumps {
		t.Fatalf("pump count %d out of range", k)
	}
	if !exp.Known {
		t.Fatal("expected a known expectation window")
	}
	if exp.Lo > exp.Hi {
		t.Fatalf("malformed window [%v, %v]", exp.Lo, exp.Hi)
	}
}

func TestPlanPumpCountRespectsLockedRange(t *testing.T) {
	cfg := DefaultConfiguration()

	k, _ := planPumpCount(cfg, cfg.Target(), 0, false, 2, 1)
	if k < 2 || k > cfg.Pumps-1 {
		t.Fatalf("pump count %d violates locked range [2, %d]", k, cfg.Pumps-1)
	}
}

func TestPlanPumpCountLowersWindowForBrokenValve(t *testing.T) {
	cfg := DefaultConfiguration()

	// Pin k to 1 through the locked range so both calls plan the same
	// pump count; left free, the planner opens more pumps to offset the
	// valve and lands on the same upper bound.
	_, open := planPumpCount(cfg, cfg.Target(), 0, false, 1, cfg.Pumps-1)
	_, broken := planPumpCount(cfg, cfg.Target(), 0, true, 1, cfg.Pumps-1)

	if broken.Hi >= open.Hi {
		t.Errorf("broken-valve window should be lower than an intact valve's: broken=%v open=%v", broken.Hi, open.Hi)
	}
}

func TestInitialFillPumpCountStaysWithinRange(t *testing.T) {
	cfg := DefaultConfiguration()

	k, exp := initialFillPumpCount(cfg, cfg.SafetyMin)
	if k < 1 || k > cfg.Pumps {
		t.Fatalf("initial fill pump count %d out of [1, %d]", k, cfg.Pumps)
	}
	if !exp.Known {
		t.Fatal("expected a known expectation window")
	}
}

func TestInitialFillPumpCountNearTargetChoosesFewPumps(t *testing.T) {
	cfg := DefaultConfiguration()

	// Starting one pump's worth of fill (5*Q=25) below target, a single
	// pump already lands on target.
	k, _ := initialFillPumpCount(cfg, cfg.Target()-5*cfg.PumpCapacity)
	if k > 2 {
		t.Errorf("expected a small pump count near the band, got %d", k)
	}
}
