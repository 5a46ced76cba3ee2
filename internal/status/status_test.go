package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/boilerd/internal/boiler"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{TickSeconds: 5, Broker: "tcp://localhost:1883", HTTPAddr: ":8080", Pumps: 4}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.Pumps != 4 {
		t.Errorf("Config.Pumps: got %d, want 4", snap.Config.Pumps)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
	if len(snap.PumpCommand) != 4 {
		t.Errorf("expected 4 pump slots, got %d", len(snap.PumpCommand))
	}
}

func TestUpdateTickAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{Pumps: 2})
	faults := boiler.NewFaultRegistry(2)

	tr.UpdateTick(boiler.ModeNormal, 500, 10, true,
		[]bool{true, false}, []bool{true, false}, []bool{true, false}, faults)

	snap := tr.Snapshot()
	if snap.Mode != boiler.ModeNormal {
		t.Errorf("Mode: got %v, want NORMAL", snap.Mode)
	}
	if snap.Level != 500 || snap.Steam != 10 {
		t.Errorf("unexpected level/steam: %v/%v", snap.Level, snap.Steam)
	}
	if !snap.ValveOpen {
		t.Error("expected ValveOpen=true")
	}
	if !snap.PumpCommand[0] || snap.PumpCommand[1] {
		t.Errorf("unexpected pump command: %v", snap.PumpCommand)
	}
	if snap.AnyFaulted() {
		t.Error("expected no faults on a fresh registry")
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{Pumps: 1})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{Pumps: 1})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{Pumps: 2})
	faults := boiler.NewFaultRegistry(2)

	tr.UpdateTick(boiler.ModeNormal, 500, 10, false,
		[]bool{true, false}, []bool{true, false}, []bool{true, false}, faults)
	snap1 := tr.Snapshot()

	tr.UpdateTick(boiler.ModeDegraded, 600, 20, true,
		[]bool{false, true}, []bool{false, true}, []bool{false, true}, faults)

	if snap1.Mode != boiler.ModeNormal {
		t.Error("snapshot should be a copy; Mode was modified")
	}
	if snap1.PumpCommand[0] != true {
		t.Error("snapshot should be a copy; PumpCommand slice was modified")
	}
}

func TestUpdateTickReflectsFaults(t *testing.T) {
	cfg := boiler.DefaultConfiguration()
	c := boiler.NewController(cfg)

	// Drive the controller to RESCUE via a level sensor stuck at capacity,
	// producing a real faulted registry to snapshot.
	in := boiler.NewMailbox(boiler.Plain(boiler.KindSteamBoilerWaiting),
		boiler.DoubleMessage(boiler.KindLevel, cfg.Target()), boiler.DoubleMessage(boiler.KindSteam, 0))
	c.Tick(in)
	in = boiler.NewMailbox(boiler.Plain(boiler.KindPhysicalUnitsReady))
	c.Tick(in)

	pumpCommand := make([]bool, cfg.Pumps)
	applyCommands := func(out *boiler.Mailbox) {
		for _, m := range out.All() {
			switch m.Kind {
			case boiler.KindOpenPump:
				pumpCommand[m.Pump] = true
			case boiler.KindClosePump:
				pumpCommand[m.Pump] = false
			}
		}
	}
	sensorsFor := func(level, steam float64) *boiler.Mailbox {
		mb := boiler.NewMailbox(
			boiler.DoubleMessage(boiler.KindLevel, level),
			boiler.DoubleMessage(boiler.KindSteam, steam),
		)
		for i := 0; i < cfg.Pumps; i++ {
			mb.Send(boiler.IndexedBool(boiler.KindPumpState, i, pumpCommand[i]))
			mb.Send(boiler.IndexedBool(boiler.KindPumpControlState, i, pumpCommand[i]))
		}
		return mb
	}

	// One settled NORMAL tick first, so the controller forms a known
	// expectation window before the stuck reading arrives — an unknown
	// expectation treats any level as normal (see expectation.go).
	applyCommands(c.Tick(sensorsFor(cfg.Target(), 0)))
	applyCommands(c.Tick(sensorsFor(cfg.Capacity, 0)))

	tr := NewTracker(time.Now(), Config{Pumps: cfg.Pumps})
	tr.UpdateTick(c.Mode(), cfg.Capacity, 0, false,
		make([]bool, cfg.Pumps), make([]bool, cfg.Pumps), make([]bool, cfg.Pumps), c.Faults())

	snap := tr.Snapshot()
	if !snap.AnyFaulted() {
		t.Error("expected AnyFaulted=true once the level slot is faulted")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{TickSeconds: 5, Broker: "tcp://localhost:1883", HTTPAddr: ":8080", Pumps: 2})
	faults := boiler.NewFaultRegistry(2)
	tr.UpdateTick(boiler.ModeNormal, 500, 10, false,
		[]bool{true, false}, []bool{true, false}, []bool{true, false}, faults)
	tr.SetMQTTConnected(true)

	snap := tr.Snapshot()
	snap.Now = start.Add(15 * time.Minute)
	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Mode != "NORMAL" {
		t.Errorf("Mode: got %q, want NORMAL", parsed.Status.Mode)
	}
	if parsed.Status.Level != 500 {
		t.Errorf("Level: got %v, want 500", parsed.Status.Level)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if len(parsed.Status.Pumps) != 2 {
		t.Fatalf("expected 2 pumps in JSON, got %d", len(parsed.Status.Pumps))
	}
	if !parsed.Status.Pumps[0].Command {
		t.Error("expected pump 0 command=true")
	}
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{Pumps: 1, Broker: "tcp://localhost:1883"})
	faults := boiler.NewFaultRegistry(1)
	tr.UpdateTick(boiler.ModeDegraded, 600, 20, false, []bool{true}, []bool{false}, []bool{false}, faults)

	data := FormatStatusEvent(tr.Snapshot(), "PUMP_FAILURE_DETECTION", "pump 0 stuck off")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "PUMP_FAILURE_DETECTION" {
		t.Errorf("Event: got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "pump 0 stuck off" {
		t.Errorf("Reason: got %q", parsed.Status.Reason)
	}
	if parsed.Status.Mode != "DEGRADED" {
		t.Errorf("Mode: got %q, want DEGRADED", parsed.Status.Mode)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{Pumps: 1})
	faults := boiler.NewFaultRegistry(1)
	tr.UpdateTick(boiler.ModeNormal, 500, 0, false, []bool{false}, []bool{false}, []bool{false}, faults)

	data := FormatStatusEvent(tr.Snapshot(), "MODE_CHANGE", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "MODE_CHANGE" {
		t.Errorf("event: got %v, want MODE_CHANGE", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{Pumps: 2})
	faults := boiler.NewFaultRegistry(2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.UpdateTick(boiler.ModeNormal, float64(i), 0, i%2 == 0,
				[]bool{true, false}, []bool{true, false}, []bool{true, false}, faults)
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
