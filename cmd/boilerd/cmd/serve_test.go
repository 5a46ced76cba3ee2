package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/sweeney/boilerd/internal/boiler"
	"github.com/sweeney/boilerd/internal/gpio"
	"github.com/sweeney/boilerd/internal/mqtt"
	"github.com/sweeney/boilerd/internal/status"
	"github.com/sweeney/boilerd/internal/web"
)

func TestOverrideWithGPIOReadbackReplacesPumpMessages(t *testing.T) {
	in := boiler.NewMailbox(
		boiler.DoubleMessage(boiler.KindLevel, 500),
		boiler.IndexedBool(boiler.KindPumpState, 0, true),
		boiler.IndexedBool(boiler.KindPumpControlState, 0, true),
	)
	actuator := gpio.NewFakeActuator(2)
	actuator.PumpStateSamples = []bool{true, false}
	actuator.PumpControlStateSamples = []bool{true, false}

	out, err := overrideWithGPIOReadback(in, actuator, 2)
	if err != nil {
		t.Fatalf("overrideWithGPIOReadback: %v", err)
	}

	states, ok := boiler.ExtractIndexed(out, boiler.KindPumpState, 2)
	if !ok {
		t.Fatal("expected both pump states present")
	}
	if !states[0].Bool || states[1].Bool {
		t.Errorf("pump states: got %v,%v want true,false", states[0].Bool, states[1].Bool)
	}

	if _, ok := boiler.ExtractUnique(out, boiler.KindLevel); !ok {
		t.Error("expected non-pump messages to survive the override")
	}
}

func TestOverrideWithGPIOReadbackPropagatesReadError(t *testing.T) {
	in := boiler.NewMailbox()
	actuator := gpio.NewFakeActuator(1)
	actuator.ReadError = errBoom

	if _, err := overrideWithGPIOReadback(in, actuator, 1); err == nil {
		t.Error("expected an error from a failing actuator read")
	}
}

func TestApplyGPIOCommandsDrivesActuator(t *testing.T) {
	out := boiler.NewMailbox(
		boiler.Indexed(boiler.KindOpenPump, 0),
		boiler.Indexed(boiler.KindClosePump, 1),
		boiler.Plain(boiler.KindValve),
	)
	actuator := gpio.NewFakeActuator(2)

	if err := applyGPIOCommands(out, actuator); err != nil {
		t.Fatalf("applyGPIOCommands: %v", err)
	}
	if len(actuator.OpenedPumps) != 1 || actuator.OpenedPumps[0] != 0 {
		t.Errorf("OpenedPumps: got %v", actuator.OpenedPumps)
	}
	if len(actuator.ClosedPumps) != 1 || actuator.ClosedPumps[0] != 1 {
		t.Errorf("ClosedPumps: got %v", actuator.ClosedPumps)
	}
	if actuator.ValveToggles != 1 {
		t.Errorf("ValveToggles: got %d, want 1", actuator.ValveToggles)
	}
}

func TestApplyGPIOCommandsReturnsFirstError(t *testing.T) {
	out := boiler.NewMailbox(boiler.Indexed(boiler.KindOpenPump, 0))
	actuator := gpio.NewFakeActuator(1)
	actuator.WriteError = errBoom

	if err := applyGPIOCommands(out, actuator); err == nil {
		t.Error("expected an error from a failing actuator write")
	}
}

func TestRunTickLoopPublishesAndStopsOnCancel(t *testing.T) {
	cfg := boiler.DefaultConfiguration()
	controller := boiler.NewController(cfg)
	client := mqtt.NewFakeClient()
	tracker := status.NewTracker(time.Now(), status.Config{Pumps: cfg.Pumps})
	dashboard := web.New(":0", tracker)

	ticks := make(chan *boiler.Mailbox, 1)
	ticks <- boiler.NewMailbox(
		boiler.Plain(boiler.KindSteamBoilerWaiting),
		boiler.DoubleMessage(boiler.KindLevel, cfg.Target()),
		boiler.DoubleMessage(boiler.KindSteam, 0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runTickLoop(ctx, ticks, controller, client, nil, tracker, dashboard, "boiler-1", cfg.Pumps)
	}()

	deadline := time.After(2 * time.Second)
	for len(client.Commands) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a published tick")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runTickLoop returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runTickLoop did not stop after cancel")
	}

	if controller.Mode() != boiler.ModeReady {
		t.Errorf("Mode: got %v, want READY", controller.Mode())
	}
}

func TestLogFailureDetectionsDoesNotPanicOnCleanTick(t *testing.T) {
	out := boiler.NewMailbox(boiler.ModeMessage(boiler.ModeNormal))
	logFailureDetections(out)
}

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom error = boomError{}
