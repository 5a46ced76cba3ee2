package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/boilerd/internal/boiler"
	"github.com/sweeney/boilerd/internal/config"
	"github.com/sweeney/boilerd/internal/gpio"
	"github.com/sweeney/boilerd/internal/mqtt"
	"github.com/sweeney/boilerd/internal/status"
	"github.com/sweeney/boilerd/internal/web"
)

// plantLink is everything the tick loop needs from the MQTT transport:
// publishing the controller's outbound traffic and reporting connection
// health for the dashboard. mqtt.RealClient and mqtt.FakeClient both
// satisfy it.
type plantLink interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the controller against the plant link and serve the status dashboard",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	file, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	plantCfg, err := file.ToBoilerConfig()
	if err != nil {
		return fmt.Errorf("invalid plant configuration: %w", err)
	}

	watcher, err := config.WatchFile(v.ConfigFileUsed())
	if err != nil {
		log.Printf("serve: not watching config file for changes: %v", err)
	} else {
		defer watcher.Close()
	}

	controller := boiler.NewController(plantCfg)

	tracker := status.NewTracker(time.Now(), status.Config{
		TickSeconds: file.TickSeconds,
		Broker:      file.MQTTBroker,
		HTTPAddr:    file.HTTPAddr,
		Pumps:       plantCfg.Pumps,
	})

	client, err := mqtt.NewRealClient(file.MQTTBroker, file.MQTTClientID, file.MQTTBufferCapacity)
	if err != nil {
		return fmt.Errorf("connect to mqtt broker: %w", err)
	}
	defer client.Close()

	var actuator gpio.Actuator
	if file.GPIO.Enabled {
		actuator, err = gpio.NewRealActuator(file.GPIO.PinMap())
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer actuator.Close()
		log.Printf("serve: gpio actuation enabled on %s", file.GPIO.Chip)
	}

	dashboard := web.New(file.HTTPAddr, tracker)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := dashboard.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http dashboard: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return dashboard.Shutdown(context.Background())
	})

	ticks := make(chan *boiler.Mailbox, 1)
	if err := client.Subscribe(file.BoilerID, func(mb *boiler.Mailbox) {
		select {
		case ticks <- mb:
		default:
			log.Printf("serve: dropped a tick, consumer is falling behind")
		}
	}); err != nil {
		return fmt.Errorf("subscribe to tick topic: %w", err)
	}

	g.Go(func() error {
		return runTickLoop(gctx, ticks, controller, client, actuator, tracker, dashboard, file.BoilerID, plantCfg.Pumps)
	})

	log.Printf("serve: listening for boiler %q on %s, dashboard on %s", file.BoilerID, file.MQTTBroker, file.HTTPAddr)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("serve: shut down cleanly")
	return nil
}

// runTickLoop consumes decoded tick mailboxes until ctx is cancelled,
// driving the controller and pushing its outbound mailbox back out over
// MQTT (and, if actuator is non-nil, over GPIO).
func runTickLoop(ctx context.Context, ticks <-chan *boiler.Mailbox, controller *boiler.Controller, client plantLink, actuator gpio.Actuator, tracker *status.Tracker, dashboard *web.Server, boilerID string, pumps int) error {
	lastMode := controller.Mode()

	for {
		select {
		case <-ctx.Done():
			return nil

		case in := <-ticks:
			if in == nil {
				continue
			}

			if actuator != nil {
				var err error
				in, err = overrideWithGPIOReadback(in, actuator, pumps)
				if err != nil {
					log.Printf("serve: gpio readback error: %v", err)
					continue
				}
			}

			out := controller.Tick(in)

			if actuator != nil {
				if err := applyGPIOCommands(out, actuator); err != nil {
					log.Printf("serve: gpio actuation error: %v", err)
				}
			}

			if err := client.PublishCommands(boilerID, out); err != nil {
				log.Printf("serve: publish commands: %v", err)
			}
			mode := controller.Mode()
			if mode != lastMode {
				if err := client.PublishMode(boilerID, mode); err != nil {
					log.Printf("serve: publish mode: %v", err)
				}
				dashboard.Broadcast("MODE", fmt.Sprintf("%s -> %s", lastMode, mode))
				lastMode = mode
			}

			logFailureDetections(out)

			updateTracker(tracker, dashboard, controller, in, out, pumps, client)
		}
	}
}

// logFailureDetections tags every FAILURE_DETECTION message in out with a
// fresh correlation ID and logs it, so an operator can cross-reference this
// log line with the repair ticket raised against the plant.
func logFailureDetections(out *boiler.Mailbox) {
	for _, m := range out.All() {
		switch m.Kind {
		case boiler.KindLevelFailureDetection:
			log.Printf("failure_detection correlation_id=%s component=level", uuid.New())
		case boiler.KindSteamFailureDetection:
			log.Printf("failure_detection correlation_id=%s component=steam", uuid.New())
		case boiler.KindPumpFailureDetection:
			log.Printf("failure_detection correlation_id=%s component=pump[%d]", uuid.New(), m.Pump)
		case boiler.KindPumpControlFailureDetection:
			log.Printf("failure_detection correlation_id=%s component=controller[%d]", uuid.New(), m.Pump)
		}
	}
}

// overrideWithGPIOReadback replaces the PUMP_STATE/PUMP_CONTROL_STATE
// messages the plant link reported with a fresh read of the GPIO input
// lines (spec §6: GPIO owns the physical subset once enabled).
func overrideWithGPIOReadback(in *boiler.Mailbox, actuator gpio.Actuator, pumps int) (*boiler.Mailbox, error) {
	out := boiler.NewMailbox()
	for _, m := range in.All() {
		if m.Kind == boiler.KindPumpState || m.Kind == boiler.KindPumpControlState {
			continue
		}
		out.Send(m)
	}
	for i := 0; i < pumps; i++ {
		state, err := actuator.PumpState(i)
		if err != nil {
			return nil, fmt.Errorf("read pump %d state: %w", i, err)
		}
		ctrlState, err := actuator.PumpControlState(i)
		if err != nil {
			return nil, fmt.Errorf("read pump %d control state: %w", i, err)
		}
		out.Send(boiler.IndexedBool(boiler.KindPumpState, i, state))
		out.Send(boiler.IndexedBool(boiler.KindPumpControlState, i, ctrlState))
	}
	return out, nil
}

// applyGPIOCommands drives the actuator's output lines from the
// controller's outbound mailbox.
func applyGPIOCommands(out *boiler.Mailbox, actuator gpio.Actuator) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, m := range out.All() {
		switch m.Kind {
		case boiler.KindOpenPump:
			record(actuator.OpenPump(m.Pump))
		case boiler.KindClosePump:
			record(actuator.ClosePump(m.Pump))
		case boiler.KindValve:
			record(actuator.ToggleValve())
		}
	}
	return firstErr
}

// updateTracker refreshes the dashboard snapshot and, if the tick carried
// a FAILURE_DETECTION, pushes it to connected browsers immediately rather
// than waiting for the next mode change.
func updateTracker(tracker *status.Tracker, dashboard *web.Server, controller *boiler.Controller, in, out *boiler.Mailbox, pumps int, client plantLink) {
	level, _ := boiler.ExtractUnique(in, boiler.KindLevel)
	steam, _ := boiler.ExtractUnique(in, boiler.KindSteam)
	pumpState, _ := boiler.ExtractIndexed(in, boiler.KindPumpState, pumps)
	ctrlState, _ := boiler.ExtractIndexed(in, boiler.KindPumpControlState, pumps)

	pumpCommand := make([]bool, pumps)
	var detections []string
	for _, m := range out.All() {
		switch m.Kind {
		case boiler.KindOpenPump:
			pumpCommand[m.Pump] = true
		case boiler.KindClosePump:
			pumpCommand[m.Pump] = false
		case boiler.KindLevelFailureDetection:
			detections = append(detections, "level")
		case boiler.KindSteamFailureDetection:
			detections = append(detections, "steam")
		case boiler.KindPumpFailureDetection:
			detections = append(detections, fmt.Sprintf("pump[%d]", m.Pump))
		case boiler.KindPumpControlFailureDetection:
			detections = append(detections, fmt.Sprintf("controller[%d]", m.Pump))
		}
	}

	pumpStateBools := make([]bool, pumps)
	ctrlStateBools := make([]bool, pumps)
	for i := 0; i < pumps; i++ {
		if pumpState != nil {
			pumpStateBools[i] = pumpState[i].Bool
		}
		if ctrlState != nil {
			ctrlStateBools[i] = ctrlState[i].Bool
		}
	}

	tracker.UpdateTick(controller.Mode(), level.Double, steam.Double, controller.ValveOpen(), pumpCommand, pumpStateBools, ctrlStateBools, controller.Faults())
	if client != nil {
		tracker.SetMQTTConnected(client.IsConnected())
	}
	for _, component := range detections {
		dashboard.Broadcast("FAILURE_DETECTION", component)
	}
}
