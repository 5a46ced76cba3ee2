// Package mqtt is the boiler's plant link: a JSON wire codec for the tick
// message bundle of spec §6, plus the transport that moves it across an
// MQTT broker. Wire format and transport live together, as in the
// reference publisher this package is grounded on.
package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/sweeney/boilerd/internal/boiler"
)

// TickTopic carries the plant's per-tick mailbox for boiler id.
func TickTopic(id string) string { return fmt.Sprintf("boiler/%s/tick", id) }

// CommandsTopic carries the controller's outbound mailbox for boiler id.
func CommandsTopic(id string) string { return fmt.Sprintf("boiler/%s/commands", id) }

// ModeTopic carries only the latest MODE message, retained, for boiler id.
func ModeTopic(id string) string { return fmt.Sprintf("boiler/%s/mode", id) }

// pumpReport is the wire shape of one pump's state pair within a tick.
type pumpReport struct {
	Pump       int  `json:"pump"`
	State      bool `json:"state"`
	Controller bool `json:"controller"`
}

// ackOrRepair is the wire shape of an indexed repair/ack message; Pump is
// omitted (zero value) for plain (non-indexed) kinds.
type ackOrRepair struct {
	Pump int `json:"pump"`
}

// tickEnvelope is the JSON document published to the tick topic: the full
// inbound mailbox for one tick (spec §6).
type tickEnvelope struct {
	Waiting            bool          `json:"waiting,omitempty"`
	PhysicalUnitsReady bool          `json:"physical_units_ready,omitempty"`
	Level              *float64      `json:"level,omitempty"`
	Steam              *float64      `json:"steam,omitempty"`
	Pumps              []pumpReport  `json:"pumps,omitempty"`
	LevelRepaired      bool          `json:"level_repaired,omitempty"`
	SteamRepaired      bool          `json:"steam_repaired,omitempty"`
	PumpRepaired       []ackOrRepair `json:"pump_repaired,omitempty"`
	PumpControlRepaired []ackOrRepair `json:"pump_control_repaired,omitempty"`
	LevelFailureAck    bool          `json:"level_failure_ack,omitempty"`
	SteamFailureAck    bool          `json:"steam_failure_ack,omitempty"`
	PumpFailureAck     []ackOrRepair `json:"pump_failure_ack,omitempty"`
	PumpControlFailureAck []ackOrRepair `json:"pump_control_failure_ack,omitempty"`
}

// DecodeTick parses one tick-topic JSON document into a boiler.Mailbox.
func DecodeTick(payload []byte) (*boiler.Mailbox, error) {
	var env tickEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("mqtt: decode tick: %w", err)
	}

	mb := boiler.NewMailbox()
	if env.Waiting {
		mb.Send(boiler.Plain(boiler.KindSteamBoilerWaiting))
	}
	if env.PhysicalUnitsReady {
		mb.Send(boiler.Plain(boiler.KindPhysicalUnitsReady))
	}
	if env.Level != nil {
		mb.Send(boiler.DoubleMessage(boiler.KindLevel, *env.Level))
	}
	if env.Steam != nil {
		mb.Send(boiler.DoubleMessage(boiler.KindSteam, *env.Steam))
	}
	for _, p := range env.Pumps {
		mb.Send(boiler.IndexedBool(boiler.KindPumpState, p.Pump, p.State))
		mb.Send(boiler.IndexedBool(boiler.KindPumpControlState, p.Pump, p.Controller))
	}
	if env.LevelRepaired {
		mb.Send(boiler.Plain(boiler.KindLevelRepaired))
	}
	if env.SteamRepaired {
		mb.Send(boiler.Plain(boiler.KindSteamRepaired))
	}
	for _, r := range env.PumpRepaired {
		mb.Send(boiler.Indexed(boiler.KindPumpRepaired, r.Pump))
	}
	for _, r := range env.PumpControlRepaired {
		mb.Send(boiler.Indexed(boiler.KindPumpControlRepaired, r.Pump))
	}
	if env.LevelFailureAck {
		mb.Send(boiler.Plain(boiler.KindLevelFailureAck))
	}
	if env.SteamFailureAck {
		mb.Send(boiler.Plain(boiler.KindSteamFailureAck))
	}
	for _, a := range env.PumpFailureAck {
		mb.Send(boiler.Indexed(boiler.KindPumpFailureAck, a.Pump))
	}
	for _, a := range env.PumpControlFailureAck {
		mb.Send(boiler.Indexed(boiler.KindPumpControlFailureAck, a.Pump))
	}
	return mb, nil
}

// outboundEnvelope is the JSON document published to the commands topic:
// the controller's outbound mailbox for one tick.
type outboundEnvelope struct {
	Mode                          string        `json:"mode,omitempty"`
	ProgramReady                  bool          `json:"program_ready,omitempty"`
	OpenPump                      []int         `json:"open_pump,omitempty"`
	ClosePump                     []int         `json:"close_pump,omitempty"`
	ValveToggled                  bool          `json:"valve_toggled,omitempty"`
	LevelFailureDetection         bool          `json:"level_failure_detection,omitempty"`
	SteamFailureDetection         bool          `json:"steam_failure_detection,omitempty"`
	PumpFailureDetection          []int         `json:"pump_failure_detection,omitempty"`
	PumpControlFailureDetection   []int         `json:"pump_control_failure_detection,omitempty"`
	LevelRepairedAck              bool          `json:"level_repaired_ack,omitempty"`
	SteamRepairedAck              bool          `json:"steam_repaired_ack,omitempty"`
	PumpRepairedAck               []int         `json:"pump_repaired_ack,omitempty"`
	PumpControlRepairedAck        []int         `json:"pump_control_repaired_ack,omitempty"`
}

// EncodeMailbox serializes the controller's outbound mailbox for the
// commands topic.
func EncodeMailbox(mb *boiler.Mailbox) ([]byte, error) {
	var env outboundEnvelope
	for _, m := range mb.All() {
		switch m.Kind {
		case boiler.KindMode:
			env.Mode = m.Mode.String()
		case boiler.KindProgramReady:
			env.ProgramReady = true
		case boiler.KindOpenPump:
			env.OpenPump = append(env.OpenPump, m.Pump)
		case boiler.KindClosePump:
			env.ClosePump = append(env.ClosePump, m.Pump)
		case boiler.KindValve:
			env.ValveToggled = true
		case boiler.KindLevelFailureDetection:
			env.LevelFailureDetection = true
		case boiler.KindSteamFailureDetection:
			env.SteamFailureDetection = true
		case boiler.KindPumpFailureDetection:
			env.PumpFailureDetection = append(env.PumpFailureDetection, m.Pump)
		case boiler.KindPumpControlFailureDetection:
			env.PumpControlFailureDetection = append(env.PumpControlFailureDetection, m.Pump)
		case boiler.KindLevelRepairedAck:
			env.LevelRepairedAck = true
		case boiler.KindSteamRepairedAck:
			env.SteamRepairedAck = true
		case boiler.KindPumpRepairedAck:
			env.PumpRepairedAck = append(env.PumpRepairedAck, m.Pump)
		case boiler.KindPumpControlRepairedAck:
			env.PumpControlRepairedAck = append(env.PumpControlRepairedAck, m.Pump)
		}
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("mqtt: encode mailbox: %w", err)
	}
	return payload, nil
}

// EncodeMode serializes just the latest MODE message for the retained
// mode topic.
func EncodeMode(m boiler.Mode) ([]byte, error) {
	return json.Marshal(struct {
		Mode string `json:"mode"`
	}{Mode: m.String()})
}

// Publisher publishes the controller's outbound traffic to the plant link.
// Implementations must not block the tick loop on broker health.
type Publisher interface {
	// PublishCommands sends the outbound mailbox for one tick.
	PublishCommands(boilerID string, mb *boiler.Mailbox) error
	// PublishMode sends the latest mode, retained.
	PublishMode(boilerID string, mode boiler.Mode) error
	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}
