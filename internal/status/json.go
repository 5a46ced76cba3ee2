package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Mode          string      `json:"mode"`
	Level         float64     `json:"level"`
	Steam         float64     `json:"steam"`
	ValveOpen     bool        `json:"valve_open"`
	Pumps         []PumpJSON  `json:"pumps"`
	Faults        FaultsJSON  `json:"faults"`
	AnyFaulted    bool        `json:"any_faulted"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// PumpJSON is the JSON representation of one pump's command/readback
// state and fault status.
type PumpJSON struct {
	Index      int       `json:"index"`
	Command    bool      `json:"command"`
	State      bool      `json:"state"`
	Controller bool      `json:"controller"`
	Fault      FaultJSON `json:"fault"`
	ControlFault FaultJSON `json:"control_fault"`
}

// FaultJSON is the JSON representation of one FaultView.
type FaultJSON struct {
	Kind         string `json:"kind"`
	Acknowledged bool   `json:"acknowledged"`
}

// FaultsJSON groups the non-pump fault slots.
type FaultsJSON struct {
	Valve FaultJSON `json:"valve"`
	Steam FaultJSON `json:"steam"`
	Level FaultJSON `json:"level"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickSeconds float64 `json:"tick_seconds"`
	Broker      string  `json:"broker"`
	HTTPAddr    string  `json:"http_addr"`
	Pumps       int     `json:"pumps"`
}

func faultJSON(v FaultView) FaultJSON {
	return FaultJSON{Kind: v.Kind, Acknowledged: v.Acknowledged}
}

func buildInner(snap Snapshot) StatusInner {
	pumps := make([]PumpJSON, len(snap.PumpCommand))
	for i := range pumps {
		pumps[i] = PumpJSON{
			Index:        i,
			Command:      snap.PumpCommand[i],
			State:        snap.PumpState[i],
			Controller:   snap.PumpControlState[i],
			Fault:        faultJSON(snap.Pumps[i]),
			ControlFault: faultJSON(snap.Control[i]),
		}
	}

	return StatusInner{
		Mode:          snap.Mode.String(),
		Level:         snap.Level,
		Steam:         snap.Steam,
		ValveOpen:     snap.ValveOpen,
		Pumps:         pumps,
		Faults: FaultsJSON{
			Valve: faultJSON(snap.ValveFault),
			Steam: faultJSON(snap.SteamFault),
			Level: faultJSON(snap.LevelFault),
		},
		AnyFaulted:    snap.AnyFaulted(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			TickSeconds: snap.Config.TickSeconds,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Pumps:       snap.Config.Pumps,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for a pushed dashboard event
// (a mode transition or failure detection).
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
