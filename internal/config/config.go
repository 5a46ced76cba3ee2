// Package config loads the boiler daemon's configuration: the §3 plant
// parameters plus daemon-level settings (tick interval, MQTT broker,
// GPIO pin map, HTTP dashboard address). Spec.md §3 requires the plant
// Configuration be immutable once the daemon starts, so this package
// loads once at startup — a file change afterward only produces a
// log warning, never a live reconfiguration.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"

	"github.com/sweeney/boilerd/internal/boiler"
	"github.com/sweeney/boilerd/internal/gpio"
)

// File is the on-disk representation of the daemon's full configuration:
// the plant parameters of boiler.Configuration plus everything the
// daemon itself needs to run.
type File struct {
	BoilerID string `mapstructure:"boiler_id"`

	Capacity       float64 `mapstructure:"capacity"`
	NormalMin      float64 `mapstructure:"normal_min"`
	NormalMax      float64 `mapstructure:"normal_max"`
	SafetyMin      float64 `mapstructure:"safety_min"`
	SafetyMax      float64 `mapstructure:"safety_max"`
	Pumps          int     `mapstructure:"pumps"`
	PumpCapacity   float64 `mapstructure:"pump_capacity"`
	MaxSteamRate   float64 `mapstructure:"max_steam_rate"`
	EvacuationRate float64 `mapstructure:"evacuation_rate"`

	TickSeconds float64 `mapstructure:"tick_seconds"`

	MQTTBroker         string `mapstructure:"mqtt_broker"`
	MQTTClientID       string `mapstructure:"mqtt_client_id"`
	MQTTBufferCapacity int    `mapstructure:"mqtt_buffer_capacity"`

	HTTPAddr string `mapstructure:"http_addr"`

	GPIO GPIOFile `mapstructure:"gpio"`
}

// GPIOFile is the on-disk representation of a gpio.PinMap. Enabled is
// false by default — most installations actuate pumps purely over MQTT.
type GPIOFile struct {
	Enabled          bool   `mapstructure:"enabled"`
	Chip             string `mapstructure:"chip"`
	PumpCommand      []int  `mapstructure:"pump_command"`
	PumpState        []int  `mapstructure:"pump_state"`
	PumpControlState []int  `mapstructure:"pump_control_state"`
	Valve            int    `mapstructure:"valve"`
}

// PinMap converts GPIOFile to a gpio.PinMap.
func (g GPIOFile) PinMap() gpio.PinMap {
	return gpio.PinMap{
		Chip:             g.Chip,
		PumpCommand:      g.PumpCommand,
		PumpState:        g.PumpState,
		PumpControlState: g.PumpControlState,
		Valve:            g.Valve,
	}
}

// DefaultConfigPath is the YAML file read when no --config flag names one
// and a file exists at this path.
const DefaultConfigPath = "/etc/boilerd/boilerd.yaml"

// Load reads configuration from v — a Viper instance already primed with
// a config file path (or none, to accept only defaults/env/flags), the
// BOILERD env prefix, and any bound Cobra flags — applying the scenario
// defaults from boiler.DefaultConfiguration for every plant parameter
// not otherwise set.
func Load(v *viper.Viper) (File, error) {
	def := boiler.DefaultConfiguration()

	v.SetDefault("boiler_id", "boiler-1")
	v.SetDefault("capacity", def.Capacity)
	v.SetDefault("normal_min", def.NormalMin)
	v.SetDefault("normal_max", def.NormalMax)
	v.SetDefault("safety_min", def.SafetyMin)
	v.SetDefault("safety_max", def.SafetyMax)
	v.SetDefault("pumps", def.Pumps)
	v.SetDefault("pump_capacity", def.PumpCapacity)
	v.SetDefault("max_steam_rate", def.MaxSteamRate)
	v.SetDefault("evacuation_rate", def.EvacuationRate)
	v.SetDefault("tick_seconds", 5.0)
	v.SetDefault("mqtt_broker", "tcp://localhost:1883")
	v.SetDefault("mqtt_client_id", "boilerd")
	v.SetDefault("mqtt_buffer_capacity", 256)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("gpio.enabled", false)
	v.SetDefault("gpio.chip", "gpiochip0")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !errors.Is(err, fs.ErrNotExist) {
			return File{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return File{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return f, nil
}

// ToBoilerConfig converts the plant-parameter subset of f to a
// boiler.Configuration and runs the §3 invariant check, returning an
// error that names the first violated inequality.
func (f File) ToBoilerConfig() (boiler.Configuration, error) {
	cfg := boiler.Configuration{
		Capacity:       f.Capacity,
		NormalMin:      f.NormalMin,
		NormalMax:      f.NormalMax,
		SafetyMin:      f.SafetyMin,
		SafetyMax:      f.SafetyMax,
		Pumps:          f.Pumps,
		PumpCapacity:   f.PumpCapacity,
		MaxSteamRate:   f.MaxSteamRate,
		EvacuationRate: f.EvacuationRate,
	}
	if err := cfg.Validate(); err != nil {
		return boiler.Configuration{}, err
	}
	return cfg, nil
}
