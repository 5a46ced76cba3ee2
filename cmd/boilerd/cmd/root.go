package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sweeney/boilerd/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "boilerd",
	Short: "Steam-boiler feedback controller daemon",
	Long: `boilerd ticks a safety-critical feedback controller for a steam
boiler: it decides pump counts, the evacuation valve, peripheral fault
diagnosis, the repair handshake and the operating mode once per tick,
driven by the plant link over MQTT and, optionally, direct GPIO
actuation of pumps and the valve.`,
}

// Execute runs the command tree, returning the error Cobra already
// printed so main can set the process exit code.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("config", "", fmt.Sprintf("config file (default %s)", config.DefaultConfigPath))
	rootCmd.PersistentFlags().String("boiler-id", "", "boiler identifier, used in MQTT topic names (overrides config/env)")
	rootCmd.PersistentFlags().String("mqtt-broker", "", "MQTT broker address (overrides config/env)")
	rootCmd.PersistentFlags().String("http-addr", "", "HTTP dashboard listen address (overrides config/env)")
}

// newViper builds a Viper instance primed the way the rest of this
// command tree expects: BOILERD_* env vars, the --config flag (or
// config.DefaultConfigPath if that file exists and --config was not
// given), and the persistent flags bound over everything else.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("BOILERD")
	v.AutomaticEnv()

	cfgFile, _ := cmd.Flags().GetString("config")
	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	default:
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			v.SetConfigFile(config.DefaultConfigPath)
		}
	}

	if err := v.BindPFlag("boiler_id", cmd.Flags().Lookup("boiler-id")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("mqtt_broker", cmd.Flags().Lookup("mqtt-broker")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("http_addr", cmd.Flags().Lookup("http-addr")); err != nil {
		return nil, err
	}
	return v, nil
}
