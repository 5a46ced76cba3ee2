package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/boilerd/internal/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load the configuration and check the §3 plant invariant, without connecting to anything",
	RunE:  runValidateConfig,
}

func init() {
	rootCmd.AddCommand(validateConfigCmd)
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
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
		fmt.Fprintf(os.Stderr, "✗ invalid plant configuration: %v\n", err)
		os.Exit(1)
	}

	source := v.ConfigFileUsed()
	if source == "" {
		source = "(defaults/env/flags only, no file found)"
	}
	fmt.Printf("✓ %s\n", source)
	fmt.Printf("  boiler_id=%s capacity=%.0f target=%.0f pumps=%d\n",
		file.BoilerID, plantCfg.Capacity, plantCfg.Target(), plantCfg.Pumps)
	fmt.Printf("  normal=[%.0f,%.0f] safety=[%.0f,%.0f]\n",
		plantCfg.NormalMin, plantCfg.NormalMax, plantCfg.SafetyMin, plantCfg.SafetyMax)
	fmt.Printf("  mqtt_broker=%s http_addr=%s gpio_enabled=%v\n",
		file.MQTTBroker, file.HTTPAddr, file.GPIO.Enabled)
	return nil
}
