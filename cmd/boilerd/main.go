// Command boilerd runs the steam-boiler feedback controller: it ticks the
// pure boiler.Controller against the plant link (MQTT, optionally GPIO)
// and serves a status dashboard.
package main

import (
	"os"

	"github.com/sweeney/boilerd/cmd/boilerd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
