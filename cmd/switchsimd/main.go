// Command switchsimd runs the switch simulator: it loads a topology
// configuration, wires the port substrate, processor chain, L2
// forwarding, STP, the routing table and its protocol adapters, and
// the hardware-simulation tick, then serves the administrative HTTP
// surface until interrupted. No SNMP listener is started.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "v0.1.0"
	commit  = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "switchsimd",
	Short:   "Ethernet switch simulator daemon",
	Version: version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("switchsimd %s (commit: %s)\n", version, commit))
	rootCmd.AddCommand(runCmd, configCmd, portCmd, routeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
