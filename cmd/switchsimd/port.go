package main

import (
	"fmt"

	"github.com/krisarmstrong/switchsim/internal/simconfig"
	"github.com/spf13/cobra"
)

var portCmd = &cobra.Command{
	Use:   "port",
	Short: "Inspect port configuration",
}

var portShowCmd = &cobra.Command{
	Use:   "show <config-file>",
	Short: "Print the ports a configuration file would provision",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortShow,
}

func init() {
	portCmd.AddCommand(portShowCmd)
}

func runPortShow(cmd *cobra.Command, args []string) error {
	cfg, err := simconfig.Load(args[0])
	if err != nil {
		return err
	}
	for _, p := range cfg.Ports {
		fmt.Printf("%-12s mtu=%-4d pvid=%-3d trunk=%v carrier_loss=%.4f traffic_gen=%v\n",
			p.Name, p.MTU, p.PVID, p.TrunkVLANs, p.CarrierLossProbability, p.TrafficGenEnabled)
	}
	return nil
}
