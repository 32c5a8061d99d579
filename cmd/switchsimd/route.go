package main

import (
	"fmt"

	"github.com/krisarmstrong/switchsim/internal/simconfig"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Inspect seeded routes",
}

var routeShowCmd = &cobra.Command{
	Use:   "show <config-file>",
	Short: "Print the routes a configuration file would seed",
	Args:  cobra.ExactArgs(1),
	RunE:  runRouteShow,
}

func init() {
	routeCmd.AddCommand(routeShowCmd)
}

func runRouteShow(cmd *cobra.Command, args []string) error {
	cfg, err := simconfig.Load(args[0])
	if err != nil {
		return err
	}
	for _, r := range cfg.Routes {
		source := r.Source
		if source == "" {
			source = "static"
		}
		fmt.Printf("%-18s via %-15s dev %-10s metric=%-4d source=%s\n",
			r.Prefix, r.NextHop, r.Port, r.Metric, source)
	}
	return nil
}
