package main

import (
	"fmt"

	"github.com/krisarmstrong/switchsim/internal/simconfig"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration tools",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Load and validate a simulator configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := simconfig.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("ok: %d port(s), stp=%v, rip=%v, ospf=%v, %d seeded route(s)\n",
		len(cfg.Ports), cfg.STP.Enabled, cfg.RIP.Enabled, cfg.OSPF.Enabled, len(cfg.Routes))
	return nil
}
