package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/krisarmstrong/switchsim/internal/logsink"
	"github.com/krisarmstrong/switchsim/internal/simconfig"
	"github.com/krisarmstrong/switchsim/mgmt/httpapi"
	"github.com/spf13/cobra"
)

var runOpts struct {
	configPath string
	httpAddr   string
	httpToken  string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the switch simulator daemon",
	Long: `Load a topology configuration, build the simulator, and serve it
until interrupted.

Brings up the port substrate, L2 forwarding, STP, the routing table and
its protocol adapters, and the hardware-simulation tick, then optionally
exposes the administrative HTTP API. mgmt/snmp's read-only MIB builder
has no wire-protocol listener wired to it yet.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.configPath, "config", "c", "", "path to simulator configuration (required)")
	runCmd.Flags().StringVar(&runOpts.httpAddr, "http-listen", "", "address to serve the administrative HTTP API on (empty disables it)")
	runCmd.Flags().StringVar(&runOpts.httpToken, "http-token", "", "bearer token for the administrative HTTP API")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := simconfig.Load(runOpts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sim, err := Build(cfg)
	if err != nil {
		return fmt.Errorf("build simulator: %w", err)
	}

	if err := sim.Start(); err != nil {
		return fmt.Errorf("start simulator: %w", err)
	}
	sim.Log.Log(logsink.System, logsink.Info, "switchsimd started: %d port(s)", sim.Substrate.Count())

	var httpServer *httpapi.Server
	if runOpts.httpAddr != "" {
		httpServer = httpapi.NewServer(httpapi.Deps{
			Substrate: sim.Substrate,
			MACTable:  sim.MACTable,
			Bridge:    sim.Bridge,
			Routes:    sim.Routes,
			Loop:      sim.Loop,
			Alloc:     sim.Alloc,
		}, runOpts.httpToken)
		if err := httpServer.Start(runOpts.httpAddr); err != nil {
			sim.Stop()
			return fmt.Errorf("start http api: %w", err)
		}
		sim.Log.Log(logsink.System, logsink.Info, "administrative HTTP API listening on %s", runOpts.httpAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	sim.Log.Log(logsink.System, logsink.Info, "shutting down")
	if httpServer != nil {
		if err := httpServer.Shutdown(); err != nil {
			sim.Log.Log(logsink.System, logsink.Warn, "http shutdown: %v", err)
		}
	}
	return sim.Stop()
}
