// Command switchtop is a read-only terminal dashboard: it polls a
// running switchsimd's administrative HTTP API for port and
// spanning-tree state and renders it live, refreshing on an interval.
// It never issues a mutating request — no config changes, no frame
// injection.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "switchsimd administrative HTTP API base URL")
	token := flag.String("token", "", "bearer token, if the API requires one")
	interval := flag.Duration("interval", time.Second, "poll interval")
	flag.Parse()

	client := newAPIClient(*addr, *token)
	m := newModel(client, *addr, *interval)

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
