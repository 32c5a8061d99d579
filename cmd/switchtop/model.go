package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/krisarmstrong/switchsim/mgmt/httpapi"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	upStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("82"))

	downStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))
)

type tickMsg time.Time

type portsMsg struct {
	views []httpapi.PortView
	err   error
}

type stpMsg struct {
	view *httpapi.STPView
	err  error
}

type model struct {
	client   *apiClient
	addr     string
	interval time.Duration

	ports    []httpapi.PortView
	stp      *httpapi.STPView
	lastErr  error
	startedAt time.Time
}

func newModel(client *apiClient, addr string, interval time.Duration) model {
	return model{
		client:    client,
		addr:      addr,
		interval:  interval,
		startedAt: time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, m.poll(), tickCmd(m.interval))
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) poll() tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			views, err := m.client.fetchPorts()
			return portsMsg{views: views, err: err}
		},
		func() tea.Msg {
			view, err := m.client.fetchSTP()
			return stpMsg{view: view, err: err}
		},
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(m.poll(), tickCmd(m.interval))
	case portsMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.lastErr = nil
			m.ports = msg.views
		}
	case stpMsg:
		if msg.err == nil {
			m.stp = msg.view
		}
	}
	return m, nil
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" switchtop — %s ", m.addr)))
	s.WriteString("\n\n")

	s.WriteString(statsStyle.Render(fmt.Sprintf("polling every %s  |  up %s", m.interval, time.Since(m.startedAt).Round(time.Second))))
	s.WriteString("\n\n")

	if m.lastErr != nil {
		s.WriteString(errorStyle.Render("error: " + m.lastErr.Error()))
		s.WriteString("\n\n")
	}

	s.WriteString(headerStyle.Render("PORTS"))
	s.WriteString("\n")
	for _, p := range m.ports {
		state := upStyle.Render(p.OperState)
		if p.OperState != "UP" {
			state = downStyle.Render(p.OperState)
		}
		s.WriteString(fmt.Sprintf("  %-4d %-12s admin=%-5v %-10s pvid=%-4d loss=%.4f  rx=%d tx=%d\n",
			p.ID, p.Name, p.AdminUp, state, p.PVID, p.CarrierLossProbability,
			p.Counters.RxUnicast+p.Counters.RxMulticast+p.Counters.RxBroadcast,
			p.Counters.TxUnicast+p.Counters.TxMulticast+p.Counters.TxBroadcast))
	}
	s.WriteString("\n")

	s.WriteString(headerStyle.Render("SPANNING TREE"))
	s.WriteString("\n")
	if m.stp == nil {
		s.WriteString("  not configured\n")
	} else {
		s.WriteString(fmt.Sprintf("  bridge=%s root=%s cost=%d root_port=%d is_root=%v\n",
			m.stp.BridgeID, m.stp.RootID, m.stp.RootPathCost, m.stp.RootPort, m.stp.IsRoot))
	}

	s.WriteString("\n")
	s.WriteString(statsStyle.Render("q: quit"))
	s.WriteString("\n")
	return s.String()
}
