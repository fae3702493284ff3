package app

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/solana-compressor/internal/logger"
	"github.com/rovshanmuradov/solana-compressor/internal/ui"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/router"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/screen"
)

// Model represents the main TUI application model
type Model struct {
	router *router.Router
	bus    *ui.Bus
	buffer *logger.LogBuffer
	width  int
	height int
}

// NewModel creates the application model with root as the first screen
func NewModel(root router.Screen, bus *ui.Bus, buffer *logger.LogBuffer) *Model {
	return &Model{
		router: router.New(root),
		bus:    bus,
		buffer: buffer,
	}
}

// Init initializes the application
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.router.Init(),
		m.bus.Listen(), // Start listening to the event bus
	)
}

// Update handles application-level updates
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.router.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case ui.BusMsg:
		// Continue listening for events
		return m, tea.Batch(m.dispatch(msg.Msg), m.bus.Listen())

	case ui.RouterMsg:
		return m, m.handleNavigation(msg.To)
	}

	return m, m.dispatch(msg)
}

// dispatch sends wallet results to the wallet screen at the bottom of the
// stack, so they are not lost while the logs screen is open. Everything else
// goes to the visible screen.
func (m *Model) dispatch(msg tea.Msg) tea.Cmd {
	switch msg.(type) {
	case ui.ConnectResultMsg, ui.DisconnectResultMsg, ui.WalletEventMsg,
		ui.TokensFetchedMsg, ui.CompressResultMsg, spinner.TickMsg:
		return m.router.UpdateRoot(msg)
	}
	_, cmd := m.router.Update(msg)
	return cmd
}

// handleNavigation handles navigation to different screens
func (m *Model) handleNavigation(route ui.Route) tea.Cmd {
	switch route {
	case ui.RouteLogs:
		if _, onLogs := m.router.Current().(*screen.LogsScreen); onLogs {
			return nil
		}
		return m.router.Push(screen.NewLogsScreen(m.buffer))
	case ui.RouteWallet:
		for m.router.Depth() > 1 {
			m.router.Pop()
		}
	}
	return nil
}

// View renders the application
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	return m.router.View()
}

// Close tears down every screen.
func (m *Model) Close() {
	m.router.Close()
}
