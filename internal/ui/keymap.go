package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for the application
type KeyMap struct {
	// Global navigation
	Quit key.Binding
	Back key.Binding

	// Navigation
	Up   key.Binding
	Down key.Binding

	// Wallet
	Connect    key.Binding
	Disconnect key.Binding
	Toggle     key.Binding
	Compress   key.Binding
	Refresh    key.Binding
	Logs       key.Binding

	// Alerts
	Dismiss key.Binding

	// Logs
	Top    key.Binding
	Bottom key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Global navigation
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),

		// Wallet
		Connect: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "connect"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "disconnect"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		Compress: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "compress"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "f5"),
			key.WithHelp("r/F5", "refresh"),
		),
		Logs: key.NewBinding(
			key.WithKeys("l", "f12"),
			key.WithHelp("l", "logs"),
		),

		Dismiss: key.NewBinding(
			key.WithKeys("enter", "esc"),
			key.WithHelp("enter", "dismiss"),
		),

		// Logs
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
	}
}

// ContextualHelp returns help text based on the current route and wallet state
func (k KeyMap) ContextualHelp(route Route, connected bool) []key.Binding {
	switch route {
	case RouteWallet:
		if !connected {
			return []key.Binding{k.Connect, k.Logs, k.Quit}
		}
		return []key.Binding{k.Up, k.Down, k.Toggle, k.Compress, k.Refresh, k.Disconnect, k.Logs, k.Quit}
	case RouteLogs:
		return []key.Binding{k.Up, k.Down, k.Top, k.Bottom, k.Back, k.Quit}
	default:
		return []key.Binding{k.Quit}
	}
}
