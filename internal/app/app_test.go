package app

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/solana-compressor/internal/logger"
	"github.com/rovshanmuradov/solana-compressor/internal/token"
	"github.com/rovshanmuradov/solana-compressor/internal/ui"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rootScreen struct {
	msgs   []tea.Msg
	closed bool
}

func (s *rootScreen) Init() tea.Cmd { return nil }

func (s *rootScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	s.msgs = append(s.msgs, msg)
	return s, nil
}

func (s *rootScreen) View() string { return "root" }

func (s *rootScreen) SetSize(int, int) {}

func (s *rootScreen) Close() { s.closed = true }

func TestModelNavigation(t *testing.T) {
	buffer, err := logger.NewLogBuffer(4)
	require.NoError(t, err)

	root := &rootScreen{}
	m := NewModel(root, ui.NewBus(4), buffer)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	m.Update(ui.RouterMsg{To: ui.RouteLogs})
	assert.Equal(t, 2, m.router.Depth())
	assert.Contains(t, m.View(), "Application Logs")

	m.Update(ui.RouterMsg{To: ui.RouteLogs})
	assert.Equal(t, 2, m.router.Depth())

	m.Update(ui.RouterMsg{To: ui.RouteWallet})
	assert.Equal(t, 1, m.router.Depth())
	assert.Equal(t, "root", m.View())

	m.Close()
	assert.True(t, root.closed)
}

func TestModelForwardsBusMessages(t *testing.T) {
	root := &rootScreen{}
	bus := ui.NewBus(4)
	m := NewModel(root, bus, nil)

	event := ui.WalletEventMsg{Event: "connect"}
	_, cmd := m.Update(ui.BusMsg{Msg: event})
	require.NotNil(t, cmd)
	assert.Equal(t, []tea.Msg{event}, root.msgs)

	require.True(t, bus.Publish(ui.DisconnectResultMsg{}))
	assert.Equal(t, ui.BusMsg{Msg: ui.DisconnectResultMsg{}}, bus.Listen()())
}

func TestModelQuitsOnCtrlC(t *testing.T) {
	m := NewModel(&rootScreen{}, ui.NewBus(1), nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSelectMint(t *testing.T) {
	records := []token.Record{{Mint: "A"}, {Mint: "B"}, {Mint: "B"}}

	assert.True(t, selectMint(records, "B"))
	assert.Equal(t, []bool{false, true, false}, []bool{records[0].Selected, records[1].Selected, records[2].Selected})
	assert.False(t, selectMint(records, "C"))
}
