package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-compressor/internal/compressor"
	"github.com/rovshanmuradov/solana-compressor/internal/token"
	"github.com/rovshanmuradov/solana-compressor/internal/wallet"
)

// Tea message types for UI communication

// RouterMsg represents navigation between screens
type RouterMsg struct {
	To Route
}

// ConnectResultMsg carries the outcome of a connect request.
type ConnectResultMsg struct {
	Key solana.PublicKey
	Err error
}

// DisconnectResultMsg carries the outcome of a disconnect request.
type DisconnectResultMsg struct {
	Err error
}

// WalletEventMsg mirrors a provider lifecycle event into the UI.
type WalletEventMsg struct {
	Event wallet.Event
	Key   solana.PublicKey
}

// TokensFetchedMsg carries the token list of Owner.
type TokensFetchedMsg struct {
	Owner   solana.PublicKey
	Records []token.Record
	Err     error
}

// CompressResultMsg carries the outcome of a compression run.
type CompressResultMsg struct {
	Result *compressor.Result
	Err    error
}

// Bus delivers messages produced outside the bubbletea loop, such as
// provider events, to the program.
type Bus struct {
	ch chan tea.Msg
}

// NewBus creates a bus holding up to size pending messages.
func NewBus(size int) *Bus {
	return &Bus{ch: make(chan tea.Msg, size)}
}

// Publish queues msg, dropping it when the bus is full.
func (b *Bus) Publish(msg tea.Msg) bool {
	select {
	case b.ch <- msg:
		return true
	default:
		// Bus is full, drop the message
		return false
	}
}

// PublishWalletEvent returns a wallet.Handler that forwards event to the bus.
func (b *Bus) PublishWalletEvent(event wallet.Event) wallet.Handler {
	return func(key solana.PublicKey) {
		b.Publish(WalletEventMsg{Event: event, Key: key})
	}
}

// BusMsg wraps a message delivered through the bus so the receiver knows to
// listen again.
type BusMsg struct {
	Msg tea.Msg
}

// Listen returns a tea.Cmd that waits for the next message.
func (b *Bus) Listen() tea.Cmd {
	return func() tea.Msg {
		return BusMsg{Msg: <-b.ch}
	}
}

// Route represents different screens in the application
type Route int

const (
	RouteWallet Route = iota
	RouteLogs
)

// String returns the string representation of the route
func (r Route) String() string {
	switch r {
	case RouteWallet:
		return "wallet"
	case RouteLogs:
		return "logs"
	default:
		return "unknown"
	}
}
