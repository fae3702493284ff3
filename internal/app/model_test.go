package app

import (
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-compressor/internal/compressor"
	"github.com/rovshanmuradov/solana-compressor/internal/logger"
	"github.com/rovshanmuradov/solana-compressor/internal/token"
	"github.com/rovshanmuradov/solana-compressor/internal/ui"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/screen"
	"github.com/rovshanmuradov/solana-compressor/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubProvider struct {
	key     solana.PublicKey
	emitter *wallet.Emitter
}

func (p *stubProvider) Kind() string { return wallet.KindKeyfile }

func (p *stubProvider) Connect(context.Context) (solana.PublicKey, error) {
	p.emitter.Emit(wallet.EventConnect, p.key)
	return p.key, nil
}

func (p *stubProvider) Disconnect(context.Context) error {
	p.emitter.Emit(wallet.EventDisconnect, solana.PublicKey{})
	return nil
}

func (p *stubProvider) PublicKey() solana.PublicKey { return p.key }

func (p *stubProvider) SignAndSendTransaction(context.Context, *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, errors.New("not used")
}

func (p *stubProvider) On(event wallet.Event, handler wallet.Handler) func() {
	return p.emitter.On(event, handler)
}

type stubFetcher struct {
	records []token.Record
}

func (f *stubFetcher) Fetch(_ context.Context, owner solana.PublicKey) ([]token.Record, error) {
	return append([]token.Record(nil), f.records...), nil
}

type stubCompressor struct {
	calls int
}

func (c *stubCompressor) Compress(context.Context, []token.Record, compressor.Signer) (*compressor.Result, error) {
	c.calls++
	return &compressor.Result{CompressSignature: solana.Signature{1}, Amount: 1}, nil
}

func (c *stubCompressor) Busy() bool { return false }

func runKey(t *testing.T, m *Model, s string) tea.Msg {
	t.Helper()
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	if s == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		return nil
	}
	return firstResult(cmd)
}

// firstResult runs cmd and returns the first message that is not a spinner tick.
func firstResult(cmd tea.Cmd) tea.Msg {
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return msg
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if out := c(); out != nil {
			if _, tick := out.(spinner.TickMsg); !tick {
				return out
			}
		}
	}
	return nil
}

func TestWalletResultsReachWalletScreenUnderLogs(t *testing.T) {
	buffer, err := logger.NewLogBuffer(16)
	require.NoError(t, err)
	bus := ui.NewBus(16)
	provider := &stubProvider{key: solana.NewWallet().PublicKey(), emitter: wallet.NewEmitter()}
	fetcher := &stubFetcher{records: []token.Record{{Mint: "MintA", Amount: "1"}, {Mint: "MintB", Amount: "2"}}}
	comp := &stubCompressor{}

	walletScreen := screen.NewWalletScreen(screen.WalletDeps{
		Detect:     func() (wallet.Provider, bool) { return provider, true },
		Tokens:     fetcher,
		Compressor: comp,
		Bus:        bus,
		Logger:     zaptest.NewLogger(t),
	})
	m := NewModel(walletScreen, bus, buffer)
	m.router.Init()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	connected := runKey(t, m, "c")
	require.IsType(t, ui.ConnectResultMsg{}, connected)
	_, cmd := m.Update(connected)
	require.NotNil(t, cmd)
	m.Update(cmd())
	require.Len(t, walletScreen.Tokens(), 2)

	runKey(t, m, " ")
	result := runKey(t, m, "x")
	require.IsType(t, ui.CompressResultMsg{}, result)
	require.True(t, walletScreen.Busy())

	m.Update(ui.RouterMsg{To: ui.RouteLogs})
	require.Equal(t, 2, m.router.Depth())

	// Results and provider events land while the logs screen is on top.
	_, cmd = m.Update(result)
	assert.False(t, walletScreen.Busy())
	require.NotNil(t, cmd)
	refreshed := cmd()
	require.IsType(t, ui.TokensFetchedMsg{}, refreshed)
	m.Update(refreshed)

	m.Update(ui.BusMsg{Msg: ui.WalletEventMsg{Event: wallet.EventDisconnect}})
	assert.True(t, walletScreen.Key().IsZero())
	assert.Empty(t, walletScreen.Tokens())
	assert.Equal(t, 2, m.router.Depth())

	m.Update(ui.RouterMsg{To: ui.RouteWallet})
	assert.Equal(t, 1, m.router.Depth())
	assert.Empty(t, walletScreen.Alert())
	assert.Equal(t, 1, comp.calls)
}
