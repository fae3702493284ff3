package screen

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-compressor/internal/compressor"
	"github.com/rovshanmuradov/solana-compressor/internal/token"
	"github.com/rovshanmuradov/solana-compressor/internal/ui"
	"github.com/rovshanmuradov/solana-compressor/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeProvider struct {
	key     solana.PublicKey
	emitter *wallet.Emitter

	connects    int
	disconnects int
	connectErr  error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{key: solana.NewWallet().PublicKey(), emitter: wallet.NewEmitter()}
}

func (p *fakeProvider) Kind() string { return "fake" }

func (p *fakeProvider) Connect(context.Context) (solana.PublicKey, error) {
	p.connects++
	if p.connectErr != nil {
		return solana.PublicKey{}, p.connectErr
	}
	p.emitter.Emit(wallet.EventConnect, p.key)
	return p.key, nil
}

func (p *fakeProvider) Disconnect(context.Context) error {
	p.disconnects++
	p.emitter.Emit(wallet.EventDisconnect, solana.PublicKey{})
	return nil
}

func (p *fakeProvider) PublicKey() solana.PublicKey { return p.key }

func (p *fakeProvider) SignAndSendTransaction(context.Context, *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, errors.New("not used")
}

func (p *fakeProvider) On(event wallet.Event, handler wallet.Handler) func() {
	return p.emitter.On(event, handler)
}

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []solana.PublicKey
	records []token.Record
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, owner solana.PublicKey) ([]token.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, owner)
	return f.records, f.err
}

type fakeCompressor struct {
	calls  int
	busy   bool
	result *compressor.Result
	err    error
}

func (c *fakeCompressor) Busy() bool { return c.busy }

func (c *fakeCompressor) Compress(context.Context, []token.Record, compressor.Signer) (*compressor.Result, error) {
	c.calls++
	return c.result, c.err
}

type fixture struct {
	screen     *WalletScreen
	provider   *fakeProvider
	fetcher    *fakeFetcher
	compressor *fakeCompressor
	bus        *ui.Bus
	detects    int
	opened     []string
}

func newFixture(t *testing.T, withProvider bool) *fixture {
	f := &fixture{
		provider: newFakeProvider(),
		fetcher: &fakeFetcher{records: []token.Record{
			{Mint: "MintA", Amount: "1"},
			{Mint: "MintB", Amount: "2"},
			{Mint: "MintC", Amount: "3"},
		}},
		compressor: &fakeCompressor{},
		bus:        ui.NewBus(16),
	}
	f.screen = NewWalletScreen(WalletDeps{
		Detect: func() (wallet.Provider, bool) {
			f.detects++
			if !withProvider {
				f.opened = append(f.opened, "https://example.com/install")
				return nil, false
			}
			return f.provider, true
		},
		Tokens:     f.fetcher,
		Compressor: f.compressor,
		Bus:        f.bus,
		Logger:     zaptest.NewLogger(t),
		InstallURL: "https://example.com/install",
	})
	f.screen.SetSize(100, 40)
	f.screen.Init()
	return f
}

func keyMsg(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send runs msg through Update and executes the returned command once.
func (f *fixture) send(msg tea.Msg) tea.Msg {
	_, cmd := f.screen.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	result := f.send(keyMsg("c"))
	require.IsType(t, ui.ConnectResultMsg{}, result)
	fetched := f.send(result)
	require.IsType(t, ui.TokensFetchedMsg{}, fetched)
	f.send(fetched)
}

func TestConnectWithoutProviderOpensInstallPage(t *testing.T) {
	f := newFixture(t, false)

	msg := f.send(keyMsg("c"))
	assert.Nil(t, msg)
	assert.NotEmpty(t, f.opened)
	assert.Equal(t, f.detects, len(f.opened))
	assert.True(t, f.screen.Key().IsZero())
	assert.Empty(t, f.fetcher.calls)
	assert.Contains(t, f.screen.View(), "not connected")
}

func TestConnectFetchesTokensOnce(t *testing.T) {
	f := newFixture(t, true)

	result := f.send(keyMsg("c"))
	require.Equal(t, ui.ConnectResultMsg{Key: f.provider.key}, result)

	// The provider's own connect event only mirrors the key.
	event := f.bus.Listen()().(ui.BusMsg).Msg
	assert.Equal(t, ui.WalletEventMsg{Event: wallet.EventConnect, Key: f.provider.key}, event)
	assert.Nil(t, f.send(event))

	fetched := f.send(result)
	require.IsType(t, ui.TokensFetchedMsg{}, fetched)
	f.send(fetched)

	assert.Equal(t, f.provider.key, f.screen.Key())
	assert.Equal(t, []solana.PublicKey{f.provider.key}, f.fetcher.calls)
	assert.Len(t, f.screen.Tokens(), 3)
	for _, r := range f.screen.Tokens() {
		assert.False(t, r.Selected)
	}
}

func TestConnectFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, true)
	f.provider.connectErr = errors.New("user rejected")

	result := f.send(keyMsg("c"))
	assert.Nil(t, f.send(result))
	assert.True(t, f.screen.Key().IsZero())
	assert.Empty(t, f.fetcher.calls)
}

func TestDisconnectClearsState(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)
	require.NotEmpty(t, f.screen.Tokens())

	result := f.send(keyMsg("d"))
	assert.True(t, f.screen.Key().IsZero())
	assert.Empty(t, f.screen.Tokens())
	assert.Equal(t, ui.DisconnectResultMsg{}, result)
	assert.Equal(t, 1, f.provider.disconnects)
}

func TestToggleAndCompressAlerts(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)

	f.send(keyMsg("x"))
	assert.Equal(t, AlertSelectExactlyOne, f.screen.Alert())
	assert.Zero(t, f.compressor.calls)

	// Modal: other keys are swallowed until dismissed.
	f.send(keyMsg("j"))
	f.send(keyMsg(" "))
	assert.Empty(t, selected(f.screen.Tokens()))
	f.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, f.screen.Alert())

	f.send(keyMsg("j"))
	f.send(keyMsg(" "))
	assert.Equal(t, []string{"MintB"}, selected(f.screen.Tokens()))

	f.send(keyMsg("j"))
	f.send(keyMsg(" "))
	f.send(keyMsg("x"))
	assert.Equal(t, AlertSelectExactlyOne, f.screen.Alert())
	assert.Zero(t, f.compressor.calls)
	f.send(tea.KeyMsg{Type: tea.KeyEnter})

	f.send(keyMsg(" "))
	assert.Equal(t, []string{"MintB"}, selected(f.screen.Tokens()))

	f.compressor.err = &compressor.Error{Step: compressor.StepSubmit, Err: errors.New("boom")}
	_, cmd := f.screen.Update(keyMsg("x"))
	require.NotNil(t, cmd)
	assert.True(t, f.screen.Busy())

	result := runBatch(t, cmd)
	require.NotNil(t, result)
	f.send(result)
	assert.False(t, f.screen.Busy())
	assert.Equal(t, AlertCompressFailed, f.screen.Alert())
	assert.Equal(t, 1, f.compressor.calls)
}

func TestCompressSuccessRefreshesTokens(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)
	f.send(keyMsg(" "))

	f.compressor.result = &compressor.Result{
		CompressSignature: solana.Signature{1},
		Source:            solana.NewWallet().PublicKey(),
		Amount:            100,
	}
	_, cmd := f.screen.Update(keyMsg("x"))
	result := runBatch(t, cmd)

	fetched := f.send(result)
	require.IsType(t, ui.TokensFetchedMsg{}, fetched)
	assert.Empty(t, f.screen.Alert())
	assert.Contains(t, f.screen.View(), "Compressed 100 units")
	assert.Len(t, f.fetcher.calls, 2)
}

func TestCompressRefusedWhileOrchestratorBusy(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)
	f.send(keyMsg(" "))

	f.compressor.busy = true
	assert.Nil(t, f.send(keyMsg("x")))
	assert.Equal(t, AlertBusy, f.screen.Alert())
	assert.False(t, f.screen.Busy())
	assert.Zero(t, f.compressor.calls)
}

func TestAccountChangeRefetches(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)

	next := solana.NewWallet().PublicKey()
	fetched := f.send(ui.WalletEventMsg{Event: wallet.EventAccountChange, Key: next})
	assert.Equal(t, next, f.screen.Key())
	assert.Empty(t, f.screen.Tokens())
	require.IsType(t, ui.TokensFetchedMsg{}, fetched)
	assert.Equal(t, next, fetched.(ui.TokensFetchedMsg).Owner)
}

func TestStaleFetchesAreIgnored(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)

	f.send(ui.TokensFetchedMsg{Owner: solana.NewWallet().PublicKey(), Records: nil})
	assert.Len(t, f.screen.Tokens(), 3)

	f.send(ui.TokensFetchedMsg{Owner: f.provider.key, Err: errors.New("rpc down")})
	assert.Len(t, f.screen.Tokens(), 3)
}

func TestCloseReleasesSubscriptions(t *testing.T) {
	f := newFixture(t, true)
	events := []wallet.Event{wallet.EventConnect, wallet.EventDisconnect, wallet.EventAccountChange}

	for _, event := range events {
		f.provider.emitter.Emit(event, f.provider.key)
		assert.Equal(t, ui.WalletEventMsg{Event: event, Key: f.provider.key}, f.bus.Listen()().(ui.BusMsg).Msg)
	}

	f.screen.Close()
	for _, event := range events {
		f.provider.emitter.Emit(event, f.provider.key)
	}
	// Nothing was queued ahead of the marker.
	require.True(t, f.bus.Publish(ui.RouterMsg{To: ui.RouteLogs}))
	assert.Equal(t, ui.RouterMsg{To: ui.RouteLogs}, f.bus.Listen()().(ui.BusMsg).Msg)
}

func selected(records []token.Record) []string {
	var mints []string
	for _, r := range records {
		if r.Selected {
			mints = append(mints, r.Mint)
		}
	}
	return mints
}

// runBatch executes a batch command and returns the first non-spinner message.
func runBatch(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return msg
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if m := c(); !isTick(m) {
			return m
		}
	}
	t.Fatal("batch produced no result")
	return nil
}

func isTick(msg tea.Msg) bool {
	_, ok := msg.(spinner.TickMsg)
	return ok
}
