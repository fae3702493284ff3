package screen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-compressor/internal/compressor"
	"github.com/rovshanmuradov/solana-compressor/internal/logger"
	"github.com/rovshanmuradov/solana-compressor/internal/token"
	"github.com/rovshanmuradov/solana-compressor/internal/ui"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/component"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/router"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/style"
	"github.com/rovshanmuradov/solana-compressor/internal/wallet"
	"go.uber.org/zap"
)

// Alert texts shown by the compress action.
const (
	AlertSelectExactlyOne = "Please select exactly one token to compress."
	AlertBusy             = "A compression is already in progress."
	AlertCompressFailed   = "Failed to compress tokens. See logs for details."
)

// TokenFetcher lists the token balances of an owner.
type TokenFetcher interface {
	Fetch(ctx context.Context, owner solana.PublicKey) ([]token.Record, error)
}

// Compressor runs the compress workflow.
type Compressor interface {
	Compress(ctx context.Context, records []token.Record, signer compressor.Signer) (*compressor.Result, error)
	// Busy reports a run in flight, including one started elsewhere.
	Busy() bool
}

// WalletDeps are the collaborators of the wallet screen.
type WalletDeps struct {
	Ctx context.Context
	// Detect returns the wallet provider, or false after sending the user to
	// the install page.
	Detect     func() (wallet.Provider, bool)
	Tokens     TokenFetcher
	Compressor Compressor
	Bus        *ui.Bus
	Logger     *zap.Logger
	InstallURL string
}

// WalletScreen connects the wallet, lists its tokens and starts compression.
type WalletScreen struct {
	deps   WalletDeps
	logger *zap.Logger
	keyMap ui.KeyMap

	width  int
	height int

	helpBar *component.HelpBar
	spinner spinner.Model

	provider wallet.Provider
	unsubs   []func()

	key    solana.PublicKey
	tokens token.List
	cursor int
	busy   bool
	alert  string
	status string

	// Styling
	titleStyle    lipgloss.Style
	keyStyle      lipgloss.Style
	mutedStyle    lipgloss.Style
	cursorStyle   lipgloss.Style
	successStyle  lipgloss.Style
	alertStyle    lipgloss.Style
	selectedStyle lipgloss.Style
}

// NewWalletScreen creates the wallet screen
func NewWalletScreen(deps WalletDeps) *WalletScreen {
	palette := style.DefaultPalette()
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(palette.Primary)

	return &WalletScreen{
		deps:    deps,
		logger:  deps.Logger.Named("wallet-screen"),
		keyMap:  ui.DefaultKeyMap(),
		helpBar: component.NewHelpBar(),
		spinner: sp,

		titleStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Margin(1, 0),

		keyStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true),

		mutedStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		cursorStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),

		successStyle: lipgloss.NewStyle().
			Foreground(palette.Success),

		selectedStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Bold(true),

		alertStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Error).
			Foreground(palette.Text).
			Padding(1, 3),
	}
}

// Init looks up the provider and subscribes to its lifecycle events
func (s *WalletScreen) Init() tea.Cmd {
	s.getProvider()
	return nil
}

// getProvider returns the cached provider or detects it. The first detected
// provider gets the lifecycle subscriptions.
func (s *WalletScreen) getProvider() wallet.Provider {
	if s.provider != nil {
		return s.provider
	}
	provider, ok := s.deps.Detect()
	if !ok {
		s.status = fmt.Sprintf("Wallet not found. Install it from %s", s.deps.InstallURL)
		return nil
	}
	s.provider = provider
	s.status = ""

	if s.deps.Bus != nil {
		for _, event := range []wallet.Event{wallet.EventConnect, wallet.EventDisconnect, wallet.EventAccountChange} {
			s.unsubs = append(s.unsubs, provider.On(event, s.deps.Bus.PublishWalletEvent(event)))
		}
	}
	return provider
}

// Close releases the provider subscriptions.
func (s *WalletScreen) Close() {
	for _, unsubscribe := range s.unsubs {
		unsubscribe()
	}
	s.unsubs = nil
}

// Update handles screen updates
func (s *WalletScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s, s.handleKey(msg)

	case ui.ConnectResultMsg:
		if msg.Err != nil {
			s.logger.Error("Failed to connect wallet", zap.Error(msg.Err))
			return s, nil
		}
		s.key = msg.Key
		s.status = ""
		return s, s.fetchCmd(msg.Key)

	case ui.DisconnectResultMsg:
		if msg.Err != nil {
			s.logger.Warn("Failed to disconnect wallet", zap.Error(msg.Err))
		}

	case ui.WalletEventMsg:
		return s, s.handleWalletEvent(msg)

	case ui.TokensFetchedMsg:
		if !msg.Owner.Equals(s.key) {
			s.logger.Debug("Dropping token list of another owner", zap.String("owner", msg.Owner.String()))
			return s, nil
		}
		if msg.Err != nil {
			s.logger.Error("Failed to fetch tokens", zap.Error(msg.Err))
			return s, nil
		}
		s.tokens.Replace(msg.Records)
		if s.cursor >= s.tokens.Len() {
			s.cursor = max(s.tokens.Len()-1, 0)
		}

	case ui.CompressResultMsg:
		s.busy = false
		if msg.Err != nil {
			s.alert = alertFor(msg.Err)
			s.logger.Error("Compression failed", zap.Error(msg.Err))
			return s, nil
		}
		s.status = fmt.Sprintf("Compressed %d units from %s (tx %s)",
			msg.Result.Amount,
			logger.ShortenAddress(msg.Result.Source.String()),
			logger.ShortenAddress(msg.Result.CompressSignature.String()))
		return s, s.fetchCmd(s.key)

	case spinner.TickMsg:
		if s.busy {
			var cmd tea.Cmd
			s.spinner, cmd = s.spinner.Update(msg)
			return s, cmd
		}
	}

	return s, nil
}

func (s *WalletScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	if s.alert != "" {
		// Alerts are modal.
		switch {
		case key.Matches(msg, s.keyMap.Dismiss):
			s.alert = ""
		case msg.String() == "ctrl+c":
			return tea.Quit
		}
		return nil
	}

	switch {
	case key.Matches(msg, s.keyMap.Quit):
		return tea.Quit

	case key.Matches(msg, s.keyMap.Logs):
		return func() tea.Msg {
			return ui.RouterMsg{To: ui.RouteLogs}
		}

	case key.Matches(msg, s.keyMap.Connect):
		if !s.key.IsZero() {
			return nil
		}
		return s.connect()

	case s.key.IsZero():
		return nil

	case key.Matches(msg, s.keyMap.Disconnect):
		return s.disconnect()

	case key.Matches(msg, s.keyMap.Up):
		if s.cursor > 0 {
			s.cursor--
		}

	case key.Matches(msg, s.keyMap.Down):
		if s.cursor < s.tokens.Len()-1 {
			s.cursor++
		}

	case key.Matches(msg, s.keyMap.Toggle):
		s.tokens.Toggle(s.cursor)

	case key.Matches(msg, s.keyMap.Refresh):
		return s.fetchCmd(s.key)

	case key.Matches(msg, s.keyMap.Compress):
		return s.compress()
	}
	return nil
}

func (s *WalletScreen) handleWalletEvent(msg ui.WalletEventMsg) tea.Cmd {
	switch msg.Event {
	case wallet.EventConnect:
		s.key = msg.Key
	case wallet.EventDisconnect:
		s.clear()
	case wallet.EventAccountChange:
		s.key = msg.Key
		s.tokens.Clear()
		s.cursor = 0
		if !msg.Key.IsZero() {
			return s.fetchCmd(msg.Key)
		}
	}
	return nil
}

func (s *WalletScreen) connect() tea.Cmd {
	provider := s.getProvider()
	if provider == nil {
		return nil
	}
	ctx := s.deps.Ctx
	return func() tea.Msg {
		pub, err := provider.Connect(ctx)
		return ui.ConnectResultMsg{Key: pub, Err: err}
	}
}

func (s *WalletScreen) disconnect() tea.Cmd {
	s.clear()
	provider := s.provider
	if provider == nil {
		return nil
	}
	ctx := s.deps.Ctx
	return func() tea.Msg {
		return ui.DisconnectResultMsg{Err: provider.Disconnect(ctx)}
	}
}

func (s *WalletScreen) clear() {
	s.key = solana.PublicKey{}
	s.tokens.Clear()
	s.cursor = 0
}

func (s *WalletScreen) fetchCmd(owner solana.PublicKey) tea.Cmd {
	ctx := s.deps.Ctx
	fetcher := s.deps.Tokens
	return func() tea.Msg {
		records, err := fetcher.Fetch(ctx, owner)
		return ui.TokensFetchedMsg{Owner: owner, Records: records, Err: err}
	}
}

func (s *WalletScreen) compress() tea.Cmd {
	if len(s.tokens.Selected()) != 1 {
		s.alert = AlertSelectExactlyOne
		return nil
	}
	if s.busy || s.deps.Compressor.Busy() {
		s.alert = AlertBusy
		return nil
	}
	s.busy = true

	records := append([]token.Record(nil), s.tokens.Records...)
	var signer compressor.Signer
	if s.provider != nil {
		signer = s.provider
	}
	ctx := s.deps.Ctx
	run := func() tea.Msg {
		result, err := s.deps.Compressor.Compress(ctx, records, signer)
		return ui.CompressResultMsg{Result: result, Err: err}
	}
	return tea.Batch(run, s.spinner.Tick)
}

func alertFor(err error) string {
	switch {
	case errors.Is(err, compressor.ErrSelectExactlyOne):
		return AlertSelectExactlyOne
	case errors.Is(err, compressor.ErrBusy):
		return AlertBusy
	default:
		return AlertCompressFailed
	}
}

// View renders the wallet screen
func (s *WalletScreen) View() string {
	var content strings.Builder

	content.WriteString(s.titleStyle.Render("Solana Token Compressor"))
	content.WriteString("\n")

	if s.key.IsZero() {
		content.WriteString(s.mutedStyle.Render("Wallet not connected. Press "))
		content.WriteString(s.keyStyle.Render("c"))
		content.WriteString(s.mutedStyle.Render(" to connect."))
		content.WriteString("\n")
	} else {
		content.WriteString("Wallet: ")
		content.WriteString(s.keyStyle.Render(s.key.String()))
		content.WriteString("\n\n")
		content.WriteString(s.renderTokens())
	}

	if s.busy {
		content.WriteString("\n")
		content.WriteString(s.spinner.View())
		content.WriteString(" Compressing...")
	}
	if s.status != "" {
		content.WriteString("\n")
		content.WriteString(s.successStyle.Render(s.status))
	}
	content.WriteString("\n")

	s.helpBar.SetKeyBindings(s.keyMap.ContextualHelp(ui.RouteWallet, !s.key.IsZero()))
	content.WriteString(s.helpBar.SetWidth(s.width).View())

	view := content.String()
	if s.alert != "" {
		box := s.alertStyle.Render(s.alert + "\n\n" + s.mutedStyle.Render("enter to dismiss"))
		if s.width > 0 && s.height > 0 {
			return lipgloss.Place(s.width, s.height, lipgloss.Center, lipgloss.Center, box)
		}
		return box
	}
	return view
}

func (s *WalletScreen) renderTokens() string {
	if s.tokens.Len() == 0 {
		return s.mutedStyle.Render("No tokens found.") + "\n"
	}

	var b strings.Builder
	for i, r := range s.tokens.Records {
		pointer := "  "
		if i == s.cursor {
			pointer = s.cursorStyle.Render("> ")
		}
		box := "[ ]"
		line := fmt.Sprintf("%s  %s", r.Mint, r.Amount)
		if r.Selected {
			box = "[x]"
			line = s.selectedStyle.Render(line)
		}
		b.WriteString(pointer + box + " " + line + "\n")
	}
	return b.String()
}

// SetSize sets the screen dimensions
func (s *WalletScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.helpBar.SetWidth(width)
}

// Key returns the connected wallet key, zero when disconnected.
func (s *WalletScreen) Key() solana.PublicKey { return s.key }

// Tokens returns the rows currently shown.
func (s *WalletScreen) Tokens() []token.Record { return s.tokens.Records }

// Alert returns the open alert text, if any.
func (s *WalletScreen) Alert() string { return s.alert }

// Busy reports whether a compression is in flight.
func (s *WalletScreen) Busy() bool { return s.busy }
