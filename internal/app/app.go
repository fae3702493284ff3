// Package app wires configuration, the chain client, the wallet provider and
// the UI into the runnable commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-compressor/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-compressor/internal/blockchain/transaction"
	"github.com/rovshanmuradov/solana-compressor/internal/compressor"
	"github.com/rovshanmuradov/solana-compressor/internal/config"
	"github.com/rovshanmuradov/solana-compressor/internal/logger"
	"github.com/rovshanmuradov/solana-compressor/internal/token"
	"github.com/rovshanmuradov/solana-compressor/internal/ui"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/screen"
	"github.com/rovshanmuradov/solana-compressor/internal/utils/metrics"
	"github.com/rovshanmuradov/solana-compressor/internal/wallet"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const busSize = 64

var ErrMintNotHeld = errors.New("mint not held by wallet")

// App holds the long-lived components shared by every command.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector

	client     *solbc.Client
	lister     *token.Lister
	compressor *compressor.Orchestrator
	opener     wallet.Opener

	mu       sync.Mutex
	provider wallet.Provider
	watch    func(*wallet.KeyfileProvider)
}

// New builds the application from configuration.
func New(cfg *config.Config, log *zap.Logger, collector *metrics.Collector) *App {
	client := solbc.NewClient(cfg.Endpoint(), log, solbc.Options{
		Commitment:     cfg.CommitmentType(),
		ConfirmTimeout: cfg.ConfirmTimeout,
		Metrics:        collector,
	})

	return &App{
		cfg:     cfg,
		logger:  log,
		metrics: collector,
		client:  client,
		lister:  token.NewLister(client, log),
		compressor: compressor.New(client, log, compressor.Options{
			Amount:   cfg.Compression.Amount,
			FeePayer: cfg.Compression.FeePayer,
			ComputeBudget: transaction.ComputeBudget{
				UnitLimit:         cfg.Compression.ComputeUnitLimit,
				UnitPriceMicroLam: cfg.Compression.ComputeUnitPrice,
			},
			Metrics: collector,
		}),
		opener: wallet.BrowserOpener{},
	}
}

// detect returns the wallet provider, detecting it on first use. A detected
// keyfile provider is handed to the watcher when watching is enabled.
func (a *App) detect() (wallet.Provider, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.provider != nil {
		return a.provider, true
	}
	provider, ok := wallet.Detect(a.cfg.Wallet, a.client, a.opener, a.logger)
	if !ok {
		return nil, false
	}
	a.provider = provider

	if kp, isKeyfile := provider.(*wallet.KeyfileProvider); isKeyfile && a.cfg.Wallet.Watch && a.watch != nil {
		a.watch(kp)
	}
	return provider, true
}

// RunTUI runs the terminal UI until the user quits or ctx is cancelled.
func (a *App) RunTUI(ctx context.Context, buffer *logger.LogBuffer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	a.mu.Lock()
	a.watch = func(kp *wallet.KeyfileProvider) {
		g.Go(func() error { return kp.Watch(gctx) })
	}
	a.mu.Unlock()

	bus := ui.NewBus(busSize)
	walletScreen := screen.NewWalletScreen(screen.WalletDeps{
		Ctx:        gctx,
		Detect:     a.detect,
		Tokens:     a.lister,
		Compressor: a.compressor,
		Bus:        bus,
		Logger:     a.logger,
		InstallURL: a.cfg.Wallet.InstallURL,
	})
	model := NewModel(walletScreen, bus, buffer)

	g.Go(func() error {
		defer cancel()
		defer model.Close()

		program := tea.NewProgram(ui.NewSafeModel(model, a.logger), tea.WithAltScreen(), tea.WithContext(gctx))
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// connect detects the provider and connects it for the headless commands.
func (a *App) connect(ctx context.Context) (wallet.Provider, solana.PublicKey, error) {
	provider, ok := a.detect()
	if !ok {
		return nil, solana.PublicKey{}, fmt.Errorf("%w: install it from %s", wallet.ErrProviderNotFound, a.cfg.Wallet.InstallURL)
	}
	owner, err := provider.Connect(ctx)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	return provider, owner, nil
}

// Tokens prints the connected wallet's token balances.
func (a *App) Tokens(ctx context.Context, out io.Writer) error {
	_, owner, err := a.connect(ctx)
	if err != nil {
		return err
	}

	records, err := a.lister.Fetch(ctx, owner)
	if err != nil {
		return err
	}

	t := table.New().Headers("#", "MINT", "AMOUNT", "ACCOUNT")
	for i, r := range records {
		t.Row(fmt.Sprint(i+1), r.Mint, r.Amount, r.Account)
	}
	_, err = fmt.Fprintf(out, "Wallet %s\n%s\n", owner, t.Render())
	return err
}

// Compress compresses the configured amount of mint from the connected wallet.
func (a *App) Compress(ctx context.Context, mint string, out io.Writer) error {
	provider, owner, err := a.connect(ctx)
	if err != nil {
		return err
	}

	records, err := a.lister.Fetch(ctx, owner)
	if err != nil {
		return err
	}
	if !selectMint(records, mint) {
		return fmt.Errorf("%w: %s", ErrMintNotHeld, mint)
	}

	result, err := a.compressor.Compress(ctx, records, provider)
	if err != nil {
		return err
	}

	if !result.CreateSignature.IsZero() {
		fmt.Fprintf(out, "Created associated account: %s\n", result.CreateSignature)
	}
	_, err = fmt.Fprintf(out, "Compressed %s units of %s from %s: %s\n",
		token.FormatAmount(result.Amount, 0), mint, result.Source, result.CompressSignature)
	return err
}

// selectMint marks the first record of mint as the only selected row.
func selectMint(records []token.Record, mint string) bool {
	for i := range records {
		if records[i].Mint == mint {
			records[i].Selected = true
			return true
		}
	}
	return false
}
