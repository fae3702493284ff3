package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/browser"
	"github.com/rovshanmuradov/solana-compressor/internal/config"
	"go.uber.org/zap"
)

// KindKeyfile identifies the keypair-file provider.
const KindKeyfile = "keyfile"

var (
	ErrProviderNotFound = errors.New("wallet provider not found")
	ErrNotConnected     = errors.New("wallet not connected")
)

// Event is a provider lifecycle event.
type Event string

const (
	EventConnect       Event = "connect"
	EventDisconnect    Event = "disconnect"
	EventAccountChange Event = "accountChange"
)

// Handler receives the key associated with an event. For disconnect the key is zero.
type Handler func(solana.PublicKey)

// Provider is a wallet that holds the owner key on the user's behalf.
type Provider interface {
	Kind() string
	Connect(ctx context.Context) (solana.PublicKey, error)
	Disconnect(ctx context.Context) error
	PublicKey() solana.PublicKey
	// SignAndSendTransaction adds the owner signature and submits the transaction.
	SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// On registers a handler and returns the function that removes it.
	On(event Event, handler Handler) (unsubscribe func())
}

// Opener shows a URL to the user.
type Opener interface {
	Open(url string) error
}

// BrowserOpener opens URLs with the system browser.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	return browser.OpenURL(url)
}

// Detect returns the installed provider when it identifies itself as the
// configured kind. Otherwise it sends the user to the install page and
// reports false.
func Detect(cfg config.WalletConfig, sender Sender, opener Opener, logger *zap.Logger) (Provider, bool) {
	provider, err := discover(cfg, sender, logger)
	if err == nil {
		if provider.Kind() == cfg.Provider {
			return provider, true
		}
		err = fmt.Errorf("%w: found %q", ErrProviderNotFound, provider.Kind())
	}

	logger.Warn("Wallet provider unavailable",
		zap.String("provider", cfg.Provider),
		zap.String("install_url", cfg.InstallURL),
		zap.Error(err))

	if opener != nil && cfg.InstallURL != "" {
		if err := opener.Open(cfg.InstallURL); err != nil {
			logger.Debug("Failed to open install page", zap.Error(err))
		}
	}
	return nil, false
}

// discover returns the wallet installed on this machine.
func discover(cfg config.WalletConfig, sender Sender, logger *zap.Logger) (Provider, error) {
	if _, err := os.Stat(cfg.KeypairPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderNotFound, err)
	}
	return NewKeyfileProvider(cfg.KeypairPath, sender, logger), nil
}
