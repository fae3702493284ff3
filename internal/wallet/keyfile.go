package wallet

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Sender submits a fully signed transaction.
type Sender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// KeyfileProvider is a Provider backed by a Solana CLI keypair file.
type KeyfileProvider struct {
	path    string
	sender  Sender
	logger  *zap.Logger
	emitter *Emitter

	mu     sync.RWMutex
	wallet *Wallet
}

func NewKeyfileProvider(path string, sender Sender, logger *zap.Logger) *KeyfileProvider {
	return &KeyfileProvider{
		path:    path,
		sender:  sender,
		logger:  logger.Named("keyfile-provider"),
		emitter: NewEmitter(),
	}
}

func (p *KeyfileProvider) Kind() string { return KindKeyfile }

// Connect loads the keypair and emits connect.
func (p *KeyfileProvider) Connect(ctx context.Context) (solana.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return solana.PublicKey{}, err
	}

	w, err := LoadKeypairFile(p.path)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("connect: %w", err)
	}

	p.mu.Lock()
	p.wallet = w
	p.mu.Unlock()

	p.logger.Info("Wallet connected", zap.String("public_key", w.PublicKey.String()))
	p.emitter.Emit(EventConnect, w.PublicKey)
	return w.PublicKey, nil
}

// Disconnect forgets the key and emits disconnect.
func (p *KeyfileProvider) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	wasConnected := p.wallet != nil
	p.wallet = nil
	p.mu.Unlock()

	if !wasConnected {
		return ErrNotConnected
	}
	p.logger.Info("Wallet disconnected")
	p.emitter.Emit(EventDisconnect, solana.PublicKey{})
	return nil
}

func (p *KeyfileProvider) PublicKey() solana.PublicKey {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.wallet == nil {
		return solana.PublicKey{}
	}
	return p.wallet.PublicKey
}

// SignAndSendTransaction adds the owner signature and submits through the
// chain client.
func (p *KeyfileProvider) SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	p.mu.RLock()
	w := p.wallet
	p.mu.RUnlock()
	if w == nil {
		return solana.Signature{}, ErrNotConnected
	}

	if err := w.SignTransaction(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return p.sender.SendTransaction(ctx, tx)
}

func (p *KeyfileProvider) On(event Event, handler Handler) func() {
	return p.emitter.On(event, handler)
}

// Watch follows the keypair file until ctx is done and emits accountChange
// when a connected wallet's key is replaced on disk.
func (p *KeyfileProvider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", p.path, err)
	}

	target := filepath.Clean(p.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				p.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("Keypair watcher error", zap.Error(err))
		}
	}
}

func (p *KeyfileProvider) reload() {
	w, err := LoadKeypairFile(p.path)
	if err != nil {
		// Partial writes show up here; the next event carries the full file.
		p.logger.Debug("Keypair reload skipped", zap.Error(err))
		return
	}

	p.mu.Lock()
	if p.wallet == nil || p.wallet.PublicKey.Equals(w.PublicKey) {
		p.mu.Unlock()
		return
	}
	p.wallet = w
	p.mu.Unlock()

	p.logger.Info("Wallet account changed", zap.String("public_key", w.PublicKey.String()))
	p.emitter.Emit(EventAccountChange, w.PublicKey)
}

var _ Provider = (*KeyfileProvider)(nil)
