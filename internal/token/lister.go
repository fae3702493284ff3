package token

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-compressor/internal/blockchain"
	"go.uber.org/zap"
)

// AccountSource is the part of the chain client the lister needs.
type AccountSource interface {
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, filter blockchain.TokenAccountFilter) ([]blockchain.TokenAccount, error)
}

// Lister fetches a wallet's token accounts under the standard token program.
type Lister struct {
	source AccountSource
	logger *zap.Logger
}

func NewLister(source AccountSource, logger *zap.Logger) *Lister {
	return &Lister{source: source, logger: logger.Named("token-lister")}
}

// Fetch returns one unselected Record per token account in RPC order.
func (l *Lister) Fetch(ctx context.Context, owner solana.PublicKey) ([]Record, error) {
	accounts, err := l.source.GetTokenAccountsByOwner(ctx, owner, blockchain.ByProgram(solana.TokenProgramID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token accounts: %w", err)
	}

	records := make([]Record, 0, len(accounts))
	for _, acc := range accounts {
		records = append(records, toRecord(acc))
	}

	l.logger.Debug("Fetched tokens",
		zap.String("owner", owner.String()),
		zap.Int("count", len(records)))
	return records, nil
}

func toRecord(acc blockchain.TokenAccount) Record {
	amount := acc.UIAmountString
	if amount == "" {
		amount = FormatAmount(acc.Amount, acc.Decimals)
	}
	return Record{
		Mint:     acc.Mint.String(),
		Amount:   amount,
		Raw:      acc.Amount,
		Decimals: acc.Decimals,
		Account:  acc.Address.String(),
	}
}
