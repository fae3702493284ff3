// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// TokenAccount is one parsed SPL token account as returned by
// getTokenAccountsByOwner with jsonParsed encoding.
type TokenAccount struct {
	Address        solana.PublicKey
	Mint           solana.PublicKey
	Owner          solana.PublicKey
	Amount         uint64
	Decimals       uint8
	UIAmountString string
	Lamports       uint64
}

// TokenAccountFilter restricts getTokenAccountsByOwner either to a token
// program or to a single mint. Exactly one field must be set.
type TokenAccountFilter struct {
	ProgramID *solana.PublicKey
	Mint      *solana.PublicKey
}

// ByProgram filters token accounts by owning program.
func ByProgram(programID solana.PublicKey) TokenAccountFilter {
	return TokenAccountFilter{ProgramID: &programID}
}

// ByMint filters token accounts by mint.
func ByMint(mint solana.PublicKey) TokenAccountFilter {
	return TokenAccountFilter{Mint: &mint}
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	// Получить последний blockhash.
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	// Проверить, существует ли аккаунт.
	AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error)
	// Получить токен-аккаунты владельца.
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, filter TokenAccountFilter) ([]TokenAccount, error)
	// Отправить транзакцию.
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// Ожидание подтверждения транзакции.
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature) error
	// Получить логи транзакции.
	GetTransactionLogs(ctx context.Context, signature solana.Signature) ([]string, error)
}
