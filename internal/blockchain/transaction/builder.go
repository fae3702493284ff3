// internal/blockchain/transaction/builder.go
package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

var ErrNoFeePayer = errors.New("no fee payer provided")

// BlockhashSource определяет интерфейс для получения blockhash
type BlockhashSource interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
}

// ComputeBudget is optional; zero values add no compute budget instructions.
type ComputeBudget struct {
	UnitLimit         uint32
	UnitPriceMicroLam uint64
}

// Builder assembles a transaction, stamps it with a fresh blockhash and fee
// payer, and signs it with the local signers it holds. Signers that are not
// held (a wallet provider's key, for instance) are left for the caller.
type Builder struct {
	instructions []solana.Instruction
	signers      []solana.PrivateKey
	feePayer     solana.PublicKey
	budget       ComputeBudget
}

// NewBuilder создает новый билдер транзакций
func NewBuilder() *Builder {
	return &Builder{}
}

// SetComputeBudget устанавливает параметры compute budget
func (b *Builder) SetComputeBudget(budget ComputeBudget) *Builder {
	b.budget = budget
	return b
}

// AddInstruction добавляет инструкцию в транзакцию
func (b *Builder) AddInstruction(instruction solana.Instruction) *Builder {
	b.instructions = append(b.instructions, instruction)
	return b
}

// SetFeePayer sets the account that pays the network fee.
func (b *Builder) SetFeePayer(payer solana.PublicKey) *Builder {
	b.feePayer = payer
	return b
}

// AddSigner добавляет подписанта транзакции
func (b *Builder) AddSigner(signer solana.PrivateKey) *Builder {
	b.signers = append(b.signers, signer)
	return b
}

func (b *Builder) budgetInstructions() []solana.Instruction {
	var instructions []solana.Instruction
	if b.budget.UnitLimit > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(b.budget.UnitLimit).Build())
	}
	if b.budget.UnitPriceMicroLam > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(b.budget.UnitPriceMicroLam).Build())
	}
	return instructions
}

// Build создает и частично подписывает транзакцию
func (b *Builder) Build(ctx context.Context, client BlockhashSource) (*solana.Transaction, error) {
	if b.feePayer.IsZero() {
		return nil, ErrNoFeePayer
	}
	if len(b.instructions) == 0 {
		return nil, fmt.Errorf("no instructions provided")
	}

	blockhash, err := client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	budget := b.budgetInstructions()
	instructions := make([]solana.Instruction, 0, len(budget)+len(b.instructions))
	instructions = append(instructions, budget...)
	instructions = append(instructions, b.instructions...)

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(b.feePayer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if len(b.signers) == 0 {
		return tx, nil
	}

	_, err = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		for _, signer := range b.signers {
			if signer.PublicKey().Equals(key) {
				privateCopy := signer
				return &privateCopy
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return tx, nil
}
