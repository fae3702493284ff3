package token

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-compressor/internal/blockchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockAccountSource struct {
	mock.Mock
}

func (m *MockAccountSource) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, filter blockchain.TokenAccountFilter) ([]blockchain.TokenAccount, error) {
	args := m.Called(ctx, owner, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]blockchain.TokenAccount), args.Error(1)
}

func tokenAccount(amount uint64, decimals uint8, ui string) blockchain.TokenAccount {
	return blockchain.TokenAccount{
		Address:        solana.NewWallet().PublicKey(),
		Mint:           solana.NewWallet().PublicKey(),
		Amount:         amount,
		Decimals:       decimals,
		UIAmountString: ui,
	}
}

func TestFetchMapsEveryAccountInOrder(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	accounts := []blockchain.TokenAccount{
		tokenAccount(1500, 3, "1.5"),
		tokenAccount(0, 6, "0"),
		tokenAccount(42, 0, ""),
	}

	source := &MockAccountSource{}
	source.On("GetTokenAccountsByOwner", mock.Anything, owner,
		mock.MatchedBy(func(f blockchain.TokenAccountFilter) bool {
			return f.Mint == nil && f.ProgramID != nil && f.ProgramID.Equals(solana.TokenProgramID)
		}),
	).Return(accounts, nil).Once()

	records, err := NewLister(source, zaptest.NewLogger(t)).Fetch(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, records, len(accounts))

	for i, r := range records {
		assert.Equal(t, accounts[i].Mint.String(), r.Mint)
		assert.Equal(t, accounts[i].Address.String(), r.Account)
		assert.False(t, r.Selected)
	}
	assert.Equal(t, "1.5", records[0].Amount)
	assert.Equal(t, "42", records[2].Amount)
	source.AssertExpectations(t)
}

func TestFetchPropagatesError(t *testing.T) {
	source := &MockAccountSource{}
	rpcErr := errors.New("429 too many requests")
	source.On("GetTokenAccountsByOwner", mock.Anything, mock.Anything, mock.Anything).Return(nil, rpcErr)

	records, err := NewLister(source, zaptest.NewLogger(t)).Fetch(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, rpcErr)
	assert.Nil(t, records)
}

func TestToggleFlipsOnlyOneRecord(t *testing.T) {
	list := &List{}
	list.Replace([]Record{{Mint: "a"}, {Mint: "b", Selected: true}, {Mint: "c"}})

	list.Toggle(0)
	assert.Equal(t, []bool{true, true, false}, selection(list))

	list.Toggle(1)
	assert.Equal(t, []bool{true, false, false}, selection(list))

	list.Toggle(-1)
	list.Toggle(3)
	assert.Equal(t, []bool{true, false, false}, selection(list))
	assert.Equal(t, []int{0}, list.Selected())

	list.Clear()
	assert.Zero(t, list.Len())
	assert.Empty(t, list.Selected())
}

func selection(l *List) []bool {
	out := make([]bool, l.Len())
	for i, r := range l.Records {
		out[i] = r.Selected
	}
	return out
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.5", FormatAmount(1500, 3))
	assert.Equal(t, "0.000001", FormatAmount(1, 6))
	assert.Equal(t, "18446744073709551615", FormatAmount(^uint64(0), 0))
	assert.Equal(t, "0", FormatAmount(0, 9))
}
