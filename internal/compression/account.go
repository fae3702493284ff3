package compression

import (
	"github.com/gagliardetto/solana-go"
)

// CompressedAccount describes a token balance as input to compression.
type CompressedAccount struct {
	Hash     []byte
	Owner    solana.PublicKey
	Mint     solana.PublicKey
	Amount   uint64
	Lamports uint64
	// Address is nil when the holding account cannot be addressed directly.
	Address *solana.PublicKey
	Data    []byte
}

// FromTokenAccount reshapes an SPL token account. Lamports are nominal and
// the hash is the account address.
func FromTokenAccount(address, owner, mint solana.PublicKey, amount uint64) CompressedAccount {
	addr := address
	return CompressedAccount{
		Hash:    address.Bytes(),
		Owner:   owner,
		Mint:    mint,
		Amount:  amount,
		Address: &addr,
		Data:    []byte{},
	}
}
