// Package compression builds compressed-token (Light Protocol) instructions
// and selects the token accounts that feed them.
package compression

import (
	"github.com/gagliardetto/solana-go"
)

// Light Protocol program ids and fixed accounts (mainnet and devnet).
var (
	CompressedTokenProgramID    = solana.MustPublicKeyFromBase58("cTokenmWW8bLPjZEBAUgYy3zKxQZW6VKi7bqNFEVv3m")
	LightSystemProgramID        = solana.MustPublicKeyFromBase58("SySTEM1eSU2p4BGQfQpimFEWWSC1XDFeun3Nqzz3rT7")
	AccountCompressionProgramID = solana.MustPublicKeyFromBase58("compr6CUsB5m2jS4Y3831ztGSTnDpnKJTKS95d64XVq")
	NoopProgramID               = solana.MustPublicKeyFromBase58("noopb9bkMVfRPU8AsbpTUg8AQkHtKwMYZiFUjNRtMmV")
	RegisteredProgramPDA        = solana.MustPublicKeyFromBase58("35hkDgaAKwMCaxRz2ocSZ6NaUrtKkyNqU6c4RV3tYJRh")

	DefaultStateTree      = solana.MustPublicKeyFromBase58("smt1NamzXdq4AMqS2fS2F1i5KTYPZRhoHgWx38d8WsT")
	DefaultNullifierQueue = solana.MustPublicKeyFromBase58("nfq1NvQDJ2GEgnS8zt9prAe8rjjpAW1zFkrvZoBR148")
)

var (
	cpiAuthoritySeed = []byte("cpi_authority")
	poolSeed         = []byte("pool")
)

// CPIAuthorityPDA is the compressed token program's signer for CPIs into the
// light system program.
func CPIAuthorityPDA() (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{cpiAuthoritySeed}, CompressedTokenProgramID)
	return pda, err
}

// AccountCompressionAuthority is the light system program's authority over
// the account compression program.
func AccountCompressionAuthority() (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{cpiAuthoritySeed}, LightSystemProgramID)
	return pda, err
}

// TokenPoolPDA holds the SPL balance backing compressed tokens of mint.
func TokenPoolPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{poolSeed, mint.Bytes()}, CompressedTokenProgramID)
	return pda, err
}
