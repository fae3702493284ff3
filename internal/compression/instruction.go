package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// transferDiscriminator is the anchor selector of the compressed token
// program's "transfer" instruction, which also handles compress.
var transferDiscriminator = [8]byte{163, 52, 200, 231, 140, 3, 69, 186}

// TokenTransferOutput is a packed compressed token output.
type TokenTransferOutput struct {
	Owner           solana.PublicKey
	Amount          uint64
	Lamports        *uint64
	MerkleTreeIndex uint8
}

func (o TokenTransferOutput) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(o.Owner.Bytes(), false); err != nil {
		return err
	}
	if err := enc.WriteUint64(o.Amount, binary.LittleEndian); err != nil {
		return err
	}
	if err := writeOptionalUint64(enc, o.Lamports); err != nil {
		return err
	}
	if err := enc.WriteUint8(o.MerkleTreeIndex); err != nil {
		return err
	}
	// tlv: None
	return enc.WriteOption(false)
}

// TransferData is the borsh payload of the transfer instruction restricted to
// the compress path: no proof, no inputs, no delegate, no CPI context.
type TransferData struct {
	Mint       solana.PublicKey
	Outputs    []TokenTransferOutput
	IsCompress bool
	Amount     *uint64
}

func (d TransferData) MarshalWithEncoder(enc *bin.Encoder) error {
	// proof: None
	if err := enc.WriteOption(false); err != nil {
		return err
	}
	if err := enc.WriteBytes(d.Mint.Bytes(), false); err != nil {
		return err
	}
	// delegated_transfer: None
	if err := enc.WriteOption(false); err != nil {
		return err
	}
	// input_token_data_with_context: empty
	if err := enc.WriteLength(0); err != nil {
		return err
	}
	if err := enc.WriteLength(len(d.Outputs)); err != nil {
		return err
	}
	for _, out := range d.Outputs {
		if err := out.MarshalWithEncoder(enc); err != nil {
			return err
		}
	}
	if err := enc.WriteBool(d.IsCompress); err != nil {
		return err
	}
	if err := writeOptionalUint64(enc, d.Amount); err != nil {
		return err
	}
	// cpi_context: None
	if err := enc.WriteOption(false); err != nil {
		return err
	}
	// lamports_change_account_merkle_tree_index: None
	return enc.WriteOption(false)
}

func writeOptionalUint64(enc *bin.Encoder, v *uint64) error {
	if v == nil {
		return enc.WriteOption(false)
	}
	if err := enc.WriteOption(true); err != nil {
		return err
	}
	return enc.WriteUint64(*v, binary.LittleEndian)
}

// EncodeTransferData returns discriminator || borsh Vec<u8>(payload).
func EncodeTransferData(data TransferData) ([]byte, error) {
	payload := new(bytes.Buffer)
	if err := data.MarshalWithEncoder(bin.NewBorshEncoder(payload)); err != nil {
		return nil, fmt.Errorf("encode transfer data: %w", err)
	}

	out := new(bytes.Buffer)
	out.Write(transferDiscriminator[:])
	if err := bin.NewBorshEncoder(out).WriteBytes(payload.Bytes(), true); err != nil {
		return nil, fmt.Errorf("encode transfer data: %w", err)
	}
	return out.Bytes(), nil
}

// CompressParams are the inputs of NewCompressInstruction.
type CompressParams struct {
	Payer  solana.PublicKey
	Owner  solana.PublicKey
	Source solana.PublicKey
	Mint   solana.PublicKey
	Amount uint64
	// Recipient of the compressed balance; defaults to Owner.
	Recipient solana.PublicKey
	// OutputStateTree defaults to DefaultStateTree.
	OutputStateTree solana.PublicKey
}

// NewCompressInstruction moves Amount from the SPL account Source into a
// compressed token account owned by the recipient. Both Payer and Owner sign.
func NewCompressInstruction(p CompressParams) (solana.Instruction, error) {
	if p.Amount == 0 {
		return nil, fmt.Errorf("compress amount must be positive")
	}
	recipient := p.Recipient
	if recipient.IsZero() {
		recipient = p.Owner
	}
	tree := p.OutputStateTree
	if tree.IsZero() {
		tree = DefaultStateTree
	}

	cpiAuthority, err := CPIAuthorityPDA()
	if err != nil {
		return nil, fmt.Errorf("cpi authority pda: %w", err)
	}
	compressionAuthority, err := AccountCompressionAuthority()
	if err != nil {
		return nil, fmt.Errorf("account compression authority pda: %w", err)
	}
	pool, err := TokenPoolPDA(p.Mint)
	if err != nil {
		return nil, fmt.Errorf("token pool pda: %w", err)
	}

	amount := p.Amount
	data, err := EncodeTransferData(TransferData{
		Mint: p.Mint,
		Outputs: []TokenTransferOutput{{
			Owner:  recipient,
			Amount: p.Amount,
		}},
		IsCompress: true,
		Amount:     &amount,
	})
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(p.Payer).WRITE().SIGNER(),
		solana.Meta(p.Owner).SIGNER(),
		solana.Meta(cpiAuthority),
		solana.Meta(LightSystemProgramID),
		solana.Meta(RegisteredProgramPDA),
		solana.Meta(NoopProgramID),
		solana.Meta(compressionAuthority),
		solana.Meta(AccountCompressionProgramID),
		solana.Meta(CompressedTokenProgramID),
		solana.Meta(pool).WRITE(),
		solana.Meta(p.Source).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(tree).WRITE(),
	}

	return solana.NewInstruction(CompressedTokenProgramID, accounts, data), nil
}
