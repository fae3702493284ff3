// Package compressor runs the compress workflow for one selected token:
// make sure the owner's associated account exists, pick the input account,
// submit the compress instruction and wait for it to land.
package compressor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-compressor/internal/blockchain"
	"github.com/rovshanmuradov/solana-compressor/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-compressor/internal/blockchain/transaction"
	"github.com/rovshanmuradov/solana-compressor/internal/compression"
	"github.com/rovshanmuradov/solana-compressor/internal/config"
	"github.com/rovshanmuradov/solana-compressor/internal/logger"
	"github.com/rovshanmuradov/solana-compressor/internal/token"
	"github.com/rovshanmuradov/solana-compressor/internal/utils/metrics"
	"github.com/rovshanmuradov/solana-compressor/internal/wallet"
	"go.uber.org/zap"
)

var (
	ErrSelectExactlyOne          = errors.New("select exactly one token")
	ErrWalletNotConnected        = errors.New("wallet not connected")
	ErrNoInputAccounts           = errors.New("no token accounts to compress from")
	ErrAccountAddressUnavailable = errors.New("selected account has no address")
	ErrBusy                      = errors.New("compression already in progress")
)

// Steps reported in Error.
const (
	StepPrepare = "prepare"
	StepCreate  = "create_ata"
	StepSelect  = "select"
	StepBuild   = "build"
	StepSubmit  = "compress"
)

// Signer is the connected wallet as seen by the workflow.
type Signer interface {
	PublicKey() solana.PublicKey
	SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Error reports the failed step with whatever diagnostics could be gathered.
type Error struct {
	Step      string
	Signature solana.Signature
	Logs      []string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result of a successful run. CreateSignature is zero when the associated
// account already existed.
type Result struct {
	CreateSignature   solana.Signature
	CompressSignature solana.Signature
	Source            solana.PublicKey
	Amount            uint64
}

// Options configure an Orchestrator.
type Options struct {
	Amount        uint64
	FeePayer      string
	ComputeBudget transaction.ComputeBudget
	Metrics       *metrics.Collector
}

type Orchestrator struct {
	client  blockchain.Client
	logger  *zap.Logger
	metrics *metrics.Collector

	amount   uint64
	feePayer string
	budget   transaction.ComputeBudget

	busy atomic.Bool

	compressIx func(compression.CompressParams) (solana.Instruction, error)
}

func New(client blockchain.Client, log *zap.Logger, opts Options) *Orchestrator {
	if opts.Amount == 0 {
		opts.Amount = config.DefaultCompressAmount
	}
	if opts.FeePayer == "" {
		opts.FeePayer = config.FeePayerEphemeral
	}
	return &Orchestrator{
		client:     client,
		logger:     log.Named("compressor"),
		metrics:    opts.Metrics,
		amount:     opts.Amount,
		feePayer:   opts.FeePayer,
		budget:     opts.ComputeBudget,
		compressIx: compression.NewCompressInstruction,
	}
}

// Busy reports whether a run is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Compress compresses the configured amount of the single selected token.
func (o *Orchestrator) Compress(ctx context.Context, records []token.Record, signer Signer) (*Result, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.busy.Store(false)

	var selected []token.Record
	for _, r := range records {
		if r.Selected {
			selected = append(selected, r)
		}
	}
	if len(selected) != 1 {
		o.metrics.RecordCompression("rejected")
		return nil, ErrSelectExactlyOne
	}
	if signer == nil || signer.PublicKey().IsZero() {
		o.metrics.RecordCompression("rejected")
		return nil, ErrWalletNotConnected
	}

	r := &run{
		Orchestrator: o,
		log:          logger.WithOperation(o.logger, "compress"),
		signer:       signer,
		owner:        signer.PublicKey(),
	}

	result, err := r.execute(ctx, selected[0])
	if err != nil {
		r.diagnose(ctx, err)
		o.metrics.RecordCompression("failed")
		return nil, err
	}

	o.metrics.RecordCompression("success")
	r.log.Info("Tokens compressed",
		zap.String("mint", selected[0].Mint),
		zap.String("source", result.Source.String()),
		zap.Uint64("amount", result.Amount),
		zap.String("signature", result.CompressSignature.String()))
	return result, nil
}

// run carries the state of one Compress call.
type run struct {
	*Orchestrator
	log    *zap.Logger
	signer Signer
	owner  solana.PublicKey
	payer  solana.PrivateKey

	lastSignature solana.Signature
}

func (r *run) fail(step string, err error) error {
	return &Error{Step: step, Signature: r.lastSignature, Err: err}
}

func (r *run) execute(ctx context.Context, rec token.Record) (*Result, error) {
	mint, err := solana.PublicKeyFromBase58(rec.Mint)
	if err != nil {
		return nil, r.fail(StepPrepare, fmt.Errorf("invalid mint %q: %w", rec.Mint, err))
	}

	feePayer := r.owner
	if r.feePayer == config.FeePayerEphemeral {
		r.payer = solana.NewWallet().PrivateKey
		feePayer = r.payer.PublicKey()
	}
	r.log.Debug("Starting compression",
		zap.String("mint", mint.String()),
		zap.String("owner", r.owner.String()),
		zap.String("fee_payer", feePayer.String()))

	result := &Result{Amount: r.amount}

	ata, _, err := solana.FindAssociatedTokenAddress(r.owner, mint)
	if err != nil {
		return nil, r.fail(StepPrepare, fmt.Errorf("derive associated account: %w", err))
	}
	exists, err := r.client.AccountExists(ctx, ata)
	if err != nil {
		return nil, r.fail(StepPrepare, fmt.Errorf("check associated account: %w", err))
	}
	if !exists {
		r.log.Info("Creating associated token account", zap.String("ata", ata.String()))
		ix := wallet.CreateAssociatedTokenAccountInstruction(feePayer, r.owner, mint)
		sig, err := r.submit(ctx, "create_ata", feePayer, ix)
		if err != nil {
			return nil, r.fail(StepCreate, err)
		}
		result.CreateSignature = sig
	}

	accounts, err := r.client.GetTokenAccountsByOwner(ctx, r.owner, blockchain.ByMint(mint))
	if err != nil {
		return nil, r.fail(StepSelect, fmt.Errorf("fetch token accounts: %w", err))
	}
	descriptors := make([]compression.CompressedAccount, 0, len(accounts))
	for _, acc := range accounts {
		descriptors = append(descriptors, compression.FromTokenAccount(acc.Address, acc.Owner, acc.Mint, acc.Amount))
	}

	chosen, total, err := compression.SelectMinAccountsForTransfer(descriptors, r.amount)
	if len(chosen) == 0 {
		return nil, r.fail(StepSelect, ErrNoInputAccounts)
	}
	if err != nil {
		return nil, r.fail(StepSelect, err)
	}
	if chosen[0].Address == nil {
		return nil, r.fail(StepSelect, ErrAccountAddressUnavailable)
	}
	source := *chosen[0].Address
	r.log.Debug("Selected input account",
		zap.String("source", source.String()),
		zap.Int("inputs", len(chosen)),
		zap.Uint64("total", total))

	ix, err := r.compressIx(compression.CompressParams{
		Payer:  feePayer,
		Owner:  r.owner,
		Source: source,
		Mint:   mint,
		Amount: r.amount,
	})
	if err != nil {
		return nil, r.fail(StepBuild, err)
	}

	sig, err := r.submit(ctx, "compress", feePayer, ix)
	if err != nil {
		return nil, r.fail(StepSubmit, err)
	}

	result.CompressSignature = sig
	result.Source = source
	return result, nil
}

// submit builds a transaction paid by feePayer, signs it with the ephemeral
// payer when there is one, lets the wallet co-sign and send it, then waits
// for confirmation.
func (r *run) submit(ctx context.Context, kind string, feePayer solana.PublicKey, ix solana.Instruction) (solana.Signature, error) {
	start := time.Now()

	builder := transaction.NewBuilder().
		SetFeePayer(feePayer).
		SetComputeBudget(r.budget).
		AddInstruction(ix)
	if len(r.payer) > 0 {
		builder.AddSigner(r.payer)
	}

	tx, err := builder.Build(ctx, r.client)
	if err != nil {
		r.metrics.RecordTransaction(kind, time.Since(start), false)
		return solana.Signature{}, err
	}

	sig, err := r.signer.SignAndSendTransaction(ctx, tx)
	if err != nil {
		r.metrics.RecordTransaction(kind, time.Since(start), false)
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	r.lastSignature = sig
	r.log.Info("Transaction sent", zap.String("kind", kind), zap.String("signature", sig.String()))

	if err := r.client.WaitForTransactionConfirmation(ctx, sig); err != nil {
		r.metrics.RecordTransaction(kind, time.Since(start), false)
		return sig, fmt.Errorf("confirm transaction %s: %w", sig, err)
	}
	r.metrics.RecordTransaction(kind, time.Since(start), true)
	return sig, nil
}

// diagnose attaches program logs to err. Lookup failures are only logged.
func (r *run) diagnose(ctx context.Context, err error) {
	var stepErr *Error
	if !errors.As(err, &stepErr) {
		return
	}

	logs := solbc.SimulationLogs(err)
	if len(logs) == 0 && !r.lastSignature.IsZero() {
		var lookupErr error
		logs, lookupErr = r.client.GetTransactionLogs(ctx, r.lastSignature)
		if lookupErr != nil {
			r.log.Warn("Failed to fetch transaction logs",
				zap.String("signature", r.lastSignature.String()),
				zap.Error(lookupErr))
		}
	}
	stepErr.Logs = logs

	fields := []zap.Field{
		zap.String("step", stepErr.Step),
		zap.Error(stepErr.Err),
		zap.Strings("logs", logs),
	}
	if !r.lastSignature.IsZero() {
		fields = append(fields, zap.String("signature", r.lastSignature.String()))
	}
	if anchorErr, ok := solbc.FindAnchorError(logs); ok {
		fields = append(fields, zap.String("anchor_error", anchorErr.String()))
	}
	r.log.Error("Compression failed", fields...)
}
