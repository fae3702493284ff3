// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/solana-compressor/internal/blockchain"
	"github.com/rovshanmuradov/solana-compressor/internal/utils/metrics"
	"go.uber.org/zap"
)

const (
	defaultConfirmTimeout = 30 * time.Second
	confirmPollInterval   = 500 * time.Millisecond
)

var (
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrTransactionFailed   = errors.New("transaction failed on chain")
	ErrInvalidFilter       = errors.New("token account filter needs exactly one of program id or mint")
)

// RPCClient is the subset of the solana-go RPC client the adapter uses, so
// tests can substitute a fake node.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// Options tune the adapter; zero values fall back to defaults.
type Options struct {
	Commitment     rpc.CommitmentType
	ConfirmTimeout time.Duration
	Metrics        *metrics.Collector
}

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc            RPCClient
	logger         *zap.Logger
	metrics        *metrics.Collector
	commitment     rpc.CommitmentType
	confirmTimeout time.Duration
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger, opts Options) *Client {
	return NewClientWithRPC(rpc.New(rpcURL), logger, opts)
}

// NewClientWithRPC wraps an existing RPC implementation.
func NewClientWithRPC(rpcClient RPCClient, logger *zap.Logger, opts Options) *Client {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = defaultConfirmTimeout
	}
	return &Client{
		rpc:            rpcClient,
		logger:         logger.Named("solbc-client"),
		metrics:        opts.Metrics,
		commitment:     opts.Commitment,
		confirmTimeout: opts.ConfirmTimeout,
	}
}

func (c *Client) observe(method string, start time.Time, err error) {
	c.metrics.RecordRPCCall(method, err, time.Since(start))
}

// GetRecentBlockhash получает последний blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	start := time.Now()
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	c.observe("getLatestBlockhash", start, err)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	if result == nil || result.Value == nil {
		return solana.Hash{}, errors.New("empty blockhash response")
	}
	return result.Value.Blockhash, nil
}

// AccountExists reports whether the account has on-chain data. A missing
// account is not an error.
func (c *Client) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	start := time.Now()
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		c.observe("getAccountInfo", start, nil)
		return false, nil
	}
	c.observe("getAccountInfo", start, err)
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return false, err
	}
	return result != nil && result.Value != nil, nil
}

// parsedTokenAccount mirrors the jsonParsed layout of an SPL token account.
type parsedTokenAccount struct {
	Program string `json:"program"`
	Parsed  struct {
		Type string `json:"type"`
		Info struct {
			Mint        string `json:"mint"`
			Owner       string `json:"owner"`
			TokenAmount struct {
				Amount         string `json:"amount"`
				Decimals       uint8  `json:"decimals"`
				UIAmountString string `json:"uiAmountString"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// GetTokenAccountsByOwner returns the owner's token accounts in RPC order.
func (c *Client) GetTokenAccountsByOwner(
	ctx context.Context,
	owner solana.PublicKey,
	filter blockchain.TokenAccountFilter,
) ([]blockchain.TokenAccount, error) {
	if (filter.ProgramID == nil) == (filter.Mint == nil) {
		return nil, ErrInvalidFilter
	}

	start := time.Now()
	result, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{
			Mint:      filter.Mint,
			ProgramId: filter.ProgramID,
		},
		&rpc.GetTokenAccountsOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingJSONParsed,
		},
	)
	c.observe("getTokenAccountsByOwner", start, err)
	if err != nil {
		c.logger.Error("GetTokenAccountsByOwner error",
			zap.String("owner", owner.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	accounts := make([]blockchain.TokenAccount, 0, len(result.Value))
	for _, keyed := range result.Value {
		if keyed == nil {
			continue
		}
		account, err := decodeTokenAccount(keyed)
		if err != nil {
			return nil, fmt.Errorf("failed to decode token account %s: %w", keyed.Pubkey, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func decodeTokenAccount(keyed *rpc.TokenAccount) (blockchain.TokenAccount, error) {
	if keyed.Account.Data == nil {
		return blockchain.TokenAccount{}, errors.New("account has no data")
	}

	var parsed parsedTokenAccount
	if err := json.Unmarshal(keyed.Account.Data.GetRawJSON(), &parsed); err != nil {
		return blockchain.TokenAccount{}, fmt.Errorf("unexpected account encoding: %w", err)
	}

	info := parsed.Parsed.Info
	mint, err := solana.PublicKeyFromBase58(info.Mint)
	if err != nil {
		return blockchain.TokenAccount{}, fmt.Errorf("invalid mint: %w", err)
	}
	owner, err := solana.PublicKeyFromBase58(info.Owner)
	if err != nil {
		return blockchain.TokenAccount{}, fmt.Errorf("invalid owner: %w", err)
	}
	amount, err := strconv.ParseUint(info.TokenAmount.Amount, 10, 64)
	if err != nil {
		return blockchain.TokenAccount{}, fmt.Errorf("invalid amount %q: %w", info.TokenAmount.Amount, err)
	}

	return blockchain.TokenAccount{
		Address:        keyed.Pubkey,
		Mint:           mint,
		Owner:          owner,
		Amount:         amount,
		Decimals:       info.TokenAmount.Decimals,
		UIAmountString: info.TokenAmount.UIAmountString,
		Lamports:       keyed.Account.Lamports,
	}, nil
}

// SendTransaction отправляет подписанную транзакцию.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	c.observe("sendTransaction", start, err)
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// WaitForTransactionConfirmation polls signature status until the configured
// commitment is reached, the transaction fails, or the timeout elapses.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature) error {
	_, err := backoff.Retry(ctx,
		func() (struct{}, error) {
			start := time.Now()
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, signature)
			c.observe("getSignatureStatuses", start, err)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				return struct{}{}, err
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				return struct{}{}, errors.New("signature not yet visible")
			}

			status := statuses.Value[0]
			if status.Err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err))
			}
			if reached(status.ConfirmationStatus, c.commitment) {
				return struct{}{}, nil
			}
			return struct{}{}, fmt.Errorf("status %s", status.ConfirmationStatus)
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(confirmPollInterval)),
		backoff.WithMaxElapsedTime(c.confirmTimeout),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransactionFailed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrConfirmationTimeout, signature, err)
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentProcessed:
		return status == rpc.ConfirmationStatusProcessed ||
			status == rpc.ConfirmationStatusConfirmed ||
			status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	default:
		return status == rpc.ConfirmationStatusConfirmed ||
			status == rpc.ConfirmationStatusFinalized
	}
}

// GetTransactionLogs returns the program log lines of a landed transaction.
func (c *Client) GetTransactionLogs(ctx context.Context, signature solana.Signature) ([]string, error) {
	maxVersion := uint64(0)
	start := time.Now()
	result, err := c.rpc.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	c.observe("getTransaction", start, err)
	if err != nil {
		return nil, err
	}
	if result == nil || result.Meta == nil {
		return nil, nil
	}
	return result.Meta.LogMessages, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
