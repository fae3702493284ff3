// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"
)

// Fee payer modes for the compression workflow.
const (
	FeePayerEphemeral = "ephemeral"
	FeePayerWallet    = "wallet"
)

type Config struct {
	RPCURL           string        `mapstructure:"rpc_url"`
	RPCAPIKey        string        `mapstructure:"rpc_api_key"`
	Commitment       string        `mapstructure:"commitment"`
	ConfirmTimeoutMS int           `mapstructure:"confirm_timeout_ms"`
	ConfirmTimeout   time.Duration `mapstructure:"-"`
	DebugLogging     bool          `mapstructure:"debug_logging"`
	LogFile          string        `mapstructure:"log_file"`
	LogBufferSize    int           `mapstructure:"log_buffer_size"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`

	Wallet      WalletConfig      `mapstructure:"wallet"`
	Compression CompressionConfig `mapstructure:"compression"`
}

type WalletConfig struct {
	Provider    string `mapstructure:"provider"`
	KeypairPath string `mapstructure:"keypair_path"`
	InstallURL  string `mapstructure:"install_url"`
	Watch       bool   `mapstructure:"watch"`
}

type CompressionConfig struct {
	// Amount is the fixed compression target in token base units.
	Amount   uint64 `mapstructure:"amount"`
	FeePayer string `mapstructure:"fee_payer"`

	// Zero leaves the compute budget to the runtime.
	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`
}

const (
	DefaultRPCURL           = "https://api.devnet.solana.com"
	DefaultCommitment       = "confirmed"
	DefaultConfirmTimeoutMS = 30000
	DefaultLogFile          = "logs/compressor.log"
	DefaultLogBufferSize    = 500
	DefaultProvider         = "keyfile"
	DefaultKeypairPath      = "~/.config/solana/id.json"
	DefaultInstallURL       = "https://docs.solanalabs.com/cli/install"
	DefaultCompressAmount   = 1_000_000

	envPrefix = "COMPRESSOR"
)

// LoadConfig reads the file at path, overlays COMPRESSOR_* environment
// variables and validates the result. An empty path loads defaults and env only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	cfg.ConfirmTimeout = time.Duration(cfg.ConfirmTimeoutMS) * time.Millisecond
	home, _ := os.UserHomeDir()
	cfg.Wallet.KeypairPath = expandHome(cfg.Wallet.KeypairPath, home)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"rpc_url":                        DefaultRPCURL,
		"commitment":                     DefaultCommitment,
		"confirm_timeout_ms":             DefaultConfirmTimeoutMS,
		"debug_logging":                  false,
		"log_file":                       DefaultLogFile,
		"log_buffer_size":                DefaultLogBufferSize,
		"metrics_addr":                   "",
		"rpc_api_key":                    "",
		"wallet.provider":                DefaultProvider,
		"wallet.keypair_path":            DefaultKeypairPath,
		"wallet.install_url":             DefaultInstallURL,
		"wallet.watch":                   true,
		"compression.amount":             DefaultCompressAmount,
		"compression.fee_payer":          FeePayerEphemeral,
		"compression.compute_unit_limit": 0,
		"compression.compute_unit_price": 0,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func (c *Config) validate() error {
	if c.RPCURL == "" {
		return errors.New("rpc_url is empty")
	}
	if err := validateURL(c.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if c.Wallet.InstallURL != "" {
		if err := validateURL(c.Wallet.InstallURL, "http"); err != nil {
			return fmt.Errorf("invalid wallet.install_url: %w", err)
		}
	}
	switch rpc.CommitmentType(c.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("invalid commitment %q", c.Commitment)
	}
	if c.ConfirmTimeoutMS <= 0 {
		return errors.New("invalid confirm_timeout_ms")
	}
	if c.LogBufferSize <= 0 {
		return errors.New("invalid log_buffer_size")
	}
	if c.Wallet.Provider == "" {
		return errors.New("wallet.provider is empty")
	}
	if c.Wallet.KeypairPath == "" {
		return errors.New("wallet.keypair_path is empty")
	}
	if c.Compression.Amount == 0 {
		return errors.New("compression.amount must be positive")
	}
	switch c.Compression.FeePayer {
	case FeePayerEphemeral, FeePayerWallet:
	default:
		return fmt.Errorf("invalid compression.fee_payer %q", c.Compression.FeePayer)
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

// Endpoint returns the RPC URL with the API key attached as the api-key query
// parameter, the form most hosted RPC providers accept.
func (c *Config) Endpoint() string {
	if c.RPCAPIKey == "" {
		return c.RPCURL
	}
	parsed, err := url.Parse(c.RPCURL)
	if err != nil {
		return c.RPCURL
	}
	q := parsed.Query()
	q.Set("api-key", c.RPCAPIKey)
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// CommitmentType returns the configured commitment as the rpc type.
func (c *Config) CommitmentType() rpc.CommitmentType {
	return rpc.CommitmentType(c.Commitment)
}

func expandHome(path, home string) string {
	if home == "" || !strings.HasPrefix(path, "~/") {
		return path
	}
	return strings.TrimSuffix(home, "/") + path[1:]
}
