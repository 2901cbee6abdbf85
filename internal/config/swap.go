package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// Raydium CPMM mainnet program.
	DefaultCPMMProgramID = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"
	// wrapped SOL
	DefaultRouteTokenMint = "So11111111111111111111111111111111111111112"
)

type SwapConfig struct {
	ProgramID      solana.PublicKey
	AmmConfigIndex uint16
	RouteTokenMint solana.PublicKey

	DefaultSlippageBps uint16
	MaxSlippageBps     uint16
	WrapNativeSOL      bool

	Commitment      rpc.CommitmentType
	ConfirmTimeout  time.Duration
	PollInterval    time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	BlockhashMaxAge time.Duration

	ComputeUnitLimit uint32
	PriorityUrgency  string

	TokenListPath string
}

func (c *SwapConfig) Key() string {
	return SWAP_CONFIG_KEY
}

func (c *SwapConfig) Load() error {
	var err error
	if c.ProgramID, err = solana.PublicKeyFromBase58(common.GetEnvOrDefault("CPMM_PROGRAM_ID", DefaultCPMMProgramID)); err != nil {
		return fmt.Errorf("CPMM_PROGRAM_ID: %w", err)
	}
	if route := common.GetEnvOrDefault("ROUTE_TOKEN_MINT", DefaultRouteTokenMint); route != "" {
		if c.RouteTokenMint, err = solana.PublicKeyFromBase58(route); err != nil {
			return fmt.Errorf("ROUTE_TOKEN_MINT: %w", err)
		}
	}
	c.AmmConfigIndex = uint16(common.GetEnvOrDefaultInt("AMM_CONFIG_INDEX", 0))

	c.DefaultSlippageBps = uint16(common.GetEnvOrDefaultInt("DEFAULT_SLIPPAGE_BPS", 50))
	c.MaxSlippageBps = uint16(common.GetEnvOrDefaultInt("MAX_SLIPPAGE_BPS", 5000))
	c.WrapNativeSOL = common.GetEnvOrDefault("WRAP_NATIVE_SOL", "true") == "true"

	c.Commitment = rpc.CommitmentType(strings.ToLower(common.GetEnvOrDefault("CONFIRM_COMMITMENT", string(rpc.CommitmentConfirmed))))
	c.ConfirmTimeout = time.Duration(common.GetEnvOrDefaultInt("CONFIRM_TIMEOUT", 20)) * time.Second
	c.PollInterval = time.Duration(common.GetEnvOrDefaultInt("POLL_INTERVAL", 3000)) * time.Millisecond
	c.MaxRetries = common.GetEnvOrDefaultInt("SUBMIT_MAX_RETRIES", 2)
	c.RetryBackoff = time.Duration(common.GetEnvOrDefaultInt("SUBMIT_RETRY_BACKOFF", 500)) * time.Millisecond
	c.BlockhashMaxAge = time.Duration(common.GetEnvOrDefaultInt("BLOCKHASH_MAX_AGE", 2000)) * time.Millisecond

	c.ComputeUnitLimit = uint32(common.GetEnvOrDefaultInt("COMPUTE_UNIT_LIMIT", 200000))
	c.PriorityUrgency = common.GetEnvOrDefault("PRIORITY_URGENCY", "medium")

	c.TokenListPath = common.GetEnvOrDefault("TOKEN_LIST_PATH", "")
	return c.Validate()
}

func (c *SwapConfig) Validate() error {
	if c.ProgramID.IsZero() {
		return errors.New("invalid swap config: program id is required")
	}
	if c.MaxSlippageBps == 0 || c.MaxSlippageBps >= 10000 {
		return errors.New("invalid swap config: MAX_SLIPPAGE_BPS must be in (0, 10000)")
	}
	if c.DefaultSlippageBps > c.MaxSlippageBps {
		return errors.New("invalid swap config: DEFAULT_SLIPPAGE_BPS exceeds MAX_SLIPPAGE_BPS")
	}
	switch c.Commitment {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("invalid swap config: unknown commitment %q", c.Commitment)
	}
	if c.MaxRetries < 0 {
		return errors.New("invalid swap config: SUBMIT_MAX_RETRIES must not be negative")
	}
	if c.ConfirmTimeout <= 0 || c.PollInterval <= 0 {
		return errors.New("invalid swap config: confirmation timings must be positive")
	}
	if c.ComputeUnitLimit == 0 || c.ComputeUnitLimit > 1_400_000 {
		return errors.New("invalid swap config: COMPUTE_UNIT_LIMIT must be in (0, 1400000]")
	}
	return nil
}
