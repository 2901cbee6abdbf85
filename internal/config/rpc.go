package config

import (
	"errors"
	"os"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type RPCConfig struct {
	RPCUrl         string
	RequestTimeout time.Duration
	// SignerPrivateKey is the base58 key of the fee payer that signs swaps submitted
	// through the API. Empty disables execution.
	SignerPrivateKey string
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")
	r.RequestTimeout = time.Duration(common.GetEnvOrDefaultInt("RPC_REQUEST_TIMEOUT", 10)) * time.Second
	r.SignerPrivateKey = os.Getenv("SIGNER_PRIVATE_KEY")
	return nil
}

func (r *RPCConfig) Validate() error {
	if r.RPCUrl == "" {
		return errors.New("invalid rpc config: RPC_URL is required")
	}
	if r.RequestTimeout <= 0 {
		return errors.New("invalid rpc config: RPC_REQUEST_TIMEOUT must be positive")
	}
	return nil
}
