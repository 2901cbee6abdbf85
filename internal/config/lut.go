package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/gagliardetto/solana-go"
)

const LUT_CONFIG_KEY = "lut-config"

type LUTConfig struct {
	// Addresses is a list of on-chain Address Lookup Table public keys (base58).
	Addresses []string

	// RefreshInterval controls how often LUT states are re-fetched from RPC.
	RefreshInterval time.Duration
}

func (c *LUTConfig) Key() string {
	return LUT_CONFIG_KEY
}

func (c *LUTConfig) Load() error {
	raw := os.Getenv("LUT_ADDRESSES")
	if raw != "" {
		parts := strings.Split(raw, ",")
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				c.Addresses = append(c.Addresses, p)
			}
		}
	}
	c.RefreshInterval = time.Duration(common.GetEnvOrDefaultInt("LUT_REFRESH_INTERVAL", 300)) * time.Second
	return c.Validate()
}

func (c *LUTConfig) Validate() error {
	for _, addr := range c.Addresses {
		if _, err := solana.PublicKeyFromBase58(addr); err != nil {
			return fmt.Errorf("invalid lut address %q: %w", addr, err)
		}
	}
	return nil
}
