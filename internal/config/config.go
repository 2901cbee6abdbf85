package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

type ServerEnv = string

var (
	DevEnv     ServerEnv = "dev"
	StagingEnv ServerEnv = "staging"
	ProdEnv    ServerEnv = "prod"
)

const (
	GENERAL_CONFIG_KEY = "general-config"
	RPC_CONFIG_KEY     = "rpc-config"
	SWAP_CONFIG_KEY    = "swap-config"
	JOURNAL_CONFIG_KEY = "journal-config"
)

type GeneralConfig struct {
	HTTPPort string
	HTTPHost string
	Env      string
	LogLevel string
	LogFile  string
}

func (gc *GeneralConfig) Key() string {
	return GENERAL_CONFIG_KEY
}

func (gc *GeneralConfig) Load() error {
	gc.HTTPPort = common.GetEnvOrDefault("HTTP_PORT", "8080")
	gc.HTTPHost = common.GetEnvOrDefault("HTTP_HOST", "localhost")
	gc.Env = common.GetEnvOrDefault("ENV", DevEnv)
	gc.LogLevel = common.GetEnvOrDefault("LOG_LEVEL", "INFO")
	gc.LogFile = common.GetEnvOrDefault("LOG_FILE", "")
	return gc.Validate()
}

func (gc *GeneralConfig) Validate() error {
	if gc.HTTPPort == "" || gc.HTTPHost == "" || gc.Env == "" {
		return errors.New("invalid server config")
	}
	return nil
}
