package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

type JournalConfig struct {
	// DBPath is the BoltDB file holding execution records.
	DBPath  string
	Enabled bool
}

func (c *JournalConfig) Key() string {
	return JOURNAL_CONFIG_KEY
}

func (c *JournalConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("JOURNAL_DB_PATH", "./data/swap-engine.db")
	c.Enabled = common.GetEnvOrDefault("JOURNAL_ENABLED", "true") == "true"
	return nil
}

func (c *JournalConfig) Validate() error {
	return nil
}
