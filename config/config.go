// Package config loads the daemon's TOML configuration. A missing file is
// replaced with a default one so a fresh checkout starts without ceremony.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// RPCAddress is the JSON-RPC listen address.
	RPCAddress string `toml:"RPCAddress"`
	// DataDir holds the LevelDB account store.
	DataDir string `toml:"DataDir"`
	// ProgramAddress is the payment program identity, bech32.
	ProgramAddress string `toml:"ProgramAddress"`
	// OperatorAddress is the platform operator key, bech32.
	OperatorAddress string `toml:"OperatorAddress"`
	// TokenProgramAddress is the external token primitive identity, bech32.
	TokenProgramAddress string `toml:"TokenProgramAddress"`
	// MinFee floors every merchant's configured fee, in native units.
	MinFee uint64 `toml:"MinFee"`
	// SponsorFeePerMille is the sponsor share of the protocol fee; zero
	// selects the built-in default rate.
	SponsorFeePerMille uint64 `toml:"SponsorFeePerMille"`
	// RPCToken guards the mutating RPC method; the PAYGATE_RPC_TOKEN
	// environment variable overrides it.
	RPCToken string `toml:"RPCToken"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.MinFee == 0 {
		cfg.MinFee = DefaultMinFee
	}
	return cfg, nil
}

// DefaultMinFee is the minimum platform fee written into fresh configs.
const DefaultMinFee uint64 = 5000

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress: ":8080",
		DataDir:    "./paygate-data",
		MinFee:     DefaultMinFee,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
