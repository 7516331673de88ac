package config

import (
	"fmt"

	"paygate/crypto"
)

// Validate checks the loaded configuration for the fields the daemon cannot
// default: the program, operator and token program identities.
func (c *Config) Validate() error {
	if c.RPCAddress == "" {
		return fmt.Errorf("config: RPCAddress required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if _, err := c.Program(); err != nil {
		return fmt.Errorf("config: ProgramAddress: %w", err)
	}
	if _, err := c.Operator(); err != nil {
		return fmt.Errorf("config: OperatorAddress: %w", err)
	}
	if _, err := c.TokenProgram(); err != nil {
		return fmt.Errorf("config: TokenProgramAddress: %w", err)
	}
	return nil
}

func decodeNonZero(value string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return crypto.Address{}, err
	}
	if addr.IsZero() {
		return crypto.Address{}, fmt.Errorf("zero address not allowed")
	}
	return addr, nil
}

// Program decodes the payment program identity.
func (c *Config) Program() (crypto.Address, error) {
	return decodeNonZero(c.ProgramAddress)
}

// Operator decodes the platform operator key.
func (c *Config) Operator() (crypto.Address, error) {
	return decodeNonZero(c.OperatorAddress)
}

// TokenProgram decodes the token primitive identity.
func (c *Config) TokenProgram() (crypto.Address, error) {
	return decodeNonZero(c.TokenProgramAddress)
}
