package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"paygate/crypto"
)

func testAddr(fill byte) string {
	var a crypto.Address
	for i := range a {
		a[i] = fill
	}
	return a.String()
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paygate.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, DefaultMinFee, cfg.MinFee)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config must be written to disk")

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paygate.toml")
	content := `
RPCAddress = ":9090"
DataDir = "/tmp/paygate"
ProgramAddress = "` + testAddr(0xAA) + `"
OperatorAddress = "` + testAddr(0x0F) + `"
TokenProgramAddress = "` + testAddr(0xF0) + `"
MinFee = 7000
SponsorFeePerMille = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.RPCAddress)
	require.Equal(t, uint64(7000), cfg.MinFee)
	require.Equal(t, uint64(5), cfg.SponsorFeePerMille)
	require.NoError(t, cfg.Validate())

	program, err := cfg.Program()
	require.NoError(t, err)
	require.Equal(t, testAddr(0xAA), program.String())
}

func TestValidateRejectsMissingAddresses(t *testing.T) {
	cfg := &Config{RPCAddress: ":8080", DataDir: "./data"}
	require.Error(t, cfg.Validate())

	cfg.ProgramAddress = testAddr(0xAA)
	cfg.OperatorAddress = testAddr(0x0F)
	require.Error(t, cfg.Validate(), "token program still missing")

	cfg.TokenProgramAddress = testAddr(0xF0)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsZeroAddress(t *testing.T) {
	cfg := &Config{
		RPCAddress:          ":8080",
		DataDir:             "./data",
		ProgramAddress:      testAddr(0x00),
		OperatorAddress:     testAddr(0x0F),
		TokenProgramAddress: testAddr(0xF0),
	}
	require.Error(t, cfg.Validate())
}
