package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"paygate/config"
	"paygate/core/state"
	"paygate/native/payments"
	"paygate/native/token"
	"paygate/observability/logging"
	"paygate/rpc"
	"paygate/storage"
)

const rpcTokenEnv = "PAYGATE_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./paygate.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("PAYGATE_ENV"))
	logger := logging.Setup("paygated", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	program, _ := cfg.Program()
	operator, _ := cfg.Operator()
	tokenProgram, _ := cfg.TokenProgram()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	mgr := state.NewManager(db)
	tok := token.NewProgram(tokenProgram, mgr)
	processor := payments.NewProcessor(mgr, tok, payments.Config{
		Program:        program,
		Operator:       operator,
		TokenProgram:   tokenProgram,
		MinFee:         cfg.MinFee,
		SponsorFeeRate: cfg.SponsorFeePerMille,
	})
	processor.SetLogger(logger)

	authToken := strings.TrimSpace(os.Getenv(rpcTokenEnv))
	if authToken == "" {
		authToken = cfg.RPCToken
	}
	if authToken == "" {
		logger.Warn("No RPC token configured; pay_submitInstruction is disabled")
	}

	server := rpc.NewServer(processor, authToken)
	server.SetLogger(logger)
	logger.Info("paygated starting",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("dataDir", cfg.DataDir),
		slog.String("program", program.String()),
	)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
