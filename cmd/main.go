package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tuma-ledger/internal/authority"
	"tuma-ledger/internal/bridge"
	"tuma-ledger/internal/config"
	"tuma-ledger/internal/database"
	"tuma-ledger/internal/emitters"
	"tuma-ledger/internal/escrow"
	"tuma-ledger/internal/events"
	"tuma-ledger/internal/health"
	"tuma-ledger/internal/interfaces"
	"tuma-ledger/internal/ledger"
	"tuma-ledger/internal/logger"
	"tuma-ledger/internal/params"
	"tuma-ledger/internal/registry"
	"tuma-ledger/internal/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Error().Interface("panic", r).Msg("Application panicked, recovering")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel)
	log := logger.GetLogger()

	var archive interfaces.RecordArchive
	if cfg.Database.Enabled {
		if err := database.InitDB(cfg.Database); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer database.Close()

		if err := database.RunMigrations(cfg.Database); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		archive = database.NewArchive()
	}

	var kafkaEmitter *emitters.KafkaEmitter
	emitter := &events.LogEmitter{}
	if cfg.Kafka.Enabled {
		kafkaEmitter = emitters.NewKafkaEmitter(cfg.Kafka.BrokerAddress, cfg.Kafka.Topic)
		emitter.WrappedEmitter = kafkaEmitter
		defer func() { _ = kafkaEmitter.Close() }()
	}

	if cfg.Ledger.OwnerAddress == "" {
		log.Fatal().Msg("LEDGER_OWNER_ADDRESS is required")
	}
	gate := authority.NewGate(cfg.Ledger.OwnerAddress, cfg.Ledger.TreasuryAddress)
	reg := registry.New(gate)
	paramStore := params.New(gate, params.Seed{
		TransactionFeeBps: cfg.Ledger.TransactionFeeBps,
		BridgeFeeBps:      cfg.Ledger.BridgeFeeBps,
		MinTxAmount:       cfg.Ledger.MinTxAmount,
		MaxTxAmount:       cfg.Ledger.MaxTxAmount,
		MinBridgeAmount:   cfg.Ledger.MinBridgeAmount,
		MaxBridgeAmount:   cfg.Ledger.MaxBridgeAmount,
	})

	seedRegistry(reg, gate.Authority())

	var allowances interfaces.AllowanceSource
	switch cfg.Escrow.Mode {
	case "erc20":
		erc20, err := escrow.NewERC20Allowances(cfg.Escrow.RpcEndpoint,
			cfg.Escrow.SpenderAddress, cfg.Escrow.RateLimit, reg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize ERC-20 allowance source")
		}
		defer erc20.Close()
		allowances = erc20
	default:
		allowances = escrow.NewMemoryAllowances()
	}

	transactions := ledger.New(gate, reg, paramStore, emitter, archive, log)
	bridges := bridge.New(gate, reg, paramStore, allowances, emitter, archive, log)

	health.RegisterLedger("transaction", transactions.GetTransactionCount)
	health.RegisterLedger("bridge", bridges.GetBridgeCount)
	health.SetReady(true)

	api := &server.APIHandlers{
		Transactions: transactions,
		Bridges:      bridges,
		Registry:     reg,
		Params:       paramStore,
		Gate:         gate,
		Logger:       log,
	}
	srv := server.New(log, cfg.HTTP, server.NewRouter(api))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		health.SetReady(false)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}
