package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/agentbus-ledger/internal/api_gateway"
	apiservice "github.com/agentbus-ledger/internal/api_gateway/service"
	"github.com/agentbus-ledger/internal/config"
	"github.com/agentbus-ledger/internal/data/memory"
	"github.com/agentbus-ledger/internal/data/mongo"
	"github.com/agentbus-ledger/internal/data/postgres"
	"github.com/agentbus-ledger/internal/ledger_engine/components"
	"github.com/agentbus-ledger/internal/ledger_engine/workflows"
	"github.com/agentbus-ledger/internal/logger"
	"github.com/agentbus-ledger/internal/message_bus/dispatcher"
	"github.com/agentbus-ledger/internal/message_bus/ingress"
	"github.com/agentbus-ledger/internal/message_bus/sweeper"
	"github.com/agentbus-ledger/internal/message_bus/waiter"
	"github.com/agentbus-ledger/internal/platform/messaging/consumers"
	"github.com/agentbus-ledger/internal/platform/messaging/producers"
	"github.com/agentbus-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	engine := components.CreateLedgerEngine(
		postgresDB,
		postgres.NewJournalRepository(log, postgresDB),
		postgres.NewAccountRepository(log, postgresDB),
		log,
	)

	// Optional Kafka bridge: bus events, dead letters and ingress
	var (
		storeOpts     []memory.Option
		dispatchOpts  []dispatcher.Option
		eventProducer *producers.BusEventProducer
		dlqProducer   *producers.DLQProducer
		deadLetters   producers.DeadLetterPublisher
		kafkaConsumer *consumers.KafkaConsumer
	)
	if cfg.Kafka.Enabled() {
		eventProducer, err = producers.NewBusEventProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize bus event producer", "error", err)
			os.Exit(1)
		}
		storeOpts = append(storeOpts, memory.WithObserver(eventProducer))

		dlqProducer, err = producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize DLQ Kafka producer", "error", err)
			os.Exit(1)
		}
		// dlqProducer is nil when DLQTopic is not configured
		if dlqProducer != nil {
			deadLetters = dlqProducer
			dispatchOpts = append(dispatchOpts, dispatcher.WithDeadLetter(dlqProducer))
		}

		kafkaConsumer = consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)
	} else {
		log.Info("Kafka brokers not configured, bus runs in-process only")
	}

	store := memory.NewMessageStore(log.With("component", "message_store"), storeOpts...)

	disp := dispatcher.New(store, dispatcher.Config{
		Interval: cfg.Bus.DispatchInterval,
		PoolSize: cfg.WorkerPool.Size,
	}, log.With("component", "dispatcher"), dispatchOpts...)
	disp.RegisterHandler(workflows.LedgerAgentID, workflows.NewLedgerAgent(
		store,
		engine.Accounts,
		engine.Journals,
		cfg.Ledger.OpeningBalanceAccount,
		log,
	))

	responses := waiter.New(store, cfg.Bus.WaiterPollInterval, log.With("component", "waiter"))

	var (
		mongoDB   *persistence.MongoDB
		sweepOpts []sweeper.Option
	)
	if cfg.MongoDB.Enabled() {
		mongoDB, err = persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
		if err != nil {
			log.Error("Failed to initialize MongoDB", "error", err)
			os.Exit(1)
		}
		archive := mongo.NewMessageArchive(log, mongoDB.Database(), mongoDB.ArchiveCollection())
		sweepOpts = append(sweepOpts, sweeper.WithArchiver(archive))
	}
	sweep := sweeper.New(store, cfg.Bus.SweepInterval, cfg.Bus.SweepMaxAge, log.With("component", "sweeper"), sweepOpts...)

	server := api_gateway.NewServer(log, cfg,
		apiservice.NewJournalService(log, engine.Boundary, engine.Journals),
		apiservice.NewMessageService(log, store, responses, cfg.Bus.DefaultWaitTimeout),
	)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		disp.Start(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweep.Start(appCtx)
	}()

	if kafkaConsumer != nil {
		handler := ingress.NewHandler(log.With("component", "ingress"), store, deadLetters)
		if err := kafkaConsumer.Subscribe(appCtx, handler.HandleMessage); err != nil {
			log.Error("Failed to subscribe to ingress topic", "error", err)
			os.Exit(1)
		}
	}

	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the bus loops go away
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	cancelAppCtx()

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		disp.Shutdown()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Bus loops stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Close(); err != nil {
			log.Error("Error closing Kafka consumer", "error", err)
		}
	}
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}
	if eventProducer != nil {
		if err := eventProducer.Close(); err != nil {
			log.Error("Error closing bus event producer", "error", err)
		}
	}

	postgresDB.Close()

	if mongoDB != nil {
		if err := mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}

	if serviceErr != nil {
		log.Error("Ledger Service shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Ledger Service shutdown completed successfully")
}
