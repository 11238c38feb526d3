package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BaSui01/coordflow/config"
	"github.com/BaSui01/coordflow/coordination"
	"github.com/BaSui01/coordflow/internal/metrics"
	"github.com/BaSui01/coordflow/internal/telemetry"
	"github.com/BaSui01/coordflow/store"
	"github.com/BaSui01/coordflow/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		producerID = flag.String("producer", "producer-agent", "producer agent id")
		consumerID = flag.String("consumer", "consumer-agent", "consumer agent id")
	)
	flag.Parse()

	cfg, err := config.NewLoader().
		WithConfigPath(*configPath).
		WithValidator((*config.Config).Validate).
		Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	docStore, err := store.NewStore(toStoreConfig(cfg.Store))
	if err != nil {
		logger.Fatal("failed to create document store", zap.Error(err))
	}
	defer docStore.Close() //nolint:errcheck

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
	}

	session := coordination.NewSession(coordination.SessionConfig{
		CoordinationID: cfg.Session.CoordinationID,
		ConversationID: cfg.Session.ConversationID,
		TaskID:         cfg.Session.TaskID,
		Store:          docStore,
		Metrics:        collector,
		Logger:         logger,
	})

	ctx := context.Background()

	phases := workflow.StandardPipeline(session, workflow.PipelineConfig{
		ProducerID: *producerID,
		ConsumerID: *consumerID,
		TaskScope:  flag.Args(),
		Logger:     logger,
	})
	orchestrator := workflow.NewOrchestrator(session, phases, workflow.Config{
		Metrics: collector,
		Logger:  logger,
	})

	result := orchestrator.Execute(ctx)

	if checkpointID, err := session.Checkpoint(ctx, map[string]any{
		"phases_completed": result.PhasesCompleted,
	}); err != nil {
		logger.Warn("failed to checkpoint session", zap.Error(err))
	} else {
		logger.Info("session checkpointed", zap.String("checkpoint_id", checkpointID))
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("failed to render result", zap.Error(err))
	}
	fmt.Println(string(output))

	if !result.Success {
		os.Exit(1)
	}
}

// buildLogger constructs a zap logger from the log config.
func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// toStoreConfig maps the loaded store section onto the store package config.
func toStoreConfig(cfg config.StoreConfig) store.Config {
	return store.Config{
		Type:    store.StoreType(cfg.Type),
		BaseDir: cfg.BaseDir,
		Redis: store.RedisConfig{
			Host:      cfg.Redis.Host,
			Port:      cfg.Redis.Port,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			PoolSize:  cfg.Redis.PoolSize,
			KeyPrefix: cfg.Redis.KeyPrefix,
		},
		SQLite: store.SQLiteConfig{
			Path: cfg.SQLite.Path,
		},
		Mongo: store.MongoConfig{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		},
	}
}
