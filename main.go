package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hdi-prep/config"
	"hdi-prep/providers/chembl"
	"hdi-prep/providers/naturalproducts"
	"hdi-prep/services"
	"hdi-prep/storage"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// runner holds the shared infrastructure of one run.
type runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *storage.Store
	metrics *services.Metrics
}

// run executes the enabled pipelines in configured order and stops at the
// first failure.
func (r *runner) run(ctx context.Context) error {
	fingerprints := services.NewFingerprintService(r.cfg, r.store, r.logger, r.metrics)
	for _, name := range r.cfg.Pipelines() {
		r.logger.Info("Running pipeline", zap.String("pipeline", name))
		var err error
		switch name {
		case config.PipelineEnzymes:
			_, err = services.NewEnzymeService(r.cfg, r.store, r.logger, r.metrics).Run(ctx)
		case config.PipelineChEMBL:
			_, err = fingerprints.Run(ctx, chembl.New(), r.cfg.ChEMBLInputPath, r.cfg.ChEMBLOutputPath)
		case config.PipelineNP:
			_, err = fingerprints.Run(ctx, naturalproducts.New(), r.cfg.NPInputPath, r.cfg.NPOutputPath)
		case config.PipelineNPRepair:
			_, err = services.NewRepairService(r.cfg, r.store, r.logger, r.metrics).Run(ctx, r.cfg.NPOutputPath, r.cfg.NPRepairedPath)
		default:
			err = fmt.Errorf("unknown pipeline %q", name)
		}
		if err != nil {
			return fmt.Errorf("pipeline %s: %w", name, err)
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}

	logging, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &runner{cfg: cfg, logger: logging, metrics: services.NewMetrics()}

	if cfg.DBDriver != "" {
		store, err := storage.OpenStore(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			logging.Fatal("Failed to connect to mirror database", zap.Error(err))
		}
		defer store.Close()
		logging.Info("Running database auto-migration...")
		if err := store.Migrate(); err != nil {
			logging.Fatal("Database migration failed", zap.Error(err))
		}
		r.store = store
	}

	runErr := r.run(ctx)

	if cfg.PushgatewayURL != "" {
		if err := r.metrics.Push(cfg.PushgatewayURL, cfg.MetricsJob); err != nil {
			logging.Warn("Pushing metrics failed", zap.String("url", cfg.PushgatewayURL), zap.Error(err))
		}
	}
	if runErr != nil {
		logging.Fatal("Run failed", zap.Error(runErr))
	}
	logging.Info("All pipelines finished", zap.Strings("pipelines", cfg.Pipelines()))
}
