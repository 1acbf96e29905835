package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"hdi-prep/chem"
	"hdi-prep/config"
	"hdi-prep/models"
	"hdi-prep/providers/naturalproducts"
	"hdi-prep/storage"
)

const pipelineRepair = "np-repair"

// RepairSummary counts the rows of one repair pass.
type RepairSummary struct {
	Rows     int
	Repaired int
	Failed   int
}

// RepairService fills empty InChIKey cells of the NP fingerprint table.
type RepairService struct {
	Config  *config.Config
	Store   *storage.Store
	Logger  *zap.Logger
	Metrics *Metrics
}

// NewRepairService builds the service from the run settings.
func NewRepairService(cfg *config.Config, store *storage.Store, logger *zap.Logger, metrics *Metrics) *RepairService {
	return &RepairService{Config: cfg, Store: store, Logger: logger, Metrics: metrics}
}

// RepairKey keeps a present key and otherwise derives one from the InChI.
// A failed derivation leaves the key empty.
func RepairKey(key, inchi string) (string, bool, error) {
	if key != "" {
		return key, false, nil
	}
	derived, err := chem.InChIKey(inchi)
	if err != nil {
		return "", false, err
	}
	return derived, true, nil
}

// Run reads inputPath and writes the repaired table, same columns in the
// same order, to outputPath.
func (s *RepairService) Run(ctx context.Context, inputPath, outputPath string) (RepairSummary, error) {
	var sum RepairSummary
	log := s.Logger.With(zap.String("pipeline", pipelineRepair), zap.String("input", inputPath))
	start := time.Now()

	table, err := storage.OpenTable(inputPath, naturalproducts.OutInChI, naturalproducts.OutInChIKey)
	if err != nil {
		return sum, err
	}
	defer table.Close()
	header := table.Header()

	repaired := map[string]string{}
	err = storage.WriteTableAtomic(outputPath, header, func(w *csv.Writer) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := table.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			sum.Rows++
			key, changed, err := RepairKey(row[naturalproducts.OutInChIKey], row[naturalproducts.OutInChI])
			switch {
			case err != nil:
				sum.Failed++
				s.Metrics.Repairs.WithLabelValues("failed").Inc()
				log.Debug("Cannot derive InChIKey", zap.String("np_id", row[naturalproducts.ColNPID]), zap.Error(err))
			case changed:
				sum.Repaired++
				s.Metrics.Repairs.WithLabelValues("repaired").Inc()
				row[naturalproducts.OutInChIKey] = key
				repaired[row[naturalproducts.ColNPID]] = key
			default:
				s.Metrics.Repairs.WithLabelValues("kept").Inc()
			}
			rec := make([]string, len(header))
			for i, col := range header {
				rec[i] = row[col]
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
	})
	if err != nil {
		return sum, fmt.Errorf("repair %s: %w", inputPath, err)
	}

	if s.Store != nil {
		if err := s.Store.UpdateInChIKeys(ctx, models.SourceNP, repaired); err != nil {
			return sum, fmt.Errorf("mirror repaired keys: %w", err)
		}
	}

	s.Metrics.Writes.WithLabelValues(pipelineRepair).Inc()
	s.Metrics.Duration.WithLabelValues(pipelineRepair).Set(time.Since(start).Seconds())
	log.Info("InChIKey repair finished",
		zap.Int("rows", sum.Rows),
		zap.Int("repaired", sum.Repaired),
		zap.Int("failed", sum.Failed),
		zap.String("output", outputPath))
	return sum, nil
}
