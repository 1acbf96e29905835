package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"hdi-prep/config"
	"hdi-prep/models"
	"hdi-prep/providers/drugbank"
	"hdi-prep/storage"
)

const pipelineEnzymes = "enzymes"

// EnzymeService exports the drug to enzyme action table from DrugBank.
type EnzymeService struct {
	Config  *config.Config
	Store   *storage.Store
	Logger  *zap.Logger
	Metrics *Metrics
	// Out receives the final success line. Defaults to stdout.
	Out io.Writer
}

// NewEnzymeService builds the service from the run settings.
func NewEnzymeService(cfg *config.Config, store *storage.Store, logger *zap.Logger, metrics *Metrics) *EnzymeService {
	return &EnzymeService{Config: cfg, Store: store, Logger: logger, Metrics: metrics, Out: os.Stdout}
}

// Run decodes the whole document before the output appears: rows go to a
// temporary file that replaces the output only after a clean parse.
func (s *EnzymeService) Run(ctx context.Context) (drugbank.Stats, error) {
	cfg := s.Config
	log := s.Logger.With(zap.String("pipeline", pipelineEnzymes), zap.String("input", cfg.DrugBankXMLPath))
	start := time.Now()

	in, err := storage.OpenInput(cfg.DrugBankXMLPath)
	if err != nil {
		return drugbank.Stats{}, fmt.Errorf("open drugbank document: %w", err)
	}
	defer in.Close()

	var mirror []models.EnzymeRelationship
	var stats drugbank.Stats
	err = storage.WriteTableAtomic(cfg.EnzymeOutputPath, models.EnzymeHeader, func(w *csv.Writer) error {
		var err error
		stats, err = drugbank.Extract(ctx, in, cfg.CrossRefResource, cfg.SourceTag, func(rows []models.EnzymeRelationship) error {
			for _, r := range rows {
				if err := w.Write(r.CSVRecord()); err != nil {
					return err
				}
			}
			if s.Store != nil {
				mirror = append(mirror, rows...)
			}
			return nil
		})
		return err
	}, storage.WithCRLF)
	if err != nil {
		return stats, fmt.Errorf("extract enzymes: %w", err)
	}

	if s.Store != nil {
		if err := s.Store.ResetRelationships(ctx, cfg.SourceTag); err != nil {
			return stats, fmt.Errorf("reset mirror: %w", err)
		}
		if err := s.Store.SaveRelationships(ctx, mirror); err != nil {
			return stats, fmt.Errorf("mirror relationships: %w", err)
		}
		n, err := s.Store.CountRelationships(ctx, cfg.SourceTag)
		if err != nil {
			return stats, fmt.Errorf("count mirror: %w", err)
		}
		log.Info("Mirror updated", zap.Int64("rows", n))
	}

	s.Metrics.Rows.WithLabelValues(pipelineEnzymes, Accepted.String()).Add(float64(stats.Rows))
	s.Metrics.Rows.WithLabelValues(pipelineEnzymes, "no_polypeptide").Add(float64(stats.SkippedEnzymes))
	s.Metrics.Writes.WithLabelValues(pipelineEnzymes).Inc()
	s.Metrics.Duration.WithLabelValues(pipelineEnzymes).Set(time.Since(start).Seconds())

	log.Info("Enzyme relationships exported",
		zap.Int("drugs", stats.Drugs),
		zap.Int("enzymes", stats.Enzymes),
		zap.Int("skipped_enzymes", stats.SkippedEnzymes),
		zap.Int("rows", stats.Rows),
		zap.String("output", cfg.EnzymeOutputPath))
	color.New(color.FgGreen, color.Bold).Fprintf(s.Out, "Exported: %s\n", cfg.EnzymeOutputPath)
	return stats, nil
}
