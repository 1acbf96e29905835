package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"hdi-prep/chem"
	"hdi-prep/config"
	"hdi-prep/models"
	"hdi-prep/providers"
	"hdi-prep/storage"
)

// SkipReason tells why an input row produced no fingerprint.
type SkipReason int

const (
	Accepted SkipReason = iota
	SkipMissingStructure
	SkipUnparsable
)

func (r SkipReason) String() string {
	switch r {
	case Accepted:
		return "written"
	case SkipMissingStructure:
		return "missing"
	case SkipUnparsable:
		return "unparsable"
	}
	return "unknown"
}

// Outcome is the result of converting one input row.
type Outcome struct {
	Record *models.Fingerprint
	Skip   SkipReason
	Err    error // parse error behind SkipUnparsable
}

// Sink receives the rendered records of one batch.
type Sink interface {
	Append(records [][]string) error
	// Written reports whether anything, header included, reached the output.
	Written() bool
	// Rows counts the records appended so far.
	Rows() int
}

// Progress is reported after every batch.
type Progress struct {
	Batch     int
	Processed int
	Total     int
	Written   int
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Processed, p.Total)
}

// FingerprintSummary counts the rows of one run.
type FingerprintSummary struct {
	Rows       int
	Written    int
	Missing    int
	Unparsable int
	Batches    int
	Writes     int
}

// FingerprintService converts structure tables into fingerprint tables in
// fixed-size batches.
type FingerprintService struct {
	Config    *config.Config
	Store     *storage.Store
	Logger    *zap.Logger
	Metrics   *Metrics
	Generator *chem.Generator

	// NewSink opens the output of a run. Defaults to a storage.BatchAppender.
	NewSink func(path string, header []string) Sink
	// OnProgress is called after every batch when set.
	OnProgress func(Progress)
}

// NewFingerprintService builds the service from the run settings.
func NewFingerprintService(cfg *config.Config, store *storage.Store, logger *zap.Logger, metrics *Metrics) *FingerprintService {
	gen := chem.NewGenerator(cfg.FingerprintRadius, cfg.FingerprintBits)
	gen.Counts = cfg.FingerprintCounts
	return &FingerprintService{
		Config:    cfg,
		Store:     store,
		Logger:    logger,
		Metrics:   metrics,
		Generator: gen,
		NewSink: func(path string, header []string) Sink {
			return storage.NewBatchAppender(path, header)
		},
	}
}

// Convert turns one row into a fingerprint record or a skip.
func (s *FingerprintService) Convert(p providers.Provider, row storage.Row) Outcome {
	c, ok := p.Candidate(row)
	if !ok {
		return Outcome{Skip: SkipMissingStructure}
	}
	mol, err := chem.Parse(c.Format, c.Structure)
	if err != nil {
		return Outcome{Skip: SkipUnparsable, Err: err}
	}
	c.Record.SetBits(s.Generator.Fingerprint(mol))
	return Outcome{Record: c.Record, Skip: Accepted}
}

// Run processes inputPath with provider p and writes outputPath.
func (s *FingerprintService) Run(ctx context.Context, p providers.Provider, inputPath, outputPath string) (FingerprintSummary, error) {
	var sum FingerprintSummary
	log := s.Logger.With(zap.String("pipeline", p.Name()), zap.String("input", inputPath))
	start := time.Now()

	total, err := storage.CountRows(inputPath)
	if err != nil {
		return sum, fmt.Errorf("count rows: %w", err)
	}
	table, err := storage.OpenTable(inputPath, p.RequiredColumns()...)
	if err != nil {
		return sum, err
	}
	defer table.Close()

	if s.Store != nil {
		if err := s.Store.ResetFingerprints(ctx, p.Name()); err != nil {
			return sum, fmt.Errorf("reset mirror: %w", err)
		}
	}

	sink := s.NewSink(outputPath, p.Header())
	log.Info("Starting fingerprint generation",
		zap.Int("rows", total),
		zap.Int("batch_size", s.Config.BatchSize),
		zap.Int("bits", s.Generator.Size),
		zap.Int("radius", s.Generator.Radius))

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		batch, err := table.ReadBatch(s.Config.BatchSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, err
		}
		sum.Batches++
		s.Metrics.Batches.WithLabelValues(p.Name()).Inc()

		var records []*models.Fingerprint
		var values [][]string
		var missing, unparsable int
		for _, row := range batch {
			out := s.Convert(p, row)
			s.Metrics.Rows.WithLabelValues(p.Name(), out.Skip.String()).Inc()
			switch out.Skip {
			case SkipMissingStructure:
				missing++
				continue
			case SkipUnparsable:
				unparsable++
				log.Debug("Skipping unparsable structure", zap.Error(out.Err))
				continue
			}
			records = append(records, out.Record)
			values = append(values, p.Values(out.Record))
		}

		if len(values) > 0 {
			if err := sink.Append(values); err != nil {
				return sum, fmt.Errorf("write %s: %w", outputPath, err)
			}
			sum.Writes++
			s.Metrics.Writes.WithLabelValues(p.Name()).Inc()
			if s.Store != nil {
				if err := s.Store.SaveFingerprints(ctx, records); err != nil {
					return sum, fmt.Errorf("mirror batch: %w", err)
				}
			}
		}

		sum.Rows += len(batch)
		sum.Written += len(values)
		sum.Missing += missing
		sum.Unparsable += unparsable

		prog := Progress{Batch: sum.Batches, Processed: sum.Rows, Total: total, Written: sum.Written}
		log.Info("Processed batch",
			zap.String("progress", prog.String()),
			zap.Int("written", len(values)),
			zap.Int("missing", missing),
			zap.Int("unparsable", unparsable))
		if s.OnProgress != nil {
			s.OnProgress(prog)
		}
	}

	if s.Store != nil {
		n, err := s.Store.CountFingerprints(ctx, p.Name())
		if err != nil {
			return sum, fmt.Errorf("count mirror: %w", err)
		}
		log.Info("Mirror updated", zap.Int64("rows", n))
	}
	if !sink.Written() {
		log.Warn("No fingerprints produced, output left untouched", zap.String("output", outputPath))
	}

	s.Metrics.Duration.WithLabelValues(p.Name()).Set(time.Since(start).Seconds())
	log.Info("Fingerprint generation finished",
		zap.Int("rows", sum.Rows),
		zap.Int("written", sink.Rows()),
		zap.Int("missing", sum.Missing),
		zap.Int("unparsable", sum.Unparsable),
		zap.Int("writes", sum.Writes),
		zap.String("output", outputPath))
	return sum, nil
}
