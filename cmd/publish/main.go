package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"hdi-prep/config"
	"hdi-prep/storage"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()
	logging.Info("Starting publish run...")

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}
	if !cfg.S3Enabled() {
		logging.Fatal("S3 settings incomplete, set S3_URL, S3_BUCKET, S3_KEY and S3_SECRET")
	}

	ctx := context.Background()
	client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	stamp := time.Now().UTC().Format("2006-01-02T15-04-05Z")
	published := 0
	for _, path := range outputs(cfg) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			logging.Info("Output not present, skipping", zap.String("path", path))
			continue
		}
		link, err := publish(ctx, client, cfg, path, stamp)
		if err != nil {
			logging.Fatal("Publishing failed", zap.String("path", path), zap.Error(err))
		}
		logging.Info("Published output", zap.String("path", path), zap.String("link", link))
		published++

		deleted, err := storage.RotateObjects(ctx, client, cfg.S3Bucket, objectPrefix(cfg, path), cfg.KeepVersions)
		if err != nil {
			logging.Error("Rotation of old versions failed", zap.String("path", path), zap.Error(err))
			continue
		}
		for _, key := range deleted {
			logging.Info("Deleted old version", zap.String("key", key))
		}
	}

	logging.Info("Publish run finished", zap.Int("published", published))
}

// outputs lists every table the pipelines can produce.
func outputs(cfg *config.Config) []string {
	return []string{cfg.EnzymeOutputPath, cfg.ChEMBLOutputPath, cfg.NPOutputPath, cfg.NPRepairedPath}
}

// objectPrefix groups the versions of one output, e.g. "hdi-prep/compound_fingerprints_np/".
func objectPrefix(cfg *config.Config, path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.Trim(cfg.S3Prefix, "/") + "/" + base + "/"
}

// publish compresses path into a temporary file and uploads it.
func publish(ctx context.Context, client storage.ObjectAPI, cfg *config.Config, path, stamp string) (string, error) {
	tmp, err := compress(path)
	if err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	key := objectPrefix(cfg, path) + stamp + filepath.Ext(path) + ".gz"
	return storage.UploadObject(ctx, client, cfg, key, tmp)
}

func compress(path string) (*os.File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp("", "hdi-prep-*.gz")
	if err != nil {
		return nil, err
	}
	gz := pgzip.NewWriter(tmp)
	if _, err := io.Copy(gz, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return tmp, nil
}
