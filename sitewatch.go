// Package sitewatch monitors construction-site safety compliance from
// camera photos.
//
// The pipeline sends batches of site photos to a vision model, parses
// the model's loosely structured response into canonical per-image
// results, resolves each photo to a stable site identity, and persists
// one violation row per detected worker observation. A separate HTTP
// server exposes the accumulated records as a violations listing,
// per-site risk ranking, time-of-day trends, and compliance rates.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/menta2k/sitewatch"
//		"github.com/menta2k/sitewatch/internal/config"
//	)
//
//	func main() {
//		pipeline, err := sitewatch.NewPipeline(config.Default(), nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer pipeline.Close()
//
//		summary, err := pipeline.Ingest(context.Background())
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("processed %d images, %d violations", summary.Images, summary.Violations)
//	}
//
// The pipeline tolerates bad inputs at every stage: unreadable or
// oversized images are filtered before dispatch, failed model calls
// skip only their own batch, and malformed response blocks skip only
// their own image. Only context cancellation stops a run.
package sitewatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/menta2k/sitewatch/internal/config"
	"github.com/menta2k/sitewatch/internal/server"
	"github.com/menta2k/sitewatch/internal/store"
	"github.com/menta2k/sitewatch/internal/utils"
	"github.com/menta2k/sitewatch/pkg/dispatch"
	"github.com/menta2k/sitewatch/pkg/processing"
	"github.com/menta2k/sitewatch/pkg/vision"
)

// Version of the sitewatch library
const Version = "1.0.0"

// Pipeline wires the configured components end to end: image intake,
// vision dispatch, normalization, and persistence.
type Pipeline struct {
	cfg        *config.Config
	ds         *store.DataStore
	dispatcher *dispatch.Dispatcher
	writer     *store.Writer
	prompt     string
	log        *slog.Logger
}

// IngestSummary reports what one ingestion run accomplished.
type IngestSummary struct {
	Images     int // images with a persisted result
	Violations int // violation rows written
	Sites      int // total sites known after the run
}

// NewPipeline builds a Pipeline from configuration. A nil logger falls
// back to slog.Default.
func NewPipeline(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := vision.NewClient(vision.Options{
		Backend: cfg.Vision.Backend,
		BaseURL: cfg.Vision.BaseURL,
		Model:   cfg.Vision.Model,
		APIKey:  cfg.Vision.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	ds, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	processor := &processing.Processor{MaxFileSize: cfg.Images.MaxFileSize}
	dispatcher := dispatch.New(client, processor, dispatch.Options{
		BatchSize:   cfg.Ingest.BatchSize,
		CallSpacing: cfg.Ingest.CallSpacing,
		CallTimeout: cfg.Ingest.CallTimeout,
		SendFormat:  cfg.Images.SendFormat,
		SendMaxDim:  cfg.Images.SendMaxDim,
		SendQuality: cfg.Images.SendQuality,
	}, logger)

	prompt := cfg.Vision.Prompt
	if prompt == "" {
		prompt = vision.DefaultPrompt
	}

	return &Pipeline{
		cfg:        cfg,
		ds:         ds,
		dispatcher: dispatcher,
		writer:     store.NewWriter(ds, cfg.Ingest.IdentityKey, logger),
		prompt:     prompt,
		log:        logger,
	}, nil
}

// Ingest runs one full pass over the configured images directory. Per
// image failures are logged and absorbed; the returned error covers
// context cancellation and persistence problems only.
func (p *Pipeline) Ingest(ctx context.Context) (IngestSummary, error) {
	paths, err := utils.ListImageFiles(p.cfg.Images.Dir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("failed to list images in %s: %w", p.cfg.Images.Dir, err)
	}
	if len(paths) == 0 {
		p.log.Warn("no images found", "dir", p.cfg.Images.Dir)
		return IngestSummary{}, nil
	}
	p.log.Info("starting ingestion", "images", len(paths), "batch_size", p.cfg.Ingest.BatchSize)

	results, err := p.dispatcher.Dispatch(ctx, paths, p.prompt)
	if err != nil {
		return IngestSummary{}, err
	}

	if writeErr := p.writer.Write(results); writeErr != nil {
		p.log.Error("some results failed to persist", "error", writeErr)
	}

	summary := IngestSummary{Images: len(results)}
	for _, result := range results {
		summary.Violations += len(result.Violations)
	}
	if sites, err := p.ds.AllSites(); err == nil {
		summary.Sites = len(sites)
	}

	p.log.Info("ingestion finished",
		"images", summary.Images,
		"violations", summary.Violations,
		"sites", summary.Sites)
	return summary, nil
}

// Serve starts the HTTP read surface and blocks until it stops.
func (p *Pipeline) Serve() error {
	srv := server.New(p.ds, server.Options{
		ImagesDir: p.cfg.Images.Dir,
		CacheTTL:  p.cfg.Server.CacheTTL,
	}, p.log)
	return srv.Start(p.cfg.Server.Listen)
}

// Store exposes the underlying data store, mainly for tests and
// embedding applications.
func (p *Pipeline) Store() *store.DataStore { return p.ds }

// Close releases the database connection.
func (p *Pipeline) Close() error { return p.ds.Close() }

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
