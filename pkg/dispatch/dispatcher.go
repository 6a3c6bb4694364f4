// Package dispatch drives ingestion: it partitions the image set into
// batches, sends each batch to the vision model, and merges normalized
// results. Failures are isolated at batch granularity, so one bad call
// never aborts a run.
package dispatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/menta2k/sitewatch/pkg/normalize"
	"github.com/menta2k/sitewatch/pkg/processing"
	"github.com/menta2k/sitewatch/pkg/types"
	"github.com/menta2k/sitewatch/pkg/vision"
)

// Options tunes batching and upload preparation.
type Options struct {
	BatchSize   int           // images per model call
	CallSpacing time.Duration // minimum interval between model calls
	CallTimeout time.Duration // per-call deadline, 0 for backend default
	SendFormat  string        // jpg or png
	SendMaxDim  int           // longest side sent to the model, 0 = original
	SendQuality int           // JPEG quality for uploads
}

// DefaultOptions mirror what the model handles comfortably.
func DefaultOptions() Options {
	return Options{
		BatchSize:   1,
		CallSpacing: time.Second,
		CallTimeout: 5 * time.Minute,
		SendFormat:  "jpg",
		SendMaxDim:  2048,
		SendQuality: 90,
	}
}

// Dispatcher sends image batches to the vision model sequentially.
type Dispatcher struct {
	client    vision.Client
	processor *processing.Processor
	limiter   *rate.Limiter
	opts      Options
	log       *slog.Logger
}

// New creates a Dispatcher. A nil logger falls back to slog.Default.
func New(client vision.Client, processor *processing.Processor, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.CallSpacing > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.CallSpacing), 1)
	}
	return &Dispatcher{
		client:    client,
		processor: processor,
		limiter:   limiter,
		opts:      opts,
		log:       logger,
	}
}

// Dispatch processes paths in consecutive groups of at most BatchSize.
// Invalid images are filtered out before sending; a group whose model
// call fails is logged and skipped. Later batches never overwrite keys
// produced by earlier ones. The only returned error is context
// cancellation; everything else is partial-failure isolation.
func (d *Dispatcher) Dispatch(ctx context.Context, paths []string, prompt string) (map[string]types.ImageResult, error) {
	results := make(map[string]types.ImageResult)

	for start := 0; start < len(paths); start += d.opts.BatchSize {
		end := start + d.opts.BatchSize
		if end > len(paths) {
			end = len(paths)
		}
		group := paths[start:end]
		batchNum := start/d.opts.BatchSize + 1

		names, images := d.prepareGroup(group)
		if len(images) == 0 {
			d.log.Warn("no valid images in batch", "batch", batchNum)
			continue
		}

		if err := d.limiter.Wait(ctx); err != nil {
			return results, err
		}

		raw, err := d.analyze(ctx, prompt, images)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			d.log.Error("model call failed, skipping batch", "batch", batchNum, "error", err)
			continue
		}

		batch := normalize.Normalize(raw, names)
		for _, skip := range batch.Skipped {
			d.log.Warn("skipped response block", "batch", batchNum, "image", skip.Image, "reason", skip.Reason)
		}
		for name, result := range batch.Results {
			if _, exists := results[name]; exists {
				continue
			}
			results[name] = result
		}

		d.log.Info("batch processed", "batch", batchNum, "images", len(images), "results", len(batch.Results))
	}

	return results, nil
}

// prepareGroup validates and encodes each image, dropping the ones that
// fail the precondition. Returned names are base file names, which are
// the canonical image ids downstream.
func (d *Dispatcher) prepareGroup(group []string) ([]string, [][]byte) {
	names := make([]string, 0, len(group))
	images := make([][]byte, 0, len(group))
	for _, path := range group {
		data, err := d.processor.PrepareFile(path, d.opts.SendFormat, d.opts.SendMaxDim, d.opts.SendQuality)
		if err != nil {
			d.log.Warn("image rejected before dispatch", "image", path, "reason", err)
			continue
		}
		names = append(names, filepath.Base(path))
		images = append(images, data)
	}
	return names, images
}

func (d *Dispatcher) analyze(ctx context.Context, prompt string, images [][]byte) (string, error) {
	if d.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.CallTimeout)
		defer cancel()
	}
	return d.client.Analyze(ctx, prompt, images)
}
