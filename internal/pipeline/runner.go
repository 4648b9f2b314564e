// Package pipeline contains the feature-engineering stages and the
// runner that sequences them: align the raw series, build the forward
// label, clean and scale, split chronologically, and emit sequence
// window chunks.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"seqforge/internal/config"
	"seqforge/internal/dataset"
	apperrors "seqforge/internal/errors"
	"seqforge/internal/exporter"
	"seqforge/internal/features"
	"seqforge/internal/storage"
)

// Remote key prefixes for produced artifacts.
const (
	remoteFeaturedPrefix  = "data/featured"
	remoteSequencesPrefix = "data/featured/sequences"
	remoteScalersPrefix   = "models/scalers"
)

// maxConcurrentUploads bounds parallel chunk uploads. Chunk production
// stays strictly ordered; only the uploads overlap.
const maxConcurrentUploads = 4

// Runner executes the six pipeline stages in order, each consuming the
// previous stage's output. Data-shape problems are recovered with a
// skip-and-warn; only the inability to build a label, configuration
// errors, or input retrieval failures abort the run.
type Runner struct {
	cfg    *config.Config
	paths  *config.Paths
	store  storage.ObjectStore
	csv    *exporter.CSVWriter
	tracer trace.Tracer
	logger *slog.Logger
}

// NewRunner wires a runner from its collaborators.
func NewRunner(cfg *config.Config, paths *config.Paths, store storage.ObjectStore, tracer trace.Tracer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		paths:  paths,
		store:  store,
		csv:    exporter.NewCSVWriter(logger),
		tracer: tracer,
		logger: logger,
	}
}

// Run executes one full pipeline pass.
func (r *Runner) Run(ctx context.Context) error {
	sources := features.Sources{
		Index:      r.cfg.Sources.Index.Name,
		Tracking:   r.cfg.Sources.Tracking.Name,
		Volatility: r.cfg.Sources.Volatility.Name,
	}

	if err := r.stage(ctx, "fetch_inputs", func(ctx context.Context) error {
		return r.fetchInputs(ctx)
	}); err != nil {
		return err
	}

	var index, tracking, volatility *dataset.Frame
	if err := r.stage(ctx, "load_series", func(context.Context) error {
		var err error
		if index, err = dataset.LoadSeries(r.paths.ProcessedFile(r.cfg.Sources.Index.File)); err != nil {
			return err
		}
		if tracking, err = dataset.LoadSeries(r.paths.ProcessedFile(r.cfg.Sources.Tracking.File)); err != nil {
			return err
		}
		volatility, err = dataset.LoadSeries(r.paths.ProcessedFile(r.cfg.Sources.Volatility.File))
		return err
	}); err != nil {
		return err
	}

	var merged *dataset.Frame
	if err := r.stage(ctx, "align", func(context.Context) error {
		var err error
		merged, err = NewAligner(r.cfg.Pipeline.Cadence.Duration(), r.logger).
			Align(index, tracking, volatility, sources)
		return err
	}); err != nil {
		return err
	}

	_ = r.stage(ctx, "indicators", func(context.Context) error {
		features.NewEngine(r.logger).Apply(merged, sources)
		return nil
	})

	if err := r.stage(ctx, "target", func(context.Context) error {
		return NewTargetBuilder(sources.Tracking, r.cfg.Pipeline.LabelColumn,
			r.cfg.Pipeline.Horizon, r.logger).Build(merged)
	}); err != nil {
		return err
	}

	var cleaned *dataset.Frame
	var scaler *MinMaxScaler
	cleanErr := r.stage(ctx, "clean", func(ctx context.Context) error {
		var err error
		cleaned, scaler, err = NewCleaner(r.cfg.Pipeline, r.logger).Clean(merged)
		if err != nil {
			return err
		}
		r.persistScaler(ctx, scaler)
		return nil
	})
	if cleanErr != nil {
		if apperrors.IsType(cleanErr, apperrors.ErrTypeAllRowsDropped) {
			r.logger.Warn("no data remain after cleaning, stopping with empty result")
			return nil
		}
		return cleanErr
	}

	var parts Partitions
	if err := r.stage(ctx, "split", func(ctx context.Context) error {
		parts = NewSplitter(r.cfg.Pipeline, r.logger).Split(cleaned)
		return r.exportPartitions(ctx, parts)
	}); err != nil {
		return err
	}

	return r.stage(ctx, "windows", func(ctx context.Context) error {
		return r.emitWindows(ctx, parts)
	})
}

// fetchInputs retrieves the three raw series into the processed
// directory. Input retrieval failures are fatal.
func (r *Runner) fetchInputs(ctx context.Context) error {
	for _, src := range r.cfg.Sources.All() {
		local := r.paths.ProcessedFile(src.File)
		if err := r.store.FetchObject(ctx, src.Object, local); err != nil {
			return fmt.Errorf("fetch input %s: %w", src.Name, err)
		}
	}
	return nil
}

// persistScaler writes the fitted scaler locally and mirrors it to
// remote storage. Both failures are warnings: the pipeline's data
// products do not depend on the scaler artifact.
func (r *Runner) persistScaler(ctx context.Context, scaler *MinMaxScaler) {
	name := r.cfg.Pipeline.ChunkPrefix + "_scaler.json"
	local := r.paths.ScalerFile(name)
	if err := scaler.Save(local); err != nil {
		r.logger.Warn("could not save scaler", slog.String("path", local), slog.Any("error", err))
		return
	}
	r.logger.Info("scaler saved", slog.String("path", local))
	r.upload(ctx, local, path.Join(remoteScalersPrefix, name))
}

// exportPartitions writes the three featured CSVs and mirrors them.
func (r *Runner) exportPartitions(ctx context.Context, parts Partitions) error {
	for _, part := range []struct {
		name  string
		frame *dataset.Frame
	}{
		{"train", parts.Train},
		{"val", parts.Val},
		{"test", parts.Test},
	} {
		name := fmt.Sprintf("%s_merged_features_%s.csv", r.cfg.Pipeline.ChunkPrefix, part.name)
		local := r.paths.FeaturedFile(name)
		if err := r.csv.WriteFrame(local, part.frame); err != nil {
			return fmt.Errorf("write %s partition CSV: %w", part.name, err)
		}
		r.upload(ctx, local, path.Join(remoteFeaturedPrefix, name))
	}
	return nil
}

// emitWindows windows each partition into chunked tensor pairs. A
// partition too small to window is skipped with a warning; the other
// partitions still run. Chunk files are written in order, while their
// uploads may overlap.
func (r *Runner) emitWindows(ctx context.Context, parts Partitions) error {
	windower := NewWindower(r.cfg.Pipeline, r.logger)

	for _, part := range []struct {
		name  string
		frame *dataset.Frame
	}{
		{"train", parts.Train},
		{"val", parts.Val},
		{"test", parts.Test},
	} {
		prefix := fmt.Sprintf("%s_%s", r.cfg.Pipeline.ChunkPrefix, part.name)
		uploads, uploadCtx := errgroup.WithContext(ctx)
		uploads.SetLimit(maxConcurrentUploads)

		err := windower.Produce(part.frame, part.name, func(batch *WindowBatch) error {
			xName := fmt.Sprintf("%s_X_3D_part%d.npy", prefix, batch.Index)
			yName := fmt.Sprintf("%s_Y_3D_part%d.npy", prefix, batch.Index)
			xPath := r.paths.SequenceFile(xName)
			yPath := r.paths.SequenceFile(yName)

			if err := exporter.WriteNPY(xPath, batch.XShape(), batch.X); err != nil {
				return err
			}
			if err := exporter.WriteNPY(yPath, batch.YShape(), batch.Y); err != nil {
				return err
			}
			r.logger.Info("sequence chunk written",
				slog.String("partition", part.name),
				slog.Int("chunk", batch.Index),
				slog.Int("windows", batch.Count))

			uploads.Go(func() error {
				r.upload(uploadCtx, xPath, path.Join(remoteSequencesPrefix, xName))
				r.upload(uploadCtx, yPath, path.Join(remoteSequencesPrefix, yName))
				return nil
			})
			return nil
		})
		_ = uploads.Wait()

		if err != nil {
			if apperrors.IsType(err, apperrors.ErrTypeInsufficientData) {
				r.logger.Warn("partition skipped", slog.String("partition", part.name), slog.Any("reason", err))
				continue
			}
			return err
		}
	}
	return nil
}

// upload mirrors a local artifact to remote storage, logging failures
// as warnings. Local artifacts remain valid even when mirroring fails.
func (r *Runner) upload(ctx context.Context, localPath, object string) {
	if err := r.store.StoreObject(ctx, localPath, object); err != nil {
		r.logger.Warn("could not mirror artifact to remote storage",
			slog.String("local_path", localPath),
			slog.String("object", object),
			slog.Any("error", err))
	}
}

// stage wraps one pipeline stage with a span, timing and uniform
// logging.
func (r *Runner) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, name)
	defer span.End()

	start := time.Now()
	r.logger.Info("stage started", slog.String("stage", name))

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("stage failed",
			slog.String("stage", name),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return err
	}

	r.logger.Info("stage completed",
		slog.String("stage", name),
		slog.Duration("duration", time.Since(start)))
	return nil
}
