package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/blog-cli/internal/jobs"
	"github.com/sells-group/blog-cli/internal/model"
)

var (
	batchFile  string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate blog posts for every job in a YAML or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reqs, err := jobs.Load(batchFile)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = processBatch(ctx, reqs, batchLimit, cfg.Batch.MaxConcurrent, env.Pipeline)
		return err
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "job file (.yaml, .yml or .xlsx)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of jobs to run (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// batchSummary counts job outcomes.
type batchSummary struct {
	Succeeded int64
	Failed    int64
}

// processBatch applies limit, then runs jobs concurrently. A failing job is
// logged and does not abort the batch.
func processBatch(ctx context.Context, reqs []model.Request, limit, concurrency int, r runner) (batchSummary, error) {
	if len(reqs) == 0 {
		zap.L().Info("no jobs found")
		return batchSummary{}, nil
	}

	if limit > 0 && len(reqs) > limit {
		reqs = reqs[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("jobs", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, req := range reqs {
		g.Go(func() error {
			log := zap.L().With(zap.Int("job", i+1), zap.String("title", req.Title))

			res, err := r.Run(gctx, req)
			if err != nil {
				failed.Add(1)
				log.Error("job failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("job complete",
				zap.String("run_id", res.RunID),
				zap.String("file", res.FilePath),
				zap.Int("warnings", len(res.Warnings)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batchSummary{}, eris.Wrap(err, "batch processing")
	}

	sum := batchSummary{Succeeded: succeeded.Load(), Failed: failed.Load()}
	zap.L().Info("batch complete",
		zap.Int64("succeeded", sum.Succeeded),
		zap.Int64("failed", sum.Failed),
	)
	return sum, nil
}
