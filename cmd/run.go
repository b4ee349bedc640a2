package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/orientation-cli/internal/config"
	"github.com/sells-group/orientation-cli/internal/export"
	"github.com/sells-group/orientation-cli/internal/model"
	"github.com/sells-group/orientation-cli/internal/pipeline"
	"github.com/sells-group/orientation-cli/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Resolve orientations for every property and write the result file",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRunFlags(cmd, cfg)
		if err := cfg.Validate("run"); err != nil {
			return err
		}
		_, err := executeRun(cmd.Context(), cfg, os.Stdout)
		return err
	},
}

func init() {
	f := runCmd.Flags()
	f.String("transactions", "", "transactions CSV/XLSX/Parquet path or URL (default from config)")
	f.String("properties", "", "GNAF properties CSV/XLSX/Parquet path or URL (default from config)")
	f.String("roads", "", "road network path or URL: .shp, .gpkg, .geojson or .zip (default from config)")
	f.String("output", "", "output file (default from config)")
	f.String("format", "", "output format: csv or xlsx (default from extension)")
	f.String("target-crs", "", "projected CRS, e.g. EPSG:7856 (default from config)")
	f.Float64("search-radius", 0, "nearest-road search radius in meters (default from config)")
	f.Uint64("seed", 0, "imputation seed (default from config)")
	f.Int("workers", 0, "parallel resolver workers (default from config)")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("transactions", &c.Input.Transactions)
	str("properties", &c.Input.Properties)
	str("roads", &c.Input.Roads)
	str("output", &c.Output.Path)
	str("format", &c.Output.Format)
	str("target-crs", &c.Orientation.TargetCRS)

	if f.Changed("search-radius") {
		c.Orientation.SearchRadiusM, _ = f.GetFloat64("search-radius")
	}
	if f.Changed("seed") {
		c.Orientation.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("workers") {
		c.Batch.Workers, _ = f.GetInt("workers")
	}
}

// executeRun runs the pipeline, writes the output file and records the run.
// Nothing is written when the pipeline fails. It returns the run ID, empty
// when no store is configured.
func executeRun(ctx context.Context, c *config.Config, out io.Writer) (string, error) {
	log := zap.L().With(zap.String("component", "run"))

	st, err := initStore(ctx, c)
	if err != nil {
		return "", err
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
	}

	p := pipeline.New(c, newMaterializer(c))

	var run *model.Run
	if st != nil {
		run, err = st.CreateRun(ctx, p.Params())
		if err != nil {
			return "", eris.Wrap(err, "create run")
		}
		log = log.With(zap.String("run_id", run.ID))
	}
	runID := ""
	if run != nil {
		runID = run.ID
	}

	res, err := runPipeline(ctx, p)
	if err == nil {
		err = export.Write(c.Output.Path, c.Output.Format, res.Rows)
	}
	if err != nil {
		if pipeline.IsMissingInput(err) {
			log.Error("input missing, nothing written", zap.Error(err))
		} else {
			log.Error("run failed, nothing written", zap.String("error", eris.ToString(err, true)))
		}
		failRun(ctx, st, runID, err)
		return runID, err
	}

	if st != nil {
		persistRun(ctx, st, runID, res)
	}

	log.Info("output written",
		zap.String("path", c.Output.Path),
		zap.Int("rows", len(res.Rows)),
	)

	if runID != "" {
		fmt.Fprintf(out, "Run %s\n", runID)
	}
	fmt.Fprintf(out, "Wrote %s\n\n", c.Output.Path)
	fmt.Fprint(out, pipeline.FormatReport(res.Summary, res.Rows))
	return runID, nil
}

// runPipeline turns a panic anywhere in the run into an error.
func runPipeline(ctx context.Context, p *pipeline.Pipeline) (res *pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = eris.Errorf("pipeline panic: %v", r)
		}
	}()
	return p.Run(ctx)
}

func failRun(ctx context.Context, st store.Store, runID string, runErr error) {
	if st == nil || runID == "" {
		return
	}
	if err := st.FailRun(ctx, runID, runErr); err != nil {
		zap.L().Warn("failed to mark run failed", zap.String("run_id", runID), zap.Error(err))
	}
}

// persistRun stores the rows and summary. The output file already exists, so
// store errors are logged rather than failing the command.
func persistRun(ctx context.Context, st store.Store, runID string, res *pipeline.Result) {
	if err := st.SaveResults(ctx, runID, res.Rows); err != nil {
		zap.L().Warn("failed to save results", zap.String("run_id", runID), zap.Error(err))
		failRun(ctx, st, runID, err)
		return
	}
	if err := st.CompleteRun(ctx, runID, &res.Summary); err != nil {
		zap.L().Warn("failed to complete run", zap.String("run_id", runID), zap.Error(err))
	}
}
