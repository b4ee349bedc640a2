// Package pipeline runs one orientation batch: it materialises the three
// inputs, projects them, resolves every property against the road network,
// imputes a bounded share of the Unknowns and summarises the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/orientation-cli/internal/config"
	"github.com/sells-group/orientation-cli/internal/fetcher"
	"github.com/sells-group/orientation-cli/internal/model"
	"github.com/sells-group/orientation-cli/internal/orient"
	"github.com/sells-group/orientation-cli/internal/projection"
	"github.com/sells-group/orientation-cli/internal/property"
	"github.com/sells-group/orientation-cli/internal/roads"
)

// Input source names used in MissingInputError.
const (
	SourceTransactions = "transactions"
	SourceProperties   = "properties"
	SourceRoads        = "roads"
)

// DefaultMissingAddress replaces a blank address in the output.
const DefaultMissingAddress = "Unknown Address"

// MissingInputError reports a required input that does not exist or could not
// be downloaded. The run aborts before any loading when it is returned.
type MissingInputError struct {
	Source string
	Ref    string
	Err    error
}

func (e *MissingInputError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("pipeline: %s input not configured", e.Source)
	}
	return fmt.Sprintf("pipeline: %s input not found: %s", e.Source, e.Ref)
}

func (e *MissingInputError) Unwrap() error { return e.Err }

// IsMissingInput reports whether err is (or wraps) a MissingInputError.
func IsMissingInput(err error) bool {
	var mie *MissingInputError
	return errors.As(err, &mie)
}

// Result is the output of a successful run.
type Result struct {
	Rows    []model.PropertyResult
	Summary model.Summary
}

// Pipeline orchestrates a single orientation run.
type Pipeline struct {
	cfg *config.Config
	mat *fetcher.Materializer
}

// New creates a Pipeline. A nil Materializer only accepts local inputs.
func New(cfg *config.Config, mat *fetcher.Materializer) *Pipeline {
	if mat == nil {
		mat = fetcher.NewMaterializer(nil, nil, cfg.Input.TempDir)
	}
	return &Pipeline{cfg: cfg, mat: mat}
}

// Params returns the run parameters recorded with a run.
func (p *Pipeline) Params() model.RunParams {
	c := p.cfg
	return model.RunParams{
		Transactions:      c.Input.Transactions,
		Properties:        c.Input.Properties,
		Roads:             c.Input.Roads,
		SourceCRS:         c.Input.SourceCRS,
		TargetCRS:         c.Orientation.TargetCRS,
		SearchRadius:      c.Orientation.SearchRadiusM,
		ChordIndexCap:     c.Orientation.ChordIndexCap,
		MinChordComponent: c.Orientation.MinChordComponent,
		ImputeFraction:    c.Orientation.ImputeFraction,
		Seed:              c.Orientation.Seed,
		Workers:           c.Batch.Workers,
		Output:            c.Output.Path,
	}
}

// Run executes the batch. It returns a *MissingInputError when an input is
// absent; any other error means the run produced nothing usable.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "pipeline"))

	inputs := []struct{ source, ref string }{
		{SourceTransactions, p.cfg.Input.Transactions},
		{SourceProperties, p.cfg.Input.Properties},
		{SourceRoads, p.cfg.Input.Roads},
	}
	if err := CheckInputs(p.cfg.Input); err != nil {
		return nil, err
	}

	projector, err := projection.Between(p.cfg.Input.SourceCRS, p.cfg.Orientation.TargetCRS)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: projection")
	}

	paths := make(map[string]string, len(inputs))
	for _, in := range inputs {
		local, err := p.mat.Materialize(ctx, in.ref)
		if err != nil {
			if _, ok := fetcher.LocalPath(in.ref); !ok {
				return nil, &MissingInputError{Source: in.source, Ref: in.ref, Err: err}
			}
			return nil, eris.Wrapf(err, "pipeline: materialize %s", in.source)
		}
		paths[in.source] = local
	}

	roadList, roadStats, err := roads.Load(paths[SourceRoads], roads.Options{
		Projector: projector,
		Layer:     p.cfg.Input.RoadsLayer,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load roads")
	}

	props, propStats, err := property.Load(ctx, paths[SourceTransactions], paths[SourceProperties], property.Options{
		Columns:   p.columns(),
		Projector: projector,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load properties")
	}

	resolver := orient.NewResolver(roadList, orient.Params{
		SearchRadius:      p.cfg.Orientation.SearchRadiusM,
		ChordIndexCap:     p.cfg.Orientation.ChordIndexCap,
		MinChordComponent: p.cfg.Orientation.MinChordComponent,
	})
	outcomes, err := resolver.ResolveAll(ctx, property.Points(props), orient.BatchOptions{
		Workers:       p.cfg.Batch.Workers,
		ProgressEvery: p.cfg.Orientation.ProgressEvery,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: resolve")
	}

	labels, enh := orient.EnhanceWith(orient.LabelsOf(outcomes), orient.EnhanceParams{
		Fraction: p.cfg.Orientation.ImputeFraction,
		Seed:     p.cfg.Orientation.Seed,
	})

	missing := p.cfg.Output.MissingAddress
	if missing == "" {
		missing = DefaultMissingAddress
	}
	rows := BuildRows(props, outcomes, labels, enh.Replaced, missing)

	summary := Summarize(outcomes, labels, enh)
	summary.Roads = len(roadList)
	summary.DurationMs = time.Since(start).Milliseconds()

	log.Info("pipeline: complete",
		zap.Int("roads", roadStats.Roads),
		zap.Int("road_features_skipped", roadStats.Skipped),
		zap.Int("transactions", propStats.Transactions),
		zap.Int("unmatched", propStats.Unmatched),
		zap.Int("properties", summary.Total),
		zap.Int("unknown_before", summary.UnknownBefore),
		zap.Int("imputed", summary.Imputed),
		zap.String("mode", summary.Mode),
		zap.Float64("known_percent", summary.KnownPercent),
		zap.Int64("duration_ms", summary.DurationMs),
	)

	return &Result{Rows: rows, Summary: summary}, nil
}

func (p *Pipeline) columns() property.Columns {
	cols := property.DefaultColumns()
	in := p.cfg.Input
	if in.KeyColumn != "" {
		cols.Key = in.KeyColumn
	}
	if in.AddressColumn != "" {
		cols.Address = in.AddressColumn
	}
	if in.GeometryColumn != "" {
		cols.Geometry = in.GeometryColumn
	}
	if in.XColumn != "" {
		cols.X = in.XColumn
	}
	if in.YColumn != "" {
		cols.Y = in.YColumn
	}
	return cols
}

// CheckInputs verifies every input is configured and that local inputs
// exist. Remote inputs are checked when they are downloaded.
func CheckInputs(in config.InputConfig) error {
	for _, c := range []struct{ source, ref string }{
		{SourceTransactions, in.Transactions},
		{SourceProperties, in.Properties},
		{SourceRoads, in.Roads},
	} {
		if c.ref == "" {
			return &MissingInputError{Source: c.source}
		}
		local, ok := fetcher.LocalPath(c.ref)
		if !ok {
			continue
		}
		if _, err := os.Stat(local); err != nil {
			return &MissingInputError{Source: c.source, Ref: c.ref, Err: err}
		}
	}
	return nil
}

// BuildRows zips properties with their final labels. Blank addresses become
// missingAddress; rows listed in imputed are flagged.
func BuildRows(props []property.Property, outcomes []orient.Outcome, labels []orient.Label, imputed []int, missingAddress string) []model.PropertyResult {
	flagged := make(map[int]bool, len(imputed))
	for _, i := range imputed {
		flagged[i] = true
	}

	rows := make([]model.PropertyResult, len(props))
	for i, prop := range props {
		addr := prop.Address
		if addr == "" {
			addr = missingAddress
		}
		rows[i] = model.PropertyResult{
			Seq:         i,
			Key:         prop.Key,
			Address:     addr,
			Orientation: string(labels[i]),
			Reason:      string(outcomes[i].Reason),
			Imputed:     flagged[i],
		}
	}
	return rows
}

// Summarize computes the label distribution over the final labels and the
// unresolved reasons over the raw outcomes.
func Summarize(outcomes []orient.Outcome, labels []orient.Label, enh orient.Enhancement) model.Summary {
	s := model.Summary{
		Total:         len(labels),
		Mode:          string(enh.Mode),
		UnknownBefore: enh.Unknown,
		Imputed:       len(enh.Replaced),
		Distribution:  make([]model.LabelCount, 0, len(orient.Labels)),
	}

	counts := make(map[orient.Label]int, len(orient.Labels))
	known := 0
	for _, l := range labels {
		counts[l]++
		if l.Known() {
			known++
		}
	}
	for _, l := range orient.Labels {
		s.Distribution = append(s.Distribution, model.LabelCount{
			Label:   string(l),
			Count:   counts[l],
			Percent: percent(counts[l], s.Total),
		})
	}
	s.KnownPercent = percent(known, s.Total)
	s.UnknownPercent = percent(s.Total-known, s.Total)

	for _, o := range outcomes {
		if o.Resolved() {
			continue
		}
		if s.Reasons == nil {
			s.Reasons = make(map[string]int)
		}
		s.Reasons[string(o.Reason)]++
	}
	return s
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
