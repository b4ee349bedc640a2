package orient

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchOptions configures ResolveAll.
type BatchOptions struct {
	Workers       int // parallel workers (default 1)
	ProgressEvery int // log progress after this many properties (default 2000)
}

// ResolveAll resolves every point. outcomes[i] always belongs to points[i],
// and the result does not depend on the worker count. A nil entry in points
// resolves as ReasonNoPoint.
func (r *Resolver) ResolveAll(ctx context.Context, points []*Point, opts BatchOptions) ([]Outcome, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 2000
	}

	log := zap.L().With(zap.String("component", "orient.batch"))
	log.Info("resolving orientations",
		zap.Int("properties", len(points)),
		zap.Int("roads", len(r.roads)),
		zap.Int("workers", opts.Workers),
	)

	outcomes := make([]Outcome, len(points))
	var done atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for start := 0; start < len(points); start += opts.ProgressEvery {
		end := min(start+opts.ProgressEvery, len(points))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gCtx.Err(); err != nil {
					return eris.Wrap(err, "orient: resolve cancelled")
				}
				outcomes[i] = r.Outcome(points[i])
			}
			n := done.Add(int64(end - start))
			log.Info("processed properties",
				zap.Int64("done", n),
				zap.Int("total", len(points)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// LabelsOf collapses outcomes to their orientation labels.
func LabelsOf(outcomes []Outcome) []Label {
	labels := make([]Label, len(outcomes))
	for i, o := range outcomes {
		labels[i] = o.Orientation()
	}
	return labels
}
