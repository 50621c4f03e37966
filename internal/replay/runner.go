package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/sync/syncmap"

	"github.com/l1jgo/pathfinder/internal/metrics"
	"github.com/l1jgo/pathfinder/internal/pathfind"
	"github.com/l1jgo/pathfinder/internal/persist"
	"github.com/l1jgo/pathfinder/internal/world"
)

// Source is the replay store. persist.ReplayRepo implements it.
type Source interface {
	List(ctx context.Context, mapID int16, limit int) ([]persist.ReplayRecord, error)
	LoadSnapshot(ctx context.Context, fingerprint string) (world.Snapshot, error)
}

// Outcome of one replayed search.
const (
	OutcomeMatch      = "match"
	OutcomeRegression = "regression"
	OutcomeError      = "error"
)

type Result struct {
	Record  persist.ReplayRecord
	Found   bool
	Cost    int
	PathLen int
	Took    time.Duration
	Outcome string
	Err     error
}

type Report struct {
	Results     []Result
	Matches     int
	Regressions int
	Errors      int
	Took        time.Duration
}

// Regressed returns the results that did not match their recording.
func (r *Report) Regressed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeRegression {
			out = append(out, res)
		}
	}
	return out
}

// snapshotMap is a decoded snapshot, shared read-only between workers.
type snapshotMap struct {
	snap world.Snapshot
	grid *world.Map
}

// Runner reruns recorded searches against their snapshots and compares the
// outcome with what was recorded.
type Runner struct {
	src     Source
	opts    pathfind.Options
	workers int
	log     *zap.Logger

	loads syncmap.Map // fingerprint -> *snapshotMap
	group singleflight.Group
}

func NewRunner(src Source, opts pathfind.Options, workers int, log *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	opts.Obstacles = world.SnapshotObstacles{}
	return &Runner{src: src, opts: opts, workers: workers, log: log}
}

// Run replays the newest limit records of mapID (0 = every map, limit <= 0 = all).
// Per-record failures are reported in the results; only a failed listing or a
// canceled context fails the run.
func (r *Runner) Run(ctx context.Context, mapID int16, limit int) (*Report, error) {
	start := time.Now()
	recs, err := r.src.List(ctx, mapID, limit)
	if err != nil {
		return nil, fmt.Errorf("list replays: %w", err)
	}

	results := make([]Result, len(recs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range recs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.replay(ctx, recs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{Results: results, Took: time.Since(start)}
	for _, res := range results {
		switch res.Outcome {
		case OutcomeMatch:
			rep.Matches++
		case OutcomeRegression:
			rep.Regressions++
		default:
			rep.Errors++
		}
		metrics.ObserveReplay(res.Outcome)
	}
	r.log.Info("replay finished",
		zap.Int("records", len(results)),
		zap.Int("matches", rep.Matches),
		zap.Int("regressions", rep.Regressions),
		zap.Int("errors", rep.Errors),
		zap.Duration("took", rep.Took))
	return rep, nil
}

func (r *Runner) replay(ctx context.Context, rec persist.ReplayRecord) Result {
	res := Result{Record: rec, Outcome: OutcomeError}
	sm, err := r.snapshot(ctx, rec.Fingerprint())
	if err != nil {
		res.Err = err
		return res
	}
	rec.Attach(sm.snap)
	res.Record = rec

	opts := r.opts
	if rec.Heuristic == pathfind.HeuristicOctile.String() {
		opts.Heuristic = pathfind.HeuristicOctile
		if r.opts.Heuristic == pathfind.HeuristicRegion {
			// recorded after an octile fallback, which has no closed limit
			opts.ClosedCellLimit = sm.snap.Width * sm.snap.Height
		}
	}

	begin := time.Now()
	path, err := pathfind.NewFinder(sm.grid, opts, r.log).FindPath(rec.Request)
	res.Took = time.Since(begin)
	switch {
	case err == nil:
		res.Found, res.Cost, res.PathLen = true, path.Cost, len(path.Cells)
	case errors.Is(err, pathfind.ErrNotFound), errors.Is(err, pathfind.ErrSearchExhausted):
		res.Cost = -1
	default:
		res.Err = err
		return res
	}

	res.Outcome = OutcomeMatch
	if res.Found != rec.Found || (res.Found && res.Cost != rec.Cost) {
		res.Outcome = OutcomeRegression
		r.log.Warn("replay regression",
			zap.Int64("id", rec.ID),
			zap.String("label", rec.Label),
			zap.Bool("recorded_found", rec.Found),
			zap.Bool("found", res.Found),
			zap.Int("recorded_cost", rec.Cost),
			zap.Int("cost", res.Cost))
	}
	return res
}

// snapshot loads and decodes a snapshot once, however many workers ask for it.
func (r *Runner) snapshot(ctx context.Context, fingerprint string) (*snapshotMap, error) {
	if v, ok := r.loads.Load(fingerprint); ok {
		return v.(*snapshotMap), nil
	}
	v, err, _ := r.group.Do(fingerprint, func() (any, error) {
		if v, ok := r.loads.Load(fingerprint); ok {
			return v, nil
		}
		snap, err := r.src.LoadSnapshot(ctx, fingerprint)
		if err != nil {
			return nil, err
		}
		grid, err := world.FromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		sm := &snapshotMap{snap: snap, grid: grid}
		r.loads.Store(fingerprint, sm)
		return sm, nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", fingerprint, err)
	}
	return v.(*snapshotMap), nil
}
