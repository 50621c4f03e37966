package navigator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/l1jgo/pathfinder/internal/metrics"
	"github.com/l1jgo/pathfinder/internal/pathfind"
	"github.com/l1jgo/pathfinder/internal/persist"
	"github.com/l1jgo/pathfinder/internal/world"
)

var (
	tracerOnce sync.Once
	tracer     trace.Tracer
)

func getTracer() trace.Tracer {
	tracerOnce.Do(func() {
		tracer = otel.Tracer("pathfinder/navigator")
	})
	return tracer
}

// Recorder receives every finished search. persist.ReplayRepo and
// persist.ReplayBuffer implement it.
type Recorder interface {
	Record(ctx context.Context, rec persist.ReplayRecord) error
}

// Navigator is the search front door of one map. It is safe for concurrent
// use: each caller borrows its own Finder, and map edits wait for running
// searches to finish.
type Navigator struct {
	mapID    int16
	grid     *world.Map
	opts     pathfind.Options
	fallback bool
	log      *zap.Logger

	mu       sync.RWMutex // grid edits vs searches
	finders  sync.Pool
	octile   sync.Pool
	recorder Recorder
}

// Options configure a Navigator.
type Options struct {
	Search pathfind.Options
	// FallbackToOctile reruns an exhausted region search with the octile
	// heuristic and no closed-cell limit.
	FallbackToOctile bool
	Recorder         Recorder
}

func New(mapID int16, grid *world.Map, opts Options, log *zap.Logger) *Navigator {
	if log == nil {
		log = zap.NewNop()
	}
	if grid.Dirty() {
		grid.Rebuild()
	}
	n := &Navigator{
		mapID:    mapID,
		grid:     grid,
		opts:     opts.Search,
		fallback: opts.FallbackToOctile,
		recorder: opts.Recorder,
		log:      log.With(zap.Int16("map", mapID)),
	}
	n.finders.New = func() any {
		return pathfind.NewFinder(n.grid, n.opts, n.log)
	}
	n.octile.New = func() any {
		o := n.opts
		o.Heuristic = pathfind.HeuristicOctile
		w, h := n.grid.Size()
		o.ClosedCellLimit = w * h
		return pathfind.NewFinder(n.grid, o, n.log)
	}
	return n
}

func (n *Navigator) MapID() int16 { return n.mapID }

// Update applies edits to the map and rebuilds its regions when needed.
// Running searches finish first; new ones wait.
func (n *Navigator) Update(edit func(m *world.Map)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	edit(n.grid)
	if n.grid.Dirty() {
		n.grid.Rebuild()
	}
}

// FindPath runs one search. label tags the search in recordings and logs.
func (n *Navigator) FindPath(ctx context.Context, req pathfind.Request, label string) (*pathfind.Path, error) {
	ctx, span := getTracer().Start(ctx, "navigator.FindPath",
		trace.WithAttributes(
			attribute.Int("map_id", int(n.mapID)),
			attribute.String("label", label),
			attribute.String("mode", req.Policy.Mode.String()),
			attribute.Int("start_x", req.Start.X),
			attribute.Int("start_z", req.Start.Z),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "canceled")
		return nil, err
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	start := time.Now()
	path, stats, err := n.search(&n.finders, req)
	metrics.ObserveSearch(stats, time.Since(start), err)

	if errors.Is(err, pathfind.ErrSearchExhausted) && n.fallback && stats.Heuristic == pathfind.HeuristicRegion {
		span.AddEvent("octile_fallback", trace.WithAttributes(attribute.Int("closed", stats.Closed)))
		n.log.Info("region search exhausted, retrying with octile estimate",
			zap.String("label", label), zap.Int("closed", stats.Closed))
		metrics.ObserveFallback()
		retry := time.Now()
		path, stats, err = n.search(&n.octile, req)
		metrics.ObserveSearch(stats, time.Since(retry), err)
	}
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("heuristic", stats.Heuristic.String()),
		attribute.Int("closed", stats.Closed),
		attribute.Int("region_pops", stats.RegionPops),
		attribute.Int64("duration_us", elapsed.Microseconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, metrics.Result(err))
	} else {
		span.SetAttributes(attribute.Int("cost", path.Cost), attribute.Int("cells", len(path.Cells)))
		span.SetStatus(codes.Ok, "path found")
	}

	if n.recorder != nil && !isInvalid(err) {
		n.record(ctx, req, label, path, stats, elapsed)
	}

	if err != nil {
		return nil, fmt.Errorf("map %d %s: %w", n.mapID, label, err)
	}
	n.log.Debug("path found",
		zap.String("label", label),
		zap.Int("cost", path.Cost),
		zap.Int("cells", len(path.Cells)),
		zap.Stringer("heuristic", stats.Heuristic),
		zap.Duration("took", elapsed))
	return path, nil
}

func (n *Navigator) search(pool *sync.Pool, req pathfind.Request) (*pathfind.Path, pathfind.Stats, error) {
	f := pool.Get().(*pathfind.Finder)
	defer pool.Put(f)
	path, err := f.FindPath(req)
	if isInvalid(err) {
		return nil, pathfind.Stats{Heuristic: f.Options().Heuristic}, err
	}
	return path, f.LastStats(), err
}

// record snapshots the map as this request saw it. Searches whose snapshot
// cannot reproduce their costs are skipped. Caller holds n.mu.
func (n *Navigator) record(ctx context.Context, req pathfind.Request, label string, path *pathfind.Path, stats pathfind.Stats, took time.Duration) {
	policy := req.Policy
	snap := n.grid.Snapshot(&policy, n.opts.Obstacles)
	if !snap.Exact {
		n.log.Debug("search not recordable", zap.String("label", label), zap.Stringer("mode", policy.Mode))
		return
	}
	rec := persist.ReplayRecord{
		MapID:     n.mapID,
		Label:     label,
		Snapshot:  snap,
		Request:   req,
		Heuristic: stats.Heuristic.String(),
		Closed:    stats.Closed,
		Duration:  took,
		Cost:      -1,
	}
	if path != nil {
		rec.Found = true
		rec.Cost = path.Cost
		rec.PathLen = len(path.Cells)
	}
	if err := n.recorder.Record(ctx, rec); err != nil {
		n.log.Warn("search not recorded", zap.String("label", label), zap.Error(err))
	}
}

func isInvalid(err error) bool {
	return errors.Is(err, pathfind.ErrInvalidStart) ||
		errors.Is(err, pathfind.ErrInvalidDestination) ||
		errors.Is(err, pathfind.ErrInvalidPolicy)
}
