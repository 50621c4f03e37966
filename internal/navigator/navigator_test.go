package navigator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/pathfinder/internal/pathfind"
	"github.com/l1jgo/pathfinder/internal/persist"
	"github.com/l1jgo/pathfinder/internal/world"
)

type memRecorder struct {
	mu   sync.Mutex
	recs []persist.ReplayRecord
}

func (r *memRecorder) Record(_ context.Context, rec persist.ReplayRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func openMap(w, h int) *world.Map {
	m := world.New(w, h)
	m.Rebuild()
	return m
}

func request(sx, sz, dx, dz int) pathfind.Request {
	return pathfind.Request{
		Start:  pathfind.Cell{X: sx, Z: sz},
		Dest:   pathfind.SingleCell(pathfind.Cell{X: dx, Z: dz}),
		Policy: pathfind.Policy{MoveCardinal: 10, MoveDiagonal: 14},
	}
}

func TestFindPathRecords(t *testing.T) {
	rec := &memRecorder{}
	n := New(4, openMap(5, 5), Options{Recorder: rec}, zaptest.NewLogger(t))

	path, err := n.FindPath(context.Background(), request(0, 0, 4, 4), "diag")
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if path.Cost != 56 {
		t.Errorf("cost = %d, want 56", path.Cost)
	}
	if len(rec.recs) != 1 {
		t.Fatalf("recorded %d searches, want 1", len(rec.recs))
	}
	got := rec.recs[0]
	if got.MapID != 4 || got.Label != "diag" || !got.Found || got.Cost != 56 || got.PathLen != 5 {
		t.Errorf("record = %+v", got)
	}
	if got.Snapshot.Width != 5 || !got.Snapshot.Exact {
		t.Errorf("snapshot = %dx%d exact=%v", got.Snapshot.Width, got.Snapshot.Height, got.Snapshot.Exact)
	}
}

func TestFindPathErrors(t *testing.T) {
	rec := &memRecorder{}
	m := openMap(6, 3)
	for z := 0; z < 3; z++ {
		m.SetWall(3, z, 0)
	}
	n := New(1, m, Options{Recorder: rec}, nil)

	_, err := n.FindPath(context.Background(), request(0, 0, 5, 0), "sealed")
	if !errors.Is(err, pathfind.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(rec.recs) != 1 || rec.recs[0].Found || rec.recs[0].Cost != -1 {
		t.Errorf("failed search record = %+v", rec.recs)
	}

	if _, err := n.FindPath(context.Background(), request(-1, 0, 5, 0), "bad"); !errors.Is(err, pathfind.ErrInvalidStart) {
		t.Errorf("err = %v, want ErrInvalidStart", err)
	}
	if len(rec.recs) != 1 {
		t.Error("invalid request was recorded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := n.FindPath(ctx, request(0, 0, 1, 0), "late"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOctileFallback(t *testing.T) {
	opts := Options{Search: pathfind.Options{ClosedCellLimit: 5}}
	strict := New(1, openMap(30, 30), opts, nil)
	if _, err := strict.FindPath(context.Background(), request(0, 0, 29, 29), "far"); !errors.Is(err, pathfind.ErrSearchExhausted) {
		t.Fatalf("err = %v, want ErrSearchExhausted", err)
	}

	opts.FallbackToOctile = true
	n := New(1, openMap(30, 30), opts, zaptest.NewLogger(t))
	path, err := n.FindPath(context.Background(), request(0, 0, 29, 29), "far")
	if err != nil {
		t.Fatalf("FindPath with fallback: %v", err)
	}
	if path.Cost != 29*14 || path.Stats.Heuristic != pathfind.HeuristicOctile {
		t.Errorf("cost = %d heuristic = %v", path.Cost, path.Stats.Heuristic)
	}
}

func TestUpdateRebuildsRegions(t *testing.T) {
	n := New(1, openMap(6, 3), Options{}, nil)
	if _, err := n.FindPath(context.Background(), request(0, 1, 5, 1), "open"); err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	n.Update(func(m *world.Map) {
		for z := 0; z < 3; z++ {
			m.SetWall(2, z, 0)
		}
	})
	if _, err := n.FindPath(context.Background(), request(0, 1, 5, 1), "walled"); !errors.Is(err, pathfind.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after walling off", err)
	}
}

func TestConcurrentSearches(t *testing.T) {
	m := openMap(40, 40)
	for z := 0; z < 35; z++ {
		m.SetWall(20, z, 0)
	}
	n := New(1, m, Options{}, nil)
	want, err := n.FindPath(context.Background(), request(0, 0, 39, 0), "ref")
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := n.FindPath(context.Background(), request(0, 0, 39, 0), "par")
			if err != nil {
				errs <- err
				return
			}
			if got.Cost != want.Cost {
				errs <- errors.New("cost differs between concurrent searches")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
