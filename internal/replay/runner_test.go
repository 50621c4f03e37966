package replay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/pathfinder/internal/navigator"
	"github.com/l1jgo/pathfinder/internal/pathfind"
	"github.com/l1jgo/pathfinder/internal/persist"
	"github.com/l1jgo/pathfinder/internal/world"
)

// memStore keeps recordings in memory and hands them out the way the
// database does: records without snapshots, snapshots by fingerprint.
type memStore struct {
	mu    sync.Mutex
	recs  []persist.ReplayRecord
	snaps map[string]world.Snapshot
	loads atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{snaps: make(map[string]world.Snapshot)}
}

func (s *memStore) Record(_ context.Context, rec persist.ReplayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp := rec.Fingerprint()
	s.snaps[fp] = rec.Snapshot
	rec.ID = int64(len(s.recs) + 1)
	s.recs = append(s.recs, rec)
	return nil
}

func (s *memStore) List(_ context.Context, mapID int16, limit int) ([]persist.ReplayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []persist.ReplayRecord
	for _, rec := range s.recs {
		if mapID != 0 && rec.MapID != mapID {
			continue
		}
		rec.Fingerprint()
		rec.Snapshot = world.Snapshot{}
		out = append(out, rec)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) LoadSnapshot(_ context.Context, fp string) (world.Snapshot, error) {
	s.loads.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[fp]
	if !ok {
		return snap, persist.ErrSnapshotNotFound
	}
	return snap, nil
}

func gateMap() *world.Map {
	m := world.New(20, 12)
	for z := 0; z < 12; z++ {
		switch z {
		case 4:
			m.SetDoor(10, z, pathfind.Obstacle{OpenCost: 40})
		case 9:
			m.SetDoor(10, z, pathfind.Obstacle{Locked: true})
		default:
			m.SetWall(10, z, 0)
		}
	}
	for x := 2; x < 8; x++ {
		m.SetTerrain(x, 6, 9)
	}
	m.SetStructure(14, 5, world.ArmedTrapCost)
	m.Rebuild()
	return m
}

func recordSearches(t *testing.T, store *memStore) {
	t.Helper()
	nav := navigator.New(3, gateMap(), navigator.Options{Recorder: store}, zaptest.NewLogger(t))
	reqs := []pathfind.Request{
		{Start: pathfind.Cell{X: 0, Z: 0}, Dest: pathfind.SingleCell(pathfind.Cell{X: 19, Z: 11})},
		{Start: pathfind.Cell{X: 1, Z: 10}, Dest: pathfind.SingleCell(pathfind.Cell{X: 18, Z: 1}), EndMode: pathfind.EndModeTouch},
		{Start: pathfind.Cell{X: 5, Z: 5}, Dest: pathfind.Rect{MinX: 12, MinZ: 6, MaxX: 14, MaxZ: 8}},
		{Start: pathfind.Cell{X: 0, Z: 0}, Dest: pathfind.SingleCell(pathfind.Cell{X: 19, Z: 0}), Policy: pathfind.Policy{Mode: pathfind.ModeNoPassClosedDoors}},
	}
	for _, req := range reqs {
		// the last request has no path; that is recorded too
		_, _ = nav.FindPath(context.Background(), req, "fixture")
	}
	if len(store.recs) != len(reqs) {
		t.Fatalf("recorded %d searches, want %d", len(store.recs), len(reqs))
	}
}

func TestReplayMatchesRecording(t *testing.T) {
	store := newMemStore()
	recordSearches(t, store)

	r := NewRunner(store, pathfind.Options{}, 3, zaptest.NewLogger(t))
	rep, err := r.Run(context.Background(), 3, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Matches != 4 || rep.Regressions != 0 || rep.Errors != 0 {
		for _, res := range rep.Results {
			t.Logf("%+v", res)
		}
		t.Fatalf("report = %d/%d/%d, want 4 matches", rep.Matches, rep.Regressions, rep.Errors)
	}
	if rep.Results[3].Found {
		t.Error("sealed search found a path on replay")
	}
	// all four searches share one snapshot except the closed-doors one
	if got := store.loads.Load(); got != 2 {
		t.Errorf("snapshot loads = %d, want 2", got)
	}
}

func TestReplayReportsRegressions(t *testing.T) {
	store := newMemStore()
	recordSearches(t, store)
	store.recs[0].Cost++
	store.recs[3].Found = true

	rep, err := NewRunner(store, pathfind.Options{}, 2, nil).Run(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Regressions != 2 {
		t.Fatalf("regressions = %d, want 2", rep.Regressions)
	}
	bad := rep.Regressed()
	if len(bad) != 2 || bad[0].Record.ID != 1 || bad[1].Record.ID != 4 {
		t.Errorf("regressed = %+v", bad)
	}
}

func TestReplayLimitAndErrors(t *testing.T) {
	store := newMemStore()
	recordSearches(t, store)
	clear(store.snaps)

	rep, err := NewRunner(store, pathfind.Options{}, 4, nil).Run(context.Background(), 3, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Results) != 2 || rep.Errors != 2 {
		t.Fatalf("results = %d errors = %d, want 2/2", len(rep.Results), rep.Errors)
	}
	if !errors.Is(rep.Results[0].Err, persist.ErrSnapshotNotFound) {
		t.Errorf("err = %v, want ErrSnapshotNotFound", rep.Results[0].Err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRunner(store, pathfind.Options{}, 1, nil).Run(ctx, 0, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled run err = %v", err)
	}
}
