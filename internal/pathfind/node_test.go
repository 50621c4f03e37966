package pathfind

import "testing"

// openGrid is an obstacle-free grid without regions.
type openGrid struct{ w, h int }

func (g openGrid) Size() (int, int)         { return g.w, g.h }
func (g openGrid) Walkable(int) bool        { return true }
func (g openGrid) TerrainCost(int) int      { return 0 }
func (g openGrid) ObstacleAt(int) *Obstacle { return nil }
func (g openGrid) RegionAt(int) *Region     { return nil }

func TestGenerationWrapResetsStatus(t *testing.T) {
	f := NewFinder(openGrid{8, 8}, Options{}, nil)
	req := Request{Start: Cell{0, 0}, Dest: SingleCell(Cell{7, 7})}
	first, err := f.FindPath(req)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}

	// leave marks that collide with the post-reset markers
	for i := range f.nodes {
		f.nodes[i].status = 2
	}
	f.statusOpen, f.statusClosed = statusResetThreshold-2, statusResetThreshold-1
	second, err := f.FindPath(req)
	if err != nil {
		t.Fatalf("FindPath after wrap: %v", err)
	}
	if f.statusOpen != 1 || f.statusClosed != 2 {
		t.Fatalf("markers = %d/%d, want 1/2", f.statusOpen, f.statusClosed)
	}
	if second.Cost != first.Cost || len(second.Cells) != len(first.Cells) {
		t.Fatalf("search after wrap = %d/%d cells, want %d/%d", second.Cost, len(second.Cells), first.Cost, len(first.Cells))
	}
}

func TestGenerationAdvancesByTwo(t *testing.T) {
	f := NewFinder(openGrid{2, 2}, Options{}, nil)
	f.nextGeneration()
	if f.statusOpen != 3 || f.statusClosed != 4 {
		t.Fatalf("markers = %d/%d, want 3/4", f.statusOpen, f.statusClosed)
	}
}

// Regionless grids fall back to the octile estimate.
func TestRegionlessGridFallsBack(t *testing.T) {
	f := NewFinder(openGrid{6, 6}, Options{}, nil)
	p, err := f.FindPath(Request{Start: Cell{0, 0}, Dest: SingleCell(Cell{5, 0})})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if p.Cost != 5*DefaultMoveCardinal {
		t.Errorf("cost = %d, want %d", p.Cost, 5*DefaultMoveCardinal)
	}
	if p.Stats.Heuristic != HeuristicOctile {
		t.Errorf("heuristic = %v, want octile", p.Stats.Heuristic)
	}
}
