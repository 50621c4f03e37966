package pathfind

// SpanDir is the axis an edge span runs along.
type SpanDir uint8

const (
	SpanNorth SpanDir = iota // runs along +Z
	SpanEast                 // runs along +X
)

// EdgeSpan is a straight run of boundary cells starting at Root.
type EdgeSpan struct {
	Root   Cell
	Dir    SpanDir
	Length int
}

// Center is the representative point of the span.
func (s EdgeSpan) Center() Cell {
	c := s.Root
	if s.Dir == SpanEast {
		c.X += s.Length / 2
	} else {
		c.Z += s.Length / 2
	}
	return c
}

// Closest returns the span cell nearest to c.
func (s EdgeSpan) Closest(c Cell) Cell {
	last := max(s.Length-1, 0)
	p := s.Root
	if s.Dir == SpanEast {
		p.X += clamp(c.X-s.Root.X, 0, last)
	} else {
		p.Z += clamp(c.Z-s.Root.Z, 0, last)
	}
	return p
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Link is a boundary between two regions. Bounds covers the cells on both sides.
type Link struct {
	Span   EdgeSpan
	Bounds Rect
	A, B   *Region
}

// Other returns the region across the link from r, or nil if r is not an end.
func (l *Link) Other(r *Region) *Region {
	switch r {
	case l.A:
		return l.B
	case l.B:
		return l.A
	}
	return nil
}

// Region is a precomputed group of connected cells. Regions are read-only during a search.
type Region struct {
	ID     int
	Bounds Rect
	Links  []*Link
	// Portal is set for single-cell door regions.
	Portal *Obstacle
	// Invalid marks regions the host has dirtied but not rebuilt yet.
	Invalid bool
}

func (r *Region) usable() bool { return r != nil && !r.Invalid }
