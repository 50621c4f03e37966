package pathfind

// nodeState is the per-cell search record. status is compared against the
// Finder's current open/closed markers; anything else means unseen.
type nodeState struct {
	knownCost         int
	heuristicCost     int
	originalHeuristic int
	edgeCost          int32
	parent            int32
	status            uint16
}

const statusResetThreshold = 65435

// nextGeneration retires every open and closed mark from the previous search.
func (f *Finder) nextGeneration() {
	f.statusOpen += 2
	f.statusClosed += 2
	if f.statusClosed >= statusResetThreshold {
		for i := range f.nodes {
			f.nodes[i].status = 0
		}
		f.statusOpen = 1
		f.statusClosed = 2
	}
}
