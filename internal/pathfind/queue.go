package pathfind

// costNode is one open-list entry: cost is f, tie is g plus the original h.
type costNode struct {
	index int32
	cost  int
	tie   int
}

// openList is a binary min-heap that can re-prioritise entries in place.
// slot maps a grid index to its heap position; it is never cleared, an entry
// counts as queued only when the heap slot points back at it.
type openList struct {
	heap []costNode
	slot []int32
}

func newOpenList(cells int) *openList {
	return &openList{
		heap: make([]costNode, 0, 64),
		slot: make([]int32, cells),
	}
}

func (q *openList) Len() int { return len(q.heap) }

func (q *openList) Clear() { q.heap = q.heap[:0] }

func (q *openList) contains(index int32) bool {
	s := int(q.slot[index])
	return s < len(q.heap) && q.heap[s].index == index
}

func (q *openList) Push(n costNode) {
	q.heap = append(q.heap, n)
	i := len(q.heap) - 1
	q.slot[n.index] = int32(i)
	q.up(i)
}

// Pop removes the lowest entry. ok is false on an empty list.
func (q *openList) Pop() (n costNode, ok bool) {
	if len(q.heap) == 0 {
		return costNode{}, false
	}
	top := q.heap[0]
	last := len(q.heap) - 1
	q.heap[0] = q.heap[last]
	q.slot[q.heap[0].index] = 0
	q.heap = q.heap[:last]
	if last > 0 {
		q.down(0)
	}
	return top, true
}

// PushOrUpdate inserts n, or replaces the queued entry with the same index.
func (q *openList) PushOrUpdate(n costNode) {
	if !q.contains(n.index) {
		q.Push(n)
		return
	}
	i := int(q.slot[n.index])
	old := q.heap[i]
	q.heap[i] = n
	if less(old, n) {
		q.down(i)
	} else {
		q.up(i)
	}
}

func less(a, b costNode) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	return a.tie < b.tie
}

func (q *openList) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.slot[q.heap[i].index] = int32(i)
	q.slot[q.heap[j].index] = int32(j)
}

func (q *openList) up(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !less(q.heap[i], q.heap[p]) {
			return
		}
		q.swap(i, p)
		i = p
	}
}

func (q *openList) down(i int) {
	n := len(q.heap)
	for {
		smallest := i
		if l := 2*i + 1; l < n && less(q.heap[l], q.heap[smallest]) {
			smallest = l
		}
		if r := 2*i + 2; r < n && less(q.heap[r], q.heap[smallest]) {
			smallest = r
		}
		if smallest == i {
			return
		}
		q.swap(i, smallest)
		i = smallest
	}
}
