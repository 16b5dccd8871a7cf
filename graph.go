package gridengine

import "sort"

// CellState tracks where a formula cell is in the recalculation
// lifecycle. Value cells are always clean.
type CellState uint8

const (
	StateClean CellState = iota
	StateDirty
	StateEvaluating
	StateError
)

// DependencyGraph tracks which cells read which. Formula cells have
// precedents (the cells and ranges they read); any cell can have
// dependents (formula cells reading it). Range reads are indexed
// separately so a write into a watched range can dirty its observers
// without enumerating range members.
type DependencyGraph struct {
	precedents      map[CellRef]map[CellRef]struct{}
	dependents      map[CellRef]map[CellRef]struct{}
	rangePrecedents map[CellRef][]CellRange
	rangeObservers  map[CellRange]map[CellRef]struct{}
	states          map[CellRef]CellState
	dirty           map[CellRef]struct{}
	volatile        map[CellRef]struct{}
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		precedents:      make(map[CellRef]map[CellRef]struct{}),
		dependents:      make(map[CellRef]map[CellRef]struct{}),
		rangePrecedents: make(map[CellRef][]CellRange),
		rangeObservers:  make(map[CellRange]map[CellRef]struct{}),
		states:          make(map[CellRef]CellState),
		dirty:           make(map[CellRef]struct{}),
		volatile:        make(map[CellRef]struct{}),
	}
}

// SetDependencies replaces a formula cell's precedent edges with the
// given cells and ranges.
func (g *DependencyGraph) SetDependencies(ref CellRef, cells []CellRef, ranges []CellRange) {
	g.ClearDependencies(ref)

	if len(cells) > 0 {
		set := make(map[CellRef]struct{}, len(cells))
		for _, c := range cells {
			set[c] = struct{}{}
			if g.dependents[c] == nil {
				g.dependents[c] = make(map[CellRef]struct{})
			}
			g.dependents[c][ref] = struct{}{}
		}
		g.precedents[ref] = set
	}

	if len(ranges) > 0 {
		g.rangePrecedents[ref] = append([]CellRange(nil), ranges...)
		for _, r := range ranges {
			if g.rangeObservers[r] == nil {
				g.rangeObservers[r] = make(map[CellRef]struct{})
			}
			g.rangeObservers[r][ref] = struct{}{}
		}
	}
}

// ClearDependencies removes all precedent edges of a cell, for when
// its formula is replaced or removed.
func (g *DependencyGraph) ClearDependencies(ref CellRef) {
	for c := range g.precedents[ref] {
		delete(g.dependents[c], ref)
		if len(g.dependents[c]) == 0 {
			delete(g.dependents, c)
		}
	}
	delete(g.precedents, ref)

	for _, r := range g.rangePrecedents[ref] {
		delete(g.rangeObservers[r], ref)
		if len(g.rangeObservers[r]) == 0 {
			delete(g.rangeObservers, r)
		}
	}
	delete(g.rangePrecedents, ref)
}

// MarkDirty flags a cell as needing recalculation.
func (g *DependencyGraph) MarkDirty(ref CellRef) {
	g.dirty[ref] = struct{}{}
	if _, has := g.precedents[ref]; has {
		g.states[ref] = StateDirty
	} else if _, has := g.rangePrecedents[ref]; has {
		g.states[ref] = StateDirty
	}
}

// Dirty returns the dirty set.
func (g *DependencyGraph) Dirty() map[CellRef]struct{} {
	return g.dirty
}

// ClearDirty empties the dirty set after a recalculation pass.
func (g *DependencyGraph) ClearDirty() {
	g.dirty = make(map[CellRef]struct{})
}

// MarkVolatile adds or removes a cell from the volatile set. Volatile
// cells join every recalculation pass.
func (g *DependencyGraph) MarkVolatile(ref CellRef, volatile bool) {
	if volatile {
		g.volatile[ref] = struct{}{}
	} else {
		delete(g.volatile, ref)
	}
}

// Volatile returns the volatile cell set.
func (g *DependencyGraph) Volatile() map[CellRef]struct{} {
	return g.volatile
}

// State reports a cell's recalculation state.
func (g *DependencyGraph) State(ref CellRef) CellState {
	return g.states[ref]
}

func (g *DependencyGraph) setState(ref CellRef, state CellState) {
	if state == StateClean {
		delete(g.states, ref)
		return
	}
	g.states[ref] = state
}

// DirectDependents collects the formula cells that read the given
// cell, either directly or through a range containing it.
func (g *DependencyGraph) DirectDependents(ref CellRef) map[CellRef]struct{} {
	out := make(map[CellRef]struct{})
	for dep := range g.dependents[ref] {
		out[dep] = struct{}{}
	}
	for r, observers := range g.rangeObservers {
		if r.Contains(ref) {
			for o := range observers {
				out[o] = struct{}{}
			}
		}
	}
	return out
}

// Affected computes the transitive closure of dependents starting from
// the seed cells. Seeds are included.
func (g *DependencyGraph) Affected(seeds map[CellRef]struct{}) map[CellRef]struct{} {
	affected := make(map[CellRef]struct{}, len(seeds))
	queue := make([]CellRef, 0, len(seeds))
	for ref := range seeds {
		affected[ref] = struct{}{}
		queue = append(queue, ref)
	}

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		for dep := range g.DirectDependents(ref) {
			if _, seen := affected[dep]; !seen {
				affected[dep] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}
	return affected
}

// TopoOrder orders the given formula cells so every cell comes after
// the cells it reads, using in-degree counting (Kahn). The residual
// cells that cannot be ordered are exactly the members of dependency
// cycles; they come back separately, sorted row-major.
func (g *DependencyGraph) TopoOrder(cells map[CellRef]struct{}) (order []CellRef, cycle []CellRef) {
	adjacency := make(map[CellRef][]CellRef, len(cells))
	inDegree := make(map[CellRef]int, len(cells))
	for ref := range cells {
		inDegree[ref] = 0
	}

	addEdge := func(from, to CellRef) {
		adjacency[from] = append(adjacency[from], to)
		inDegree[to]++
	}

	for ref := range cells {
		for dep := range g.dependents[ref] {
			if _, in := cells[dep]; in && dep != ref {
				addEdge(ref, dep)
			}
		}
		for r, observers := range g.rangeObservers {
			if !r.Contains(ref) {
				continue
			}
			for o := range observers {
				if _, in := cells[o]; in && o != ref {
					addEdge(ref, o)
				}
			}
		}
	}

	// self-references are immediate cycles
	for ref := range cells {
		if _, self := g.precedents[ref][ref]; self {
			inDegree[ref]++
		} else {
			for _, r := range g.rangePrecedents[ref] {
				if r.Contains(ref) {
					inDegree[ref]++
					break
				}
			}
		}
	}

	var ready []CellRef
	for ref, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, ref)
		}
	}
	sortRefs(ready)

	order = make([]CellRef, 0, len(cells))
	for len(ready) > 0 {
		ref := ready[0]
		ready = ready[1:]
		order = append(order, ref)

		var released []CellRef
		for _, dep := range adjacency[ref] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				released = append(released, dep)
			}
		}
		if len(released) > 0 {
			ready = append(ready, released...)
			sortRefs(ready)
		}
	}

	if len(order) < len(cells) {
		ordered := make(map[CellRef]struct{}, len(order))
		for _, ref := range order {
			ordered[ref] = struct{}{}
		}
		for ref := range cells {
			if _, in := ordered[ref]; !in {
				cycle = append(cycle, ref)
			}
		}
		sortRefs(cycle)
	}
	return order, cycle
}

func sortRefs(refs []CellRef) {
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].less(refs[j])
	})
}
