package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gammazero/toposort"
)

// Edges is the two read views of a task's dependency edges.
type Edges struct {
	Prerequisites []TaskID // tasks that must happen before this one
	FollowUps     []TaskID // tasks that wait for this one
}

// Edge is a single prerequisite -> dependent link.
type Edge struct {
	Prerequisite TaskID
	Dependent    TaskID
}

// DependencyGraph is the prerequisite graph of one household's tasks. It
// stores a single edge set; the forward and reverse maps are two indexes over
// it and are only ever updated together. The graph is kept acyclic.
type DependencyGraph struct {
	mu          sync.RWMutex
	householdID HouseholdID
	tasks       map[TaskID]bool
	followUps   map[TaskID]map[TaskID]bool // prerequisite -> dependents
	prereqs     map[TaskID]map[TaskID]bool // dependent -> prerequisites
}

// NewDependencyGraph creates an empty graph for a household.
func NewDependencyGraph(householdID HouseholdID) *DependencyGraph {
	return &DependencyGraph{
		householdID: householdID,
		tasks:       make(map[TaskID]bool),
		followUps:   make(map[TaskID]map[TaskID]bool),
		prereqs:     make(map[TaskID]map[TaskID]bool),
	}
}

// HouseholdID returns the household the graph belongs to.
func (g *DependencyGraph) HouseholdID() HouseholdID {
	return g.householdID
}

// AddTask registers a task as a node. Adding a known task is a no-op.
func (g *DependencyGraph) AddTask(id TaskID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks[id] = true
}

// HasTask reports whether the task is a node of the graph.
func (g *DependencyGraph) HasTask(id TaskID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tasks[id]
}

// RemoveTask drops a task and every edge touching it.
func (g *DependencyGraph) RemoveTask(id TaskID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for dep := range g.followUps[id] {
		delete(g.prereqs[dep], id)
	}
	for pre := range g.prereqs[id] {
		delete(g.followUps[pre], id)
	}
	delete(g.followUps, id)
	delete(g.prereqs, id)
	delete(g.tasks, id)
}

// AddEdge records that prerequisite must happen before dependent. The cycle
// check and the insert happen under one lock, so two concurrent inserts can
// never jointly close a cycle.
func (g *DependencyGraph) AddEdge(prerequisite, dependent TaskID) error {
	if prerequisite == dependent {
		return fmt.Errorf("link %d -> %d: %w", prerequisite, dependent, ErrSelfReference)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range []TaskID{prerequisite, dependent} {
		if !g.tasks[id] {
			return fmt.Errorf("link %d -> %d: %w %d in household %d", prerequisite, dependent, ErrUnknownTask, id, g.householdID)
		}
	}
	if g.followUps[prerequisite][dependent] {
		return fmt.Errorf("link %d -> %d: %w", prerequisite, dependent, ErrDuplicateEdge)
	}
	if path := g.pathLocked(dependent, prerequisite); path != nil {
		return fmt.Errorf("link %d -> %d: %w: %s", prerequisite, dependent, ErrCycleDetected, formatPath(append(path, dependent)))
	}

	g.link(prerequisite, dependent)
	return nil
}

// RemoveEdge deletes the edge if present. Removing a missing edge is a no-op.
func (g *DependencyGraph) RemoveEdge(prerequisite, dependent TaskID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.followUps[prerequisite], dependent)
	delete(g.prereqs[dependent], prerequisite)
}

// HasEdge reports whether prerequisite -> dependent exists.
func (g *DependencyGraph) HasEdge(prerequisite, dependent TaskID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.followUps[prerequisite][dependent]
}

// EdgesOf returns both views of a task's edges, sorted by id.
func (g *DependencyGraph) EdgesOf(id TaskID) Edges {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return Edges{
		Prerequisites: sortedKeys(g.prereqs[id]),
		FollowUps:     sortedKeys(g.followUps[id]),
	}
}

// Edges returns every edge, ordered by prerequisite then dependent.
func (g *DependencyGraph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []Edge
	for _, pre := range sortedKeys(g.tasks) {
		for _, dep := range sortedKeys(g.followUps[pre]) {
			edges = append(edges, Edge{Prerequisite: pre, Dependent: dep})
		}
	}
	return edges
}

// AvailableTasks lists the household tasks that can still be offered as a
// prerequisite or follow-up for id: everything except id itself and the
// tasks already directly linked to it.
func (g *DependencyGraph) AvailableTasks(id TaskID) []TaskID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	available := []TaskID{}
	for _, other := range sortedKeys(g.tasks) {
		if other == id || g.followUps[id][other] || g.prereqs[id][other] {
			continue
		}
		available = append(available, other)
	}
	return available
}

// Ready returns the tasks that are not done and whose prerequisites are all
// done, sorted by id.
func (g *DependencyGraph) Ready(done func(TaskID) bool) []TaskID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ready := []TaskID{}
	for _, id := range sortedKeys(g.tasks) {
		if done(id) {
			continue
		}
		allDone := true
		for pre := range g.prereqs[id] {
			if !done(pre) {
				allDone = false
				break
			}
		}
		if allDone {
			ready = append(ready, id)
		}
	}
	return ready
}

// Order returns the tasks in an order where every prerequisite comes before
// its dependents.
func (g *DependencyGraph) Order() ([]TaskID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []toposort.Edge
	for _, id := range sortedKeys(g.tasks) {
		if len(g.prereqs[id]) == 0 {
			// Root task: edge from nil keeps it in the result
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, pre := range sortedKeys(g.prereqs[id]) {
			edges = append(edges, toposort.Edge{pre, id})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycleDetected, err)
	}

	order := make([]TaskID, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(TaskID))
		}
	}

	if len(order) != len(g.tasks) {
		return nil, fmt.Errorf("topological sort lost %d of %d tasks", len(g.tasks)-len(order), len(g.tasks))
	}
	return order, nil
}

// Clone returns an independent copy of the graph.
func (g *DependencyGraph) Clone() *DependencyGraph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cp := NewDependencyGraph(g.householdID)
	for id := range g.tasks {
		cp.tasks[id] = true
	}
	for pre, deps := range g.followUps {
		for dep := range deps {
			cp.link(pre, dep)
		}
	}
	return cp
}

// Tasks returns all nodes sorted by id.
func (g *DependencyGraph) Tasks() []TaskID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.tasks)
}

func (g *DependencyGraph) link(prerequisite, dependent TaskID) {
	if g.followUps[prerequisite] == nil {
		g.followUps[prerequisite] = make(map[TaskID]bool)
	}
	if g.prereqs[dependent] == nil {
		g.prereqs[dependent] = make(map[TaskID]bool)
	}
	g.followUps[prerequisite][dependent] = true
	g.prereqs[dependent][prerequisite] = true
}

// pathLocked returns a follow-up path from -> ... -> to, or nil if to is not
// reachable. Caller must hold g.mu.
func (g *DependencyGraph) pathLocked(from, to TaskID) []TaskID {
	visited := make(map[TaskID]bool)
	var path []TaskID

	var visit func(id TaskID) bool
	visit = func(id TaskID) bool {
		if visited[id] {
			return false
		}
		visited[id] = true
		path = append(path, id)
		if id == to {
			return true
		}
		for _, next := range sortedKeys(g.followUps[id]) {
			if visit(next) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	if visit(from) {
		return path
	}
	return nil
}

func formatPath(path []TaskID) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, " -> ")
}

func sortedKeys(set map[TaskID]bool) []TaskID {
	keys := make([]TaskID, 0, len(set))
	for id, ok := range set {
		if ok {
			keys = append(keys, id)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
