package engine

import (
	"sort"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// graphNode is the engine-owned state of a puzzle node
type graphNode struct {
	cell    Cell
	allowed DirectionSet
	conns   []int
}

func (n *graphNode) degree() int {
	return len(n.conns)
}

// graphState models the connection-graph variant: an unordered edge set
// between fixed nodes. Insertion order of edges only matters for undo.
type graphState struct {
	nodes  []graphNode
	edges  []Edge
	byCell map[Cell]int
}

func newGraphState(p *Puzzle) *graphState {
	g := &graphState{
		nodes:  make([]graphNode, len(p.Nodes)),
		byCell: make(map[Cell]int, len(p.Nodes)),
	}
	for i, n := range p.Nodes {
		g.nodes[i] = graphNode{
			cell:    n.Cell(),
			allowed: NewDirectionSet(n.Directions...),
		}
		g.byCell[n.Cell()] = i
	}
	return g
}

func (g *graphState) validIndex(i int) bool {
	return i >= 0 && i < len(g.nodes)
}

func (g *graphState) edgeIndex(e Edge) int {
	for i, existing := range g.edges {
		if existing == e {
			return i
		}
	}
	return -1
}

// check applies the connection rule in order: adjacency, degree bound,
// then the direction constraint of each endpoint.
func (g *graphState) check(a, b int) Reason {
	if !g.validIndex(a) || !g.validIndex(b) || a == b {
		return ReasonInvalidNode
	}
	na, nb := &g.nodes[a], &g.nodes[b]

	dirAB, ok := DirectionBetween(na.cell, nb.cell)
	if !ok {
		return ReasonNotAdjacent
	}
	if na.degree() >= 2 || nb.degree() >= 2 {
		return ReasonDegreeExceeded
	}
	if !na.allowed.Allows(dirAB) || !nb.allowed.Allows(dirAB.Opposite()) {
		return ReasonDirectionBlocked
	}
	return ReasonNone
}

func (g *graphState) add(e Edge) {
	g.edges = append(g.edges, e)
	g.nodes[e.A].conns = append(g.nodes[e.A].conns, e.B)
	g.nodes[e.B].conns = append(g.nodes[e.B].conns, e.A)
}

func (g *graphState) remove(i int) {
	g.edges = append(g.edges[:i:i], g.edges[i+1:]...)
	g.rebuild()
}

// rebuild recomputes every connection list by replaying the edge set
func (g *graphState) rebuild() {
	for i := range g.nodes {
		g.nodes[i].conns = nil
	}
	for _, e := range g.edges {
		g.nodes[e.A].conns = append(g.nodes[e.A].conns, e.B)
		g.nodes[e.B].conns = append(g.nodes[e.B].conns, e.A)
	}
}

func (g *graphState) capture() snapshot {
	return snapshot{edges: append([]Edge(nil), g.edges...)}
}

func (g *graphState) restore(s snapshot) {
	g.edges = append([]Edge(nil), s.edges...)
	g.rebuild()
}

func (g *graphState) reset() {
	g.edges = nil
	g.rebuild()
}

func (g *graphState) moves() int {
	return len(g.edges)
}

// satisfied reports whether the edges form a single Hamiltonian path:
// two degree-1 endpoints, every other node degree 2, and a BFS from one
// endpoint reaching every node.
func (g *graphState) satisfied() bool {
	if len(g.nodes) < 2 {
		return false
	}
	start := -1
	endpoints := 0
	for i := range g.nodes {
		switch g.nodes[i].degree() {
		case 1:
			endpoints++
			if start < 0 {
				start = i
			}
		case 2:
		default:
			return false
		}
	}
	if endpoints != 2 {
		return false
	}
	return g.reachable(start) == len(g.nodes)
}

// reachable counts the nodes visited by a breadth-first walk from start
func (g *graphState) reachable(start int) int {
	visited := make([]bool, len(g.nodes))
	visited[start] = true
	count := 1

	queue := linkedlistqueue.New()
	queue.Enqueue(start)
	for !queue.Empty() {
		v, _ := queue.Dequeue()
		for _, next := range g.nodes[v.(int)].conns {
			if visited[next] {
				continue
			}
			visited[next] = true
			count++
			queue.Enqueue(next)
		}
	}
	return count
}

func (g *graphState) views() []NodeView {
	views := make([]NodeView, len(g.nodes))
	for i, n := range g.nodes {
		conns := append([]int{}, n.conns...)
		sort.Ints(conns)
		views[i] = NodeView{
			Index:       i,
			Row:         n.cell.Row,
			Col:         n.cell.Col,
			Directions:  n.allowed.Directions(),
			Connections: conns,
			Degree:      n.degree(),
			Filled:      n.degree() > 0,
			Endpoint:    n.degree() == 1,
		}
	}
	return views
}
