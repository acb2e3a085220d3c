package graph

import (
	"encoding/json"

	"github.com/InfinitiBit/graphbit-go/types"
)

// EdgeRef is an edge together with its endpoints, as stored in the
// graph's indexes.
type EdgeRef struct {
	From types.NodeID `json:"from"`
	To   types.NodeID `json:"to"`
	Edge Edge         `json:"edge"`
}

// Graph is a directed multigraph of workflow nodes.
//
// Edges are indexed by source for forward traversal and by target for
// dependency lookup. Insertion order is preserved so topological
// layering tie-breaks are stable.
//
// Invariants enforced by Validate:
//   - every referenced node ID exists,
//   - the subgraph induced by data-flow and control-flow edges is
//     acyclic,
//   - every node satisfies its per-kind invariants.
type Graph struct {
	nodes     map[types.NodeID]*Node
	order     []types.NodeID
	edgesFrom map[types.NodeID][]EdgeRef
	edgesTo   map[types.NodeID][]EdgeRef
	edgeCount int
}

// NewGraph creates an empty workflow graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[types.NodeID]*Node, 16),
		edgesFrom: make(map[types.NodeID][]EdgeRef, 16),
		edgesTo:   make(map[types.NodeID][]EdgeRef, 16),
	}
}

// AddNode registers a node. Node IDs must be unique within the graph
// and the node must satisfy its per-kind invariants.
func (g *Graph) AddNode(node *Node) error {
	if node == nil {
		return types.GraphError("node must not be nil")
	}
	if err := node.Validate(); err != nil {
		return err
	}
	if _, exists := g.nodes[node.ID]; exists {
		return types.GraphError("duplicate node ID: %s", node.ID)
	}

	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)
	return nil
}

// AddEdge connects two existing nodes.
func (g *Graph) AddEdge(from, to types.NodeID, edge Edge) error {
	if _, exists := g.nodes[from]; !exists {
		return types.GraphError("edge source node does not exist: %s", from)
	}
	if _, exists := g.nodes[to]; !exists {
		return types.GraphError("edge target node does not exist: %s", to)
	}

	ref := EdgeRef{From: from, To: to, Edge: edge}
	g.edgesFrom[from] = append(g.edgesFrom[from], ref)
	g.edgesTo[to] = append(g.edgesTo[to], ref)
	g.edgeCount++
	return nil
}

// GetNode returns the node with the given ID.
func (g *Graph) GetNode(id types.NodeID) (*Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// GetNodeByName returns the first node with the given human name, in
// insertion order.
func (g *Graph) GetNodeByName(name string) (*Node, bool) {
	for _, id := range g.order {
		if g.nodes[id].Name == name {
			return g.nodes[id], true
		}
	}
	return nil, false
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return g.edgeCount }

// EdgesFrom returns the outgoing edges of a node.
func (g *Graph) EdgesFrom(id types.NodeID) []EdgeRef { return g.edgesFrom[id] }

// EdgesTo returns the incoming edges of a node.
func (g *Graph) EdgesTo(id types.NodeID) []EdgeRef { return g.edgesTo[id] }

// GetDependencies returns the sources of every incoming edge of the
// given node (deduplicated, in edge-insertion order). All edge kinds
// create scheduling dependencies.
func (g *Graph) GetDependencies(id types.NodeID) []types.NodeID {
	incoming := g.edgesTo[id]
	seen := make(map[types.NodeID]struct{}, len(incoming))
	deps := make([]types.NodeID, 0, len(incoming))
	for _, ref := range incoming {
		if _, dup := seen[ref.From]; dup {
			continue
		}
		seen[ref.From] = struct{}{}
		deps = append(deps, ref.From)
	}
	return deps
}

// GetDescendants returns every node reachable from the given node via
// outgoing edges, excluding the node itself.
func (g *Graph) GetDescendants(id types.NodeID) []types.NodeID {
	visited := make(map[types.NodeID]struct{})
	var result []types.NodeID

	var visit func(types.NodeID)
	visit = func(current types.NodeID) {
		for _, ref := range g.edgesFrom[current] {
			if _, seen := visited[ref.To]; seen {
				continue
			}
			visited[ref.To] = struct{}{}
			result = append(result, ref.To)
			visit(ref.To)
		}
	}
	visit(id)
	return result
}

// TopologicalOrder returns the nodes in dependency order. Ties within a
// layer break by node insertion order. Returns a graph error if the
// graph contains a cycle.
func (g *Graph) TopologicalOrder() ([]types.NodeID, error) {
	completed := make(map[types.NodeID]struct{}, len(g.nodes))
	result := make([]types.NodeID, 0, len(g.nodes))

	for len(result) < len(g.order) {
		// Collect the whole layer before marking completion so ties
		// within a layer break by insertion order.
		var layer []types.NodeID
		for _, id := range g.order {
			if _, done := completed[id]; done {
				continue
			}
			ready := true
			for _, dep := range g.GetDependencies(id) {
				if _, done := completed[dep]; !done {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			return nil, types.GraphError("graph contains a cycle; topological order is undefined")
		}
		for _, id := range layer {
			completed[id] = struct{}{}
			result = append(result, id)
		}
	}
	return result, nil
}

// Validate checks the structural invariants of the graph: node
// invariants, dangling references, and acyclicity of the data/control
// subgraph via DFS coloring.
func (g *Graph) Validate() error {
	for _, id := range g.order {
		if err := g.nodes[id].Validate(); err != nil {
			return err
		}
	}

	// AddEdge already rejects dangling endpoints; re-check in case the
	// graph was deserialized.
	for from, refs := range g.edgesFrom {
		if _, ok := g.nodes[from]; !ok {
			return types.GraphError("edge references unknown source node: %s", from)
		}
		for _, ref := range refs {
			if _, ok := g.nodes[ref.To]; !ok {
				return types.GraphError("edge references unknown target node: %s", ref.To)
			}
		}
	}

	return g.detectCycles()
}

// DFS colors for cycle detection.
const (
	colorWhite = iota // unvisited
	colorGray         // on the current DFS stack
	colorBlack        // fully explored
)

// detectCycles runs DFS coloring over the subgraph induced by
// data-flow and control-flow edges. Conditional and error-handling
// edges are routing constructs and may legally form back-references.
func (g *Graph) detectCycles() error {
	colors := make(map[types.NodeID]int, len(g.nodes))

	var visit func(types.NodeID) error
	visit = func(id types.NodeID) error {
		colors[id] = colorGray
		for _, ref := range g.edgesFrom[id] {
			if ref.Edge.Kind != EdgeKindDataFlow && ref.Edge.Kind != EdgeKindControlFlow {
				continue
			}
			switch colors[ref.To] {
			case colorGray:
				return types.GraphError("cycle detected involving nodes %s and %s", id, ref.To)
			case colorWhite:
				if err := visit(ref.To); err != nil {
					return err
				}
			}
		}
		colors[id] = colorBlack
		return nil
	}

	for _, id := range g.order {
		if colors[id] == colorWhite {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// graphJSON is the serialized form of a Graph.
type graphJSON struct {
	Nodes []*Node   `json:"nodes"`
	Edges []EdgeRef `json:"edges"`
}

// MarshalJSON serializes nodes in insertion order together with every
// edge, so deserialization reconstructs a structurally equal graph.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{Nodes: g.Nodes(), Edges: make([]EdgeRef, 0, g.edgeCount)}
	for _, id := range g.order {
		out.Edges = append(out.Edges, g.edgesFrom[id]...)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reconstructs the graph from its serialized form.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*g = *NewGraph()
	for _, node := range in.Nodes {
		if err := g.AddNode(node); err != nil {
			return err
		}
	}
	for _, ref := range in.Edges {
		if err := g.AddEdge(ref.From, ref.To, ref.Edge); err != nil {
			return err
		}
	}
	return nil
}
