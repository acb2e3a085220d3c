package graph_test

import (
	"encoding/json"
	"testing"

	"github.com/InfinitiBit/graphbit-go/graph"
	"github.com/InfinitiBit/graphbit-go/types"
)

func transformNode(name string) *graph.Node {
	return graph.NewNode(name, "", graph.TransformNodeType(`upper("x")`))
}

func TestAddNode(t *testing.T) {
	g := graph.NewGraph()
	node := transformNode("a")

	if err := g.AddNode(node); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if err := g.AddNode(node); err == nil {
		t.Error("duplicate node ID accepted")
	}
	if g.NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", g.NodeCount())
	}
}

func TestAddEdgeValidatesEndpoints(t *testing.T) {
	g := graph.NewGraph()
	a := transformNode("a")
	if err := g.AddNode(a); err != nil {
		t.Fatal(err)
	}

	if err := g.AddEdge(a.ID, types.NewNodeID(), graph.DataFlowEdge()); err == nil {
		t.Error("edge to unknown node accepted")
	}
	if err := g.AddEdge(types.NewNodeID(), a.ID, graph.DataFlowEdge()); err == nil {
		t.Error("edge from unknown node accepted")
	}
}

func TestGetDependenciesAndDescendants(t *testing.T) {
	g := graph.NewGraph()
	a, b, c := transformNode("a"), transformNode("b"), transformNode("c")
	for _, n := range []*graph.Node{a, b, c} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge(a.ID, b.ID, graph.DataFlowEdge()); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(b.ID, c.ID, graph.DataFlowEdge()); err != nil {
		t.Fatal(err)
	}

	deps := g.GetDependencies(c.ID)
	if len(deps) != 1 || deps[0] != b.ID {
		t.Errorf("deps(c) = %v, want [b]", deps)
	}
	if len(g.GetDependencies(a.ID)) != 0 {
		t.Error("entry node should have no dependencies")
	}

	descendants := g.GetDescendants(a.ID)
	if len(descendants) != 2 {
		t.Errorf("descendants(a) = %v, want b and c", descendants)
	}
}

func TestTopologicalOrderStable(t *testing.T) {
	g := graph.NewGraph()
	// Insertion order: c, a, b with edges a->b, a->c.
	c, a, b := transformNode("c"), transformNode("a"), transformNode("b")
	for _, n := range []*graph.Node{c, a, b} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge(a.ID, b.ID, graph.DataFlowEdge()); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(a.ID, c.ID, graph.DataFlowEdge()); err != nil {
		t.Fatal(err)
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("TopologicalOrder failed: %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("order length = %d", len(order))
	}
	// a has no deps and both b and c wait on it; within the second
	// layer insertion order puts c before b.
	if order[0] != a.ID || order[1] != c.ID || order[2] != b.ID {
		t.Errorf("unexpected order: %v", order)
	}
}

func TestValidateRejectsCycles(t *testing.T) {
	g := graph.NewGraph()
	a, b := transformNode("a"), transformNode("b")
	for _, n := range []*graph.Node{a, b} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge(a.ID, b.ID, graph.DataFlowEdge()); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(b.ID, a.ID, graph.ControlFlowEdge()); err != nil {
		t.Fatal(err)
	}

	if err := g.Validate(); err == nil {
		t.Error("cyclic graph passed validation")
	}
	if _, err := g.TopologicalOrder(); err == nil {
		t.Error("cyclic graph produced a topological order")
	}
}

func TestValidateAllowsConditionalBackEdges(t *testing.T) {
	g := graph.NewGraph()
	a := graph.NewNode("gate", "", graph.ConditionNodeType("score > 5"))
	b := transformNode("work")
	for _, n := range []*graph.Node{a, b} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge(a.ID, b.ID, graph.DataFlowEdge()); err != nil {
		t.Fatal(err)
	}
	// Routing back-reference along a conditional edge is legal.
	if err := g.AddEdge(b.ID, a.ID, graph.ConditionalEdge("retry")); err != nil {
		t.Fatal(err)
	}

	if err := g.Validate(); err != nil {
		t.Errorf("conditional back-edge rejected: %v", err)
	}
}

func TestNodeValidation(t *testing.T) {
	cases := []struct {
		name string
		node *graph.Node
		ok   bool
	}{
		{"valid agent", graph.NewNode("a", "", graph.AgentNodeType(types.NewAgentID(), "do {task}")), true},
		{"agent missing prompt", graph.NewNode("a", "", graph.AgentNodeType(types.NewAgentID(), "")), false},
		{"agent missing id", graph.NewNode("a", "", graph.NodeType{Kind: graph.NodeKindAgent, PromptTemplate: "p"}), false},
		{"condition missing expression", graph.NewNode("c", "", graph.ConditionNodeType("")), false},
		{"transform missing spec", graph.NewNode("t", "", graph.TransformNodeType("")), false},
		{"http missing url", graph.NewNode("h", "", graph.HTTPRequestNodeType("", "GET", nil)), false},
		{"custom missing function", graph.NewNode("f", "", graph.CustomNodeType("")), false},
		{"document loader valid", graph.NewNode("d", "", graph.DocumentLoaderNodeType("txt", "/tmp/a.txt")), true},
		{"document loader bad type", graph.NewNode("d", "", graph.DocumentLoaderNodeType("exe", "/tmp/a.exe")), false},
		{"split is always valid", graph.NewNode("s", "", graph.SplitNodeType()), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.node.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGraphJSONRoundTrip(t *testing.T) {
	g := graph.NewGraph()
	a := graph.NewNode("loader", "loads the doc", graph.DocumentLoaderNodeType("txt", "/tmp/doc.txt")).
		WithTags("io")
	b := graph.NewNode("summarize", "", graph.AgentNodeType(types.AgentIDFromString("summarizer"), "Summarize: {{node.loader.content}}"))
	for _, n := range []*graph.Node{a, b} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge(a.ID, b.ID, graph.DataFlowEdge().WithMetadata("weight", float64(1))); err != nil {
		t.Fatal(err)
	}

	encoded, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	decoded := graph.NewGraph()
	if err := json.Unmarshal(encoded, decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.NodeCount() != 2 || decoded.EdgeCount() != 1 {
		t.Fatalf("structure lost: %d nodes, %d edges", decoded.NodeCount(), decoded.EdgeCount())
	}
	restored, ok := decoded.GetNode(a.ID)
	if !ok {
		t.Fatal("node a missing after round trip")
	}
	if restored.Name != "loader" || restored.NodeType.DocumentType != "txt" {
		t.Errorf("node a fields lost: %+v", restored)
	}
	edges := decoded.EdgesFrom(a.ID)
	if len(edges) != 1 || edges[0].To != b.ID || edges[0].Edge.Kind != graph.EdgeKindDataFlow {
		t.Errorf("edges lost: %+v", edges)
	}
}
