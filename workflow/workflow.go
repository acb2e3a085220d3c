// Package workflow provides the workflow definition, the execution
// scheduler with dependency-ordered batched parallelism, per-node
// retry/timeout/circuit-breaking, and the per-kind node executors.
package workflow

import (
	"github.com/InfinitiBit/graphbit-go/graph"
	"github.com/InfinitiBit/graphbit-go/types"
)

// Workflow is a complete workflow definition: a named, validated graph
// plus free-form metadata.
type Workflow struct {
	// ID uniquely identifies the workflow.
	ID types.WorkflowID `json:"id"`
	// Name is the workflow's display name.
	Name string `json:"name"`
	// Description explains what the workflow does.
	Description string `json:"description"`
	// Graph is the node/edge structure.
	Graph *graph.Graph `json:"graph"`
	// Metadata holds free-form annotations.
	Metadata map[string]interface{} `json:"metadata"`
}

// New creates an empty workflow.
func New(name, description string) *Workflow {
	return &Workflow{
		ID:          types.NewWorkflowID(),
		Name:        name,
		Description: description,
		Graph:       graph.NewGraph(),
		Metadata:    make(map[string]interface{}, 4),
	}
}

// AddNode adds a node to the graph and returns its ID.
func (w *Workflow) AddNode(node *graph.Node) (types.NodeID, error) {
	if err := w.Graph.AddNode(node); err != nil {
		return types.NodeID{}, err
	}
	return node.ID, nil
}

// ConnectNodes adds an edge between two nodes.
func (w *Workflow) ConnectNodes(from, to types.NodeID, edge graph.Edge) error {
	return w.Graph.AddEdge(from, to, edge)
}

// Validate checks the graph's structural invariants.
func (w *Workflow) Validate() error {
	return w.Graph.Validate()
}

// SetMetadata stores a metadata entry.
func (w *Workflow) SetMetadata(key string, value interface{}) {
	w.Metadata[key] = value
}

// Builder assembles a workflow fluently. After the first error, further
// AddNode and Connect calls do nothing, and that error surfaces from
// Build.
//
//	wf, err := workflow.NewBuilder("pipeline").
//	    Description("summarize and route").
//	    AddNode(analyze).
//	    AddNode(route).
//	    Connect(analyze.ID, route.ID, graph.DataFlowEdge()).
//	    Build()
type Builder struct {
	workflow *Workflow
	err      error
}

// NewBuilder starts building a workflow.
func NewBuilder(name string) *Builder {
	return &Builder{workflow: New(name, "")}
}

// Description sets the workflow description.
func (b *Builder) Description(description string) *Builder {
	b.workflow.Description = description
	return b
}

// AddNode adds a node.
func (b *Builder) AddNode(node *graph.Node) *Builder {
	if b.err != nil {
		return b
	}
	_, b.err = b.workflow.AddNode(node)
	return b
}

// Connect adds an edge.
func (b *Builder) Connect(from, to types.NodeID, edge graph.Edge) *Builder {
	if b.err != nil {
		return b
	}
	b.err = b.workflow.ConnectNodes(from, to, edge)
	return b
}

// Metadata stores a metadata entry.
func (b *Builder) Metadata(key string, value interface{}) *Builder {
	b.workflow.SetMetadata(key, value)
	return b
}

// Build validates and returns the workflow.
func (b *Builder) Build() (*Workflow, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.workflow.Validate(); err != nil {
		return nil, err
	}
	return b.workflow, nil
}
