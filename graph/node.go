// Package graph provides the workflow graph model: typed nodes, typed
// edges, and a validated directed multigraph.
package graph

import (
	"strings"
	"time"

	"github.com/InfinitiBit/graphbit-go/types"
)

// NodeKind discriminates the node-type variants.
type NodeKind string

// Node kinds.
const (
	// NodeKindAgent executes an LLM agent with a prompt template.
	NodeKindAgent NodeKind = "agent"
	// NodeKindCondition evaluates a boolean expression for branching.
	NodeKindCondition NodeKind = "condition"
	// NodeKindTransform applies a single-shot data transformation.
	NodeKindTransform NodeKind = "transform"
	// NodeKindSplit marks a parallel fan-out point.
	NodeKindSplit NodeKind = "split"
	// NodeKindJoin synchronizes convergent parallel paths.
	NodeKindJoin NodeKind = "join"
	// NodeKindDelay suspends execution for a fixed duration.
	NodeKindDelay NodeKind = "delay"
	// NodeKindHTTPRequest performs an HTTP call.
	NodeKindHTTPRequest NodeKind = "http_request"
	// NodeKindCustom runs a function from the executor's registry.
	NodeKindCustom NodeKind = "custom"
	// NodeKindDocumentLoader extracts text from a document source.
	NodeKindDocumentLoader NodeKind = "document_loader"
)

// SupportedDocumentTypes is the closed set of document types a
// DocumentLoader node may declare.
var SupportedDocumentTypes = []string{"pdf", "txt", "docx", "json", "csv", "xml", "html"}

// NodeType is a tagged variant: Kind selects which of the per-kind
// fields are meaningful. Constructors below populate the minimum
// required data for each variant.
type NodeType struct {
	Kind NodeKind `json:"type"`

	// Agent fields.
	AgentID        types.AgentID `json:"agent_id,omitempty"`
	PromptTemplate string        `json:"prompt_template,omitempty"`
	Tools          []string      `json:"tools,omitempty"`

	// Condition fields.
	Expression string `json:"expression,omitempty"`

	// Transform fields.
	Transformation string `json:"transformation,omitempty"`

	// Delay fields.
	DurationSeconds int64 `json:"duration_seconds,omitempty"`

	// HttpRequest fields.
	URL     string            `json:"url,omitempty"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// Custom fields.
	FunctionName string `json:"function_name,omitempty"`

	// DocumentLoader fields.
	DocumentType string `json:"document_type,omitempty"`
	SourcePath   string `json:"source_path,omitempty"`
	Encoding     string `json:"encoding,omitempty"`
}

// AgentNodeType creates an agent node variant.
func AgentNodeType(agentID types.AgentID, promptTemplate string) NodeType {
	return NodeType{Kind: NodeKindAgent, AgentID: agentID, PromptTemplate: promptTemplate}
}

// ConditionNodeType creates a condition node variant.
func ConditionNodeType(expression string) NodeType {
	return NodeType{Kind: NodeKindCondition, Expression: expression}
}

// TransformNodeType creates a transform node variant.
func TransformNodeType(transformation string) NodeType {
	return NodeType{Kind: NodeKindTransform, Transformation: transformation}
}

// SplitNodeType creates a fan-out marker variant.
func SplitNodeType() NodeType { return NodeType{Kind: NodeKindSplit} }

// JoinNodeType creates a fan-in marker variant.
func JoinNodeType() NodeType { return NodeType{Kind: NodeKindJoin} }

// DelayNodeType creates a delay node variant.
func DelayNodeType(durationSeconds int64) NodeType {
	return NodeType{Kind: NodeKindDelay, DurationSeconds: durationSeconds}
}

// HTTPRequestNodeType creates an HTTP request node variant.
func HTTPRequestNodeType(url, method string, headers map[string]string) NodeType {
	if headers == nil {
		headers = make(map[string]string)
	}
	return NodeType{Kind: NodeKindHTTPRequest, URL: url, Method: method, Headers: headers}
}

// CustomNodeType creates a custom function node variant.
func CustomNodeType(functionName string) NodeType {
	return NodeType{Kind: NodeKindCustom, FunctionName: functionName}
}

// DocumentLoaderNodeType creates a document loader node variant.
func DocumentLoaderNodeType(documentType, sourcePath string) NodeType {
	return NodeType{Kind: NodeKindDocumentLoader, DocumentType: documentType, SourcePath: sourcePath}
}

// Node is a single execution unit in the workflow graph.
//
// Nodes are immutable once the graph is built; the With* builders are
// for construction only.
type Node struct {
	// ID uniquely identifies the node.
	ID types.NodeID `json:"id"`
	// Name is the human-readable name, also usable in template
	// references.
	Name string `json:"name"`
	// Description explains what the node does.
	Description string `json:"description"`
	// NodeType selects the executor and carries per-kind data.
	NodeType NodeType `json:"node_type"`
	// Config holds free-form executor configuration.
	Config map[string]interface{} `json:"config"`
	// InputSchema optionally validates resolved input.
	InputSchema map[string]interface{} `json:"input_schema,omitempty"`
	// OutputSchema optionally validates the produced output.
	OutputSchema map[string]interface{} `json:"output_schema,omitempty"`
	// RetryConfig controls per-node retries.
	RetryConfig types.RetryConfig `json:"retry_config"`
	// Timeout, when positive, bounds a single execution attempt.
	Timeout time.Duration `json:"timeout_ms,omitempty"`
	// Tags categorize the node.
	Tags []string `json:"tags,omitempty"`
}

// NewNode creates a node with a fresh ID and default retry policy.
func NewNode(name, description string, nodeType NodeType) *Node {
	return &Node{
		ID:          types.NewNodeID(),
		Name:        name,
		Description: description,
		NodeType:    nodeType,
		Config:      make(map[string]interface{}, 8),
		RetryConfig: types.DefaultRetryConfig(),
	}
}

// WithID overrides the generated node ID. Free-form strings map
// deterministically through types.NodeIDFromString.
func (n *Node) WithID(id types.NodeID) *Node {
	n.ID = id
	return n
}

// WithConfig sets a configuration entry.
func (n *Node) WithConfig(key string, value interface{}) *Node {
	n.Config[key] = value
	return n
}

// WithInputSchema attaches a JSON schema for input validation.
func (n *Node) WithInputSchema(schema map[string]interface{}) *Node {
	n.InputSchema = schema
	return n
}

// WithOutputSchema attaches a JSON schema for output validation.
func (n *Node) WithOutputSchema(schema map[string]interface{}) *Node {
	n.OutputSchema = schema
	return n
}

// WithRetryConfig overrides the retry policy.
func (n *Node) WithRetryConfig(cfg types.RetryConfig) *Node {
	n.RetryConfig = cfg
	return n
}

// WithTimeout sets the per-attempt execution timeout.
func (n *Node) WithTimeout(timeout time.Duration) *Node {
	n.Timeout = timeout
	return n
}

// WithTags appends categorization tags.
func (n *Node) WithTags(tags ...string) *Node {
	n.Tags = append(n.Tags, tags...)
	return n
}

// Validate checks the node's per-kind invariants.
func (n *Node) Validate() error {
	if n.Name == "" {
		return types.GraphError("node must have a name")
	}
	if n.Timeout < 0 {
		return types.GraphError("node %q timeout must not be negative", n.Name)
	}

	switch n.NodeType.Kind {
	case NodeKindAgent:
		if n.NodeType.AgentID == (types.AgentID{}) {
			return types.GraphError("agent node %q must have a valid agent_id", n.Name)
		}
		if n.NodeType.PromptTemplate == "" {
			return types.GraphError("agent node %q must have a prompt_template", n.Name)
		}
	case NodeKindCondition:
		if n.NodeType.Expression == "" {
			return types.GraphError("condition node %q must have an expression", n.Name)
		}
	case NodeKindTransform:
		if n.NodeType.Transformation == "" {
			return types.GraphError("transform node %q must have a transformation", n.Name)
		}
	case NodeKindDelay:
		if n.NodeType.DurationSeconds < 0 {
			return types.GraphError("delay node %q must have a non-negative duration", n.Name)
		}
	case NodeKindHTTPRequest:
		if n.NodeType.URL == "" {
			return types.GraphError("http node %q must have a url", n.Name)
		}
		if n.NodeType.Method == "" {
			return types.GraphError("http node %q must have a method", n.Name)
		}
	case NodeKindCustom:
		if n.NodeType.FunctionName == "" {
			return types.GraphError("custom node %q must have a function_name", n.Name)
		}
	case NodeKindDocumentLoader:
		if n.NodeType.DocumentType == "" {
			return types.GraphError("document loader node %q must have a document_type", n.Name)
		}
		if n.NodeType.SourcePath == "" {
			return types.GraphError("document loader node %q must have a source_path", n.Name)
		}
		if !isSupportedDocumentType(n.NodeType.DocumentType) {
			return types.GraphError(
				"document loader node %q has unsupported document type %q (supported: %s)",
				n.Name, n.NodeType.DocumentType, strings.Join(SupportedDocumentTypes, ", "))
		}
	}

	return nil
}

func isSupportedDocumentType(documentType string) bool {
	lowered := strings.ToLower(documentType)
	for _, t := range SupportedDocumentTypes {
		if lowered == t {
			return true
		}
	}
	return false
}
