// Package types provides the core identifier, error, context, and
// resilience primitives shared by the GraphBit workflow engine.
package types

import (
	"github.com/google/uuid"
)

// AgentID uniquely identifies an agent.
//
// IDs are compared bitwise. Free-form names are accepted and mapped to a
// deterministic UUID so that the same name always resolves to the same
// identity across processes.
type AgentID struct {
	uuid.UUID
}

// NewAgentID creates a new random agent ID.
func NewAgentID() AgentID {
	return AgentID{uuid.New()}
}

// AgentIDFromString creates an agent ID from a string.
//
// If the string parses as a canonical UUID it is used directly.
// Otherwise a deterministic UUIDv5 is derived from the string using the
// DNS namespace, so "analyst" maps to the same ID everywhere.
func AgentIDFromString(s string) AgentID {
	if id, err := uuid.Parse(s); err == nil {
		return AgentID{id}
	}
	return AgentID{uuid.NewSHA1(uuid.NameSpaceDNS, []byte(s))}
}

// WorkflowID uniquely identifies a workflow definition.
type WorkflowID struct {
	uuid.UUID
}

// NewWorkflowID creates a new random workflow ID.
func NewWorkflowID() WorkflowID {
	return WorkflowID{uuid.New()}
}

// WorkflowIDFromString parses a workflow ID from its canonical UUID form.
func WorkflowIDFromString(s string) (WorkflowID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return WorkflowID{}, err
	}
	return WorkflowID{id}, nil
}

// NodeID uniquely identifies a node within a workflow graph.
type NodeID struct {
	uuid.UUID
}

// NewNodeID creates a new random node ID.
func NewNodeID() NodeID {
	return NodeID{uuid.New()}
}

// NodeIDFromString creates a node ID from a string.
//
// Canonical UUIDs are used directly; any other string is mapped to a
// deterministic UUIDv5 in the OID namespace.
func NodeIDFromString(s string) NodeID {
	if id, err := uuid.Parse(s); err == nil {
		return NodeID{id}
	}
	return NodeID{uuid.NewSHA1(uuid.NameSpaceOID, []byte(s))}
}
