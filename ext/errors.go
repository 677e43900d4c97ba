package ext

import (
	"errors"
	"fmt"
)

// Sentinel errors for grid and tree engines
var (
	// ErrConfig indicates an invalid grid or tree declaration
	ErrConfig = errors.New("invalid configuration")

	// ErrMalformedNodeID indicates a tree node id that does not decode
	ErrMalformedNodeID = errors.New("malformed node id")

	// ErrUnknownNodeType indicates a tree node id naming an undeclared node type
	ErrUnknownNodeType = errors.New("unknown node type")
)

// ConfigError describes a rejected declaration
type ConfigError struct {
	Subject string // e.g. `grid "orders"`
	Option  string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Option == "" {
		return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
	}
	return fmt.Sprintf("%s: option %q: %s", e.Subject, e.Option, e.Reason)
}

// Is returns true if the target error is ErrConfig
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func NewConfigError(subject, option, reason string) *ConfigError {
	return &ConfigError{Subject: subject, Option: option, Reason: reason}
}

// NodeIDError represents a node id that is not "<prefix>-<type>-<record id>"
type NodeIDError struct {
	NodeID string
}

func (e *NodeIDError) Error() string {
	return fmt.Sprintf("malformed node id %q", e.NodeID)
}

// Is returns true if the target error is ErrMalformedNodeID
func (e *NodeIDError) Is(target error) bool {
	return target == ErrMalformedNodeID
}

// UnknownNodeTypeError represents a node id whose type has no declaration
type UnknownNodeTypeError struct {
	Tree    string
	TypeKey string
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("tree %s has no node type %q", e.Tree, e.TypeKey)
}

// Is returns true if the target error is ErrUnknownNodeType
func (e *UnknownNodeTypeError) Is(target error) bool {
	return target == ErrUnknownNodeType
}
