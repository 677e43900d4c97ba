package tree

import (
	"encoding/json"
	"strings"

	"github.com/nickyhof/easyext/ext"
)

// NodeID identifies a record node on the wire.
type NodeID struct {
	Prefix   string
	TypeKey  string
	RecordID string
}

func (id NodeID) String() string {
	return id.Prefix + "-" + id.TypeKey + "-" + id.RecordID
}

// ParseNodeID decodes "<prefix>-<type>-<record id>". Any other shape,
// including empty segments, is an ext.ErrMalformedNodeID error.
func ParseNodeID(s string) (NodeID, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return NodeID{}, &ext.NodeIDError{NodeID: s}
	}
	return NodeID{Prefix: parts[0], TypeKey: parts[1], RecordID: parts[2]}, nil
}

// Node is one entry of a tree data response. Text, Qtip and Icon are nil
// when the node spec does not declare them.
type Node struct {
	ID         string
	ObjectID   string
	ObjectType string
	Leaf       bool
	Text       *string
	Qtip       *string
	Icon       *string
	Data       map[string]any
}

// MarshalJSON flattens Data into the node object. Leaf is only written
// when true. Data keys never replace the standard fields.
func (n Node) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Data)+7)
	for k, v := range n.Data {
		m[k] = v
	}

	m["id"] = n.ID
	m["object_id"] = n.ObjectID
	m["object_type"] = n.ObjectType
	if n.Leaf {
		m["leaf"] = true
	}
	if n.Text != nil {
		m["text"] = *n.Text
	}
	if n.Qtip != nil {
		m["qtip"] = *n.Qtip
	}
	if n.Icon != nil {
		m["icon"] = *n.Icon
	}

	return json.Marshal(m)
}
