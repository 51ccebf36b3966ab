package category

import (
	"time"
)

// Node is one category in a tenant's tree. Nodes are flat records with a
// parent pointer; child links live in the tree's children index so the flat
// and nested views have a single source of truth.
type Node struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Slug        string                 `json:"slug"`
	Description string                 `json:"description,omitempty"`
	ParentID    string                 `json:"parent_id,omitempty"` // "" = root
	Level       int                    `json:"level"`
	Order       int                    `json:"order"`
	IsActive    bool                   `json:"is_active"`
	Attributes  []*AttributeDefinition `json:"attributes,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Attribute returns the attribute definition with the given id.
func (n *Node) Attribute(id string) (*AttributeDefinition, bool) {
	for _, attr := range n.Attributes {
		if attr.ID == id {
			return attr, true
		}
	}
	return nil, false
}

// addAttribute validates spec and appends a definition at the end of the
// node's attribute order.
func (n *Node) addAttribute(spec AttributeSpec) (*AttributeDefinition, error) {
	attr, err := newAttribute(spec, len(n.Attributes))
	if err != nil {
		return nil, err
	}
	n.Attributes = append(n.Attributes, attr)
	return attr, nil
}

// removeAttribute deletes the definition and renumbers the remainder densely.
func (n *Node) removeAttribute(id string) error {
	for i, attr := range n.Attributes {
		if attr.ID == id {
			n.Attributes = append(n.Attributes[:i], n.Attributes[i+1:]...)
			for j, rest := range n.Attributes {
				rest.Order = j
			}
			return nil
		}
	}
	return ErrAttributeNotFound
}

// reorderAttributes follows the same contract as option reordering: the id
// set must exactly match the node's current attributes.
func (n *Node) reorderAttributes(ids []string) error {
	if len(ids) != len(n.Attributes) {
		return validationErrorf("attributes", "expected %d attribute ids, got %d", len(n.Attributes), len(ids))
	}
	byID := make(map[string]*AttributeDefinition, len(n.Attributes))
	for _, attr := range n.Attributes {
		byID[attr.ID] = attr
	}
	reordered := make([]*AttributeDefinition, 0, len(ids))
	for i, id := range ids {
		attr, ok := byID[id]
		if !ok {
			return validationErrorf("attributes", "unknown attribute id %q", id)
		}
		delete(byID, id)
		attr.Order = i
		reordered = append(reordered, attr)
	}
	n.Attributes = reordered
	return nil
}

func (n *Node) clone() *Node {
	c := *n
	if n.Attributes != nil {
		c.Attributes = make([]*AttributeDefinition, len(n.Attributes))
		for i, attr := range n.Attributes {
			c.Attributes[i] = attr.clone()
		}
	}
	return &c
}
