package category

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxLevels is the total number of levels a tenant tree may have.
	MaxLevels = 10
	// MaxLevel is the deepest 0-based level a node may sit on.
	MaxLevel = MaxLevels - 1
)

// Limits carries the tenant's plan values. They are external policy; the
// tree only compares against them.
type Limits struct {
	MaxCategories int `json:"max_categories"` // 0 = unlimited
	MaxDepth      int `json:"max_depth"`      // allowed levels; 0 or >MaxLevels means MaxLevels
}

func (l Limits) maxLevel() int {
	if l.MaxDepth <= 0 || l.MaxDepth > MaxLevels {
		return MaxLevel
	}
	return l.MaxDepth - 1
}

// Tree is the aggregate root for one tenant's category hierarchy. Nodes live
// in an arena map keyed by id; parent->child links live in a separately
// maintained, ordered children index. Every exported mutation either fully
// succeeds or leaves the tree untouched. The tree is not safe for concurrent
// use; callers serialize mutations per tenant.
type Tree struct {
	TenantID string

	limits   Limits
	nodes    map[string]*Node
	children map[string][]string // parentID -> ordered child ids; "" holds roots
}

// NewTree returns an empty tree for one tenant.
func NewTree(tenantID string, limits Limits) *Tree {
	return &Tree{
		TenantID: tenantID,
		limits:   limits,
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
	}
}

// BuildTree reconstructs a tree from the flat node records of the persistence
// layer. Levels are recomputed from the parent chain, children are ordered by
// their stored order and renumbered densely. Corrupt input (missing parents,
// cycles, sibling slug collisions) is rejected. The tree takes ownership of
// the records.
func BuildTree(tenantID string, limits Limits, records []*Node) (*Tree, error) {
	t := NewTree(tenantID, limits)
	for _, n := range records {
		if n.ID == "" {
			return nil, validationErrorf("id", "record without id")
		}
		if _, dup := t.nodes[n.ID]; dup {
			return nil, validationErrorf("id", "duplicate node id %q", n.ID)
		}
		t.nodes[n.ID] = n
	}

	for _, n := range t.nodes {
		if n.ParentID != "" {
			if _, ok := t.nodes[n.ParentID]; !ok {
				return nil, validationErrorf("parent_id", "node %s references missing parent %s", n.ID, n.ParentID)
			}
		}
		t.children[n.ParentID] = append(t.children[n.ParentID], n.ID)
	}

	for parentID, ids := range t.children {
		sort.SliceStable(ids, func(i, j int) bool {
			a, b := t.nodes[ids[i]], t.nodes[ids[j]]
			if a.Order != b.Order {
				return a.Order < b.Order
			}
			return a.Slug < b.Slug
		})
		t.renumber(parentID)

		seen := make(map[string]string, len(ids))
		for _, id := range ids {
			slug := t.nodes[id].Slug
			if other, dup := seen[slug]; dup {
				return nil, validationErrorf("slug", "nodes %s and %s share slug %q under one parent", other, id, slug)
			}
			seen[slug] = id
		}
	}

	for id := range t.nodes {
		level, err := t.computeLevel(id)
		if err != nil {
			return nil, err
		}
		t.nodes[id].Level = level
	}
	return t, nil
}

// computeLevel walks the parent chain counting hops. It guards against loops
// in corrupt data rather than trusting the stored level.
func (t *Tree) computeLevel(id string) (int, error) {
	level := 0
	visited := map[string]struct{}{id: {}}
	cur := t.nodes[id]
	for cur.ParentID != "" {
		if _, loop := visited[cur.ParentID]; loop {
			return 0, &CycleDetectedError{CategoryID: id}
		}
		visited[cur.ParentID] = struct{}{}
		parent, ok := t.nodes[cur.ParentID]
		if !ok {
			return 0, validationErrorf("parent_id", "node %s references missing parent %s", cur.ID, cur.ParentID)
		}
		level++
		if level > MaxLevel {
			return 0, &DepthExceededError{CategoryID: id, Level: level}
		}
		cur = parent
	}
	return level, nil
}

// CreateSpec is caller input for creating a category.
type CreateSpec struct {
	Name        string          `json:"name"`
	Slug        string          `json:"slug,omitempty"` // derived from Name when empty
	Description string          `json:"description,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"` // default true
	Attributes  []AttributeSpec `json:"attributes,omitempty"`
}

// CreateCategory inserts a new node under parentID ("" = root). The new node
// lands at the end of its sibling order.
func (t *Tree) CreateCategory(parentID string, spec CreateSpec) (*Node, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, validationErrorf("name", "category name is required")
	}

	level := 0
	if parentID != "" {
		parent, ok := t.nodes[parentID]
		if !ok {
			return nil, fmt.Errorf("parent %s: %w", parentID, ErrNotFound)
		}
		level = parent.Level + 1
	}
	if level > t.limits.maxLevel() {
		return nil, &DepthExceededError{Level: level}
	}
	if cap := t.limits.MaxCategories; cap > 0 && len(t.nodes) >= cap {
		return nil, &CapacityExceededError{Count: len(t.nodes), Capacity: cap}
	}

	slug := spec.Slug
	if slug == "" {
		slug = Slugify(spec.Name)
	}
	if slug == "" {
		return nil, validationErrorf("slug", "name %q yields no slug; supply one explicitly", spec.Name)
	}
	if !IsValidSlug(slug) {
		return nil, validationErrorf("slug", "invalid slug %q", slug)
	}
	if t.slugTaken(parentID, slug, "") {
		return nil, &DuplicateSlugError{Slug: slug, ParentID: parentID, Suggested: t.suggestSlug(parentID, slug)}
	}

	attrs := make([]*AttributeDefinition, 0, len(spec.Attributes))
	for i, as := range spec.Attributes {
		attr, err := newAttribute(as, i)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}

	active := true
	if spec.IsActive != nil {
		active = *spec.IsActive
	}
	now := time.Now()
	node := &Node{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(spec.Name),
		Slug:        slug,
		Description: spec.Description,
		ParentID:    parentID,
		Level:       level,
		Order:       len(t.children[parentID]),
		IsActive:    active,
		Attributes:  attrs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.nodes[node.ID] = node
	t.children[parentID] = append(t.children[parentID], node.ID)
	return node, nil
}

// UpdateSpec is caller input for a partial category update. Nil fields are
// left unchanged; a non-nil ParentID moves the node (pointer to "" = root).
type UpdateSpec struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// UpdateCategory applies a partial update. A parent change recomputes levels
// for the node and all descendants, and the depth cap is checked against the
// deepest descendant, not just the moved node.
func (t *Tree) UpdateCategory(id string, spec UpdateSpec) (*Node, error) {
	node, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}

	name := node.Name
	if spec.Name != nil {
		name = strings.TrimSpace(*spec.Name)
		if name == "" {
			return nil, validationErrorf("name", "category name is required")
		}
	}

	newParent := node.ParentID
	if spec.ParentID != nil {
		newParent = *spec.ParentID
	}
	moving := newParent != node.ParentID
	if moving {
		if err := t.checkMove(node, newParent); err != nil {
			return nil, err
		}
	}

	slug := node.Slug
	switch {
	case spec.Slug != nil:
		slug = *spec.Slug
	case spec.Name != nil:
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, validationErrorf("slug", "name %q yields no slug; supply one explicitly", name)
	}
	if !IsValidSlug(slug) {
		return nil, validationErrorf("slug", "invalid slug %q", slug)
	}
	if (slug != node.Slug || moving) && t.slugTaken(newParent, slug, id) {
		return nil, &DuplicateSlugError{Slug: slug, ParentID: newParent, Suggested: t.suggestSlug(newParent, slug)}
	}

	// Validation done; apply.
	if moving {
		t.detach(id)
		node.ParentID = newParent
		t.children[newParent] = append(t.children[newParent], id)
		t.renumber(newParent)
		t.recomputeLevels(id)
	}
	node.Name = name
	node.Slug = slug
	if spec.Description != nil {
		node.Description = *spec.Description
	}
	if spec.IsActive != nil {
		node.IsActive = *spec.IsActive
	}
	node.UpdatedAt = time.Now()
	return node, nil
}

// MoveCategory re-parents and/or re-orders a node. A nil newParentID keeps
// the current parent; a nil newOrder appends at the end of the target sibling
// group. Sibling order stays a dense zero-based sequence in both the old and
// the new group.
func (t *Tree) MoveCategory(id string, newParentID *string, newOrder *int) error {
	node, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	target := node.ParentID
	if newParentID != nil {
		target = *newParentID
	}
	if target != node.ParentID {
		if err := t.checkMove(node, target); err != nil {
			return err
		}
		if t.slugTaken(target, node.Slug, id) {
			return &DuplicateSlugError{Slug: node.Slug, ParentID: target, Suggested: t.suggestSlug(target, node.Slug)}
		}
	}

	t.detach(id)
	node.ParentID = target
	siblings := t.children[target]
	pos := len(siblings)
	if newOrder != nil {
		pos = *newOrder
		if pos < 0 {
			pos = 0
		}
		if pos > len(siblings) {
			pos = len(siblings)
		}
	}
	siblings = append(siblings, "")
	copy(siblings[pos+1:], siblings[pos:])
	siblings[pos] = id
	t.children[target] = siblings
	t.renumber(target)
	t.recomputeLevels(id)
	node.UpdatedAt = time.Now()
	return nil
}

// checkMove validates cycle-freedom and the depth cap for re-parenting node
// under target. The cap is checked against the subtree's deepest node.
func (t *Tree) checkMove(node *Node, target string) error {
	newLevel := 0
	if target != "" {
		parent, ok := t.nodes[target]
		if !ok {
			return fmt.Errorf("parent %s: %w", target, ErrNotFound)
		}
		if target == node.ID || t.isDescendant(target, node.ID) {
			return &CycleDetectedError{CategoryID: node.ID}
		}
		newLevel = parent.Level + 1
	}
	if deepest := newLevel + t.subtreeHeight(node.ID); deepest > t.limits.maxLevel() {
		return &DepthExceededError{CategoryID: node.ID, Level: deepest}
	}
	return nil
}

// ChildPolicy is the required disposition for a deleted node's children.
type ChildPolicy string

const (
	// ChildPolicyCascade deletes the whole subtree.
	ChildPolicyCascade ChildPolicy = "cascade"
	// ChildPolicyReattach moves children up to the deleted node's parent.
	ChildPolicyReattach ChildPolicy = "reattach"
)

// DeleteOptions carries the explicit dispositions a delete needs. ProductRefs
// is the product backend's reference count for the node, supplied by the
// caller; the tree does not look it up itself.
type DeleteOptions struct {
	Children       ChildPolicy
	MoveProductsTo string
	ProductRefs    int
}

// DeleteCategory removes a node. When the node has children the caller must
// pick a ChildPolicy; when products still reference it, MoveProductsTo must
// name a surviving category. An ambiguous request is rejected, never guessed.
func (t *Tree) DeleteCategory(id string, opts DeleteOptions) error {
	node, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	hasChildren := len(t.children[id]) > 0
	switch opts.Children {
	case ChildPolicyCascade, ChildPolicyReattach:
	case "":
		if hasChildren {
			return validationErrorf("children", "category has children; choose %q or %q", ChildPolicyCascade, ChildPolicyReattach)
		}
	default:
		return validationErrorf("children", "unknown child policy %q", opts.Children)
	}

	if opts.ProductRefs > 0 && opts.MoveProductsTo == "" {
		return &ReferentialIntegrityError{CategoryID: id, ProductCount: opts.ProductRefs}
	}
	if opts.MoveProductsTo != "" {
		if _, ok := t.nodes[opts.MoveProductsTo]; !ok {
			return fmt.Errorf("move-products target %s: %w", opts.MoveProductsTo, ErrNotFound)
		}
		doomed := opts.Children == ChildPolicyCascade || !hasChildren
		if opts.MoveProductsTo == id || (doomed && t.isDescendant(opts.MoveProductsTo, id)) {
			return validationErrorf("move_products_to", "target would be deleted with the category")
		}
	}

	if hasChildren && opts.Children == ChildPolicyReattach {
		// Children surface next to the node's own siblings; their slugs must
		// not collide there.
		for _, childID := range t.children[id] {
			child := t.nodes[childID]
			if t.slugTaken(node.ParentID, child.Slug, childID) {
				return &DuplicateSlugError{
					Slug:      child.Slug,
					ParentID:  node.ParentID,
					Suggested: t.suggestSlug(node.ParentID, child.Slug),
				}
			}
		}
	}

	// Validation done; apply.
	if hasChildren && opts.Children == ChildPolicyReattach {
		reattached := t.children[id]
		for _, childID := range reattached {
			t.nodes[childID].ParentID = node.ParentID
		}
		delete(t.children, id)
		t.detach(id)
		t.children[node.ParentID] = append(t.children[node.ParentID], reattached...)
		t.renumber(node.ParentID)
		for _, childID := range reattached {
			t.recomputeLevels(childID)
		}
		delete(t.nodes, id)
		return nil
	}

	for _, descID := range t.descendantIDs(id) {
		delete(t.nodes, descID)
		delete(t.children, descID)
	}
	delete(t.children, id)
	t.detach(id)
	delete(t.nodes, id)
	return nil
}

// ReorderUpdate is one entry of a batch reorder.
type ReorderUpdate struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parent_id,omitempty"`
	Order    int     `json:"order"`
}

// ReorderCategories applies a batch of order/parent changes atomically: if
// any single update is invalid, none are applied.
func (t *Tree) ReorderCategories(updates []ReorderUpdate) error {
	scratch := t.Clone()
	for i, u := range updates {
		order := u.Order
		if err := scratch.MoveCategory(u.ID, u.ParentID, &order); err != nil {
			return fmt.Errorf("update %d: %w", i+1, err)
		}
	}
	t.adopt(scratch)
	return nil
}

// Flatten returns the nodes in depth-first order. The sequence is lazy and
// restartable: each range starts over from the roots. Levels on the yielded
// nodes are maintained by the tree.
func (t *Tree) Flatten() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		var walk func(ids []string) bool
		walk = func(ids []string) bool {
			for _, id := range ids {
				if !yield(t.nodes[id]) {
					return false
				}
				if !walk(t.children[id]) {
					return false
				}
			}
			return true
		}
		walk(t.children[""])
	}
}

// Records returns a deep-copied flat snapshot of all nodes in depth-first
// order, suitable for handing to the persistence layer.
func (t *Tree) Records() []*Node {
	records := make([]*Node, 0, len(t.nodes))
	for n := range t.Flatten() {
		records = append(records, n.clone())
	}
	return records
}

// FindByID returns the node with the given id.
func (t *Tree) FindByID(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// FindChildByName finds a direct child of parentID whose slug matches the
// slug derived from name. Used to resolve imported name paths.
func (t *Tree) FindChildByName(parentID, name string) (*Node, bool) {
	slug := Slugify(name)
	for _, id := range t.children[parentID] {
		if t.nodes[id].Slug == slug {
			return t.nodes[id], true
		}
	}
	return nil, false
}

// FindByNamePath walks a root-first sequence of names down the tree.
func (t *Tree) FindByNamePath(path []string) (*Node, bool) {
	parentID := ""
	var node *Node
	for _, name := range path {
		n, ok := t.FindChildByName(parentID, name)
		if !ok {
			return nil, false
		}
		node = n
		parentID = n.ID
	}
	return node, node != nil
}

// Path returns the breadcrumb sequence root -> ... -> id.
func (t *Tree) Path(id string) ([]*Node, error) {
	node, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	path := make([]*Node, 0, node.Level+1)
	for cur := node; ; {
		path = append(path, cur)
		if cur.ParentID == "" {
			break
		}
		cur = t.nodes[cur.ParentID]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Children returns the ordered direct children of id ("" = roots).
func (t *Tree) Children(id string) ([]*Node, error) {
	if id != "" {
		if _, ok := t.nodes[id]; !ok {
			return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
	}
	ids := t.children[id]
	out := make([]*Node, 0, len(ids))
	for _, childID := range ids {
		out = append(out, t.nodes[childID])
	}
	return out, nil
}

// Descendants returns the subtree below id in depth-first order, cut off at
// the absolute level maxLevel. A negative maxLevel means no cut-off.
func (t *Tree) Descendants(id string, maxLevel int) ([]*Node, error) {
	if id != "" {
		if _, ok := t.nodes[id]; !ok {
			return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
	}
	var out []*Node
	var walk func(ids []string)
	walk = func(ids []string) {
		for _, childID := range ids {
			child := t.nodes[childID]
			if maxLevel >= 0 && child.Level > maxLevel {
				continue
			}
			out = append(out, child)
			walk(t.children[childID])
		}
	}
	walk(t.children[id])
	return out, nil
}

// ValidateLimits reports whether another category could be added under
// parentID ("" = root) without breaching depth or capacity. It never mutates
// state; the UI uses it to disable "add" actions up front.
func (t *Tree) ValidateLimits(parentID string) error {
	level := 0
	if parentID != "" {
		parent, ok := t.nodes[parentID]
		if !ok {
			return fmt.Errorf("parent %s: %w", parentID, ErrNotFound)
		}
		level = parent.Level + 1
	}
	if level > t.limits.maxLevel() {
		return &DepthExceededError{Level: level}
	}
	if cap := t.limits.MaxCategories; cap > 0 && len(t.nodes) >= cap {
		return &CapacityExceededError{Count: len(t.nodes), Capacity: cap}
	}
	return nil
}

// Limits returns the plan limits the tree was built with.
func (t *Tree) Limits() Limits { return t.limits }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// AddAttribute attaches a new attribute definition to a category.
func (t *Tree) AddAttribute(categoryID string, spec AttributeSpec) (*AttributeDefinition, error) {
	node, ok := t.nodes[categoryID]
	if !ok {
		return nil, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	attr, err := node.addAttribute(spec)
	if err != nil {
		return nil, err
	}
	node.UpdatedAt = time.Now()
	return attr, nil
}

// RemoveAttribute deletes an attribute definition from a category.
func (t *Tree) RemoveAttribute(categoryID, attributeID string) error {
	node, ok := t.nodes[categoryID]
	if !ok {
		return fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	if err := node.removeAttribute(attributeID); err != nil {
		return err
	}
	node.UpdatedAt = time.Now()
	return nil
}

// ReorderAttributes reorders a category's attributes; the id set must match
// exactly.
func (t *Tree) ReorderAttributes(categoryID string, ids []string) error {
	node, ok := t.nodes[categoryID]
	if !ok {
		return fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	if err := node.reorderAttributes(ids); err != nil {
		return err
	}
	node.UpdatedAt = time.Now()
	return nil
}

// Clone deep-copies the tree. Batch operations mutate a clone and adopt it on
// success so a mid-batch failure cannot leave partial state behind.
func (t *Tree) Clone() *Tree {
	c := NewTree(t.TenantID, t.limits)
	for id, n := range t.nodes {
		c.nodes[id] = n.clone()
	}
	for parentID, ids := range t.children {
		c.children[parentID] = append([]string(nil), ids...)
	}
	return c
}

// Restore adopts the state of a previously taken Clone, discarding the
// current state. The snapshot must not be used afterwards.
func (t *Tree) Restore(snapshot *Tree) {
	t.adopt(snapshot)
}

func (t *Tree) adopt(other *Tree) {
	t.nodes = other.nodes
	t.children = other.children
}

// --- internal maintenance ---

// detach removes id from its parent's child list and renumbers the group.
func (t *Tree) detach(id string) {
	parentID := t.nodes[id].ParentID
	ids := t.children[parentID]
	for i, childID := range ids {
		if childID == id {
			t.children[parentID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	t.renumber(parentID)
}

// renumber rewrites the sibling group as a dense zero-based order sequence.
func (t *Tree) renumber(parentID string) {
	for i, id := range t.children[parentID] {
		t.nodes[id].Order = i
	}
}

// recomputeLevels walks the subtree rooted at id fixing levels after a move.
func (t *Tree) recomputeLevels(id string) {
	node := t.nodes[id]
	if node.ParentID == "" {
		node.Level = 0
	} else {
		node.Level = t.nodes[node.ParentID].Level + 1
	}
	for _, childID := range t.children[id] {
		t.recomputeLevels(childID)
	}
}

func (t *Tree) slugTaken(parentID, slug, excludeID string) bool {
	for _, id := range t.children[parentID] {
		if id != excludeID && t.nodes[id].Slug == slug {
			return true
		}
	}
	return false
}

// suggestSlug finds the first free "<slug>-N" among the siblings, N >= 2.
func (t *Tree) suggestSlug(parentID, slug string) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", slug, n)
		if !t.slugTaken(parentID, candidate, "") {
			return candidate
		}
	}
}

// isDescendant reports whether id sits somewhere below ancestorID.
func (t *Tree) isDescendant(id, ancestorID string) bool {
	for cur := t.nodes[id]; cur != nil && cur.ParentID != ""; cur = t.nodes[cur.ParentID] {
		if cur.ParentID == ancestorID {
			return true
		}
	}
	return false
}

// subtreeHeight is the number of levels below id (0 for a leaf).
func (t *Tree) subtreeHeight(id string) int {
	height := 0
	for _, childID := range t.children[id] {
		if h := t.subtreeHeight(childID) + 1; h > height {
			height = h
		}
	}
	return height
}

// descendantIDs collects every node below id.
func (t *Tree) descendantIDs(id string) []string {
	var out []string
	for _, childID := range t.children[id] {
		out = append(out, childID)
		out = append(out, t.descendantIDs(childID)...)
	}
	return out
}
