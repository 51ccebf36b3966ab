package category

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("category not found")
	ErrAttributeNotFound = errors.New("attribute not found")
)

// ValidationError reports malformed caller input. The caller corrects the
// input and retries; the tree is never left partially mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func validationErrorf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DepthExceededError means the operation would place a node beyond the
// maximum of 10 levels. Level is the level the deepest affected node would
// have landed on.
type DepthExceededError struct {
	CategoryID string
	Level      int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("category depth limit exceeded: node would land on level %d (max %d)", e.Level, MaxLevel)
}

// DuplicateSlugError means a sibling under the same parent already carries
// the slug. Suggested is a free alternative the caller may offer.
type DuplicateSlugError struct {
	Slug      string
	ParentID  string
	Suggested string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("slug %q already used by a sibling (suggestion: %q)", e.Slug, e.Suggested)
}

// CapacityExceededError means the tenant's plan does not allow another node.
type CapacityExceededError struct {
	Count    int
	Capacity int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("category capacity reached: %d of %d", e.Count, e.Capacity)
}

// CycleDetectedError means a parent chain loops back on itself. This is a
// data-integrity bug, not a user input error; callers should log it loudly.
type CycleDetectedError struct {
	CategoryID string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("cycle detected in parent chain of category %s", e.CategoryID)
}

// ReferentialIntegrityError means products still reference the category and
// no disposition for them was supplied.
type ReferentialIntegrityError struct {
	CategoryID   string
	ProductCount int
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("category %s has %d attached products and no move target was given", e.CategoryID, e.ProductCount)
}
