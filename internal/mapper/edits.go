package mapper

import (
	"errors"
	"fmt"
)

// Session-scoped manual edit operations. These mutate nodes in place during
// the mapping session; after Finalize hands the collection off, nothing
// mutates it again.

var ErrUnknownCategory = errors.New("category is not part of the taxonomy")

// ToggleActive flips the user-togglable inclusion flag.
func ToggleActive(n *AccountNode) {
	n.IsActive = !n.IsActive
}

// Reclassify moves a node to a new category/subcategory. Categories with a
// fixed polarity cascade an IsInflow recompute; subcategory sticks only on
// detail nodes.
func Reclassify(n *AccountNode, category, subcategory string) error {
	if !IsCanonical(category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	n.Category = category
	if inflow, fixed := FixedPolarity(category); fixed {
		n.IsInflow = inflow
	}
	if n.Type() == NodeDetail {
		n.Subcategory = subcategory
	} else {
		n.Subcategory = ""
	}
	return nil
}

// ChangeType moves a node between the four exclusive types. Leaving the
// detail type clears the subcategory.
func ChangeType(n *AccountNode, t NodeType) error {
	switch t {
	case NodeDetail:
		n.IsTotal = false
		n.IsSubtotal = false
		n.IsCalculated = false
		n.IsSectionHeader = false
	case NodeTotal:
		n.IsTotal = true
		n.IsCalculated = false
		n.IsSectionHeader = false
		n.Subcategory = ""
	case NodeCalculated:
		n.IsCalculated = true
		n.IsTotal = false
		n.IsSubtotal = false
		n.IsSectionHeader = false
		n.Subcategory = ""
	case NodeHeader:
		n.IsSectionHeader = true
		n.IsTotal = false
		n.IsSubtotal = false
		n.IsCalculated = false
		n.Subcategory = ""
	default:
		return fmt.Errorf("unknown node type %q", t)
	}
	return nil
}

// FindNode returns the node with the given row index, or nil.
func FindNode(nodes []*AccountNode, rowIndex int) *AccountNode {
	for _, n := range nodes {
		if n.RowIndex == rowIndex {
			return n
		}
	}
	return nil
}
