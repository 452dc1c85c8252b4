package depgraph

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/layergraph/internal/features"
)

// CycleError reports a circular requirement chain. Features holds only the
// features on the cycle, rotated so the smallest one comes first; the order
// is stable across runs for the same input.
type CycleError struct {
	Features []features.Feature
}

func (e *CycleError) Error() string {
	var sb strings.Builder
	sb.WriteString("cycle in dependency graph:")
	for _, f := range e.Features {
		sb.WriteString("\n  ")
		sb.WriteString(f.String())
	}
	return sb.String()
}

// ConflictError reports an item provided by more than one feature of the
// layer being resolved.
type ConflictError struct {
	Item     Item
	Features []features.Feature
}

func (e *ConflictError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s is provided by multiple features:", e.Item)
	for _, f := range e.Features {
		sb.WriteString("\n  ")
		sb.WriteString(f.String())
	}
	return sb.String()
}

// MissingItemError reports a required key that nothing provides.
type MissingItemError struct {
	Key ItemKey
	// Feature is the feature that required the key, when known.
	Feature *features.Feature
}

func (e *MissingItemError) Error() string {
	if e.Feature != nil {
		return fmt.Sprintf("%s is required by %s but was never provided", e.Key, e.Feature)
	}
	return fmt.Sprintf("%s is required but was never provided", e.Key)
}

// UnsatisfiedError reports an item that exists but fails its validator.
type UnsatisfiedError struct {
	Item      Item
	Validator Validator
	Feature   *features.Feature
}

func (e *UnsatisfiedError) Error() string {
	if e.Feature != nil {
		return fmt.Sprintf("%s does not satisfy %s required by %s", e.Item, e.Validator, e.Feature)
	}
	return fmt.Sprintf("%s does not satisfy the validation rule %s", e.Item, e.Validator)
}

// FeatureError wraps a static error from a feature's provides or requires.
type FeatureError struct {
	Feature features.Feature
	Err     error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("feature %s: %v", e.Feature, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }
