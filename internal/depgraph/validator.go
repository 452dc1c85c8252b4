package depgraph

import "fmt"

// ValidatorKind selects the predicate a Validator evaluates.
type ValidatorKind string

const (
	ValidateExists       ValidatorKind = "exists"
	ValidateDoesNotExist ValidatorKind = "does_not_exist"
	ValidateFileType     ValidatorKind = "file_type"
	ValidateItemInLayer  ValidatorKind = "item_in_layer"
)

// Validator is a predicate that a required item must satisfy.
type Validator struct {
	Kind ValidatorKind `cbor:"kind"`
	// FileType is the expected type for ValidateFileType.
	FileType FileType `cbor:"file_type,omitempty"`
	// Key and Inner describe the nested lookup of ValidateItemInLayer.
	Key   *ItemKey   `cbor:"key,omitempty"`
	Inner *Validator `cbor:"inner,omitempty"`
}

// Exists is satisfied by any item that has not been removed.
func Exists() Validator { return Validator{Kind: ValidateExists} }

// DoesNotExist is satisfied when nothing provides the key, or the item was
// removed.
func DoesNotExist() Validator { return Validator{Kind: ValidateDoesNotExist} }

// IsFileType is satisfied by a filesystem entry of the given type.
func IsFileType(ft FileType) Validator { return Validator{Kind: ValidateFileType, FileType: ft} }

// ItemInLayer looks up key inside a Layer item's resolved graph and applies
// inner to whatever it finds there.
func ItemInLayer(key ItemKey, inner Validator) Validator {
	return Validator{Kind: ValidateItemInLayer, Key: &key, Inner: &inner}
}

// Satisfies evaluates the predicate against a concrete item.
func (v Validator) Satisfies(item Item) bool {
	switch v.Kind {
	case ValidateExists:
		return item.Removed == nil
	case ValidateDoesNotExist:
		return item.Removed != nil
	case ValidateFileType:
		return item.Entry != nil && item.Entry.FileType == v.FileType
	case ValidateItemInLayer:
		if item.Layer == nil || item.Layer.Graph == nil || v.Key == nil || v.Inner == nil {
			return false
		}
		nested, ok := item.Layer.Graph.Lookup(*v.Key)
		if !ok {
			return v.Inner.Kind == ValidateDoesNotExist
		}
		return v.Inner.Satisfies(nested)
	default:
		return false
	}
}

func (v Validator) String() string {
	switch v.Kind {
	case ValidateFileType:
		return fmt.Sprintf("file_type(%s)", v.FileType)
	case ValidateItemInLayer:
		if v.Key == nil || v.Inner == nil {
			return "item_in_layer(?)"
		}
		return fmt.Sprintf("item_in_layer(%s, %s)", v.Key, v.Inner)
	default:
		return string(v.Kind)
	}
}

// Requirement pairs a required item key with the predicate it must satisfy.
type Requirement struct {
	Key       ItemKey
	Validator Validator
}
