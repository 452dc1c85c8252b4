package features

import (
	"fmt"
	"strings"
)

// Kind names a feature type. It is the first label of a `feature` block in
// a layer declaration.
type Kind string

const (
	KindEnsureDirExists Kind = "ensure_dir_exists"
	KindInstall         Kind = "install"
	KindSymlink         Kind = "symlink"
	KindRemove          Kind = "remove"
	KindUser            Kind = "user"
	KindGroup           Kind = "group"
	KindRpm             Kind = "rpm"
	KindExtract         Kind = "extract"
	KindGenrule         Kind = "genrule"
	KindRequires        Kind = "requires"
)

// Kinds lists every feature kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindEnsureDirExists,
		KindInstall,
		KindSymlink,
		KindRemove,
		KindUser,
		KindGroup,
		KindRpm,
		KindExtract,
		KindGenrule,
		KindRequires,
	}
}

// Data is the kind-specific payload of a Feature. The set of implementations
// is closed; only types in this package satisfy it.
type Data interface {
	Kind() Kind
	isData()
}

// Feature is a single declarative unit of image-build work.
type Feature struct {
	// Label identifies the declaration this feature came from.
	Label string
	Data  Data
}

// Kind returns the kind of the feature's payload.
func (f Feature) Kind() Kind {
	if f.Data == nil {
		return ""
	}
	return f.Data.Kind()
}

// String renders the canonical form of the feature. Two features are equal
// exactly when their canonical forms are equal, and features are ordered by
// it.
func (f Feature) String() string {
	return fmt.Sprintf("%s(%s) %+v", f.Kind(), f.Label, f.Data)
}

// Compare orders features by their canonical form.
func Compare(a, b Feature) int {
	return strings.Compare(a.String(), b.String())
}

// Equal reports whether a and b describe the same feature.
func (f Feature) Equal(other Feature) bool {
	return f.String() == other.String()
}
