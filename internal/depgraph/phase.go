package depgraph

import (
	"fmt"

	"github.com/specialistvlad/layergraph/internal/features"
)

// Phase is a coarse, totally ordered epoch of the image build. Every feature
// belongs to exactly one phase, and no feature of a later phase is ordered
// before any feature of an earlier one.
type Phase int

const (
	PhaseInit Phase = iota
	// PhaseOsPackage runs the package manager before anything else touches
	// the filesystem, so packages cannot clobber compiled features.
	PhaseOsPackage
	PhaseCompile
	PhaseEnd
)

// Phases returns every phase in execution order.
func Phases() []Phase {
	return []Phase{PhaseInit, PhaseOsPackage, PhaseCompile, PhaseEnd}
}

// PhaseFor assigns a feature to its phase. It depends only on the kind.
func PhaseFor(f features.Feature) Phase {
	switch f.Data.(type) {
	case features.Rpm:
		return PhaseOsPackage
	default:
		return PhaseCompile
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseOsPackage:
		return "os-package"
	case PhaseCompile:
		return "compile"
	case PhaseEnd:
		return "end"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}
