package compile

import (
	"context"
	"slices"

	"github.com/specialistvlad/layergraph/internal/features"
)

// Transaction is a normalized set of package changes: sorted, without
// duplicates, and never installing and removing the same package.
type Transaction struct {
	Install []string
	Remove  []string
}

// NewTransaction normalizes install and remove lists. A package listed in
// both is installed.
func NewTransaction(install, remove []string) Transaction {
	in := normalize(install)
	var out []string
	for _, p := range normalize(remove) {
		if _, found := slices.BinarySearch(in, p); !found {
			out = append(out, p)
		}
	}
	return Transaction{Install: in, Remove: out}
}

// Empty reports whether the transaction changes nothing.
func (t Transaction) Empty() bool {
	return len(t.Install) == 0 && len(t.Remove) == 0
}

// Merge combines two transactions.
func (t Transaction) Merge(other Transaction) Transaction {
	return NewTransaction(slices.Concat(t.Install, other.Install), slices.Concat(t.Remove, other.Remove))
}

func normalize(pkgs []string) []string {
	if len(pkgs) == 0 {
		return nil
	}
	out := slices.Clone(pkgs)
	slices.Sort(out)
	return slices.Compact(out)
}

// PlanItem is what a feature wants checked before anything in the layer is
// compiled.
type PlanItem struct {
	Rpm *Transaction
}

// Plan inspects a feature without applying it. Only rpm features produce a
// plan item.
func Plan(_ context.Context, _ *Context, f features.Feature) (PlanItem, error) {
	rpm, ok := f.Data.(features.Rpm)
	if !ok {
		return PlanItem{}, nil
	}
	tx := NewTransaction(rpm.Install, rpm.Remove)
	return PlanItem{Rpm: &tx}, nil
}
