package plonk

import (
	"fmt"

	"github.com/hyperoracle/halo2-gpu-specific/poly"
)

// ColumnKind distinguishes the three classes of circuit columns a constraint
// may query.
type ColumnKind uint8

const (
	// Fixed columns carry values baked into the proving key.
	Fixed ColumnKind = iota
	// Advice columns carry the prover's witness.
	Advice
	// Instance columns carry public inputs.
	Instance
)

func (k ColumnKind) String() string {
	switch k {
	case Fixed:
		return "fixed"
	case Advice:
		return "advice"
	case Instance:
		return "instance"
	default:
		return fmt.Sprintf("ColumnKind(%d)", uint8(k))
	}
}

// ProveExpressionUnit is one column cell reference: a column of a given kind
// and index, queried at a relative row rotation.
//
// Units are totally ordered by (Kind, ColumnIndex, Rotation). Canonical
// monomial keys and the reconstruction tie-break both depend on this order,
// so it must not change.
type ProveExpressionUnit struct {
	Kind        ColumnKind
	ColumnIndex int
	Rotation    poly.Rotation
}

// Cmp returns -1, 0 or 1 following the (Kind, ColumnIndex, Rotation) order.
func (u ProveExpressionUnit) Cmp(o ProveExpressionUnit) int {
	if u.Kind != o.Kind {
		if u.Kind < o.Kind {
			return -1
		}
		return 1
	}
	if u.ColumnIndex != o.ColumnIndex {
		if u.ColumnIndex < o.ColumnIndex {
			return -1
		}
		return 1
	}
	if u.Rotation != o.Rotation {
		if u.Rotation < o.Rotation {
			return -1
		}
		return 1
	}
	return 0
}

func (u ProveExpressionUnit) String() string {
	return fmt.Sprintf("%s[%d]@%d", u.Kind, u.ColumnIndex, u.Rotation)
}

// compareUnitSlices orders two sorted unit sequences lexicographically, the
// order the canonical form is kept in.
func compareUnitSlices(a, b []ProveExpressionUnit) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := a[i].Cmp(b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
