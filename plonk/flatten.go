package plonk

import (
	"encoding/binary"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Monomial is one entry of the canonical form: a sorted multiset of units
// (multiplicity expressed by repetition) and its coefficient polynomial in y.
type Monomial struct {
	Units []ProveExpressionUnit
	Coeff YPolynomial
}

// CanonicalForm is the normalized sum-of-monomials representation of a
// ProveExpression, sorted lexicographically by unit sequence. No two entries
// share the same unit multiset.
type CanonicalForm []Monomial

// canonicalAccumulator indexes monomials by an order-preserving encoding of
// their unit sequence while a flatten is in progress.
type canonicalAccumulator map[string]*Monomial

// unitKey is an order-preserving byte encoding of a sorted unit sequence:
// big-endian fixed-width fields so that byte order equals unit order.
func unitKey(units []ProveExpressionUnit) string {
	buf := make([]byte, 0, len(units)*13)
	for _, u := range units {
		buf = append(buf, byte(u.Kind))
		buf = binary.BigEndian.AppendUint64(buf, uint64(u.ColumnIndex))
		// offset so negative rotations order below positive ones
		buf = binary.BigEndian.AppendUint32(buf, uint32(int64(u.Rotation)+1<<31))
	}
	return string(buf)
}

func (acc canonicalAccumulator) add(units []ProveExpressionUnit, coeff YPolynomial) {
	k := unitKey(units)
	if m, ok := acc[k]; ok {
		m.Coeff.addAssign(coeff)
		return
	}
	acc[k] = &Monomial{Units: units, Coeff: coeff}
}

// Flatten normalizes the tree into canonical sum-of-monomials form. Equal
// polynomials flatten to equal canonical forms regardless of how their trees
// were built.
func Flatten(e ProveExpression) CanonicalForm {
	acc := make(canonicalAccumulator)
	e.flattenInto(acc)

	out := make(CanonicalForm, 0, len(acc))
	for _, m := range acc {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		return compareUnitSlices(out[i].Units, out[j].Units) < 0
	})
	return out
}

func (e Unit) flattenInto(acc canonicalAccumulator) {
	var one fr.Element
	one.SetOne()
	acc.add([]ProveExpressionUnit{e.U}, NewYPolynomial(0, one))
}

func (e Y) flattenInto(acc canonicalAccumulator) {
	acc.add(nil, e.Coeff.clone())
}

func (e Sum) flattenInto(acc canonicalAccumulator) {
	e.L.flattenInto(acc)
	e.R.flattenInto(acc)
}

func (e Product) flattenInto(acc canonicalAccumulator) {
	l := make(canonicalAccumulator)
	e.L.flattenInto(l)
	r := make(canonicalAccumulator)
	e.R.flattenInto(r)

	for _, lm := range l {
		for _, rm := range r {
			units := make([]ProveExpressionUnit, 0, len(lm.Units)+len(rm.Units))
			units = append(units, lm.Units...)
			units = append(units, rm.Units...)
			sort.Slice(units, func(i, j int) bool { return units[i].Cmp(units[j]) < 0 })
			acc.add(units, lm.Coeff.mul(rm.Coeff))
		}
	}
}

// Equal compares two canonical forms monomial by monomial.
func (c CanonicalForm) Equal(o CanonicalForm) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if compareUnitSlices(c[i].Units, o[i].Units) != 0 {
			return false
		}
		if len(c[i].Coeff) != len(o[i].Coeff) {
			return false
		}
		for order, cc := range c[i].Coeff {
			oc, ok := o[i].Coeff[order]
			if !ok || !cc.Equal(&oc) {
				return false
			}
		}
	}
	return true
}

// NaiveOperationCount is the elementwise operation count of the trivial
// sum-of-products evaluation of the canonical form: one multiply per unit
// occurrence and one add per extra monomial.
func (c CanonicalForm) NaiveOperationCount() int {
	ops := 0
	for _, m := range c {
		ops += len(m.Units)
	}
	if len(c) > 1 {
		ops += len(c) - 1
	}
	return ops
}
