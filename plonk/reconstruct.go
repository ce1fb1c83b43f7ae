package plonk

import "sort"

// unitPow is a unit together with its multiplicity inside one monomial.
type unitPow struct {
	u ProveExpressionUnit
	c uint32
}

// factorTerm is a monomial in the working set of the reconstructor, with the
// unit multiset held as sorted (unit, multiplicity) pairs.
type factorTerm struct {
	units []unitPow
	coeff YPolynomial
}

// Reconstruct re-factors a canonical form into an evaluation tree that is
// algebraically equal to it but needs fewer elementwise device operations
// than the naive sum of per-monomial products.
//
// The factoring is greedy: at every level the unit present in the largest
// number of remaining monomials is pulled out, Shannon-expansion style. Ties
// are broken towards the first unit reaching the maximum count in ascending
// (kind, column index, rotation) order, which makes the output shape
// deterministic across runs and implementations. Global optimality is not
// attempted.
func Reconstruct(c CanonicalForm) ProveExpression {
	if len(c) == 0 {
		return NewGateAccumulator()
	}
	terms := make([]factorTerm, 0, len(c))
	for _, m := range c {
		terms = append(terms, factorTerm{units: groupUnits(m.Units), coeff: m.Coeff.clone()})
	}
	return reconstructTerms(terms)
}

// groupUnits collapses a sorted unit sequence into (unit, multiplicity)
// pairs, preserving order.
func groupUnits(units []ProveExpressionUnit) []unitPow {
	var out []unitPow
	for _, u := range units {
		if n := len(out); n > 0 && out[n-1].u == u {
			out[n-1].c++
			continue
		}
		out = append(out, unitPow{u: u, c: 1})
	}
	return out
}

func reconstructTerms(terms []factorTerm) ProveExpression {
	if len(terms) == 1 {
		return reconstructSingle(terms[0])
	}

	// presence count per distinct unit, multiplicity ignored
	counts := make(map[ProveExpressionUnit]int)
	for _, t := range terms {
		for _, up := range t.units {
			counts[up.u]++
		}
	}

	pivot, ok := maxCountUnit(counts)
	if !ok {
		// every term is unit-free; fold the coefficients into one Y leaf
		merged := terms[0].coeff.clone()
		for _, t := range terms[1:] {
			merged.addAssign(t.coeff)
		}
		return Y{Coeff: merged}
	}

	var with, without []factorTerm
	for _, t := range terms {
		idx := -1
		for i, up := range t.units {
			if up.u == pivot {
				idx = i
				break
			}
		}
		if idx < 0 {
			without = append(without, t)
			continue
		}
		reduced := factorTerm{coeff: t.coeff}
		reduced.units = append(reduced.units, t.units[:idx]...)
		if t.units[idx].c > 1 {
			reduced.units = append(reduced.units, unitPow{u: pivot, c: t.units[idx].c - 1})
		}
		reduced.units = append(reduced.units, t.units[idx+1:]...)
		with = append(with, reduced)
	}

	left := Product{L: Unit{U: pivot}, R: reconstructTerms(with)}
	if len(without) == 0 {
		return left
	}
	return Sum{L: left, R: reconstructTerms(without)}
}

// maxCountUnit picks the first unit reaching the maximum count in ascending
// unit order.
func maxCountUnit(counts map[ProveExpressionUnit]int) (ProveExpressionUnit, bool) {
	if len(counts) == 0 {
		return ProveExpressionUnit{}, false
	}
	units := make([]ProveExpressionUnit, 0, len(counts))
	for u := range counts {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Cmp(units[j]) < 0 })

	best := units[0]
	bestCount := counts[best]
	for _, u := range units[1:] {
		if counts[u] > bestCount {
			best = u
			bestCount = counts[u]
		}
	}
	return best, true
}

// reconstructSingle multiplies out one remaining monomial: the Y coefficient
// leaf wrapped by one Product chain per unit, in ascending unit order.
func reconstructSingle(t factorTerm) ProveExpression {
	acc := ProveExpression(Y{Coeff: t.coeff.clone()})
	for i := len(t.units) - 1; i >= 0; i-- {
		acc = Product{L: acc, R: unitChain(t.units[i])}
	}
	return acc
}

// unitChain is u multiplied by itself c times, right-nested.
func unitChain(up unitPow) ProveExpression {
	if up.c == 1 {
		return Unit{U: up.u}
	}
	return Product{L: Unit{U: up.u}, R: unitChain(unitPow{u: up.u, c: up.c - 1})}
}
