// Package plonk implements the constraint-evaluation engine of the prover:
// the symbolic expression algebra over column queries and the linear
// combination challenge y, its normalization and re-factoring, and the
// device-resident evaluation of the resulting trees over the extended
// evaluation domain.
package plonk

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/hyperoracle/halo2-gpu-specific/poly"
)

// YPolynomial is a sparse polynomial in the gate-combination challenge y,
// keyed by the power of y.
type YPolynomial map[uint32]fr.Element

// NewYPolynomial returns the singleton c*y^order.
func NewYPolynomial(order uint32, c fr.Element) YPolynomial {
	return YPolynomial{order: c}
}

func (p YPolynomial) clone() YPolynomial {
	out := make(YPolynomial, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// addAssign merges r into p, adding coefficients of equal order.
func (p YPolynomial) addAssign(r YPolynomial) {
	for order, c := range r {
		if cur, ok := p[order]; ok {
			var sum fr.Element
			sum.Add(&cur, &c)
			p[order] = sum
		} else {
			p[order] = c
		}
	}
}

// mul returns the convolution of the two y-polynomials.
func (p YPolynomial) mul(r YPolynomial) YPolynomial {
	res := make(YPolynomial, len(p)*len(r))
	for lo, lc := range p {
		for ro, rc := range r {
			order := lo + ro
			var c fr.Element
			c.Mul(&lc, &rc)
			if cur, ok := res[order]; ok {
				c.Add(&c, &cur)
			}
			res[order] = c
		}
	}
	return res
}

// maxOrder reports the highest power of y present. ok is false for the empty
// mapping, which the public construction path never produces.
func (p YPolynomial) maxOrder() (uint32, bool) {
	if len(p) == 0 {
		return 0, false
	}
	var max uint32
	for order := range p {
		if order > max {
			max = order
		}
	}
	return max, true
}

// ProveExpression is a polynomial over column queries and the challenge y,
// represented as a tree of the four variants below. Children are exclusively
// owned by their parent: canonicalization and reconstruction copy rather than
// share subtrees.
type ProveExpression interface {
	// GetDegree returns the evaluation-domain degree bound and an auxiliary
	// count used for extended-domain sizing. The formula is deliberately
	// conservative for sums and must stay aligned with the domain sizing of
	// the rest of the proving system.
	GetDegree() (uint32, uint32)

	// Clone deep-copies the tree.
	Clone() ProveExpression

	flattenInto(acc canonicalAccumulator)
}

// Unit is a single column query.
type Unit struct {
	U ProveExpressionUnit
}

// Sum is the sum of two polynomials.
type Sum struct {
	L, R ProveExpression
}

// Product is the product of two polynomials.
type Product struct {
	L, R ProveExpression
}

// Y is a linear combination of powers of the challenge y,
// sum of coeff*y^order over the mapping.
type Y struct {
	Coeff YPolynomial
}

// NewUnit returns a query of the given column at the given rotation.
func NewUnit(kind ColumnKind, columnIndex int, rotation poly.Rotation) ProveExpression {
	return Unit{U: ProveExpressionUnit{Kind: kind, ColumnIndex: columnIndex, Rotation: rotation}}
}

// NewConstant returns the constant c, as the y^0 singleton.
func NewConstant(c fr.Element) ProveExpression {
	return Y{Coeff: NewYPolynomial(0, c)}
}

// NewY returns c*y^order.
func NewY(order uint32, c fr.Element) ProveExpression {
	return Y{Coeff: NewYPolynomial(order, c)}
}

// NewSum returns l + r.
func NewSum(l, r ProveExpression) ProveExpression { return Sum{L: l, R: r} }

// NewProduct returns l * r.
func NewProduct(l, r ProveExpression) ProveExpression { return Product{L: l, R: r} }

// NewNegated returns -e, as multiplication by the constant -1.
func NewNegated(e ProveExpression) ProveExpression {
	var minusOne fr.Element
	minusOne.SetOne().Neg(&minusOne)
	return Product{L: e, R: NewConstant(minusOne)}
}

// NewScaled returns c*e.
func NewScaled(e ProveExpression, c fr.Element) ProveExpression {
	return Product{L: e, R: NewConstant(c)}
}

// NewGateAccumulator returns the zero polynomial the gate fold starts from.
func NewGateAccumulator() ProveExpression {
	var zero fr.Element
	return Y{Coeff: NewYPolynomial(0, zero)}
}

// AddGate folds one more gate into the accumulator: acc*y + gate. The fold as
// a whole is the Horner evaluation of the gate list in y, so every gate ends
// up on its own power of the challenge.
func AddGate(acc, gate ProveExpression) ProveExpression {
	var one fr.Element
	one.SetOne()
	return Sum{
		L: Product{L: acc, R: Y{Coeff: NewYPolynomial(1, one)}},
		R: gate,
	}
}

// ComposeGates folds a whole gate list through AddGate.
func ComposeGates(gates []ProveExpression) ProveExpression {
	acc := NewGateAccumulator()
	for _, g := range gates {
		acc = AddGate(acc, g)
	}
	return acc
}

func (e Unit) GetDegree() (uint32, uint32) { return 1, 0 }
func (e Y) GetDegree() (uint32, uint32)    { return 0, 0 }

func (e Sum) GetDegree() (uint32, uint32) {
	l, _ := e.L.GetDegree()
	r, _ := e.R.GetDegree()
	return l + r + 1, l + r
}

func (e Product) GetDegree() (uint32, uint32) {
	l, _ := e.L.GetDegree()
	r, _ := e.R.GetDegree()
	return l + r + 1, l + r
}

func (e Unit) Clone() ProveExpression { return e }
func (e Sum) Clone() ProveExpression  { return Sum{L: e.L.Clone(), R: e.R.Clone()} }
func (e Product) Clone() ProveExpression {
	return Product{L: e.L.Clone(), R: e.R.Clone()}
}
func (e Y) Clone() ProveExpression { return Y{Coeff: e.Coeff.clone()} }

// OperationCount reports the number of Sum and Product nodes, i.e. the number
// of elementwise device kernels an evaluation of the tree dispatches beyond
// the per-leaf work.
func OperationCount(e ProveExpression) int {
	switch v := e.(type) {
	case Sum:
		return 1 + OperationCount(v.L) + OperationCount(v.R)
	case Product:
		return 1 + OperationCount(v.L) + OperationCount(v.R)
	default:
		return 0
	}
}
