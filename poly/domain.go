// Package poly holds the evaluation-domain arithmetic shared by the
// expression evaluators: domain sizing, roots of unity and the
// coefficient-to-extended-basis padding step.
package poly

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
)

// EvaluationDomain describes the coefficient domain of size 2^k (one slot per
// circuit row) and the extended evaluation domain of size 2^extended_k, sized
// so that pointwise products of degree-bounded polynomials do not alias.
type EvaluationDomain struct {
	K         uint32
	ExtendedK uint32

	// Omega generates the multiplicative subgroup of size 2^k,
	// ExtendedOmega the one of size 2^extended_k.
	Omega         fr.Element
	ExtendedOmega fr.Element
}

// NewEvaluationDomain sizes the extended domain for a circuit whose
// constraint system has the given maximum total degree:
// extended_k = k + ceil(log2(degree+1)), so 2^extended_k >= 2^k * (degree+1).
func NewEvaluationDomain(k uint32, degree uint32) (*EvaluationDomain, error) {
	extendedK := k + uint32(bits.Len32(degree))
	gen, err := fft.Generator(uint64(1) << extendedK)
	if err != nil {
		return nil, fmt.Errorf("extended domain generator (extended_k=%d): %w", extendedK, err)
	}
	return NewEvaluationDomainWithGenerator(k, extendedK, gen)
}

// NewEvaluationDomainWithGenerator builds a domain from supplied parameters.
// extendedOmega must be a primitive 2^extendedK-th root of unity; the small
// domain generator is derived from it.
func NewEvaluationDomainWithGenerator(k, extendedK uint32, extendedOmega fr.Element) (*EvaluationDomain, error) {
	if extendedK < k {
		return nil, fmt.Errorf("extended_k=%d smaller than k=%d", extendedK, k)
	}
	d := &EvaluationDomain{
		K:             k,
		ExtendedK:     extendedK,
		ExtendedOmega: extendedOmega,
	}
	// omega = extendedOmega^(2^(extended_k-k))
	var exp big.Int
	exp.SetUint64(uint64(1) << (extendedK - k))
	d.Omega.Exp(extendedOmega, &exp)
	return d, nil
}

// Size is the number of rows, 2^k.
func (d *EvaluationDomain) Size() uint64 { return uint64(1) << d.K }

// ExtendedSize is the number of points of the extended evaluation basis.
func (d *EvaluationDomain) ExtendedSize() uint64 { return uint64(1) << d.ExtendedK }

// RotScale is the stride of one row rotation in the extended basis.
func (d *EvaluationDomain) RotScale() int32 { return int32(1) << (d.ExtendedK - d.K) }

// ShiftForRotation maps a row rotation to its deferred cyclic shift over the
// extended basis.
func (d *EvaluationDomain) ShiftForRotation(r Rotation) int32 {
	return int32(r) * d.RotScale()
}

// CoeffToExtendedWithoutFFT zero-extends a coefficient-domain column to the
// extended size. The forward transform of the result yields the column's
// values on the extended evaluation basis.
func (d *EvaluationDomain) CoeffToExtendedWithoutFFT(values []fr.Element) ([]fr.Element, error) {
	if uint64(len(values)) > d.Size() {
		return nil, fmt.Errorf("column has %d coefficients, domain holds %d", len(values), d.Size())
	}
	out := make([]fr.Element, d.ExtendedSize())
	copy(out, values)
	return out, nil
}
