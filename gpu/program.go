// Package gpu defines the accelerator capability interface the expression
// evaluator dispatches to, a portable host implementation of it used as the
// reference oracle and fallback, and (behind the icicle build tag) the
// device-backed implementation.
package gpu

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Error kinds of the evaluation pipeline. All of them are fatal for the
// current proving invocation; there are no retries. The only sanctioned
// recovery is falling back to the host program on ErrDeviceUnavailable.
var (
	ErrDeviceUnavailable = errors.New("gpu: no usable device")
	ErrAllocation        = errors.New("gpu: buffer allocation failed")
	ErrCompile           = errors.New("gpu: program compilation failed")
	ErrLaunch            = errors.New("gpu: kernel launch failed")
)

// Op selects the elementwise combining kernel.
type Op uint8

const (
	OpAdd Op = iota
	OpMul
)

// Buffer is an accelerator-resident array of field elements. Buffers follow
// strict single-owner single-consumer discipline: allocated by the node that
// produces them, consumed exactly once by their parent operation, then freed.
type Buffer interface {
	Len() int
}

// Program is the capability surface one evaluation invocation runs against.
// All operations are synchronous: the call returns once the kernel has
// completed. Shift arguments are deferred cyclic rotations in elements,
// applied inline while reading the operand; they are never materialized.
type Program interface {
	// Alloc creates a zeroed buffer of n elements.
	Alloc(n int) (Buffer, error)

	// Upload creates a buffer holding a copy of values.
	Upload(values []fr.Element) (Buffer, error)

	// Read copies a buffer back into out; len(out) must equal buf.Len().
	Read(buf Buffer, out []fr.Element) error

	// Free releases a buffer. Safe on nil.
	Free(buf Buffer)

	// Fill broadcasts the scalar c into every slot of dst.
	Fill(dst Buffer, c fr.Element) error

	// Binary computes dst[i] = a[(i+aShift) mod n] op b[(i+bShift) mod n].
	Binary(op Op, dst, a, b Buffer, aShift, bShift int32) error

	// BinaryScaled computes dst[i] = a[(i+aShift) mod n] + s*b[(i+bShift) mod n],
	// the fused linear-combination kernel of the lookup operators.
	BinaryScaled(dst, a, b Buffer, aShift, bShift int32, s fr.Element) error

	// BroadcastAdd computes dst[i] = a[(i+aShift) mod n] + c.
	BroadcastAdd(dst, a Buffer, aShift int32, c fr.Element) error

	// ForwardTransform moves a coefficient-form buffer to the evaluation
	// basis of the multiplicative subgroup of size buf.Len():
	// out[i] = sum_j buf[j] * omega^(i*j). It consumes buf and returns the
	// result buffer, which may or may not be the same allocation.
	ForwardTransform(buf Buffer) (Buffer, error)
}

// ShiftedTransformer is an optional Program upgrade for backends without
// rotated-read kernels: the deferred rotation of a unit is folded into the
// transform itself, and the returned buffer carries no deferred shift.
type ShiftedTransformer interface {
	ForwardTransformShifted(buf Buffer, shift int32) (Buffer, error)
}
