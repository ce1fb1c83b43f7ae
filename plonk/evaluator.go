package plonk

import (
	"errors"
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/logger"

	"github.com/hyperoracle/halo2-gpu-specific/gpu"
	"github.com/hyperoracle/halo2-gpu-specific/poly"
)

// ErrMalformedExpression marks a degenerate tree that the public construction
// path never produces, such as an empty challenge mapping or a column query
// outside the assignment.
var ErrMalformedExpression = errors.New("malformed expression")

// ProvingKey carries the circuit-fixed inputs of the evaluation engine: the
// domain parameters and the fixed columns in coefficient form.
type ProvingKey struct {
	Domain      *poly.EvaluationDomain
	FixedValues [][]fr.Element
}

// Evaluator walks a reconstructed expression tree and materializes its values
// over the extended evaluation basis through a gpu.Program. One evaluator is
// built per proving invocation; it owns the y-power cache for that invocation
// and threads it through the whole walk, including lookup operator chains.
type Evaluator struct {
	program  gpu.Program
	pk       *ProvingKey
	advice   [][]fr.Element
	instance [][]fr.Element

	// ys[i] = y^i, grown on demand. Seeded with [1, y].
	ys []fr.Element
}

// NewEvaluator binds a program, key and per-invocation witness columns to the
// gate-combination challenge y.
func NewEvaluator(program gpu.Program, pk *ProvingKey, advice, instance [][]fr.Element, y fr.Element) *Evaluator {
	var one fr.Element
	one.SetOne()
	return &Evaluator{
		program:  program,
		pk:       pk,
		advice:   advice,
		instance: instance,
		ys:       []fr.Element{one, y},
	}
}

// Evaluate runs the full tree walk and reads the result back to the host,
// one value per extended-domain point. All intermediate buffers are freed
// before it returns, on success and on failure alike.
func (ev *Evaluator) Evaluate(e ProveExpression) ([]fr.Element, error) {
	log := logger.Logger().With().
		Uint32("extendedK", ev.pk.Domain.ExtendedK).
		Int("ops", OperationCount(e)).
		Str("backend", "halo2-gpu").Logger()
	start := time.Now()

	buf, shift, err := ev.eval(e)
	if err != nil {
		return nil, err
	}
	buf, err = ev.resolveShift(buf, shift)
	if err != nil {
		return nil, err
	}
	out := make([]fr.Element, buf.Len())
	err = ev.program.Read(buf, out)
	ev.program.Free(buf)
	if err != nil {
		return nil, err
	}

	log.Debug().Dur("took", time.Since(start)).Msg("expression evaluated")
	return out, nil
}

// eval returns the extended-domain buffer of the subtree together with its
// deferred cyclic shift. The caller owns the buffer and must free it.
func (ev *Evaluator) eval(e ProveExpression) (gpu.Buffer, int32, error) {
	switch v := e.(type) {
	case Unit:
		return ev.evalUnit(v.U)
	case Sum:
		return ev.combine(gpu.OpAdd, v.L, v.R)
	case Product:
		return ev.combine(gpu.OpMul, v.L, v.R)
	case Y:
		c, err := ev.challengeScalar(v.Coeff)
		if err != nil {
			return nil, 0, err
		}
		buf, err := ev.program.Alloc(int(ev.pk.Domain.ExtendedSize()))
		if err != nil {
			return nil, 0, err
		}
		if err := ev.program.Fill(buf, c); err != nil {
			ev.program.Free(buf)
			return nil, 0, err
		}
		return buf, 0, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown variant %T", ErrMalformedExpression, e)
	}
}

// evalUnit zero-extends the referenced column to the extended size and runs
// the forward transform. Programs that fold rotations into the transform
// return a shift-free buffer; otherwise the rotation stays deferred and is
// applied inline by the consuming kernel.
func (ev *Evaluator) evalUnit(u ProveExpressionUnit) (gpu.Buffer, int32, error) {
	values, err := ev.columnValues(u)
	if err != nil {
		return nil, 0, err
	}
	ext, err := ev.pk.Domain.CoeffToExtendedWithoutFFT(values)
	if err != nil {
		return nil, 0, err
	}
	buf, err := ev.program.Upload(ext)
	if err != nil {
		return nil, 0, err
	}

	shift := ev.pk.Domain.ShiftForRotation(u.Rotation)
	if st, ok := ev.program.(gpu.ShiftedTransformer); ok {
		out, err := st.ForwardTransformShifted(buf, shift)
		if err != nil {
			ev.program.Free(buf)
			return nil, 0, err
		}
		return out, 0, nil
	}
	out, err := ev.program.ForwardTransform(buf)
	if err != nil {
		ev.program.Free(buf)
		return nil, 0, err
	}
	return out, shift, nil
}

func (ev *Evaluator) columnValues(u ProveExpressionUnit) ([]fr.Element, error) {
	var columns [][]fr.Element
	switch u.Kind {
	case Fixed:
		columns = ev.pk.FixedValues
	case Advice:
		columns = ev.advice
	case Instance:
		columns = ev.instance
	default:
		return nil, fmt.Errorf("%w: unknown column kind %d", ErrMalformedExpression, u.Kind)
	}
	if u.ColumnIndex < 0 || u.ColumnIndex >= len(columns) {
		return nil, fmt.Errorf("%w: %s column %d of %d", ErrMalformedExpression, u.Kind, u.ColumnIndex, len(columns))
	}
	return columns[u.ColumnIndex], nil
}

// combine evaluates both children, then dispatches one elementwise kernel
// that applies each child's deferred shift while combining. Children are
// freed as soon as the kernel has consumed them.
func (ev *Evaluator) combine(op gpu.Op, l, r ProveExpression) (gpu.Buffer, int32, error) {
	lb, ls, err := ev.eval(l)
	if err != nil {
		return nil, 0, err
	}
	rb, rs, err := ev.eval(r)
	if err != nil {
		ev.program.Free(lb)
		return nil, 0, err
	}
	dst, err := ev.program.Alloc(lb.Len())
	if err != nil {
		ev.program.Free(lb)
		ev.program.Free(rb)
		return nil, 0, err
	}
	err = ev.program.Binary(op, dst, lb, rb, ls, rs)
	ev.program.Free(lb)
	ev.program.Free(rb)
	if err != nil {
		ev.program.Free(dst)
		return nil, 0, err
	}
	return dst, 0, nil
}

// resolveShift materializes a pending rotation so the read-back sees the
// rotated values. A bare Unit at the root is the only way a shift survives
// to the top of the walk.
func (ev *Evaluator) resolveShift(buf gpu.Buffer, shift int32) (gpu.Buffer, error) {
	if shift == 0 {
		return buf, nil
	}
	dst, err := ev.program.Alloc(buf.Len())
	if err != nil {
		ev.program.Free(buf)
		return nil, err
	}
	var zero fr.Element
	err = ev.program.BroadcastAdd(dst, buf, shift, zero)
	ev.program.Free(buf)
	if err != nil {
		ev.program.Free(dst)
		return nil, err
	}
	return dst, nil
}

// challengeScalar folds a y-polynomial down to one field element against the
// shared power cache, growing the cache up to the mapping's maximum order.
func (ev *Evaluator) challengeScalar(p YPolynomial) (fr.Element, error) {
	max, ok := p.maxOrder()
	if !ok {
		return fr.Element{}, fmt.Errorf("%w: empty challenge mapping", ErrMalformedExpression)
	}
	ev.growYs(max)
	var acc, t fr.Element
	for order, c := range p {
		t.Mul(&c, &ev.ys[order])
		acc.Add(&acc, &t)
	}
	return acc, nil
}

func (ev *Evaluator) growYs(order uint32) {
	for uint32(len(ev.ys)) <= order {
		var next fr.Element
		next.Mul(&ev.ys[1], &ev.ys[len(ev.ys)-1])
		ev.ys = append(ev.ys, next)
	}
}
