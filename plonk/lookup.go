package plonk

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/hyperoracle/halo2-gpu-specific/gpu"
)

// LookupProveExpression is the operator chain evaluated for a lookup
// argument: a base expression combined with the challenges theta, beta and
// gamma. Each operator is one fused elementwise kernel on top of the base
// tree walk.
type LookupProveExpression interface {
	// CloneLookup deep-copies the chain.
	CloneLookup() LookupProveExpression

	isLookup()
}

// LookupExpression lifts a plain expression into a lookup chain.
type LookupExpression struct {
	E ProveExpression
}

// LcTheta is l + theta*r, the running compression of lookup input columns.
type LcTheta struct {
	L, R LookupProveExpression
}

// LcBeta is l + beta*r.
type LcBeta struct {
	L, R LookupProveExpression
}

// AddGamma is l + gamma, a broadcast add over the extended domain.
type AddGamma struct {
	L LookupProveExpression
}

func (e LookupExpression) isLookup() {}
func (e LcTheta) isLookup()          {}
func (e LcBeta) isLookup()           {}
func (e AddGamma) isLookup()         {}

func (e LookupExpression) CloneLookup() LookupProveExpression {
	return LookupExpression{E: e.E.Clone()}
}
func (e LcTheta) CloneLookup() LookupProveExpression {
	return LcTheta{L: e.L.CloneLookup(), R: e.R.CloneLookup()}
}
func (e LcBeta) CloneLookup() LookupProveExpression {
	return LcBeta{L: e.L.CloneLookup(), R: e.R.CloneLookup()}
}
func (e AddGamma) CloneLookup() LookupProveExpression {
	return AddGamma{L: e.L.CloneLookup()}
}

// LookupEvaluator extends the base evaluator with the lookup challenges. It
// shares the underlying program, columns and y-power cache.
type LookupEvaluator struct {
	*Evaluator
	Theta, Beta, Gamma fr.Element
}

// NewLookupEvaluator wraps an evaluator with the per-invocation lookup
// challenges.
func NewLookupEvaluator(ev *Evaluator, theta, beta, gamma fr.Element) *LookupEvaluator {
	return &LookupEvaluator{Evaluator: ev, Theta: theta, Beta: beta, Gamma: gamma}
}

// EvaluateLookup runs a lookup chain and reads the result back to the host.
func (lv *LookupEvaluator) EvaluateLookup(e LookupProveExpression) ([]fr.Element, error) {
	buf, shift, err := lv.evalLookup(e)
	if err != nil {
		return nil, err
	}
	buf, err = lv.resolveShift(buf, shift)
	if err != nil {
		return nil, err
	}
	out := make([]fr.Element, buf.Len())
	err = lv.program.Read(buf, out)
	lv.program.Free(buf)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (lv *LookupEvaluator) evalLookup(e LookupProveExpression) (gpu.Buffer, int32, error) {
	switch v := e.(type) {
	case LookupExpression:
		return lv.eval(v.E)
	case LcTheta:
		return lv.scaledCombine(v.L, v.R, lv.Theta)
	case LcBeta:
		return lv.scaledCombine(v.L, v.R, lv.Beta)
	case AddGamma:
		lb, ls, err := lv.evalLookup(v.L)
		if err != nil {
			return nil, 0, err
		}
		dst, err := lv.program.Alloc(lb.Len())
		if err != nil {
			lv.program.Free(lb)
			return nil, 0, err
		}
		err = lv.program.BroadcastAdd(dst, lb, ls, lv.Gamma)
		lv.program.Free(lb)
		if err != nil {
			lv.program.Free(dst)
			return nil, 0, err
		}
		return dst, 0, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown lookup variant %T", ErrMalformedExpression, e)
	}
}

// scaledCombine computes l + s*r in one fused kernel, consuming both
// children.
func (lv *LookupEvaluator) scaledCombine(l, r LookupProveExpression, s fr.Element) (gpu.Buffer, int32, error) {
	lb, ls, err := lv.evalLookup(l)
	if err != nil {
		return nil, 0, err
	}
	rb, rs, err := lv.evalLookup(r)
	if err != nil {
		lv.program.Free(lb)
		return nil, 0, err
	}
	dst, err := lv.program.Alloc(lb.Len())
	if err != nil {
		lv.program.Free(lb)
		lv.program.Free(rb)
		return nil, 0, err
	}
	err = lv.program.BinaryScaled(dst, lb, rb, ls, rs, s)
	lv.program.Free(lb)
	lv.program.Free(rb)
	if err != nil {
		lv.program.Free(dst)
		return nil, 0, err
	}
	return dst, 0, nil
}
