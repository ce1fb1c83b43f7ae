package plonk

import (
	"math/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/hyperoracle/halo2-gpu-specific/poly"
)

func newTestLookupEvaluator(t *testing.T, pk *ProvingKey, advice [][]fr.Element, theta, beta, gamma uint64) (*LookupEvaluator, *Evaluator) {
	t.Helper()
	ev, _ := newTestEvaluator(t, pk, advice, nil, 2)
	var th, be, ga fr.Element
	th.SetUint64(theta)
	be.SetUint64(beta)
	ga.SetUint64(gamma)
	return NewLookupEvaluator(ev, th, be, ga), ev
}

func TestLcThetaScenario(t *testing.T) {
	domain := testDomain(t, 3, 2)
	rng := rand.New(rand.NewSource(17))
	advice := [][]fr.Element{randomColumn(rng, domain.Size()), randomColumn(rng, domain.Size())}
	pk := &ProvingKey{Domain: domain}

	u := NewUnit(Advice, 0, poly.Cur())
	v := NewUnit(Advice, 1, poly.Cur())

	lv, _ := newTestLookupEvaluator(t, pk, advice, 9, 0, 0)
	out, err := lv.EvaluateLookup(LcTheta{
		L: LookupExpression{E: u.Clone()},
		R: LookupExpression{E: v.Clone()},
	})
	require.NoError(t, err)

	evU, _ := newTestEvaluator(t, pk, advice, nil, 2)
	uVals, err := evU.Evaluate(u)
	require.NoError(t, err)
	evV, _ := newTestEvaluator(t, pk, advice, nil, 2)
	vVals, err := evV.Evaluate(v)
	require.NoError(t, err)

	var theta fr.Element
	theta.SetUint64(9)
	for i := range out {
		var want fr.Element
		want.Mul(&theta, &vVals[i])
		want.Add(&want, &uVals[i])
		require.True(t, want.Equal(&out[i]), "point %d", i)
	}
}

func TestLookupOperatorChain(t *testing.T) {
	domain := testDomain(t, 2, 2)
	rng := rand.New(rand.NewSource(19))
	advice := [][]fr.Element{randomColumn(rng, domain.Size()), randomColumn(rng, domain.Size())}
	pk := &ProvingKey{Domain: domain}

	u := NewUnit(Advice, 0, poly.Cur())
	v := NewUnit(Advice, 1, poly.Next())

	// AddGamma(LcBeta(LcTheta(u, v), u)) = (u + theta*v) + beta*u + gamma
	lv, base := newTestLookupEvaluator(t, pk, advice, 7, 11, 13)
	chain := AddGamma{L: LcBeta{
		L: LcTheta{L: LookupExpression{E: u.Clone()}, R: LookupExpression{E: v.Clone()}},
		R: LookupExpression{E: u.Clone()},
	}}
	out, err := lv.EvaluateLookup(chain)
	require.NoError(t, err)

	evU, _ := newTestEvaluator(t, pk, advice, nil, 2)
	uVals, err := evU.Evaluate(u.Clone())
	require.NoError(t, err)
	evV, _ := newTestEvaluator(t, pk, advice, nil, 2)
	vVals, err := evV.Evaluate(v)
	require.NoError(t, err)

	for i := range out {
		var want, term fr.Element
		want.Set(&uVals[i])
		term.Mul(&lv.Theta, &vVals[i])
		want.Add(&want, &term)
		term.Mul(&lv.Beta, &uVals[i])
		want.Add(&want, &term)
		want.Add(&want, &lv.Gamma)
		require.True(t, want.Equal(&out[i]), "point %d", i)
	}

	// the base program sees every intermediate freed
	hostProgram := base.program.(interface{ LiveBuffers() int64 })
	require.Equal(t, int64(0), hostProgram.LiveBuffers())
}

func TestLookupSharesChallengeCache(t *testing.T) {
	domain := testDomain(t, 2, 2)
	pk := &ProvingKey{Domain: domain}
	lv, base := newTestLookupEvaluator(t, pk, nil, 3, 0, 0)

	var one fr.Element
	one.SetOne()
	_, err := lv.EvaluateLookup(LookupExpression{E: NewY(4, one)})
	require.NoError(t, err)
	require.Len(t, base.ys, 5)
}

func TestCloneLookupIsDeep(t *testing.T) {
	u := NewUnit(Advice, 0, poly.Cur())
	chain := AddGamma{L: LcTheta{
		L: LookupExpression{E: u.Clone()},
		R: LookupExpression{E: NewConstant(fr.NewElement(4))},
	}}
	cloned := chain.CloneLookup()
	require.Equal(t, LookupProveExpression(chain), cloned)
}
