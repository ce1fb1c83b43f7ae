package halo2gpu

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/hyperoracle/halo2-gpu-specific/gpu"
	"github.com/hyperoracle/halo2-gpu-specific/plonk"
	"github.com/hyperoracle/halo2-gpu-specific/poly"
)

func testProvingKey(t *testing.T) *plonk.ProvingKey {
	t.Helper()
	domain, err := poly.NewEvaluationDomain(2, 2)
	require.NoError(t, err)
	return &plonk.ProvingKey{Domain: domain}
}

func constantColumn(n uint64, c uint64) []fr.Element {
	col := make([]fr.Element, n)
	col[0].SetUint64(c)
	return col
}

func TestNewProgramFallsBackToHost(t *testing.T) {
	if gpu.HasIcicle {
		t.Skip("accelerated build resolves a device first")
	}
	pk := testProvingKey(t)
	program, err := NewProgram(pk)
	require.NoError(t, err)
	_, isHost := program.(*gpu.HostProgram)
	require.True(t, isHost)
}

func TestEvaluateExpressionEndToEnd(t *testing.T) {
	pk := testProvingKey(t)
	advice := [][]fr.Element{
		constantColumn(pk.Domain.Size(), 5),
		constantColumn(pk.Domain.Size(), 7),
	}

	var three, y fr.Element
	three.SetUint64(3)
	y.SetUint64(2)
	gate := plonk.NewSum(
		plonk.NewProduct(plonk.NewUnit(plonk.Advice, 0, poly.Cur()), plonk.NewUnit(plonk.Advice, 1, poly.Cur())),
		plonk.NewConstant(three),
	)
	tree := plonk.Reconstruct(plonk.Flatten(plonk.ComposeGates([]plonk.ProveExpression{gate})))

	out, err := EvaluateExpression(pk, advice, nil, y, tree)
	require.NoError(t, err)
	require.Len(t, out, int(pk.Domain.ExtendedSize()))

	var want fr.Element
	want.SetUint64(38)
	for i := range out {
		require.True(t, want.Equal(&out[i]), "point %d", i)
	}
}

func TestEvaluateLookupExpressionEndToEnd(t *testing.T) {
	pk := testProvingKey(t)
	advice := [][]fr.Element{constantColumn(pk.Domain.Size(), 6)}

	var y, theta, beta, gamma fr.Element
	y.SetUint64(2)
	theta.SetUint64(9)
	beta.SetUint64(4)
	gamma.SetUint64(100)

	u := plonk.LookupExpression{E: plonk.NewUnit(plonk.Advice, 0, poly.Cur())}
	chain := plonk.AddGamma{L: plonk.LcBeta{L: u, R: u.CloneLookup()}}

	out, err := EvaluateLookupExpression(pk, advice, nil, y, theta, beta, gamma, chain)
	require.NoError(t, err)

	// 6 + 4*6 + 100
	var want fr.Element
	want.SetUint64(130)
	for i := range out {
		require.True(t, want.Equal(&out[i]), "point %d", i)
	}
}
