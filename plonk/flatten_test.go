package plonk

import (
	"math/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/hyperoracle/halo2-gpu-specific/poly"
)

// randomExpression grows a tree over a small unit pool so that generated
// expressions share monomials and exercise the coefficient merging paths.
func randomExpression(rng *rand.Rand, depth int) ProveExpression {
	if depth == 0 || rng.Intn(4) == 0 {
		switch rng.Intn(3) {
		case 0:
			var c fr.Element
			c.SetUint64(uint64(rng.Intn(50) + 1))
			return NewY(uint32(rng.Intn(3)), c)
		case 1:
			return NewUnit(Advice, rng.Intn(3), poly.Rotation(rng.Intn(3)-1))
		default:
			return NewUnit(Fixed, rng.Intn(2), poly.Cur())
		}
	}
	l := randomExpression(rng, depth-1)
	r := randomExpression(rng, depth-1)
	if rng.Intn(2) == 0 {
		return NewSum(l, r)
	}
	return NewProduct(l, r)
}

func TestFlattenSumIsCommutative(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("flatten(a+b) == flatten(b+a)", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			a := randomExpression(rng, 4)
			b := randomExpression(rng, 4)
			return Flatten(NewSum(a.Clone(), b.Clone())).Equal(Flatten(NewSum(b, a)))
		},
		gen.Int64(),
	))
	properties.TestingRun(t)
}

func TestFlattenProductIsAssociative(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("flatten((a*b)*c) == flatten(a*(b*c))", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			a := randomExpression(rng, 3)
			b := randomExpression(rng, 3)
			c := randomExpression(rng, 3)
			lhs := NewProduct(NewProduct(a.Clone(), b.Clone()), c.Clone())
			rhs := NewProduct(a, NewProduct(b, c))
			return Flatten(lhs).Equal(Flatten(rhs))
		},
		gen.Int64(),
	))
	properties.TestingRun(t)
}

func TestFlattenMergesEqualMonomials(t *testing.T) {
	a0 := NewUnit(Advice, 0, poly.Cur())
	a1 := NewUnit(Advice, 1, poly.Cur())

	// a0*a1 + a1*a0 has one monomial with coefficient 2
	flat := Flatten(NewSum(
		NewProduct(a0.Clone(), a1.Clone()),
		NewProduct(a1, a0),
	))
	require.Len(t, flat, 1)
	require.Len(t, flat[0].Units, 2)

	var two fr.Element
	two.SetUint64(2)
	c, ok := flat[0].Coeff[0]
	require.True(t, ok)
	require.True(t, two.Equal(&c))
}

func TestFlattenUnitAndY(t *testing.T) {
	u := NewUnit(Instance, 2, poly.Prev())
	flat := Flatten(u)
	require.Len(t, flat, 1)
	require.Equal(t, []ProveExpressionUnit{{Kind: Instance, ColumnIndex: 2, Rotation: poly.Prev()}}, flat[0].Units)

	var five fr.Element
	five.SetUint64(5)
	flat = Flatten(NewY(3, five))
	require.Len(t, flat, 1)
	require.Empty(t, flat[0].Units)
	c, ok := flat[0].Coeff[3]
	require.True(t, ok)
	require.True(t, five.Equal(&c))
}

func TestFlattenProductConvolvesChallengeOrders(t *testing.T) {
	var two, three fr.Element
	two.SetUint64(2)
	three.SetUint64(3)

	// (2y) * (3y^2) = 6y^3
	flat := Flatten(NewProduct(NewY(1, two), NewY(2, three)))
	require.Len(t, flat, 1)
	var six fr.Element
	six.SetUint64(6)
	c, ok := flat[0].Coeff[3]
	require.True(t, ok)
	require.True(t, six.Equal(&c))
}

func TestCanonicalFormIsSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		flat := Flatten(randomExpression(rng, 5))
		for i := 1; i < len(flat); i++ {
			require.Negative(t, compareUnitSlices(flat[i-1].Units, flat[i].Units))
		}
	}
}

func TestUnitOrdering(t *testing.T) {
	units := []ProveExpressionUnit{
		{Kind: Fixed, ColumnIndex: 0, Rotation: poly.Cur()},
		{Kind: Fixed, ColumnIndex: 0, Rotation: poly.Next()},
		{Kind: Fixed, ColumnIndex: 1, Rotation: poly.Prev()},
		{Kind: Advice, ColumnIndex: 0, Rotation: poly.Prev()},
		{Kind: Advice, ColumnIndex: 0, Rotation: poly.Cur()},
		{Kind: Instance, ColumnIndex: 0, Rotation: poly.Cur()},
	}
	for i := range units {
		require.Equal(t, 0, units[i].Cmp(units[i]))
		for j := i + 1; j < len(units); j++ {
			require.Equal(t, -1, units[i].Cmp(units[j]), "%v < %v", units[i], units[j])
			require.Equal(t, 1, units[j].Cmp(units[i]))
		}
	}
}
